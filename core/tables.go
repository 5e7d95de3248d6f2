package core

import "strings"

// lifecycleHelperNames is the fixed set of lifecycle helper leaf names
// (§4.1).
var lifecycleHelperNames = map[string]bool{
	"Create":        true,
	"Destroy":       true,
	"Copy":          true,
	"CreateStack":   true,
	"DestroyStack":  true,
	"CreateHeap":    true,
	"DestroyHeap":   true,
	"CreateBuffer":  true,
	"DestroyBuffer": true,
}

// structFamilyNames is the fixed set of struct-family transform names
// (§3, GLOSSARY).
var structFamilyNames = map[string]bool{
	"struct":                         true,
	"pod":                            true,
	"handle":                         true,
	"gpu_lane":                       true,
	"no_padding":                     true,
	"platform_independent_padding":   true,
}

// LifecycleHelperInfo records the classified lifecycle helpers nested
// under a single struct-family parent path.
type LifecycleHelperInfo struct {
	Create        *Definition
	Destroy       *Definition
	Copy          *Definition
	CreateStack   *Definition
	DestroyStack  *Definition
	CreateHeap    *Definition
	DestroyHeap   *Definition
	CreateBuffer  *Definition
	DestroyBuffer *Definition
}

// tables holds every derived table built from a Program by the Semantic
// Analyzer (§3) and consumed by both the analyzer itself and the
// lowerer.
type tables struct {
	program *Program

	defMap           map[string]*Definition
	importAliases    map[string]string
	structSet        map[string]bool
	lifecycleHelpers map[string]*LifecycleHelperInfo
	returnKinds      map[string]ReturnKind
	paramMap         map[string][]*Expr
}

func buildTables(program *Program) *tables {
	t := &tables{
		program:          program,
		defMap:           map[string]*Definition{},
		importAliases:    map[string]string{},
		structSet:        map[string]bool{},
		lifecycleHelpers: map[string]*LifecycleHelperInfo{},
		returnKinds:      map[string]ReturnKind{},
		paramMap:         map[string][]*Expr{},
	}

	for _, def := range program.Definitions {
		t.defMap[def.FullPath] = def
	}
	for _, def := range program.Definitions {
		if isStructFamily(def.Transforms) {
			t.structSet[def.FullPath] = true
		}
	}
	t.buildImportAliases()
	t.buildLifecycleHelpers()
	t.buildParamMap()
	return t
}

func isStructFamily(transforms []*Transform) bool {
	for _, tr := range transforms {
		if structFamilyNames[tr.Name] {
			return true
		}
	}
	return false
}

// buildImportAliases implements §4.1's wildcard/non-wildcard import
// rules: wildcard imports bring every *immediate* child's leaf name into
// importAliases, but only when no top-level "/leaf" definition already
// exists, and never recurse into nested namespaces. Non-wildcard imports
// with a trailing leaf add that single leaf alias under the same rule.
func (t *tables) buildImportAliases() {
	for _, imp := range t.program.Imports {
		if strings.HasSuffix(imp, "/*") {
			prefix := strings.TrimSuffix(imp, "/*")
			for path := range t.defMap {
				if !strings.HasPrefix(path, prefix+"/") {
					continue
				}
				rest := strings.TrimPrefix(path, prefix+"/")
				if strings.Contains(rest, "/") {
					continue // not an immediate child
				}
				leaf := rest
				if _, shadowed := t.defMap["/"+leaf]; shadowed {
					continue
				}
				t.importAliases[leaf] = path
			}
			continue
		}
		leaf := LeafName(imp)
		if leaf == "" {
			continue
		}
		if _, shadowed := t.defMap["/"+leaf]; shadowed {
			continue
		}
		t.importAliases[leaf] = imp
	}
}

// buildLifecycleHelpers classifies lifecycle helpers (§4.1, GLOSSARY).
func (t *tables) buildLifecycleHelpers() {
	for _, def := range t.program.Definitions {
		leaf := LeafName(def.FullPath)
		if !lifecycleHelperNames[leaf] {
			continue
		}
		parent := ParentPath(def.FullPath)
		if parent == "" || !t.structSet[parent] {
			continue // flagged as an error by the analyzer, not recorded here
		}
		info := t.lifecycleHelpers[parent]
		if info == nil {
			info = &LifecycleHelperInfo{}
			t.lifecycleHelpers[parent] = info
		}
		switch leaf {
		case "Create":
			info.Create = def
		case "Destroy":
			info.Destroy = def
		case "Copy":
			info.Copy = def
		case "CreateStack":
			info.CreateStack = def
		case "DestroyStack":
			info.DestroyStack = def
		case "CreateHeap":
			info.CreateHeap = def
		case "DestroyHeap":
			info.DestroyHeap = def
		case "CreateBuffer":
			info.CreateBuffer = def
		case "DestroyBuffer":
			info.DestroyBuffer = def
		}
	}
}

// buildParamMap records each definition's ordered parameter bindings
// after lifecycle `__self` injection (§3's paramMap invariant).
func (t *tables) buildParamMap() {
	for _, def := range t.program.Definitions {
		params := append([]*Expr{}, def.Parameters...)
		leaf := LeafName(def.FullPath)
		parent := ParentPath(def.FullPath)
		if lifecycleHelperNames[leaf] && parent != "" && t.structSet[parent] {
			self := &Expr{
				Kind:       ExprName,
				Name:       "__self",
				IsBinding:  true,
				Transforms: []*Transform{{Name: "Reference", TemplateArgs: []string{LeafName(parent)}}},
			}
			params = append([]*Expr{self}, params...)
		}
		t.paramMap[def.FullPath] = params
	}
}

func isLifecycleHelper(def *Definition, t *tables) bool {
	leaf := LeafName(def.FullPath)
	if !lifecycleHelperNames[leaf] {
		return false
	}
	parent := ParentPath(def.FullPath)
	return parent != "" && t.structSet[parent]
}
