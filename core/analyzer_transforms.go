package core

import "strings"

// typeTagNames are the builtin scalar type names recognized as type tags
// (§4.1); templated type tags (Reference<T>, Pointer<T>, array<T>,
// vector<T>, map<K,V>) are recognized structurally below.
var typeTagNames = map[string]bool{
	"i32": true, "i64": true, "u64": true, "f32": true, "f64": true,
	"int": true, "float": true, "bool": true, "string": true, "void": true,
}

func isTypeTag(t *Transform) bool {
	if typeTagNames[t.Name] {
		return true
	}
	switch t.Name {
	case "Reference", "Pointer", "array", "vector", "map":
		return true
	}
	return false
}

// transformCategory classifies a single Transform per §4.1.
type transformCategory int

const (
	catQualifier transformCategory = iota
	catTypeTag
	catStructFamily
	catCapability
	catReturn
	catPolicy
	catPlacement
	catUnknown
)

// placementTransforms are out of scope (§4.1): "placement modifiers...
// are rejected here".
var placementTransforms = map[string]bool{
	"placement_stack": true, "placement_heap": true, "placement_buffer": true,
}

func classifyTransform(t *Transform) transformCategory {
	switch {
	case qualifierTransforms[t.Name]:
		return catQualifier
	case isTypeTag(t):
		return catTypeTag
	case structFamilyNames[t.Name]:
		return catStructFamily
	case t.Name == "effects" || t.Name == "capabilities":
		return catCapability
	case t.Name == "return":
		return catReturn
	case policyMarkers[t.Name]:
		return catPolicy
	case placementTransforms[t.Name]:
		return catPlacement
	default:
		return catUnknown
	}
}

// validateTransforms applies the structural rules of §4.1 to a
// definition's transform list.
func (a *SemanticAnalyzer) validateTransforms(transforms []*Transform, def *Definition) error {
	var hasStruct, hasReturn, hasPod, hasHandle, hasGpuLane, hasMut bool
	for _, t := range transforms {
		cat := classifyTransform(t)
		switch cat {
		case catPlacement:
			return semErr("placement transform %q is not supported", t.Name)
		case catStructFamily:
			hasStruct = true
			if t.Name == "pod" {
				hasPod = true
			}
			if t.Name == "handle" {
				hasHandle = true
			}
			if t.Name == "gpu_lane" {
				hasGpuLane = true
			}
		case catReturn:
			hasReturn = true
		case catCapability:
			if err := validateCapabilityTransform(t); err != nil {
				return err
			}
		}
		if t.Name == "mut" {
			hasMut = true
			if len(t.TemplateArgs) > 0 || len(t.Args) > 0 {
				return semErr("mut transform does not accept template args or arguments")
			}
		}
	}

	if hasHandle && hasGpuLane {
		return semErr("handle and gpu_lane are mutually exclusive")
	}
	if hasPod && (hasHandle || hasGpuLane) {
		return semErr("pod forbids handle/gpu_lane on the struct and its fields")
	}
	if hasStruct {
		if hasReturn {
			return semErr("struct is mutually exclusive with return<T>")
		}
		if len(def.Parameters) > 0 {
			return semErr("struct definitions may not declare parameters")
		}
		if def.ReturnExpr != nil {
			return semErr("struct is mutually exclusive with a return(...) statement")
		}
	}
	if hasMut && !isLifecycleHelper(def, a.tables) {
		return semErr("mut is permitted only on lifecycle helpers")
	}
	return nil
}

// validateCapabilityTransform checks §4.1's effects()/capabilities()
// rules: identifier tokens only, no templates, no duplicates, each must
// be in the fixed capability set.
func validateCapabilityTransform(t *Transform) error {
	if len(t.TemplateArgs) > 0 {
		return semErr("%s does not accept template args", t.Name)
	}
	seen := map[string]bool{}
	for _, arg := range t.Args {
		if arg.Kind != ExprName {
			return semErr("%s accepts identifier tokens only", t.Name)
		}
		if seen[arg.Name] {
			return semErr("%s declares duplicate capability %q", t.Name, arg.Name)
		}
		seen[arg.Name] = true
		if !IsKnownCapability(arg.Name) {
			return semErr("unknown capability %q", arg.Name)
		}
	}
	return nil
}

// explicitReturnKind extracts a `return<T>` annotation, if present, or
// the `[T]` shorthand when single_type_to_return is enabled for def.
func explicitReturnKind(def *Definition) (ReturnKind, bool) {
	if t := FindTransform(def.Transforms, "return"); t != nil {
		if len(t.TemplateArgs) == 1 {
			return valueKindFromTypeName(t.TemplateArgs[0]), true
		}
		return KindVoid, true
	}
	if HasTransform(def.Transforms, "single_type_to_return") {
		for _, t := range def.Transforms {
			if isTypeTag(t) && len(t.TemplateArgs) == 0 {
				if k := valueKindFromTypeName(t.Name); k != KindUnknown {
					return k, true
				}
			}
		}
	}
	return KindUnknown, false
}

// splitTemplateTypeName splits a templated type string such as
// "array<i32>" into its base name and inner argument text, mirroring the
// original's splitTemplateTypeName.
func splitTemplateTypeName(s string) (base, arg string, ok bool) {
	open := strings.IndexByte(s, '<')
	if open < 0 || !strings.HasSuffix(s, ">") {
		return "", "", false
	}
	return s[:open], s[open+1 : len(s)-1], true
}
