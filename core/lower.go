package core

// LowererOptions configures the IR Lowerer's driver-controlled policy
// knobs (§4.2's argv support advertisement, mirroring AnalyzerOptions).
type LowererOptions struct {
	AllowArgv bool
}

// localKind is the binding classification §4.2's LocalInfo tracks.
type localKind int

const (
	localValue localKind = iota
	localPointer
	localReference
	localArray
	localVector
	localMap
	localStruct
)

// stringSource classifies where a String-kind local's backing bytes come
// from (§4.2's LocalInfo.stringSource): a string-table entry, or an argv
// element (rejected for map keys and key lookups per §4.2).
type stringSource int

const (
	stringSourceNone stringSource = iota
	stringSourceTable
	stringSourceArgv
)

// localInfo is the per-binding metadata the lowerer tracks (§4.2).
type localInfo struct {
	slot             int
	isMutable        bool
	kind             localKind
	valueKind        ValueKind
	structTypeName   string
	instanceScope    *scope // fields of a localStruct binding, by field name
	mapKeyKind       ValueKind
	mapValueKind     ValueKind
	referenceToArray bool
	stringSource     stringSource
	stringIndex      int
	isFileHandle     bool
	isResult         bool
	resultHasValue   bool
}

// scope is a chained lexical scope of name -> localInfo, mirroring the
// teacher's frame/scope-chain idiom (interp.go's frame.anc) adapted to
// compile-time binding resolution instead of a runtime value stack.
type scope struct {
	parent *scope
	vars   map[string]*localInfo
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: map[string]*localInfo{}}
}

func (s *scope) lookup(name string) (*localInfo, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if info, ok := cur.vars[name]; ok {
			return info, true
		}
	}
	return nil, false
}

func (s *scope) declare(name string, info *localInfo) { s.vars[name] = info }

// funcBuilder accumulates IrInstructions for the single, fully-inlined
// entry function (§4.2's "Entry function shape"), supporting forward
// jump targets via backpatching the way a typical one-pass bytecode
// compiler's label/patch idiom works.
type funcBuilder struct {
	instrs []IrInstruction
}

func (b *funcBuilder) emit(op IrOpcode, imm uint64) int {
	b.instrs = append(b.instrs, IrInstruction{Op: op, Imm: imm})
	return len(b.instrs) - 1
}

func (b *funcBuilder) here() int { return len(b.instrs) }

func (b *funcBuilder) patch(idx int, target int) { b.instrs[idx].Imm = uint64(target) }

// IrLowerer transforms a validated Program into a single-function PSIR
// module by fully inlining calls and expanding builtins (§4.2).
type IrLowerer struct {
	tables *tables
	opt    LowererOptions

	nextLocal   int
	module      *IrModule
	build       *funcBuilder
	inlineStack map[string]bool
	returnStack []*inlineFrame

	entryReturnKind ReturnKind
	hasArgv         bool
	argvName        string
}

// NewIrLowerer constructs a lowerer over the tables a SemanticAnalyzer
// produced.
func NewIrLowerer(t *tables, opt LowererOptions) *IrLowerer {
	return &IrLowerer{tables: t, opt: opt, inlineStack: map[string]bool{}}
}

// Lower turns program's entryPath definition into a PSIR module (§4.2).
func (l *IrLowerer) Lower(program *Program, entryPath string) (*IrModule, error) {
	entry, ok := l.tables.defMap[entryPath]
	if !ok {
		return nil, lowerErr("entry path not found: %s", entryPath)
	}

	l.module = &IrModule{}
	l.build = &funcBuilder{}
	l.nextLocal = 0

	returnKind, err := l.entryReturnKindOf(entry)
	if err != nil {
		return nil, err
	}
	l.entryReturnKind = returnKind

	rootScope := newScope(nil)
	if err := l.setupEntryParams(entry, rootScope); err != nil {
		return nil, err
	}

	l.inlineStack[entry.FullPath] = true
	fellThrough, err := l.lowerStatements(entry.Body, rootScope)
	if err != nil {
		return nil, err
	}
	delete(l.inlineStack, entry.FullPath)

	if entry.ReturnExpr != nil {
		if err := l.lowerExpr(entry.ReturnExpr, rootScope); err != nil {
			return nil, err
		}
		l.emitReturn(returnKind)
	} else if fellThrough {
		if returnKind == KindVoid {
			l.build.emit(OpReturnVoid, 0)
		} else {
			return nil, lowerErr("function %q does not return on every path", entry.FullPath)
		}
	}

	fn := &IrFunction{
		Name:         entry.FullPath,
		LocalCount:   l.nextLocal,
		ReturnKind:   returnKind,
		Instructions: l.build.instrs,
	}
	l.module.Functions = []*IrFunction{fn}
	return l.module, nil
}

func (l *IrLowerer) entryReturnKindOf(entry *Definition) (ReturnKind, error) {
	if k, ok := l.tables.returnKinds[entry.FullPath]; ok && k != KindUnknown {
		return k, nil
	}
	return ReturnKindOrDefault(KindUnknown, false)
}

// setupEntryParams implements §4.2's "Entry function shape": an
// array<string> parameter is permitted only when the driver advertises
// argv support, surfaced as an argv pseudo-binding; it is not itself
// materialized as a local (its count/at expand specially in
// lower_builtins_collections.go).
func (l *IrLowerer) setupEntryParams(entry *Definition, root *scope) error {
	if len(entry.Parameters) == 0 {
		return nil
	}
	if len(entry.Parameters) != 1 {
		return lowerErr("entry definitions support at most a single array<string> parameter")
	}
	param := entry.Parameters[0]
	if !l.opt.AllowArgv {
		return lowerErr("entry parameters require argv support, which the driver has not enabled")
	}
	if !isArgvParam(param) {
		return lowerErr("entry parameter must be array<string>: %s", param.Name)
	}
	l.hasArgv = true
	l.argvName = param.Name
	root.declare(param.Name, &localInfo{kind: localArray, valueKind: KindString})
	return nil
}

func isArgvParam(param *Expr) bool {
	for _, t := range param.Transforms {
		if t.Name == "array" && len(t.TemplateArgs) == 1 && t.TemplateArgs[0] == "string" {
			return true
		}
	}
	return false
}

func (l *IrLowerer) emitReturn(kind ReturnKind) {
	switch kind {
	case KindVoid:
		l.build.emit(OpReturnVoid, 0)
	case KindInt32:
		l.build.emit(OpReturnI32, 0)
	case KindInt64:
		l.build.emit(OpReturnI64, 0)
	case KindUInt64:
		l.build.emit(OpReturnU64, 0)
	case KindFloat32:
		l.build.emit(OpReturnF32, 0)
	case KindFloat64:
		l.build.emit(OpReturnF64, 0)
	case KindBool:
		l.build.emit(OpReturnBool, 0)
	default:
		l.build.emit(OpReturnI32, 0)
	}
}

// allocLocal reserves the next stack-like slot (§4.2's "Local
// allocation": slots are never reused within a function).
func (l *IrLowerer) allocLocal() int {
	slot := l.nextLocal
	l.nextLocal++
	return slot
}

func (l *IrLowerer) allocTempLocal() int { return l.allocLocal() }

func (l *IrLowerer) internString(text string) int { return l.module.internString(text) }
