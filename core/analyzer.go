package core

// AnalyzerOptions configures the Semantic Analyzer's policy knobs
// (§4.1's "unless the driver enables a default effects policy", §4.2's
// argv support advertisement).
type AnalyzerOptions struct {
	// DefaultEffects, when true, grants every capability a builtin
	// requires regardless of declared effects()/capabilities().
	DefaultEffects bool
	// AllowArgv advertises that the driver supports an array<string>
	// entry parameter (§4.2).
	AllowArgv bool
}

// SemanticAnalyzer validates a parsed Program and derives the tables the
// IR Lowerer consumes (§4.1).
type SemanticAnalyzer struct {
	opt     AnalyzerOptions
	program *Program
	tables  *tables

	// inferring is the "currently inferring" guard set keyed by path,
	// used to break the mutually-recursive return-kind inference cycle
	// (§9's Cyclic references note).
	inferring map[string]bool
}

// NewSemanticAnalyzer constructs an analyzer for program with opt.
func NewSemanticAnalyzer(program *Program, opt AnalyzerOptions) *SemanticAnalyzer {
	return &SemanticAnalyzer{
		opt:       opt,
		program:   program,
		tables:    buildTables(program),
		inferring: map[string]bool{},
	}
}

// Validate walks program, rejecting any violation of the language's
// rules and annotating tables.returnKinds for the lowerer (§4.1).
func (a *SemanticAnalyzer) Validate(entryPath string) error {
	if _, ok := a.tables.defMap[entryPath]; !ok {
		return semErr("entry path not found: %s", entryPath)
	}

	for _, def := range a.program.Definitions {
		if err := a.validateTransforms(def.Transforms, def); err != nil {
			return err
		}
		if err := a.validateLifecycleShape(def); err != nil {
			return err
		}
		if err := a.validateStructShape(def); err != nil {
			return err
		}
		if err := a.validateBody(def); err != nil {
			return err
		}
	}

	for _, exec := range a.program.Executions {
		if err := a.validateCallCapabilities(exec, capabilitySet{}); err != nil {
			return err
		}
		if err := a.validateExprShape(exec, nil); err != nil {
			return err
		}
	}

	// Return-kind inference is driven lazily by callers (lowerer and
	// validateExprShape's value-context checks), but every definition
	// needs its kind computed at least once so the table is complete
	// for the lowerer.
	for _, def := range a.program.Definitions {
		if isLifecycleHelper(def, a.tables) {
			a.tables.returnKinds[def.FullPath] = KindVoid
			continue
		}
		if isStructFamily(def.Transforms) {
			continue
		}
		if _, ok := a.tables.returnKinds[def.FullPath]; !ok {
			a.tables.returnKinds[def.FullPath] = a.inferReturnKind(def)
		}
	}

	return nil
}

// Tables exposes the derived tables for the lowerer once Validate has
// run (mirrors the original's defMap/importAliases/… being handed
// wholesale to the lowering stage).
func (a *SemanticAnalyzer) Tables() *tables { return a.tables }

// validateBody checks the definition's body statements recursively for
// shape violations not covered by the struct/lifecycle/transform passes:
// control-flow envelopes, builtin arities, and capability closure.
func (a *SemanticAnalyzer) validateBody(def *Definition) error {
	if isStructFamily(def.Transforms) {
		return nil // struct bodies are field bindings only, checked in validateStructShape
	}
	caps := newCapabilitySet(def.Transforms)
	if isLifecycleHelper(def, a.tables) {
		caps = newCapabilitySet(def.Transforms)
	}
	for _, stmt := range def.Body {
		if err := a.validateExprShape(stmt, def); err != nil {
			return err
		}
		if err := a.validateCallCapabilities(stmt, caps); err != nil {
			return err
		}
	}
	if def.ReturnExpr != nil {
		if err := a.validateExprShape(def.ReturnExpr, def); err != nil {
			return err
		}
	}
	return nil
}
