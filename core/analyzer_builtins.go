package core

// validateBuiltinArity checks a call against builtinArities (§4.1's
// "checking... builtin arities"). Calls that resolve to a user
// Definition are not builtins and are skipped here; arity against a
// Definition's paramMap is checked during lowering's call-site matching
// instead, which requires exactly one argument per parameter: parameter
// default expressions are not used, and a missing argument is an error.
func (a *SemanticAnalyzer) validateBuiltinArity(call *Call) error {
	if _, isDef := a.resolveCall(call); isDef {
		return nil
	}
	arity, ok := builtinArities[call.Name]
	if !ok {
		return nil
	}
	n := len(call.Args)
	if n < arity.min || (arity.max >= 0 && n > arity.max) {
		return semErr("builtin %q expects between %d and %d arguments, got %d", call.Name, arity.min, arity.max, n)
	}
	return nil
}
