package core

// isBlockEnvelope reports whether call is a block envelope (§4.1,
// GLOSSARY): no direct args, no template args, no named args, body
// present.
func isBlockEnvelope(call *Call) bool {
	if len(call.Args) > 0 || len(call.TemplateArgs) > 0 {
		return false
	}
	for _, n := range call.ArgNames {
		if n != "" {
			return false
		}
	}
	return call.HasBodyArgs
}

// validateExprShape recursively checks control-flow envelope shape and
// struct/method-call access rules (§4.1). def is nil for top-level
// executions.
func (a *SemanticAnalyzer) validateExprShape(expr *Expr, def *Definition) error {
	if expr == nil {
		return nil
	}
	if expr.Kind == ExprCall {
		if loopFamily[expr.Name] {
			if !isBlockEnvelope(expr) {
				return semErr("%s requires a block envelope body", expr.Name)
			}
		}
		if expr.Name == "if" {
			if len(expr.BodyArgs) == 0 {
				return semErr("if requires then/else block envelopes")
			}
		}
		if expr.Name == "block" && !expr.HasBodyArgs {
			return semErr("block requires a body")
		}
		if expr.IsMethodCall {
			if err := a.validateMethodCall(expr, def); err != nil {
				return err
			}
		}
		if err := a.validateBuiltinArity(expr); err != nil {
			return err
		}
		for _, arg := range expr.Args {
			if err := a.validateExprShape(arg, def); err != nil {
				return err
			}
		}
	}
	for _, b := range expr.BodyArgs {
		if err := a.validateExprShape(b, def); err != nil {
			return err
		}
	}
	if expr.Kind == ExprStringLiteral {
		if err := validateStringLiteralEncoding(expr); err != nil {
			return err
		}
	}
	return nil
}

// validateMethodCall implements §4.1's dotted-call rules: arrays,
// vectors and maps expose a small built-in method surface; strings
// expose count/at/at_unsafe; dotted calls on raw pointers or references
// (non-array) are rejected. Struct methods (a dotted call that resolves
// to a Definition under the receiver's struct namespace) are always
// allowed and bypass this check entirely.
func (a *SemanticAnalyzer) validateMethodCall(call *Call, def *Definition) error {
	if len(call.Args) == 0 {
		return semErr("method call %s requires a receiver", call.Name)
	}
	if _, ok := a.resolveCall(call); ok {
		return nil
	}
	if _, ok := a.resolveMethodCallDef(call, def); ok {
		return nil
	}
	if !arrayVectorMethods[call.Name] && !stringMethods[call.Name] {
		return semErr("unknown method call: %s", call.Name)
	}
	receiver := call.Args[0]
	if receiver.Kind != ExprName || def == nil {
		return nil
	}
	switch receiverBindingKind(def, receiver.Name) {
	case "pointer":
		return semErr("method call %s.%s is not allowed on a raw pointer", receiver.Name, call.Name)
	case "reference":
		return semErr("method call %s.%s is not allowed on a reference (non-array)", receiver.Name, call.Name)
	}
	return nil
}

// resolveMethodCallDef resolves a dotted call's receiver to the struct
// namespace it dispatches against (§8.6's Foo().ping()), returning the
// Definition call.Name names under that namespace. A constructor-call
// receiver (Foo()) resolves directly; a name-bound receiver resolves
// via its declared struct type tag in def's parameters or body.
func (a *SemanticAnalyzer) resolveMethodCallDef(call *Call, def *Definition) (*Definition, bool) {
	if target, ok := a.resolveMethodReceiverCallDef(call); ok {
		return target, true
	}
	if len(call.Args) == 0 || def == nil {
		return nil, false
	}
	receiver := call.Args[0]
	if receiver.Kind != ExprName {
		return nil, false
	}
	structPath, ok := receiverStructPath(def, receiver.Name, a.tables)
	if !ok {
		return nil, false
	}
	target, ok := a.tables.defMap[structPath+"/"+call.Name]
	return target, ok
}

// resolveMethodReceiverCallDef handles the receiver-is-itself-a-call
// case (Foo().ping()), which needs no enclosing Definition context: the
// receiver's own name resolves straight to a struct-family Definition.
func (a *SemanticAnalyzer) resolveMethodReceiverCallDef(call *Call) (*Definition, bool) {
	if len(call.Args) == 0 || call.Args[0].Kind != ExprCall {
		return nil, false
	}
	receiver := call.Args[0]
	path, ok := a.tables.ResolvePath(receiver.Name, receiver.NamespacePrefix)
	if !ok {
		return nil, false
	}
	structDef, ok := a.tables.defMap[path]
	if !ok || !isStructFamily(structDef.Transforms) {
		return nil, false
	}
	target, ok := a.tables.defMap[path+"/"+call.Name]
	return target, ok
}

// receiverStructPath finds the struct-family Definition path a bound
// local named name was declared against, by walking def's parameters
// and body for a type-tag transform that resolves to a struct (§8.6's
// [Foo] self parameter and name{Foo()} bindings alike).
func receiverStructPath(def *Definition, name string, t *tables) (string, bool) {
	transforms := findBindingTransforms(def, name)
	for _, tr := range transforms {
		candidate := tr.Name
		if (tr.Name == "Reference" || tr.Name == "Pointer") && len(tr.TemplateArgs) == 1 {
			candidate = tr.TemplateArgs[0]
		}
		path := "/" + candidate
		if d, ok := t.defMap[path]; ok && isStructFamily(d.Transforms) {
			return path, true
		}
	}
	return "", false
}

// findBindingTransforms finds the transforms declared on the parameter
// or local binding named name, mirroring receiverBindingKind's lookup
// shape but returning the raw transform list instead of a pointer/
// reference classification.
func findBindingTransforms(def *Definition, name string) []*Transform {
	for _, p := range def.Parameters {
		if p.Name == name {
			return p.Transforms
		}
	}
	return findBindingTransformsInBody(def.Body, name)
}

func findBindingTransformsInBody(stmts []*Expr, name string) []*Transform {
	for _, stmt := range stmts {
		if stmt.IsBinding && stmt.Name == name {
			return stmt.Transforms
		}
		if t := findBindingTransformsInBody(stmt.Args, name); t != nil {
			return t
		}
		if t := findBindingTransformsInBody(stmt.BodyArgs, name); t != nil {
			return t
		}
	}
	return nil
}

// receiverBindingKind finds the local binding named name declared in
// def's parameters or body and reports whether its declared type is a
// raw pointer or a non-array reference (§4.1's dotted-call restriction).
// Array, vector, map and plain-value bindings report "".
func receiverBindingKind(def *Definition, name string) string {
	for _, p := range def.Parameters {
		if p.Name == name {
			if k := transformReceiverKind(p.Transforms); k != "" {
				return k
			}
		}
	}
	return receiverBindingKindInBody(def.Body, name)
}

func receiverBindingKindInBody(stmts []*Expr, name string) string {
	for _, stmt := range stmts {
		if stmt.IsBinding && stmt.Name == name {
			if k := transformReceiverKind(stmt.Transforms); k != "" {
				return k
			}
		}
		if k := receiverBindingKindInBody(stmt.Args, name); k != "" {
			return k
		}
		if k := receiverBindingKindInBody(stmt.BodyArgs, name); k != "" {
			return k
		}
	}
	return ""
}

func transformReceiverKind(transforms []*Transform) string {
	for _, t := range transforms {
		switch t.Name {
		case "Pointer":
			return "pointer"
		case "Reference":
			return "reference"
		case "array", "vector", "map":
			return ""
		}
	}
	return ""
}

func validateStringLiteralEncoding(expr *Expr) error {
	if expr.StringEnc == EncodingASCII || expr.StringEnc == EncodingRawASCII {
		if !isASCIIText(expr.StringValue) {
			return semErr("ascii string literal contains non-ASCII characters")
		}
	}
	return nil
}

func isASCIIText(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return false
		}
	}
	return true
}

// validateCallCapabilities implements §4.1/§8's capability closure: a
// builtin that needs a capability fails validation unless the enclosing
// capability set (or the driver's default-effects policy) grants it.
func (a *SemanticAnalyzer) validateCallCapabilities(expr *Expr, enclosing capabilitySet) error {
	if expr == nil {
		return nil
	}
	if expr.Kind == ExprCall {
		if cap, needs := RequiredCapability(expr.Name); needs {
			if !grants(enclosing, cap, a.opt.DefaultEffects) {
				return semErr("call to %q requires capability %q which is not declared", expr.Name, cap)
			}
		}
		target, ok := a.resolveCall(expr)
		if !ok || target == nil {
			target, ok = a.resolveMethodReceiverCallDef(expr)
		}
		if ok && target != nil {
			calleeCaps := newCapabilitySet(target.Transforms)
			for c := range calleeCaps {
				if !grants(enclosing, c, a.opt.DefaultEffects) {
					return semErr("call to %q requires capability %q which is not declared", expr.Name, c)
				}
			}
		}
		for _, arg := range expr.Args {
			if err := a.validateCallCapabilities(arg, enclosing); err != nil {
				return err
			}
		}
	}
	for _, b := range expr.BodyArgs {
		if err := a.validateCallCapabilities(b, enclosing); err != nil {
			return err
		}
	}
	return nil
}

// inferReturnKind implements §4.1's return-kind inference: visits every
// return(expr) in the body (including inside if branches and block
// envelopes used as values), combining kinds with numeric-promotion
// rules. A guard set keyed by path breaks recursive inference cycles
// (§9).
func (a *SemanticAnalyzer) inferReturnKind(def *Definition) ReturnKind {
	if k, ok := explicitReturnKind(def); ok {
		return k
	}
	if a.inferring[def.FullPath] {
		return KindUnknown
	}
	a.inferring[def.FullPath] = true
	defer delete(a.inferring, def.FullPath)

	kind := KindUnknown
	seen := false
	var visit func(expr *Expr)
	visit = func(expr *Expr) {
		if expr == nil {
			return
		}
		if expr.Kind == ExprCall && expr.Name == "return" {
			var k ReturnKind
			if len(expr.Args) == 0 {
				k = KindVoid
			} else {
				k = a.inferExprKind(expr.Args[0])
			}
			if !seen {
				kind = k
				seen = true
			} else {
				kind = combineReturnKinds(kind, k)
			}
			return
		}
		for _, arg := range expr.Args {
			visit(arg)
		}
		for _, b := range expr.BodyArgs {
			visit(b)
		}
	}
	for _, stmt := range def.Body {
		visit(stmt)
	}
	if def.ReturnExpr != nil {
		k := a.inferExprKind(def.ReturnExpr)
		if !seen {
			kind = k
			seen = true
		} else {
			kind = combineReturnKinds(kind, k)
		}
	}
	if !seen {
		return KindVoid
	}
	if kind == KindUnknown {
		// "Int is assumed for backward-compatibility unless the path is
		// referenced as a value in a context that needs a specific kind"
		// (§4.1). The core records Unknown here; callers that need a
		// concrete kind for a value context apply the Int32 fallback
		// via ReturnKindOrDefault.
		return KindUnknown
	}
	return kind
}

// ReturnKindOrDefault applies §4.1's backward-compatibility fallback:
// Unknown becomes Int32 unless the caller is in a context that requires
// an explicit annotation (reported by the second return value).
func ReturnKindOrDefault(k ReturnKind, requiresExplicit bool) (ReturnKind, error) {
	if k != KindUnknown {
		return k, nil
	}
	if requiresExplicit {
		return KindUnknown, semErr("native backend return type inference requires explicit annotation")
	}
	return KindInt32, nil
}

// inferExprKind infers the ValueKind an expression yields, used both by
// return-kind inference and by if/block-as-expression checks (§4.1).
func (a *SemanticAnalyzer) inferExprKind(expr *Expr) ValueKind {
	if expr == nil {
		return KindUnknown
	}
	switch expr.Kind {
	case ExprIntLiteral:
		if expr.IntSigned {
			if expr.IntWidth == 64 {
				return KindInt64
			}
			return KindInt32
		}
		return KindUInt64
	case ExprFloatLiteral:
		if expr.FloatWidth == 64 {
			return KindFloat64
		}
		return KindFloat32
	case ExprBoolLiteral:
		return KindBool
	case ExprStringLiteral:
		return KindString
	case ExprName:
		if def, ok := a.tables.defMap[a.resolveName(expr)]; ok {
			return a.inferReturnKind(def)
		}
		return KindUnknown
	case ExprCall:
		return a.inferCallKind(expr)
	}
	return KindUnknown
}

func (a *SemanticAnalyzer) resolveName(expr *Expr) string {
	path, _ := a.tables.ResolvePath(expr.Name, expr.NamespacePrefix)
	return path
}

func (a *SemanticAnalyzer) inferCallKind(call *Call) ValueKind {
	switch call.Name {
	case "if":
		if len(call.BodyArgs) < 2 {
			return KindUnknown
		}
		then := a.blockValueKind(call.BodyArgs[0])
		els := a.blockValueKind(call.BodyArgs[1])
		return combineReturnKinds(then, els)
	case "block":
		if len(call.BodyArgs) == 0 {
			return KindVoid
		}
		return a.blockValueKind(call)
	}
	if comparisonBuiltins[call.Name] || call.Name == "and" || call.Name == "or" || call.Name == "not" ||
		call.Name == "is_nan" || call.Name == "is_inf" || call.Name == "is_finite" {
		return KindBool
	}
	if _, ok := builtinArities[call.Name]; ok {
		if len(call.Args) > 0 {
			return a.inferExprKind(call.Args[0])
		}
		return KindUnknown
	}
	if def, ok := a.resolveCall(call); ok && def != nil {
		return a.inferReturnKind(def)
	}
	if target, ok := a.resolveMethodReceiverCallDef(call); ok {
		return a.inferReturnKind(target)
	}
	return KindUnknown
}

// blockValueKind returns the kind of a block envelope's last statement
// (§4.1's "Block envelopes as values").
func (a *SemanticAnalyzer) blockValueKind(blockCall *Expr) ValueKind {
	if blockCall == nil {
		return KindUnknown
	}
	body := blockCall.BodyArgs
	if len(body) == 0 {
		return KindVoid
	}
	last := body[len(body)-1]
	if last.IsBinding {
		return KindUnknown
	}
	return a.inferExprKind(last)
}
