package core

import "math"

// exprKind infers the ValueKind an expression yields during lowering —
// the lowerer's counterpart to the analyzer's inferExprKind, consulting
// the live scope chain's localInfo for names instead of a return-kind
// table alone, since bindings are lowering-only state.
func (l *IrLowerer) exprKind(expr *Expr, sc *scope) ValueKind {
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
		if info, ok := sc.lookup(expr.Name); ok {
			return info.valueKind
		}
		if path, ok := l.tables.ResolvePath(expr.Name, expr.NamespacePrefix); ok {
			if k, ok := l.tables.returnKinds[path]; ok {
				return k
			}
		}
		return KindUnknown
	case ExprCall:
		return l.callKind(expr, sc)
	}
	return KindUnknown
}

func (l *IrLowerer) callKind(call *Call, sc *scope) ValueKind {
	switch call.Name {
	case "plus", "minus", "multiply", "divide", "modulo":
		if len(call.Args) != 2 {
			return KindUnknown
		}
		return combineNumericKinds(l.exprKind(call.Args[0], sc), l.exprKind(call.Args[1], sc))
	case "negate":
		if len(call.Args) != 1 {
			return KindUnknown
		}
		return l.exprKind(call.Args[0], sc)
	case "equal", "not_equal", "greater_than", "less_than", "greater_equal", "less_equal",
		"and", "or", "not", "is_nan", "is_inf", "is_finite":
		return KindBool
	case "if":
		if len(call.BodyArgs) < 2 {
			return KindUnknown
		}
		return combineReturnKinds(l.blockKind(call.BodyArgs[0], sc), l.blockKind(call.BodyArgs[1], sc))
	case "block":
		return l.blockKind(call, sc)
	case "count", "capacity":
		return KindInt64
	case "at", "at_unsafe", "pop":
		if len(call.Args) >= 1 {
			return l.receiverElementKind(call.Args[0], sc)
		}
		return KindUnknown
	case "push", "reserve", "clear", "remove_at", "remove_swap", "increment", "decrement":
		return KindVoid
	case "assign":
		// Used as a statement its value is discarded; used as an expression
		// (§8.5's short-circuit scenario) it yields the assigned value.
		if len(call.Args) == 2 {
			return l.exprKind(call.Args[1], sc)
		}
		return KindUnknown
	case "sqrt", "cbrt", "exp", "exp2", "log", "log2", "log10", "floor", "ceil", "round",
		"trunc", "fract", "sin", "cos", "tan", "asin", "acos", "atan", "atan2", "sinh",
		"cosh", "tanh", "asinh", "acosh", "atanh", "hypot", "radians", "degrees", "saturate", "pow":
		return KindFloat64
	case "clamp", "min", "max", "abs", "sign", "lerp", "fma", "copysign":
		if len(call.Args) > 0 {
			return l.exprKind(call.Args[0], sc)
		}
		return KindFloat64
	case "dereference":
		if len(call.Args) == 1 {
			return l.receiverElementKind(call.Args[0], sc)
		}
	case "location":
		// location(name) yields a raw byte address (§4.2); it combines with
		// an i32 byte offset via combineNumericKinds' Int32+Int64->Int64
		// allowance, giving plus/minus plain 64-bit pointer arithmetic.
		return KindInt64
	}
	if def, ok := l.tables.defMap[l.resolvePathOf(call)]; ok {
		if k, ok := l.tables.returnKinds[def.FullPath]; ok {
			return k
		}
	}
	return KindUnknown
}

func (l *IrLowerer) resolvePathOf(call *Call) string {
	path, _ := l.tables.ResolvePath(call.Name, call.NamespacePrefix)
	return path
}

func (l *IrLowerer) blockKind(block *Expr, sc *scope) ValueKind {
	if block == nil || len(block.BodyArgs) == 0 {
		return KindVoid
	}
	last := block.BodyArgs[len(block.BodyArgs)-1]
	if last.IsBinding {
		return KindVoid
	}
	return l.exprKind(last, sc)
}

func (l *IrLowerer) receiverElementKind(receiver *Expr, sc *scope) ValueKind {
	if receiver.Kind == ExprName {
		if info, ok := sc.lookup(receiver.Name); ok {
			if info.kind == localMap {
				return info.mapValueKind
			}
			return info.valueKind
		}
	}
	return KindUnknown
}

// lowerExpr lowers expr so that exactly one value is left on the stack.
func (l *IrLowerer) lowerExpr(expr *Expr, sc *scope) error {
	switch expr.Kind {
	case ExprIntLiteral:
		return l.lowerIntLiteral(expr)
	case ExprFloatLiteral:
		return l.lowerFloatLiteral(expr)
	case ExprBoolLiteral:
		v := uint64(0)
		if expr.BoolValue {
			v = 1
		}
		l.build.emit(OpPushI32, v)
		return nil
	case ExprStringLiteral:
		return l.lowerStringLiteral(expr)
	case ExprName:
		return l.lowerName(expr, sc)
	case ExprCall:
		return l.lowerCall(expr, sc)
	}
	return lowerErr("cannot lower expression of unknown kind")
}

func (l *IrLowerer) lowerIntLiteral(expr *Expr) error {
	switch {
	case expr.IntSigned && expr.IntWidth == 64:
		l.build.emit(OpPushI64, uint64(expr.IntValue))
	case expr.IntSigned:
		l.build.emit(OpPushI32, uint64(uint32(int32(expr.IntValue))))
	default:
		l.build.emit(OpPushI64, uint64(expr.IntValue))
	}
	return nil
}

func (l *IrLowerer) lowerFloatLiteral(expr *Expr) error {
	if expr.FloatWidth == 64 {
		l.build.emit(OpPushF64, math.Float64bits(expr.FloatValue))
	} else {
		l.build.emit(OpPushF32, uint64(math.Float32bits(float32(expr.FloatValue))))
	}
	return nil
}

// lowerStringLiteral represents a string value as its string-table index
// (content-deduplicated by internString, so equal text always yields
// equal indices — enough for equal/not_equal and for PrintString's own
// direct string-table lookup).
func (l *IrLowerer) lowerStringLiteral(expr *Expr) error {
	idx := l.internString(expr.StringValue)
	l.build.emit(OpPushI64, uint64(idx))
	return nil
}

func (l *IrLowerer) lowerName(expr *Expr, sc *scope) error {
	info, ok := sc.lookup(expr.Name)
	if !ok {
		return lowerErr("undeclared name: %s", expr.Name)
	}
	l.build.emit(OpLoadLocal, uint64(info.slot))
	return nil
}

func (l *IrLowerer) lowerCall(call *Call, sc *scope) error {
	switch call.Name {
	case "if":
		return l.lowerIfExpr(call, sc)
	case "block":
		inner := newScope(sc)
		return l.lowerBlockValue(call, inner)
	case "and":
		return l.lowerShortCircuit(call, sc, true)
	case "or":
		return l.lowerShortCircuit(call, sc, false)
	case "not":
		return l.lowerNot(call, sc)
	case "equal", "not_equal", "greater_than", "less_than", "greater_equal", "less_equal":
		return l.lowerComparison(call, sc)
	case "plus", "minus", "multiply", "divide", "modulo":
		return l.lowerArithmetic(call, sc)
	case "negate":
		return l.lowerNegate(call, sc)
	case "print", "print_line", "print_error", "print_line_error":
		return l.lowerPrint(call, sc)
	case "print_value":
		return l.lowerPrintValue(call, sc)
	case "print_string":
		return l.lowerPrintStringBuiltin(call, sc)
	case "location":
		return l.lowerLocation(call, sc)
	case "dereference":
		return l.lowerDereference(call, sc)
	case "convert":
		return l.lowerConvert(call, sc)
	case "assign":
		return l.lowerAssignExpr(call, sc)
	}
	if isMathBuiltin(call.Name) {
		return l.lowerMathBuiltin(call, sc)
	}
	if isCollectionBuiltin(call.Name) {
		return l.lowerCollectionBuiltin(call, sc)
	}
	return l.lowerInlineCall(call, sc)
}

func (l *IrLowerer) lowerIfExpr(call *Call, sc *scope) error {
	if len(call.Args) != 1 || len(call.BodyArgs) != 2 {
		return lowerErr("if as a value requires a condition and then/else blocks")
	}
	if err := l.lowerExpr(call.Args[0], sc); err != nil {
		return err
	}
	elseJump := l.build.emit(OpJumpIfZero, 0)
	thenScope := newScope(sc)
	if err := l.lowerBlockValue(call.BodyArgs[0], thenScope); err != nil {
		return err
	}
	endJump := l.build.emit(OpJump, 0)
	l.build.patch(elseJump, l.build.here())
	elseScope := newScope(sc)
	if err := l.lowerBlockValue(call.BodyArgs[1], elseScope); err != nil {
		return err
	}
	l.build.patch(endJump, l.build.here())
	return nil
}

// lowerShortCircuit implements and/or's lazy evaluation (§4.1/§8): the
// left operand's truth value decides whether the right operand executes
// at all. The right operand's value ends the evaluated path with a Jump
// past the short path, which pushes the decided constant (0 for and,
// 1 for or).
func (l *IrLowerer) lowerShortCircuit(call *Call, sc *scope, isAnd bool) error {
	if len(call.Args) != 2 {
		return lowerErr("%s requires exactly 2 arguments", call.Name)
	}
	if err := l.lowerExpr(call.Args[0], sc); err != nil {
		return err
	}
	var shortJump int
	if isAnd {
		shortJump = l.build.emit(OpJumpIfZero, 0)
	} else {
		shortJump = l.build.emit(OpJumpIfNotZero, 0)
	}
	if err := l.lowerExpr(call.Args[1], sc); err != nil {
		return err
	}
	endJump := l.build.emit(OpJump, 0)
	l.build.patch(shortJump, l.build.here())
	if isAnd {
		l.build.emit(OpPushI32, 0)
	} else {
		l.build.emit(OpPushI32, 1)
	}
	l.build.patch(endJump, l.build.here())
	return nil
}

func (l *IrLowerer) lowerNot(call *Call, sc *scope) error {
	if len(call.Args) != 1 {
		return lowerErr("not requires exactly 1 argument")
	}
	if err := l.lowerExpr(call.Args[0], sc); err != nil {
		return err
	}
	l.build.emit(OpPushI32, 0)
	l.build.emit(OpCmpEqI32, 0)
	return nil
}

var comparisonOpFamily = map[string][5]IrOpcode{
	"equal":         {OpCmpEqI32, OpCmpEqI64, OpCmpEqU64, OpCmpEqF32, OpCmpEqF64},
	"not_equal":     {OpCmpNeI32, OpCmpNeI64, OpCmpNeU64, OpCmpNeF32, OpCmpNeF64},
	"less_than":     {OpCmpLtI32, OpCmpLtI64, OpCmpLtU64, OpCmpLtF32, OpCmpLtF64},
	"less_equal":    {OpCmpLeI32, OpCmpLeI64, OpCmpLeU64, OpCmpLeF32, OpCmpLeF64},
	"greater_than":  {OpCmpGtI32, OpCmpGtI64, OpCmpGtU64, OpCmpGtF32, OpCmpGtF64},
	"greater_equal": {OpCmpGeI32, OpCmpGeI64, OpCmpGeU64, OpCmpGeF32, OpCmpGeF64},
}

func opcodeIndexForKind(k ValueKind) int {
	switch k {
	case KindInt32:
		return 0
	case KindInt64:
		return 1
	case KindUInt64:
		return 2
	case KindFloat32:
		return 3
	case KindFloat64:
		return 4
	default:
		return 0
	}
}

func (l *IrLowerer) lowerComparison(call *Call, sc *scope) error {
	if len(call.Args) != 2 {
		return lowerErr("%s requires exactly 2 arguments", call.Name)
	}
	kind := l.exprKind(call.Args[0], sc)
	if kind == KindUnknown {
		kind = l.exprKind(call.Args[1], sc)
	}
	if kind == KindString {
		if call.Name != "equal" && call.Name != "not_equal" {
			return lowerErr("%s is not defined for strings", call.Name)
		}
		kind = KindInt64
	}
	if kind == KindBool {
		if call.Name != "equal" && call.Name != "not_equal" {
			return lowerErr("%s is not defined for bool", call.Name)
		}
		kind = KindInt32
	}
	if err := l.lowerExpr(call.Args[0], sc); err != nil {
		return err
	}
	if err := l.lowerExpr(call.Args[1], sc); err != nil {
		return err
	}
	family, ok := comparisonOpFamily[call.Name]
	if !ok {
		return lowerErr("unknown comparison builtin: %s", call.Name)
	}
	l.build.emit(family[opcodeIndexForKind(kind)], 0)
	return nil
}

var arithOpFamily = map[string][5]IrOpcode{
	"plus":     {OpAddI32, OpAddI64, OpAddU64, OpAddF32, OpAddF64},
	"minus":    {OpSubI32, OpSubI64, OpSubU64, OpSubF32, OpSubF64},
	"multiply": {OpMulI32, OpMulI64, OpMulU64, OpMulF32, OpMulF64},
	"divide":   {OpDivI32, OpDivI64, OpDivU64, OpDivF32, OpDivF64},
	"modulo":   {OpModI32, OpModI64, OpModU64, opcodeCount, opcodeCount},
}

func (l *IrLowerer) lowerArithmetic(call *Call, sc *scope) error {
	if len(call.Args) != 2 {
		return lowerErr("%s requires exactly 2 arguments", call.Name)
	}
	kind := combineNumericKinds(l.exprKind(call.Args[0], sc), l.exprKind(call.Args[1], sc))
	if kind == KindUnknown {
		return lowerErr("%s: operand kinds do not combine", call.Name)
	}
	if call.Name == "modulo" && kind.IsFloat() {
		return lowerErr("modulo is not defined for floating-point operands")
	}
	if err := l.lowerExpr(call.Args[0], sc); err != nil {
		return err
	}
	if err := l.lowerExpr(call.Args[1], sc); err != nil {
		return err
	}
	l.build.emit(arithOpFamily[call.Name][opcodeIndexForKind(kind)], 0)
	return nil
}

func (l *IrLowerer) lowerNegate(call *Call, sc *scope) error {
	if len(call.Args) != 1 {
		return lowerErr("negate requires exactly 1 argument")
	}
	kind := l.exprKind(call.Args[0], sc)
	if err := l.lowerExpr(call.Args[0], sc); err != nil {
		return err
	}
	switch kind {
	case KindInt32:
		l.build.emit(OpNegI32, 0)
	case KindInt64:
		l.build.emit(OpNegI64, 0)
	case KindFloat32:
		l.build.emit(OpNegF32, 0)
	case KindFloat64:
		l.build.emit(OpNegF64, 0)
	default:
		return lowerErr("negate is not defined for %s", kind)
	}
	return nil
}

// lowerConvert implements the explicit convert(expr) builtin targeted by
// a type-tag transform on the call itself, e.g. convert[f64](i).
func (l *IrLowerer) lowerConvert(call *Call, sc *scope) error {
	if len(call.Args) != 1 {
		return lowerErr("convert requires exactly 1 argument")
	}
	var target ValueKind
	for _, t := range call.Transforms {
		if isTypeTag(t) {
			if k := valueKindFromTypeName(t.Name); k != KindUnknown {
				target = k
			}
		}
	}
	if target == KindUnknown {
		return lowerErr("convert requires a target type-tag transform")
	}
	from := l.exprKind(call.Args[0], sc)
	if err := l.lowerExpr(call.Args[0], sc); err != nil {
		return err
	}
	if from == target {
		return nil
	}
	op, ok := convertOp(from, target)
	if !ok {
		return lowerErr("no conversion from %s to %s", from, target)
	}
	l.build.emit(op, 0)
	return nil
}

func convertOp(from, to ValueKind) (IrOpcode, bool) {
	switch from {
	case KindInt32:
		switch to {
		case KindInt64:
			return OpConvertI32ToI64, true
		case KindUInt64:
			return OpConvertI32ToU64, true
		case KindFloat32:
			return OpConvertI32ToF32, true
		case KindFloat64:
			return OpConvertI32ToF64, true
		}
	case KindInt64:
		switch to {
		case KindInt32:
			return OpConvertI64ToI32, true
		case KindUInt64:
			return OpConvertI64ToU64, true
		case KindFloat32:
			return OpConvertI64ToF32, true
		case KindFloat64:
			return OpConvertI64ToF64, true
		}
	case KindUInt64:
		switch to {
		case KindInt32:
			return OpConvertU64ToI32, true
		case KindInt64:
			return OpConvertU64ToI64, true
		case KindFloat32:
			return OpConvertU64ToF32, true
		case KindFloat64:
			return OpConvertU64ToF64, true
		}
	case KindFloat32:
		switch to {
		case KindInt32:
			return OpConvertF32ToI32, true
		case KindInt64:
			return OpConvertF32ToI64, true
		case KindUInt64:
			return OpConvertF32ToU64, true
		case KindFloat64:
			return OpConvertF32ToF64, true
		}
	case KindFloat64:
		switch to {
		case KindInt32:
			return OpConvertF64ToI32, true
		case KindInt64:
			return OpConvertF64ToI64, true
		case KindUInt64:
			return OpConvertF64ToU64, true
		case KindFloat32:
			return OpConvertF64ToF32, true
		}
	}
	return 0, false
}

// lowerPrint implements print/print_line/print_error/print_line_error,
// specializing to PrintString when the argument is a literal so the
// common case never touches the PrintValue formatting path.
func (l *IrLowerer) lowerPrint(call *Call, sc *scope) error {
	if len(call.Args) != 1 {
		return lowerErr("%s requires exactly 1 argument", call.Name)
	}
	arg := call.Args[0]
	stderr := call.Name == "print_error" || call.Name == "print_line_error"
	newline := call.Name == "print_line" || call.Name == "print_line_error"
	flags := uint64(0)
	if newline {
		flags |= PrintFlagNewline
	}
	if stderr {
		flags |= PrintFlagStderr
	}
	if arg.Kind == ExprStringLiteral {
		idx := l.internString(arg.StringValue)
		l.build.emit(OpPrintString, encodePrintStringImm(uint64(idx), flags))
		return nil
	}
	kind := l.exprKind(arg, sc)
	if err := l.lowerExpr(arg, sc); err != nil {
		return err
	}
	streamBit := uint64(0)
	if stderr {
		streamBit = 1
	}
	l.build.emit(OpPrintValue, encodePrintValueImm(streamBit, newline, kind))
	return nil
}

// lowerPrintValue implements print_value(value, stream, newline) — the
// explicit three-argument form that names its stream and newline policy
// rather than relying on the print/print_line naming convention.
func (l *IrLowerer) lowerPrintValue(call *Call, sc *scope) error {
	if len(call.Args) != 3 {
		return lowerErr("print_value requires exactly 3 arguments")
	}
	kind := l.exprKind(call.Args[0], sc)
	if err := l.lowerExpr(call.Args[0], sc); err != nil {
		return err
	}
	stderr := exprNamesStderr(call.Args[1])
	newline := exprIsTrueLiteral(call.Args[2])
	streamBit := uint64(0)
	if stderr {
		streamBit = 1
	}
	l.build.emit(OpPrintValue, encodePrintValueImm(streamBit, newline, kind))
	return nil
}

func exprNamesStderr(e *Expr) bool {
	if e.Kind == ExprStringLiteral {
		return e.StringValue == "stderr"
	}
	if e.Kind == ExprName {
		return e.Name == "stderr"
	}
	return false
}

func exprIsTrueLiteral(e *Expr) bool {
	return e.Kind == ExprBoolLiteral && e.BoolValue
}

func (l *IrLowerer) lowerPrintStringBuiltin(call *Call, sc *scope) error {
	if len(call.Args) != 1 || call.Args[0].Kind != ExprStringLiteral {
		return lowerErr("print_string requires a single string literal argument")
	}
	idx := l.internString(call.Args[0].StringValue)
	l.build.emit(OpPrintString, encodePrintStringImm(uint64(idx), 0))
	return nil
}

func pushOpFor(kind ValueKind) IrOpcode {
	switch kind {
	case KindInt64, KindUInt64:
		return OpPushI64
	case KindFloat32:
		return OpPushF32
	case KindFloat64:
		return OpPushF64
	default:
		return OpPushI32
	}
}

func literalOneFor(kind ValueKind) uint64 {
	switch kind {
	case KindFloat32:
		return uint64(math.Float32bits(1))
	case KindFloat64:
		return math.Float64bits(1)
	default:
		return 1
	}
}

func arithOpsFor(kind ValueKind) (add, sub IrOpcode) {
	switch kind {
	case KindInt64:
		return OpAddI64, OpSubI64
	case KindUInt64:
		return OpAddU64, OpSubU64
	case KindFloat32:
		return OpAddF32, OpSubF32
	case KindFloat64:
		return OpAddF64, OpSubF64
	default:
		return OpAddI32, OpSubI32
	}
}
