package core

// mathUnaryFns, mathBinaryFns and mathTernaryFns map a builtin name to
// the MathFn its family expands to (§4.2's math builtin family, executed
// by the VM's OpMathUnary/Binary/Ternary in Float64 space regardless of
// operand kind).
var mathUnaryFns = map[string]MathFn{
	"sqrt": MathSqrt, "cbrt": MathCbrt, "exp": MathExp, "exp2": MathExp2,
	"log": MathLog, "log2": MathLog2, "log10": MathLog10,
	"floor": MathFloor, "ceil": MathCeil, "round": MathRound, "trunc": MathTrunc, "fract": MathFract,
	"sin": MathSin, "cos": MathCos, "tan": MathTan,
	"asin": MathAsin, "acos": MathAcos, "atan": MathAtan,
	"sinh": MathSinh, "cosh": MathCosh, "tanh": MathTanh,
	"asinh": MathAsinh, "acosh": MathAcosh, "atanh": MathAtanh,
	"abs": MathAbs, "sign": MathSign, "radians": MathRadians, "degrees": MathDegrees,
	"saturate": MathSaturate,
}

var mathBinaryFns = map[string]MathFn{
	"atan2": MathAtan2, "hypot": MathHypot, "copysign": MathCopysign,
	"min": MathMin, "max": MathMax,
}

var mathTernaryFns = map[string]MathFn{
	"clamp": MathClamp, "lerp": MathLerp, "fma": MathFma,
}

func isMathBuiltin(name string) bool {
	if name == "pow" || name == "is_nan" || name == "is_inf" || name == "is_finite" {
		return true
	}
	if _, ok := mathUnaryFns[name]; ok {
		return true
	}
	if _, ok := mathBinaryFns[name]; ok {
		return true
	}
	_, ok := mathTernaryFns[name]
	return ok
}

func (l *IrLowerer) lowerMathBuiltin(call *Call, sc *scope) error {
	switch call.Name {
	case "pow":
		return l.lowerPow(call, sc)
	case "is_nan", "is_inf", "is_finite":
		return l.lowerMathPredicate(call, sc)
	}
	if fn, ok := mathUnaryFns[call.Name]; ok {
		if len(call.Args) != 1 {
			return lowerErr("%s requires exactly 1 argument", call.Name)
		}
		if err := l.lowerAsFloat64(call.Args[0], sc); err != nil {
			return err
		}
		l.build.emit(OpMathUnary, uint64(fn))
		return nil
	}
	if fn, ok := mathBinaryFns[call.Name]; ok {
		if len(call.Args) != 2 {
			return lowerErr("%s requires exactly 2 arguments", call.Name)
		}
		if err := l.lowerAsFloat64(call.Args[0], sc); err != nil {
			return err
		}
		if err := l.lowerAsFloat64(call.Args[1], sc); err != nil {
			return err
		}
		l.build.emit(OpMathBinary, uint64(fn))
		return nil
	}
	if fn, ok := mathTernaryFns[call.Name]; ok {
		if len(call.Args) != 3 {
			return lowerErr("%s requires exactly 3 arguments", call.Name)
		}
		for _, a := range call.Args {
			if err := l.lowerAsFloat64(a, sc); err != nil {
				return err
			}
		}
		l.build.emit(OpMathTernary, uint64(fn))
		return nil
	}
	return lowerErr("unknown math builtin: %s", call.Name)
}

// lowerAsFloat64 lowers expr and converts its result to Float64 bits,
// the uniform domain the math builtin family computes in.
func (l *IrLowerer) lowerAsFloat64(expr *Expr, sc *scope) error {
	kind := l.exprKind(expr, sc)
	if err := l.lowerExpr(expr, sc); err != nil {
		return err
	}
	if kind == KindFloat64 {
		return nil
	}
	op, ok := convertOp(kind, KindFloat64)
	if !ok {
		return lowerErr("cannot use %s as a math builtin operand", kind)
	}
	l.build.emit(op, 0)
	return nil
}

func (l *IrLowerer) lowerMathPredicate(call *Call, sc *scope) error {
	if len(call.Args) != 1 {
		return lowerErr("%s requires exactly 1 argument", call.Name)
	}
	if err := l.lowerAsFloat64(call.Args[0], sc); err != nil {
		return err
	}
	switch call.Name {
	case "is_nan":
		l.build.emit(OpIsNan, 0)
	case "is_inf":
		l.build.emit(OpIsInf, 0)
	case "is_finite":
		l.build.emit(OpIsFinite, 0)
	}
	return nil
}

// lowerPow implements pow(base, exponent), guarding the documented
// "negative exponent" runtime diagnostic when the exponent is an integer
// kind (a fractional result would otherwise be silently truncated).
func (l *IrLowerer) lowerPow(call *Call, sc *scope) error {
	if len(call.Args) != 2 {
		return lowerErr("pow requires exactly 2 arguments")
	}
	expKind := l.exprKind(call.Args[1], sc)
	if err := l.lowerAsFloat64(call.Args[0], sc); err != nil {
		return err
	}
	if err := l.lowerExpr(call.Args[1], sc); err != nil {
		return err
	}
	if expKind.IsInteger() {
		l.build.emit(OpDup, 0)
		l.build.emit(pushOpFor(expKind), 0)
		family := comparisonOpFamily["less_than"]
		l.build.emit(family[opcodeIndexForKind(expKind)], 0)
		okJump := l.build.emit(OpJumpIfZero, 0)
		msgIdx := l.internString("pow exponent must be non-negative")
		l.build.emit(OpGuardFail, uint64(msgIdx))
		l.build.patch(okJump, l.build.here())
	}
	if expKind != KindFloat64 {
		op, ok := convertOp(expKind, KindFloat64)
		if !ok {
			return lowerErr("pow: cannot use %s as an exponent", expKind)
		}
		l.build.emit(op, 0)
	}
	l.build.emit(OpMathBinary, uint64(MathPow))
	return nil
}
