package core

import "math"

// stepMath executes the OpMathUnary/Binary/Ternary and OpIsNan/Inf/Finite
// family — split out of step's main switch since the per-function
// dispatch is sizeable on its own (§4.2's math builtin family).
func (vm *Vm) stepMath(act *activation, instr IrInstruction) (bool, uint64, error) {
	switch instr.Op {
	case OpMathUnary:
		a, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(math.Float64bits(applyMathUnary(MathFn(instr.Imm), math.Float64frombits(a))))
	case OpMathBinary:
		b, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		a, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(math.Float64bits(applyMathBinary(MathFn(instr.Imm), math.Float64frombits(a), math.Float64frombits(b))))
	case OpMathTernary:
		c, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		b, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		a, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(math.Float64bits(applyMathTernary(MathFn(instr.Imm), math.Float64frombits(a), math.Float64frombits(b), math.Float64frombits(c))))
	case OpIsNan:
		a, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(boolBits(math.IsNaN(math.Float64frombits(a))))
	case OpIsInf:
		a, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(boolBits(math.IsInf(math.Float64frombits(a), 0)))
	case OpIsFinite:
		a, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		v := math.Float64frombits(a)
		act.push(boolBits(!math.IsNaN(v) && !math.IsInf(v, 0)))
	}
	return false, 0, nil
}

func applyMathUnary(fn MathFn, a float64) float64 {
	switch fn {
	case MathSqrt:
		return math.Sqrt(a)
	case MathCbrt:
		return math.Cbrt(a)
	case MathExp:
		return math.Exp(a)
	case MathExp2:
		return math.Exp2(a)
	case MathLog:
		return math.Log(a)
	case MathLog2:
		return math.Log2(a)
	case MathLog10:
		return math.Log10(a)
	case MathFloor:
		return math.Floor(a)
	case MathCeil:
		return math.Ceil(a)
	case MathRound:
		return math.Round(a)
	case MathTrunc:
		return math.Trunc(a)
	case MathFract:
		return a - math.Floor(a)
	case MathSin:
		return math.Sin(a)
	case MathCos:
		return math.Cos(a)
	case MathTan:
		return math.Tan(a)
	case MathAsin:
		return math.Asin(a)
	case MathAcos:
		return math.Acos(a)
	case MathAtan:
		return math.Atan(a)
	case MathSinh:
		return math.Sinh(a)
	case MathCosh:
		return math.Cosh(a)
	case MathTanh:
		return math.Tanh(a)
	case MathAsinh:
		return math.Asinh(a)
	case MathAcosh:
		return math.Acosh(a)
	case MathAtanh:
		return math.Atanh(a)
	case MathAbs:
		return math.Abs(a)
	case MathSign:
		switch {
		case a > 0:
			return 1
		case a < 0:
			return -1
		default:
			return 0
		}
	case MathRadians:
		return a * math.Pi / 180
	case MathDegrees:
		return a * 180 / math.Pi
	case MathSaturate:
		return math.Min(1, math.Max(0, a))
	}
	return a
}

func applyMathBinary(fn MathFn, a, b float64) float64 {
	switch fn {
	case MathPow:
		return math.Pow(a, b)
	case MathAtan2:
		return math.Atan2(a, b)
	case MathHypot:
		return math.Hypot(a, b)
	case MathCopysign:
		return math.Copysign(a, b)
	case MathMin:
		return math.Min(a, b)
	case MathMax:
		return math.Max(a, b)
	}
	return a
}

func applyMathTernary(fn MathFn, a, b, c float64) float64 {
	switch fn {
	case MathClamp:
		return math.Min(c, math.Max(b, a))
	case MathLerp:
		return a + (b-a)*c
	case MathFma:
		return math.FMA(a, b, c)
	}
	return a
}
