package core

import (
	"math"
	"testing"
)

// TestPipelineMathSqrt exercises the math builtin family's Float64-space
// computation (lower_builtins_math.go's lowerAsFloat64/OpMathUnary).
func TestPipelineMathSqrt(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath:   "/main",
			Transforms: []*Transform{returnKindTransform("f64")},
			Body:       []*Expr{returnStmt(call("sqrt", f64Lit(16)))},
		}},
	}
	got := compileAndRun(t, program, "/main")
	if v := math.Float64frombits(got); v != 4 {
		t.Fatalf("sqrt(16) = %v, want 4", v)
	}
}

// TestPipelineMathClampTernary exercises the ternary math family.
func TestPipelineMathClampTernary(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath:   "/main",
			Transforms: []*Transform{returnKindTransform("f64")},
			Body:       []*Expr{returnStmt(call("clamp", f64Lit(12), f64Lit(0), f64Lit(10)))},
		}},
	}
	got := compileAndRun(t, program, "/main")
	if v := math.Float64frombits(got); v != 10 {
		t.Fatalf("clamp(12,0,10) = %v, want 10", v)
	}
}

// TestPipelinePowNegativeIntegerExponentGuard covers pow's documented
// "pow exponent must be non-negative" runtime diagnostic when the
// exponent is an integer kind.
func TestPipelinePowNegativeIntegerExponentGuard(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath:   "/main",
			Transforms: []*Transform{returnKindTransform("f64")},
			Body:       []*Expr{returnStmt(call("pow", f64Lit(2), i32Lit(-1)))},
		}},
	}
	analyzer := NewSemanticAnalyzer(program, AnalyzerOptions{})
	if err := analyzer.Validate("/main"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	lowerer := NewIrLowerer(analyzer.Tables(), LowererOptions{})
	module, err := lowerer.Lower(program, "/main")
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	vm := NewVm(VmOptions{})
	var result uint64
	if err := vm.Execute(module, &result); err == nil {
		t.Fatal("expected a guarded exit for a negative integer pow exponent")
	}
}

func TestPipelineIsNanPredicate(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath:   "/main",
			Transforms: []*Transform{returnKindTransform("bool")},
			Body: []*Expr{
				returnStmt(call("is_nan", call("divide", f64Lit(0), f64Lit(0)))),
			},
		}},
	}
	got := compileAndRun(t, program, "/main")
	if got != 1 {
		t.Fatalf("is_nan(0.0/0.0) = %d, want 1 (true)", got)
	}
}
