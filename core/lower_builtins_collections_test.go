package core

import (
	"bytes"
	"testing"
)

// TestPipelineVectorPushAt exercises the vector builtin surface end to
// end: a heap-backed vector<i32> local, two pushes, and an indexed read
// (§4.2 supplemented collection support).
func TestPipelineVectorPushAt(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath:   "/main",
			Transforms: []*Transform{returnKindTransform("i32")},
			Body: []*Expr{
				vectorBinding("v", "i32"),
				call("push", nameExpr("v"), i32Lit(10)),
				call("push", nameExpr("v"), i32Lit(20)),
				returnStmt(call("at", nameExpr("v"), i64Lit(1))),
			},
		}},
	}
	if got := compileAndRun(t, program, "/main"); int32(got) != 20 {
		t.Fatalf("at(v,1) = %d, want 20", int32(got))
	}
}

// TestPipelineVectorAssignAtMutatesElement exercises assign(at(...), value)
// against a vector receiver (DESIGN.md's resolution of the map/array/
// vector mutation open question).
func TestPipelineVectorAssignAtMutatesElement(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath:   "/main",
			Transforms: []*Transform{returnKindTransform("i32")},
			Body: []*Expr{
				vectorBinding("v", "i32"),
				call("push", nameExpr("v"), i32Lit(10)),
				call("assign", call("at", nameExpr("v"), i64Lit(0)), i32Lit(99)),
				returnStmt(call("at", nameExpr("v"), i64Lit(0))),
			},
		}},
	}
	if got := compileAndRun(t, program, "/main"); int32(got) != 99 {
		t.Fatalf("after assign(at(v,0),99): at(v,0) = %d, want 99", int32(got))
	}
}

// TestPipelineMapLiteralInitializerIsStored drives scenario §8.4's
// literal against a present key, closing the gap a missing-key lookup
// alone cannot: it would "pass" on an empty map just as readily as on a
// correctly populated one.
func TestPipelineMapLiteralInitializerIsStored(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath:   "/main",
			Transforms: []*Transform{returnKindTransform("i32")},
			Body: []*Expr{
				mapBinding("m", "i32", "i32", []*Expr{i32Lit(1), i32Lit(2)}, []*Expr{i32Lit(10), i32Lit(20)}),
				returnStmt(call("at", nameExpr("m"), i32Lit(2))),
			},
		}},
	}
	if got := compileAndRun(t, program, "/main"); int32(got) != 20 {
		t.Fatalf("at(m,2) = %d, want 20", int32(got))
	}
}

// TestPipelineMapMissingKeyAfterLiteral covers scenario §8.4 itself: the
// same populated map, looked up by an absent key.
func TestPipelineMapMissingKeyAfterLiteral(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath:   "/main",
			Transforms: []*Transform{returnKindTransform("i32")},
			Body: []*Expr{
				mapBinding("m", "i32", "i32", []*Expr{i32Lit(1), i32Lit(2)}, []*Expr{i32Lit(10), i32Lit(20)}),
				returnStmt(call("at", nameExpr("m"), i32Lit(9))),
			},
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
	var stderr bytes.Buffer
	vm := NewVm(VmOptions{Stderr: &stderr})
	var result uint64
	if err := vm.Execute(module, &result); err == nil {
		t.Fatal("expected a guarded exit for a missing map key")
	}
	if stderr.String() != "map key not found\n" {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

// TestPipelineArrayLiteralInitializerIsStored exercises array<T>{e1,e2,...}
// materializing its elements, not treating the element count as a size.
func TestPipelineArrayLiteralInitializerIsStored(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath:   "/main",
			Transforms: []*Transform{returnKindTransform("i32")},
			Body: []*Expr{
				arrayBinding("a", "i32", i32Lit(7), i32Lit(8), i32Lit(9)),
				returnStmt(call("at", nameExpr("a"), i64Lit(2))),
			},
		}},
	}
	if got := compileAndRun(t, program, "/main"); int32(got) != 9 {
		t.Fatalf("at(a,2) = %d, want 9", int32(got))
	}
}

// TestPipelineVectorLiteralInitializerIsStored exercises vector<T>{e1,...}
// materializing its elements via OpVectorPush.
func TestPipelineVectorLiteralInitializerIsStored(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath:   "/main",
			Transforms: []*Transform{returnKindTransform("i64")},
			Body: []*Expr{
				vectorLiteralBinding("v", "i32", i32Lit(1), i32Lit(2), i32Lit(3)),
				returnStmt(call("count", nameExpr("v"))),
			},
		}},
	}
	if got := compileAndRun(t, program, "/main"); got != 3 {
		t.Fatalf("count(v) = %d, want 3", got)
	}
}

func TestPipelineVectorCountAndClear(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath:   "/main",
			Transforms: []*Transform{returnKindTransform("i64")},
			Body: []*Expr{
				vectorBinding("v", "i32"),
				call("push", nameExpr("v"), i32Lit(1)),
				call("push", nameExpr("v"), i32Lit(2)),
				call("clear", nameExpr("v")),
				returnStmt(call("count", nameExpr("v"))),
			},
		}},
	}
	if got := compileAndRun(t, program, "/main"); got != 0 {
		t.Fatalf("count after clear = %d, want 0", got)
	}
}
