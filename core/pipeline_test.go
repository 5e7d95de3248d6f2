package core

import (
	"context"
	"testing"

	"golang.org/x/sync/errgroup"
)

// compileAndRun runs the full Semantic Analyzer -> IR Lowerer -> VM
// pipeline for a hand-built Program, the shape an external parser would
// hand this package (ast.go: "consumed not produced here").
func compileAndRun(t *testing.T, program *Program, entryPath string) uint64 {
	t.Helper()
	analyzer := NewSemanticAnalyzer(program, AnalyzerOptions{})
	if err := analyzer.Validate(entryPath); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	lowerer := NewIrLowerer(analyzer.Tables(), LowererOptions{})
	module, err := lowerer.Lower(program, entryPath)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(module.Functions) != 1 {
		t.Fatalf("inlining totality: got %d functions, want 1", len(module.Functions))
	}
	vm := NewVm(VmOptions{})
	var result uint64
	if err := vm.Execute(module, &result); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return result
}

// Scenario 1 (§8.1), driven through the full pipeline rather than a
// hand-assembled IrModule.
func TestPipelineAddTwoInts(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath:   "/main",
			Transforms: []*Transform{returnKindTransform("int")},
			Body:       []*Expr{returnStmt(call("plus", i32Lit(1), i32Lit(2)))},
		}},
	}
	if got := compileAndRun(t, program, "/main"); got != 3 {
		t.Fatalf("result = %d, want 3", got)
	}
}

// Scenario 5 (§8.5): short-circuit and. witness is assigned only inside
// and(equal(value, 0), assign(witness, true)); with value=1 the second
// operand never runs, so the result is 0.
func TestPipelineShortCircuitAnd(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath:   "/main",
			Transforms: []*Transform{returnKindTransform("int")},
			Body: []*Expr{
				binding("value", "i32", i32Lit(1)),
				binding("witness", "i32", i32Lit(0)),
				call("and",
					call("equal", nameExpr("value"), i32Lit(0)),
					call("assign", nameExpr("witness"), i32Lit(1)),
				),
				returnStmt(nameExpr("witness")),
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

	fn := module.Functions[0]
	var hasJumpIfZero, hasJump bool
	for _, instr := range fn.Instructions {
		if instr.Op == OpJumpIfZero {
			hasJumpIfZero = true
		}
		if instr.Op == OpJump {
			hasJump = true
		}
	}
	if !hasJumpIfZero || !hasJump {
		t.Fatalf("expected both JumpIfZero and Jump in the short-circuit lowering, got %+v", fn.Instructions)
	}

	vm := NewVm(VmOptions{})
	var result uint64
	if err := vm.Execute(module, &result); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result != 0 {
		t.Fatalf("witness was assigned despite short-circuiting: result = %d, want 0", result)
	}
}

func TestPipelineIfExpression(t *testing.T) {
	ifExpr := &Expr{
		Kind:        ExprCall,
		Name:        "if",
		Args:        []*Expr{call("greater_than", nameExpr("x"), i32Lit(0))},
		HasBodyArgs: true,
		BodyArgs: []*Expr{
			blockEnvelope("block", call("plus", i32Lit(1), i32Lit(0))),
			blockEnvelope("block", call("minus", i32Lit(0), i32Lit(1))),
		},
	}
	program := &Program{
		Definitions: []*Definition{{
			FullPath:   "/main",
			Transforms: []*Transform{returnKindTransform("int")},
			Body: []*Expr{
				binding("x", "i32", i32Lit(5)),
				returnStmt(ifExpr),
			},
		}},
	}
	if got := compileAndRun(t, program, "/main"); int32(got) != 1 {
		t.Fatalf("result = %d, want 1", got)
	}
}

// Name resolution determinism (§8): a wildcard import adds only
// immediate children, and only when no top-level leaf already shadows
// them.
func TestNameResolutionWildcardImportDoesNotShadow(t *testing.T) {
	program := &Program{
		Imports: []string{"/math/*"},
		Definitions: []*Definition{
			{FullPath: "/math/min", Transforms: []*Transform{returnKindTransform("int")},
				Body: []*Expr{returnStmt(i32Lit(1))}},
			{FullPath: "/math/helpers/deep", Transforms: []*Transform{returnKindTransform("int")},
				Body: []*Expr{returnStmt(i32Lit(2))}},
			{FullPath: "/min", Transforms: []*Transform{returnKindTransform("int")},
				Body: []*Expr{returnStmt(i32Lit(99))}},
		},
	}
	tbl := buildTables(program)
	if path, ok := tbl.ResolvePath("min", ""); !ok || path != "/min" {
		t.Fatalf("ResolvePath(min) = %q, %v; want /min shadowing the wildcard import", path, ok)
	}
	if _, shadowed := tbl.importAliases["min"]; shadowed {
		t.Fatalf("wildcard import alias for 'min' should have been shadowed by the top-level /min")
	}
	if _, deep := tbl.importAliases["deep"]; deep {
		t.Fatalf("wildcard import must not reach into /math/helpers, a non-immediate child")
	}
}

// Capability closure (§8): a builtin requiring a capability fails
// validation unless the enclosing definition declares it (or the driver
// grants it by default).
func TestCapabilityClosureRejectsUndeclaredCapability(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath: "/main",
			Body:     []*Expr{call("print_line", &Expr{Kind: ExprStringLiteral, StringValue: "hi"})},
		}},
	}
	analyzer := NewSemanticAnalyzer(program, AnalyzerOptions{})
	if err := analyzer.Validate("/main"); err == nil {
		t.Fatal("expected a capability error for an undeclared io_out effect")
	}
}

func TestCapabilityClosureAllowsDeclaredCapability(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath:   "/main",
			Transforms: []*Transform{{Name: "effects", Args: []*Expr{nameExpr("io_out")}}},
			Body:       []*Expr{call("print_line", &Expr{Kind: ExprStringLiteral, StringValue: "hi"})},
		}},
	}
	analyzer := NewSemanticAnalyzer(program, AnalyzerOptions{})
	if err := analyzer.Validate("/main"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestCapabilityClosureDefaultEffectsGrantsEverything(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath: "/main",
			Body:     []*Expr{call("print_line", &Expr{Kind: ExprStringLiteral, StringValue: "hi"})},
		}},
	}
	analyzer := NewSemanticAnalyzer(program, AnalyzerOptions{DefaultEffects: true})
	if err := analyzer.Validate("/main"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

// TestPipelineConcurrentCompiles drives several independent
// validate+lower+execute pipelines concurrently via errgroup, exercising
// the property that nothing in the core's per-call state is shared
// across goroutines as long as each goroutine builds its own
// SemanticAnalyzer/IrLowerer/Vm (§5: each subsystem value is
// single-threaded, not the package as a whole).
func TestPipelineConcurrentCompiles(t *testing.T) {
	const n = 8
	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			program := &Program{
				Definitions: []*Definition{{
					FullPath:   "/main",
					Transforms: []*Transform{returnKindTransform("int")},
					Body:       []*Expr{returnStmt(call("plus", i32Lit(int64(i)), i32Lit(1)))},
				}},
			}
			got := compileAndRun(t, program, "/main")
			if got != uint64(i+1) {
				t.Errorf("goroutine %d: result = %d, want %d", i, got, i+1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("errgroup.Wait: %v", err)
	}
}
