package core

import (
	"bytes"
	"os"
	"testing"

	"golang.org/x/tools/txtar"
)

// goldenStdout drives the full pipeline for program/entryPath and
// compares captured stdout against the named section of
// testdata/scenarios.txtar. Program/Expr trees are still hand-built in
// Go (ast.go: produced by an external parser, never parsed from text by
// this package) — the archive only carries each scenario's expected
// output, the same role testdata/*.txtar golden files play in
// txtar-based test suites elsewhere in the ecosystem.
func goldenStdout(t *testing.T, name string, program *Program, entryPath string) {
	t.Helper()
	data, err := os.ReadFile("testdata/scenarios.txtar")
	if err != nil {
		t.Fatalf("reading testdata/scenarios.txtar: %v", err)
	}
	archive := txtar.Parse(data)
	var want []byte
	found := false
	for _, f := range archive.Files {
		if f.Name == name {
			want = f.Data
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("no %q section in testdata/scenarios.txtar", name)
	}

	analyzer := NewSemanticAnalyzer(program, AnalyzerOptions{DefaultEffects: true})
	if err := analyzer.Validate(entryPath); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	lowerer := NewIrLowerer(analyzer.Tables(), LowererOptions{})
	module, err := lowerer.Lower(program, entryPath)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	var stdout bytes.Buffer
	vm := NewVm(VmOptions{Stdout: &stdout})
	var result uint64
	if err := vm.Execute(module, &result); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := stdout.String(); got != string(want) {
		t.Fatalf("stdout mismatch for %q:\ngot:  %q\nwant: %q", name, got, want)
	}
}

func TestGoldenHelloStdout(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath: "/main",
			Body:     []*Expr{call("print_line", &Expr{Kind: ExprStringLiteral, StringValue: "hello, psir"})},
		}},
	}
	goldenStdout(t, "hello/stdout", program, "/main")
}

// TestGoldenCountdownStdout exercises loop[count(n)] alongside a
// separately mutable witness local counting down, printed each
// iteration (§4.1's loop family as a pure counted-repetition construct
// with no loop variable of its own).
func TestGoldenCountdownStdout(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{{
			FullPath: "/main",
			Body: []*Expr{
				binding("witness", "i32", i32Lit(2)),
				blockEnvelopeT("loop", []*Transform{{Name: "count", Args: []*Expr{i32Lit(3)}}},
					call("print_line", nameExpr("witness")),
					&Expr{Kind: ExprCall, Name: "decrement", Args: []*Expr{nameExpr("witness")}},
				),
			},
		}},
	}
	goldenStdout(t, "countdown/stdout", program, "/main")
}
