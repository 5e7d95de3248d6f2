package core

import "testing"

// TestPipelineStructConstructorMethodCall drives scenario §8.6 end to
// end through the real analyzer and lowerer: a struct constructor call
// immediately followed by a dotted method call (Foo().ping()) must
// resolve the method against the constructed instance's namespace
// rather than failing as an unknown method call.
func TestPipelineStructConstructorMethodCall(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{
			structDef("/Foo", binding("value", "i32", i32Lit(1))),
			methodDef("/Foo/ping", "Foo", "i32", returnStmt(i32Lit(9))),
			{
				FullPath:   "/main",
				Transforms: []*Transform{returnKindTransform("i32")},
				Body: []*Expr{
					returnStmt(methodCall("ping", call("Foo"))),
				},
			},
		},
	}
	if got := compileAndRun(t, program, "/main"); int32(got) != 9 {
		t.Fatalf("Foo().ping() = %d, want 9", int32(got))
	}
}

// TestPipelineStructNamedInstanceMethodCall covers the name-bound
// receiver path (f := Foo(); f.ping()), which resolves the receiver's
// struct namespace from its declared binding instead of from a fresh
// constructor call at the call site.
func TestPipelineStructNamedInstanceMethodCall(t *testing.T) {
	program := &Program{
		Definitions: []*Definition{
			structDef("/Foo", binding("value", "i32", i32Lit(1))),
			methodDef("/Foo/ping", "Foo", "i32", returnStmt(i32Lit(9))),
			{
				FullPath:   "/main",
				Transforms: []*Transform{returnKindTransform("i32")},
				Body: []*Expr{
					binding("f", "Foo", call("Foo")),
					returnStmt(methodCall("ping", nameExpr("f"))),
				},
			},
		},
	}
	if got := compileAndRun(t, program, "/main"); int32(got) != 9 {
		t.Fatalf("f.ping() = %d, want 9", int32(got))
	}
}
