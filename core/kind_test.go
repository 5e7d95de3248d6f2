package core

import "testing"

func TestCombineNumericKinds(t *testing.T) {
	cases := []struct {
		left, right, want ValueKind
	}{
		{KindInt32, KindInt32, KindInt32},
		{KindInt64, KindInt64, KindInt64},
		{KindInt32, KindInt64, KindInt64},
		{KindUInt64, KindUInt64, KindUInt64},
		{KindUInt64, KindInt32, KindUnknown},
		{KindFloat32, KindFloat32, KindFloat32},
		{KindFloat64, KindFloat64, KindFloat64},
		{KindFloat32, KindFloat64, KindUnknown},
		{KindBool, KindInt32, KindUnknown},
		{KindString, KindString, KindUnknown},
		{KindUnknown, KindInt32, KindUnknown},
	}
	for _, c := range cases {
		got := combineNumericKinds(c.left, c.right)
		if got != c.want {
			t.Errorf("combineNumericKinds(%s, %s) = %s, want %s", c.left, c.right, got, c.want)
		}
	}
}

func TestCombineReturnKinds(t *testing.T) {
	if got := combineReturnKinds(KindUnknown, KindInt32); got != KindInt32 {
		t.Errorf("combineReturnKinds(Unknown, Int32) = %s, want Int32", got)
	}
	if got := combineReturnKinds(KindInt32, KindInt32); got != KindInt32 {
		t.Errorf("combineReturnKinds(Int32, Int32) = %s, want Int32", got)
	}
	if got := combineReturnKinds(KindVoid, KindInt32); got != KindUnknown {
		t.Errorf("combineReturnKinds(Void, Int32) = %s, want Unknown", got)
	}
	if got := combineReturnKinds(KindVoid, KindVoid); got != KindVoid {
		t.Errorf("combineReturnKinds(Void, Void) = %s, want Void", got)
	}
	if got := combineReturnKinds(KindFloat32, KindFloat64); got != KindFloat64 {
		t.Errorf("combineReturnKinds(Float32, Float64) = %s, want Float64", got)
	}
	if got := combineReturnKinds(KindFloat64, KindFloat32); got != KindFloat64 {
		t.Errorf("combineReturnKinds(Float64, Float32) = %s, want Float64", got)
	}
}

func TestValueKindFromTypeName(t *testing.T) {
	cases := map[string]ValueKind{
		"int": KindInt32, "i32": KindInt32, "i64": KindInt64, "u64": KindUInt64,
		"float": KindFloat32, "f32": KindFloat32, "f64": KindFloat64,
		"bool": KindBool, "string": KindString, "void": KindVoid,
		"nonsense": KindUnknown,
	}
	for name, want := range cases {
		if got := valueKindFromTypeName(name); got != want {
			t.Errorf("valueKindFromTypeName(%q) = %s, want %s", name, got, want)
		}
	}
}
