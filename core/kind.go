package core

// ValueKind is the closed lattice of representable operand/result kinds
// (§3). ReturnKind reuses the same type: every ReturnKind is a ValueKind
// and vice versa, per spec.md's "ReturnKind / ValueKind is a closed set".
type ValueKind int

const (
	KindUnknown ValueKind = iota
	KindVoid
	KindBool
	KindInt32
	KindInt64
	KindUInt64
	KindFloat32
	KindFloat64
	KindString
	KindArray
)

type ReturnKind = ValueKind

func (k ValueKind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt32:
		return "i32"
	case KindInt64:
		return "i64"
	case KindUInt64:
		return "u64"
	case KindFloat32:
		return "f32"
	case KindFloat64:
		return "f64"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// IsInteger reports whether k is one of the signed/unsigned integer kinds.
func (k ValueKind) IsInteger() bool {
	return k == KindInt32 || k == KindInt64 || k == KindUInt64
}

// IsFloat reports whether k is a floating-point kind.
func (k ValueKind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// IsSignedInteger reports whether k is a signed integer kind.
func (k ValueKind) IsSignedInteger() bool {
	return k == KindInt32 || k == KindInt64
}

// combineNumericKinds mirrors the original implementation's
// combineNumericKinds helper (original_source/src/ir_lowerer/
// IrLowererLowerSetupLocals.h): any mixing of signed/unsigned, int/float,
// or differing widths is Unknown (and thus, at the call site, an error).
// Bool only ever combines with itself through equality builtins, never
// through arithmetic — combineNumericKinds treats Bool as Unknown here,
// matching the original's unconditional rejection of Bool operands.
func combineNumericKinds(left, right ValueKind) ValueKind {
	if left == KindUnknown || right == KindUnknown {
		return KindUnknown
	}
	if left == KindString || right == KindString {
		return KindUnknown
	}
	if left == KindBool || right == KindBool {
		return KindUnknown
	}
	switch {
	case left.IsFloat() || right.IsFloat():
		if left == KindFloat32 && right == KindFloat32 {
			return KindFloat32
		}
		if left == KindFloat64 && right == KindFloat64 {
			return KindFloat64
		}
		return KindUnknown
	case left == KindUInt64 || right == KindUInt64:
		if left == KindUInt64 && right == KindUInt64 {
			return KindUInt64
		}
		return KindUnknown
	case left == KindInt64 || right == KindInt64:
		if (left == KindInt64 || left == KindInt32) && (right == KindInt64 || right == KindInt32) {
			return KindInt64
		}
		return KindUnknown
	case left == KindInt32 && right == KindInt32:
		return KindInt32
	default:
		return KindUnknown
	}
}

// combineReturnKinds merges two ReturnKinds observed at different
// `return(expr)` sites of the same definition during inference (§4.1).
// Float64 dominates Float32; UInt64 only merges with UInt64; Int64 merges
// with Int32 into Int64; Void only merges with Void; any other mix is
// Unknown.
func combineReturnKinds(a, b ReturnKind) ReturnKind {
	if a == KindUnknown {
		return b
	}
	if b == KindUnknown {
		return a
	}
	if a == b {
		return a
	}
	if a == KindVoid || b == KindVoid {
		return KindUnknown
	}
	if (a == KindFloat32 && b == KindFloat64) || (a == KindFloat64 && b == KindFloat32) {
		return KindFloat64
	}
	numeric := combineNumericKinds(a, b)
	if numeric != KindUnknown {
		return numeric
	}
	return KindUnknown
}

// valueKindFromTypeName maps a type-tag transform name to a ValueKind,
// mirroring the original's valueKindFromTypeName.
func valueKindFromTypeName(name string) ValueKind {
	switch name {
	case "int", "i32":
		return KindInt32
	case "i64":
		return KindInt64
	case "u64":
		return KindUInt64
	case "float", "f32":
		return KindFloat32
	case "f64":
		return KindFloat64
	case "bool":
		return KindBool
	case "string":
		return KindString
	case "void":
		return KindVoid
	default:
		return KindUnknown
	}
}
