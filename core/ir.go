package core

// IrOpcode is the closed PSIR opcode enumeration (§3).
type IrOpcode uint8

const (
	OpNop IrOpcode = iota

	// Stack ops.
	OpPushI32
	OpPushI64
	OpPushF32
	OpPushF64
	OpPop
	OpDup

	// Arithmetic, per width/signedness.
	OpAddI32
	OpAddI64
	OpAddU64
	OpAddF32
	OpAddF64
	OpSubI32
	OpSubI64
	OpSubU64
	OpSubF32
	OpSubF64
	OpMulI32
	OpMulI64
	OpMulU64
	OpMulF32
	OpMulF64
	OpDivI32
	OpDivI64
	OpDivU64
	OpDivF32
	OpDivF64
	OpModI32
	OpModI64
	OpModU64
	OpNegI32
	OpNegI64
	OpNegF32
	OpNegF64

	// Comparisons, per width/signedness.
	OpCmpEqI32
	OpCmpEqI64
	OpCmpEqU64
	OpCmpEqF32
	OpCmpEqF64
	OpCmpNeI32
	OpCmpNeI64
	OpCmpNeU64
	OpCmpNeF32
	OpCmpNeF64
	OpCmpLtI32
	OpCmpLtI64
	OpCmpLtU64
	OpCmpLtF32
	OpCmpLtF64
	OpCmpLeI32
	OpCmpLeI64
	OpCmpLeU64
	OpCmpLeF32
	OpCmpLeF64
	OpCmpGtI32
	OpCmpGtI64
	OpCmpGtU64
	OpCmpGtF32
	OpCmpGtF64
	OpCmpGeI32
	OpCmpGeI64
	OpCmpGeU64
	OpCmpGeF32
	OpCmpGeF64

	// Conversions.
	OpConvertI32ToI64
	OpConvertI32ToU64
	OpConvertI32ToF32
	OpConvertI32ToF64
	OpConvertI64ToI32
	OpConvertI64ToU64
	OpConvertI64ToF32
	OpConvertI64ToF64
	OpConvertU64ToI32
	OpConvertU64ToI64
	OpConvertU64ToF32
	OpConvertU64ToF64
	OpConvertF32ToI32
	OpConvertF32ToI64
	OpConvertF32ToU64
	OpConvertF32ToF64
	OpConvertF64ToI32
	OpConvertF64ToI64
	OpConvertF64ToU64
	OpConvertF64ToF32

	// Locals.
	OpLoadLocal
	OpStoreLocal
	OpAddressOfLocal

	// Memory.
	OpLoadIndirect
	OpStoreIndirect

	// Control flow.
	OpJump
	OpJumpIfZero
	OpJumpIfNotZero

	// Returns.
	OpReturnI32
	OpReturnI64
	OpReturnU64
	OpReturnF32
	OpReturnF64
	OpReturnBool
	OpReturnVoid

	// I/O helpers.
	OpPrintString
	OpPrintValue

	// Runtime guard (§4.3, §7): prints the string-table message named by
	// Imm to stderr and halts with RuntimeExitCode. The lowerer emits it
	// for the loop-count and pow-exponent guards; the collection opcodes
	// raise their missing-key/out-of-range diagnostics inside the VM
	// instead.
	OpGuardFail

	// Heap collections (§4.2 supplemented array/vector/map support). A
	// collection is a VM-side heap handle (an opaque uint64) pushed by
	// the New ops and threaded through the others; ElementKind is baked
	// into the immediate the way PrintValue bakes in its ValueKind,
	// since the stack itself is untyped.
	OpVectorNew    // Imm: element ValueKind. Pushes a new empty vector handle.
	OpVectorPush   // Pops value, handle. Appends value.
	OpVectorPop    // Pops handle. Pushes popped value; guards on empty.
	OpVectorAt     // Pops index, handle. Pushes element; guards out of range.
	OpVectorSet    // Pops value, index, handle. Guards out of range.
	OpVectorCount  // Pops handle. Pushes element count as Int64.
	OpVectorReserve // Pops capacity, handle. Guards negative capacity.
	OpVectorClear  // Pops handle. Empties it.
	OpVectorRemoveAt   // Pops index, handle. Guards out of range.
	OpVectorRemoveSwap // Pops index, handle. Guards out of range.

	OpArrayNew   // Imm: element ValueKind. Pops size. Pushes a new zero-filled array handle; guards negative size.
	OpArrayAt    // Pops index, handle. Pushes element; guards out of range.
	OpArraySet   // Pops value, index, handle. Guards out of range.
	OpArrayCount // Pops handle. Pushes element count as Int64.

	OpMapNew // Imm: low byte key ValueKind, next byte value ValueKind. Pushes a new empty map handle.
	OpMapSet // Pops value, key, handle. Inserts/overwrites.
	OpMapGet // Pops key, handle. Pushes value; guards missing key.
	OpMapHas // Pops key, handle. Pushes bool.

	// Transcendental math (§4.2's math builtin family), always operating
	// in Float64 bit-pattern space regardless of the operands' original
	// kind; the lowerer converts at the edges. Imm selects the MathFn.
	OpMathUnary   // Pops a. Pushes fn(a).
	OpMathBinary  // Pops b, a. Pushes fn(a, b).
	OpMathTernary // Pops c, b, a. Pushes fn(a, b, c).
	OpIsNan       // Pops a (f64 bits). Pushes bool.
	OpIsInf       // Pops a (f64 bits). Pushes bool.
	OpIsFinite    // Pops a (f64 bits). Pushes bool.

	opcodeCount
)

// MathFn selects the function OpMathUnary/OpMathBinary/OpMathTernary
// apply, packed into the low byte of their Imm.
type MathFn uint8

const (
	MathSqrt MathFn = iota
	MathCbrt
	MathExp
	MathExp2
	MathLog
	MathLog2
	MathLog10
	MathFloor
	MathCeil
	MathRound
	MathTrunc
	MathFract
	MathSin
	MathCos
	MathTan
	MathAsin
	MathAcos
	MathAtan
	MathSinh
	MathCosh
	MathTanh
	MathAsinh
	MathAcosh
	MathAtanh
	MathAbs
	MathSign
	MathRadians
	MathDegrees
	MathSaturate

	MathPow
	MathAtan2
	MathHypot
	MathCopysign
	MathMin
	MathMax

	MathClamp
	MathLerp
	MathFma
)

var opcodeNames = map[IrOpcode]string{
	OpNop: "Nop", OpPushI32: "PushI32", OpPushI64: "PushI64", OpPushF32: "PushF32", OpPushF64: "PushF64",
	OpPop: "Pop", OpDup: "Dup",
	OpAddI32: "AddI32", OpAddI64: "AddI64", OpAddU64: "AddU64", OpAddF32: "AddF32", OpAddF64: "AddF64",
	OpSubI32: "SubI32", OpSubI64: "SubI64", OpSubU64: "SubU64", OpSubF32: "SubF32", OpSubF64: "SubF64",
	OpMulI32: "MulI32", OpMulI64: "MulI64", OpMulU64: "MulU64", OpMulF32: "MulF32", OpMulF64: "MulF64",
	OpDivI32: "DivI32", OpDivI64: "DivI64", OpDivU64: "DivU64", OpDivF32: "DivF32", OpDivF64: "DivF64",
	OpModI32: "ModI32", OpModI64: "ModI64", OpModU64: "ModU64",
	OpNegI32: "NegI32", OpNegI64: "NegI64", OpNegF32: "NegF32", OpNegF64: "NegF64",
	OpCmpEqI32: "CmpEqI32", OpCmpEqI64: "CmpEqI64", OpCmpEqU64: "CmpEqU64", OpCmpEqF32: "CmpEqF32", OpCmpEqF64: "CmpEqF64",
	OpCmpNeI32: "CmpNeI32", OpCmpNeI64: "CmpNeI64", OpCmpNeU64: "CmpNeU64", OpCmpNeF32: "CmpNeF32", OpCmpNeF64: "CmpNeF64",
	OpCmpLtI32: "CmpLtI32", OpCmpLtI64: "CmpLtI64", OpCmpLtU64: "CmpLtU64", OpCmpLtF32: "CmpLtF32", OpCmpLtF64: "CmpLtF64",
	OpCmpLeI32: "CmpLeI32", OpCmpLeI64: "CmpLeI64", OpCmpLeU64: "CmpLeU64", OpCmpLeF32: "CmpLeF32", OpCmpLeF64: "CmpLeF64",
	OpCmpGtI32: "CmpGtI32", OpCmpGtI64: "CmpGtI64", OpCmpGtU64: "CmpGtU64", OpCmpGtF32: "CmpGtF32", OpCmpGtF64: "CmpGtF64",
	OpCmpGeI32: "CmpGeI32", OpCmpGeI64: "CmpGeI64", OpCmpGeU64: "CmpGeU64", OpCmpGeF32: "CmpGeF32", OpCmpGeF64: "CmpGeF64",
	OpConvertI32ToI64: "ConvertI32ToI64", OpConvertI32ToU64: "ConvertI32ToU64", OpConvertI32ToF32: "ConvertI32ToF32", OpConvertI32ToF64: "ConvertI32ToF64",
	OpConvertI64ToI32: "ConvertI64ToI32", OpConvertI64ToU64: "ConvertI64ToU64", OpConvertI64ToF32: "ConvertI64ToF32", OpConvertI64ToF64: "ConvertI64ToF64",
	OpConvertU64ToI32: "ConvertU64ToI32", OpConvertU64ToI64: "ConvertU64ToI64", OpConvertU64ToF32: "ConvertU64ToF32", OpConvertU64ToF64: "ConvertU64ToF64",
	OpConvertF32ToI32: "ConvertF32ToI32", OpConvertF32ToI64: "ConvertF32ToI64", OpConvertF32ToU64: "ConvertF32ToU64", OpConvertF32ToF64: "ConvertF32ToF64",
	OpConvertF64ToI32: "ConvertF64ToI32", OpConvertF64ToI64: "ConvertF64ToI64", OpConvertF64ToU64: "ConvertF64ToU64", OpConvertF64ToF32: "ConvertF64ToF32",
	OpLoadLocal: "LoadLocal", OpStoreLocal: "StoreLocal", OpAddressOfLocal: "AddressOfLocal",
	OpLoadIndirect: "LoadIndirect", OpStoreIndirect: "StoreIndirect",
	OpJump: "Jump", OpJumpIfZero: "JumpIfZero", OpJumpIfNotZero: "JumpIfNotZero",
	OpReturnI32: "ReturnI32", OpReturnI64: "ReturnI64", OpReturnU64: "ReturnU64", OpReturnF32: "ReturnF32", OpReturnF64: "ReturnF64", OpReturnBool: "ReturnBool", OpReturnVoid: "ReturnVoid",
	OpPrintString: "PrintString", OpPrintValue: "PrintValue",
	OpGuardFail: "GuardFail",
	OpVectorNew: "VectorNew", OpVectorPush: "VectorPush", OpVectorPop: "VectorPop",
	OpVectorAt: "VectorAt", OpVectorSet: "VectorSet", OpVectorCount: "VectorCount",
	OpVectorReserve: "VectorReserve", OpVectorClear: "VectorClear",
	OpVectorRemoveAt: "VectorRemoveAt", OpVectorRemoveSwap: "VectorRemoveSwap",
	OpArrayNew: "ArrayNew", OpArrayAt: "ArrayAt", OpArraySet: "ArraySet", OpArrayCount: "ArrayCount",
	OpMapNew: "MapNew", OpMapSet: "MapSet", OpMapGet: "MapGet", OpMapHas: "MapHas",
	OpMathUnary: "MathUnary", OpMathBinary: "MathBinary", OpMathTernary: "MathTernary",
	OpIsNan: "IsNan", OpIsInf: "IsInf", OpIsFinite: "IsFinite",
}

func (op IrOpcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "Unknown"
}

func (op IrOpcode) valid() bool { return op < opcodeCount }

// IrInstruction is a single PSIR instruction: an opcode plus its 64-bit
// immediate (§3).
type IrInstruction struct {
	Op  IrOpcode
	Imm uint64
}

// IrFunction is a linear list of instructions plus the metadata the
// container format and VM need (§3, §4.4).
type IrFunction struct {
	Name         string
	LocalCount   int
	ReturnKind   ReturnKind
	Instructions []IrInstruction
}

// IrModule is the PSIR module produced by the lowerer (§3).
type IrModule struct {
	Functions   []*IrFunction
	StringTable []string
}

// internString appends text to the module's string table if not already
// present, and returns its index — the module-level counterpart of the
// lowerer's per-function internString helper in the original source.
func (m *IrModule) internString(text string) int {
	for i, s := range m.StringTable {
		if s == text {
			return i
		}
	}
	m.StringTable = append(m.StringTable, text)
	return len(m.StringTable) - 1
}

// PrintFlags are the bit flags encoded into PrintString/PrintValue
// immediates (§4.3).
const (
	PrintFlagNewline = 1 << 0
	PrintFlagStderr  = 1 << 1
)

// encodePrintStringImm packs a string-table index and flags into the
// single 64-bit immediate PrintString expects: low 32 bits the index,
// next 8 bits the flags.
func encodePrintStringImm(index uint64, flags uint64) uint64 {
	return (index & 0xFFFFFFFF) | ((flags & 0xFF) << 32)
}

func decodePrintStringImm(imm uint64) (index uint32, flags uint8) {
	return uint32(imm & 0xFFFFFFFF), uint8((imm >> 32) & 0xFF)
}

// encodePrintValueImm packs the stream selector (bit 0: 0=stdout,
// 1=stderr), newline flag (bit 1), and the value's ValueKind (bits 8-15,
// needed so the VM can format the popped 64-bit slot correctly) for
// PrintValue.
func encodePrintValueImm(stream uint64, newline bool, kind ValueKind) uint64 {
	imm := stream & 0x1
	if newline {
		imm |= 0x2
	}
	imm |= uint64(kind) << 8
	return imm
}

func decodePrintValueImm(imm uint64) (stderr bool, newline bool, kind ValueKind) {
	return imm&0x1 != 0, imm&0x2 != 0, ValueKind((imm >> 8) & 0xFF)
}

// encodeMapNewImm packs a map's key and value ValueKinds into MapNew's
// immediate: low byte the key kind, next byte the value kind.
func encodeMapNewImm(keyKind, valueKind ValueKind) uint64 {
	return uint64(keyKind) | uint64(valueKind)<<8
}

func decodeMapNewImm(imm uint64) (keyKind, valueKind ValueKind) {
	return ValueKind(imm & 0xFF), ValueKind((imm >> 8) & 0xFF)
}
