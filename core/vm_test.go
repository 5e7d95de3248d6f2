package core

import (
	"bytes"
	"errors"
	"testing"
)

// Scenario 1 (§8.1): add two ints via the VM. The lowered function is
// exactly PushI32 1; PushI32 2; AddI32 0; ReturnI32 0, and the VM result
// is 3.
func TestVmAddTwoInts(t *testing.T) {
	module := &IrModule{
		Functions: []*IrFunction{{
			Name:       "/main",
			ReturnKind: KindInt32,
			Instructions: []IrInstruction{
				{Op: OpPushI32, Imm: 1},
				{Op: OpPushI32, Imm: 2},
				{Op: OpAddI32},
				{Op: OpReturnI32},
			},
		}},
	}

	vm := NewVm(VmOptions{})
	var result uint64
	if err := vm.Execute(module, &result); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result != 3 {
		t.Fatalf("result = %d, want 3", result)
	}
}

// Scenario 2 (§8.2): pointer-plus-byte-stride. Two i32 locals first=4,
// second=9 at slots 0 and 1; dereference(plus(location(first), 16i32))
// must read slot 1's value (element stride is localSlotSize == 16 bytes).
func TestVmPointerPlusByteStride(t *testing.T) {
	module := &IrModule{
		Functions: []*IrFunction{{
			Name:       "/main",
			LocalCount: 2,
			ReturnKind: KindInt32,
			Instructions: []IrInstruction{
				{Op: OpPushI32, Imm: 4},
				{Op: OpStoreLocal, Imm: 0},
				{Op: OpPushI32, Imm: 9},
				{Op: OpStoreLocal, Imm: 1},
				{Op: OpAddressOfLocal, Imm: 0},
				{Op: OpPushI32, Imm: 16},
				{Op: OpAddI64},
				{Op: OpLoadIndirect},
				{Op: OpReturnI32},
			},
		}},
	}

	vm := NewVm(VmOptions{})
	var result uint64
	if err := vm.Execute(module, &result); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result != 9 {
		t.Fatalf("result = %d, want 9", result)
	}
}

// Scenario 3 (§8.3): loop count guard. loop(-2i32){ } prints "loop count
// must be non-negative\n"-shaped diagnostic to stderr and exits 3.
func TestVmLoopCountGuard(t *testing.T) {
	var stderr bytes.Buffer
	module := &IrModule{
		StringTable: []string{"loop count must be non-negative"},
		Functions: []*IrFunction{{
			Name:       "/main",
			LocalCount: 1,
			ReturnKind: KindVoid,
			Instructions: []IrInstruction{
				{Op: OpPushI64, Imm: uint64(int64(-2))},
				{Op: OpStoreLocal, Imm: 0},
				{Op: OpLoadLocal, Imm: 0},
				{Op: OpPushI64, Imm: 0},
				{Op: OpCmpLtI64},
				{Op: OpJumpIfZero, Imm: 7},
				{Op: OpGuardFail, Imm: 0},
				{Op: OpReturnVoid},
			},
		}},
	}

	vm := NewVm(VmOptions{Stderr: &stderr})
	var result uint64
	err := vm.Execute(module, &result)
	var ge *guardedExit
	if !errors.As(err, &ge) {
		t.Fatalf("Execute error = %v, want a *guardedExit", err)
	}
	if ge.code != RuntimeExitCode {
		t.Fatalf("exit code = %d, want %d", ge.code, RuntimeExitCode)
	}
	if stderr.String() != "loop count must be non-negative\n" {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

// Scenario 4 (§8.4): map missing key. m{1i32=10i32, 2i32=20i32}; m[9i32]
// prints "map key not found\n", exits 3.
func TestVmMapMissingKey(t *testing.T) {
	var stderr bytes.Buffer
	module := &IrModule{
		Functions: []*IrFunction{{
			Name:       "/main",
			LocalCount: 1,
			ReturnKind: KindInt32,
			Instructions: []IrInstruction{
				{Op: OpMapNew, Imm: encodeMapNewImm(KindInt32, KindInt32)},
				{Op: OpStoreLocal, Imm: 0},
				{Op: OpLoadLocal, Imm: 0},
				{Op: OpPushI32, Imm: 1},
				{Op: OpPushI32, Imm: 10},
				{Op: OpMapSet},
				{Op: OpLoadLocal, Imm: 0},
				{Op: OpPushI32, Imm: 2},
				{Op: OpPushI32, Imm: 20},
				{Op: OpMapSet},
				{Op: OpLoadLocal, Imm: 0},
				{Op: OpPushI32, Imm: 9},
				{Op: OpMapGet},
				{Op: OpReturnI32},
			},
		}},
	}

	vm := NewVm(VmOptions{Stderr: &stderr})
	var result uint64
	err := vm.Execute(module, &result)
	var ge *guardedExit
	if !errors.As(err, &ge) {
		t.Fatalf("Execute error = %v, want a *guardedExit", err)
	}
	if ge.code != RuntimeExitCode {
		t.Fatalf("exit code = %d, want %d", ge.code, RuntimeExitCode)
	}
	if stderr.String() != "map key not found\n" {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestVmVectorPushCount(t *testing.T) {
	module := &IrModule{
		Functions: []*IrFunction{{
			Name:       "/main",
			LocalCount: 1,
			ReturnKind: KindInt64,
			Instructions: []IrInstruction{
				{Op: OpVectorNew, Imm: uint64(KindInt64)},
				{Op: OpStoreLocal, Imm: 0},
				{Op: OpLoadLocal, Imm: 0},
				{Op: OpPushI64, Imm: 42},
				{Op: OpVectorPush},
				{Op: OpLoadLocal, Imm: 0},
				{Op: OpVectorCount},
				{Op: OpReturnI64},
			},
		}},
	}
	vm := NewVm(VmOptions{})
	var result uint64
	if err := vm.Execute(module, &result); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result != 1 {
		t.Fatalf("count = %d, want 1", result)
	}
}

func TestVmArrayOutOfBoundsGuard(t *testing.T) {
	var stderr bytes.Buffer
	module := &IrModule{
		Functions: []*IrFunction{{
			Name:       "/main",
			LocalCount: 1,
			ReturnKind: KindInt32,
			Instructions: []IrInstruction{
				{Op: OpPushI64, Imm: 2},
				{Op: OpArrayNew, Imm: uint64(KindInt32)},
				{Op: OpStoreLocal, Imm: 0},
				{Op: OpLoadLocal, Imm: 0},
				{Op: OpPushI64, Imm: 5},
				{Op: OpArrayAt},
				{Op: OpReturnI32},
			},
		}},
	}
	vm := NewVm(VmOptions{Stderr: &stderr})
	var result uint64
	err := vm.Execute(module, &result)
	var ge *guardedExit
	if !errors.As(err, &ge) {
		t.Fatalf("Execute error = %v, want a *guardedExit", err)
	}
	if ge.code != RuntimeExitCode {
		t.Fatalf("exit code = %d, want %d", ge.code, RuntimeExitCode)
	}
}
