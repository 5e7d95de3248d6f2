package core

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// localSlotSize is the byte stride of a single local slot in the VM's
// flat memory model (§4.3): large enough that AddressOfLocal yields a
// valid byte address and pointer arithmetic with an element size of 16
// bytes lines up with the lowerer's conventions (§4.2's pointer-plus
// scenario).
const localSlotSize = 16

// VmOptions configures a single PSIR VM execution (ambient "Options"
// pattern, mirroring the teacher's Interpreter Options/opt split).
type VmOptions struct {
	Stdout io.Writer
	Stderr io.Writer
	Argv   []string
}

// Vm executes a single PSIR module. Per §5, each execution is
// single-threaded and synchronous; a Vm value holds no state across
// Execute calls: each Execute builds its own activation, and the Vm
// itself only holds its options (including the output writers).
type Vm struct {
	opt VmOptions
}

// NewVm constructs a Vm with the given options, filling unset streams
// with the process defaults the way yaegi's New(Options) does for
// Stdin/Stdout/Stderr.
func NewVm(opt VmOptions) *Vm {
	if opt.Stdout == nil {
		opt.Stdout = os.Stdout
	}
	if opt.Stderr == nil {
		opt.Stderr = os.Stderr
	}
	return &Vm{opt: opt}
}

// heapObject backs a vector/array/map handle (§4.2 supplemented
// collection support). Only one of elems/pairs is populated, selected by
// isMap.
type heapObject struct {
	elems        []uint64
	elemKind     ValueKind
	isMap        bool
	keyKind      ValueKind
	valueKind    ValueKind
	pairs        map[uint64]uint64
	insertOrder  []uint64 // stable iteration order for map keys, unused by any op yet but kept for a future range builtin
}

// activation is the per-call execution state: an evaluation stack,
// locals memory, heap, and instruction pointer (§4.3, plus the
// supplemented collection heap).
type activation struct {
	stack  []uint64
	memory []byte
	heap   map[uint64]*heapObject
	nextID uint64
	ip     int
}

func newActivation(localCount int) *activation {
	return &activation{
		stack:  make([]uint64, 0, 32),
		memory: make([]byte, localCount*localSlotSize),
		heap:   map[uint64]*heapObject{},
	}
}

func (a *activation) allocHeap(obj *heapObject) uint64 {
	a.nextID++
	id := a.nextID
	a.heap[id] = obj
	return id
}

func (a *activation) heapObj(handle uint64) (*heapObject, error) {
	obj, ok := a.heap[handle]
	if !ok {
		return nil, vmErr("invalid collection handle: %d", handle)
	}
	return obj, nil
}

func (a *activation) push(v uint64) { a.stack = append(a.stack, v) }

func (a *activation) pop() (uint64, error) {
	if len(a.stack) == 0 {
		return 0, vmErr("stack underflow")
	}
	v := a.stack[len(a.stack)-1]
	a.stack = a.stack[:len(a.stack)-1]
	return v, nil
}

func (a *activation) top() (uint64, error) {
	if len(a.stack) == 0 {
		return 0, vmErr("stack underflow")
	}
	return a.stack[len(a.stack)-1], nil
}

func (a *activation) loadLocal(slot int) (uint64, error) {
	off := slot * localSlotSize
	if off < 0 || off+8 > len(a.memory) {
		return 0, vmErr("local slot out of range: %d", slot)
	}
	return binary.LittleEndian.Uint64(a.memory[off : off+8]), nil
}

func (a *activation) storeLocal(slot int, v uint64) error {
	off := slot * localSlotSize
	if off < 0 || off+8 > len(a.memory) {
		return vmErr("local slot out of range: %d", slot)
	}
	binary.LittleEndian.PutUint64(a.memory[off:off+8], v)
	return nil
}

func (a *activation) loadIndirect(addr uint64) (uint64, error) {
	if addr+8 > uint64(len(a.memory)) {
		return 0, vmErr("indirect load address out of range: %d", addr)
	}
	return binary.LittleEndian.Uint64(a.memory[addr : addr+8]), nil
}

func (a *activation) storeIndirect(addr, v uint64) error {
	if addr+8 > uint64(len(a.memory)) {
		return vmErr("indirect store address out of range: %d", addr)
	}
	binary.LittleEndian.PutUint64(a.memory[addr:addr+8], v)
	return nil
}

// guardedExit is returned internally when a runtime-guarded diagnostic
// (§4.3, §7) has already been printed and execution must stop with exit
// code 3, distinct from a malformed-module VmError.
type guardedExit struct{ code int }

func (g *guardedExit) Error() string { return fmt.Sprintf("runtime guard: exit %d", g.code) }

// Execute runs module's entry function (its single, fully-inlined
// function per §4.2's inlining totality) and reports its return value
// cast to a 64-bit result, or a failure. A non-nil *guardedExit error
// (unwrapped via errors.As by callers that care) indicates a runtime
// guard fired and printed its diagnostic already; RuntimeExitCode is its
// code in the common case.
func (vm *Vm) Execute(module *IrModule, outResult *uint64) error {
	if len(module.Functions) != 1 {
		return vmErr("module must contain exactly one fully-inlined function, got %d", len(module.Functions))
	}
	fn := module.Functions[0]
	act := newActivation(fn.LocalCount)

	for act.ip < len(fn.Instructions) {
		instr := fn.Instructions[act.ip]
		if !instr.Op.valid() {
			return vmErr("unknown opcode: %d", instr.Op)
		}
		done, retVal, err := vm.step(act, module, fn, instr)
		if err != nil {
			return err
		}
		if done {
			*outResult = retVal
			return nil
		}
	}
	// Fell off the end without a Return*; only valid for Void returns.
	if fn.ReturnKind != KindVoid {
		return vmErr("function %q fell through without a return", fn.Name)
	}
	*outResult = 0
	return nil
}

func (vm *Vm) step(act *activation, module *IrModule, fn *IrFunction, instr IrInstruction) (done bool, result uint64, err error) {
	next := act.ip + 1
	switch instr.Op {
	case OpNop:
	case OpPushI32, OpPushI64, OpPushF32, OpPushF64:
		act.push(instr.Imm)
	case OpPop:
		if _, err = act.pop(); err != nil {
			return false, 0, err
		}
	case OpDup:
		v, e := act.top()
		if e != nil {
			return false, 0, e
		}
		act.push(v)

	case OpAddI32, OpAddI64, OpAddU64, OpAddF32, OpAddF64,
		OpSubI32, OpSubI64, OpSubU64, OpSubF32, OpSubF64,
		OpMulI32, OpMulI64, OpMulU64, OpMulF32, OpMulF64,
		OpDivI32, OpDivI64, OpDivU64, OpDivF32, OpDivF64,
		OpModI32, OpModI64, OpModU64:
		r, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		l, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		v, guardExit, e := binaryArith(instr.Op, l, r)
		if e != nil {
			return false, 0, e
		}
		if guardExit != nil {
			return vm.guard(act, module, guardExit.Message)
		}
		act.push(v)

	case OpNegI32:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(uint32(-int32(uint32(v)))))
	case OpNegI64:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(-int64(v)))
	case OpNegF32:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(math.Float32bits(-math.Float32frombits(uint32(v)))))
	case OpNegF64:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(math.Float64bits(-math.Float64frombits(v)))

	case OpCmpEqI32, OpCmpEqI64, OpCmpEqU64, OpCmpEqF32, OpCmpEqF64,
		OpCmpNeI32, OpCmpNeI64, OpCmpNeU64, OpCmpNeF32, OpCmpNeF64,
		OpCmpLtI32, OpCmpLtI64, OpCmpLtU64, OpCmpLtF32, OpCmpLtF64,
		OpCmpLeI32, OpCmpLeI64, OpCmpLeU64, OpCmpLeF32, OpCmpLeF64,
		OpCmpGtI32, OpCmpGtI64, OpCmpGtU64, OpCmpGtF32, OpCmpGtF64,
		OpCmpGeI32, OpCmpGeI64, OpCmpGeU64, OpCmpGeF32, OpCmpGeF64:
		r, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		l, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		b := compare(instr.Op, l, r)
		act.push(boolBits(b))

	case OpConvertI32ToI64:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(int64(int32(uint32(v)))))
	case OpConvertI32ToU64:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(uint64(int64(int32(uint32(v))))))
	case OpConvertI32ToF32:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(math.Float32bits(float32(int32(uint32(v))))))
	case OpConvertI32ToF64:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(math.Float64bits(float64(int32(uint32(v)))))
	case OpConvertI64ToI32:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(uint32(int32(int64(v)))))
	case OpConvertI64ToU64:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(v)
	case OpConvertI64ToF32:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(math.Float32bits(float32(int64(v)))))
	case OpConvertI64ToF64:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(math.Float64bits(float64(int64(v))))
	case OpConvertU64ToI32:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(uint32(v)))
	case OpConvertU64ToI64:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(v)
	case OpConvertU64ToF32:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(math.Float32bits(float32(v))))
	case OpConvertU64ToF64:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(math.Float64bits(float64(v)))
	case OpConvertF32ToI32:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(uint32(int32(math.Float32frombits(uint32(v))))))
	case OpConvertF32ToI64:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(int64(math.Float32frombits(uint32(v)))))
	case OpConvertF32ToU64:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(math.Float32frombits(uint32(v))))
	case OpConvertF32ToF64:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(math.Float64bits(float64(math.Float32frombits(uint32(v)))))
	case OpConvertF64ToI32:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(uint32(int32(math.Float64frombits(v)))))
	case OpConvertF64ToI64:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(int64(math.Float64frombits(v))))
	case OpConvertF64ToU64:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(math.Float64frombits(v)))
	case OpConvertF64ToF32:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(math.Float32bits(float32(math.Float64frombits(v)))))

	case OpLoadLocal:
		v, e := act.loadLocal(int(instr.Imm))
		if e != nil {
			return false, 0, e
		}
		act.push(v)
	case OpStoreLocal:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		if e := act.storeLocal(int(instr.Imm), v); e != nil {
			return false, 0, e
		}
	case OpAddressOfLocal:
		act.push(uint64(int(instr.Imm) * localSlotSize))

	case OpLoadIndirect:
		addr, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		v, e := act.loadIndirect(addr)
		if e != nil {
			return false, 0, e
		}
		act.push(v)
	case OpStoreIndirect:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		addr, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		if e := act.storeIndirect(addr, v); e != nil {
			return false, 0, e
		}

	case OpJump:
		next = int(instr.Imm)
	case OpJumpIfZero:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		if v == 0 {
			next = int(instr.Imm)
		}
	case OpJumpIfNotZero:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		if v != 0 {
			next = int(instr.Imm)
		}

	case OpReturnVoid:
		return true, 0, nil
	case OpReturnI32, OpReturnI64, OpReturnU64, OpReturnF32, OpReturnF64, OpReturnBool:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		return true, v, nil

	case OpPrintString:
		idx, flags := decodePrintStringImm(instr.Imm)
		if int(idx) >= len(module.StringTable) {
			return false, 0, vmErr("string table index out of range: %d", idx)
		}
		w := vm.opt.Stdout
		if flags&PrintFlagStderr != 0 {
			w = vm.opt.Stderr
		}
		text := module.StringTable[idx]
		if flags&PrintFlagNewline != 0 {
			text += "\n"
		}
		io.WriteString(w, text)
	case OpPrintValue:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		stderr, newline, kind := decodePrintValueImm(instr.Imm)
		w := vm.opt.Stdout
		if stderr {
			w = vm.opt.Stderr
		}
		text := formatValue(kind, v)
		if newline {
			text += "\n"
		}
		io.WriteString(w, text)

	case OpMathUnary, OpMathBinary, OpMathTernary, OpIsNan, OpIsInf, OpIsFinite:
		return vm.stepMath(act, instr)

	case OpGuardFail:
		if int(instr.Imm) >= len(module.StringTable) {
			return false, 0, vmErr("string table index out of range: %d", instr.Imm)
		}
		return vm.guard(act, module, module.StringTable[instr.Imm])

	case OpVectorNew:
		h := act.allocHeap(&heapObject{elemKind: ValueKind(instr.Imm), elems: []uint64{}})
		act.push(h)
	case OpVectorPush:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		h, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		obj, e := act.heapObj(h)
		if e != nil {
			return false, 0, e
		}
		obj.elems = append(obj.elems, v)
	case OpVectorPop:
		h, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		obj, e := act.heapObj(h)
		if e != nil {
			return false, 0, e
		}
		if len(obj.elems) == 0 {
			return vm.guard(act, module, "vector pop on empty vector")
		}
		v := obj.elems[len(obj.elems)-1]
		obj.elems = obj.elems[:len(obj.elems)-1]
		act.push(v)
	case OpVectorAt, OpArrayAt:
		idx, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		h, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		obj, e := act.heapObj(h)
		if e != nil {
			return false, 0, e
		}
		if int64(idx) < 0 || idx >= uint64(len(obj.elems)) {
			return vm.guard(act, module, "index out of range")
		}
		act.push(obj.elems[idx])
	case OpVectorSet, OpArraySet:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		idx, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		h, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		obj, e := act.heapObj(h)
		if e != nil {
			return false, 0, e
		}
		if int64(idx) < 0 || idx >= uint64(len(obj.elems)) {
			return vm.guard(act, module, "index out of range")
		}
		obj.elems[idx] = v
	case OpVectorCount, OpArrayCount:
		h, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		obj, e := act.heapObj(h)
		if e != nil {
			return false, 0, e
		}
		act.push(uint64(int64(len(obj.elems))))
	case OpVectorReserve:
		cap64, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		h, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		obj, e := act.heapObj(h)
		if e != nil {
			return false, 0, e
		}
		if int64(cap64) < 0 {
			return vm.guard(act, module, "reserve with negative capacity")
		}
		if uint64(cap(obj.elems)) < cap64 {
			grown := make([]uint64, len(obj.elems), cap64)
			copy(grown, obj.elems)
			obj.elems = grown
		}
	case OpVectorClear:
		h, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		obj, e := act.heapObj(h)
		if e != nil {
			return false, 0, e
		}
		obj.elems = obj.elems[:0]
	case OpVectorRemoveAt:
		idx, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		h, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		obj, e := act.heapObj(h)
		if e != nil {
			return false, 0, e
		}
		if int64(idx) < 0 || idx >= uint64(len(obj.elems)) {
			return vm.guard(act, module, "index out of range")
		}
		obj.elems = append(obj.elems[:idx], obj.elems[idx+1:]...)
	case OpVectorRemoveSwap:
		idx, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		h, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		obj, e := act.heapObj(h)
		if e != nil {
			return false, 0, e
		}
		last := len(obj.elems) - 1
		if int64(idx) < 0 || idx >= uint64(len(obj.elems)) {
			return vm.guard(act, module, "index out of range")
		}
		obj.elems[idx] = obj.elems[last]
		obj.elems = obj.elems[:last]

	case OpArrayNew:
		size, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		if int64(size) < 0 {
			return vm.guard(act, module, "array size must not be negative")
		}
		h := act.allocHeap(&heapObject{elemKind: ValueKind(instr.Imm), elems: make([]uint64, size)})
		act.push(h)

	case OpMapNew:
		keyKind, valueKind := decodeMapNewImm(instr.Imm)
		h := act.allocHeap(&heapObject{isMap: true, keyKind: keyKind, valueKind: valueKind, pairs: map[uint64]uint64{}})
		act.push(h)
	case OpMapSet:
		v, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		k, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		h, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		obj, e := act.heapObj(h)
		if e != nil {
			return false, 0, e
		}
		if _, exists := obj.pairs[k]; !exists {
			obj.insertOrder = append(obj.insertOrder, k)
		}
		obj.pairs[k] = v
	case OpMapGet:
		k, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		h, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		obj, e := act.heapObj(h)
		if e != nil {
			return false, 0, e
		}
		v, ok := obj.pairs[k]
		if !ok {
			return vm.guard(act, module, "map key not found")
		}
		act.push(v)
	case OpMapHas:
		k, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		h, e := act.pop()
		if e != nil {
			return false, 0, e
		}
		obj, e := act.heapObj(h)
		if e != nil {
			return false, 0, e
		}
		_, ok := obj.pairs[k]
		act.push(boolBits(ok))

	default:
		return false, 0, vmErr("opcode not implemented: %s", instr.Op)
	}

	act.ip = next
	return false, 0, nil
}

// guard prints a runtime-guard diagnostic and returns the standard exit
// protocol (§4.3, §7): the literal message to stderr, followed by exit
// code 3, surfaced to the caller as a *guardedExit wrapped in the
// returned error so Execute's caller can test errors.As.
func (vm *Vm) guard(act *activation, module *IrModule, message string) (bool, uint64, error) {
	io.WriteString(vm.opt.Stderr, message+"\n")
	return true, uint64(RuntimeExitCode), &guardedExit{code: RuntimeExitCode}
}

func boolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func formatValue(kind ValueKind, v uint64) string {
	switch kind {
	case KindInt32:
		return fmt.Sprintf("%d", int32(uint32(v)))
	case KindInt64:
		return fmt.Sprintf("%d", int64(v))
	case KindUInt64:
		return fmt.Sprintf("%d", v)
	case KindFloat32:
		return fmt.Sprintf("%g", math.Float32frombits(uint32(v)))
	case KindFloat64:
		return fmt.Sprintf("%g", math.Float64frombits(v))
	case KindBool:
		return fmt.Sprintf("%t", v != 0)
	default:
		return fmt.Sprintf("%d", v)
	}
}
