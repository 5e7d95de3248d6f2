package core

import "math"

// guardSignal is returned by binaryArith when a runtime-guarded
// diagnostic condition (§4.3) should stop execution with the given
// literal message. It is distinct from *guardedExit (the VM's exported
// control-flow error) so this file stays free of VM plumbing.
type guardSignal struct{ Message string }

// binaryArith executes one arithmetic opcode over two raw 64-bit stack
// slots, reinterpreted per the opcode's width/signedness suffix.
func binaryArith(op IrOpcode, l, r uint64) (result uint64, guard *guardSignal, err error) {
	switch op {
	case OpAddI32:
		return uint64(uint32(int32(uint32(l)) + int32(uint32(r)))), nil, nil
	case OpAddI64:
		return uint64(int64(l) + int64(r)), nil, nil
	case OpAddU64:
		return l + r, nil, nil
	case OpAddF32:
		return uint64(math.Float32bits(math.Float32frombits(uint32(l)) + math.Float32frombits(uint32(r)))), nil, nil
	case OpAddF64:
		return math.Float64bits(math.Float64frombits(l) + math.Float64frombits(r)), nil, nil

	case OpSubI32:
		return uint64(uint32(int32(uint32(l)) - int32(uint32(r)))), nil, nil
	case OpSubI64:
		return uint64(int64(l) - int64(r)), nil, nil
	case OpSubU64:
		return l - r, nil, nil
	case OpSubF32:
		return uint64(math.Float32bits(math.Float32frombits(uint32(l)) - math.Float32frombits(uint32(r)))), nil, nil
	case OpSubF64:
		return math.Float64bits(math.Float64frombits(l) - math.Float64frombits(r)), nil, nil

	case OpMulI32:
		return uint64(uint32(int32(uint32(l)) * int32(uint32(r)))), nil, nil
	case OpMulI64:
		return uint64(int64(l) * int64(r)), nil, nil
	case OpMulU64:
		return l * r, nil, nil
	case OpMulF32:
		return uint64(math.Float32bits(math.Float32frombits(uint32(l)) * math.Float32frombits(uint32(r)))), nil, nil
	case OpMulF64:
		return math.Float64bits(math.Float64frombits(l) * math.Float64frombits(r)), nil, nil

	case OpDivI32:
		rv := int32(uint32(r))
		if rv == 0 {
			return 0, nil, vmErr("division by zero")
		}
		return uint64(uint32(int32(uint32(l)) / rv)), nil, nil
	case OpDivI64:
		rv := int64(r)
		if rv == 0 {
			return 0, nil, vmErr("division by zero")
		}
		return uint64(int64(l) / rv), nil, nil
	case OpDivU64:
		if r == 0 {
			return 0, nil, vmErr("division by zero")
		}
		return l / r, nil, nil
	case OpDivF32:
		return uint64(math.Float32bits(math.Float32frombits(uint32(l)) / math.Float32frombits(uint32(r)))), nil, nil
	case OpDivF64:
		return math.Float64bits(math.Float64frombits(l) / math.Float64frombits(r)), nil, nil

	case OpModI32:
		rv := int32(uint32(r))
		if rv == 0 {
			return 0, nil, vmErr("division by zero")
		}
		return uint64(uint32(int32(uint32(l)) % rv)), nil, nil
	case OpModI64:
		rv := int64(r)
		if rv == 0 {
			return 0, nil, vmErr("division by zero")
		}
		return uint64(int64(l) % rv), nil, nil
	case OpModU64:
		if r == 0 {
			return 0, nil, vmErr("division by zero")
		}
		return l % r, nil, nil
	}
	return 0, nil, vmErr("not a binary arithmetic opcode: %s", op)
}

// compare executes one comparison opcode over two raw 64-bit stack
// slots.
func compare(op IrOpcode, l, r uint64) bool {
	switch op {
	case OpCmpEqI32:
		return int32(uint32(l)) == int32(uint32(r))
	case OpCmpEqI64:
		return int64(l) == int64(r)
	case OpCmpEqU64:
		return l == r
	case OpCmpEqF32:
		return math.Float32frombits(uint32(l)) == math.Float32frombits(uint32(r))
	case OpCmpEqF64:
		return math.Float64frombits(l) == math.Float64frombits(r)

	case OpCmpNeI32:
		return int32(uint32(l)) != int32(uint32(r))
	case OpCmpNeI64:
		return int64(l) != int64(r)
	case OpCmpNeU64:
		return l != r
	case OpCmpNeF32:
		return math.Float32frombits(uint32(l)) != math.Float32frombits(uint32(r))
	case OpCmpNeF64:
		return math.Float64frombits(l) != math.Float64frombits(r)

	case OpCmpLtI32:
		return int32(uint32(l)) < int32(uint32(r))
	case OpCmpLtI64:
		return int64(l) < int64(r)
	case OpCmpLtU64:
		return l < r
	case OpCmpLtF32:
		return math.Float32frombits(uint32(l)) < math.Float32frombits(uint32(r))
	case OpCmpLtF64:
		return math.Float64frombits(l) < math.Float64frombits(r)

	case OpCmpLeI32:
		return int32(uint32(l)) <= int32(uint32(r))
	case OpCmpLeI64:
		return int64(l) <= int64(r)
	case OpCmpLeU64:
		return l <= r
	case OpCmpLeF32:
		return math.Float32frombits(uint32(l)) <= math.Float32frombits(uint32(r))
	case OpCmpLeF64:
		return math.Float64frombits(l) <= math.Float64frombits(r)

	case OpCmpGtI32:
		return int32(uint32(l)) > int32(uint32(r))
	case OpCmpGtI64:
		return int64(l) > int64(r)
	case OpCmpGtU64:
		return l > r
	case OpCmpGtF32:
		return math.Float32frombits(uint32(l)) > math.Float32frombits(uint32(r))
	case OpCmpGtF64:
		return math.Float64frombits(l) > math.Float64frombits(r)

	case OpCmpGeI32:
		return int32(uint32(l)) >= int32(uint32(r))
	case OpCmpGeI64:
		return int64(l) >= int64(r)
	case OpCmpGeU64:
		return l >= r
	case OpCmpGeF32:
		return math.Float32frombits(uint32(l)) >= math.Float32frombits(uint32(r))
	case OpCmpGeF64:
		return math.Float64frombits(l) >= math.Float64frombits(r)
	}
	return false
}
