package core

import (
	"encoding/binary"
	"fmt"
)

// ContainerMagic and ContainerVersion are the fixed PSIR container
// header fields (§4.4). Deserialize rejects any other version.
const (
	ContainerMagic   uint32 = 0x50534952 // "PSIR"
	ContainerVersion uint32 = 14
)

// Serialize converts an IrModule to its on-disk byte representation
// (§4.4). The writer refuses to emit any instruction whose opcode is not
// in the fixed table.
func Serialize(module *IrModule) ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = appendU32(buf, ContainerMagic)
	buf = appendU32(buf, ContainerVersion)
	buf = appendU32(buf, uint32(len(module.Functions)))

	for _, fn := range module.Functions {
		buf = appendString(buf, fn.Name)
		buf = appendU32(buf, uint32(fn.LocalCount))
		buf = append(buf, byte(fn.ReturnKind))
		buf = appendU32(buf, uint32(len(fn.Instructions)))
		for _, instr := range fn.Instructions {
			if !instr.Op.valid() {
				return nil, fmt.Errorf("serialize: refusing to emit unknown opcode %d in function %q", instr.Op, fn.Name)
			}
			buf = append(buf, byte(instr.Op))
			buf = appendU64(buf, instr.Imm)
		}
	}

	buf = appendU32(buf, uint32(len(module.StringTable)))
	for _, s := range module.StringTable {
		buf = appendString(buf, s)
	}
	return buf, nil
}

// Deserialize parses a PSIR byte stream produced by Serialize, rejecting
// any container whose magic or version does not match, or whose
// instruction stream references an opcode outside the fixed table
// (§4.4, §6).
func Deserialize(data []byte) (*IrModule, error) {
	r := &byteReader{data: data}

	magic, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("deserialize: %w", err)
	}
	if magic != ContainerMagic {
		return nil, fmt.Errorf("deserialize: bad magic %#x, want %#x", magic, ContainerMagic)
	}
	version, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("deserialize: %w", err)
	}
	if version != ContainerVersion {
		return nil, fmt.Errorf("deserialize: unsupported PSIR version %d, want %d", version, ContainerVersion)
	}
	fnCount, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("deserialize: %w", err)
	}

	module := &IrModule{}
	for i := uint32(0); i < fnCount; i++ {
		name, err := r.str()
		if err != nil {
			return nil, fmt.Errorf("deserialize: function %d name: %w", i, err)
		}
		localCount, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("deserialize: function %d locals: %w", i, err)
		}
		returnKindByte, err := r.u8()
		if err != nil {
			return nil, fmt.Errorf("deserialize: function %d return kind: %w", i, err)
		}
		instrCount, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("deserialize: function %d instruction count: %w", i, err)
		}
		fn := &IrFunction{
			Name:       name,
			LocalCount: int(localCount),
			ReturnKind: ReturnKind(returnKindByte),
		}
		for j := uint32(0); j < instrCount; j++ {
			opByte, err := r.u8()
			if err != nil {
				return nil, fmt.Errorf("deserialize: function %d instruction %d opcode: %w", i, j, err)
			}
			op := IrOpcode(opByte)
			if !op.valid() {
				return nil, fmt.Errorf("deserialize: function %d instruction %d: unknown opcode %d", i, j, opByte)
			}
			imm, err := r.u64()
			if err != nil {
				return nil, fmt.Errorf("deserialize: function %d instruction %d imm: %w", i, j, err)
			}
			fn.Instructions = append(fn.Instructions, IrInstruction{Op: op, Imm: imm})
		}
		module.Functions = append(module.Functions, fn)
	}

	strCount, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("deserialize: string table count: %w", err)
	}
	for i := uint32(0); i < strCount; i++ {
		s, err := r.str()
		if err != nil {
			return nil, fmt.Errorf("deserialize: string table entry %d: %w", i, err)
		}
		module.StringTable = append(module.StringTable, s)
	}
	if !r.atEnd() {
		return nil, fmt.Errorf("deserialize: %d trailing bytes after well-formed container", r.remaining())
	}
	return module, nil
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendU32(buf, uint32(len(s)))
	return append(buf, s...)
}

// byteReader is a minimal little-endian cursor over a byte slice, kept
// local to this file rather than pulled from bytes.Reader so short reads
// produce the same "unexpected end of data" diagnostic everywhere.
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) atEnd() bool    { return r.pos >= len(r.data) }
func (r *byteReader) remaining() int { return len(r.data) - r.pos }

func (r *byteReader) u8() (byte, error) {
	if r.pos+1 > len(r.data) {
		return 0, fmt.Errorf("unexpected end of data")
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) u32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("unexpected end of data")
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *byteReader) u64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("unexpected end of data")
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

func (r *byteReader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.data) {
		return "", fmt.Errorf("unexpected end of data")
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}
