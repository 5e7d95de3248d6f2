package core

import (
	"reflect"
	"testing"
)

// TestSerializeRoundTrip is §8's serializer round-trip property: for a
// well-formed IrModule m, deserialize(serialize(m)) equals m structurally,
// and executing the two yields identical results.
func TestSerializeRoundTrip(t *testing.T) {
	modules := []*IrModule{
		{
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
		},
		{
			StringTable: []string{"hello", "world"},
			Functions: []*IrFunction{{
				Name:       "/greet",
				LocalCount: 2,
				ReturnKind: KindVoid,
				Instructions: []IrInstruction{
					{Op: OpPushI64, Imm: 0},
					{Op: OpPrintString, Imm: 0},
					{Op: OpReturnVoid},
				},
			}},
		},
	}

	for i, m := range modules {
		data, err := Serialize(m)
		if err != nil {
			t.Fatalf("module %d: Serialize: %v", i, err)
		}
		got, err := Deserialize(data)
		if err != nil {
			t.Fatalf("module %d: Deserialize: %v", i, err)
		}
		if !reflect.DeepEqual(m, got) {
			t.Fatalf("module %d: round trip mismatch:\nwant %+v\ngot  %+v", i, m, got)
		}

		var wantResult, gotResult uint64
		wantErr := NewVm(VmOptions{}).Execute(m, &wantResult)
		gotErr := NewVm(VmOptions{}).Execute(got, &gotResult)
		if (wantErr == nil) != (gotErr == nil) {
			t.Fatalf("module %d: execute error mismatch: want %v, got %v", i, wantErr, gotErr)
		}
		if wantErr == nil && wantResult != gotResult {
			t.Fatalf("module %d: execute result mismatch: want %d, got %d", i, wantResult, gotResult)
		}
	}
}

func TestDeserializeRejectsBadMagic(t *testing.T) {
	data := []byte{0, 0, 0, 0, 14, 0, 0, 0, 0, 0, 0, 0}
	if _, err := Deserialize(data); err == nil {
		t.Fatal("expected an error for a bad magic number")
	}
}

func TestDeserializeRejectsUnknownOpcode(t *testing.T) {
	m := &IrModule{Functions: []*IrFunction{{
		Name:         "/main",
		ReturnKind:   KindVoid,
		Instructions: []IrInstruction{{Op: OpReturnVoid}},
	}}}
	data, err := Serialize(m)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	// Corrupt the single instruction's opcode byte to a value above the
	// fixed table (header is magic(4)+version(4)+fnCount(4), then name
	// length(4)+name bytes(5 for "/main")+localCount(4)+returnKind(1)+
	// instrCount(4), then the opcode byte).
	opcodeOffset := 4 + 4 + 4 + 4 + len("/main") + 4 + 1 + 4
	data[opcodeOffset] = 250
	if _, err := Deserialize(data); err == nil {
		t.Fatal("expected an error for an unknown opcode")
	}
}

func TestSerializeRejectsUnknownOpcode(t *testing.T) {
	m := &IrModule{Functions: []*IrFunction{{
		Name:         "/main",
		ReturnKind:   KindVoid,
		Instructions: []IrInstruction{{Op: opcodeCount + 1}},
	}}}
	if _, err := Serialize(m); err == nil {
		t.Fatal("expected Serialize to refuse an unknown opcode")
	}
}
