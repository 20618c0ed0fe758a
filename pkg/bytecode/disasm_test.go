package bytecode

import (
	"strings"
	"testing"
)

func TestInstructionString(t *testing.T) {
	tests := []struct {
		in   Instruction
		want string
	}{
		{Instruction{Kind: KindHalt}, "HALT"},
		{Instruction{Kind: KindImm, Type: TypeInt, Imm: uint32(0xFFFFFFFE)}, "IMM.int -2"},
		{Instruction{Kind: KindImm, Type: TypeFloat, Imm: 0x3E00}, "IMM.float 1.5"},
		{Instruction{Kind: KindImm, Type: TypeBool, Imm: 1}, "IMM.bool true"},
		{Instruction{Kind: KindImm, Type: TypeChar, Imm: 'x'}, "IMM.char 'x'"},
		{Instruction{Kind: KindReg, Op: OpMov, R1: 3}, "MOV r3"},
		{Instruction{Kind: KindBinary, Op: OpAdd, Type: TypeInt, R1: 1, R2: 2}, "ADD.int r1, r2"},
		{Instruction{Kind: KindUnary, Op: OpWrite, Type: TypeFloat, R1: 4}, "WRITE.float r4"},
		{Instruction{Kind: KindBranch, Op: OpBranch, R1: 6, Offset: -8}, "BRANCH r6, -8"},
		{Instruction{Kind: KindBranch, Op: OpCall, R1: 1, Offset: 3}, "CALL r1, +3"},
		{Instruction{Kind: KindBranch, Op: OpReturn, R1: 2}, "RETURN r2"},
		{Instruction{Kind: KindNew, Op: OpObject, Klass: 5}, "NEW k5"},
		{Instruction{Kind: KindNew, Op: OpArray, Klass: 1, R1: 2}, "NEW_ARRAY k1, r2"},
		{Instruction{Kind: KindArrayOp, Op: OpGep, R1: 1, R2: 2}, "GEP r1, r2"},
		{Instruction{Kind: KindArrayOp, Op: OpSize, R1: 1}, "ARRAY_SIZE r1"},
		{Instruction{Kind: KindObjFieldGet, R1: 1, Field: 0}, "GET_FIELD r1.f0"},
		{Instruction{Kind: KindObjFieldSet, R1: 1, R2: 3, Field: 2}, "SET_FIELD r1.f2, r3"},
	}

	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestInstructionStringUnknown(t *testing.T) {
	in := Decode(0x2A_1_0_01_02_00000010)
	got := in.String()
	if !strings.HasPrefix(got, "UNKNOWN(0x2A.1)") {
		t.Errorf("String() = %q, want UNKNOWN(0x2A.1) prefix", got)
	}
	if !strings.Contains(got, "0x00000010") {
		t.Errorf("String() = %q, missing raw payload", got)
	}
}

func TestDisassembleEmpty(t *testing.T) {
	output := Code{}.Disassemble()

	if !strings.Contains(output, "; 0 instructions") {
		t.Errorf("Disassembly missing header: %q", output)
	}
}

func TestDisassembleWithName(t *testing.T) {
	code := Assemble(Instruction{Kind: KindHalt})
	output := code.DisassembleWithName("main")

	if !strings.Contains(output, "; === main ===") {
		t.Error("Missing name header")
	}
	if !strings.Contains(output, "0000  0000000000000000  HALT") {
		t.Errorf("Missing HALT line:\n%s", output)
	}
}

func TestDisassembleBranchTargets(t *testing.T) {
	b := NewBuilder()
	top := b.NewLabel("top")
	b.Mark(top)
	b.ImmBool(true)
	b.Mov(1)
	b.BranchTo(1, top)
	b.Halt()

	output := b.MustBuild().Disassemble()

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), output)
	}
	if !strings.HasSuffix(lines[3], "BRANCH r1, -2  ; -> 0000") {
		t.Errorf("branch line = %q", lines[3])
	}
	if strings.Contains(lines[4], "->") {
		t.Errorf("halt line should have no target: %q", lines[4])
	}
}
