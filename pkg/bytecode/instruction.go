package bytecode

// RegID names one of the NumRegisters slots of a register file.
// Its width covers the register space exactly, so every RegID is valid.
type RegID uint8

// NumRegisters is the number of registers in a frame.
const NumRegisters = 1 << 8

// Acc is the accumulator, an alias for register 0.
const Acc RegID = 0

// Word is one encoded instruction.
type Word = uint64

// Instruction is a decoded instruction word.
//
// Only the fields named by the opcode's Format are meaningful; the others
// are zero. An Instruction is a plain value and is never mutated after
// decoding.
type Instruction struct {
	Kind Kind
	Op   Op
	Type Type

	R1 RegID // destination, condition, source or reference register
	R2 RegID // second source, index or value register

	Imm    uint32 // raw immediate payload (KindImm)
	Offset int32  // branch offset relative to the instruction (KindBranch)
	Klass  uint32 // klass id (KindNew)
	Field  uint32 // field id (KindObjFieldGet, KindObjFieldSet)
}

// Info returns the opcode metadata for the instruction.
func (in Instruction) Info() OpcodeInfo {
	return GetOpcodeInfo(in.Kind, in.Op)
}

// Valid reports whether the instruction's (kind, op, type) triple is defined.
func (in Instruction) Valid() bool {
	info, ok := LookupInfo(in.Kind, in.Op)
	return ok && info.Accepts(in.Type)
}

// ImmInt returns the immediate as a signed 32-bit integer.
func (in Instruction) ImmInt() int32 {
	return int32(in.Imm)
}

// ImmHalf returns the low 16 bits of the immediate, the IEEE half-precision
// encoding used by float literals.
func (in Instruction) ImmHalf() uint16 {
	return uint16(in.Imm)
}
