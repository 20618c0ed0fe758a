package bytecode

import "github.com/chazu/pvm/pkg/bitfield"

// Word layout, most significant bit first:
//
//	63      56 55  52 51  48 47    40 39    32 31                   0
//	+---------+------+------+--------+--------+----------------------+
//	|  kind   |  op  | type |   R1   |   R2   |       payload        |
//	+---------+------+------+--------+--------+----------------------+
//
// The payload is an immediate, a sign-extended branch offset, a klass id
// or a field id depending on the kind.
const (
	kindHi, kindLo       = 63, 56
	opHi, opLo           = 55, 52
	typeHi, typeLo       = 51, 48
	r1Hi, r1Lo           = 47, 40
	r2Hi, r2Lo           = 39, 32
	payloadHi, payloadLo = 31, 0
	payloadBits          = payloadHi - payloadLo + 1
)

// Decode turns a raw word into an Instruction.
//
// Decode is total: every bit pattern produces an Instruction. Words whose
// (kind, op) pair is undefined decode with every field filled in verbatim
// and are rejected later by the interpreter.
func Decode(w Word) Instruction {
	in := Instruction{
		Kind: Kind(bitfield.Extract(w, kindHi, kindLo)),
		Op:   Op(bitfield.Extract(w, opHi, opLo)),
		Type: Type(bitfield.Extract(w, typeHi, typeLo)),
	}

	r1 := RegID(bitfield.Extract(w, r1Hi, r1Lo))
	r2 := RegID(bitfield.Extract(w, r2Hi, r2Lo))
	payload := uint32(bitfield.Extract(w, payloadHi, payloadLo))

	switch in.Info().Format {
	case FormatNone:
		// Halt carries nothing.
	case FormatImm:
		in.Imm = payload
	case FormatR1, FormatTypedR1:
		in.R1 = r1
	case FormatTypedR2, FormatR1R2:
		in.R1, in.R2 = r1, r2
	case FormatBranch:
		in.R1 = r1
		in.Offset = int32(bitfield.SignExtend(uint64(payload), payloadBits))
	case FormatKlass:
		in.Klass = payload
	case FormatKlassR1:
		in.R1 = r1
		in.Klass = payload
	case FormatField:
		in.R1 = r1
		in.Field = payload
	case FormatFieldR2:
		in.R1, in.R2 = r1, r2
		in.Field = payload
	default:
		in.R1, in.R2 = r1, r2
		in.Imm = payload
	}

	return in
}

// DecodeAll decodes a sequence of words.
func DecodeAll(words []Word) []Instruction {
	out := make([]Instruction, len(words))
	for i, w := range words {
		out[i] = Decode(w)
	}
	return out
}
