package bytecode

import "github.com/chazu/pvm/pkg/bitfield"

// Encode packs an Instruction into a word. Fields not used by the
// instruction's format are dropped, so Decode(Encode(in)) == in for any
// instruction whose unused fields are zero.
func Encode(in Instruction) Word {
	var w Word
	w = bitfield.Insert(w, kindHi, kindLo, Word(in.Kind))
	w = bitfield.Insert(w, opHi, opLo, Word(in.Op))
	w = bitfield.Insert(w, typeHi, typeLo, Word(in.Type))

	var r1, r2 RegID
	var payload uint32

	switch in.Info().Format {
	case FormatNone:
	case FormatImm:
		payload = in.Imm
	case FormatR1, FormatTypedR1:
		r1 = in.R1
	case FormatTypedR2, FormatR1R2:
		r1, r2 = in.R1, in.R2
	case FormatBranch:
		r1 = in.R1
		payload = uint32(in.Offset)
	case FormatKlass:
		payload = in.Klass
	case FormatKlassR1:
		r1 = in.R1
		payload = in.Klass
	case FormatField:
		r1 = in.R1
		payload = in.Field
	case FormatFieldR2:
		r1, r2 = in.R1, in.R2
		payload = in.Field
	default:
		r1, r2 = in.R1, in.R2
		payload = in.Imm
	}

	w = bitfield.Insert(w, r1Hi, r1Lo, Word(r1))
	w = bitfield.Insert(w, r2Hi, r2Lo, Word(r2))
	w = bitfield.Insert(w, payloadHi, payloadLo, Word(payload))
	return w
}
