package bytecode

import (
	"fmt"
	"strings"

	"github.com/x448/float16"
)

// String renders the instruction in assembler-like form, e.g.
// "ADD.int r1, r2" or "BRANCH r6, -8".
func (in Instruction) String() string {
	info := in.Info()
	name := info.Name
	if info.Types != nil {
		name += "." + in.Type.String()
	}

	switch info.Format {
	case FormatNone:
		return name
	case FormatImm:
		return name + " " + in.immString()
	case FormatR1, FormatTypedR1:
		return fmt.Sprintf("%s r%d", name, in.R1)
	case FormatTypedR2, FormatR1R2:
		return fmt.Sprintf("%s r%d, r%d", name, in.R1, in.R2)
	case FormatBranch:
		if in.Op == OpReturn {
			return fmt.Sprintf("%s r%d", name, in.R1)
		}
		return fmt.Sprintf("%s r%d, %+d", name, in.R1, in.Offset)
	case FormatKlass:
		return fmt.Sprintf("%s k%d", name, in.Klass)
	case FormatKlassR1:
		return fmt.Sprintf("%s k%d, r%d", name, in.Klass, in.R1)
	case FormatField:
		return fmt.Sprintf("%s r%d.f%d", name, in.R1, in.Field)
	case FormatFieldR2:
		return fmt.Sprintf("%s r%d.f%d, r%d", name, in.R1, in.Field, in.R2)
	default:
		return fmt.Sprintf("%s type=%d r%d, r%d, 0x%08X", name, in.Type, in.R1, in.R2, in.Imm)
	}
}

func (in Instruction) immString() string {
	switch in.Type {
	case TypeInt:
		return fmt.Sprintf("%d", in.ImmInt())
	case TypeFloat:
		return fmt.Sprintf("%g", float16.Frombits(in.ImmHalf()).Float32())
	case TypeBool:
		return fmt.Sprintf("%t", in.Imm != 0)
	case TypeChar:
		return fmt.Sprintf("%q", rune(byte(in.Imm)))
	default:
		return fmt.Sprintf("0x%08X", in.Imm)
	}
}

// Disassemble returns a human-readable listing of the code.
func (c Code) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable listing with a name header.
func (c Code) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; %d instructions\n", c.Len()))

	for pc, w := range c.words {
		in := Decode(w)
		sb.WriteString(fmt.Sprintf("%04d  %016X  %s", pc, w, in))
		if in.Kind == KindBranch && in.Op != OpReturn {
			sb.WriteString(fmt.Sprintf("  ; -> %04d", pc+int(in.Offset)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
