// Package bytecode defines the instruction set of the pvm register machine:
// the 64-bit word layout, the decoded Instruction form, and tools for
// building and listing programs.
//
// # Instruction words
//
// Each instruction is one 64-bit word. The top 16 bits select the
// operation (kind, op, type tag); the low 48 bits are operands: two 8-bit
// register ids and a 32-bit payload. The payload is read as an
// immediate, a sign-extended branch offset, a klass id or a field id
// depending on the kind. See decode.go for the exact layout.
//
// Decoding never fails. Any word yields an Instruction; whether the
// (kind, op, type) triple means anything is checked by the interpreter
// when it dispatches.
//
// # Kinds
//
//   - Halt: stop the machine
//   - Imm: load an int, half-precision float, bool or char literal into the accumulator
//   - Reg: copy the accumulator into a register
//   - Binary: Add, Sub, Mul, Div, Less, Equal over two typed registers
//   - Unary: Abs, Sqrt, Read, Write, Cast over one typed register
//   - Branch: conditional branch, conditional call, return
//   - New: allocate an object or an array of a klass
//   - ArrayOp: element reference (Gep) and length (Size)
//   - ObjFieldGet / ObjFieldSet: field access through the object header
//
// Register 0 is the accumulator: the implicit destination of every
// single-result instruction.
//
// # Building programs
//
// Builder emits instructions and resolves forward branch labels:
//
//	b := bytecode.NewBuilder()
//	done := b.NewLabel("done")
//	b.ImmInt(3)
//	b.Mov(1)
//	b.BranchTo(2, done)
//	b.Mark(done)
//	b.Halt()
//	code, err := b.Build()
//
// Code.Disassemble renders a listing for debugging.
package bytecode
