package bytecode

import (
	"fmt"

	"github.com/x448/float16"
)

// ---------------------------------------------------------------------------
// Builder: programmatic construction of Code
// ---------------------------------------------------------------------------

// Builder accumulates instructions and resolves branch labels.
//
// Every emit method returns the program counter of the emitted
// instruction.
type Builder struct {
	instrs []Instruction
	labels []*Label
}

// Label is a branch target that may be marked after it is referenced.
type Label struct {
	name    string
	pc      int   // -1 until marked
	pending []int // instructions waiting for the target
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Len returns the number of emitted instructions.
func (b *Builder) Len() int {
	return len(b.instrs)
}

// Emit appends a raw instruction.
func (b *Builder) Emit(in Instruction) int {
	b.instrs = append(b.instrs, in)
	return len(b.instrs) - 1
}

// Halt emits HALT.
func (b *Builder) Halt() int {
	return b.Emit(Instruction{Kind: KindHalt})
}

// ImmInt loads a 32-bit integer literal into the accumulator.
func (b *Builder) ImmInt(v int32) int {
	return b.Emit(Instruction{Kind: KindImm, Type: TypeInt, Imm: uint32(v)})
}

// ImmFloat loads a float literal into the accumulator. The literal is
// stored as IEEE half precision, so values are rounded to the nearest
// representable half.
func (b *Builder) ImmFloat(f float32) int {
	h := float16.Fromfloat32(f)
	return b.Emit(Instruction{Kind: KindImm, Type: TypeFloat, Imm: uint32(h.Bits())})
}

// ImmBool loads a boolean literal into the accumulator.
func (b *Builder) ImmBool(v bool) int {
	var imm uint32
	if v {
		imm = 1
	}
	return b.Emit(Instruction{Kind: KindImm, Type: TypeBool, Imm: imm})
}

// ImmChar loads a character literal into the accumulator.
func (b *Builder) ImmChar(c byte) int {
	return b.Emit(Instruction{Kind: KindImm, Type: TypeChar, Imm: uint32(c)})
}

// Mov copies the accumulator into r.
func (b *Builder) Mov(r RegID) int {
	return b.Emit(Instruction{Kind: KindReg, Op: OpMov, R1: r})
}

// Binary emits a two-register operation writing the accumulator.
func (b *Builder) Binary(op Op, t Type, r1, r2 RegID) int {
	return b.Emit(Instruction{Kind: KindBinary, Op: op, Type: t, R1: r1, R2: r2})
}

// Unary emits a one-register operation.
func (b *Builder) Unary(op Op, t Type, r RegID) int {
	return b.Emit(Instruction{Kind: KindUnary, Op: op, Type: t, R1: r})
}

// Read reads one token of type t into the accumulator.
func (b *Builder) Read(t Type) int {
	return b.Unary(OpRead, t, Acc)
}

// Write prints register r as type t.
func (b *Builder) Write(t Type, r RegID) int {
	return b.Unary(OpWrite, t, r)
}

// Branch jumps by offset when r holds true.
func (b *Builder) Branch(r RegID, offset int32) int {
	return b.Emit(Instruction{Kind: KindBranch, Op: OpBranch, R1: r, Offset: offset})
}

// Call pushes a frame and jumps by offset when r holds true.
func (b *Builder) Call(r RegID, offset int32) int {
	return b.Emit(Instruction{Kind: KindBranch, Op: OpCall, R1: r, Offset: offset})
}

// Return pops the current frame, handing r to the caller's accumulator.
func (b *Builder) Return(r RegID) int {
	return b.Emit(Instruction{Kind: KindBranch, Op: OpReturn, R1: r})
}

// New allocates an instance of klass.
func (b *Builder) New(klass uint32) int {
	return b.Emit(Instruction{Kind: KindNew, Op: OpObject, Klass: klass})
}

// NewArray allocates an array of klass whose length is held in count.
func (b *Builder) NewArray(klass uint32, count RegID) int {
	return b.Emit(Instruction{Kind: KindNew, Op: OpArray, Klass: klass, R1: count})
}

// Gep loads the element reference arr[index] into the accumulator.
func (b *Builder) Gep(arr, index RegID) int {
	return b.Emit(Instruction{Kind: KindArrayOp, Op: OpGep, R1: arr, R2: index})
}

// ArraySize loads the length of arr into the accumulator.
func (b *Builder) ArraySize(arr RegID) int {
	return b.Emit(Instruction{Kind: KindArrayOp, Op: OpSize, R1: arr})
}

// GetField loads field of obj into the accumulator.
func (b *Builder) GetField(obj RegID, field uint32) int {
	return b.Emit(Instruction{Kind: KindObjFieldGet, R1: obj, Field: field})
}

// SetField stores value into field of obj.
func (b *Builder) SetField(obj, value RegID, field uint32) int {
	return b.Emit(Instruction{Kind: KindObjFieldSet, R1: obj, R2: value, Field: field})
}

// ---------------------------------------------------------------------------
// Labels
// ---------------------------------------------------------------------------

// NewLabel creates an unmarked label. The name only appears in errors.
func (b *Builder) NewLabel(name string) *Label {
	l := &Label{name: name, pc: -1}
	b.labels = append(b.labels, l)
	return l
}

// Mark binds the label to the next instruction and patches every branch
// already waiting for it.
func (b *Builder) Mark(l *Label) {
	l.pc = len(b.instrs)
	for _, at := range l.pending {
		b.instrs[at].Offset = int32(l.pc - at)
	}
	l.pending = nil
}

// BranchTo emits a conditional branch to l.
func (b *Builder) BranchTo(r RegID, l *Label) int {
	return b.emitTo(Instruction{Kind: KindBranch, Op: OpBranch, R1: r}, l)
}

// CallTo emits a conditional call to l.
func (b *Builder) CallTo(r RegID, l *Label) int {
	return b.emitTo(Instruction{Kind: KindBranch, Op: OpCall, R1: r}, l)
}

func (b *Builder) emitTo(in Instruction, l *Label) int {
	at := len(b.instrs)
	if l.pc >= 0 {
		in.Offset = int32(l.pc - at)
	} else {
		l.pending = append(l.pending, at)
	}
	return b.Emit(in)
}

// Instructions returns a copy of the emitted instructions.
func (b *Builder) Instructions() []Instruction {
	out := make([]Instruction, len(b.instrs))
	copy(out, b.instrs)
	return out
}

// Build encodes the program. It fails if a referenced label was never marked.
func (b *Builder) Build() (Code, error) {
	for _, l := range b.labels {
		if len(l.pending) > 0 {
			return Code{}, fmt.Errorf("bytecode: label %q referenced at pc %d but never marked", l.name, l.pending[0])
		}
	}
	return Assemble(b.instrs...), nil
}

// MustBuild is like Build but panics on error. Intended for fixed programs.
func (b *Builder) MustBuild() Code {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}
