package bytecode

// Code is an immutable, ordered sequence of instruction words addressed
// by program counter.
type Code struct {
	words []Word
}

// NewCode returns Code holding a copy of words.
func NewCode(words []Word) Code {
	c := Code{words: make([]Word, len(words))}
	copy(c.words, words)
	return c
}

// Assemble encodes a sequence of instructions into Code.
func Assemble(instrs ...Instruction) Code {
	words := make([]Word, len(instrs))
	for i, in := range instrs {
		words[i] = Encode(in)
	}
	return Code{words: words}
}

// Len returns the number of instructions.
func (c Code) Len() int {
	return len(c.words)
}

// Contains reports whether pc addresses an instruction.
func (c Code) Contains(pc int) bool {
	return pc >= 0 && pc < len(c.words)
}

// Word returns the raw word at pc. Callers check Contains first.
func (c Code) Word(pc int) Word {
	return c.words[pc]
}

// Fetch decodes the instruction at pc. The boolean is false when pc is
// outside the code.
func (c Code) Fetch(pc int) (Instruction, bool) {
	if !c.Contains(pc) {
		return Instruction{}, false
	}
	return Decode(c.words[pc]), true
}

// Words returns a copy of the raw words.
func (c Code) Words() []Word {
	out := make([]Word, len(c.words))
	copy(out, c.words)
	return out
}
