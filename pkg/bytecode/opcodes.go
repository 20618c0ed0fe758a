package bytecode

import "fmt"

// Kind is the instruction family stored in the top byte of a word.
type Kind uint8

const (
	KindHalt        Kind = 0x00 // stop the machine
	KindImm         Kind = 0x01 // load a literal into the accumulator
	KindReg         Kind = 0x02 // register moves
	KindBinary      Kind = 0x03 // two-register arithmetic and comparison
	KindUnary       Kind = 0x04 // one-register arithmetic and I/O
	KindBranch      Kind = 0x05 // branch, call, return
	KindNew         Kind = 0x06 // heap allocation
	KindArrayOp     Kind = 0x07 // array element address and size
	KindObjFieldGet Kind = 0x08 // read an object field
	KindObjFieldSet Kind = 0x09 // write an object field

	// NumKinds is one past the highest defined kind.
	NumKinds = 0x0A
)

// Op selects the operation within a Kind. It occupies four bits.
type Op uint8

// NumOps is the number of encodable Op values.
const NumOps = 16

// Reg operations
const (
	OpMov Op = 0x0 // acc -> R1
)

// Binary operations
const (
	OpAdd   Op = 0x0 // acc <- R1 + R2
	OpSub   Op = 0x1 // acc <- R1 - R2
	OpMul   Op = 0x2 // acc <- R1 * R2
	OpDiv   Op = 0x3 // acc <- R1 / R2
	OpLess  Op = 0x4 // acc <- R1 < R2
	OpEqual Op = 0x5 // acc <- R1 == R2
)

// Unary operations
const (
	OpAbs   Op = 0x0 // acc <- |R1|
	OpSqrt  Op = 0x1 // acc <- sqrt(R1)
	OpRead  Op = 0x2 // acc <- next input token
	OpWrite Op = 0x3 // output <- R1
	OpCast  Op = 0x4 // acc <- R1 converted to the instruction's type
)

// Branch operations
const (
	OpBranch Op = 0x0 // if R1 { pc += offset }
	OpCall   Op = 0x1 // if R1 { push frame; pc += offset }
	OpReturn Op = 0x2 // pop frame; caller acc <- R1
)

// New operations
const (
	OpObject Op = 0x0 // acc <- new klass
	OpArray  Op = 0x1 // acc <- new klass[R1]
)

// ArrayOp operations
const (
	OpGep  Op = 0x0 // acc <- &R1[R2]
	OpSize Op = 0x1 // acc <- len(R1)
)

// Type is the operand type tag carried by an instruction.
type Type uint8

const (
	TypeNone  Type = 0x0
	TypeInt   Type = 0x1
	TypeFloat Type = 0x2
	TypeBool  Type = 0x3
	TypeChar  Type = 0x4
)

var typeNames = [...]string{
	TypeNone:  "none",
	TypeInt:   "int",
	TypeFloat: "float",
	TypeBool:  "bool",
	TypeChar:  "char",
}

// String returns the lower-case name of a type tag.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

var kindNames = [...]string{
	KindHalt:        "HALT",
	KindImm:         "IMM",
	KindReg:         "REG",
	KindBinary:      "BINARY",
	KindUnary:       "UNARY",
	KindBranch:      "BRANCH",
	KindNew:         "NEW",
	KindArrayOp:     "ARRAY",
	KindObjFieldGet: "FIELD_GET",
	KindObjFieldSet: "FIELD_SET",
}

// String returns the upper-case name of a kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("KIND_%02X", uint8(k))
}

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// Format describes which operand fields an instruction uses.
type Format uint8

const (
	FormatNone    Format = iota // no operands
	FormatImm                   // type + 32-bit immediate
	FormatR1                    // R1
	FormatTypedR1               // type + R1
	FormatTypedR2               // type + R1 + R2
	FormatBranch                // R1 + signed offset
	FormatKlass                 // klass id
	FormatKlassR1               // klass id + R1 (count)
	FormatR1R2                  // R1 + R2
	FormatField                 // R1 + field id
	FormatFieldR2               // R1 + R2 + field id
	FormatRaw                   // unknown: every field decoded verbatim
)

// OpcodeInfo holds metadata about a (Kind, Op) pair.
type OpcodeInfo struct {
	Name   string // mnemonic
	Format Format // operand layout
	Types  []Type // accepted type tags; nil means the tag is ignored
}

var (
	numeric = []Type{TypeInt, TypeFloat}
	scalar  = []Type{TypeInt, TypeFloat, TypeBool, TypeChar}
)

// opcodeTable maps each defined (Kind, Op) pair to its metadata.
var opcodeTable = map[Kind]map[Op]OpcodeInfo{
	KindHalt: {
		0: {"HALT", FormatNone, nil},
	},
	KindImm: {
		0: {"IMM", FormatImm, scalar},
	},
	KindReg: {
		OpMov: {"MOV", FormatR1, nil},
	},
	KindBinary: {
		OpAdd:   {"ADD", FormatTypedR2, numeric},
		OpSub:   {"SUB", FormatTypedR2, numeric},
		OpMul:   {"MUL", FormatTypedR2, numeric},
		OpDiv:   {"DIV", FormatTypedR2, numeric},
		OpLess:  {"LESS", FormatTypedR2, scalar},
		OpEqual: {"EQUAL", FormatTypedR2, scalar},
	},
	KindUnary: {
		OpAbs:   {"ABS", FormatTypedR1, numeric},
		OpSqrt:  {"SQRT", FormatTypedR1, numeric},
		OpRead:  {"READ", FormatTypedR1, scalar},
		OpWrite: {"WRITE", FormatTypedR1, scalar},
		OpCast:  {"CAST", FormatTypedR1, numeric},
	},
	KindBranch: {
		OpBranch: {"BRANCH", FormatBranch, nil},
		OpCall:   {"CALL", FormatBranch, nil},
		OpReturn: {"RETURN", FormatBranch, nil},
	},
	KindNew: {
		OpObject: {"NEW", FormatKlass, nil},
		OpArray:  {"NEW_ARRAY", FormatKlassR1, nil},
	},
	KindArrayOp: {
		OpGep:  {"GEP", FormatR1R2, nil},
		OpSize: {"ARRAY_SIZE", FormatR1, nil},
	},
	KindObjFieldGet: {
		0: {"GET_FIELD", FormatField, nil},
	},
	KindObjFieldSet: {
		0: {"SET_FIELD", FormatFieldR2, nil},
	},
}

// LookupInfo returns the metadata for a (Kind, Op) pair.
// The boolean is false when the pair is not a defined instruction.
func LookupInfo(k Kind, op Op) (OpcodeInfo, bool) {
	ops, ok := opcodeTable[k]
	if !ok {
		return OpcodeInfo{}, false
	}
	info, ok := ops[op]
	return info, ok
}

// GetOpcodeInfo returns metadata for a (Kind, Op) pair.
// Returns an OpcodeInfo named "UNKNOWN(..)" with FormatRaw if the pair is not recognized.
func GetOpcodeInfo(k Kind, op Op) OpcodeInfo {
	if info, ok := LookupInfo(k, op); ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X.%X)", uint8(k), uint8(op)), Format: FormatRaw}
}

// Accepts reports whether the type tag t is valid for this opcode.
func (info OpcodeInfo) Accepts(t Type) bool {
	if info.Types == nil {
		return true
	}
	for _, want := range info.Types {
		if want == t {
			return true
		}
	}
	return false
}

// IsBranch returns true if the kind transfers control.
func (k Kind) IsBranch() bool {
	return k == KindBranch
}

// IsHeap returns true if the kind touches the heap.
func (k Kind) IsHeap() bool {
	return k >= KindNew && k <= KindObjFieldSet
}

// OpcodeCount returns the number of defined (Kind, Op) pairs.
func OpcodeCount() int {
	n := 0
	for _, ops := range opcodeTable {
		n += len(ops)
	}
	return n
}
