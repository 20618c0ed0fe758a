package vm

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/chazu/pvm/pkg/bytecode"
)

// handler executes one decoded instruction. On success the interpreter
// continues at i.next; a handler that branches overwrites it.
type handler func(i *Interpreter, in bytecode.Instruction) error

// handlers is the dispatch table indexed by kind and op. Each handler
// switches on the type tag itself. Empty slots are invalid instructions.
var handlers = [bytecode.NumKinds][bytecode.NumOps]handler{
	bytecode.KindHalt: {0: execHalt},
	bytecode.KindImm:  {0: execImm},
	bytecode.KindReg:  {bytecode.OpMov: execMov},
	bytecode.KindBinary: {
		bytecode.OpAdd:   execAdd,
		bytecode.OpSub:   execSub,
		bytecode.OpMul:   execMul,
		bytecode.OpDiv:   execDiv,
		bytecode.OpLess:  execLess,
		bytecode.OpEqual: execEqual,
	},
	bytecode.KindUnary: {
		bytecode.OpAbs:   execAbs,
		bytecode.OpSqrt:  execSqrt,
		bytecode.OpRead:  execRead,
		bytecode.OpWrite: execWrite,
		bytecode.OpCast:  execCast,
	},
	bytecode.KindBranch: {
		bytecode.OpBranch: execBranch,
		bytecode.OpCall:   execCall,
		bytecode.OpReturn: execReturn,
	},
	bytecode.KindNew: {
		bytecode.OpObject: execNewObject,
		bytecode.OpArray:  execNewArray,
	},
	bytecode.KindArrayOp: {
		bytecode.OpGep:  execGep,
		bytecode.OpSize: execArraySize,
	},
	bytecode.KindObjFieldGet: {0: execFieldGet},
	bytecode.KindObjFieldSet: {0: execFieldSet},
}

func lookupHandler(in bytecode.Instruction) handler {
	if int(in.Kind) >= bytecode.NumKinds || int(in.Op) >= bytecode.NumOps {
		return nil
	}
	return handlers[in.Kind][in.Op]
}

// ---------------------------------------------------------------------------
// Halt, Imm, Reg
// ---------------------------------------------------------------------------

func execHalt(i *Interpreter, in bytecode.Instruction) error {
	i.status = StatusHalted
	return nil
}

func execImm(i *Interpreter, in bytecode.Instruction) error {
	switch in.Type {
	case bytecode.TypeInt:
		i.setAcc(FromInt(in.ImmInt()))
	case bytecode.TypeFloat:
		i.setAcc(FromHalf(in.ImmHalf()))
	case bytecode.TypeBool:
		i.setAcc(FromBool(in.Imm != 0))
	case bytecode.TypeChar:
		i.setAcc(FromChar(byte(in.Imm)))
	default:
		return invalid(in)
	}
	return nil
}

func execMov(i *Interpreter, in bytecode.Instruction) error {
	f := i.frame()
	f.WriteReg(in.R1, f.Acc())
	return nil
}

// ---------------------------------------------------------------------------
// Binary
// ---------------------------------------------------------------------------

// arith applies an int32 or float32 operation to R1 and R2 according to
// the type tag. Integer results wrap.
func arith(i *Interpreter, in bytecode.Instruction, fi func(a, b int32) int32, ff func(a, b float32) float32) error {
	a, b := i.reg(in.R1), i.reg(in.R2)
	switch in.Type {
	case bytecode.TypeInt:
		i.setAcc(FromInt(fi(a.Int(), b.Int())))
	case bytecode.TypeFloat:
		i.setAcc(FromFloat(ff(a.Float(), b.Float())))
	default:
		return invalid(in)
	}
	return nil
}

func execAdd(i *Interpreter, in bytecode.Instruction) error {
	return arith(i, in,
		func(a, b int32) int32 { return a + b },
		func(a, b float32) float32 { return a + b })
}

func execSub(i *Interpreter, in bytecode.Instruction) error {
	return arith(i, in,
		func(a, b int32) int32 { return a - b },
		func(a, b float32) float32 { return a - b })
}

func execMul(i *Interpreter, in bytecode.Instruction) error {
	return arith(i, in,
		func(a, b int32) int32 { return a * b },
		func(a, b float32) float32 { return a * b })
}

func execDiv(i *Interpreter, in bytecode.Instruction) error {
	if in.Type == bytecode.TypeInt && i.reg(in.R2).Int() == 0 {
		return ErrDivisionByZero
	}
	return arith(i, in,
		func(a, b int32) int32 { return a / b },
		func(a, b float32) float32 { return a / b })
}

// compare evaluates a predicate over R1 and R2 and stores a Bool.
func compare(i *Interpreter, in bytecode.Instruction,
	fi func(a, b int32) bool, ff func(a, b float32) bool, fu func(a, b uint8) bool) error {
	a, b := i.reg(in.R1), i.reg(in.R2)
	var r bool
	switch in.Type {
	case bytecode.TypeInt:
		r = fi(a.Int(), b.Int())
	case bytecode.TypeFloat:
		r = ff(a.Float(), b.Float())
	case bytecode.TypeBool:
		r = fu(boolByte(a.Bool()), boolByte(b.Bool()))
	case bytecode.TypeChar:
		r = fu(a.Char(), b.Char())
	default:
		return invalid(in)
	}
	i.setAcc(FromBool(r))
	return nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func execLess(i *Interpreter, in bytecode.Instruction) error {
	return compare(i, in,
		func(a, b int32) bool { return a < b },
		func(a, b float32) bool { return a < b },
		func(a, b uint8) bool { return a < b })
}

func execEqual(i *Interpreter, in bytecode.Instruction) error {
	return compare(i, in,
		func(a, b int32) bool { return a == b },
		func(a, b float32) bool { return a == b },
		func(a, b uint8) bool { return a == b })
}

// ---------------------------------------------------------------------------
// Unary
// ---------------------------------------------------------------------------

func execAbs(i *Interpreter, in bytecode.Instruction) error {
	v := i.reg(in.R1)
	switch in.Type {
	case bytecode.TypeInt:
		n := v.Int()
		if n < 0 {
			n = -n
		}
		i.setAcc(FromInt(n))
	case bytecode.TypeFloat:
		i.setAcc(FromFloat(float32(math.Abs(float64(v.Float())))))
	default:
		return invalid(in)
	}
	return nil
}

func execSqrt(i *Interpreter, in bytecode.Instruction) error {
	v := i.reg(in.R1)
	switch in.Type {
	case bytecode.TypeInt:
		n := v.Int()
		if n < 0 {
			return fmt.Errorf("sqrt(%d): %w", n, ErrNegativeSqrt)
		}
		i.setAcc(FromInt(int32(math.Sqrt(float64(n)))))
	case bytecode.TypeFloat:
		i.setAcc(FromFloat(float32(math.Sqrt(float64(v.Float())))))
	default:
		return invalid(in)
	}
	return nil
}

// execCast converts R1 into the instruction's type: Float reads an Int,
// Int reads a Float and truncates toward zero, saturating at the int32
// limits. NaN converts to 0.
func execCast(i *Interpreter, in bytecode.Instruction) error {
	v := i.reg(in.R1)
	switch in.Type {
	case bytecode.TypeFloat:
		i.setAcc(FromFloat(float32(v.Int())))
	case bytecode.TypeInt:
		i.setAcc(FromInt(truncInt32(v.Float())))
	default:
		return invalid(in)
	}
	return nil
}

func truncInt32(f float32) int32 {
	switch {
	case math.IsNaN(float64(f)):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	default:
		return int32(f)
	}
}

func execWrite(i *Interpreter, in bytecode.Instruction) error {
	v := i.reg(in.R1)
	var s string
	switch in.Type {
	case bytecode.TypeInt:
		s = strconv.FormatInt(int64(v.Int()), 10)
	case bytecode.TypeFloat:
		s = strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
	case bytecode.TypeBool:
		s = strconv.FormatBool(v.Bool())
	case bytecode.TypeChar:
		s = string([]byte{v.Char()})
	default:
		return invalid(in)
	}
	if _, err := io.WriteString(i.out, s+"\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrOutput, err)
	}
	return nil
}

func execRead(i *Interpreter, in bytecode.Instruction) error {
	switch in.Type {
	case bytecode.TypeInt, bytecode.TypeFloat, bytecode.TypeBool, bytecode.TypeChar:
	default:
		return invalid(in)
	}

	var tok string
	if _, err := fmt.Fscan(i.in, &tok); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrInputExhausted
		}
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	v, err := parseToken(in.Type, tok)
	if err != nil {
		return err
	}
	i.setAcc(v)
	return nil
}

func parseToken(t bytecode.Type, tok string) (Reg, error) {
	switch t {
	case bytecode.TypeInt:
		n, err := strconv.ParseInt(tok, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an int", ErrMalformedInput, tok)
		}
		return FromInt(int32(n)), nil
	case bytecode.TypeFloat:
		f, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a float", ErrMalformedInput, tok)
		}
		return FromFloat(float32(f)), nil
	case bytecode.TypeBool:
		b, err := strconv.ParseBool(tok)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a bool", ErrMalformedInput, tok)
		}
		return FromBool(b), nil
	default:
		if len(tok) != 1 {
			return 0, fmt.Errorf("%w: %q is not a char", ErrMalformedInput, tok)
		}
		return FromChar(tok[0]), nil
	}
}

// ---------------------------------------------------------------------------
// Branch, Call, Return
// ---------------------------------------------------------------------------

func execBranch(i *Interpreter, in bytecode.Instruction) error {
	if i.reg(in.R1).Bool() {
		i.next = i.pc + int(in.Offset)
	}
	return nil
}

// execCall enters a new frame when R1 is true. The callee's accumulator
// starts as a copy of the caller's; every other register is zero.
func execCall(i *Interpreter, in bytecode.Instruction) error {
	if !i.reg(in.R1).Bool() {
		return nil
	}
	arg := i.frame().Acc()
	f, err := i.stack.Push(i.pc + 1)
	if err != nil {
		return err
	}
	f.SetAcc(arg)
	i.next = i.pc + int(in.Offset)

	if i.profiler != nil {
		i.profiler.RecordCall(i.next, i.stack.Depth())
	}
	return nil
}

// execReturn pops the current frame and hands R1 to the caller's accumulator.
func execReturn(i *Interpreter, in bytecode.Instruction) error {
	result := i.reg(in.R1)
	popped, err := i.stack.Pop()
	if err != nil {
		return err
	}
	i.setAcc(result)
	i.next = popped.ReturnPC
	return nil
}

// ---------------------------------------------------------------------------
// Heap
// ---------------------------------------------------------------------------

func execNewObject(i *Interpreter, in bytecode.Instruction) error {
	ref, err := i.objects.NewObject(KlassID(in.Klass))
	if err != nil {
		return err
	}
	i.setAcc(FromAddr(ref))
	return nil
}

func execNewArray(i *Interpreter, in bytecode.Instruction) error {
	ref, err := i.objects.NewArray(KlassID(in.Klass), i.reg(in.R1).Int())
	if err != nil {
		return err
	}
	i.setAcc(FromAddr(ref))
	return nil
}

func execGep(i *Interpreter, in bytecode.Instruction) error {
	elem, err := i.objects.ArrayGep(i.reg(in.R1).Addr(), i.reg(in.R2).Int())
	if err != nil {
		return err
	}
	i.setAcc(FromAddr(elem))
	return nil
}

func execArraySize(i *Interpreter, in bytecode.Instruction) error {
	n, err := i.objects.ArraySize(i.reg(in.R1).Addr())
	if err != nil {
		return err
	}
	i.setAcc(FromInt(n))
	return nil
}

func execFieldGet(i *Interpreter, in bytecode.Instruction) error {
	v, err := i.objects.FieldGet(i.reg(in.R1).Addr(), FieldID(in.Field))
	if err != nil {
		return err
	}
	i.setAcc(v)
	return nil
}

func execFieldSet(i *Interpreter, in bytecode.Instruction) error {
	return i.objects.FieldSet(i.reg(in.R1).Addr(), FieldID(in.Field), i.reg(in.R2))
}
