package vm

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/pvm/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

// Dispatch errors.
var (
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrPCOutOfRange       = errors.New("program counter out of range")
)

// Arithmetic errors.
var (
	ErrDivisionByZero = errors.New("integer division by zero")
	ErrNegativeSqrt   = errors.New("square root of negative integer")
)

// I/O errors.
var (
	ErrInputExhausted = errors.New("input exhausted")
	ErrMalformedInput = errors.New("malformed input")
	ErrOutput         = errors.New("output failed")
)

// Memory errors.
var (
	ErrOutOfMemory = errors.New("out of memory")
	ErrOutOfBounds = errors.New("out of bounds")
)

// Object model errors.
var (
	ErrUnknownKlass = errors.New("unknown klass")
	ErrUnknownField = errors.New("unknown field")
	ErrNegativeSize = errors.New("negative array size")
)

// Frame errors.
var (
	ErrStackUnderflow = errors.New("call stack underflow")
	ErrStackOverflow  = errors.New("call stack overflow")
)

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

// ErrorCategory groups sentinel errors by the kind of failure.
type ErrorCategory string

const (
	CategoryNone        ErrorCategory = ""
	CategoryDispatch    ErrorCategory = "DispatchError"
	CategoryArithmetic  ErrorCategory = "ArithmeticError"
	CategoryIO          ErrorCategory = "IOError"
	CategoryOutOfMemory ErrorCategory = "OutOfMemory"
	CategoryOutOfBounds ErrorCategory = "OutOfBounds"
	CategoryObject      ErrorCategory = "ObjectError"
	CategoryFrame       ErrorCategory = "FrameError"
	CategoryCanceled    ErrorCategory = "Canceled"
	CategoryUnknown     ErrorCategory = "Error"
)

var categories = []struct {
	err      error
	category ErrorCategory
}{
	{ErrInvalidInstruction, CategoryDispatch},
	{ErrPCOutOfRange, CategoryDispatch},
	{ErrDivisionByZero, CategoryArithmetic},
	{ErrNegativeSqrt, CategoryArithmetic},
	{ErrInputExhausted, CategoryIO},
	{ErrMalformedInput, CategoryIO},
	{ErrOutput, CategoryIO},
	{ErrOutOfMemory, CategoryOutOfMemory},
	{ErrOutOfBounds, CategoryOutOfBounds},
	{ErrUnknownKlass, CategoryObject},
	{ErrUnknownField, CategoryObject},
	{ErrNegativeSize, CategoryObject},
	{ErrStackUnderflow, CategoryFrame},
	{ErrStackOverflow, CategoryFrame},
}

// Category returns the category of err, looking through any wrapping.
// A nil error has CategoryNone.
func Category(err error) ErrorCategory {
	if err == nil {
		return CategoryNone
	}
	for _, c := range categories {
		if errors.Is(err, c.err) {
			return c.category
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryCanceled
	}
	return CategoryUnknown
}

// ---------------------------------------------------------------------------
// RunError
// ---------------------------------------------------------------------------

// RunError records the instruction that aborted a run.
type RunError struct {
	PC          int
	Instruction bytecode.Instruction
	Err         error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("pc %04d: %s: %v", e.PC, e.Instruction, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
