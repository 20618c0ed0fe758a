package vm

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/chazu/pvm/pkg/bytecode"
	"github.com/chazu/pvm/pkg/programs"
)

// newTestInterpreter builds an interpreter reading input and writing to
// the returned buffer.
func newTestInterpreter(t *testing.T, code bytecode.Code, input string, cfg Config) (*Interpreter, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cfg.Output = &out
	cfg.Input = strings.NewReader(input)
	interp, err := NewInterpreter(code, cfg)
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	return interp, &out
}

// mustRun runs code to completion and fails the test on any error.
func mustRun(t *testing.T, code bytecode.Code, input string, klasses ...Klass) (*Interpreter, string) {
	t.Helper()
	interp, out := newTestInterpreter(t, code, input, Config{Klasses: klasses})
	if err := interp.Run(); err != nil {
		t.Fatalf("Run: %v\n%s", err, code.Disassemble())
	}
	if interp.Status() != StatusHalted {
		t.Fatalf("status = %s, want halted", interp.Status())
	}
	return interp, out.String()
}

// runErr runs code and returns the error it faulted with.
func runErr(t *testing.T, code bytecode.Code, input string, cfg Config) (*Interpreter, error) {
	t.Helper()
	interp, _ := newTestInterpreter(t, code, input, cfg)
	err := interp.Run()
	if err == nil {
		t.Fatalf("Run succeeded, want an error\n%s", code.Disassemble())
	}
	return interp, err
}

func layouts(ls []programs.KlassLayout) []Klass {
	var ks []Klass
	for _, l := range ls {
		ks = append(ks, LayoutKlass(l.Name, l.Sizes...))
	}
	return ks
}

// ---------------------------------------------------------------------------
// Sample programs
// ---------------------------------------------------------------------------

func TestFactorial(t *testing.T) {
	tests := []struct {
		n    int32
		want int32
	}{
		{0, 1},
		{1, 1},
		{5, 120},
		{10, 3628800},
	}

	for _, tt := range tests {
		interp, _ := mustRun(t, programs.Factorial(tt.n), "")
		if got := interp.Acc().Int(); got != tt.want {
			t.Errorf("fact(%d) = %d, want %d", tt.n, got, tt.want)
		}
		if interp.Depth() != 1 {
			t.Errorf("fact(%d) left depth %d, want 1", tt.n, interp.Depth())
		}
	}
}

func TestSum(t *testing.T) {
	interp, _ := mustRun(t, programs.Sum(5), "")
	if got := interp.Acc().Int(); got != 15 {
		t.Errorf("sum(5) = %d, want 15", got)
	}
}

func TestLoop(t *testing.T) {
	interp, _ := mustRun(t, programs.Loop(10), "")
	f, _ := interp.Frame(0)

	want := map[bytecode.RegID]int32{1: 10, 4: 46, 5: 2116}
	for r, v := range want {
		if got := f.ReadReg(r).Int(); got != v {
			t.Errorf("r%d = %d, want %d", r, got, v)
		}
	}
}

func TestArrayStore(t *testing.T) {
	interp, _ := mustRun(t, programs.ArrayStore(), "")
	if got := interp.Acc().Int(); got != 0xD {
		t.Errorf("acc = %d, want 13", got)
	}

	f, _ := interp.Frame(0)
	arr := f.ReadReg(2).Addr()
	if n, _ := interp.Objects().ArraySize(arr); n != 10 {
		t.Errorf("array size = %d, want 10", n)
	}
}

func TestQuadratic(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 3 2", "-2\n-1\n"},
		{"1 2 1", "-1\n"},
		{"1 0 1", ""},
		{"-1 0 4", "-2\n2\n"},
	}

	for _, tt := range tests {
		_, out := mustRun(t, programs.Quadratic(), tt.input)
		if out != tt.want {
			t.Errorf("quadratic(%s) printed %q, want %q", tt.input, out, tt.want)
		}
	}
}

func TestDistance(t *testing.T) {
	_, out := mustRun(t, programs.Distance(), "", layouts([]programs.KlassLayout{programs.PointLayout})...)
	if out != "5\n" {
		t.Errorf("distance printed %q, want %q", out, "5\n")
	}
}

func TestAllProgramsRun(t *testing.T) {
	for _, p := range programs.All() {
		t.Run(p.Name, func(t *testing.T) {
			mustRun(t, p.Code, p.Input, layouts(p.Klasses)...)
		})
	}
}

// ---------------------------------------------------------------------------
// Arithmetic
// ---------------------------------------------------------------------------

// binaryInt computes a op b through registers 1 and 2.
func binaryInt(op bytecode.Op, a, b int32) bytecode.Code {
	bld := bytecode.NewBuilder()
	bld.ImmInt(a)
	bld.Mov(1)
	bld.ImmInt(b)
	bld.Mov(2)
	bld.Binary(op, bytecode.TypeInt, 1, 2)
	bld.Halt()
	return bld.MustBuild()
}

func binaryFloat(op bytecode.Op, a, b float32) bytecode.Code {
	bld := bytecode.NewBuilder()
	bld.ImmFloat(a)
	bld.Mov(1)
	bld.ImmFloat(b)
	bld.Mov(2)
	bld.Binary(op, bytecode.TypeFloat, 1, 2)
	bld.Halt()
	return bld.MustBuild()
}

func TestIntArithmetic(t *testing.T) {
	const maxInt, minInt = 1<<31 - 1, -1 << 31

	tests := []struct {
		name string
		op   bytecode.Op
		a, b int32
		want int32
	}{
		{"add", bytecode.OpAdd, 2, 3, 5},
		{"add wraps", bytecode.OpAdd, maxInt, 1, minInt},
		{"sub", bytecode.OpSub, 2, 5, -3},
		{"sub wraps", bytecode.OpSub, minInt, 1, maxInt},
		{"mul", bytecode.OpMul, -4, 6, -24},
		{"mul wraps", bytecode.OpMul, 1 << 16, 1 << 16, 0},
		{"div truncates", bytecode.OpDiv, -7, 2, -3},
		{"less", bytecode.OpLess, 1, 2, 1},
		{"not less", bytecode.OpLess, 2, 2, 0},
		{"equal", bytecode.OpEqual, -9, -9, 1},
	}

	for _, tt := range tests {
		interp, _ := mustRun(t, binaryInt(tt.op, tt.a, tt.b), "")
		if got := interp.Acc().Int(); got != tt.want {
			t.Errorf("%s: %d op %d = %d, want %d", tt.name, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFloatArithmetic(t *testing.T) {
	tests := []struct {
		op   bytecode.Op
		a, b float32
		want float32
	}{
		{bytecode.OpAdd, 1.5, 0.25, 1.75},
		{bytecode.OpSub, 1, 2.5, -1.5},
		{bytecode.OpMul, -2, 0.5, -1},
		{bytecode.OpDiv, 3, 4, 0.75},
	}

	for _, tt := range tests {
		interp, _ := mustRun(t, binaryFloat(tt.op, tt.a, tt.b), "")
		if got := interp.Acc().Float(); got != tt.want {
			t.Errorf("%v op%d %v = %v, want %v", tt.a, tt.op, tt.b, got, tt.want)
		}
	}

	interp, _ := mustRun(t, binaryFloat(bytecode.OpLess, -1, 0.5), "")
	if !interp.Acc().Bool() {
		t.Error("-1 < 0.5 should be true")
	}
}

func TestFloatDivisionByZero(t *testing.T) {
	interp, _ := mustRun(t, binaryFloat(bytecode.OpDiv, 1, 0), "")
	if got := interp.Acc().Float(); !math.IsInf(float64(got), 1) {
		t.Errorf("1/0 = %v, want +Inf", got)
	}

	interp, _ = mustRun(t, binaryFloat(bytecode.OpDiv, 0, 0), "")
	if got := interp.Acc().Float(); !math.IsNaN(float64(got)) {
		t.Errorf("0/0 = %v, want NaN", got)
	}
}

func TestIntDivisionByZero(t *testing.T) {
	b := bytecode.NewBuilder()
	b.ImmInt(7)
	b.Mov(1)
	b.ImmInt(0)
	b.Mov(2)
	b.ImmInt(99)
	b.Binary(bytecode.OpDiv, bytecode.TypeInt, 1, 2)
	b.Halt()

	interp, err := runErr(t, b.MustBuild(), "", Config{})
	if !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("err = %v, want ErrDivisionByZero", err)
	}
	var re *RunError
	if !errors.As(err, &re) || re.PC != 5 {
		t.Errorf("RunError = %+v, want pc 5", re)
	}
	if interp.Status() != StatusFaulted || interp.PC() != 5 {
		t.Errorf("status %s at pc %d, want faulted at 5", interp.Status(), interp.PC())
	}
	if interp.Acc().Int() != 99 {
		t.Errorf("acc = %d, want 99 (unchanged)", interp.Acc().Int())
	}
	if Category(err) != CategoryArithmetic {
		t.Errorf("Category = %q", Category(err))
	}

	if again := interp.Run(); again != err {
		t.Errorf("Run after fault = %v, want the original error", again)
	}
}

func TestCompareCharAndBool(t *testing.T) {
	b := bytecode.NewBuilder()
	b.ImmChar('a')
	b.Mov(1)
	b.ImmChar('b')
	b.Mov(2)
	b.Binary(bytecode.OpLess, bytecode.TypeChar, 1, 2)
	b.Mov(10)
	b.ImmBool(true)
	b.Mov(3)
	b.ImmBool(false)
	b.Mov(4)
	b.Binary(bytecode.OpLess, bytecode.TypeBool, 4, 3)
	b.Mov(11)
	b.Binary(bytecode.OpEqual, bytecode.TypeBool, 3, 4)
	b.Mov(12)
	b.Halt()

	interp, _ := mustRun(t, b.MustBuild(), "")
	f, _ := interp.Frame(0)
	if !f.ReadReg(10).Bool() {
		t.Error("'a' < 'b' should be true")
	}
	if !f.ReadReg(11).Bool() {
		t.Error("false < true should be true")
	}
	if f.ReadReg(12).Bool() {
		t.Error("true == false should be false")
	}
}

// ---------------------------------------------------------------------------
// Unary
// ---------------------------------------------------------------------------

func TestUnary(t *testing.T) {
	tests := []struct {
		name string
		load func(b *bytecode.Builder)
		op   bytecode.Op
		typ  bytecode.Type
		want Reg
	}{
		{"abs int", func(b *bytecode.Builder) { b.ImmInt(-5) }, bytecode.OpAbs, bytecode.TypeInt, FromInt(5)},
		{"abs float", func(b *bytecode.Builder) { b.ImmFloat(-2.5) }, bytecode.OpAbs, bytecode.TypeFloat, FromFloat(2.5)},
		{"sqrt int floors", func(b *bytecode.Builder) { b.ImmInt(17) }, bytecode.OpSqrt, bytecode.TypeInt, FromInt(4)},
		{"sqrt float", func(b *bytecode.Builder) { b.ImmFloat(2.25) }, bytecode.OpSqrt, bytecode.TypeFloat, FromFloat(1.5)},
		{"cast to float", func(b *bytecode.Builder) { b.ImmInt(-7) }, bytecode.OpCast, bytecode.TypeFloat, FromFloat(-7)},
		{"cast to int", func(b *bytecode.Builder) { b.ImmFloat(-2.5) }, bytecode.OpCast, bytecode.TypeInt, FromInt(-2)},
		{"cast large", func(b *bytecode.Builder) { b.ImmFloat(65504) }, bytecode.OpCast, bytecode.TypeInt, FromInt(65504)},
	}

	for _, tt := range tests {
		b := bytecode.NewBuilder()
		tt.load(b)
		b.Mov(1)
		b.Unary(tt.op, tt.typ, 1)
		b.Halt()

		interp, _ := mustRun(t, b.MustBuild(), "")
		if got := interp.Acc(); got != tt.want {
			t.Errorf("%s = %#x, want %#x", tt.name, uint64(got), uint64(tt.want))
		}
	}
}

func TestTruncInt32Saturates(t *testing.T) {
	nan := FromInt(0x7FC00000).Float()
	tests := []struct {
		in   float32
		want int32
	}{
		{1e10, 1<<31 - 1},
		{-1e10, -1 << 31},
		{nan, 0},
		{3.99, 3},
	}
	for _, tt := range tests {
		if got := truncInt32(tt.in); got != tt.want {
			t.Errorf("truncInt32(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSqrtNegativeInt(t *testing.T) {
	b := bytecode.NewBuilder()
	b.ImmInt(-4)
	b.Mov(1)
	b.Unary(bytecode.OpSqrt, bytecode.TypeInt, 1)
	b.Halt()

	if _, err := runErr(t, b.MustBuild(), "", Config{}); !errors.Is(err, ErrNegativeSqrt) {
		t.Errorf("err = %v, want ErrNegativeSqrt", err)
	}
}

// ---------------------------------------------------------------------------
// I/O
// ---------------------------------------------------------------------------

func TestImmWriteRoundTrip(t *testing.T) {
	values := []int32{0, 1, -1, 255, -256, 1000, 32767, -32768}

	b := bytecode.NewBuilder()
	var want strings.Builder
	for _, v := range values {
		b.ImmInt(v)
		b.Mov(1)
		b.Write(bytecode.TypeInt, 1)
		want.WriteString(strconv.Itoa(int(v)) + "\n")
	}
	b.Halt()

	_, out := mustRun(t, b.MustBuild(), "")
	if out != want.String() {
		t.Errorf("output = %q, want %q", out, want.String())
	}
}

func TestWriteFormats(t *testing.T) {
	b := bytecode.NewBuilder()
	b.ImmFloat(1.5)
	b.Mov(1)
	b.Write(bytecode.TypeFloat, 1)
	b.ImmBool(true)
	b.Mov(2)
	b.Write(bytecode.TypeBool, 2)
	b.ImmChar('x')
	b.Mov(3)
	b.Write(bytecode.TypeChar, 3)
	b.Halt()

	_, out := mustRun(t, b.MustBuild(), "")
	if out != "1.5\ntrue\nx\n" {
		t.Errorf("output = %q", out)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteFailure(t *testing.T) {
	b := bytecode.NewBuilder()
	b.Write(bytecode.TypeInt, 0)
	b.Halt()

	interp, err := NewInterpreter(b.MustBuild(), Config{Output: failingWriter{}})
	if err != nil {
		t.Fatal(err)
	}
	if err := interp.Run(); !errors.Is(err, ErrOutput) || Category(err) != CategoryIO {
		t.Errorf("err = %v, want ErrOutput", err)
	}
}

func TestRead(t *testing.T) {
	tests := []struct {
		typ   bytecode.Type
		input string
		want  Reg
	}{
		{bytecode.TypeInt, "42", FromInt(42)},
		{bytecode.TypeInt, "  -17\n", FromInt(-17)},
		{bytecode.TypeFloat, "2.5", FromFloat(2.5)},
		{bytecode.TypeBool, "true", True},
		{bytecode.TypeChar, "x", FromChar('x')},
	}

	for _, tt := range tests {
		b := bytecode.NewBuilder()
		b.Read(tt.typ)
		b.Halt()

		interp, _ := mustRun(t, b.MustBuild(), tt.input)
		if got := interp.Acc(); got != tt.want {
			t.Errorf("read %s %q = %#x, want %#x", tt.typ, tt.input, uint64(got), uint64(tt.want))
		}
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		typ   bytecode.Type
		input string
		want  error
	}{
		{bytecode.TypeInt, "", ErrInputExhausted},
		{bytecode.TypeInt, "   \n", ErrInputExhausted},
		{bytecode.TypeInt, "abc", ErrMalformedInput},
		{bytecode.TypeInt, "99999999999", ErrMalformedInput},
		{bytecode.TypeFloat, "1.2.3", ErrMalformedInput},
		{bytecode.TypeBool, "maybe", ErrMalformedInput},
		{bytecode.TypeChar, "xy", ErrMalformedInput},
	}

	for _, tt := range tests {
		b := bytecode.NewBuilder()
		b.Read(tt.typ)
		b.Halt()

		_, err := runErr(t, b.MustBuild(), tt.input, Config{})
		if !errors.Is(err, tt.want) {
			t.Errorf("read %s %q: err = %v, want %v", tt.typ, tt.input, err, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

func TestBranchNotTaken(t *testing.T) {
	b := bytecode.NewBuilder()
	skip := b.NewLabel("skip")
	b.ImmBool(false)
	b.Mov(1)
	b.ImmInt(1)
	b.BranchTo(1, skip)
	b.ImmInt(2)
	b.Mark(skip)
	b.Halt()

	interp, _ := mustRun(t, b.MustBuild(), "")
	if interp.Acc().Int() != 2 {
		t.Errorf("acc = %d, want 2", interp.Acc().Int())
	}
}

func TestCallNotTaken(t *testing.T) {
	b := bytecode.NewBuilder()
	fn := b.NewLabel("fn")
	b.ImmInt(3)
	b.CallTo(1, fn) // r1 is false
	b.Halt()
	b.Mark(fn)
	b.ImmInt(4)
	b.Return(bytecode.Acc)

	interp, _ := mustRun(t, b.MustBuild(), "")
	if interp.Acc().Int() != 3 || interp.PC() != 2 {
		t.Errorf("acc %d at pc %d, want 3 at 2", interp.Acc().Int(), interp.PC())
	}
}

func TestCallPassesOnlyAccumulator(t *testing.T) {
	b := bytecode.NewBuilder()
	fn := b.NewLabel("fn")
	b.ImmBool(true)
	b.Mov(1)
	b.ImmInt(8)
	b.Mov(2)
	b.CallTo(1, fn)
	b.Halt()
	b.Mark(fn)
	b.Return(2) // r2 is zero in the callee

	interp, _ := mustRun(t, b.MustBuild(), "")
	if interp.Acc() != 0 {
		t.Errorf("acc = %d, want 0", interp.Acc().Int())
	}
	f, _ := interp.Frame(0)
	if f.ReadReg(2).Int() != 8 {
		t.Error("caller r2 was clobbered")
	}
}

func TestReturnFromEntryFrame(t *testing.T) {
	b := bytecode.NewBuilder()
	b.Return(bytecode.Acc)

	_, err := runErr(t, b.MustBuild(), "", Config{})
	if !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("err = %v, want ErrStackUnderflow", err)
	}
	if Category(err) != CategoryFrame {
		t.Errorf("Category = %q", Category(err))
	}
}

func TestUnboundedRecursionOverflows(t *testing.T) {
	b := bytecode.NewBuilder()
	top := b.NewLabel("top")
	b.ImmBool(true)
	b.Mark(top)
	b.Mov(1)
	b.CallTo(1, top)
	b.Halt()

	interp, err := runErr(t, b.MustBuild(), "", Config{MaxCallDepth: 16})
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("err = %v, want ErrStackOverflow", err)
	}
	if interp.Depth() != 16 {
		t.Errorf("Depth() = %d, want 16", interp.Depth())
	}
}

func TestPCOutOfRange(t *testing.T) {
	b := bytecode.NewBuilder()
	b.ImmInt(1)

	interp, err := runErr(t, b.MustBuild(), "", Config{})
	if !errors.Is(err, ErrPCOutOfRange) {
		t.Errorf("err = %v, want ErrPCOutOfRange", err)
	}
	if interp.PC() != 1 {
		t.Errorf("PC() = %d, want 1", interp.PC())
	}
}

func TestInvalidInstruction(t *testing.T) {
	tests := []struct {
		name string
		code bytecode.Code
	}{
		{"unknown kind", bytecode.NewCode([]bytecode.Word{0xEE << 56})},
		{"unknown op", bytecode.NewCode([]bytecode.Word{uint64(bytecode.KindBinary)<<56 | 0xF<<52})},
		{"add bool", bytecode.Assemble(bytecode.Instruction{Kind: bytecode.KindBinary, Op: bytecode.OpAdd, Type: bytecode.TypeBool})},
		{"imm untyped", bytecode.Assemble(bytecode.Instruction{Kind: bytecode.KindImm})},
	}

	for _, tt := range tests {
		_, err := runErr(t, tt.code, "", Config{})
		if !errors.Is(err, ErrInvalidInstruction) {
			t.Errorf("%s: err = %v, want ErrInvalidInstruction", tt.name, err)
		}
		if Category(err) != CategoryDispatch {
			t.Errorf("%s: Category = %q", tt.name, Category(err))
		}
	}
}

func TestHaltKeepsPC(t *testing.T) {
	b := bytecode.NewBuilder()
	b.ImmInt(1)
	b.Halt()
	b.ImmInt(2)

	interp, _ := mustRun(t, b.MustBuild(), "")
	if interp.PC() != 1 || interp.Acc().Int() != 1 {
		t.Errorf("pc %d acc %d, want 1 and 1", interp.PC(), interp.Acc().Int())
	}
	if err := interp.Step(); err != nil {
		t.Errorf("Step after HALT = %v", err)
	}
	if interp.PC() != 1 {
		t.Error("Step after HALT moved the pc")
	}
}

func TestRunContextCanceled(t *testing.T) {
	code := programs.Loop(10)
	interp, _ := newTestInterpreter(t, code, "", Config{})
	for n := 0; n < 3; n++ {
		if err := interp.Step(); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := interp.RunContext(ctx)
	if !errors.Is(err, context.Canceled) || Category(err) != CategoryCanceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	var re *RunError
	if !errors.As(err, &re) {
		t.Fatalf("err = %T, want *RunError", err)
	}
	next, _ := code.Fetch(interp.PC())
	if re.PC != interp.PC() || re.Instruction.String() != next.String() {
		t.Errorf("RunError at pc %d %s, want pc %d %s", re.PC, re.Instruction, interp.PC(), next)
	}
	if !strings.Contains(err.Error(), next.String()) {
		t.Errorf("message %q does not name %s", err.Error(), next)
	}
	if interp.Status() != StatusRunning {
		t.Fatalf("status = %s, want running", interp.Status())
	}

	if err := interp.RunContext(context.Background()); err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	f, _ := interp.Frame(0)
	if f.ReadReg(5).Int() != 2116 {
		t.Errorf("r5 = %d, want 2116", f.ReadReg(5).Int())
	}
}

// ---------------------------------------------------------------------------
// Heap instructions
// ---------------------------------------------------------------------------

func TestHeapInstructionErrors(t *testing.T) {
	unknown := bytecode.NewBuilder()
	unknown.New(99)
	unknown.Halt()

	negative := bytecode.NewBuilder()
	negative.ImmInt(-1)
	negative.Mov(1)
	negative.NewArray(programs.KlassInt, 1)
	negative.Halt()

	tests := []struct {
		name string
		code bytecode.Code
		cfg  Config
		want error
	}{
		{"unknown klass", unknown.MustBuild(), Config{}, ErrUnknownKlass},
		{"negative size", negative.MustBuild(), Config{}, ErrNegativeSize},
		{"out of memory", programs.ArrayStore(), Config{HeapSize: 64}, ErrOutOfMemory},
		{"field of null", bytecode.Assemble(bytecode.Instruction{Kind: bytecode.KindObjFieldGet, R1: 9}), Config{}, ErrOutOfBounds},
	}

	for _, tt := range tests {
		_, err := runErr(t, tt.code, "", tt.cfg)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestGepBoundsCheckConfig(t *testing.T) {
	b := bytecode.NewBuilder()
	b.ImmInt(3)
	b.Mov(1)
	b.NewArray(programs.KlassChar, 1)
	b.Mov(2)
	b.ArraySize(2)
	b.Mov(3)
	b.Gep(2, 3) // index == size
	b.Halt()
	code := b.MustBuild()

	interp, _ := mustRun(t, code, "")
	f, _ := interp.Frame(0)
	if f.ReadReg(3).Int() != 3 {
		t.Errorf("ARRAY_SIZE = %d, want 3", f.ReadReg(3).Int())
	}

	_, err := runErr(t, code, "", Config{BoundsCheck: true})
	if !errors.Is(err, ErrOutOfBounds) || Category(err) != CategoryOutOfBounds {
		t.Errorf("err = %v, want ErrOutOfBounds", err)
	}
}

func TestNewInterpreterRejectsBadKlass(t *testing.T) {
	bad := NewKlass("Bad", 2, map[FieldID]Field{0: {Offset: 0, Size: 4}})
	if _, err := NewInterpreter(programs.Loop(1), Config{Klasses: []Klass{bad}}); err == nil {
		t.Error("NewInterpreter should reject an invalid klass")
	}
}

func TestRunIDIsUnique(t *testing.T) {
	a, _ := newTestInterpreter(t, programs.Loop(1), "", Config{})
	b, _ := newTestInterpreter(t, programs.Loop(1), "", Config{})
	if a.RunID() == "" || a.RunID() == b.RunID() {
		t.Errorf("run ids %q and %q", a.RunID(), b.RunID())
	}
}
