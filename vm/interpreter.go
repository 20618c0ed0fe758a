package vm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/pvm/pkg/bytecode"
)

// cancelCheckInterval is how many instructions RunContext executes
// between checks of its context.
const cancelCheckInterval = 1024

// Status is the execution state of an Interpreter.
type Status int

const (
	StatusRunning Status = iota
	StatusHalted
	StatusFaulted
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusHalted:
		return "halted"
	case StatusFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Config holds the construction options of an Interpreter. The zero value
// is usable.
type Config struct {
	// Output receives the lines printed by WRITE. Defaults to os.Stdout.
	Output io.Writer

	// Input supplies the tokens consumed by READ. Defaults to os.Stdin.
	Input io.Reader

	// Klasses are registered after the built-in primitives, so the first
	// one gets id NumBuiltinKlasses.
	Klasses []Klass

	// HeapSize is the arena capacity in bytes. Defaults to DefaultHeapSize.
	HeapSize int

	// MaxCallDepth bounds the call stack. Defaults to DefaultMaxCallDepth.
	MaxCallDepth int

	// BoundsCheck makes GEP fail on indexes outside the array.
	BoundsCheck bool

	// Trace logs every instruction at debug level.
	Trace bool

	// Profiler, if set, records instruction and call counts.
	Profiler *Profiler
}

// ---------------------------------------------------------------------------
// Interpreter
// ---------------------------------------------------------------------------

// Interpreter executes one program. It owns the klass table, the heap and
// the call stack for the duration of the run and is not safe for
// concurrent use.
type Interpreter struct {
	code    bytecode.Code
	klasses *KlassTable
	heap    *Heap
	objects *ObjectModel
	stack   *CallStack

	// pc is the only program counter. next is where the current
	// instruction continues; handlers overwrite it to branch.
	pc   int
	next int

	status Status
	err    error

	out io.Writer
	in  *bufio.Reader

	runID    string
	log      commonlog.Logger
	trace    bool
	profiler *Profiler
}

// NewInterpreter prepares code for execution with a single entry frame
// and pc at 0.
func NewInterpreter(code bytecode.Code, cfg Config) (*Interpreter, error) {
	klasses := NewKlassTable()
	for _, k := range cfg.Klasses {
		if err := k.Validate(); err != nil {
			return nil, fmt.Errorf("vm: %w", err)
		}
		klasses.Register(k)
	}

	heapSize := cfg.HeapSize
	if heapSize <= 0 {
		heapSize = DefaultHeapSize
	}
	heap := NewHeap(heapSize)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	in := cfg.Input
	if in == nil {
		in = os.Stdin
	}
	reader, ok := in.(*bufio.Reader)
	if !ok {
		reader = bufio.NewReader(in)
	}

	log := commonlog.GetLogger("pvm.vm")
	interp := &Interpreter{
		code:     code,
		klasses:  klasses,
		heap:     heap,
		objects:  NewObjectModel(heap, klasses, cfg.BoundsCheck),
		stack:    NewCallStack(cfg.MaxCallDepth),
		status:   StatusRunning,
		out:      out,
		in:       reader,
		runID:    uuid.NewString(),
		log:      log,
		trace:    cfg.Trace && log.AllowLevel(commonlog.Debug),
		profiler: cfg.Profiler,
	}

	log.Debugf("run %s: %d instructions, %d klasses, heap %d bytes",
		interp.runID, code.Len(), klasses.Len(), heapSize)
	return interp, nil
}

// ---------------------------------------------------------------------------
// Main interpreter loop
// ---------------------------------------------------------------------------

// Run executes until HALT or the first error.
func (i *Interpreter) Run() error {
	return i.run(nil)
}

// RunContext is like Run but stops with the context's error once ctx is
// done. The check happens every few instructions, so a blocked READ is
// not interrupted. A canceled run stays resumable.
func (i *Interpreter) RunContext(ctx context.Context) error {
	return i.run(ctx)
}

func (i *Interpreter) run(ctx context.Context) error {
	if i.status != StatusRunning {
		return i.err
	}
	i.log.Infof("run %s: start at pc %d", i.runID, i.pc)

	for steps := 0; i.status == StatusRunning; steps++ {
		if ctx != nil && steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				i.log.Infof("run %s: stopped at pc %d: %v", i.runID, i.pc, err)
				in, _ := i.code.Fetch(i.pc)
				return &RunError{PC: i.pc, Instruction: in, Err: err}
			}
		}
		if err := i.Step(); err != nil {
			i.log.Errorf("run %s: %v", i.runID, err)
			return err
		}
	}

	i.log.Infof("run %s: halted at pc %d", i.runID, i.pc)
	return nil
}

// Step executes a single instruction.
func (i *Interpreter) Step() error {
	if i.status != StatusRunning {
		return i.err
	}

	in, ok := i.code.Fetch(i.pc)
	if !ok {
		return i.fault(in, fmt.Errorf("pc %d with %d instructions: %w", i.pc, i.code.Len(), ErrPCOutOfRange))
	}

	if i.trace {
		i.log.Debugf("run %s: %04d  %s  acc=%#x depth=%d", i.runID, i.pc, in, uint64(i.Acc()), i.stack.Depth())
	}
	if i.profiler != nil {
		i.profiler.RecordInstruction(in.Kind, in.Op)
	}

	h := lookupHandler(in)
	if h == nil || !in.Valid() {
		return i.fault(in, invalid(in))
	}

	i.next = i.pc + 1
	if err := h(i, in); err != nil {
		return i.fault(in, err)
	}
	if i.status == StatusRunning {
		i.pc = i.next
	}
	return nil
}

func (i *Interpreter) fault(in bytecode.Instruction, err error) error {
	i.status = StatusFaulted
	i.err = &RunError{PC: i.pc, Instruction: in, Err: err}
	return i.err
}

func invalid(in bytecode.Instruction) error {
	return fmt.Errorf("kind %s op %d type %s: %w", in.Kind, in.Op, in.Type, ErrInvalidInstruction)
}

// ---------------------------------------------------------------------------
// Register helpers
// ---------------------------------------------------------------------------

func (i *Interpreter) frame() *Frame {
	return i.stack.Top()
}

func (i *Interpreter) reg(id bytecode.RegID) Reg {
	return i.stack.Top().ReadReg(id)
}

func (i *Interpreter) setAcc(v Reg) {
	i.stack.Top().SetAcc(v)
}

// ---------------------------------------------------------------------------
// Inspection
// ---------------------------------------------------------------------------

// Acc returns the accumulator of the current frame.
func (i *Interpreter) Acc() Reg {
	return i.stack.Top().Acc()
}

// Frame returns the frame at depth, where 0 is the entry frame.
func (i *Interpreter) Frame(depth int) (*Frame, bool) {
	return i.stack.At(depth)
}

// Depth returns the call stack depth, counting the entry frame.
func (i *Interpreter) Depth() int {
	return i.stack.Depth()
}

// PC returns the program counter. After a fault it addresses the failing
// instruction; after HALT it addresses the HALT.
func (i *Interpreter) PC() int {
	return i.pc
}

// Status returns the execution state.
func (i *Interpreter) Status() Status {
	return i.status
}

// Err returns the error that faulted the run, if any.
func (i *Interpreter) Err() error {
	return i.err
}

// Heap returns the heap.
func (i *Interpreter) Heap() *Heap {
	return i.heap
}

// Klasses returns the klass table.
func (i *Interpreter) Klasses() *KlassTable {
	return i.klasses
}

// Objects returns the object model over the heap.
func (i *Interpreter) Objects() *ObjectModel {
	return i.objects
}

// Code returns the program.
func (i *Interpreter) Code() bytecode.Code {
	return i.code
}

// RunID returns the identifier used in this run's log lines.
func (i *Interpreter) RunID() string {
	return i.runID
}
