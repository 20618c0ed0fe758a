package vm

import (
	"fmt"

	"github.com/chazu/pvm/pkg/bytecode"
)

// DefaultMaxCallDepth is the call stack limit used when Config.MaxCallDepth is zero.
const DefaultMaxCallDepth = 4096

// ---------------------------------------------------------------------------
// RegisterFile
// ---------------------------------------------------------------------------

// RegisterFile holds the registers of one frame. Register 0 is the
// accumulator.
type RegisterFile struct {
	regs [bytecode.NumRegisters]Reg
}

// ReadReg returns register id.
func (rf *RegisterFile) ReadReg(id bytecode.RegID) Reg {
	return rf.regs[id]
}

// WriteReg sets register id.
func (rf *RegisterFile) WriteReg(id bytecode.RegID, v Reg) {
	rf.regs[id] = v
}

// Acc returns the accumulator.
func (rf *RegisterFile) Acc() Reg {
	return rf.regs[bytecode.Acc]
}

// SetAcc sets the accumulator.
func (rf *RegisterFile) SetAcc(v Reg) {
	rf.regs[bytecode.Acc] = v
}

// ---------------------------------------------------------------------------
// Frame
// ---------------------------------------------------------------------------

// Frame is one activation record. The running pc is owned by the
// interpreter; a frame only remembers where to resume its caller.
type Frame struct {
	RegisterFile
	ReturnPC int
}

// ---------------------------------------------------------------------------
// CallStack
// ---------------------------------------------------------------------------

// CallStack is the stack of active frames. The bottom frame is the entry
// frame and is never popped.
type CallStack struct {
	frames   []Frame
	maxDepth int
}

// NewCallStack returns a stack holding a single entry frame.
func NewCallStack(maxDepth int) *CallStack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCallDepth
	}
	return &CallStack{
		frames:   make([]Frame, 1, 16),
		maxDepth: maxDepth,
	}
}

// Push adds a fresh frame that resumes the caller at returnPC.
func (s *CallStack) Push(returnPC int) (*Frame, error) {
	if len(s.frames) >= s.maxDepth {
		return nil, fmt.Errorf("depth %d: %w", len(s.frames), ErrStackOverflow)
	}
	s.frames = append(s.frames, Frame{ReturnPC: returnPC})
	return &s.frames[len(s.frames)-1], nil
}

// Pop removes the top frame and returns it.
func (s *CallStack) Pop() (Frame, error) {
	if len(s.frames) <= 1 {
		return Frame{}, fmt.Errorf("return from entry frame: %w", ErrStackUnderflow)
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return top, nil
}

// Top returns the current frame. The pointer is valid until the next Push.
func (s *CallStack) Top() *Frame {
	return &s.frames[len(s.frames)-1]
}

// Depth returns the number of frames, counting the entry frame.
func (s *CallStack) Depth() int {
	return len(s.frames)
}

// MaxDepth returns the configured limit.
func (s *CallStack) MaxDepth() int {
	return s.maxDepth
}

// At returns the frame at depth, where 0 is the entry frame.
func (s *CallStack) At(depth int) (*Frame, bool) {
	if depth < 0 || depth >= len(s.frames) {
		return nil, false
	}
	return &s.frames[depth], true
}
