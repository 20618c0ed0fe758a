package vm

import (
	"encoding/binary"
	"fmt"
)

// Addr is an offset into the heap arena. Address 0 is never returned by
// Allocate and serves as the null reference.
type Addr uint64

// Null is the reference that points at nothing.
const Null Addr = 0

const (
	// WordSize is the size of a heap word in bytes.
	WordSize = 8

	// DefaultHeapSize is the arena capacity used when Config.HeapSize is zero.
	DefaultHeapSize = 1 << 20
)

// Heap is a fixed-capacity bump allocator over a byte arena.
//
// Allocations are 8-byte aligned and never freed. The arena starts zeroed
// and no byte is handed out twice, so freshly allocated memory always
// reads as zero.
type Heap struct {
	arena []byte
	next  int
}

// NewHeap creates a heap of the given capacity in bytes. The first word is
// reserved so that no allocation lands on Null.
func NewHeap(capacity int) *Heap {
	if capacity < WordSize {
		capacity = WordSize
	}
	return &Heap{
		arena: make([]byte, capacity),
		next:  WordSize,
	}
}

// Allocate reserves size bytes and returns their address.
func (h *Heap) Allocate(size int) (Addr, error) {
	if size < 0 {
		return Null, fmt.Errorf("allocate %d bytes: %w", size, ErrNegativeSize)
	}
	start := h.next
	end := start + align(size)
	if end > len(h.arena) || end < start {
		return Null, fmt.Errorf("allocate %d bytes with %d of %d in use: %w",
			size, h.next, len(h.arena), ErrOutOfMemory)
	}
	h.next = end
	return Addr(start), nil
}

func align(n int) int {
	return (n + WordSize - 1) &^ (WordSize - 1)
}

// Used returns the number of arena bytes consumed, including the reserved null word.
func (h *Heap) Used() int {
	return h.next
}

// Cap returns the arena capacity in bytes.
func (h *Heap) Cap() int {
	return len(h.arena)
}

// Free returns the number of bytes still available.
func (h *Heap) Free() int {
	return len(h.arena) - h.next
}

// ---------------------------------------------------------------------------
// Checked access
// ---------------------------------------------------------------------------

func (h *Heap) span(a Addr, n int) ([]byte, error) {
	if a == Null || n < 0 || uint64(a) > uint64(len(h.arena)) || n > len(h.arena)-int(a) {
		return nil, fmt.Errorf("access %d bytes at %#x: %w", n, uint64(a), ErrOutOfBounds)
	}
	return h.arena[a : int(a)+n], nil
}

// ReadWord reads the little-endian word at a.
func (h *Heap) ReadWord(a Addr) (uint64, error) {
	b, err := h.span(a, WordSize)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// WriteWord writes v little-endian at a.
func (h *Heap) WriteWord(a Addr, v uint64) error {
	b, err := h.span(a, WordSize)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

// ReadBytes returns a copy of n bytes starting at a.
func (h *Heap) ReadBytes(a Addr, n int) ([]byte, error) {
	b, err := h.span(a, n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// WriteBytes copies data into the arena at a.
func (h *Heap) WriteBytes(a Addr, data []byte) error {
	b, err := h.span(a, len(data))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}
