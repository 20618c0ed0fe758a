package vm

import (
	"fmt"
	"strings"

	"github.com/chazu/pvm/pkg/bytecode"
)

// Snapshot is a read-only picture of interpreter state, for debugging
// and tests.
type Snapshot struct {
	RunID    string
	Status   Status
	PC       int
	Err      error
	Frames   []FrameSnapshot // entry frame first
	HeapUsed int
	HeapCap  int
	Klasses  []string
}

// FrameSnapshot lists the non-zero registers of one frame.
type FrameSnapshot struct {
	Depth     int
	ReturnPC  int
	Registers map[int]Reg
}

// Snapshot captures the current state.
func (i *Interpreter) Snapshot() *Snapshot {
	s := &Snapshot{
		RunID:    i.runID,
		Status:   i.status,
		PC:       i.pc,
		Err:      i.err,
		HeapUsed: i.heap.Used(),
		HeapCap:  i.heap.Cap(),
	}

	for d := 0; d < i.stack.Depth(); d++ {
		f, _ := i.stack.At(d)
		fs := FrameSnapshot{Depth: d, ReturnPC: f.ReturnPC, Registers: make(map[int]Reg)}
		for r, v := range f.regs {
			if v != 0 {
				fs.Registers[r] = v
			}
		}
		s.Frames = append(s.Frames, fs)
	}

	for id := 0; id < i.klasses.Len(); id++ {
		k, _ := i.klasses.Lookup(KlassID(id))
		s.Klasses = append(s.Klasses, k.String())
	}
	return s
}

// String returns a compact representation of the snapshot.
func (s *Snapshot) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "run %s: %s at pc %04d\n", s.RunID, s.Status, s.PC)
	if s.Err != nil {
		fmt.Fprintf(&sb, "error: %v\n", s.Err)
	}
	fmt.Fprintf(&sb, "heap: %d/%d bytes\n", s.HeapUsed, s.HeapCap)

	for _, f := range s.Frames {
		fmt.Fprintf(&sb, "frame %d (return %04d):", f.Depth, f.ReturnPC)
		if len(f.Registers) == 0 {
			sb.WriteString(" all zero\n")
			continue
		}
		sb.WriteString("\n")
		for r := 0; r < bytecode.NumRegisters; r++ {
			if v, ok := f.Registers[r]; ok {
				fmt.Fprintf(&sb, "  r%-3d %#018x  int=%d float=%g\n", r, uint64(v), v.Int(), v.Float())
			}
		}
	}

	sb.WriteString("klasses:\n")
	for id, k := range s.Klasses {
		fmt.Fprintf(&sb, "  k%d %s\n", id, k)
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// Heap instances
// ---------------------------------------------------------------------------

// InspectionResult describes one heap instance.
type InspectionResult struct {
	Ref      Addr
	Klass    string
	IsArray  bool
	Size     int             // For arrays: element count
	Fields   map[FieldID]Reg // For objects: field values
	Elements []Addr          // For arrays: preview of element references (limited)
}

// MaxElementPreview is the maximum number of array elements to preview.
const MaxElementPreview = 10

// InspectObject decodes the header at ref and reads its fields or
// element references.
func (i *Interpreter) InspectObject(ref Addr) (*InspectionResult, error) {
	kid, err := i.objects.KlassOf(ref)
	if err != nil {
		return nil, err
	}
	k, err := i.klasses.Lookup(kid)
	if err != nil {
		return nil, err
	}
	isArray, err := i.objects.IsArray(ref)
	if err != nil {
		return nil, err
	}

	result := &InspectionResult{Ref: ref, Klass: k.Name(), IsArray: isArray}

	if isArray {
		n, err := i.objects.ArraySize(ref)
		if err != nil {
			return nil, err
		}
		result.Size = int(n)
		for idx := int32(0); idx < n && idx < MaxElementPreview; idx++ {
			elem, err := i.objects.ArrayGep(ref, idx)
			if err != nil {
				return nil, err
			}
			result.Elements = append(result.Elements, elem)
		}
		return result, nil
	}

	result.Fields = make(map[FieldID]Reg, k.NumFields())
	for _, id := range k.FieldIDs() {
		v, err := i.objects.FieldGet(ref, id)
		if err != nil {
			return nil, err
		}
		result.Fields[id] = v
	}
	return result, nil
}

// String returns a one-line representation of the instance.
func (r *InspectionResult) String() string {
	var sb strings.Builder
	if r.IsArray {
		fmt.Fprintf(&sb, "%#x: %s[%d]", uint64(r.Ref), r.Klass, r.Size)
		for _, e := range r.Elements {
			fmt.Fprintf(&sb, " %#x", uint64(e))
		}
		if r.Size > len(r.Elements) {
			sb.WriteString(" ...")
		}
		return sb.String()
	}

	fmt.Fprintf(&sb, "%#x: %s", uint64(r.Ref), r.Klass)
	ids := make([]FieldID, 0, len(r.Fields))
	for id := range r.Fields {
		ids = append(ids, id)
	}
	sortFieldIDs(ids)
	for _, id := range ids {
		fmt.Fprintf(&sb, " f%d=%d", id, uint64(r.Fields[id]))
	}
	return sb.String()
}
