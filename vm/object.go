package vm

import "fmt"

// Heap instance layout. Every instance starts with a two-word header:
//
//	+0   mark word    flags; bit 0 marks an array header
//	+8   klass word   KlassID of the instance (or of the elements, for arrays)
//	+16  data         klass.Size() bytes
//
// An array header adds the element count and is followed by one reference
// slot per element:
//
//	+16  count
//	+24  slot[0] ... slot[count-1]   addresses of individually headed elements
//
// Elements live in a separate block allocated just before the array header.
const (
	markOffset  = 0
	klassOffset = 8

	// ObjectHeaderSize is the size of the mark and klass words.
	ObjectHeaderSize = 16

	countOffset = ObjectHeaderSize

	// ArrayHeaderSize is the object header plus the element count.
	ArrayHeaderSize = ObjectHeaderSize + WordSize
)

// Mark word flags.
const (
	MarkArray uint64 = 1 << 0
)

// ObjectModel lays out objects and arrays on a Heap using the klasses of a
// KlassTable.
type ObjectModel struct {
	heap        *Heap
	klasses     *KlassTable
	boundsCheck bool
}

// NewObjectModel binds a heap to a klass table. With boundsCheck set,
// ArrayGep rejects indexes outside [0, count).
func NewObjectModel(heap *Heap, klasses *KlassTable, boundsCheck bool) *ObjectModel {
	return &ObjectModel{heap: heap, klasses: klasses, boundsCheck: boundsCheck}
}

// ---------------------------------------------------------------------------
// Allocation
// ---------------------------------------------------------------------------

// NewObject allocates a zeroed instance of klass.
func (m *ObjectModel) NewObject(id KlassID) (Addr, error) {
	k, err := m.klasses.Lookup(id)
	if err != nil {
		return Null, err
	}
	ref, err := m.heap.Allocate(ObjectHeaderSize + k.Size())
	if err != nil {
		return Null, err
	}
	if err := m.writeHeader(ref, 0, id); err != nil {
		return Null, err
	}
	return ref, nil
}

// NewArray allocates count zeroed elements of klass and an array header
// whose reference slots point at them.
func (m *ObjectModel) NewArray(id KlassID, count int32) (Addr, error) {
	if count < 0 {
		return Null, fmt.Errorf("new array of %d: %w", count, ErrNegativeSize)
	}
	k, err := m.klasses.Lookup(id)
	if err != nil {
		return Null, err
	}

	n := int(count)
	stride := align(ObjectHeaderSize + k.Size())

	var elems Addr
	if n > 0 {
		elems, err = m.heap.Allocate(n * stride)
		if err != nil {
			return Null, err
		}
	}
	ref, err := m.heap.Allocate(ArrayHeaderSize + n*WordSize)
	if err != nil {
		return Null, err
	}

	if err := m.writeHeader(ref, MarkArray, id); err != nil {
		return Null, err
	}
	if err := m.heap.WriteWord(ref+countOffset, uint64(n)); err != nil {
		return Null, err
	}
	for i := 0; i < n; i++ {
		elem := elems + Addr(i*stride)
		if err := m.writeHeader(elem, 0, id); err != nil {
			return Null, err
		}
		if err := m.heap.WriteWord(slotAddr(ref, i), uint64(elem)); err != nil {
			return Null, err
		}
	}
	return ref, nil
}

func (m *ObjectModel) writeHeader(ref Addr, mark uint64, id KlassID) error {
	if err := m.heap.WriteWord(ref+markOffset, mark); err != nil {
		return err
	}
	return m.heap.WriteWord(ref+klassOffset, uint64(id))
}

func slotAddr(ref Addr, index int) Addr {
	return ref + ArrayHeaderSize + Addr(index*WordSize)
}

// ---------------------------------------------------------------------------
// Header access
// ---------------------------------------------------------------------------

// MarkWord returns the mark word of the instance at ref.
func (m *ObjectModel) MarkWord(ref Addr) (uint64, error) {
	if ref == Null {
		return 0, fmt.Errorf("header of null reference: %w", ErrOutOfBounds)
	}
	return m.heap.ReadWord(ref + markOffset)
}

// KlassOf returns the klass id stored in the header at ref.
func (m *ObjectModel) KlassOf(ref Addr) (KlassID, error) {
	if ref == Null {
		return 0, fmt.Errorf("header of null reference: %w", ErrOutOfBounds)
	}
	w, err := m.heap.ReadWord(ref + klassOffset)
	if err != nil {
		return 0, err
	}
	if w >= uint64(m.klasses.Len()) {
		return 0, fmt.Errorf("header at %#x: klass %d: %w", uint64(ref), w, ErrUnknownKlass)
	}
	return KlassID(w), nil
}

// IsArray reports whether ref points at an array header.
func (m *ObjectModel) IsArray(ref Addr) (bool, error) {
	mark, err := m.MarkWord(ref)
	if err != nil {
		return false, err
	}
	return mark&MarkArray != 0, nil
}

// ---------------------------------------------------------------------------
// Arrays
// ---------------------------------------------------------------------------

// ArraySize returns the element count stored in the array header.
func (m *ObjectModel) ArraySize(ref Addr) (int32, error) {
	w, err := m.heap.ReadWord(ref + countOffset)
	if err != nil {
		return 0, err
	}
	return int32(w), nil
}

// ArrayGep returns the address of element index. The index is checked
// against the count only when bounds checking is enabled; the arena
// bounds are always checked.
func (m *ObjectModel) ArrayGep(ref Addr, index int32) (Addr, error) {
	if m.boundsCheck {
		isArray, err := m.IsArray(ref)
		if err != nil {
			return Null, err
		}
		if !isArray {
			return Null, fmt.Errorf("gep on non-array at %#x: %w", uint64(ref), ErrOutOfBounds)
		}
		n, err := m.ArraySize(ref)
		if err != nil {
			return Null, err
		}
		if index < 0 || index >= n {
			return Null, fmt.Errorf("index %d of %d: %w", index, n, ErrOutOfBounds)
		}
	}

	at := int64(ref) + ArrayHeaderSize + int64(index)*WordSize
	if at < 0 {
		return Null, fmt.Errorf("index %d at %#x: %w", index, uint64(ref), ErrOutOfBounds)
	}
	w, err := m.heap.ReadWord(Addr(at))
	if err != nil {
		return Null, err
	}
	return Addr(w), nil
}

// ---------------------------------------------------------------------------
// Fields
// ---------------------------------------------------------------------------

func (m *ObjectModel) field(ref Addr, id FieldID) (Field, error) {
	kid, err := m.KlassOf(ref)
	if err != nil {
		return Field{}, err
	}
	isArray, err := m.IsArray(ref)
	if err != nil {
		return Field{}, err
	}
	if isArray {
		return Field{}, fmt.Errorf("field %d of array at %#x: %w", id, uint64(ref), ErrUnknownField)
	}
	k, err := m.klasses.Lookup(kid)
	if err != nil {
		return Field{}, err
	}
	f, ok := k.Field(id)
	if !ok {
		return Field{}, fmt.Errorf("klass %s field %d: %w", k.Name(), id, ErrUnknownField)
	}
	return f, nil
}

// FieldGet reads a field as a zero-extended register value.
func (m *ObjectModel) FieldGet(ref Addr, id FieldID) (Reg, error) {
	f, err := m.field(ref, id)
	if err != nil {
		return 0, err
	}
	b, err := m.heap.span(ref+ObjectHeaderSize+Addr(f.Offset), f.Size)
	if err != nil {
		return 0, err
	}
	return unpackLE(b), nil
}

// FieldSet writes the low bytes of v into a field.
func (m *ObjectModel) FieldSet(ref Addr, id FieldID, v Reg) error {
	f, err := m.field(ref, id)
	if err != nil {
		return err
	}
	b, err := m.heap.span(ref+ObjectHeaderSize+Addr(f.Offset), f.Size)
	if err != nil {
		return err
	}
	packLE(b, v)
	return nil
}
