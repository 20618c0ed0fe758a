package vm

import (
	"fmt"
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Klass: type descriptor for heap instances
// ---------------------------------------------------------------------------

// KlassID indexes the KlassTable. Ids are assigned in registration order
// and never change.
type KlassID uint32

// FieldID names a field within a klass.
type FieldID uint32

// Built-in klass ids.
const (
	KlassNull  KlassID = 0
	KlassInt   KlassID = 1
	KlassBool  KlassID = 2
	KlassChar  KlassID = 3
	KlassFloat KlassID = 4

	// NumBuiltinKlasses is the id of the first user klass.
	NumBuiltinKlasses = 5
)

// SelfField is the field id of a primitive klass's payload.
const SelfField FieldID = 0

// Field is the layout of one field inside an instance.
type Field struct {
	Offset int // byte offset from the start of the instance data
	Size   int // width in bytes
}

// Klass describes the byte size and field layout of heap instances.
// A Klass is immutable once registered.
type Klass struct {
	name   string
	size   int
	fields map[FieldID]Field
}

// NewKlass builds a klass from an explicit field map. The map is copied.
func NewKlass(name string, size int, fields map[FieldID]Field) Klass {
	k := Klass{name: name, size: size, fields: make(map[FieldID]Field, len(fields))}
	for id, f := range fields {
		k.fields[id] = f
	}
	return k
}

// LayoutKlass packs fields of the given sizes one after another. Field i
// gets id i; the klass size is the sum of the sizes.
func LayoutKlass(name string, sizes ...int) Klass {
	fields := make(map[FieldID]Field, len(sizes))
	offset := 0
	for i, sz := range sizes {
		fields[FieldID(i)] = Field{Offset: offset, Size: sz}
		offset += sz
	}
	return Klass{name: name, size: offset, fields: fields}
}

func primitive(name string, size int) Klass {
	return Klass{name: name, size: size, fields: map[FieldID]Field{SelfField: {Offset: 0, Size: size}}}
}

// Name returns the klass name.
func (k Klass) Name() string {
	return k.name
}

// Size returns the instance size in bytes, excluding the header.
func (k Klass) Size() int {
	return k.size
}

// Field looks up a field's layout.
func (k Klass) Field(id FieldID) (Field, bool) {
	f, ok := k.fields[id]
	return f, ok
}

// NumFields returns the number of fields.
func (k Klass) NumFields() int {
	return len(k.fields)
}

// FieldIDs returns the field ids in ascending order.
func (k Klass) FieldIDs() []FieldID {
	ids := make([]FieldID, 0, len(k.fields))
	for id := range k.fields {
		ids = append(ids, id)
	}
	sortFieldIDs(ids)
	return ids
}

func sortFieldIDs(ids []FieldID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// Validate reports a field that does not fit inside the instance.
func (k Klass) Validate() error {
	if k.size < 0 {
		return fmt.Errorf("klass %s: negative size %d", k.name, k.size)
	}
	for _, id := range k.FieldIDs() {
		f := k.fields[id]
		if f.Offset < 0 || f.Size < 0 || f.Offset+f.Size > k.size {
			return fmt.Errorf("klass %s: field %d [%d,+%d) outside size %d",
				k.name, id, f.Offset, f.Size, k.size)
		}
	}
	return nil
}

func (k Klass) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s(%d)", k.name, k.size)
	for _, id := range k.FieldIDs() {
		f := k.fields[id]
		fmt.Fprintf(&sb, " f%d@%d:%d", id, f.Offset, f.Size)
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// KlassTable
// ---------------------------------------------------------------------------

// KlassTable is an append-only registry of klasses addressed by id.
type KlassTable struct {
	klasses []Klass
}

// NewKlassTable returns a table holding the built-in primitive klasses.
func NewKlassTable() *KlassTable {
	return &KlassTable{
		klasses: []Klass{
			KlassNull:  primitive("Null", 0),
			KlassInt:   primitive("Int", 4),
			KlassBool:  primitive("Bool", 1),
			KlassChar:  primitive("Char", 1),
			KlassFloat: primitive("Float", 4),
		},
	}
}

// Register appends k and returns its id.
func (t *KlassTable) Register(k Klass) KlassID {
	t.klasses = append(t.klasses, k)
	return KlassID(len(t.klasses) - 1)
}

// Lookup returns the klass with the given id.
func (t *KlassTable) Lookup(id KlassID) (Klass, error) {
	if uint64(id) >= uint64(len(t.klasses)) {
		return Klass{}, fmt.Errorf("klass %d of %d: %w", id, len(t.klasses), ErrUnknownKlass)
	}
	return t.klasses[id], nil
}

// Len returns the number of registered klasses.
func (t *KlassTable) Len() int {
	return len(t.klasses)
}

// Find returns the id of the first klass with the given name.
func (t *KlassTable) Find(name string) (KlassID, bool) {
	for i, k := range t.klasses {
		if k.name == name {
			return KlassID(i), true
		}
	}
	return 0, false
}
