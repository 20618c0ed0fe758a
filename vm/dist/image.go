// Package dist reads and writes program images: a bytecode program plus
// the klass layouts it was built against, encoded as canonical CBOR.
//
// An image carries the SHA-256 of its code words so that a loader can
// reject a file whose code was altered after it was written, and the
// capabilities its instructions need so that a runner can refuse programs
// that read input or write output.
package dist

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/chazu/pvm/pkg/bytecode"
	"github.com/chazu/pvm/vm"
)

// FormatVersion is the image layout written by this package.
const FormatVersion = 1

// Image is the unit written to and read from disk.
type Image struct {
	Version      uint8       `cbor:"1,keyasint"`
	Name         string      `cbor:"2,keyasint"`
	Hash         [32]byte    `cbor:"3,keyasint"` // SHA-256 of Code
	Code         []uint64    `cbor:"4,keyasint"`
	Klasses      []KlassSpec `cbor:"5,keyasint,omitempty"` // registered after the primitives, in order
	Capabilities []string    `cbor:"6,keyasint,omitempty"`
	Description  string      `cbor:"7,keyasint,omitempty"`
	Input        string      `cbor:"8,keyasint,omitempty"` // suggested stdin
}

// KlassSpec is the serialized form of a vm.Klass.
type KlassSpec struct {
	Name   string      `cbor:"1,keyasint"`
	Size   int         `cbor:"2,keyasint"`
	Fields []FieldSpec `cbor:"3,keyasint,omitempty"`
}

// FieldSpec is one field of a KlassSpec.
type FieldSpec struct {
	ID     uint32 `cbor:"1,keyasint"`
	Offset int    `cbor:"2,keyasint"`
	Size   int    `cbor:"3,keyasint"`
}

// CapabilityManifest declares what capabilities a program requires.
type CapabilityManifest struct {
	Required []string
}

// NewImage packages code and the extra klasses it refers to.
func NewImage(name string, code bytecode.Code, klasses []vm.Klass) *Image {
	words := code.Words()
	img := &Image{
		Version:      FormatVersion,
		Name:         name,
		Hash:         HashCode(words),
		Code:         words,
		Capabilities: RequiredCapabilities(code),
	}
	for _, k := range klasses {
		img.Klasses = append(img.Klasses, SpecOf(k))
	}
	return img
}

// HashCode returns the SHA-256 of the little-endian encoding of words.
func HashCode(words []uint64) [32]byte {
	buf := make([]byte, 8*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint64(buf[8*i:], w)
	}
	return sha256.Sum256(buf)
}

// SpecOf converts a klass to its serialized form. Fields are listed in
// id order.
func SpecOf(k vm.Klass) KlassSpec {
	spec := KlassSpec{Name: k.Name(), Size: k.Size()}
	for _, id := range k.FieldIDs() {
		f, _ := k.Field(id)
		spec.Fields = append(spec.Fields, FieldSpec{ID: uint32(id), Offset: f.Offset, Size: f.Size})
	}
	return spec
}

// Klass rebuilds the vm.Klass described by the spec.
func (s KlassSpec) Klass() (vm.Klass, error) {
	fields := make(map[vm.FieldID]vm.Field, len(s.Fields))
	for _, f := range s.Fields {
		if _, dup := fields[vm.FieldID(f.ID)]; dup {
			return vm.Klass{}, fmt.Errorf("dist: klass %s: duplicate field %d", s.Name, f.ID)
		}
		fields[vm.FieldID(f.ID)] = vm.Field{Offset: f.Offset, Size: f.Size}
	}
	k := vm.NewKlass(s.Name, s.Size, fields)
	if err := k.Validate(); err != nil {
		return vm.Klass{}, fmt.Errorf("dist: %w", err)
	}
	return k, nil
}

// Program returns the image's code.
func (img *Image) Program() bytecode.Code {
	return bytecode.NewCode(img.Code)
}

// VMKlasses rebuilds the image's extra klasses in registration order.
func (img *Image) VMKlasses() ([]vm.Klass, error) {
	ks := make([]vm.Klass, 0, len(img.Klasses))
	for _, s := range img.Klasses {
		k, err := s.Klass()
		if err != nil {
			return nil, err
		}
		ks = append(ks, k)
	}
	return ks, nil
}

// CapabilityManifest returns the capabilities the image declares.
func (img *Image) CapabilityManifest() *CapabilityManifest {
	if len(img.Capabilities) == 0 {
		return nil
	}
	return &CapabilityManifest{Required: img.Capabilities}
}

// Verify checks the format version, that the declared hash matches the
// code and that the declared capabilities cover what the code uses.
func (img *Image) Verify() error {
	if img.Version != FormatVersion {
		return fmt.Errorf("dist: image %q has format version %d, want %d", img.Name, img.Version, FormatVersion)
	}
	if computed := HashCode(img.Code); computed != img.Hash {
		return fmt.Errorf("dist: image %q hash mismatch: declared %x, computed %x", img.Name, img.Hash, computed)
	}
	declared := make(map[string]bool, len(img.Capabilities))
	for _, c := range img.Capabilities {
		declared[c] = true
	}
	for _, c := range RequiredCapabilities(img.Program()) {
		if !declared[c] {
			return fmt.Errorf("dist: image %q uses undeclared capability %q", img.Name, c)
		}
	}
	return nil
}
