package vm

import (
	"math"

	"github.com/x448/float16"
)

// Reg is the uniform 64-bit storage unit of a register.
//
// A Reg carries no runtime tag. The instruction's type tag decides how its
// bits are read:
//   - Int: low 32 bits as a two's complement int32
//   - Float: low 32 bits as an IEEE 754 binary32
//   - Bool: zero is false, anything else is true
//   - Char: low 8 bits
//   - reference: the whole word as a heap Addr
//
// Every conversion between a Reg and a Go value goes through the helpers
// in this file. Nothing else in the package reinterprets register bits.
type Reg uint64

// Bool constants as stored in a register.
const (
	False Reg = 0
	True  Reg = 1
)

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// FromInt stores an int32. The upper 32 bits are zero.
func FromInt(v int32) Reg {
	return Reg(uint32(v))
}

// FromFloat stores the binary32 bits of f.
func FromFloat(f float32) Reg {
	return Reg(math.Float32bits(f))
}

// FromHalf widens an IEEE half-precision bit pattern to float32 and stores it.
func FromHalf(bits uint16) Reg {
	return FromFloat(float16.Frombits(bits).Float32())
}

// FromBool stores true as 1 and false as 0.
func FromBool(b bool) Reg {
	if b {
		return True
	}
	return False
}

// FromChar stores a byte.
func FromChar(c byte) Reg {
	return Reg(c)
}

// FromAddr stores a heap address.
func FromAddr(a Addr) Reg {
	return Reg(a)
}

// ---------------------------------------------------------------------------
// Interpretation
// ---------------------------------------------------------------------------

// Int reads the register as an int32.
func (r Reg) Int() int32 {
	return int32(uint32(r))
}

// Float reads the register as a float32.
func (r Reg) Float() float32 {
	return math.Float32frombits(uint32(r))
}

// Bool reads the register as a bool.
func (r Reg) Bool() bool {
	return r != 0
}

// Char reads the register as a byte.
func (r Reg) Char() byte {
	return byte(r)
}

// Addr reads the register as a heap address.
func (r Reg) Addr() Addr {
	return Addr(r)
}

// Word returns the raw bits.
func (r Reg) Word() uint64 {
	return uint64(r)
}

// ---------------------------------------------------------------------------
// Little-endian packing for heap fields
// ---------------------------------------------------------------------------

// packLE writes the low len(dst) bytes of r into dst, least significant first.
// Fields wider than 8 bytes are zero-filled past the eighth byte.
func packLE(dst []byte, r Reg) {
	v := uint64(r)
	for i := range dst {
		if i < 8 {
			dst[i] = byte(v >> (8 * i))
		} else {
			dst[i] = 0
		}
	}
}

// unpackLE reads up to 8 little-endian bytes from src as a zero-extended Reg.
func unpackLE(src []byte) Reg {
	var v uint64
	for i, b := range src {
		if i >= 8 {
			break
		}
		v |= uint64(b) << (8 * i)
	}
	return Reg(v)
}
