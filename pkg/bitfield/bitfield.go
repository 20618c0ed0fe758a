// Package bitfield extracts and inserts bit ranges of unsigned machine words.
//
// Bit positions count from the least significant bit (bit 0). Ranges are
// inclusive on both ends: Extract(w, 7, 0) returns the low byte of w.
// All functions are pure and panic only on a malformed range, which is a
// programming error in the caller rather than a data-dependent condition.
package bitfield

import (
	"fmt"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Width returns the number of bits in T.
func Width[T constraints.Unsigned]() uint {
	var zero T
	return uint(unsafe.Sizeof(zero)) * 8
}

// Mask returns a word with bits hi..lo set.
func Mask[T constraints.Unsigned](hi, lo uint) T {
	checkRange[T](hi, lo)
	n := hi - lo + 1
	if n == Width[T]() {
		return ^T(0)
	}
	return ((T(1) << n) - 1) << lo
}

// Extract returns bits hi..lo of word shifted down to bit 0.
func Extract[T constraints.Unsigned](word T, hi, lo uint) T {
	return (word & Mask[T](hi, lo)) >> lo
}

// Insert returns word with bits hi..lo replaced by the low bits of value.
// Bits of value that do not fit the range are discarded.
func Insert[T constraints.Unsigned](word T, hi, lo uint, value T) T {
	m := Mask[T](hi, lo)
	return (word &^ m) | ((value << lo) & m)
}

// SignExtend interprets the low n bits of value as a two's complement
// number and widens it to int64.
func SignExtend[T constraints.Unsigned](value T, n uint) int64 {
	if n == 0 || n > 64 {
		panic(fmt.Sprintf("bitfield: sign extension width %d out of range", n))
	}
	shift := 64 - n
	return int64(uint64(value)<<shift) >> shift
}

func checkRange[T constraints.Unsigned](hi, lo uint) {
	if hi < lo || hi >= Width[T]() {
		panic(fmt.Sprintf("bitfield: bad range [%d:%d] for %d-bit word", hi, lo, Width[T]()))
	}
}
