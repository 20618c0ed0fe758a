package vm

import (
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Int tests
// ---------------------------------------------------------------------------

func TestIntRoundTrip(t *testing.T) {
	tests := []int32{0, 1, -1, 42, -42, math.MaxInt32, math.MinInt32}

	for _, n := range tests {
		r := FromInt(n)
		if got := r.Int(); got != n {
			t.Errorf("FromInt(%d).Int() = %d, want %d", n, got, n)
		}
		if r>>32 != 0 {
			t.Errorf("FromInt(%d) set upper bits: %#x", n, uint64(r))
		}
	}
}

// ---------------------------------------------------------------------------
// Float tests
// ---------------------------------------------------------------------------

func TestFloatRoundTrip(t *testing.T) {
	tests := []float32{
		0, 1, -1, 3.14159, -2.5,
		math.MaxFloat32,
		math.SmallestNonzeroFloat32,
		float32(math.Inf(1)),
		float32(math.Inf(-1)),
	}

	for _, f := range tests {
		if got := FromFloat(f).Float(); got != f {
			t.Errorf("FromFloat(%v).Float() = %v, want %v", f, got, f)
		}
	}

	nan := FromFloat(float32(math.NaN())).Float()
	if !math.IsNaN(float64(nan)) {
		t.Error("NaN did not survive the round trip")
	}
}

func TestFromHalf(t *testing.T) {
	tests := []struct {
		bits uint16
		want float32
	}{
		{0x0000, 0},
		{0x3C00, 1},
		{0xC000, -2},
		{0x3800, 0.5},
		{0x4400, 4},
		{0x7BFF, 65504},
	}

	for _, tt := range tests {
		if got := FromHalf(tt.bits).Float(); got != tt.want {
			t.Errorf("FromHalf(%#04x) = %v, want %v", tt.bits, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Bool, Char, Addr
// ---------------------------------------------------------------------------

func TestBoolAndChar(t *testing.T) {
	if FromBool(true) != True || FromBool(false) != False {
		t.Error("FromBool constants mismatch")
	}
	if !Reg(0x100).Bool() {
		t.Error("any non-zero register is true")
	}
	if FromChar('z').Char() != 'z' {
		t.Error("char round trip failed")
	}
	if Reg(0x141).Char() != 'A' {
		t.Error("Char should read the low byte")
	}
	if FromAddr(0x40).Addr() != 0x40 {
		t.Error("addr round trip failed")
	}
}

// ---------------------------------------------------------------------------
// Little-endian packing
// ---------------------------------------------------------------------------

func TestPackUnpack(t *testing.T) {
	buf := make([]byte, 4)
	packLE(buf, Reg(0x1122334455667788))
	want := []byte{0x88, 0x77, 0x66, 0x55}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("packLE = % x, want % x", buf, want)
		}
	}
	if got := unpackLE(buf); got != 0x55667788 {
		t.Errorf("unpackLE = %#x, want 0x55667788", uint64(got))
	}

	wide := make([]byte, 10)
	for i := range wide {
		wide[i] = 0xFF
	}
	packLE(wide, Reg(1))
	if wide[0] != 1 || wide[8] != 0 || wide[9] != 0 {
		t.Errorf("packLE into wide field = % x", wide)
	}
}
