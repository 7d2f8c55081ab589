package bitbuf

import (
	"bytes"
	"testing"
)

func TestOnesTailMasking(t *testing.T) {
	// 13 one-bits must pack to 0xFF, 0x1F with the top 3 bits clear.
	got := Ones(13)
	want := []byte{0xff, 0x1f}
	if !bytes.Equal(got, want) {
		t.Fatalf("Ones(13) = %#v, want %#v", got, want)
	}
}

func TestBitRoundTrip(t *testing.T) {
	for _, n := range []int{1, 7, 8, 13, 16, 31, 64, 65} {
		buf := New(n)
		for i := 0; i < n; i++ {
			SetBit(buf, i, i%3 == 0)
		}
		for i := 0; i < n; i++ {
			if Bit(buf, i) != (i%3 == 0) {
				t.Fatalf("n=%d: bit %d = %v, want %v", n, i, Bit(buf, i), i%3 == 0)
			}
		}
	}
}

func TestPackUint32(t *testing.T) {
	cases := []struct {
		value uint32
		n     int
		want  []byte
	}{
		{0xe73c, 16, []byte{0x3c, 0xe7}},
		{0x1f, 6, []byte{0x1f}},
		{0xffffffff, 13, []byte{0xff, 0x1f}},
		{0xa5, 8, []byte{0xa5}},
		{0x12345678, 32, []byte{0x78, 0x56, 0x34, 0x12}},
	}
	for _, tc := range cases {
		got := PackUint32(tc.value, tc.n)
		if !bytes.Equal(got, tc.want) {
			t.Errorf("PackUint32(%#x, %d) = %#v, want %#v", tc.value, tc.n, got, tc.want)
		}
		if back := Uint32(got, 0, tc.n); back != tc.value&(1<<tc.n-1) && tc.n < 32 {
			t.Errorf("Uint32 round trip of %#x/%d = %#x", tc.value, tc.n, back)
		}
	}
}

func TestUint32FullWidth(t *testing.T) {
	buf := PackUint32(0xdeadbeef, 32)
	if got := Uint32(buf, 0, 32); got != 0xdeadbeef {
		t.Fatalf("Uint32 = %#x, want 0xdeadbeef", got)
	}
}

func TestExtractAligned(t *testing.T) {
	src := []byte{0x78, 0x56, 0x34, 0x12}
	got := Extract(src, 8, 16)
	if !bytes.Equal(got, []byte{0x56, 0x34}) {
		t.Fatalf("Extract aligned = %#v", got)
	}
}

func TestExtractMisaligned(t *testing.T) {
	// Take bits 3..12 of a known pattern and verify bit by bit.
	src := []byte{0b1011_0101, 0b0110_1100}
	const off, n = 3, 10
	got := Extract(src, off, n)
	for i := 0; i < n; i++ {
		if Bit(got, i) != Bit(src, off+i) {
			t.Fatalf("bit %d: got %v, want %v", i, Bit(got, i), Bit(src, off+i))
		}
	}
	// Tail above n must be masked.
	if got[1]&^0x03 != 0 {
		t.Fatalf("tail bits not masked: %#v", got)
	}
}

func TestEqualIgnoresTail(t *testing.T) {
	a := []byte{0xff, 0x1f}
	b := []byte{0xff, 0xff}
	if !Equal(a, b, 13) {
		t.Fatal("Equal should ignore bits above the cycle count")
	}
	if Equal(a, b, 14) {
		t.Fatal("Equal must compare bit 13")
	}
}

func TestParity(t *testing.T) {
	cases := []struct {
		value uint32
		want  bool
	}{
		{0xffffffff, false}, // 32 ones, even popcount
		{0x00000001, true},
		{0x00000000, false},
		{0x80000001, false},
	}
	for _, tc := range cases {
		if got := Parity32(tc.value); got != tc.want {
			t.Errorf("Parity32(%#x) = %v, want %v", tc.value, got, tc.want)
		}
		buf := PackUint32(tc.value, 32)
		if got := Parity(buf, 32); got != tc.want {
			t.Errorf("Parity(%#x) = %v, want %v", tc.value, got, tc.want)
		}
	}
	// Truncated parity only counts the first n bits.
	if Parity([]byte{0xff, 0xff}, 13) != true {
		t.Error("Parity over 13 ones should be odd")
	}
}
