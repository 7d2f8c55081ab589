// Package bitbuf implements the bit buffer convention shared by every probe
// backend: bit i of a logical sequence lives at byte i/8, bit position i%8,
// LSB first. Buffer lengths are given in clock cycles (bits), which need not
// be a multiple of 8; the bits above the cycle count in the final byte are
// unspecified and must never be read.
package bitbuf

import (
	"math/bits"

	"github.com/boljen/go-bitmap"
)

// ByteLen returns the number of bytes required to hold n bits.
func ByteLen(n int) int {
	return (n + 7) / 8
}

// Bit reports bit i of buf.
func Bit(buf []byte, i int) bool {
	return bitmap.Bitmap(buf).Get(i)
}

// SetBit sets bit i of buf to v.
func SetBit(buf []byte, i int, v bool) {
	bitmap.Bitmap(buf).Set(i, v)
}

// New returns a zeroed buffer sized for n bits.
func New(n int) []byte {
	return bitmap.New(n)
}

// Ones returns a buffer of n bits, all set. The tail bits of the final byte
// are left clear so the result is already masked to n.
func Ones(n int) []byte {
	buf := make([]byte, ByteLen(n))
	for i := range buf {
		buf[i] = 0xff
	}
	Mask(buf, n)
	return buf
}

// Mask clears the unspecified bits above n in the final byte of buf. It is a
// no-op when n is a multiple of 8.
func Mask(buf []byte, n int) {
	if rem := n % 8; rem != 0 && len(buf) > 0 {
		buf[n/8] &= byte(1<<rem) - 1
	}
}

// Equal reports whether the first n bits of a and b match, ignoring any tail
// bits beyond n.
func Equal(a, b []byte, n int) bool {
	full := n / 8
	for i := 0; i < full; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	if rem := n % 8; rem != 0 {
		mask := byte(1<<rem) - 1
		if a[full]&mask != b[full]&mask {
			return false
		}
	}
	return true
}

// Extract copies n bits of buf starting at bit offset off into a fresh,
// masked buffer. Misaligned offsets are handled by stitching adjacent source
// bytes together.
func Extract(buf []byte, off, n int) []byte {
	out := make([]byte, ByteLen(n))
	startByte := off / 8
	startBit := off % 8
	if startBit == 0 {
		copy(out, buf[startByte:])
	} else {
		for i := range out {
			if startByte+i < len(buf) {
				out[i] = buf[startByte+i] >> startBit
				if startByte+i+1 < len(buf) {
					out[i] |= buf[startByte+i+1] << (8 - startBit)
				}
			}
		}
	}
	Mask(out, n)
	return out
}

// PackUint32 packs the low n bits of value, n <= 32, into a fresh buffer.
func PackUint32(value uint32, n int) []byte {
	buf := make([]byte, ByteLen(n))
	for i := 0; i < len(buf); i++ {
		buf[i] = byte(value >> (8 * i))
	}
	Mask(buf, n)
	return buf
}

// Uint32 unpacks n bits, n <= 32, starting at bit offset off of buf.
func Uint32(buf []byte, off, n int) uint32 {
	var value uint32
	for i := 0; i < n; i++ {
		if Bit(buf, off+i) {
			value |= 1 << i
		}
	}
	return value
}

// Parity reports the XOR reduction of the first n bits of buf: true when the
// population count is odd.
func Parity(buf []byte, n int) bool {
	var count int
	full := n / 8
	for i := 0; i < full; i++ {
		count += bits.OnesCount8(buf[i])
	}
	if rem := n % 8; rem != 0 {
		count += bits.OnesCount8(buf[full] & (byte(1<<rem) - 1))
	}
	return count&1 == 1
}

// Parity32 reports the XOR reduction of all 32 bits of v.
func Parity32(v uint32) bool {
	return bits.OnesCount32(v)&1 == 1
}
