package mpsse

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// scriptChannel records command packets and plays back a canned response
// stream.
type scriptChannel struct {
	writes [][]byte
	resp   []byte
}

func (c *scriptChannel) Write(data []byte) error {
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

func (c *scriptChannel) Read(data []byte) error {
	if len(c.resp) < len(data) {
		return errors.New("script exhausted")
	}
	copy(data, c.resp)
	c.resp = c.resp[len(data):]
	return nil
}

func (c *scriptChannel) written() []byte {
	return bytes.Join(c.writes, nil)
}

func TestNext(t *testing.T) {
	cases := []struct {
		tms, tdi bool
		payload  byte
		resp     byte
		tdo      bool
	}{
		{false, false, 0x00, 0x00, false},
		{true, false, 0x01, 0x7f, false},
		{false, true, 0x80, 0x80, true},
		{true, true, 0x81, 0xff, true},
	}
	for _, tc := range cases {
		ch := &scriptChannel{resp: []byte{tc.resp}}
		m := NewTransport(ch, 0)
		if got := m.Next(tc.tms, tc.tdi); got != tc.tdo {
			t.Fatalf("Next(%v, %v) = %v, want %v", tc.tms, tc.tdi, got, tc.tdo)
		}
		want := []byte{opTMSReadWrite, 0, tc.payload}
		if !bytes.Equal(ch.written(), want) {
			t.Fatalf("Next(%v, %v) emitted % #x, want % #x", tc.tms, tc.tdi, ch.written(), want)
		}
	}
}

func TestTMSSeqChunking(t *testing.T) {
	ch := &scriptChannel{}
	m := NewTransport(ch, 0)
	m.TMSSeq(0xe73c, 16)

	// 16 cycles split 7 + 7 + 2, TDI held high in bit 7 of each payload.
	want := []byte{
		opTMSWrite, 6, 0x80 | byte(0xe73c&0x7f),
		opTMSWrite, 6, 0x80 | byte((0xe73c>>7)&0x7f),
		opTMSWrite, 1, 0x80 | byte((0xe73c>>14)&0x7f),
	}
	if !bytes.Equal(ch.written(), want) {
		t.Fatalf("TMSSeq emitted % #x, want % #x", ch.written(), want)
	}
	for _, w := range ch.writes {
		if w[1] > 6 {
			t.Fatalf("TMS burst of %d bits exceeds the 7-bit limit", w[1]+1)
		}
	}
}

func TestTDITDOSeqReassembly(t *testing.T) {
	const idcode = 0x4ba00477

	// 32 cycles with a final TMS bit split as 3 whole bytes, 7 leftover bits
	// and the TMS-steered last bit. Bit-mode responses arrive left-justified;
	// the TMS capture sits in bit 7 of its response byte.
	ch := &scriptChannel{resp: []byte{0x77, 0x04, 0xa0, (idcode >> 24 & 0x7f) << 1, 0x00}}
	m := NewTransport(ch, 0)

	din := make([]byte, 4)
	binary.LittleEndian.PutUint32(din, 0xdeadbeef)
	dout := make([]byte, 4)
	m.TDITDOSeq(dout, true, din, 32)

	if got := binary.LittleEndian.Uint32(dout); got != idcode {
		t.Fatalf("reassembled %#08x, want %#08x", got, idcode)
	}

	want := []byte{
		opReadWriteBytes, 2, 0, 0xef, 0xbe, 0xad,
		opReadWriteBits, 6, 0xde,
		opTMSReadWrite, 0, 0x81, // final TDI bit of 0xdeadbeef is set
	}
	if !bytes.Equal(ch.written(), want) {
		t.Fatalf("emitted % #x, want % #x", ch.written(), want)
	}
}

func TestTDITDOSeqFullByteTail(t *testing.T) {
	// 8 cycles with final TMS: 7 bits in bit mode plus the TMS bit make the
	// stored byte whole again.
	ch := &scriptChannel{resp: []byte{(0xa5 & 0x7f) << 1, 0x80}}
	m := NewTransport(ch, 0)

	dout := make([]byte, 1)
	m.TDITDOSeq(dout, true, []byte{0xa5}, 8)
	if dout[0] != 0xa5 {
		t.Fatalf("dout = %#02x, want 0xa5", dout[0])
	}
}

func TestTDITDOSeqInPlace(t *testing.T) {
	ch := &scriptChannel{resp: []byte{0x11, 0x22}}
	m := NewTransport(ch, 0)

	buf := []byte{0xaa, 0xbb}
	m.TDITDOSeq(buf, false, buf, 16)
	if buf[0] != 0x11 || buf[1] != 0x22 {
		t.Fatalf("in-place shift got % #x", buf)
	}
	// The command stream must carry the original data, not the response.
	want := []byte{opReadWriteBytes, 1, 0, 0xaa, 0xbb}
	if !bytes.Equal(ch.written(), want) {
		t.Fatalf("emitted % #x, want % #x", ch.written(), want)
	}
}

func TestTDISeqWritesOnly(t *testing.T) {
	ch := &scriptChannel{}
	m := NewTransport(ch, 0)
	m.TDISeq(false, []byte{0x12, 0x03}, 12)

	want := []byte{
		opWriteBytes, 0, 0, 0x12,
		opWriteBits, 3, 0x03,
	}
	if !bytes.Equal(ch.written(), want) {
		t.Fatalf("emitted % #x, want % #x", ch.written(), want)
	}
}

func TestZeroCycles(t *testing.T) {
	ch := &scriptChannel{}
	m := NewTransport(ch, 0)
	m.TDITDOSeq(make([]byte, 1), true, []byte{0xff}, 0)
	m.TDISeq(true, []byte{0xff}, 0)
	if len(ch.writes) != 0 {
		t.Fatalf("zero-cycle shifts emitted %d packets", len(ch.writes))
	}
}

func TestCycleHoldsLines(t *testing.T) {
	ch := &scriptChannel{}
	m := NewTransport(ch, 0)
	m.Cycle(false, true, 9)

	// TMS low for every bit, TDI held via bit 7.
	want := []byte{
		opTMSWrite, 6, 0x80,
		opTMSWrite, 1, 0x80,
	}
	if !bytes.Equal(ch.written(), want) {
		t.Fatalf("emitted % #x, want % #x", ch.written(), want)
	}

	ch = &scriptChannel{}
	m = NewTransport(ch, 0)
	m.Cycle(true, false, 3)
	want = []byte{opTMSWrite, 2, 0x07}
	if !bytes.Equal(ch.written(), want) {
		t.Fatalf("emitted % #x, want % #x", ch.written(), want)
	}
}

func TestResetEmitsSoftSequence(t *testing.T) {
	ch := &scriptChannel{}
	m := NewTransport(ch, 0)
	m.Reset()

	// Five ones and a zero within the low six bits of one 6-cycle burst.
	want := []byte{opTMSWrite, 5, 0x80 | 0x1f}
	if !bytes.Equal(ch.written(), want) {
		t.Fatalf("emitted % #x, want % #x", ch.written(), want)
	}
}
