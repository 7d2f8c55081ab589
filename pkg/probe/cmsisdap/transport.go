package cmsisdap

import (
	"fmt"

	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe"
)

// Exchanger is the command/response pipe a Transport runs on. *Pipe
// implements it over USB; tests substitute a scripted one.
type Exchanger interface {
	Exchange(cmd []byte) ([]byte, error)
	PacketSize() int
}

// Transport drives a TAP through a CMSIS-DAP probe. It implements
// probe.Transport.
//
// Session setup (Connect, SetClock) returns errors; once the session is
// running a failed exchange is fatal, since the probe and host disagree
// about how many response packets are in flight.
type Transport struct {
	pipe Exchanger
	idle int
}

// NewTransport wraps an open command pipe.
func NewTransport(pipe Exchanger, idleCycles int) *Transport {
	return &Transport{pipe: pipe, idle: idleCycles}
}

// Connect selects the probe's JTAG port.
func (t *Transport) Connect() error {
	resp, err := t.pipe.Exchange(EncodeConnect(PortJTAG))
	if err != nil {
		return err
	}
	port, err := DecodeConnect(resp)
	if err != nil {
		return err
	}
	if port != PortJTAG {
		return fmt.Errorf("cmsisdap: probe selected port %d, want JTAG", port)
	}
	return nil
}

// Disconnect releases the probe's port drivers.
func (t *Transport) Disconnect() error {
	resp, err := t.pipe.Exchange(EncodeDisconnect())
	if err != nil {
		return err
	}
	return DecodeStatus(resp, CmdDisconnect)
}

// SetClock sets the probe's TCK rate in Hz.
func (t *Transport) SetClock(hz uint32) error {
	resp, err := t.pipe.Exchange(EncodeSWJClock(hz))
	if err != nil {
		return err
	}
	return DecodeStatus(resp, CmdSWJClock)
}

// Info reads one of the probe's DAP_Info strings.
func (t *Transport) Info(id byte) (string, error) {
	resp, err := t.pipe.Exchange(EncodeInfo(id))
	if err != nil {
		return "", err
	}
	return DecodeInfoString(resp)
}

func (t *Transport) exchange(cmd []byte) []byte {
	resp, err := t.pipe.Exchange(cmd)
	if err != nil {
		probe.Logger().WithError(err).Fatal("cmsisdap: probe exchange failed")
	}
	return resp
}

// IdleCycles implements probe.Transport.
func (t *Transport) IdleCycles() int {
	return t.idle
}

// Reset clocks the soft reset sequence. CMSIS-DAP exposes no dedicated TRST
// control, so the hardware pulse is skipped.
func (t *Transport) Reset() {
	probe.SoftReset(t)
}

// Next clocks a single captured transition.
func (t *Transport) Next(tms, tdi bool) bool {
	var b byte
	if tdi {
		b = 1
	}
	seqs := []Sequence{NewSequence(1, tms, true, []byte{b})}
	resp := t.exchange(EncodeJTAGSeq(seqs))
	tdo, err := DecodeJTAGSeq(resp, seqs)
	if err != nil {
		probe.Logger().WithError(err).Fatal("cmsisdap: single transition failed")
	}
	return tdo[0][0]&1 != 0
}

// TMSSeq drives the pattern through DAP_SWJ_Sequence, which clocks raw bits
// onto TMS. The 256-cycle command limit never binds: patterns are at most 32
// cycles. Zero cycles must not reach the wire, as the command's count byte
// encodes 256 as 0.
func (t *Transport) TMSSeq(pattern uint32, cycles int) {
	if cycles <= 0 {
		return
	}
	data := make([]byte, (cycles+7)/8)
	for i := 0; i < cycles; i++ {
		if pattern&(1<<i) != 0 {
			data[i>>3] |= 1 << (i & 7)
		}
	}
	resp := t.exchange(EncodeSWJSeq(data, cycles))
	if err := DecodeStatus(resp, CmdSWJSequence); err != nil {
		probe.Logger().WithError(err).Fatal("cmsisdap: TMS sequence failed")
	}
}

// planSeqs splits a data shift into JTAG sequences: TMS-low chunks of up to
// 64 cycles, then a final one-cycle TMS-high sequence when the caller leaves
// the shift state.
func planSeqs(finalTMS, capture bool, din []byte, cycles int) []Sequence {
	dataBits := cycles
	if finalTMS {
		dataBits--
	}
	var seqs []Sequence
	for off := 0; off < dataBits; off += SeqMaxCycles {
		n := dataBits - off
		if n > SeqMaxCycles {
			n = SeqMaxCycles
		}
		seqs = append(seqs, NewSequence(n, false, capture, din[off>>3:off>>3+(n+7)/8]))
	}
	if finalTMS {
		var b byte
		if din[dataBits>>3]&(1<<(dataBits&7)) != 0 {
			b = 1
		}
		seqs = append(seqs, NewSequence(1, true, capture, []byte{b}))
	}
	return seqs
}

// send transmits the sequences in as many packets as the probe's packet size
// requires and returns the captured blobs in sequence order.
func (t *Transport) send(seqs []Sequence) [][]byte {
	var out [][]byte
	limit := t.pipe.PacketSize()
	for len(seqs) > 0 {
		batch := 0
		cmdLen, respLen := 2, 2
		for batch < len(seqs) {
			s := &seqs[batch]
			if cmdLen+s.EncodedLen() > limit || respLen+s.ResponseLen() > limit {
				break
			}
			cmdLen += s.EncodedLen()
			respLen += s.ResponseLen()
			batch++
		}
		if batch == 0 {
			// A single sequence never exceeds a 64-byte packet.
			probe.Logger().Fatal("cmsisdap: sequence does not fit a packet")
		}
		resp := t.exchange(EncodeJTAGSeq(seqs[:batch]))
		blobs, err := DecodeJTAGSeq(resp, seqs[:batch])
		if err != nil {
			probe.Logger().WithError(err).Fatal("cmsisdap: JTAG sequence failed")
		}
		out = append(out, blobs...)
		seqs = seqs[batch:]
	}
	return out
}

// TDITDOSeq shifts cycles bits, reassembling the captured chunks. Chunks are
// 64 cycles long, so every chunk lands byte-aligned; only the trailing
// partial byte and the final TMS capture need bit surgery.
func (t *Transport) TDITDOSeq(dout []byte, finalTMS bool, din []byte, cycles int) {
	if cycles == 0 {
		return
	}
	if dout == nil {
		t.TDISeq(finalTMS, din, cycles)
		return
	}

	dataBits := cycles
	if finalTMS {
		dataBits--
	}
	blobs := t.send(planSeqs(finalTMS, true, din, cycles))

	n := len(blobs)
	var finalBlob []byte
	if finalTMS {
		n--
		finalBlob = blobs[n]
	}
	byteOff := 0
	fullBytes := dataBits >> 3
	for _, blob := range blobs[:n] {
		for _, b := range blob {
			if byteOff == fullBytes {
				break
			}
			dout[byteOff] = b
			byteOff++
		}
	}

	rem := dataBits & 7
	var tail byte
	if rem != 0 {
		last := blobs[n-1]
		tail = last[len(last)-1] & (1<<rem - 1)
	}
	tailBits := rem
	if finalTMS {
		if finalBlob[0]&1 != 0 {
			tail |= 1 << tailBits
		}
		tailBits++
	}
	if tailBits == 8 {
		dout[fullBytes] = tail
	} else if cycles&7 != 0 {
		dout[cycles>>3] = tail
	}
}

// TDISeq is the write-only shift.
func (t *Transport) TDISeq(finalTMS bool, din []byte, cycles int) {
	if cycles == 0 {
		return
	}
	t.send(planSeqs(finalTMS, false, din, cycles))
}

// Cycle holds both lines steady for cycles clocks.
func (t *Transport) Cycle(tms, tdi bool, cycles int) {
	fill := byte(0x00)
	if tdi {
		fill = 0xff
	}
	var seqs []Sequence
	for cycles > 0 {
		n := cycles
		if n > SeqMaxCycles {
			n = SeqMaxCycles
		}
		buf := make([]byte, (n+7)/8)
		for i := range buf {
			buf[i] = fill
		}
		seqs = append(seqs, NewSequence(n, tms, false, buf))
		cycles -= n
	}
	t.send(seqs)
}
