// Package cmsisdap implements the TAP transport on ARM CMSIS-DAP probes. TAP
// operations are encoded as DAP_SWJ_Sequence and DAP_JTAG_Sequence commands
// and exchanged over USB bulk transfers; the probe firmware does the actual
// pin work.
package cmsisdap

import (
	"encoding/binary"
	"fmt"
)

// CMSIS-DAP command IDs.
const (
	CmdInfo        = 0x00
	CmdHostStatus  = 0x01
	CmdConnect     = 0x02
	CmdDisconnect  = 0x03
	CmdResetTarget = 0x0A
	CmdSWJClock    = 0x11
	CmdSWJSequence = 0x12
	CmdJTAGSeq     = 0x14
)

// DAP_Info info IDs.
const (
	InfoVendorID     = 0x01
	InfoProductID    = 0x02
	InfoSerialNum    = 0x03
	InfoFirmwareVer  = 0x04
	InfoCapabilities = 0xF0
	InfoPacketCount  = 0xFE
	InfoPacketSize   = 0xFF
)

// Connection ports for DAP_Connect.
const (
	PortDefault = 0
	PortSWD     = 1
	PortJTAG    = 2
)

// Response status codes.
const (
	StatusOK    = 0x00
	StatusError = 0xFF
)

// DAP_JTAG_Sequence info byte flags.
const (
	SeqTCKMask = 0x3F // bits [5:0]: TCK count, 0 encodes 64
	SeqTMS     = 0x40 // bit [6]: TMS level for the whole sequence
	SeqTDO     = 0x80 // bit [7]: capture TDO
)

// SeqMaxCycles is the largest clock count one JTAG sequence can carry.
const SeqMaxCycles = 64

// Sequence is one element of a DAP_JTAG_Sequence command: up to 64 clocks
// with a fixed TMS level and optional TDO capture.
type Sequence struct {
	Info byte
	TDI  []byte
}

// NewSequence builds a sequence descriptor. cycles must be in [1, 64]; tdi
// carries ceil(cycles/8) bytes, LSB first.
func NewSequence(cycles int, tms, capture bool, tdi []byte) Sequence {
	info := byte(cycles & SeqTCKMask)
	if tms {
		info |= SeqTMS
	}
	if capture {
		info |= SeqTDO
	}
	return Sequence{Info: info, TDI: tdi}
}

// Cycles returns the clock count of the sequence.
func (s *Sequence) Cycles() int {
	n := int(s.Info & SeqTCKMask)
	if n == 0 {
		return SeqMaxCycles
	}
	return n
}

// TMS reports the TMS level driven during the sequence.
func (s *Sequence) TMS() bool {
	return s.Info&SeqTMS != 0
}

// Captures reports whether the sequence returns TDO data.
func (s *Sequence) Captures() bool {
	return s.Info&SeqTDO != 0
}

// EncodedLen is the command space the sequence occupies.
func (s *Sequence) EncodedLen() int {
	return 1 + len(s.TDI)
}

// ResponseLen is the response space the sequence produces.
func (s *Sequence) ResponseLen() int {
	if !s.Captures() {
		return 0
	}
	return len(s.TDI)
}

// EncodeJTAGSeq builds a DAP_JTAG_Sequence command from the given sequences.
func EncodeJTAGSeq(seqs []Sequence) []byte {
	size := 2
	for i := range seqs {
		size += seqs[i].EncodedLen()
	}
	cmd := make([]byte, 2, size)
	cmd[0] = CmdJTAGSeq
	cmd[1] = byte(len(seqs))
	for i := range seqs {
		cmd = append(cmd, seqs[i].Info)
		cmd = append(cmd, seqs[i].TDI...)
	}
	return cmd
}

// DecodeJTAGSeq checks the response status and returns the captured TDO
// bytes of each capturing sequence, in command order.
func DecodeJTAGSeq(resp []byte, seqs []Sequence) ([][]byte, error) {
	if len(resp) < 2 {
		return nil, fmt.Errorf("cmsisdap: JTAG sequence response truncated")
	}
	if resp[0] != CmdJTAGSeq {
		return nil, fmt.Errorf("cmsisdap: unexpected response command %#02x", resp[0])
	}
	if resp[1] != StatusOK {
		return nil, fmt.Errorf("cmsisdap: JTAG sequence rejected, status %#02x", resp[1])
	}

	var out [][]byte
	offset := 2
	for i := range seqs {
		n := seqs[i].ResponseLen()
		if n == 0 {
			continue
		}
		if offset+n > len(resp) {
			return nil, fmt.Errorf("cmsisdap: JTAG sequence response short by %d bytes", offset+n-len(resp))
		}
		out = append(out, resp[offset:offset+n])
		offset += n
	}
	return out, nil
}

// EncodeSWJSeq builds a DAP_SWJ_Sequence command clocking cycles bits of
// data, LSB first, onto TMS/SWDIO. cycles must be in [1, 256].
func EncodeSWJSeq(data []byte, cycles int) []byte {
	cmd := make([]byte, 2, 2+len(data))
	cmd[0] = CmdSWJSequence
	cmd[1] = byte(cycles) // 256 wraps to 0, the encoding for 256
	return append(cmd, data...)
}

// DecodeStatus checks a plain <cmd, status> response.
func DecodeStatus(resp []byte, cmd byte) error {
	if len(resp) < 2 {
		return fmt.Errorf("cmsisdap: response truncated")
	}
	if resp[0] != cmd {
		return fmt.Errorf("cmsisdap: unexpected response command %#02x, want %#02x", resp[0], cmd)
	}
	if resp[1] != StatusOK {
		return fmt.Errorf("cmsisdap: command %#02x failed, status %#02x", cmd, resp[1])
	}
	return nil
}

// EncodeConnect builds a DAP_Connect command for the given port.
func EncodeConnect(port byte) []byte {
	return []byte{CmdConnect, port}
}

// DecodeConnect returns the port the probe actually selected.
func DecodeConnect(resp []byte) (byte, error) {
	if len(resp) < 2 {
		return 0, fmt.Errorf("cmsisdap: connect response truncated")
	}
	if resp[0] != CmdConnect {
		return 0, fmt.Errorf("cmsisdap: unexpected response command %#02x", resp[0])
	}
	if resp[1] == PortDefault {
		return 0, fmt.Errorf("cmsisdap: probe refused the connection")
	}
	return resp[1], nil
}

// EncodeDisconnect builds a DAP_Disconnect command.
func EncodeDisconnect() []byte {
	return []byte{CmdDisconnect}
}

// EncodeInfo builds a DAP_Info query.
func EncodeInfo(id byte) []byte {
	return []byte{CmdInfo, id}
}

// DecodeInfoString parses a string-valued DAP_Info response.
func DecodeInfoString(resp []byte) (string, error) {
	if len(resp) < 2 {
		return "", fmt.Errorf("cmsisdap: info response truncated")
	}
	if resp[0] != CmdInfo {
		return "", fmt.Errorf("cmsisdap: unexpected response command %#02x", resp[0])
	}
	n := int(resp[1])
	if len(resp) < 2+n {
		return "", fmt.Errorf("cmsisdap: info string truncated")
	}
	s := resp[2 : 2+n]
	// Firmware tends to include the NUL terminator in the count.
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return string(s), nil
}

// EncodeSWJClock builds a DAP_SWJ_Clock command setting the TCK rate in Hz.
func EncodeSWJClock(hz uint32) []byte {
	cmd := make([]byte, 5)
	cmd[0] = CmdSWJClock
	binary.LittleEndian.PutUint32(cmd[1:], hz)
	return cmd
}
