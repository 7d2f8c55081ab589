package gpio

import (
	"errors"
	"math/bits"

	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe"
)

// LineDir is the turnaround state of the shared SWDIO wire.
type LineDir uint8

const (
	// LineFloat releases the probe's driver; the target owns the wire.
	LineFloat LineDir = iota
	// LineDrive asserts the probe's driver.
	LineDrive
)

func (d LineDir) String() string {
	if d == LineDrive {
		return "drive"
	}
	return "float"
}

// SWDConfig carries the two SWD lines and timing.
type SWDConfig struct {
	SWCLK Pin
	SWDIO BidirPin

	// SWDIOIn optionally names a separate input half for targets wired with
	// split in/out level shifting. Defaults to reading SWDIO itself.
	SWDIOIn Pin

	Delay probe.Delay
}

// SWD drives the two-wire Serial Wire Debug protocol by bit-banging. It
// implements probe.SWDSequencer, managing turnaround and parity itself.
type SWD struct {
	clk   Pin
	dio   BidirPin
	din   Pin
	delay probe.Delay
	dir   LineDir
}

// NewSWD validates the wiring and returns the sequencer with the line
// floating, matching the reset-state assumption of the first turnaround.
func NewSWD(cfg SWDConfig) (*SWD, error) {
	if cfg.SWCLK == nil || cfg.SWDIO == nil {
		return nil, errors.New("gpio: SWCLK and SWDIO must both be wired")
	}
	s := &SWD{
		clk:   cfg.SWCLK,
		dio:   cfg.SWDIO,
		din:   cfg.SWDIOIn,
		delay: cfg.Delay,
		dir:   LineFloat,
	}
	if s.din == nil {
		s.din = cfg.SWDIO
	}
	s.clk.Clear()
	return s, nil
}

// Dir reports which side currently drives the data line.
func (s *SWD) Dir() LineDir {
	return s.dir
}

// Turnaround switches who drives SWDIO. A request matching the current
// direction is a no-op, so back-to-back operations in the same direction
// never waste a clock cycle. A direction change inserts one dead clock edge
// during which neither end drives the wire.
func (s *SWD) Turnaround(dir LineDir) {
	if dir == s.dir {
		return
	}
	s.dir = dir
	probe.Logger().WithField("dir", dir).Trace("swdio turnaround")

	if dir == LineFloat {
		s.dio.Float()
	} else {
		s.clk.Clear()
		s.delay.Wait()
	}
	s.clk.Set()
	s.delay.Wait()
	if dir == LineDrive {
		s.dio.Drive()
	}
}

// SeqIn clocks cycles bits in from the target, LSB first.
func (s *SWD) SeqIn(cycles int) uint32 {
	s.Turnaround(LineFloat)
	if s.delay.Enabled() {
		return s.seqInDelay(cycles)
	}
	return s.seqInNoDelay(cycles)
}

func (s *SWD) seqInDelay(cycles int) uint32 {
	var value uint32
	for cycle := 0; cycle < cycles; cycle++ {
		s.clk.Clear()
		if s.din.Get() {
			value |= 1 << cycle
		}
		s.delay.Wait()
		s.clk.Set()
		s.delay.Wait()
	}
	s.clk.Clear()
	return value
}

func (s *SWD) seqInNoDelay(cycles int) uint32 {
	var value uint32
	for cycle := 0; cycle < cycles; cycle++ {
		s.clk.Clear()
		if s.din.Get() {
			value |= 1 << cycle
		}
		s.clk.Set()
	}
	s.clk.Clear()
	return value
}

// SeqInParity reads cycles data bits plus the trailing parity bit and checks
// them: the popcount of data and parity together must be even. The read
// cycle is terminated with a turnaround back to drive either way; the caller
// decides whether a failed check is retried.
func (s *SWD) SeqInParity(cycles int) (uint32, bool) {
	value := s.SeqIn(cycles)
	s.delay.Wait()

	parity := bits.OnesCount32(value)
	if s.din.Get() {
		parity++
	}
	s.clk.Set()
	s.delay.Wait()

	s.Turnaround(LineDrive)
	return value, parity&1 == 0
}

// SeqOut clocks the low cycles bits of value out, LSB first.
func (s *SWD) SeqOut(value uint32, cycles int) {
	s.Turnaround(LineDrive)
	if s.delay.Enabled() {
		s.seqOutDelay(value, cycles)
	} else {
		s.seqOutNoDelay(value, cycles)
	}
}

func (s *SWD) seqOutDelay(value uint32, cycles int) {
	for cycle := 0; cycle < cycles; cycle++ {
		s.clk.Clear()
		s.dio.SetVal(value&(1<<cycle) != 0)
		s.delay.Wait()
		s.clk.Set()
		s.delay.Wait()
	}
	s.clk.Clear()
}

func (s *SWD) seqOutNoDelay(value uint32, cycles int) {
	for cycle := 0; cycle < cycles; cycle++ {
		s.clk.Clear()
		s.dio.SetVal(value&(1<<cycle) != 0)
		s.clk.Set()
	}
	s.clk.Clear()
}

// SeqOutParity writes cycles data bits followed by their odd-parity bit.
func (s *SWD) SeqOutParity(value uint32, cycles int) {
	parity := bits.OnesCount32(value)
	s.SeqOut(value, cycles)
	s.dio.SetVal(parity&1 != 0)
	s.delay.Wait()
	s.clk.Set()
	s.delay.Wait()
	s.clk.Clear()
}
