package probe

import "sync/atomic"

// spinGuard forces one real memory operation per spin iteration so the loop
// in Delay.Wait cannot be folded away or reordered across the GPIO accesses
// it is pacing.
var spinGuard atomic.Uint32

// Delay is the timing discipline consulted around every clock edge a backend
// drives. A non-zero Cycles inserts a busy-wait of that many spin iterations,
// slowing the protocol down for marginal wiring or slow targets; zero skips
// all waiting. Backends branch between their delayed and undelayed loop
// variants once per outer operation, not per bit.
type Delay struct {
	// Cycles is the spin count per clock phase. Zero disables waiting.
	Cycles uint32
}

// Enabled reports whether Wait will spin at all.
func (d Delay) Enabled() bool {
	return d.Cycles != 0
}

// Wait spins for the configured cycle count. The wait is deliberately
// uninterruptible: it guarantees a minimum physical dwell time on the line
// regardless of scheduler jitter, which a preemptible sleep cannot.
func (d Delay) Wait() {
	for i := d.Cycles; i > 0; i-- {
		spinGuard.Add(1)
	}
}
