package probe

import "github.com/blackmagic-debug/blackmagic-sub015/pkg/tap"

// Canned TMS sequences. These replace the original preprocessor helpers with
// functions over the Transport interface; the patterns themselves live in the
// tap package next to the state graph they traverse.

// SoftReset clocks the synchronous reset sequence (1, 1, 1, 1, 1, 0),
// landing in Run-Test/Idle from any starting state.
func SoftReset(t Transport) {
	t.TMSSeq(tap.SoftResetPattern, tap.SoftResetCycles)
}

// EnterShiftIR moves from Run-Test/Idle to Shift-IR.
func EnterShiftIR(t Transport) {
	t.TMSSeq(tap.ShiftIRPattern, tap.ShiftIRCycles)
}

// EnterShiftDR moves from Run-Test/Idle to Shift-DR.
func EnterShiftDR(t Transport) {
	t.TMSSeq(tap.ShiftDRPattern, tap.ShiftDRCycles)
}

// ReturnIdle moves from Exit1-DR/IR back to Run-Test/Idle, then holds there
// for the given number of idle cycles.
func ReturnIdle(t Transport, idleCycles int) {
	t.TMSSeq(tap.ReturnIdlePattern, idleCycles+1)
}

// SWDToJTAG switches an SWJ-DP that may be in SW-DP mode over to its JTAG-DP:
// at least 50 cycles with TMS high (an SWD line reset), the 16-bit select
// sequence, then a soft reset. Harmless when the target is already in JTAG
// mode.
func SWDToJTAG(t Transport) {
	for i := 0; i <= 50; i++ {
		t.Next(true, false)
	}
	t.TMSSeq(tap.SWDToJTAGPattern, tap.SWDToJTAGCycles)
	SoftReset(t)
}
