// Package tap models the IEEE 1149.1 TAP controller state graph. The
// transport layer itself never tracks TAP state; this model exists so the
// simulator and the tests can verify where a TMS pattern actually lands.
package tap

import "fmt"

// State is one of the 16 TAP controller states.
type State uint8

const (
	TestLogicReset State = iota
	RunTestIdle
	SelectDRScan
	CaptureDR
	ShiftDR
	Exit1DR
	PauseDR
	Exit2DR
	UpdateDR
	SelectIRScan
	CaptureIR
	ShiftIR
	Exit1IR
	PauseIR
	Exit2IR
	UpdateIR
	numStates
)

var stateNames = [numStates]string{
	"Test-Logic-Reset",
	"Run-Test/Idle",
	"Select-DR-Scan",
	"Capture-DR",
	"Shift-DR",
	"Exit1-DR",
	"Pause-DR",
	"Exit2-DR",
	"Update-DR",
	"Select-IR-Scan",
	"Capture-IR",
	"Shift-IR",
	"Exit1-IR",
	"Pause-IR",
	"Exit2-IR",
	"Update-IR",
}

func (s State) String() string {
	if s < numStates {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// transitions[s][0] is the successor on TMS=0, transitions[s][1] on TMS=1.
var transitions = [numStates][2]State{
	TestLogicReset: {RunTestIdle, TestLogicReset},
	RunTestIdle:    {RunTestIdle, SelectDRScan},
	SelectDRScan:   {CaptureDR, SelectIRScan},
	CaptureDR:      {ShiftDR, Exit1DR},
	ShiftDR:        {ShiftDR, Exit1DR},
	Exit1DR:        {PauseDR, UpdateDR},
	PauseDR:        {PauseDR, Exit2DR},
	Exit2DR:        {ShiftDR, UpdateDR},
	UpdateDR:       {RunTestIdle, SelectDRScan},
	SelectIRScan:   {CaptureIR, TestLogicReset},
	CaptureIR:      {ShiftIR, Exit1IR},
	ShiftIR:        {ShiftIR, Exit1IR},
	Exit1IR:        {PauseIR, UpdateIR},
	PauseIR:        {PauseIR, Exit2IR},
	Exit2IR:        {ShiftIR, UpdateIR},
	UpdateIR:       {RunTestIdle, SelectDRScan},
}

// Next returns the state reached from s by one TCK cycle with the given TMS
// value.
func Next(s State, tms bool) State {
	if s >= numStates {
		panic(fmt.Sprintf("tap: invalid state %d", uint8(s)))
	}
	if tms {
		return transitions[s][1]
	}
	return transitions[s][0]
}

// Walk applies cycles TMS bits, LSB first, from pattern and returns the
// resulting state. This is the state-graph mirror of a transport TMSSeq call.
func Walk(s State, pattern uint32, cycles int) State {
	for i := 0; i < cycles; i++ {
		s = Next(s, pattern&(1<<i) != 0)
	}
	return s
}

// TMS patterns replayed by the transport layer, packed LSB first.
const (
	// SoftResetPattern is five TMS-high cycles followed by one low: lands in
	// Run-Test/Idle from any starting state.
	SoftResetPattern uint32 = 0x1f
	SoftResetCycles         = 6

	// ShiftIRPattern moves Run-Test/Idle to Shift-IR (1, 1, 0, 0).
	ShiftIRPattern uint32 = 0x03
	ShiftIRCycles         = 4

	// ShiftDRPattern moves Run-Test/Idle to Shift-DR (1, 0, 0).
	ShiftDRPattern uint32 = 0x01
	ShiftDRCycles         = 3

	// ReturnIdlePattern moves Exit1-DR/IR to Run-Test/Idle (1, 0).
	ReturnIdlePattern uint32 = 0x01
	ReturnIdleCycles         = 2

	// SWDToJTAGPattern is the ARM SWJ-DP switch sequence selecting the JTAG-DP,
	// sent after at least 50 cycles of TMS high.
	SWDToJTAGPattern uint32 = 0xe73c
	SWDToJTAGCycles         = 16
)

// Machine tracks TAP state across clocked TMS bits. It performs no I/O.
type Machine struct {
	state State
}

// NewMachine returns a Machine initialized to Test-Logic-Reset.
func NewMachine() *Machine {
	return &Machine{state: TestLogicReset}
}

// State reports the tracked state.
func (m *Machine) State() State {
	return m.state
}

// Clock advances one TCK cycle with the given TMS bit.
func (m *Machine) Clock(tms bool) State {
	m.state = Next(m.state, tms)
	return m.state
}

// Apply advances through cycles bits of pattern, LSB first.
func (m *Machine) Apply(pattern uint32, cycles int) State {
	m.state = Walk(m.state, pattern, cycles)
	return m.state
}

// Reset clocks five TMS-high cycles, the IEEE-recommended synchronous reset.
func (m *Machine) Reset() State {
	return m.Apply(0x1f, 5)
}

// Path computes the shortest TMS bit sequence from one state to another by
// breadth-first search over the transition graph. The returned pattern is
// packed LSB first.
func Path(from, to State) (pattern uint32, cycles int) {
	if from == to {
		return 0, 0
	}
	type node struct {
		state   State
		pattern uint32
		depth   int
	}
	var visited [numStates]bool
	visited[from] = true
	queue := []node{{state: from}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, tms := range []bool{false, true} {
			next := Next(cur.state, tms)
			if visited[next] {
				continue
			}
			p := cur.pattern
			if tms {
				p |= 1 << cur.depth
			}
			if next == to {
				return p, cur.depth + 1
			}
			visited[next] = true
			queue = append(queue, node{state: next, pattern: p, depth: cur.depth + 1})
		}
	}
	// The TAP graph is strongly connected; unreachable only on bad input.
	panic(fmt.Sprintf("tap: no path from %s to %s", from, to))
}
