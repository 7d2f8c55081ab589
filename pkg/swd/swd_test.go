package swd

import (
	"errors"
	"testing"
)

// seqEvent is one recorded sequencer call.
type seqEvent struct {
	op     string // "out", "outp", "in", "inp"
	value  uint32
	cycles int
}

// fakeSeq records outgoing sequences and plays back scripted reads.
type fakeSeq struct {
	events []seqEvent
	ins    []uint32
	inPs   []struct {
		value uint32
		ok    bool
	}
}

func (f *fakeSeq) SeqOut(value uint32, cycles int) {
	f.events = append(f.events, seqEvent{"out", value, cycles})
}

func (f *fakeSeq) SeqOutParity(value uint32, cycles int) {
	f.events = append(f.events, seqEvent{"outp", value, cycles})
}

func (f *fakeSeq) SeqIn(cycles int) uint32 {
	f.events = append(f.events, seqEvent{"in", 0, cycles})
	v := f.ins[0]
	f.ins = f.ins[1:]
	return v
}

func (f *fakeSeq) SeqInParity(cycles int) (uint32, bool) {
	f.events = append(f.events, seqEvent{"inp", 0, cycles})
	v := f.inPs[0]
	f.inPs = f.inPs[1:]
	return v.value, v.ok
}

func (f *fakeSeq) scriptAck(acks ...uint32) {
	f.ins = append(f.ins, acks...)
}

func (f *fakeSeq) scriptRead(value uint32, ok bool) {
	f.inPs = append(f.inPs, struct {
		value uint32
		ok    bool
	}{value, ok})
}

func TestRequest(t *testing.T) {
	cases := []struct {
		name  string
		apndp bool
		rnw   bool
		addr  uint8
		want  byte
	}{
		{"dp read dpidr", false, true, 0x0, 0xa5},
		{"dp read ctrl/stat", false, true, 0x4, 0x8d},
		{"dp write abort", false, false, 0x0, 0x81},
		{"dp write select", false, false, 0x8, 0xb1},
		{"ap read 0", true, true, 0x0, 0x87},
		{"ap write 4", true, false, 0x4, 0x8b},
		{"dp read rdbuff", false, true, 0xc, 0xbd},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Request(tc.apndp, tc.rnw, tc.addr); got != tc.want {
				t.Fatalf("Request(%v, %v, %#x) = %#02x, want %#02x",
					tc.apndp, tc.rnw, tc.addr, got, tc.want)
			}
		})
	}
}

func TestLineResetLength(t *testing.T) {
	f := &fakeSeq{}
	NewDP(f).LineReset()

	total := 0
	for _, e := range f.events {
		if e.op != "out" || e.value != 0xffffffff {
			t.Fatalf("line reset emitted %+v", e)
		}
		total += e.cycles
	}
	if total < 50 {
		t.Fatalf("line reset held %d cycles, want at least 50", total)
	}
}

func TestJTAGToSWDSequence(t *testing.T) {
	f := &fakeSeq{}
	NewDP(f).JTAGToSWD()

	var sawSelect bool
	for i, e := range f.events {
		if e.op != "out" {
			t.Fatalf("switch emitted %+v", e)
		}
		if e.value == JTAGToSWDPattern && e.cycles == 16 {
			sawSelect = true
			// A full line reset must follow the selection sequence.
			rest := 0
			for _, r := range f.events[i+1:] {
				if r.value == 0xffffffff {
					rest += r.cycles
				}
			}
			if rest < 50 {
				t.Fatalf("only %d reset cycles after the selection sequence", rest)
			}
		}
	}
	if !sawSelect {
		t.Fatal("selection sequence never emitted")
	}
	if last := f.events[len(f.events)-1]; last.value != 0 || last.cycles != 16 {
		t.Fatalf("switch did not end with idle cycles: %+v", last)
	}
}

func TestReadIDCode(t *testing.T) {
	f := &fakeSeq{}
	f.scriptAck(ACKOK)
	f.scriptRead(0x2ba01477, true)

	got, err := NewDP(f).ReadIDCode()
	if err != nil {
		t.Fatalf("ReadIDCode: %v", err)
	}
	if got != 0x2ba01477 {
		t.Fatalf("DPIDR = %#08x, want 0x2ba01477", got)
	}
	if first := f.events[0]; first.op != "out" || first.value != 0xa5 || first.cycles != 8 {
		t.Fatalf("request header = %+v, want 0xa5 over 8 cycles", first)
	}
}

func TestReadParityError(t *testing.T) {
	f := &fakeSeq{}
	f.scriptAck(ACKOK)
	f.scriptRead(0xdeadbeef, false)

	_, err := NewDP(f).Read(false, RegDPIDR)
	if !errors.Is(err, ErrParity) {
		t.Fatalf("err = %v, want ErrParity", err)
	}
}

func TestWaitRetry(t *testing.T) {
	f := &fakeSeq{}
	f.scriptAck(ACKWait, ACKWait, ACKOK)
	f.scriptRead(0x12345678, true)

	dp := NewDP(f)
	got, err := dp.Read(false, RegCtrlStat)
	if err != nil {
		t.Fatalf("Read after WAITs: %v", err)
	}
	if got != 0x12345678 {
		t.Fatalf("value = %#08x", got)
	}

	// Three request headers were emitted.
	headers := 0
	for _, e := range f.events {
		if e.op == "out" && e.cycles == 8 {
			headers++
		}
	}
	if headers != 3 {
		t.Fatalf("emitted %d request headers, want 3", headers)
	}
}

func TestWaitExhaustion(t *testing.T) {
	f := &fakeSeq{}
	dp := NewDP(f)
	dp.Retries = 2
	f.scriptAck(ACKWait, ACKWait, ACKWait)

	_, err := dp.Read(false, RegCtrlStat)
	if !errors.Is(err, ErrWait) {
		t.Fatalf("err = %v, want ErrWait", err)
	}
}

func TestFault(t *testing.T) {
	f := &fakeSeq{}
	f.scriptAck(ACKFault)

	err := NewDP(f).Write(false, RegSelect, 0)
	if !errors.Is(err, ErrFault) {
		t.Fatalf("err = %v, want ErrFault", err)
	}
}

func TestWriteEmitsParityAndIdle(t *testing.T) {
	f := &fakeSeq{}
	f.scriptAck(ACKOK)

	if err := NewDP(f).Write(false, RegSelect, 0xcafebabe); err != nil {
		t.Fatalf("Write: %v", err)
	}
	n := len(f.events)
	if n < 2 {
		t.Fatalf("too few events: %+v", f.events)
	}
	data, idle := f.events[n-2], f.events[n-1]
	if data.op != "outp" || data.value != 0xcafebabe || data.cycles != 32 {
		t.Fatalf("data phase = %+v", data)
	}
	// Two idle cycles push the write through the target clock crossing.
	if idle.op != "out" || idle.value != 0 || idle.cycles != 2 {
		t.Fatalf("idle padding = %+v", idle)
	}
}

func TestClearErrors(t *testing.T) {
	f := &fakeSeq{}
	f.scriptAck(ACKOK, ACKOK)
	f.scriptRead(CtrlStatStickyErr|CtrlStatWDataErr, true)

	dp := NewDP(f)
	flags, err := dp.ClearErrors()
	if err != nil {
		t.Fatalf("ClearErrors: %v", err)
	}
	if flags != CtrlStatStickyErr|CtrlStatWDataErr {
		t.Fatalf("flags = %#x", flags)
	}

	var abort *seqEvent
	for i := range f.events {
		if f.events[i].op == "outp" {
			abort = &f.events[i]
		}
	}
	if abort == nil || abort.value != AbortStkErrClr|AbortWDErrClr {
		t.Fatalf("abort write = %+v, want STKERRCLR|WDERRCLR", abort)
	}
}
