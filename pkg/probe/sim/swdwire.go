package sim

// SWDWire models the shared two-wire SWD interface from the target side.
// Bits the target will present are scripted into In ahead of time and
// consumed one per sample; levels the probe drives are recorded into Out on
// each rising clock edge, but only while the probe actually owns the wire.
// Rising edges during the dead turnaround cycle bump Edges without touching
// Out, which is what lets tests count turnaround overhead exactly.
type SWDWire struct {
	clk     bool
	level   bool
	driving bool

	// In is the script of bits the target presents, consumed per sample.
	In []bool
	// Out records the level the probe drove at each rising edge.
	Out []bool
	// Edges counts every rising clock edge, dead cycles included.
	Edges int
}

// Script queues value's low cycles bits, LSB first, as target input.
func (w *SWDWire) Script(value uint32, cycles int) {
	for i := 0; i < cycles; i++ {
		w.In = append(w.In, value&(1<<i) != 0)
	}
}

// ScriptBit queues a single target input bit.
func (w *SWDWire) ScriptBit(v bool) {
	w.In = append(w.In, v)
}

// OutBits packs the low 32 recorded output bits, LSB first.
func (w *SWDWire) OutBits() uint32 {
	var value uint32
	for i, b := range w.Out {
		if i == 32 {
			break
		}
		if b {
			value |= 1 << i
		}
	}
	return value
}

// Driving reports whether the probe currently owns the wire.
func (w *SWDWire) Driving() bool {
	return w.driving
}

func (w *SWDWire) sample() bool {
	if len(w.In) == 0 {
		return false
	}
	v := w.In[0]
	w.In = w.In[1:]
	return v
}

// CLK returns the clock pin.
func (w *SWDWire) CLK() WireCLK { return WireCLK{w} }

// DIO returns the bidirectional data pin.
func (w *SWDWire) DIO() *WireDIO { return &WireDIO{w} }

// WireCLK is the clock signal of an SWDWire.
type WireCLK struct {
	wire *SWDWire
}

func (p WireCLK) Set()   { p.SetVal(true) }
func (p WireCLK) Clear() { p.SetVal(false) }

func (p WireCLK) SetVal(v bool) {
	w := p.wire
	if v && !w.clk {
		w.Edges++
		if w.driving {
			w.Out = append(w.Out, w.level)
		}
	}
	w.clk = v
}

func (p WireCLK) Get() bool {
	return p.wire.clk
}

// WireDIO is the shared data signal of an SWDWire. While the probe drives it,
// Get reflects the driven level; while floating, Get consumes the next
// scripted target bit.
type WireDIO struct {
	wire *SWDWire
}

func (p *WireDIO) Set()   { p.SetVal(true) }
func (p *WireDIO) Clear() { p.SetVal(false) }

func (p *WireDIO) SetVal(v bool) {
	p.wire.level = v
}

func (p *WireDIO) Get() bool {
	if p.wire.driving {
		return p.wire.level
	}
	return p.wire.sample()
}

func (p *WireDIO) Drive() {
	p.wire.driving = true
}

func (p *WireDIO) Float() {
	p.wire.driving = false
}
