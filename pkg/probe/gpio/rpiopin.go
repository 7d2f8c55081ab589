package gpio

import (
	rpio "github.com/stianeikeland/go-rpio/v4"
)

// RPiPin adapts a memory-mapped Raspberry Pi GPIO to the Pin capability set.
// The caller is responsible for rpio.Open and for putting output lines into
// output mode before the session starts.
type RPiPin struct {
	P rpio.Pin
}

func (p RPiPin) Set() {
	p.P.High()
}

func (p RPiPin) Clear() {
	p.P.Low()
}

func (p RPiPin) Get() bool {
	return p.P.Read() == rpio.High
}

func (p RPiPin) SetVal(v bool) {
	if v {
		p.P.High()
	} else {
		p.P.Low()
	}
}

// RPiBidirPin adapts a Raspberry Pi GPIO to the half-duplex SWDIO line by
// flipping the pin between output and input mode.
type RPiBidirPin struct {
	P rpio.Pin

	level bool
}

func (p *RPiBidirPin) Set()   { p.SetVal(true) }
func (p *RPiBidirPin) Clear() { p.SetVal(false) }

func (p *RPiBidirPin) SetVal(v bool) {
	p.level = v
	if v {
		p.P.High()
	} else {
		p.P.Low()
	}
}

func (p *RPiBidirPin) Get() bool {
	return p.P.Read() == rpio.High
}

func (p *RPiBidirPin) Drive() {
	p.P.Output()
	p.SetVal(p.level)
}

func (p *RPiBidirPin) Float() {
	p.P.Input()
	p.P.PullUp()
}
