package gpio

import (
	periphgpio "periph.io/x/conn/v3/gpio"
)

// PeriphPin adapts a periph.io pin to the Pin capability set. The pin is put
// into output mode by the first level write; Get relies on the host driver
// reading back the driven level.
type PeriphPin struct {
	P periphgpio.PinIO
}

func (p PeriphPin) Set() {
	_ = p.P.Out(periphgpio.High)
}

func (p PeriphPin) Clear() {
	_ = p.P.Out(periphgpio.Low)
}

func (p PeriphPin) Get() bool {
	return p.P.Read() == periphgpio.High
}

func (p PeriphPin) SetVal(v bool) {
	_ = p.P.Out(periphgpio.Level(v))
}

// PeriphInPin adapts a periph.io pin used purely as an input (TDO).
type PeriphInPin struct {
	P periphgpio.PinIO
}

// Init configures the pin as an input. Edge detection is not needed; the
// engine polls synchronously with its own clock.
func (p PeriphInPin) Init() error {
	return p.P.In(periphgpio.PullNoChange, periphgpio.NoEdge)
}

func (p PeriphInPin) Set()        {}
func (p PeriphInPin) Clear()      {}
func (p PeriphInPin) SetVal(bool) {}

func (p PeriphInPin) Get() bool {
	return p.P.Read() == periphgpio.High
}

// PeriphBidirPin adapts a periph.io pin to the half-duplex SWDIO line. The
// asserted level is cached so Drive can re-assert the last value written
// while the line floated.
type PeriphBidirPin struct {
	P periphgpio.PinIO

	driving bool
	level   periphgpio.Level
}

func (p *PeriphBidirPin) Set()   { p.SetVal(true) }
func (p *PeriphBidirPin) Clear() { p.SetVal(false) }

func (p *PeriphBidirPin) SetVal(v bool) {
	p.level = periphgpio.Level(v)
	if p.driving {
		_ = p.P.Out(p.level)
	}
}

func (p *PeriphBidirPin) Get() bool {
	return p.P.Read() == periphgpio.High
}

func (p *PeriphBidirPin) Drive() {
	p.driving = true
	_ = p.P.Out(p.level)
}

func (p *PeriphBidirPin) Float() {
	p.driving = false
	_ = p.P.In(periphgpio.PullUp, periphgpio.NoEdge)
}
