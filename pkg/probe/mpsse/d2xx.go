package mpsse

import (
	"errors"
	"fmt"

	"periph.io/x/d2xx"
)

// Adapter pinout on the low byte of the FTDI data bus, the conventional JTAG
// wiring for the FTx232H parts.
const (
	pinTCK byte = 0x01
	pinTDI byte = 0x02
	pinTDO byte = 0x04
	pinTMS byte = 0x08

	// TCK, TDI and TMS are outputs; TDO is read.
	pinDirections = pinTCK | pinTDI | pinTMS
	// TMS idles high, TCK low.
	pinIdleLevels = pinTMS
)

const (
	bitModeReset byte = 0x00
	bitModeMPSSE byte = 0x02
)

// DeviceConfig selects and paces an FTDI adapter.
type DeviceConfig struct {
	// Index is the D2XX enumeration index of the adapter.
	Index int

	// ClockDivisor scales TCK down from the 30MHz base: the line runs at
	// 30MHz / (1 + divisor). Zero runs at full speed.
	ClockDivisor uint16
}

// Device is an open FTDI adapter in MPSSE mode. It implements Channel.
type Device struct {
	h d2xx.Handle
}

// Open claims the adapter, switches it into MPSSE mode and configures the
// clock and pin directions for JTAG.
func Open(cfg DeviceConfig) (*Device, error) {
	num, e := d2xx.CreateDeviceInfoList()
	if e != 0 {
		return nil, toErr("CreateDeviceInfoList", e)
	}
	if cfg.Index >= num {
		return nil, fmt.Errorf("mpsse: adapter index %d out of range, %d found", cfg.Index, num)
	}
	h, e := d2xx.Open(cfg.Index)
	if e != 0 {
		return nil, toErr("Open", e)
	}
	d := &Device{h: h}
	if err := d.init(cfg); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Device) init(cfg DeviceConfig) error {
	if e := d.h.ResetDevice(); e != 0 {
		return toErr("ResetDevice", e)
	}
	if e := d.h.SetUSBParameters(65536, 0); e != 0 {
		return toErr("SetUSBParameters", e)
	}
	if e := d.h.SetTimeouts(5000, 5000); e != 0 {
		return toErr("SetTimeouts", e)
	}
	if e := d.h.SetChars(0, false, 0, false); e != 0 {
		return toErr("SetChars", e)
	}
	if e := d.h.SetLatencyTimer(1); e != 0 {
		return toErr("SetLatencyTimer", e)
	}
	if e := d.h.SetBitMode(0, bitModeReset); e != 0 {
		return toErr("SetBitMode", e)
	}
	if e := d.h.SetBitMode(0, bitModeMPSSE); e != 0 {
		return toErr("SetBitMode", e)
	}
	if err := d.drain(); err != nil {
		return err
	}
	setup := []byte{
		opDisableDiv5, opDisableAdapt, opLoopbackOff,
		opSetClockDiv, byte(cfg.ClockDivisor), byte(cfg.ClockDivisor >> 8),
		opSetPinsLow, pinIdleLevels, pinDirections,
	}
	return d.Write(setup)
}

// drain discards whatever the device buffered before we took it over.
func (d *Device) drain() error {
	var buf [128]byte
	for {
		pending, e := d.h.GetQueueStatus()
		if e != 0 {
			return toErr("GetQueueStatus", e)
		}
		if pending == 0 {
			return nil
		}
		n := int(pending)
		if n > len(buf) {
			n = len(buf)
		}
		if _, e := d.h.Read(buf[:n]); e != 0 {
			return toErr("Read", e)
		}
	}
}

// Write sends a full command packet.
func (d *Device) Write(data []byte) error {
	for len(data) > 0 {
		n, e := d.h.Write(data)
		if e != 0 {
			return toErr("Write", e)
		}
		data = data[n:]
	}
	return nil
}

// Read blocks until the response buffer is filled.
func (d *Device) Read(data []byte) error {
	for offset := 0; offset < len(data); {
		pending, e := d.h.GetQueueStatus()
		if e != 0 {
			return toErr("GetQueueStatus", e)
		}
		if pending == 0 {
			continue
		}
		chunk := len(data) - offset
		if int(pending) < chunk {
			chunk = int(pending)
		}
		n, e := d.h.Read(data[offset : offset+chunk])
		if e != 0 {
			return toErr("Read", e)
		}
		offset += n
	}
	return nil
}

// Close returns the adapter to its reset bit mode and releases the handle.
func (d *Device) Close() error {
	modeErr := toErr("SetBitMode", d.h.SetBitMode(0, bitModeReset))
	closeErr := toErr("Close", d.h.Close())
	if modeErr != nil {
		return modeErr
	}
	return closeErr
}

func toErr(op string, e d2xx.Err) error {
	if e == 0 {
		return nil
	}
	return errors.New("mpsse: " + op + ": " + e.String())
}
