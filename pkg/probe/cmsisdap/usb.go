package cmsisdap

import (
	"fmt"
	"time"

	"github.com/google/gousb"
)

// Known CMSIS-DAP probe identities. Probes with other identities can
// still be opened by passing their VID and PID explicitly.
var knownProbes = []struct {
	vid, pid gousb.ID
}{
	{0x2e8a, 0x000c}, // Raspberry Pi Debug Probe
	{0x0d28, 0x0204}, // DAPLink
	{0xc251, 0xf001}, // Keil ULINKplus
}

const (
	// DefaultPacketSize is the CMSIS-DAP v1/v2 packet size before the probe
	// reports its own.
	DefaultPacketSize = 64

	defaultTimeout = 5 * time.Second
)

// Pipe is the USB bulk transfer pair to a CMSIS-DAP v2 probe.
type Pipe struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	intf *gousb.Interface

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint

	packetSize int
}

// OpenPipe claims the probe with the given USB identity.
func OpenPipe(vid, pid uint16) (*Pipe, error) {
	ctx := gousb.NewContext()
	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("cmsisdap: open: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("cmsisdap: no probe with VID:PID %04x:%04x", vid, pid)
	}
	// Linux binds HID or CDC drivers to composite probes; detach quietly.
	_ = dev.SetAutoDetach(true)

	p := &Pipe{ctx: ctx, dev: dev, packetSize: DefaultPacketSize}
	if err := p.claim(); err != nil {
		dev.Close()
		ctx.Close()
		return nil, err
	}
	return p, nil
}

// claim finds the vendor-class interface and its bulk endpoint pair.
func (p *Pipe) claim() error {
	cfg, err := p.dev.Config(1)
	if err != nil {
		return fmt.Errorf("cmsisdap: config: %w", err)
	}

	num := -1
	for _, intf := range cfg.Desc.Interfaces {
		if len(intf.AltSettings) == 0 {
			continue
		}
		if intf.AltSettings[0].Class == gousb.ClassVendorSpec {
			num = intf.Number
			break
		}
	}
	if num == -1 {
		num = 0
	}

	intf, err := cfg.Interface(num, 0)
	if err != nil {
		return fmt.Errorf("cmsisdap: claim interface %d: %w", num, err)
	}
	p.intf = intf

	var outAddr, inAddr int
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch ep.Direction {
		case gousb.EndpointDirectionOut:
			if outAddr == 0 {
				outAddr = ep.Number
			}
		case gousb.EndpointDirectionIn:
			if inAddr == 0 {
				inAddr = ep.Number
				p.packetSize = ep.MaxPacketSize
			}
		}
	}
	if outAddr == 0 || inAddr == 0 {
		intf.Close()
		return fmt.Errorf("cmsisdap: bulk endpoint pair not found")
	}

	if p.epOut, err = intf.OutEndpoint(outAddr); err != nil {
		intf.Close()
		return fmt.Errorf("cmsisdap: open OUT endpoint: %w", err)
	}
	if p.epIn, err = intf.InEndpoint(inAddr); err != nil {
		intf.Close()
		return fmt.Errorf("cmsisdap: open IN endpoint: %w", err)
	}
	return nil
}

// PacketSize reports the probe's transfer packet size.
func (p *Pipe) PacketSize() int {
	return p.packetSize
}

// Exchange sends one command packet and returns the response packet.
func (p *Pipe) Exchange(cmd []byte) ([]byte, error) {
	packet := make([]byte, p.packetSize)
	copy(packet, cmd)
	if _, err := p.epOut.Write(packet); err != nil {
		return nil, fmt.Errorf("cmsisdap: write: %w", err)
	}

	resp := make([]byte, p.packetSize)
	n, err := p.epIn.Read(resp)
	if err != nil {
		return nil, fmt.Errorf("cmsisdap: read: %w", err)
	}
	return resp[:n], nil
}

// Close releases the interface, device and USB context.
func (p *Pipe) Close() error {
	if p.intf != nil {
		p.intf.Close()
		p.intf = nil
	}
	if p.dev != nil {
		p.dev.Close()
		p.dev = nil
	}
	if p.ctx != nil {
		p.ctx.Close()
		p.ctx = nil
	}
	return nil
}

// ProbeInfo describes a discovered CMSIS-DAP probe.
type ProbeInfo struct {
	VID, PID     uint16
	SerialNumber string
	Description  string
}

// Enumerate lists the connected CMSIS-DAP probes.
func Enumerate() ([]ProbeInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		for _, k := range knownProbes {
			if desc.Vendor == k.vid && desc.Product == k.pid {
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("cmsisdap: enumerate: %w", err)
	}

	var probes []ProbeInfo
	for _, dev := range devs {
		serial, _ := dev.SerialNumber()
		manufacturer, _ := dev.Manufacturer()
		product, _ := dev.Product()
		probes = append(probes, ProbeInfo{
			VID:          uint16(dev.Desc.Vendor),
			PID:          uint16(dev.Desc.Product),
			SerialNumber: serial,
			Description:  fmt.Sprintf("%s %s", manufacturer, product),
		})
		dev.Close()
	}
	return probes, nil
}
