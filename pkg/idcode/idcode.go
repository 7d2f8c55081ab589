// Package idcode decodes IEEE 1149.1 device identification registers.
//
// An IDCODE register is 32 bits wide and always carries a 1 in bit 0,
// which is how it is told apart from a 1-bit BYPASS register during a
// chain scan. The remaining fields are the JEP106 manufacturer id,
// a manufacturer-assigned part number and a silicon revision.
package idcode

import "fmt"

// IDCode is a decoded identification register.
type IDCode struct {
	Raw          uint32
	Version      uint8  // bits 31:28, silicon revision
	PartNumber   uint16 // bits 27:12
	Manufacturer uint16 // bits 11:1, JEP106 id with continuation count
}

// Decode splits a raw 32 bit identification register into its fields.
// The mandatory marker bit is not checked here; callers that read the
// register off a live chain use the first shifted bit to decide whether
// an IDCODE is present at all.
func Decode(raw uint32) IDCode {
	return IDCode{
		Raw:          raw,
		Version:      uint8(raw >> 28),
		PartNumber:   uint16(raw >> 12 & 0xffff),
		Manufacturer: uint16(raw >> 1 & 0x7ff),
	}
}

// Valid reports whether the mandatory marker bit is set.
func (c IDCode) Valid() bool {
	return c.Raw&1 == 1
}

func (c IDCode) String() string {
	m := LookupManufacturer(c.Manufacturer)
	return fmt.Sprintf("%s part 0x%04x rev %d", m.Name, c.PartNumber, c.Version)
}
