package idcode

import "fmt"

// Manufacturer is a JEP106 vendor entry.
type Manufacturer struct {
	Name   string
	Abbrev string
}

// manufacturers maps JEP106 ids (continuation count in bits 10:7,
// code in bits 6:0) to vendor names. Only ids that show up on JTAG
// chains in practice are listed.
var manufacturers = map[uint16]Manufacturer{
	0x001: {"AMD", "AMD"},
	0x004: {"Fujitsu", "Fujitsu"},
	0x007: {"Hitachi", "Hitachi"},
	0x009: {"Intel", "Intel"},
	0x00e: {"Freescale (Motorola)", "Freescale"},
	0x00f: {"National", "National"},
	0x010: {"NEC", "NEC"},
	0x015: {"Philips Semi. (Signetics)", "Philips"},
	0x017: {"Texas Instruments", "TI"},
	0x018: {"Toshiba", "Toshiba"},
	0x01f: {"Atmel", "Atmel"},
	0x020: {"STMicroelectronics", "STM"},
	0x025: {"Analog Devices", "ADI"},
	0x02e: {"Cypress", "Cypress"},
	0x031: {"Xilinx", "Xilinx"},
	0x03d: {"Altera", "Altera"},
	0x041: {"Lattice", "Lattice"},
	0x049: {"Infineon", "Infineon"},
	0x06e: {"Microchip", "Microchip"},
	0x144: {"Nordic Semiconductor", "Nordic"},
	0x23b: {"ARM", "ARM"},
	0x25b: {"GigaDevice", "GigaDevice"},
	0x2b7: {"Espressif", "Espressif"},
	0x493: {"Raspberry Pi", "RPi"},
}

// LookupManufacturer returns the vendor entry for a JEP106 id. Unknown
// ids get a placeholder naming the raw code.
func LookupManufacturer(code uint16) Manufacturer {
	if m, ok := manufacturers[code]; ok {
		return m
	}
	s := fmt.Sprintf("unknown vendor 0x%03x", code)
	return Manufacturer{Name: s, Abbrev: s}
}
