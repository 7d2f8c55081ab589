package idcode

// knownDevice matches an idcode under a mask and names the part.
// The mask lets one entry cover a whole family whose revision or
// density field varies.
type knownDevice struct {
	idcode uint32
	idmask uint32
	descr  string
}

var knownDevices = []knownDevice{
	{0x0ba00477, 0x0fff0fff, "ARM ADIv5 JTAG-DP port"},
	{0x06410041, 0x0fffffff, "STM32, medium density"},
	{0x06412041, 0x0fffffff, "STM32, low density"},
	{0x06414041, 0x0fffffff, "STM32, high density"},
	{0x06416041, 0x0fffffff, "STM32L"},
	{0x06418041, 0x0fffffff, "STM32, connectivity line"},
	{0x06411041, 0xffffffff, "STM32F2xx"},
	{0x06413041, 0xffffffff, "STM32F4xx"},
	{0x0bb11477, 0xffffffff, "NXP LPC11C24"},
	{0x1000563d, 0x0fffffff, "Intel MAX 10 FPGA"},
}

// Describe names a device by its full idcode, falling back to the
// JEP106 vendor when the part itself is not in the table.
func Describe(raw uint32) string {
	for _, d := range knownDevices {
		if raw&d.idmask == d.idcode&d.idmask {
			return d.descr
		}
	}
	return Decode(raw).String()
}
