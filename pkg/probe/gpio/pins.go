// Package gpio implements the TAP transport by bit-banging four signal lines
// directly, one clock edge per operation. It is the reference backend: every
// other adapter batches what this package does a cycle at a time.
//
// The package only ever talks to pins through the small capability set below;
// adapters for periph.io pins and for Raspberry Pi GPIO via go-rpio are
// provided alongside.
package gpio

// Pin is a single driven signal line.
type Pin interface {
	Set()
	Clear()
	Get() bool
	SetVal(v bool)
}

// BidirPin is a shared line whose driver can be released, as required for the
// half-duplex SWDIO wire. While floating, SetVal updates the level that will
// be asserted on the next Drive.
type BidirPin interface {
	Pin
	Drive()
	Float()
}
