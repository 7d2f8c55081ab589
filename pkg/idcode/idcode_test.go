package idcode

import "testing"

func TestDecodeFields(t *testing.T) {
	// Cortex-M3 JTAG-DP: rev 4, part 0xba00, ARM (0x23b).
	c := Decode(0x4ba00477)
	if !c.Valid() {
		t.Fatal("marker bit not recognised")
	}
	if c.Version != 4 {
		t.Errorf("version = %d, want 4", c.Version)
	}
	if c.PartNumber != 0xba00 {
		t.Errorf("part = %#x, want 0xba00", c.PartNumber)
	}
	if c.Manufacturer != 0x23b {
		t.Errorf("manufacturer = %#x, want 0x23b", c.Manufacturer)
	}
}

func TestDecodeInvalidMarker(t *testing.T) {
	if Decode(0x4ba00476).Valid() {
		t.Error("even idcode reported valid")
	}
}

func TestLookupManufacturer(t *testing.T) {
	if m := LookupManufacturer(0x23b); m.Abbrev != "ARM" {
		t.Errorf("0x23b = %q, want ARM", m.Abbrev)
	}
	if m := LookupManufacturer(0x7ff); m.Abbrev == "ARM" || m.Name == "" {
		t.Errorf("unknown id produced %+v", m)
	}
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		raw  uint32
		want string
	}{
		{0x4ba00477, "ARM ADIv5 JTAG-DP port"},
		{0x06413041, "STM32F4xx"},
		{0x16410041, "STM32, medium density"},
	}
	for _, tc := range cases {
		if got := Describe(tc.raw); got != tc.want {
			t.Errorf("Describe(%#x) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
