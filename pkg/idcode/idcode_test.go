package idcode

import "testing"

func TestParseIDCode(t *testing.T) {
	id := ParseIDCode(0x10e31913)
	if id.Version != 0x1 {
		t.Errorf("Version = %x, want 1", id.Version)
	}
	if id.PartNumber != 0x0e31 {
		t.Errorf("PartNumber = %04x, want 0e31", id.PartNumber)
	}
	if id.ManufacturerCode != 0x489 {
		t.Errorf("ManufacturerCode = %03x, want 489", id.ManufacturerCode)
	}
	if !id.HasIDCode {
		t.Error("HasIDCode = false, want true")
	}
}

func TestParseDPIDR(t *testing.T) {
	// RP2040-style SW-DP.
	d := ParseDPIDR(0x0bc12477)
	if d.DesignerCode != 0x23b {
		t.Errorf("DesignerCode = %03x, want 23b", d.DesignerCode)
	}
	if d.Version != 2 {
		t.Errorf("Version = %d, want 2", d.Version)
	}
	if d.PartNumber != 0xbc {
		t.Errorf("PartNumber = %02x, want bc", d.PartNumber)
	}
	if d.MinimalDP {
		t.Error("MinimalDP = true, want false")
	}
}

func TestStringsResolveDesigner(t *testing.T) {
	if got := ParseDPIDR(0x0bc12477).String(); got != "0BC12477 (ARM DPv2 part BC rev 0)" {
		t.Errorf("DPIDR String = %q", got)
	}
	if got := ParseIDCode(0x10e31913).String(); got != "10E31913 (SiFive part 0E31 rev 1)" {
		t.Errorf("IDCode String = %q", got)
	}
}

func TestLookupUnknownManufacturer(t *testing.T) {
	m, ok := LookupManufacturer(0x7fe)
	if ok {
		t.Fatal("unknown code reported as known")
	}
	if m.Abbreviation != "Unknown" {
		t.Errorf("Abbreviation = %q, want Unknown", m.Abbreviation)
	}
}
