package idcode

import "fmt"

// IDCode represents a parsed IEEE 1149.1 JTAG IDCODE
type IDCode struct {
	Raw              uint32 // full IDCODE
	Version          uint8  // [31:28]
	PartNumber       uint16 // [27:12]
	ManufacturerCode uint16 // [11:1] JEP106
	HasIDCode        bool   // bit 0 == 1
}

// String renders the IDCODE with its designer name resolved.
func (id IDCode) String() string {
	m, _ := LookupManufacturer(id.ManufacturerCode)
	return fmt.Sprintf("%08X (%s part %04X rev %X)", id.Raw, m.Abbreviation, id.PartNumber, id.Version)
}

// DPIDR represents a parsed ADI debug port identification register
type DPIDR struct {
	Raw          uint32
	Revision     uint8  // [31:28]
	PartNumber   uint8  // [27:20]
	MinimalDP    bool   // [16]
	Version      uint8  // [15:12] DP architecture version
	DesignerCode uint16 // [11:1] JEP106
}

// String renders the DPIDR with its designer name resolved.
func (d DPIDR) String() string {
	m, _ := LookupManufacturer(d.DesignerCode)
	return fmt.Sprintf("%08X (%s DPv%d part %02X rev %X)", d.Raw, m.Abbreviation, d.Version, d.PartNumber, d.Revision)
}

// Manufacturer represents a JEP106 manufacturer entry
type Manufacturer struct {
	Code         uint16 // JEP106 code, continuation count in the high bits
	Name         string // "Raspberry Pi Ltd"
	Abbreviation string // "RPi"
}
