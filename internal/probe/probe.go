// Package probe enumerates USB debug probes that can carry an SWD link.
package probe

import (
	"context"
	"fmt"

	"github.com/google/gousb"
)

// Kind categorizes probe families.
type Kind string

const (
	KindCMSISDAP Kind = "cmsis-dap"
	KindPico     Kind = "picoprobe"
	KindSim      Kind = "simulator"
)

// Info describes a detected debug probe.
type Info struct {
	Kind        Kind
	Description string
	VendorID    uint16
	ProductID   uint16
	Serial      string
}

// Label returns a user-friendly description for the probe.
func (i Info) Label() string {
	if i.Description != "" {
		return i.Description
	}
	if i.Kind != "" {
		return fmt.Sprintf("%s (%04X:%04X)", string(i.Kind), i.VendorID, i.ProductID)
	}
	return fmt.Sprintf("Probe %04X:%04X", i.VendorID, i.ProductID)
}

// Discover enumerates connected USB devices that match known debug-probe
// VID/PID pairs. It always returns at least the simulator entry so the tool
// can be exercised without hardware connected.
func Discover(ctx context.Context) ([]Info, error) {
	var results []Info
	usb := gousb.NewContext()
	defer usb.Close()

	_, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		if info, ok := Classify(uint16(desc.Vendor), uint16(desc.Product)); ok {
			results = append(results, info)
		}
		return false
	})
	if err != nil && err != gousb.ErrorAccess {
		return results, err
	}

	results = append(results, Info{
		Kind:        KindSim,
		Description: "Simulator (no hardware)",
	})

	return results, nil
}

// Classify matches a VID/PID pair against the known probe table.
func Classify(vendor, product uint16) (Info, bool) {
	for _, known := range knownProbes {
		if vendor == known.VendorID && product == known.ProductID {
			return Info{
				Kind:        known.Kind,
				Description: known.Description,
				VendorID:    known.VendorID,
				ProductID:   known.ProductID,
			}, true
		}
	}
	return Info{}, false
}

type knownProbe struct {
	VendorID    uint16
	ProductID   uint16
	Kind        Kind
	Description string
}

var knownProbes = []knownProbe{
	{VendorID: 0x2e8a, ProductID: 0x000c, Kind: KindCMSISDAP, Description: "Raspberry Pi Debug Probe"},
	{VendorID: 0x0d28, ProductID: 0x0204, Kind: KindCMSISDAP, Description: "DAPLink CMSIS-DAP"},
	{VendorID: 0x1366, ProductID: 0x0101, Kind: KindCMSISDAP, Description: "SEGGER J-Link CMSIS-DAP"},
	{VendorID: 0x2e8a, ProductID: 0x000a, Kind: KindPico, Description: "Raspberry Pi Pico (CDC)"},
}
