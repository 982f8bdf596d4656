package probe

import "testing"

func TestClassifyKnownProbes(t *testing.T) {
	tests := []struct {
		vendor, product uint16
		kind            Kind
	}{
		{0x2e8a, 0x000c, KindCMSISDAP},
		{0x0d28, 0x0204, KindCMSISDAP},
		{0x1366, 0x0101, KindCMSISDAP},
		{0x2e8a, 0x000a, KindPico},
	}
	for _, tc := range tests {
		info, ok := Classify(tc.vendor, tc.product)
		if !ok {
			t.Errorf("Classify(%04x:%04x) did not match", tc.vendor, tc.product)
			continue
		}
		if info.Kind != tc.kind {
			t.Errorf("Classify(%04x:%04x) kind = %s, want %s", tc.vendor, tc.product, info.Kind, tc.kind)
		}
		if info.Description == "" {
			t.Errorf("Classify(%04x:%04x) has no description", tc.vendor, tc.product)
		}
	}
}

func TestClassifyUnknownDevice(t *testing.T) {
	if _, ok := Classify(0x1234, 0x5678); ok {
		t.Fatal("unknown VID/PID classified as a probe")
	}
}

func TestLabelFallbacks(t *testing.T) {
	if got := (Info{Description: "My Probe"}).Label(); got != "My Probe" {
		t.Errorf("Label = %q, want description", got)
	}
	got := Info{Kind: KindCMSISDAP, VendorID: 0x0d28, ProductID: 0x0204}.Label()
	if got != "cmsis-dap (0D28:0204)" {
		t.Errorf("Label = %q", got)
	}
	got = Info{VendorID: 0x1234, ProductID: 0x5678}.Label()
	if got != "Probe 1234:5678" {
		t.Errorf("Label = %q", got)
	}
}
