package rvdebug

import (
	"errors"
	"testing"

	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/dmi"
	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/swd"
)

// fakeDM models just enough dmcontrol/dmstatus behaviour for probing: a
// limited hartsel field and an unavailable marker past the last real hart.
type fakeDM struct {
	selBits      uint
	numHarts     uint32
	version      uint32
	ignoreActive bool

	dmcontrol uint32
}

func (f *fakeDM) Write(addr uint8, data uint32) error {
	if addr == RegDMControl {
		sel := data >> 16 & (1<<f.selBits - 1)
		active := data & 1
		if f.ignoreActive {
			active = 0
		}
		f.dmcontrol = active | sel<<16
	}
	return nil
}

func (f *fakeDM) Read(addr uint8) (uint32, error) {
	switch addr {
	case RegDMControl:
		return f.dmcontrol, nil
	case RegDMStatus:
		v := f.version
		if f.dmcontrol>>16 >= f.numHarts {
			v |= 1 << 12 // anyunavail
		}
		return v, nil
	}
	return 0, nil
}

func TestProbeSingleHart(t *testing.T) {
	dm := &fakeDM{selBits: 10, numHarts: 1, version: 2}
	info, err := Probe(dm)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Version != "0.13" {
		t.Fatalf("Version = %q, want 0.13", info.Version)
	}
	if info.Harts != 1 {
		t.Fatalf("Harts = %d, want 1", info.Harts)
	}
}

func TestProbeStopsAtHartSelWidth(t *testing.T) {
	// Four harts and exactly two hartsel bits: probing hart 4 aliases to
	// hart 0 and the readback mismatch ends the count.
	dm := &fakeDM{selBits: 2, numHarts: 4, version: 2}
	info, err := Probe(dm)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Harts != 4 {
		t.Fatalf("Harts = %d, want 4", info.Harts)
	}
}

func TestProbeRejectsUnknownVersion(t *testing.T) {
	dm := &fakeDM{selBits: 10, numHarts: 1, version: 3}
	if _, err := Probe(dm); !errors.Is(err, ErrUnknownVersion) {
		t.Fatalf("Probe err = %v, want ErrUnknownVersion", err)
	}
}

func TestProbeReportsActivationFailure(t *testing.T) {
	dm := &fakeDM{selBits: 10, numHarts: 1, version: 2, ignoreActive: true}
	if _, err := Probe(dm); !errors.Is(err, ErrActivation) {
		t.Fatalf("Probe err = %v, want ErrActivation", err)
	}
}

func TestProbeOverSWDLink(t *testing.T) {
	// Full stack: Probe -> DMI client -> SWD wire -> simulated DAP, with
	// the DM behaviour emulated behind the Mem-AP.
	sim := swd.NewSimTarget()
	const (
		ctrlAddr   = uint32(RegDMControl) << 2
		statusAddr = uint32(RegDMStatus) << 2
	)
	sim.Mem[statusAddr] = 2
	sim.OnMemAccess = func(write bool, addr, data uint32) {
		if !write || addr != ctrlAddr {
			return
		}
		// One hartsel bit, one hart.
		sim.Mem[ctrlAddr] = data & (1 | 1<<16)
		status := uint32(2)
		if sim.Mem[ctrlAddr]>>16 >= 1 {
			status |= 1 << 12
		}
		sim.Mem[statusAddr] = status
	}

	client := dmi.NewClient(sim, dmi.Config{})
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	info, err := Probe(client)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Harts != 1 {
		t.Fatalf("Harts = %d, want 1", info.Harts)
	}
}
