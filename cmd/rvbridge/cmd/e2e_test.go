package cmd

import (
	"testing"

	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/dmi"
	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/rvdebug"
	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/vdtm"
)

func TestSimTargetSupportsFullBringUp(t *testing.T) {
	simHarts = 1
	client := dmi.NewClient(newSimTarget(), dmi.Config{})
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	info, err := rvdebug.Probe(client)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Version != "0.13" {
		t.Fatalf("Version = %s, want 0.13", info.Version)
	}
	if info.Harts != 1 {
		t.Fatalf("Harts = %d, want 1", info.Harts)
	}
}

func TestBindDTMForwardsDMITraffic(t *testing.T) {
	simHarts = 1
	client := dmi.NewClient(newSimTarget(), dmi.Config{})
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	dtm := vdtm.New(0x10e31913)
	bindDTM(dtm, client)

	clock := func(tms, tdi bool) {
		dtm.SetTMS(tms)
		dtm.SetTDI(tdi)
		dtm.SetTCK(true)
		dtm.SetTCK(false)
	}
	shiftIR := func(ir uint8) {
		clock(true, false) // Select-DR
		clock(true, false) // Select-IR
		clock(false, false)
		clock(false, false) // Shift-IR
		for i := 0; i < 5; i++ {
			clock(i == 4, ir>>i&1 != 0)
		}
		clock(true, false) // Update-IR
		clock(false, false)
	}
	shiftDR := func(bits int, out uint64) uint64 {
		clock(true, false)
		clock(false, false)
		clock(false, false) // Shift-DR
		var in uint64
		for i := 0; i < bits; i++ {
			if dtm.TDO() {
				in |= 1 << i
			}
			clock(i == bits-1, out>>i&1 != 0)
		}
		clock(true, false)
		clock(false, false)
		return in
	}

	for i := 0; i < 5; i++ {
		clock(true, false)
	}
	clock(false, false)

	shiftIR(0x11)
	// Write 0xdeadbeef to data0, then read it back through the DTM.
	shiftDR(42, uint64(rvdebug.RegData0)<<34|uint64(0xdeadbeef)<<2|2)
	shiftDR(42, uint64(rvdebug.RegData0)<<34|1)
	result := shiftDR(42, 0)

	if op := result & 3; op != 0 {
		t.Fatalf("DMI op status = %d, want 0", op)
	}
	if data := uint32(result >> 2); data != 0xdeadbeef {
		t.Fatalf("data0 = %08x, want deadbeef", data)
	}
}
