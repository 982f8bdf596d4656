package vdtm

import "testing"

// jtagHost drives a DTM the way a debugger drives real pins: set TMS/TDI,
// pulse TCK, sample TDO before the next rising edge.
type jtagHost struct {
	dtm *DTM
}

func (h *jtagHost) clock(tms, tdi bool) {
	h.dtm.SetTMS(tms)
	h.dtm.SetTDI(tdi)
	h.dtm.SetTCK(true)
	h.dtm.SetTCK(false)
}

// reset applies five TMS=1 clocks and settles in Run-Test/Idle.
func (h *jtagHost) reset() {
	for i := 0; i < 5; i++ {
		h.clock(true, false)
	}
	h.clock(false, false)
}

// shift exchanges n bits LSB-first, raising TMS on the final bit to exit the
// shift state.
func (h *jtagHost) shift(n int, out uint64) uint64 {
	var in uint64
	for i := 0; i < n; i++ {
		if h.dtm.TDO() {
			in |= 1 << i
		}
		h.clock(i == n-1, out>>i&1 != 0)
	}
	return in
}

// scanIR loads a new instruction and returns the captured previous one.
// Starts and ends in Run-Test/Idle.
func (h *jtagHost) scanIR(ir uint8) uint8 {
	h.clock(true, false)  // Select-DR
	h.clock(true, false)  // Select-IR
	h.clock(false, false) // Capture-IR
	h.clock(false, false) // Shift-IR
	got := h.shift(5, uint64(ir))
	h.clock(true, false)  // Update-IR
	h.clock(false, false) // Run-Test/Idle
	return uint8(got)
}

// scanDR exchanges n data register bits. Starts and ends in Run-Test/Idle.
func (h *jtagHost) scanDR(n int, out uint64) uint64 {
	h.clock(true, false)  // Select-DR
	h.clock(false, false) // Capture-DR
	h.clock(false, false) // Shift-DR
	in := h.shift(n, out)
	h.clock(true, false)  // Update-DR
	h.clock(false, false) // Run-Test/Idle
	return in
}

func newHost(idcode uint32) (*DTM, *jtagHost) {
	d := New(idcode)
	h := &jtagHost{dtm: d}
	h.reset()
	return d, h
}

func TestIDCodeScanAfterReset(t *testing.T) {
	// IR defaults to IDCODE out of reset, so a bare DR scan reads the ID.
	_, h := newHost(0xdeadbeef)
	if got := h.scanDR(32, 0); got != 0xdeadbeef {
		t.Fatalf("IDCODE scan = %08x, want deadbeef", got)
	}
}

func TestIRCapturePreviousInstruction(t *testing.T) {
	_, h := newHost(0x1)
	if got := h.scanIR(IRDTMCS); got != IRIDCode {
		t.Fatalf("captured IR = %02x, want %02x", got, IRIDCode)
	}
	if got := h.scanIR(IRDMI); got != IRDTMCS {
		t.Fatalf("captured IR = %02x, want %02x", got, IRDTMCS)
	}
}

func TestDTMCSReadValue(t *testing.T) {
	_, h := newHost(0x1)
	h.scanIR(IRDTMCS)
	if got := h.scanDR(32, 0); got != 0x81 {
		t.Fatalf("dtmcs = %08x, want 00000081 (version=1 abits=8)", got)
	}
}

func TestDTMCSWriteIgnored(t *testing.T) {
	_, h := newHost(0x1)
	h.scanIR(IRDTMCS)
	h.scanDR(32, 0xffffffff)
	if got := h.scanDR(32, 0); got != 0x81 {
		t.Fatalf("dtmcs after write = %08x, want 00000081", got)
	}
}

func TestDMIWriteDispatch(t *testing.T) {
	d, h := newHost(0x1)

	var gotAddr uint8
	var gotData uint32
	calls := 0
	d.BindDMIWrite(func(addr uint8, data uint32) {
		gotAddr, gotData = addr, data
		calls++
	})

	h.scanIR(IRDMI)
	dr := uint64(dmiOpWrite) | uint64(0xa5a5a5a5)<<2 | uint64(0x10)<<34
	h.scanDR(drWidthDMI, dr)

	if calls != 1 {
		t.Fatalf("write callback ran %d times, want 1", calls)
	}
	if gotAddr != 0x10 || gotData != 0xa5a5a5a5 {
		t.Fatalf("write = %02x <- %08x, want 10 <- a5a5a5a5", gotAddr, gotData)
	}
}

func TestDMIReadRoundTrip(t *testing.T) {
	d, h := newHost(0x1)

	d.BindDMIRead(func(addr uint8) uint32 {
		if addr != 0x11 {
			t.Fatalf("read callback addr = %02x, want 11", addr)
		}
		return 0xcafebabe
	})

	h.scanIR(IRDMI)
	// First scan posts the read; its captured value is stale.
	h.scanDR(drWidthDMI, uint64(dmiOpRead)|uint64(0x11)<<34)
	// Second scan captures the latched result, shifted over the op bits.
	in := h.scanDR(drWidthDMI, uint64(dmiOpNone))

	if in&0x3 != 0 {
		t.Fatalf("op status = %d, want 0", in&0x3)
	}
	if got := uint32(in >> 2); got != 0xcafebabe {
		t.Fatalf("read data = %08x, want cafebabe", got)
	}
}

func TestDMIWriteThenReadBack(t *testing.T) {
	d, h := newHost(0x1)

	regs := map[uint8]uint32{}
	d.BindDMIWrite(func(addr uint8, data uint32) { regs[addr] = data })
	d.BindDMIRead(func(addr uint8) uint32 { return regs[addr] })

	h.scanIR(IRDMI)
	h.scanDR(drWidthDMI, uint64(dmiOpWrite)|uint64(0x12345678)<<2|uint64(0x04)<<34)
	h.scanDR(drWidthDMI, uint64(dmiOpRead)|uint64(0x04)<<34)
	in := h.scanDR(drWidthDMI, uint64(dmiOpNone))

	if got := uint32(in >> 2); got != 0x12345678 {
		t.Fatalf("read back %08x, want 12345678", got)
	}
}

func TestBypassIsOneBitDelayLine(t *testing.T) {
	_, h := newHost(0x1)
	h.scanIR(IRBypass)

	const pattern = 0b1011001
	got := h.scanDR(7, pattern)
	// Capture loads a zero, then each bit emerges one clock later.
	want := uint64(pattern<<1) & 0x7f
	if got != want {
		t.Fatalf("bypass shift = %07b, want %07b", got, want)
	}
}

func TestUnknownIRActsAsBypass(t *testing.T) {
	_, h := newHost(0x1)
	h.scanIR(0x0a)

	got := h.scanDR(4, 0b0111)
	if got != 0b1110 {
		t.Fatalf("shift through unknown IR = %04b, want 1110", got)
	}
}

func TestShiftDRPassesBitsThrough(t *testing.T) {
	// Shifting 2L bits through an L-bit DR yields the captured value first,
	// then the first L input bits in their original order.
	_, h := newHost(0xdeadbeef)

	const pattern = uint64(0xa5f00f5a)
	got := h.scanDR(64, pattern)
	if low := uint32(got); low != 0xdeadbeef {
		t.Fatalf("captured half = %08x, want deadbeef", low)
	}
	if high := uint32(got >> 32); high != uint32(pattern) {
		t.Fatalf("passed-through half = %08x, want %08x", high, uint32(pattern))
	}
}

func TestUnboundCallbacksDropOperations(t *testing.T) {
	_, h := newHost(0x1)

	h.scanIR(IRDMI)
	h.scanDR(drWidthDMI, uint64(dmiOpWrite)|uint64(0xffffffff)<<2|uint64(0x10)<<34)
	h.scanDR(drWidthDMI, uint64(dmiOpRead)|uint64(0x10)<<34)
	in := h.scanDR(drWidthDMI, uint64(dmiOpNone))

	if in != 0 {
		t.Fatalf("scan after unbound ops = %011x, want 0", in)
	}
}

func TestTDOIsZeroOutsideShiftStates(t *testing.T) {
	d, h := newHost(0xdeadbeef)

	if d.TDO() {
		t.Fatal("TDO high in Run-Test/Idle")
	}

	h.clock(true, false)  // Select-DR
	h.clock(false, false) // Capture-DR
	h.clock(false, false) // Shift-DR
	if !d.TDO() {
		t.Fatal("TDO low in Shift-DR, want IDCODE bit 0 (1)")
	}

	h.clock(true, false) // Exit1-DR
	if d.TDO() {
		t.Fatal("TDO high in Exit1-DR")
	}
}

func TestResetRestoresIDCodeInstruction(t *testing.T) {
	_, h := newHost(0xdeadbeef)
	h.scanIR(IRDMI)
	h.reset()
	if got := h.scanDR(32, 0); got != 0xdeadbeef {
		t.Fatalf("post-reset DR scan = %08x, want deadbeef", got)
	}
}
