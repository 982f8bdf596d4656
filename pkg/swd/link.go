package swd

// linkDownUp cycles the link regardless of its current state: if the target
// is in SWD mode it is reset and parked dormant, then woken back into SWD
// and line-reset again. Reference: ADIv5.2 IHI0031F Figure B5-4.
var linkDownUp = []byte{
	// Line reset: at least 50 cycles (56 here)
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	// SWD-to-Dormant
	0xbc, 0xe3,
	// Start of Dormant-to-SWD: resync the LFSR
	0xff,
	// A 0-bit, then 127 bits of LFSR output
	0x92, 0xf3, 0x09, 0x62,
	0x95, 0x2d, 0x85, 0x86,
	0xe9, 0xaf, 0xdd, 0xe3,
	0xa2, 0x0e, 0xbc, 0x19,
	// Four zero-bits, 8 bits of select sequence, four more zeroes
	0xa0, 0x01,
	// A line reset (50 cyc high) then at least 2 zeroes
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x03,
}

// linkDownUpBits trims the four unused pad bits from the final byte.
var linkDownUpBits = len(linkDownUp)*8 - 4

// LinkReset drives the fixed down-then-up sequence, leaving any attached
// SW-DP in the protocol reset state.
func (w *Wire) LinkReset() {
	w.eng.PutBits(linkDownUp, linkDownUpBits)
}
