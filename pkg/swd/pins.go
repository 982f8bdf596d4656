// Package swd implements a bit-banged Serial Wire Debug host: the raw pin
// abstraction, the bit-level shift engine, and the packet layer that frames
// DP and AP register accesses.
package swd

// Pins is the physical (or simulated) two-wire interface. SWCLK is always
// driven by the host; SWDIO direction is switched around turnaround periods.
type Pins interface {
	// Init prepares the pins: SWCLK as a driven output, SWDIO released.
	Init() error
	// Close releases the underlying hardware resources.
	Close() error
	// SetClock drives SWCLK to the given level.
	SetClock(high bool)
	// SetData drives SWDIO to the given level. Only meaningful while the
	// host holds the line (DriveData(true)).
	SetData(high bool)
	// DriveData enables or disables the host's SWDIO output driver.
	DriveData(output bool)
	// ReadData samples SWDIO. An undriven line reads high.
	ReadData() bool
	// Delay paces one half clock period.
	Delay()
}
