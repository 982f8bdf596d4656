package swd

// Engine shifts bits over a Pins implementation. All sequences are LSB-first
// within each byte. The target updates SWDIO on the falling SWCLK edge, so
// reads sample the line just before driving the rising edge.
type Engine struct {
	pins Pins
}

// NewEngine wraps pins in a bit-level shift engine.
func NewEngine(pins Pins) *Engine {
	return &Engine{pins: pins}
}

// Pins returns the underlying pin interface.
func (e *Engine) Pins() Pins {
	return e.pins
}

// PutBits drives n bits from tx onto SWDIO, one per clock.
func (e *Engine) PutBits(tx []byte, n int) {
	e.pins.DriveData(true)
	var shifter byte
	for i := 0; i < n; i++ {
		if i%8 == 0 {
			shifter = tx[i/8]
		} else {
			shifter >>= 1
		}
		e.pins.SetData(shifter&1 != 0)
		e.pins.Delay()
		e.pins.SetClock(true)
		e.pins.Delay()
		e.pins.SetClock(false)
	}
}

// GetBits releases SWDIO and samples n bits into rx. A final partial byte is
// right-aligned, matching the order the bits arrived in.
func (e *Engine) GetBits(rx []byte, n int) {
	var shifter byte
	e.pins.DriveData(false)
	for i := 0; i < n; i++ {
		e.pins.Delay()
		sample := e.pins.ReadData()
		e.pins.SetClock(true)
		e.pins.Delay()
		e.pins.SetClock(false)

		shifter >>= 1
		if sample {
			shifter |= 0x80
		}
		if i%8 == 7 {
			rx[i/8] = shifter
		}
	}
	if n%8 != 0 {
		rx[n/8] = shifter >> (8 - n%8)
	}
}

// HiZClocks runs n clocks with SWDIO released, discarding whatever the
// target drives. Used for turnaround periods.
func (e *Engine) HiZClocks(n int) {
	e.pins.DriveData(false)
	for i := 0; i < n; i++ {
		e.pins.Delay()
		e.pins.SetClock(true)
		e.pins.Delay()
		e.pins.SetClock(false)
	}
}
