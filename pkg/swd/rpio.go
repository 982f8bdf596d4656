package swd

import (
	"time"

	"github.com/stianeikeland/go-rpio"
)

// RPiPins drives SWD over two Raspberry Pi GPIO lines using /dev/gpiomem.
type RPiPins struct {
	// Clk and Dat are BCM pin numbers for SWCLK and SWDIO.
	Clk uint8
	Dat uint8
	// HalfPeriod paces the clock; zero runs at whatever rate the GPIO
	// access itself allows.
	HalfPeriod time.Duration
}

// Init implements Pins.
func (p *RPiPins) Init() error {
	if err := rpio.Open(); err != nil {
		return err
	}
	clk := rpio.Pin(p.Clk)
	clk.Mode(rpio.Output)
	clk.Write(rpio.Low)
	dat := rpio.Pin(p.Dat)
	dat.Mode(rpio.Input)
	dat.Pull(rpio.PullUp)
	return nil
}

// Close implements Pins.
func (p *RPiPins) Close() error {
	rpio.Pin(p.Dat).Mode(rpio.Input)
	return rpio.Close()
}

// SetClock implements Pins.
func (p *RPiPins) SetClock(high bool) {
	if high {
		rpio.Pin(p.Clk).Write(rpio.High)
	} else {
		rpio.Pin(p.Clk).Write(rpio.Low)
	}
}

// SetData implements Pins.
func (p *RPiPins) SetData(high bool) {
	if high {
		rpio.Pin(p.Dat).Write(rpio.High)
	} else {
		rpio.Pin(p.Dat).Write(rpio.Low)
	}
}

// DriveData implements Pins.
func (p *RPiPins) DriveData(output bool) {
	if output {
		rpio.Pin(p.Dat).Mode(rpio.Output)
	} else {
		rpio.Pin(p.Dat).Mode(rpio.Input)
	}
}

// ReadData implements Pins.
func (p *RPiPins) ReadData() bool {
	return rpio.Pin(p.Dat).Read() == rpio.High
}

// Delay implements Pins.
func (p *RPiPins) Delay() {
	if p.HalfPeriod > 0 {
		time.Sleep(p.HalfPeriod)
	}
}
