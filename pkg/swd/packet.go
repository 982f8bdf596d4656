package swd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/golang/glog"
)

// Port selects which half of the DAP a packet addresses.
type Port uint8

const (
	PortDP Port = 0
	PortAP Port = 1
)

func (p Port) String() string {
	if p == PortAP {
		return "AP"
	}
	return "DP"
}

// ACK is the three-bit response a target drives after a packet header.
type ACK uint8

const (
	ACKOK           ACK = 1
	ACKWait         ACK = 2
	ACKFault        ACK = 4
	ACKDisconnected ACK = 7
)

var (
	// ErrWait means the target could not service the access yet; the
	// request may be retried.
	ErrWait = errors.New("swd: target requested wait")
	// ErrFault means a sticky error flag is set; ABORT must be written
	// before further AP accesses succeed.
	ErrFault = errors.New("swd: target reported fault")
	// ErrDisconnected means nothing drove the line: no target, or the
	// link is down.
	ErrDisconnected = errors.New("swd: no response on the wire")
)

// Err maps an ACK to the error the caller sees, nil for ACKOK.
func (a ACK) Err() error {
	switch a {
	case ACKOK:
		return nil
	case ACKWait:
		return ErrWait
	case ACKFault:
		return ErrFault
	case ACKDisconnected:
		return ErrDisconnected
	default:
		return fmt.Errorf("swd: malformed ack %#03b", uint8(a))
	}
}

// Header assembles the eight-bit packet header for a register access.
// addr is the register's A[3:2] field, i.e. its byte address divided by 4.
func Header(port Port, read bool, addr uint8) byte {
	addr &= 0x3
	parity := (addr >> 1) ^ (addr & 1) ^ b2u(read) ^ uint8(port)
	return 1<<0 | // Start
		uint8(port)<<1 | // APnDP
		b2u(read)<<2 | // RnW
		addr<<3 | // A[3:2]
		parity<<5 |
		0<<6 | // Stop
		1<<7 // Park
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Wire frames DP and AP register accesses over a bit engine. Overrun
// detection is assumed enabled, so data phases are always clocked out in
// full even when the target answers WAIT or FAULT.
type Wire struct {
	eng *Engine
}

// NewWire builds a packet layer over the given pins.
func NewWire(pins Pins) *Wire {
	return &Wire{eng: NewEngine(pins)}
}

// Engine exposes the underlying bit engine.
func (w *Wire) Engine() *Engine {
	return w.eng
}

// ReadRegister performs one read access. addr is the A[3:2] register index.
// The data parity bit is clocked but not checked.
func (w *Wire) ReadRegister(port Port, addr uint8) (uint32, error) {
	header := [1]byte{Header(port, true, addr)}
	w.eng.PutBits(header[:], 8)
	w.eng.HiZClocks(1)
	var status [1]byte
	w.eng.GetBits(status[:], 3)
	var rxbuf [4]byte
	w.eng.GetBits(rxbuf[:], 32)
	data := binary.LittleEndian.Uint32(rxbuf[:])
	w.eng.GetBits(rxbuf[:1], 1)
	// Turnaround for the next packet header.
	w.eng.HiZClocks(1)
	if err := ACK(status[0]).Err(); err != nil {
		return 0, err
	}
	glog.V(2).Infof("SWD R %s:%x -> %08x", port, 4*addr, data)
	return data, nil
}

// WriteRegister performs one write access.
func (w *Wire) WriteRegister(port Port, addr uint8, data uint32) error {
	header := [1]byte{Header(port, false, addr)}
	w.eng.PutBits(header[:], 8)
	w.eng.HiZClocks(1)
	var status [1]byte
	w.eng.GetBits(status[:], 3)
	w.eng.HiZClocks(1)
	var txbuf [4]byte
	binary.LittleEndian.PutUint32(txbuf[:], data)
	w.eng.PutBits(txbuf[:], 32)
	txbuf[0] = uint8(bits.OnesCount32(data) & 1)
	w.eng.PutBits(txbuf[:1], 1)
	if err := ACK(status[0]).Err(); err != nil {
		return err
	}
	glog.V(2).Infof("SWD W %s:%x <- %08x", port, 4*addr, data)
	return nil
}

// TargetSel issues a TARGETSEL write. Targets do not respond, so the ACK
// period is run with the line released and no status is returned. Only
// meaningful immediately after a line reset.
func (w *Wire) TargetSel(id uint32) {
	header := [1]byte{Header(PortDP, false, 3)}
	w.eng.PutBits(header[:], 8)
	w.eng.HiZClocks(5)
	var txbuf [4]byte
	binary.LittleEndian.PutUint32(txbuf[:], id)
	w.eng.PutBits(txbuf[:], 32)
	txbuf[0] = uint8(bits.OnesCount32(id) & 1)
	w.eng.PutBits(txbuf[:1], 1)
	glog.V(2).Infof("SWD TARGETSEL <- %08x", id)
}
