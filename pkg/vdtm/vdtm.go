// Package vdtm implements a virtual RISC-V JTAG Debug Transport Module: a
// bit-accurate model of the JTAG-side DTM described by the RISC-V debug
// specification, driven one TCK edge at a time. Debug Module Interface
// operations decoded from DMI scans are dispatched to bound callbacks, so
// the same core serves a real SWD-backed DMI or a mock.
package vdtm

import (
	"github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/tap"
)

// Instruction register encodings from the RISC-V debug specification.
const (
	IRBypass = 0x00
	IRIDCode = 0x01
	IRDTMCS  = 0x10
	IRDMI    = 0x11

	irWidth = 5
)

// ABits is the DMI address width advertised in dtmcs.
const ABits = 8

// drWidthDMI is the dmi register width: address, 32 data bits, 2 op bits.
const drWidthDMI = ABits + 32 + 2

// DMI operation codes, in the two low bits of a dmi scan.
const (
	dmiOpNone  = 0
	dmiOpRead  = 1
	dmiOpWrite = 2
)

// dtmcs fields. version=1 is the 0.13.2 debug spec, the first ratified one.
const (
	dtmcsVersion  = 1
	dtmcsIdleHint = 0

	dtmcsValue = dtmcsVersion<<0 | ABits<<4 | dtmcsIdleHint<<12
)

// WriteFunc receives decoded DMI write operations.
type WriteFunc func(addr uint8, data uint32)

// ReadFunc serves decoded DMI read operations.
type ReadFunc func(addr uint8) uint32

// DTM is the virtual debug transport module. Drive it like hardware: set
// TMS/TDI, toggle TCK, sample TDO. State advances on the rising TCK edge and
// TDO updates on the falling edge.
type DTM struct {
	idcode uint32

	ir       uint8
	shifter  uint64
	state    tap.State
	dmiRData uint32

	writeFn WriteFunc
	readFn  ReadFunc

	tck bool
	tms bool
	tdi bool
	tdo bool
}

// New creates a DTM in Test-Logic-Reset with the given IDCODE value.
func New(idcode uint32) *DTM {
	return &DTM{
		idcode: idcode,
		ir:     IRIDCode,
		state:  tap.StateTestLogicReset,
	}
}

// BindDMIWrite installs the handler for DMI write operations.
func (d *DTM) BindDMIWrite(fn WriteFunc) { d.writeFn = fn }

// BindDMIRead installs the handler for DMI read operations.
func (d *DTM) BindDMIRead(fn ReadFunc) { d.readFn = fn }

// SetTMS sets the TMS input level.
func (d *DTM) SetTMS(level bool) { d.tms = level }

// SetTDI sets the TDI input level.
func (d *DTM) SetTDI(level bool) { d.tdi = level }

// TDO returns the current TDO output level.
func (d *DTM) TDO() bool { return d.tdo }

// State reports the current TAP controller state.
func (d *DTM) State() tap.State { return d.state }

// SetTCK drives the TCK input. A rising edge samples TMS/TDI and advances
// the TAP; a falling edge updates TDO.
func (d *DTM) SetTCK(level bool) {
	if level && !d.tck {
		d.posedge()
	} else if !level && d.tck {
		d.tdo = d.nextTDO()
	}
	d.tck = level
}

// nextTDO is evaluated at the falling edge, so it is based on the new TAP
// state following the most recent rising edge.
func (d *DTM) nextTDO() bool {
	if d.state == tap.StateShiftDR || d.state == tap.StateShiftIR {
		return d.shifter&1 != 0
	}
	return false
}

func drLen(ir uint8) uint {
	switch ir {
	case IRDTMCS, IRIDCode:
		return 32
	case IRDMI:
		return drWidthDMI
	default:
		// Including BYPASS.
		return 1
	}
}

func b64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (d *DTM) posedge() {
	switch d.state {
	case tap.StateTestLogicReset:
		d.ir = IRIDCode
		glog.V(2).Info("TAP: reset")

	case tap.StateCaptureIR:
		d.shifter = uint64(d.ir)
		glog.V(2).Infof("TAP: capture IR -> %02x", d.ir)

	case tap.StateShiftIR:
		d.shifter = d.shifter>>1 | b64(d.tdi)<<(irWidth-1)

	case tap.StateUpdateIR:
		d.ir = uint8(d.shifter)
		glog.V(2).Infof("TAP: update  IR <- %02x", d.ir)

	case tap.StateCaptureDR:
		switch d.ir {
		case IRIDCode:
			d.shifter = uint64(d.idcode)
		case IRDTMCS:
			d.shifter = dtmcsValue
		case IRDMI:
			// Operation status stays zero: the DMI backend is
			// synchronous, so a scan never observes it busy.
			d.shifter = uint64(d.dmiRData) << 2
		default:
			// BYPASS and every unknown instruction.
			d.shifter = 0
		}
		glog.V(2).Infof("TAP: capture DR -> %016x", d.shifter)

	case tap.StateShiftDR:
		d.shifter = d.shifter>>1 | b64(d.tdi)<<(drLen(d.ir)-1)

	case tap.StateUpdateDR:
		glog.V(2).Infof("TAP: update  DR <- %016x", d.shifter)
		switch d.ir {
		case IRDTMCS:
			// Writes are accepted and ignored; dmireset has nothing
			// to clear because operations never fail or stall.
		case IRDMI:
			d.dmiUpdate(d.shifter)
		}
	}

	d.state = tap.NextState(d.state, d.tms)
}

// dmiUpdate decodes and dispatches one DMI operation from an updated dmi
// scan value.
func (d *DTM) dmiUpdate(dr uint64) {
	op := dr & 0x3
	data := uint32(dr >> 2)
	addr := uint8(dr >> 34)

	switch {
	case op == dmiOpWrite && d.writeFn != nil:
		d.writeFn(addr, data)
	case op == dmiOpRead && d.readFn != nil:
		d.dmiRData = d.readFn(addr)
	}
}
