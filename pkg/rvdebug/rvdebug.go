// Package rvdebug speaks to a RISC-V Debug Module over a DMI port: version
// probing, dmactive activation, and hart enumeration. It depends only on
// the port interface, so it runs identically over a live SWD link or a
// test double.
package rvdebug

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
)

// Debug Module register addresses on the DMI bus (debug spec 0.13.2).
const (
	RegData0        = 0x04
	RegDMControl    = 0x10
	RegDMStatus     = 0x11
	RegHartInfo     = 0x12
	RegHaltSum1     = 0x13
	RegHAWindowSel  = 0x14
	RegHAWindow     = 0x15
	RegAbstractCS   = 0x16
	RegCommand      = 0x17
	RegAbstractAuto = 0x18
	RegConfStrPtr0  = 0x19
	RegConfStrPtr1  = 0x1a
	RegConfStrPtr2  = 0x1b
	RegConfStrPtr3  = 0x1c
	RegNextDM       = 0x1d
	RegProgBuf0     = 0x20
	RegProgBuf1     = 0x21
	RegSBCS         = 0x38
	RegSBAddress0   = 0x39
	RegSBData0      = 0x3c
	RegHaltSum0     = 0x40
)

const (
	dmControlDMActive     = 1 << 0
	dmControlHartSelShift = 16

	dmStatusVersionMask = 0xf
	dmStatusVersion013  = 0x2
	dmStatusAnyUnavail  = 1 << 12

	maxHarts = 32
)

var (
	// ErrUnknownVersion means dmstatus reported a debug spec version this
	// package does not speak.
	ErrUnknownVersion = errors.New("rvdebug: unsupported debug module version")
	// ErrActivation means dmcontrol.dmactive did not read back as set.
	ErrActivation = errors.New("rvdebug: could not activate debug module")
)

// Port is a Debug Module Interface endpoint. addr is the DMI word address.
type Port interface {
	Read(addr uint8) (uint32, error)
	Write(addr uint8, data uint32) error
}

// Info describes a probed Debug Module.
type Info struct {
	// Version is the debug spec version string, currently always "0.13".
	Version string
	// DMStatus is the raw dmstatus value observed during the probe.
	DMStatus uint32
	// Harts is the number of harts the DM exposes.
	Harts int
}

// Probe checks the DM's version, cycles dmactive to bring it to a known
// state, and counts its harts.
func Probe(p Port) (Info, error) {
	var info Info

	status, err := p.Read(RegDMStatus)
	if err != nil {
		return info, fmt.Errorf("rvdebug: dmstatus read: %w", err)
	}
	info.DMStatus = status
	if status&dmStatusVersionMask != dmStatusVersion013 {
		return info, fmt.Errorf("%w: dmstatus %08x", ErrUnknownVersion, status)
	}
	info.Version = "0.13"
	glog.Infof("RISC-V debug version 0.13, dmstatus %08x", status)

	// Cycle dmactive to put the DM into a known state.
	if err := p.Write(RegDMControl, 0); err != nil {
		return info, fmt.Errorf("rvdebug: dmcontrol clear: %w", err)
	}
	if err := p.Write(RegDMControl, dmControlDMActive); err != nil {
		return info, fmt.Errorf("rvdebug: dmcontrol set: %w", err)
	}
	ctrl, err := p.Read(RegDMControl)
	if err != nil {
		return info, fmt.Errorf("rvdebug: dmcontrol readback: %w", err)
	}
	if ctrl != dmControlDMActive {
		return info, fmt.Errorf("%w: dmcontrol readback %08x", ErrActivation, ctrl)
	}

	harts, err := countHarts(p)
	if err != nil {
		return info, err
	}
	info.Harts = harts
	glog.Infof("discovered %d harts", harts)
	return info, nil
}

func countHarts(p Port) (int, error) {
	for hart := 0; hart < maxHarts; hart++ {
		want := uint32(dmControlDMActive) | uint32(hart)<<dmControlHartSelShift
		if err := p.Write(RegDMControl, want); err != nil {
			return 0, fmt.Errorf("rvdebug: hartsel write: %w", err)
		}
		// Running out of hartsel index bits means no more harts.
		got, err := p.Read(RegDMControl)
		if err != nil {
			return 0, fmt.Errorf("rvdebug: hartsel readback: %w", err)
		}
		if got != want {
			return hart, nil
		}
		// So does anyunavail.
		status, err := p.Read(RegDMStatus)
		if err != nil {
			return 0, fmt.Errorf("rvdebug: dmstatus read: %w", err)
		}
		if status&dmStatusAnyUnavail != 0 {
			return hart, nil
		}
	}
	return maxHarts, nil
}
