// Package dmi carries RISC-V Debug Module Interface accesses over an SWD
// link: a small SWD host that brings up the DAP, points a Mem-AP at the
// debug module's APB bus, and turns DMI word addresses into memory traffic.
package dmi

import (
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/idcode"
	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/swd"
)

// DP register indices (A[3:2]).
const (
	dpRegDPIDR    = 0
	dpRegAbort    = 0
	dpRegCtrlStat = 1
	dpRegSelect   = 2
	dpRegRdBuf    = 3
)

// AP register indices within their banks.
const (
	apRegCSW = 0
	apRegTAR = 1
	apRegDRW = 3
	apRegIDR = 3

	apBankCSW = 0x0 << 4
	apBankIDR = 0xf << 4
)

const (
	ctrlStatCSysPwrUpAck = 1 << 31
	ctrlStatCSysPwrUpReq = 1 << 30
	ctrlStatCDbgPwrUpAck = 1 << 29
	ctrlStatCDbgPwrUpReq = 1 << 28
	ctrlStatORunDetect   = 1 << 0
)

// CLASS=8 (Mem-AP) TYPE=2 (APB2/APB3).
const (
	apIDRExpectedMask uint32 = 0x1e00f
	apIDRExpectedData uint32 = 0x10002
)

// abortClearAll clears every sticky flag: ORUNERRCLR, WDERRCLR, STKERRCLR,
// STKCMPCLR.
const abortClearAll = 0x1e

const (
	powerUpAckTimeout = 10000
	waitRetryLimit    = 8
)

var (
	// ErrPowerUpTimeout means CTRL/STAT never reported both power-up
	// acknowledge bits.
	ErrPowerUpTimeout = errors.New("dmi: debug power-up acknowledge timed out")
	// ErrWrongAP means the selected AP's IDR does not describe an APB
	// Mem-AP.
	ErrWrongAP = errors.New("dmi: selected AP is not an APB Mem-AP")
)

// Config selects which target and AP the client talks to.
type Config struct {
	// TargetSel is the multi-drop target selection value; zero skips the
	// TARGETSEL step entirely.
	TargetSel uint32
	// APSel picks the access port carrying the debug module bus.
	APSel uint8
}

// Client is a DMI port over SWD. Link state management is crude but
// effective: either the link works, or Connect cycles it and starts over.
type Client struct {
	wire *swd.Wire
	pins swd.Pins
	cfg  Config

	tarCache      uint32
	tarCacheValid bool
}

// NewClient builds a client over the given pins. Connect must be called
// before Read or Write.
func NewClient(pins swd.Pins, cfg Config) *Client {
	return &Client{wire: swd.NewWire(pins), pins: pins, cfg: cfg}
}

// Close releases the pin resources.
func (c *Client) Close() error {
	return c.pins.Close()
}

// Connect cycles the link and brings the DAP to a state where DMI accesses
// flow: line reset and wake-up, optional TARGETSEL, DPIDR read to leave the
// reset state, sticky-flag clear, debug power-up, Mem-AP identification, and
// finally SELECT parked on the CSW/TAR/DRW bank.
func (c *Client) Connect() error {
	glog.V(1).Infof("dmi connect targetsel=%08x apsel=%d", c.cfg.TargetSel, c.cfg.APSel)
	if err := c.pins.Init(); err != nil {
		return fmt.Errorf("dmi: pin init: %w", err)
	}
	c.tarCacheValid = false

	c.wire.LinkReset()

	// TARGETSEL parks every non-matching DP in the deselected state. There
	// is no response on the wire.
	if c.cfg.TargetSel != 0 {
		c.wire.TargetSel(c.cfg.TargetSel)
	}

	// A DPIDR read is required to leave the reset state. The value itself
	// is not checked: anything that answers after TARGETSEL is assumed to
	// be the intended target.
	dpidr, err := c.wire.ReadRegister(swd.PortDP, dpRegDPIDR)
	if err != nil {
		return fmt.Errorf("dmi: DPIDR read: %w", err)
	}
	glog.Infof("DPIDR: %s", idcode.ParseDPIDR(dpidr))

	// Clear outstanding stickies so SELECT becomes writable.
	if err := c.wire.WriteRegister(swd.PortDP, dpRegAbort, abortClearAll); err != nil {
		return fmt.Errorf("dmi: ABORT write: %w", err)
	}

	// Power up before any AP access. ORUNDETECT goes on at the same time:
	// legacy SWDv1 fault handling is not supported.
	const reqBits = ctrlStatCSysPwrUpReq | ctrlStatCDbgPwrUpReq
	const ackBits = ctrlStatCSysPwrUpAck | ctrlStatCDbgPwrUpAck
	if err := c.wire.WriteRegister(swd.PortDP, dpRegSelect, 0); err != nil {
		return fmt.Errorf("dmi: SELECT write: %w", err)
	}
	if err := c.wire.WriteRegister(swd.PortDP, dpRegCtrlStat, reqBits|ctrlStatORunDetect); err != nil {
		return fmt.Errorf("dmi: CTRL/STAT write: %w", err)
	}
	poweredUp := false
	for i := 0; i < powerUpAckTimeout; i++ {
		stat, err := c.wire.ReadRegister(swd.PortDP, dpRegCtrlStat)
		if err != nil {
			return fmt.Errorf("dmi: CTRL/STAT poll: %w", err)
		}
		if stat&ackBits == ackBits {
			poweredUp = true
			break
		}
	}
	if !poweredUp {
		return ErrPowerUpTimeout
	}

	// Check the designated AP is actually a Mem-AP before trusting it with
	// traffic. AP reads are posted, so the IDR value arrives via RDBUF.
	apSel := uint32(c.cfg.APSel) << 24
	if err := c.wire.WriteRegister(swd.PortDP, dpRegSelect, apBankIDR|apSel); err != nil {
		return fmt.Errorf("dmi: SELECT write: %w", err)
	}
	if _, err := c.wire.ReadRegister(swd.PortAP, apRegIDR); err != nil {
		return fmt.Errorf("dmi: AP IDR read: %w", err)
	}
	idr, err := c.wire.ReadRegister(swd.PortDP, dpRegRdBuf)
	if err != nil {
		return fmt.Errorf("dmi: AP IDR readback: %w", err)
	}
	if idr&apIDRExpectedMask != apIDRExpectedData {
		return fmt.Errorf("%w: IDR %08x", ErrWrongAP, idr)
	}
	glog.Infof("AP IDR: %08x", idr)

	// Park SELECT on the CSW/TAR/DRW bank. The banked BD registers are not
	// worth the extra bank switching given the DM's register spacing.
	if err := c.wire.WriteRegister(swd.PortDP, dpRegSelect, apBankCSW|apSel); err != nil {
		return fmt.Errorf("dmi: SELECT write: %w", err)
	}
	return nil
}

// retry runs op, absorbing a bounded number of WAIT responses. A FAULT
// response clears the stickies via ABORT before reporting; ABORT writes
// ignore SELECT, so the AP bank selection survives the cleanup.
func (c *Client) retry(op func() error) error {
	var err error
	for attempt := 0; attempt < waitRetryLimit; attempt++ {
		err = op()
		if !errors.Is(err, swd.ErrWait) {
			break
		}
		glog.V(1).Info("wait response, retrying")
	}
	if errors.Is(err, swd.ErrFault) {
		c.tarCacheValid = false
		if aerr := c.wire.WriteRegister(swd.PortDP, dpRegAbort, abortClearAll); aerr != nil {
			return fmt.Errorf("dmi: abort after fault: %w", aerr)
		}
		return fmt.Errorf("dmi: access faulted: %w", err)
	}
	return err
}

// setAddr points TAR at addr, skipping the write when the cached value
// already matches. The cache is only trusted after a successful write.
func (c *Client) setAddr(addr uint32) error {
	if c.tarCacheValid && c.tarCache == addr {
		glog.V(2).Info("TAR cache hit")
		return nil
	}
	glog.V(2).Infof("TAR <- %08x", addr)
	err := c.retry(func() error {
		return c.wire.WriteRegister(swd.PortAP, apRegTAR, addr)
	})
	if err != nil {
		c.tarCacheValid = false
		return err
	}
	c.tarCache = addr
	c.tarCacheValid = true
	return nil
}

// Read performs one DMI read. addr is the DMI word address; the debug
// module's APB bus sees it scaled to a byte address.
func (c *Client) Read(addr uint8) (uint32, error) {
	if err := c.setAddr(uint32(addr) << 2); err != nil {
		return 0, err
	}
	err := c.retry(func() error {
		_, err := c.wire.ReadRegister(swd.PortAP, apRegDRW)
		return err
	})
	if err != nil {
		return 0, err
	}
	var data uint32
	err = c.retry(func() error {
		var err error
		data, err = c.wire.ReadRegister(swd.PortDP, dpRegRdBuf)
		return err
	})
	if err != nil {
		return 0, err
	}
	glog.V(1).Infof("DMI R %02x -> %08x", addr, data)
	return data, nil
}

// Write performs one DMI write.
func (c *Client) Write(addr uint8, data uint32) error {
	if err := c.setAddr(uint32(addr) << 2); err != nil {
		return err
	}
	err := c.retry(func() error {
		return c.wire.WriteRegister(swd.PortAP, apRegDRW, data)
	})
	if err != nil {
		return err
	}
	glog.V(1).Infof("DMI W %02x <- %08x", addr, data)
	return nil
}
