package script

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/rvdebug"
)

// Target is what a script runs against: a connectable DMI port.
type Target interface {
	Connect() error
	Read(addr uint8) (uint32, error)
	Write(addr uint8, data uint32) error
}

var (
	// ErrExpectFailed means an expect statement's masked comparison did
	// not match.
	ErrExpectFailed = errors.New("script: expectation failed")
	// ErrUnknownRegister means a symbolic register name is not in the DM
	// register map.
	ErrUnknownRegister = errors.New("script: unknown register")
)

// regNames maps symbolic operands to DM register addresses.
var regNames = map[string]uint8{
	"data0":        rvdebug.RegData0,
	"dmcontrol":    rvdebug.RegDMControl,
	"dmstatus":     rvdebug.RegDMStatus,
	"hartinfo":     rvdebug.RegHartInfo,
	"haltsum0":     rvdebug.RegHaltSum0,
	"haltsum1":     rvdebug.RegHaltSum1,
	"hawindowsel":  rvdebug.RegHAWindowSel,
	"hawindow":     rvdebug.RegHAWindow,
	"abstractcs":   rvdebug.RegAbstractCS,
	"command":      rvdebug.RegCommand,
	"abstractauto": rvdebug.RegAbstractAuto,
	"confstrptr0":  rvdebug.RegConfStrPtr0,
	"confstrptr1":  rvdebug.RegConfStrPtr1,
	"confstrptr2":  rvdebug.RegConfStrPtr2,
	"confstrptr3":  rvdebug.RegConfStrPtr3,
	"nextdm":       rvdebug.RegNextDM,
	"progbuf0":     rvdebug.RegProgBuf0,
	"progbuf1":     rvdebug.RegProgBuf1,
	"sbcs":         rvdebug.RegSBCS,
	"sbaddress0":   rvdebug.RegSBAddress0,
	"sbdata0":      rvdebug.RegSBData0,
}

func resolve(op *Operand) (uint8, error) {
	if op.Name != "" {
		addr, ok := regNames[strings.ToLower(op.Name)]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownRegister, op.Name)
		}
		return addr, nil
	}
	if op.Number.Value > 0xff {
		return 0, fmt.Errorf("script: register address %#x out of range", op.Number.Value)
	}
	return uint8(op.Number.Value), nil
}

func operandString(op *Operand) string {
	if op.Name != "" {
		return op.Name
	}
	return fmt.Sprintf("%#02x", op.Number.Value)
}

// Runner executes parsed scripts against a target.
type Runner struct {
	target Target

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// NewRunner builds a runner for the given target.
func NewRunner(target Target) *Runner {
	return &Runner{target: target, sleep: time.Sleep}
}

// Run executes every statement in order, stopping at the first error.
func (r *Runner) Run(s *Script) error {
	for i, st := range s.Statements {
		if err := r.step(st); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}

func (r *Runner) step(st *Statement) error {
	switch {
	case st.Connect:
		glog.V(1).Info("script: connect")
		return r.target.Connect()

	case st.Write != nil:
		addr, err := resolve(st.Write.Reg)
		if err != nil {
			return err
		}
		return r.target.Write(addr, st.Write.Value.Value)

	case st.Read != nil:
		addr, err := resolve(st.Read.Reg)
		if err != nil {
			return err
		}
		data, err := r.target.Read(addr)
		if err != nil {
			return err
		}
		glog.Infof("%s = %08x", operandString(st.Read.Reg), data)
		return nil

	case st.Expect != nil:
		addr, err := resolve(st.Expect.Reg)
		if err != nil {
			return err
		}
		data, err := r.target.Read(addr)
		if err != nil {
			return err
		}
		mask := uint32(0xffffffff)
		if st.Expect.Mask != nil {
			mask = st.Expect.Mask.Value
		}
		want := st.Expect.Value.Value & mask
		if data&mask != want {
			return fmt.Errorf("%w: %s = %08x, want %08x (mask %08x)",
				ErrExpectFailed, operandString(st.Expect.Reg), data, want, mask)
		}
		return nil

	case st.Sleep != nil:
		r.sleep(st.Sleep.Duration.Value)
		return nil
	}
	return nil
}
