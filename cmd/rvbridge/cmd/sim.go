package cmd

import (
	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/rvdebug"
	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/swd"
)

var simHarts uint32

func init() {
	rootCmd.PersistentFlags().Uint32Var(&simHarts, "sim-harts", 1,
		"simulator: number of harts behind the Debug Module")
}

// newSimTarget builds a simulated SWD target with a minimal 0.13 Debug
// Module behind its Mem-AP: dmcontrol and dmstatus behave well enough for
// connect, probing, and script smoke tests. Every other DM register is
// plain scratch memory.
func newSimTarget() *swd.SimTarget {
	sim := swd.NewSimTarget()
	const (
		ctrlAddr   = uint32(rvdebug.RegDMControl) << 2
		statusAddr = uint32(rvdebug.RegDMStatus) << 2
	)
	sim.Mem[statusAddr] = 2
	sim.OnMemAccess = func(write bool, addr, data uint32) {
		if !write || addr != ctrlAddr {
			return
		}
		sim.Mem[ctrlAddr] = data & (1 | 0x3ff<<16)
		status := uint32(2)
		if sim.Mem[ctrlAddr]>>16&0x3ff >= simHarts {
			status |= 1 << 12
		}
		sim.Mem[statusAddr] = status
	}
	return sim
}
