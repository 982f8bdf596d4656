// Package tap models the IEEE 1149.1 Test Access Port controller: the
// sixteen-state Moore machine stepped by TMS on each rising TCK edge.
package tap

import (
	"fmt"
)

// State is one of the 16 defined IEEE 1149.1 TAP controller states.
type State uint8

const (
	StateTestLogicReset State = iota
	StateRunTestIdle
	StateSelectDRScan
	StateCaptureDR
	StateShiftDR
	StateExit1DR
	StatePauseDR
	StateExit2DR
	StateUpdateDR
	StateSelectIRScan
	StateCaptureIR
	StateShiftIR
	StateExit1IR
	StatePauseIR
	StateExit2IR
	StateUpdateIR

	numStates
)

var stateNames = [numStates]string{
	StateTestLogicReset: "TestLogicReset",
	StateRunTestIdle:    "RunTestIdle",
	StateSelectDRScan:   "SelectDRScan",
	StateCaptureDR:      "CaptureDR",
	StateShiftDR:        "ShiftDR",
	StateExit1DR:        "Exit1DR",
	StatePauseDR:        "PauseDR",
	StateExit2DR:        "Exit2DR",
	StateUpdateDR:       "UpdateDR",
	StateSelectIRScan:   "SelectIRScan",
	StateCaptureIR:      "CaptureIR",
	StateShiftIR:        "ShiftIR",
	StateExit1IR:        "Exit1IR",
	StatePauseIR:        "PauseIR",
	StateExit2IR:        "Exit2IR",
	StateUpdateIR:       "UpdateIR",
}

func (s State) String() string {
	if s < numStates {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// transitions[s] holds the successor for TMS=0 and TMS=1 respectively.
// TestLogicReset self-loops on TMS=1, so five consecutive TMS=1 clocks reach
// reset from any state.
var transitions = [numStates][2]State{
	StateTestLogicReset: {StateRunTestIdle, StateTestLogicReset},
	StateRunTestIdle:    {StateRunTestIdle, StateSelectDRScan},

	StateSelectDRScan: {StateCaptureDR, StateSelectIRScan},
	StateCaptureDR:    {StateShiftDR, StateExit1DR},
	StateShiftDR:      {StateShiftDR, StateExit1DR},
	StateExit1DR:      {StatePauseDR, StateUpdateDR},
	StatePauseDR:      {StatePauseDR, StateExit2DR},
	StateExit2DR:      {StateShiftDR, StateUpdateDR},
	StateUpdateDR:     {StateRunTestIdle, StateSelectDRScan},

	StateSelectIRScan: {StateCaptureIR, StateTestLogicReset},
	StateCaptureIR:    {StateShiftIR, StateExit1IR},
	StateShiftIR:      {StateShiftIR, StateExit1IR},
	StateExit1IR:      {StatePauseIR, StateUpdateIR},
	StatePauseIR:      {StatePauseIR, StateExit2IR},
	StateExit2IR:      {StateShiftIR, StateUpdateIR},
	StateUpdateIR:     {StateRunTestIdle, StateSelectDRScan},
}

// NextState returns the state after clocking TCK once with the given TMS
// level. Out-of-range states fall back to TestLogicReset.
func NextState(current State, tms bool) State {
	if current >= numStates {
		return StateTestLogicReset
	}
	if tms {
		return transitions[current][1]
	}
	return transitions[current][0]
}

// Sequence captures a TMS drive pattern and the states the controller passes
// through while it is applied.
type Sequence struct {
	TMS    []bool
	States []State
}

// StateMachine tracks a TAP controller locally. It performs no I/O; it
// produces the TMS sequences a driver needs to steer real or emulated
// hardware.
type StateMachine struct {
	state State
}

// NewStateMachine creates a TAP state machine initialized to Test-Logic-Reset.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateTestLogicReset}
}

// State reports the current TAP state tracked by the machine.
func (m *StateMachine) State() State {
	return m.state
}

// Clock advances the machine one TCK cycle with the provided TMS bit and
// returns the new state.
func (m *StateMachine) Clock(tms bool) State {
	m.state = NextState(m.state, tms)
	return m.state
}

// Reset clocks five consecutive TMS=1 cycles, which reaches Test-Logic-Reset
// from any state. The generated sequence is returned so it can be forwarded
// to a driver.
func (m *StateMachine) Reset() Sequence {
	seq := Sequence{
		TMS:    make([]bool, 5),
		States: make([]State, 6),
	}
	seq.States[0] = m.state
	for i := 0; i < 5; i++ {
		seq.TMS[i] = true
		seq.States[i+1] = m.Clock(true)
	}
	return seq
}

// GoTo computes the shortest TMS sequence from the current state to target,
// advancing the machine as a side effect.
func (m *StateMachine) GoTo(target State) (Sequence, error) {
	path, err := computePath(m.state, target)
	if err != nil {
		return Sequence{}, err
	}
	for _, bit := range path.TMS {
		m.Clock(bit)
	}
	return path, nil
}

// computePath finds the shortest transition sequence between two states via
// BFS over the state diagram.
func computePath(from, to State) (Sequence, error) {
	if from >= numStates {
		return Sequence{}, fmt.Errorf("tap: invalid start state %d", from)
	}
	if to >= numStates {
		return Sequence{}, fmt.Errorf("tap: invalid target state %d", to)
	}
	if from == to {
		return Sequence{States: []State{from}}, nil
	}

	type node struct {
		state  State
		tms    []bool
		states []State
	}

	queue := []node{{state: from, states: []State{from}}}
	var visited [numStates]bool
	visited[from] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, tms := range []bool{false, true} {
			next := NextState(current.state, tms)
			if visited[next] {
				continue
			}

			newTMS := append(append([]bool{}, current.tms...), tms)
			newStates := append(append([]State{}, current.states...), next)

			if next == to {
				return Sequence{TMS: newTMS, States: newStates}, nil
			}

			visited[next] = true
			queue = append(queue, node{state: next, tms: newTMS, states: newStates})
		}
	}

	return Sequence{}, fmt.Errorf("tap: no path from %s to %s", from, to)
}
