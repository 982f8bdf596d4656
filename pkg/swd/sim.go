package swd

import (
	"math/bits"
)

// simState tracks where in a packet the simulated target's parser is.
type simState int

const (
	simIdle simState = iota
	simHeader
	simTurn
	simAck
	simReadData
	simReadParity
	simReadTurn
	simWriteTurn
	simWriteData
	simWriteParity
	simSelGap
	simSelData
	simSelParity
)

// SimAccess is one register access observed by the simulated target.
type SimAccess struct {
	Port Port
	Read bool
	Addr uint8
	Data uint32
	ACK  ACK
}

// SimTarget is an in-memory SW-DP with a single Mem-AP behind it. It
// implements Pins and decodes the host's traffic edge by edge, so the packet
// layer is exercised bit-for-bit rather than through a shortcut API.
//
// Responses can be scripted for tests: NextACKs forces the ACK of upcoming
// transactions, OnMemAccess observes or overrides memory traffic through the
// AP, and PowerUpPolls delays the power-up handshake.
type SimTarget struct {
	DPIDR    uint32
	IDR      uint32
	TargetID uint32

	// PowerUpPolls is how many CTRL/STAT reads return without the ACK bits
	// after a power-up request. Zero acknowledges on the first poll.
	PowerUpPolls int

	// NextACKs is consumed one entry per transaction; when empty the
	// target answers OK.
	NextACKs []ACK

	Mem         map[uint32]uint32
	OnMemAccess func(write bool, addr, data uint32)

	// Accesses and Aborts log completed transactions for inspection.
	Accesses []SimAccess
	Aborts   []uint32

	clk           bool
	hostLevel     bool
	hostDriving   bool
	driveLevel    bool
	targetDriving bool

	st       simState
	bitCount int
	shifter  uint64
	onesRun  int

	afterReset bool
	selected   bool

	pend     SimAccess
	pendOK   bool
	ack      ACK
	readWord uint32

	sel           uint32
	ctrlStat      uint32
	csw           uint32
	tar           uint32
	apResult      uint32
	ctrlStatReads int
}

// NewSimTarget returns a target with the reference IDs of an RP2040-style
// SW-DP fronting an APB Mem-AP.
func NewSimTarget() *SimTarget {
	s := &SimTarget{
		DPIDR: 0x0bc12477,
		IDR:   0x04770002,
	}
	s.reset()
	return s
}

func (s *SimTarget) reset() {
	if s.Mem == nil {
		s.Mem = make(map[uint32]uint32)
	}
	s.clk = false
	s.hostDriving = false
	s.targetDriving = false
	s.driveLevel = true
	s.st = simIdle
	s.onesRun = 0
	s.afterReset = false
	s.selected = true
	s.sel = 0
	s.ctrlStat = 0
	s.csw = 0
	s.tar = 0
	s.apResult = 0
	s.ctrlStatReads = 0
}

// Init implements Pins.
func (s *SimTarget) Init() error {
	s.reset()
	return nil
}

// Close implements Pins.
func (s *SimTarget) Close() error { return nil }

// Delay implements Pins.
func (s *SimTarget) Delay() {}

// SetData implements Pins.
func (s *SimTarget) SetData(high bool) { s.hostLevel = high }

// DriveData implements Pins.
func (s *SimTarget) DriveData(output bool) { s.hostDriving = output }

// ReadData implements Pins. An undriven line reads high, so an absent or
// deselected target yields an all-ones (disconnected) ACK.
func (s *SimTarget) ReadData() bool {
	if s.targetDriving {
		return s.driveLevel
	}
	return true
}

// SetClock implements Pins. Rising edges consume the host's bit and advance
// the parser; falling edges present the next output bit, so the host's
// sample-before-rising-edge timing sees stable data.
func (s *SimTarget) SetClock(high bool) {
	if high == s.clk {
		return
	}
	s.clk = high
	if high {
		s.rising()
	} else {
		s.falling()
	}
}

func (s *SimTarget) rising() {
	bit := s.hostLevel
	if s.hostDriving {
		if bit {
			s.onesRun++
		} else {
			if s.onesRun >= 50 {
				s.lineReset()
			}
			s.onesRun = 0
		}
	} else {
		s.onesRun = 0
	}

	switch s.st {
	case simIdle:
		if s.hostDriving && bit {
			s.st = simHeader
			s.shifter = 1
			s.bitCount = 1
		}

	case simHeader:
		if bit {
			s.shifter |= 1 << s.bitCount
		}
		s.bitCount++
		if s.bitCount == 8 {
			s.decodeHeader(byte(s.shifter))
		}

	case simTurn:
		s.beginAck()

	case simAck:
		s.bitCount++
		if s.bitCount == 3 {
			if s.pend.Read {
				s.readWord = 0
				if s.pendOK {
					s.readWord = s.performRead()
				}
				s.pend.Data = s.readWord
				s.Accesses = append(s.Accesses, s.pend)
				s.st = simReadData
				s.bitCount = 0
			} else {
				s.st = simWriteTurn
			}
		}

	case simReadData:
		s.bitCount++
		if s.bitCount == 32 {
			s.st = simReadParity
		}

	case simReadParity:
		s.st = simReadTurn
		s.targetDriving = false

	case simReadTurn:
		s.st = simIdle

	case simWriteTurn:
		s.st = simWriteData
		s.bitCount = 0
		s.shifter = 0

	case simWriteData:
		if bit {
			s.shifter |= 1 << s.bitCount
		}
		s.bitCount++
		if s.bitCount == 32 {
			s.st = simWriteParity
		}

	case simWriteParity:
		s.pend.Data = uint32(s.shifter)
		s.Accesses = append(s.Accesses, s.pend)
		if s.pendOK {
			s.performWrite(uint32(s.shifter))
		}
		s.st = simIdle

	case simSelGap:
		s.bitCount++
		if s.bitCount == 5 {
			s.st = simSelData
			s.bitCount = 0
			s.shifter = 0
		}

	case simSelData:
		if bit {
			s.shifter |= 1 << s.bitCount
		}
		s.bitCount++
		if s.bitCount == 32 {
			s.st = simSelParity
		}

	case simSelParity:
		s.selected = uint32(s.shifter) == s.TargetID
		s.afterReset = false
		s.st = simIdle
	}
}

func (s *SimTarget) falling() {
	switch s.st {
	case simAck:
		s.driveLevel = uint8(s.ack)>>s.bitCount&1 != 0
	case simReadData:
		s.driveLevel = s.readWord>>s.bitCount&1 != 0
	case simReadParity:
		s.driveLevel = bits.OnesCount32(s.readWord)&1 != 0
	}
}

// lineReset returns the parser to idle and arms TARGETSEL decoding. A single
// target is modelled, so reset also reselects it.
func (s *SimTarget) lineReset() {
	s.st = simIdle
	s.afterReset = true
	s.selected = true
	s.targetDriving = false
}

func (s *SimTarget) decodeHeader(h byte) {
	port := Port(h >> 1 & 1)
	read := h>>2&1 != 0
	a := h >> 3 & 3
	parity := h >> 5 & 1
	if h&0x40 != 0 || h&0x80 == 0 || parity != (a>>1^a&1^b2u(read)^uint8(port)) {
		// Not a well-formed header; stay quiet.
		s.st = simIdle
		return
	}
	if port == PortDP && !read && a == 3 && s.afterReset {
		s.st = simSelGap
		s.bitCount = 0
		return
	}
	s.afterReset = false
	if !s.selected {
		// Deselected targets do not respond at all.
		s.st = simIdle
		return
	}
	s.pend = SimAccess{Port: port, Read: read, Addr: a}
	s.st = simTurn
}

func (s *SimTarget) beginAck() {
	s.st = simAck
	s.bitCount = 0
	s.targetDriving = true
	s.ack = ACKOK
	if len(s.NextACKs) > 0 {
		s.ack = s.NextACKs[0]
		s.NextACKs = s.NextACKs[1:]
	}
	s.pendOK = s.ack == ACKOK
	s.pend.ACK = s.ack
}

func (s *SimTarget) apRegAddr() uint32 {
	return s.sel&0xf0 | uint32(s.pend.Addr)<<2
}

func (s *SimTarget) performRead() uint32 {
	if s.pend.Port == PortDP {
		switch s.pend.Addr {
		case 0:
			return s.DPIDR
		case 1:
			return s.readCtrlStat()
		case 2:
			return s.sel
		default:
			return s.apResult // RDBUF
		}
	}
	// AP reads are posted: this access returns the previous result.
	prev := s.apResult
	s.apResult = s.apRead(s.apRegAddr())
	return prev
}

func (s *SimTarget) readCtrlStat() uint32 {
	const (
		csyspwrupack = uint32(1) << 31
		csyspwrupreq = uint32(1) << 30
		cdbgpwrupack = uint32(1) << 29
		cdbgpwrupreq = uint32(1) << 28
	)
	v := s.ctrlStat
	if v&(csyspwrupreq|cdbgpwrupreq) != 0 {
		if s.ctrlStatReads >= s.PowerUpPolls {
			if v&csyspwrupreq != 0 {
				v |= csyspwrupack
			}
			if v&cdbgpwrupreq != 0 {
				v |= cdbgpwrupack
			}
		}
		s.ctrlStatReads++
	}
	return v
}

func (s *SimTarget) apRead(reg uint32) uint32 {
	switch reg {
	case 0x00:
		return s.csw
	case 0x04:
		return s.tar
	case 0x0c:
		data := s.Mem[s.tar]
		if s.OnMemAccess != nil {
			s.OnMemAccess(false, s.tar, data)
		}
		return data
	case 0xfc:
		return s.IDR
	}
	return 0
}

func (s *SimTarget) performWrite(data uint32) {
	if s.pend.Port == PortDP {
		switch s.pend.Addr {
		case 0:
			s.Aborts = append(s.Aborts, data)
		case 1:
			s.ctrlStat = data &^ (1<<31 | 1<<29)
			s.ctrlStatReads = 0
		case 2:
			s.sel = data
		}
		// TARGETSEL outside the reset state is ignored.
		return
	}
	switch s.apRegAddr() {
	case 0x00:
		s.csw = data
	case 0x04:
		s.tar = data
	case 0x0c:
		s.Mem[s.tar] = data
		if s.OnMemAccess != nil {
			s.OnMemAccess(true, s.tar, data)
		}
	}
}
