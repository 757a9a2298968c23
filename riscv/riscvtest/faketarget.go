// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscvtest

import "sync"

// DM register addresses duplicated from the unexported set in package
// riscv, since FakeTarget stands in for real silicon and must agree with
// the engine on the wire layout, not reach into its internals.
const (
	regAbstractData0 = 0x04
	regDMControl     = 0x10
	regDMStatus      = 0x11
	regAbstractCS    = 0x16
	regAbstractCmd   = 0x17
	regAbstractAuto  = 0x18
	regProgBuf0      = 0x20

	opNop         = 0
	opRead        = 1
	opWrite       = 2
	opNoError     = 0
	opFailed      = 2
	opInterrupted = 3

	dmstatusAnyNonExistent = 1 << 14

	autoexecPattern = 0b101010101010
)

// FakeTarget is a minimal in-memory Debug Module, implementing
// conn/jtag.Adapter, that behaves like real silicon closely enough to
// integration-test capability negotiation, hart discovery and program
// buffer execution end to end. It models the same two-phase JTAG DR shift
// semantics real hardware exhibits: a scan's tdo carries the *previous*
// operation's result while its tdi starts the *new* one, matching §4.2.
//
// It interprets the handful of RV32I instructions the progbuf CSR/memory
// templates use (csrrs, csrrw, lw, sw) against a tiny register file and
// byte-addressable memory, so progbufExec produces real results instead
// of stubbed ones.
type FakeTarget struct {
	mu sync.Mutex

	Abits uint8
	Idle  uint8
	DTMCSVersion uint32 // 1 = 0.13

	ir uint32

	dmiRegs map[uint32]uint32
	gpr     [32]uint32
	csr     map[uint16]uint32
	mem     map[uint32]uint32

	progbuf     [16]uint32
	progbufSize uint8
	impebreak   bool

	numHarts    int
	hartsellen  uint32
	dmcontrol   uint32

	// two-phase pipeline state: outOp/outData are shifted out on the NEXT
	// dmi scan, representing the result of whatever was shifted in last.
	outOp   uint8
	outData uint32

	// InterruptNext, if >0, makes that many upcoming completed DMI
	// operations report op-interrupted instead of their real result,
	// exercising the retry path (§4.2).
	InterruptNext int

	autoexecArmed        bool
	autoexecActive       bool
	autoexecWrite        bool
	autoexecRegno        uint16
	autoexecFirstPending bool
}

// NewFakeTarget returns a FakeTarget with the given progbuf/impebreak
// capability and numHarts discoverable harts.
func NewFakeTarget(abits, idle uint8, progbufSize uint8, impebreak bool, numHarts int) *FakeTarget {
	f := &FakeTarget{
		Abits:        abits,
		Idle:         idle,
		DTMCSVersion: 1,
		dmiRegs:      map[uint32]uint32{},
		csr:          map[uint16]uint32{},
		mem:          map[uint32]uint32{},
		progbufSize:  progbufSize,
		impebreak:    impebreak,
		numHarts:     numHarts,
	}
	if numHarts > 0 {
		bits := 0
		for (1 << uint(bits)) < numHarts {
			bits++
		}
		f.hartsellen = uint32(1<<uint(bits)) - 1
	}
	f.dmiRegs[regAbstractCS] = uint32(1) | uint32(progbufSize)<<24 // datacount=1, progbufsize
	return f
}

// SetCSR seeds a CSR's value as seen by the simulated hart.
func (f *FakeTarget) SetCSR(csr uint16, v uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.csr[csr] = v
}

// CSR returns a CSR's current value.
func (f *FakeTarget) CSR(csr uint16) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.csr[csr]
}

// SetMem seeds a memory word.
func (f *FakeTarget) SetMem(addr uint32, v uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mem[addr] = v
}

// Mem returns a memory word.
func (f *FakeTarget) Mem(addr uint32) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mem[addr]
}

func (f *FakeTarget) String() string { return "riscvtest.FakeTarget" }

// WriteIR implements conn/jtag.Adapter.
func (f *FakeTarget) WriteIR(value uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ir = value
	return nil
}

const (
	irDTMCS = 0x10
	irDMI   = 0x11
)

// ShiftDR implements conn/jtag.Adapter.
func (f *FakeTarget) ShiftDR(tdi, tdo []byte, nbits int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.ir {
	case irDTMCS:
		return f.shiftDTMCS(tdi, tdo, nbits)
	case irDMI:
		return f.shiftDMI(tdi, tdo, nbits)
	default:
		// Bypass or unmodeled IR: loop tdi back.
		copy(tdo, tdi)
		return nil
	}
}

// TMSSeq implements conn/jtag.Adapter.
func (f *FakeTarget) TMSSeq(pattern uint64, count int) error { return nil }

func (f *FakeTarget) shiftDTMCS(tdi, tdo []byte, nbits int) error {
	cur := uint32(f.DTMCSVersion) | uint32(f.Abits)<<4 | uint32(f.Idle)<<12
	for i := 0; i < len(tdo) && i < 4; i++ {
		tdo[i] = byte(cur >> (8 * uint(i)))
	}
	in := unpackBits(tdi, nbits)
	if in&(1<<16) != 0 {
		f.outOp = opNoError
		f.outData = 0
	}
	if in&(1<<17) != 0 {
		f.dmiRegs = map[uint32]uint32{regAbstractCS: f.dmiRegs[regAbstractCS]}
		f.outOp = opNoError
		f.outData = 0
	}
	return nil
}

func (f *FakeTarget) shiftDMI(tdi, tdo []byte, nbits int) error {
	respPayload := uint64(f.outData)<<2 | uint64(f.outOp)
	respBytes := packBits(respPayload, nbits)
	copy(tdo, respBytes)

	req := unpackBits(tdi, nbits)
	addr := uint32(req >> 34)
	data := uint32((req >> 2) & 0xFFFFFFFF)
	op := uint8(req & 0x3)

	switch op {
	case opWrite:
		f.handleWrite(addr, data)
	case opRead:
		f.handleRead(addr)
	case opNop:
		// nothing to start; outOp/outData already reflect the last op.
	}
	return nil
}

func (f *FakeTarget) reportResult(op uint8, data uint32) {
	if f.InterruptNext > 0 {
		f.InterruptNext--
		f.outOp = opInterrupted
		f.outData = 0
		return
	}
	f.outOp = op
	f.outData = data
}

func (f *FakeTarget) handleWrite(addr, data uint32) {
	switch addr {
	case regDMControl:
		hartsel := decodeHartSelLocal(data) & f.hartsellen
		f.dmcontrol = data&^hartselEncodeMask | encodeHartSelLocal(hartsel)
		f.reportResult(opNoError, 0)
		return
	case regAbstractAuto:
		f.autoexecArmed = data == autoexecPattern
		if !f.autoexecArmed {
			f.autoexecActive = false
			f.autoexecFirstPending = false
		}
		f.reportResult(opNoError, 0)
		return
	case regAbstractCmd:
		f.execAbstractCmd(data)
		return
	case regAbstractData0:
		if f.autoexecActive && f.autoexecWrite {
			f.writeRegno(f.autoexecRegno, data)
			f.autoexecRegno++
			f.dmiRegs[addr] = data
			f.reportResult(opNoError, 0)
			return
		}
		f.dmiRegs[addr] = data
		f.reportResult(opNoError, 0)
		return
	}
	if addr >= regProgBuf0 && addr < regProgBuf0+16 {
		f.progbuf[addr-regProgBuf0] = data
		f.reportResult(opNoError, 0)
		return
	}
	f.dmiRegs[addr] = data
	f.reportResult(opNoError, 0)
}

func (f *FakeTarget) handleRead(addr uint32) {
	switch addr {
	case regDMControl:
		f.reportResult(opNoError, f.dmcontrol)
		return
	case regDMStatus:
		// dmstatus.version uses its own encoding (0=no debug support,
		// 1=0.11, 2=0.13), distinct from dtmcs.version's (0=0.11, 1=0.13):
		// translate so a real target's init-time cross-check has something
		// consistent to compare against.
		status := dmstatusVersionFromDTMCS(f.DTMCSVersion)
		hartsel := decodeHartSelLocal(f.dmcontrol)
		if int(hartsel) >= f.numHarts {
			status |= dmstatusAnyNonExistent
		}
		f.reportResult(opNoError, status)
		return
	case regAbstractAuto:
		if f.autoexecArmed {
			f.reportResult(opNoError, autoexecPattern)
		} else {
			f.reportResult(opNoError, 0)
		}
		return
	case regAbstractCS:
		v := uint32(1) | uint32(f.progbufSize)<<24
		f.reportResult(opNoError, v)
		return
	case regAbstractData0:
		if f.autoexecActive && !f.autoexecWrite {
			if f.autoexecFirstPending {
				f.autoexecFirstPending = false
				f.reportResult(opNoError, f.dmiRegs[addr])
				return
			}
			v := f.readRegno(f.autoexecRegno)
			f.autoexecRegno++
			f.dmiRegs[addr] = v
			f.reportResult(opNoError, v)
			return
		}
		f.reportResult(opNoError, f.dmiRegs[addr])
		return
	}
	f.reportResult(opNoError, f.dmiRegs[addr])
}

// execAbstractCmd decodes a cmdtype=access_register word and executes it
// against the simulated register file, handling transfer/write/postexec
// and a minimal RV32I interpreter for the one-instruction progbuf
// templates the riscv package's progbuf.go uploads.
func (f *FakeTarget) execAbstractCmd(cmd uint32) {
	const (
		aarPostIncrement = 1 << 19
		postExec         = 1 << 18
		transferBit      = 1 << 17
		writeBit         = 1 << 16
	)
	regno := uint16(cmd & 0xFFFF)
	transfer := cmd&transferBit != 0
	write := cmd&writeBit != 0
	post := cmd&postExec != 0
	postInc := cmd&aarPostIncrement != 0

	if transfer {
		if write {
			v := f.dmiRegs[regAbstractData0]
			f.writeRegno(regno, v)
			if postInc {
				f.autoexecActive = true
				f.autoexecWrite = true
				f.autoexecRegno = regno + 1
			}
		} else {
			v := f.readRegno(regno)
			f.dmiRegs[regAbstractData0] = v
			if postInc {
				f.autoexecActive = true
				f.autoexecWrite = false
				f.autoexecRegno = regno + 1
				f.autoexecFirstPending = true
			}
		}
	}
	if post {
		f.runProgbuf()
	}
	f.reportResult(opNoError, 0)
}

func (f *FakeTarget) readRegno(regno uint16) uint32 {
	if regno >= 0x1000 {
		return f.gpr[regno-0x1000]
	}
	return f.csr[regno]
}

func (f *FakeTarget) writeRegno(regno uint16, v uint32) {
	if regno >= 0x1000 {
		f.gpr[regno-0x1000] = v
		return
	}
	f.csr[regno] = v
}

// runProgbuf interprets the uploaded program: only csrrs, csrrw, lw, sw,
// ebreak are understood (the only instructions riscv/progbuf.go emits).
func (f *FakeTarget) runProgbuf() {
	for _, instr := range f.progbuf {
		if instr == 0 {
			break
		}
		opcode := instr & 0x7F
		rd := (instr >> 7) & 0x1F
		funct3 := (instr >> 12) & 0x7
		rs1 := (instr >> 15) & 0x1F
		switch opcode {
		case 0x73: // SYSTEM: csrrs/csrrw
			csr := uint16(instr >> 20)
			switch funct3 {
			case 0x2: // csrrs
				f.gpr[rd] = f.csr[csr]
			case 0x1: // csrrw
				f.csr[csr] = f.gpr[rs1]
			}
			if instr == 0x00100073 {
				return // ebreak
			}
		case 0x03: // LOAD: lw
			imm := int32(instr) >> 20
			addr := uint32(int32(f.gpr[rs1]) + imm)
			f.gpr[rd] = f.mem[addr]
		case 0x23: // STORE: sw
			imm11_5 := (instr >> 25) & 0x7F
			imm4_0 := (instr >> 7) & 0x1F
			imm := int32(imm11_5<<5|imm4_0) << 20 >> 20
			rs2 := (instr >> 20) & 0x1F
			addr := uint32(int32(f.gpr[rs1]) + imm)
			f.mem[addr] = f.gpr[rs2]
		}
	}
}

// dmstatusVersionFromDTMCS translates a dtmcs.version field value (what
// FakeTarget.DTMCSVersion holds: 0=0.11, 1=0.13) into the value dmstatus's
// own version field would report for the same target (0=no debug support,
// 1=0.11, 2=0.13).
func dmstatusVersionFromDTMCS(dtmcsVersion uint32) uint32 {
	switch dtmcsVersion {
	case 0:
		return 1
	case 1:
		return 2
	default:
		return 0
	}
}

const hartselEncodeMask = 0x3FF<<16 | 0x3FF<<6

func decodeHartSelLocal(dmcontrol uint32) uint32 {
	lo := (dmcontrol >> 16) & 0x3FF
	hi := (dmcontrol >> 6) & 0x3FF
	return lo | hi<<10
}

func encodeHartSelLocal(hartsel uint32) uint32 {
	lo := hartsel & 0x3FF
	hi := (hartsel >> 10) & 0x3FF
	return lo<<16 | hi<<6
}
