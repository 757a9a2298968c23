// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package riscv implements the host side of the RISC-V External Debug
// Support (version 0.13) Debug Transport Module / Debug Module Interface
// engine: DTM access, DMI read/write with retry, Abstract Command
// submission, Program Buffer execution, capability negotiation and hart
// discovery.
//
// It is consumed the way conn/i2c and conn/spi buses are consumed: a caller
// supplies a conn/jtag.Adapter (directly, or one opened by name through
// riscvreg) and gets back a Target.
package riscv

import (
	"log"
	"sync"
	"sync/atomic"

	"periph.io/x/riscv/conn/jtag"
)

// DTM is one Debug Transport Module / Debug Module handle, one per
// scan-chain device.
//
// All DMI traffic is strictly serialized: DTM has no internal lock guarding
// concurrent calls against the adapter, matching §5's single-threaded,
// cooperative concurrency model. mu only guards the dead flag and the
// refcount is updated atomically; both may legitimately be touched from a
// different goroutine than the one driving the scan chain (e.g. a watchdog
// closing the handle).
type DTM struct {
	adapter jtag.Adapter
	log     *log.Logger
	maxPoll int

	mu   sync.Mutex
	dead bool
	refs int32

	// L1 capability state populated by probeDTM.
	idcode  uint32
	version Version
	abits   uint8
	idle    uint8

	// lastDMI is the payload of the most recently committed (no-error) DMI
	// scan; used to replay the operation after an op-interrupted response.
	// It must only be updated on success, per §9 "Sticky last_dmi".
	lastDMI   uint64
	haveLast  bool

	// L4 capability negotiation outcome, populated by probeCapabilities.
	progbufSize        uint8
	impebreak          bool
	abstractDataCount  uint8
	supportAutoexec    bool

	// Capability-bound operation table (§3): any entry may be nil.
	readCSR  func(csr uint16) (uint32, error)
	writeCSR func(csr uint16, v uint32) error
	readMem  func(addr uint32) (uint32, error)
	writeMem func(addr uint32, v uint32) error

	// encoder backs the program-buffer CSR/memory templates (§4.4). Init
	// sets it to rv32i's reference encoder; no Option overrides it.
	encoder InstructionEncoder

	harts       []*Hart
	currentHart int // index into harts, -1 if none selected
}

// InstructionEncoder is the out-of-scope "RV32I instruction encoder"
// collaborator named in §1/§6: it produces the raw instruction words the
// Program Buffer path needs for CSR and memory access templates (§4.4).
type InstructionEncoder interface {
	// CSRRS encodes `csrrs rd, csr, rs1`. csr is the 12-bit CSR address.
	CSRRS(rd uint8, csr uint16, rs1 uint8) uint32
	// CSRRW encodes `csrrw rd, csr, rs1`.
	CSRRW(rd uint8, csr uint16, rs1 uint8) uint32
	// LW encodes `lw rd, offset(rs1)`.
	LW(rd, rs1 uint8, offset int32) uint32
	// SW encodes `sw rs2, offset(rs1)`.
	SW(rs2, rs1 uint8, offset int32) uint32
	// EBreak encodes `ebreak`.
	EBreak() uint32
}

// New creates a DTM over the given TAP adapter. It does not touch the wire;
// Init creates its DTM this way and then brings the DMI up and negotiates
// capabilities.
func New(adapter jtag.Adapter, opts ...Option) *DTM {
	d := &DTM{
		adapter:     adapter,
		log:         defaultLogger(),
		maxPoll:     defaultMaxPoll,
		refs:        1,
		currentHart: -1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// readDTMCS shifts 32 DR bits with IR=DTMCS and returns the raw word.
func (d *DTM) readDTMCS() (uint32, error) {
	if err := d.adapter.WriteIR(irDTMCS); err != nil {
		return 0, &TransportError{Op: "dtmcs write_ir", Err: err}
	}
	var tdi, tdo [4]byte
	if err := d.adapter.ShiftDR(tdi[:], tdo[:], 32); err != nil {
		return 0, &TransportError{Op: "dtmcs shift_dr", Err: err}
	}
	return leUint32(tdo[:]), nil
}

// writeDTMCS shifts bits into dtmcs (used for dmireset/dmihardreset).
func (d *DTM) writeDTMCS(bits uint32) error {
	if err := d.adapter.WriteIR(irDTMCS); err != nil {
		return &TransportError{Op: "dtmcs write_ir", Err: err}
	}
	tdi := leBytes32(bits)
	if err := d.adapter.ShiftDR(tdi[:], nil, 32); err != nil {
		return &TransportError{Op: "dtmcs shift_dr", Err: err}
	}
	return nil
}

// dmiReset issues a soft dmireset (dtmcs bit 16).
func (d *DTM) dmiReset() error {
	return d.writeDTMCS(dtmcsDMIReset)
}

// dmiHardReset issues dmihardreset (dtmcs bit 17).
func (d *DTM) dmiHardReset() error {
	return d.writeDTMCS(dtmcsDMIHardRst)
}

// probeDTM reads dtmcs and populates version/abits/idle. Rejects 0.11.
func (d *DTM) probeDTM() error {
	cs, err := d.readDTMCS()
	if err != nil {
		return err
	}
	d.idcode = 0 // idcode is read by the caller's TAP scan-chain walk, not here.
	d.version = versionFromField(cs)
	if d.version == Version011 {
		return &TransportError{Op: "probe", Err: errUnsupportedVersion011}
	}
	d.abits = uint8((cs >> dtmcsAbitsShift) & dtmcsAbitsMask)
	d.idle = uint8((cs >> dtmcsIdleShift) & dtmcsIdleMask)
	if d.abits < 5 || d.abits > 31 {
		return &TransportError{Op: "probe", Err: usageErrorf("abits %d out of range [5,31]", d.abits)}
	}
	return nil
}

// ref increments the share count.
func (d *DTM) ref() {
	atomic.AddInt32(&d.refs, 1)
}

// Ref increments the reference count so another driver module can share
// this handle; pair with Unref.
func (d *DTM) Ref() { d.ref() }

// Unref releases a reference; the handle is torn down when the count
// reaches zero.
func (d *DTM) Unref() error {
	if atomic.AddInt32(&d.refs, -1) == 0 {
		return d.close()
	}
	return nil
}

func (d *DTM) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dead = true
	return nil
}

// isDead reports the sticky failure flag set by a fatal TransportError.
func (d *DTM) isDead() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dead
}

func (d *DTM) markDead() {
	d.mu.Lock()
	d.dead = true
	d.mu.Unlock()
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leBytes32(v uint32) [4]byte {
	return [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
