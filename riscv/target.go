// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscv

import (
	"periph.io/x/riscv/conn/jtag"
	"periph.io/x/riscv/riscv/rv32i"
)

// Target is the public debug-target facade (L5, §4.7): init, CSR/memory
// access, hart selection, and shared-ownership lifecycle. It wraps a DTM
// the way conn/i2c.Dev wraps a Bus: thin, synchronous, delegating all
// protocol work downward.
type Target struct {
	dtm *DTM
}

// Init brings a TAP adapter up as a debug target: reads dtmcs (L1), issues
// dmihardreset, reads dmstatus, rejects an unauthenticated target and a
// target whose dmstatus.version disagrees with the version dtmcs already
// reported (L2), negotiates Debug Module capabilities and installs the
// CSR/memory access strategy (L4), discovers harts and selects hart 0, per
// the control flow in §2.
//
// On failure the partially-constructed handle is released and the error
// returned; the caller must not reuse it (§7 "user-visible behaviour on
// init failure").
func Init(adapter jtag.Adapter, opts ...Option) (*Target, error) {
	d := New(adapter, opts...)
	if d.encoder == nil {
		d.encoder = rv32i.Encoder{}
	}

	if err := d.probeDTM(); err != nil {
		return nil, err
	}
	if err := d.dmiHardReset(); err != nil {
		return nil, err
	}
	status, err := d.dmiRead(dmDMStatus)
	if err != nil {
		return nil, err
	}
	if status&dmstatusNotAuthenticated != 0 && status&dmstatusAuthenticated == 0 {
		d.markDead()
		return nil, &TransportError{Op: "init", Err: errNotAuthenticated}
	}
	if dv := versionFromDMStatus(status); dv != d.version {
		d.markDead()
		return nil, &TransportError{Op: "init", Err: &errVersionMismatch{dtmcs: d.version, dmstatus: dv}}
	}
	if err := d.probeCapabilities(); err != nil {
		return nil, err
	}
	if err := d.discoverHarts(); err != nil {
		return nil, err
	}
	return &Target{dtm: d}, nil
}

// dmstatus authentication bits used only at init (§2).
const (
	dmstatusAuthenticated    = 1 << 7
	dmstatusNotAuthenticated = 1 << 6
)

// Ref shares this handle with another driver module.
func (t *Target) Ref() { t.dtm.Ref() }

// Unref releases a reference; the underlying DTM is torn down when the
// last reference is released.
func (t *Target) Unref() error { return t.dtm.Unref() }

// SetDebugVersion accepts only Version013; any other value is a UsageError
// per §4.7.
func (t *Target) SetDebugVersion(v Version) error {
	if v != Version013 {
		return usageErrorf("unsupported debug version %s, only 0.13", v)
	}
	t.dtm.version = v
	return nil
}

// Version returns the negotiated Debug Spec version.
func (t *Target) Version() Version { return t.dtm.version }

// ProgBufSize returns the negotiated program buffer size in words.
func (t *Target) ProgBufSize() uint8 { return t.dtm.progbufSize }

// ImpEBreak reports whether the target appends an implicit ebreak to the
// program buffer.
func (t *Target) ImpEBreak() bool { return t.dtm.impebreak }

// AbstractDataCount returns the negotiated abstract data window size.
func (t *Target) AbstractDataCount() uint8 { return t.dtm.abstractDataCount }

// SupportsAutoexecData reports whether the target accepted the
// autoexecdata probe pattern.
func (t *Target) SupportsAutoexecData() bool { return t.dtm.supportAutoexec }

// Harts returns the discovered harts.
func (t *Target) Harts() []*Hart { return t.dtm.Harts() }

// SelectHart makes the hart at the given index (into Harts()) current.
func (t *Target) SelectHart(idx int) error { return t.dtm.SelectHart(idx) }

// ReadCSR reads a CSR from the current hart using whichever strategy
// (abstract or program-buffer) was installed at Init; returns a
// TransportError if the capability table has no entry.
func (t *Target) ReadCSR(csr uint16) (uint32, error) {
	if t.dtm.isDead() {
		return 0, &TransportError{Op: "read_csr", Err: errHandleDead}
	}
	if t.dtm.readCSR == nil {
		return 0, &TransportError{Op: "read_csr", Err: errCapabilityUnavailable}
	}
	return t.dtm.readCSR(csr)
}

// WriteCSR writes a CSR on the current hart.
func (t *Target) WriteCSR(csr uint16, value uint32) error {
	if t.dtm.isDead() {
		return &TransportError{Op: "write_csr", Err: errHandleDead}
	}
	if t.dtm.writeCSR == nil {
		return &TransportError{Op: "write_csr", Err: errCapabilityUnavailable}
	}
	return t.dtm.writeCSR(csr, value)
}

// ReadMem reads one 32-bit memory word; only available when the target
// has a program buffer (§1 Non-goals: no System Bus Access path).
func (t *Target) ReadMem(addr uint32) (uint32, error) {
	if t.dtm.isDead() {
		return 0, &TransportError{Op: "read_mem", Err: errHandleDead}
	}
	if t.dtm.readMem == nil {
		return 0, &TransportError{Op: "read_mem", Err: errCapabilityUnavailable}
	}
	return t.dtm.readMem(addr)
}

// WriteMem writes one 32-bit memory word.
func (t *Target) WriteMem(addr uint32, value uint32) error {
	if t.dtm.isDead() {
		return &TransportError{Op: "write_mem", Err: errHandleDead}
	}
	if t.dtm.writeMem == nil {
		return &TransportError{Op: "write_mem", Err: errCapabilityUnavailable}
	}
	return t.dtm.writeMem(addr, value)
}
