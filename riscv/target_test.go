// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscv

import (
	"testing"

	"periph.io/x/riscv/riscv/riscvtest"
)

// TestInitEndToEnd brings up a simulated target through Init and exercises
// the program-buffer CSR/memory path it installs (§2, §4.4, §4.5).
func TestInitEndToEnd(t *testing.T) {
	f := riscvtest.NewFakeTarget(17, 7, 2, false, 1)
	target, err := Init(f)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if target.Version() != Version013 {
		t.Fatalf("Version() = %v, want 0.13", target.Version())
	}
	if target.ProgBufSize() != 2 {
		t.Fatalf("ProgBufSize() = %d, want 2", target.ProgBufSize())
	}
	if target.ImpEBreak() {
		t.Fatal("ImpEBreak() = true, want false for a 2-word progbuf")
	}
	if !target.SupportsAutoexecData() {
		t.Fatal("expected the autoexecdata probe to succeed against FakeTarget")
	}
	if len(target.Harts()) != 1 {
		t.Fatalf("len(Harts()) = %d, want 1", len(target.Harts()))
	}

	const csr = 0x7c0
	if err := target.WriteCSR(csr, 0xdeadbeef); err != nil {
		t.Fatalf("WriteCSR: %v", err)
	}
	got, err := target.ReadCSR(csr)
	if err != nil {
		t.Fatalf("ReadCSR: %v", err)
	}
	if got != 0xdeadbeef {
		t.Fatalf("ReadCSR() = 0x%x, want 0xdeadbeef", got)
	}

	if err := target.WriteMem(0x1000, 0x12345678); err != nil {
		t.Fatalf("WriteMem: %v", err)
	}
	gotMem, err := target.ReadMem(0x1000)
	if err != nil {
		t.Fatalf("ReadMem: %v", err)
	}
	if gotMem != 0x12345678 {
		t.Fatalf("ReadMem() = 0x%x, want 0x12345678", gotMem)
	}
	if f.Mem(0x1000) != 0x12345678 {
		t.Fatalf("FakeTarget.Mem(0x1000) = 0x%x, want 0x12345678", f.Mem(0x1000))
	}
}

// TestInitRejectsDMStatusVersionMismatch scripts a target whose dtmcs
// reports 0.13 but whose dmstatus reports 0.11, exercising §2's
// "cross-checks version" step directly at the wire level (FakeTarget
// cannot produce a live two-register disagreement, since it always derives
// one from the other).
func TestInitRejectsDMStatusVersionMismatch(t *testing.T) {
	const abits = 17
	dmstatusMismatch := uint32(1) // version field = 1 (0.11), dtmcs said 0.13

	p := &riscvtest.Playback{Ops: []riscvtest.Step{
		// probeDTM: dtmcs version=1(0.13), abits=17, idle=7.
		riscvtest.IRStep(irDTMCS),
		riscvtest.DRStep(32, 0, 0x00007111),
		// dmiHardReset.
		riscvtest.IRStep(irDTMCS),
		riscvtest.DRStep(32, dtmcsDMIHardRst, 0),
		// dmiRead(dmDMStatus): read request, then nop to recover the data.
		riscvtest.IRStep(irDMI),
		dmiDR(abits, packDMI(abits, dmDMStatus, 0, opRead), packDMI(abits, 0, 0, opNoError)),
		riscvtest.IRStep(irDMI),
		dmiDR(abits, packDMI(abits, 0, 0, opNop), packDMI(abits, 0, dmstatusMismatch, opNoError)),
	}}

	_, err := Init(p)
	if err == nil {
		t.Fatal("expected an error for a dtmcs/dmstatus version disagreement")
	}
	te, ok := err.(*TransportError)
	if !ok {
		t.Fatalf("expected *TransportError, got %T: %v", err, err)
	}
	if _, ok := te.Err.(*errVersionMismatch); !ok {
		t.Fatalf("expected *errVersionMismatch, got %T: %v", te.Err, te.Err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestInitNoProgbufUsesAbstractOnlyCSR(t *testing.T) {
	f := riscvtest.NewFakeTarget(17, 7, 0, false, 1)
	target, err := Init(f)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if target.ProgBufSize() != 0 {
		t.Fatalf("ProgBufSize() = %d, want 0", target.ProgBufSize())
	}
	if _, err := target.ReadMem(0); err == nil {
		t.Fatal("expected ReadMem to be unavailable without a program buffer")
	}

	const csr = 0x340
	if err := target.WriteCSR(csr, 7); err != nil {
		t.Fatalf("WriteCSR: %v", err)
	}
	v, err := target.ReadCSR(csr)
	if err != nil {
		t.Fatalf("ReadCSR: %v", err)
	}
	if v != 7 {
		t.Fatalf("ReadCSR() = %d, want 7", v)
	}
}

func TestSetDebugVersionRejectsUnsupported(t *testing.T) {
	f := riscvtest.NewFakeTarget(17, 7, 2, false, 1)
	target, err := Init(f)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := target.SetDebugVersion(Version011); err == nil {
		t.Fatal("expected an error setting debug version 0.11")
	}
	if err := target.SetDebugVersion(Version013); err != nil {
		t.Fatalf("SetDebugVersion(0.13): %v", err)
	}
}

func TestUnrefTearsDownAfterLastReference(t *testing.T) {
	f := riscvtest.NewFakeTarget(17, 7, 2, false, 1)
	target, err := Init(f)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	target.Ref()
	if err := target.Unref(); err != nil {
		t.Fatalf("first Unref: %v", err)
	}
	if target.dtm.isDead() {
		t.Fatal("handle should still be alive after releasing one of two references")
	}
	if err := target.Unref(); err != nil {
		t.Fatalf("second Unref: %v", err)
	}
	if !target.dtm.isDead() {
		t.Fatal("handle should be dead after releasing the last reference")
	}
}
