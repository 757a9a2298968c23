// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscv

import (
	"testing"

	"periph.io/x/riscv/riscv/riscvtest"
)

func TestProbeCapabilitiesAbitsTooWide(t *testing.T) {
	d := New(nil)
	d.abits = maxSupportedAbits + 1
	if err := d.probeCapabilities(); err == nil {
		t.Fatal("expected an error for abits exceeding the 64-bit DMI payload cap")
	}
}

func TestProbeCapabilitiesRejectsBadDataCount(t *testing.T) {
	const abits = 17
	d := New(nil)
	d.abits = abits

	p := &riscvtest.Playback{Ops: []riscvtest.Step{
		riscvtest.IRStep(irDMI),
		dmiDR(abits, packDMI(abits, dmAbstractCS, 0, opRead), packDMI(abits, 0, 0, opNoError)),
		riscvtest.IRStep(irDMI),
		dmiDR(abits, packDMI(abits, 0, 0, opNop), packDMI(abits, 0, 0, opNoError)), // datacount=0
	}}
	d.adapter = p

	if err := d.probeCapabilities(); err == nil {
		t.Fatal("expected an error for abstract_data_count=0")
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProbeCapabilitiesProgbufSizeOneRequiresImpebreak(t *testing.T) {
	const abits = 17
	d := New(nil)
	d.abits = abits

	progbufsize1 := uint32(1) << abstractcsProgBufShift
	p := &riscvtest.Playback{Ops: []riscvtest.Step{
		riscvtest.IRStep(irDMI),
		dmiDR(abits, packDMI(abits, dmAbstractCS, 0, opRead), packDMI(abits, 0, 0, opNoError)),
		riscvtest.IRStep(irDMI),
		dmiDR(abits, packDMI(abits, 0, 0, opNop), packDMI(abits, 0, progbufsize1|1, opNoError)),
		// probeAutoexecdata: write pattern, read it back, write zero.
		riscvtest.IRStep(irDMI),
		dmiDR(abits, packDMI(abits, dmAbstractAuto, abstractautoPattern, opWrite), packDMI(abits, 0, 0, opNoError)),
		riscvtest.IRStep(irDMI),
		dmiDR(abits, packDMI(abits, dmAbstractAuto, 0, opRead), packDMI(abits, 0, 0, opNoError)),
		riscvtest.IRStep(irDMI),
		dmiDR(abits, packDMI(abits, 0, 0, opNop), packDMI(abits, 0, abstractautoPattern, opNoError)),
		riscvtest.IRStep(irDMI),
		dmiDR(abits, packDMI(abits, dmAbstractAuto, 0, opWrite), packDMI(abits, 0, 0, opNoError)),
	}}
	d.adapter = p

	// probeImpebreak's heuristic sets impebreak=true exactly when
	// progbuf_size==1, so this combination must succeed, not fault.
	if err := d.probeCapabilities(); err != nil {
		t.Fatalf("probeCapabilities: %v", err)
	}
	if !d.impebreak {
		t.Fatal("expected impebreak=true for progbuf_size=1")
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
