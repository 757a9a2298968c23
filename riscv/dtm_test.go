// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscv

import (
	"testing"

	"periph.io/x/riscv/riscv/riscvtest"
)

func TestProbeDTMBringUp(t *testing.T) {
	// §8 scenario 1: dtmcs = 0x0000_7111 -> version 1 (0.13), abits 0x11=17,
	// dmistat 0, idle 7.
	p := &riscvtest.Playback{Ops: []riscvtest.Step{
		riscvtest.IRStep(irDTMCS),
		riscvtest.DRStep(32, 0, 0x00007111),
	}}
	d := New(p)
	if err := d.probeDTM(); err != nil {
		t.Fatalf("probeDTM: %v", err)
	}
	if d.version != Version013 {
		t.Fatalf("version = %v, want 0.13", d.version)
	}
	if d.abits != 17 {
		t.Fatalf("abits = %d, want 17", d.abits)
	}
	if d.idle != 7 {
		t.Fatalf("idle = %d, want 7", d.idle)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProbeDTMRejects011(t *testing.T) {
	p := &riscvtest.Playback{Ops: []riscvtest.Step{
		riscvtest.IRStep(irDTMCS),
		riscvtest.DRStep(32, 0, 0x00007110), // version field 0 => 0.11, abits=17, idle=7
	}}
	d := New(p)
	err := d.probeDTM()
	if err == nil {
		t.Fatal("expected an error rejecting debug spec 0.11")
	}
	var te *TransportError
	if !asTransportError(err, &te) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
}

func TestProbeDTMRejectsAbitsOutOfRange(t *testing.T) {
	p := &riscvtest.Playback{Ops: []riscvtest.Step{
		riscvtest.IRStep(irDTMCS),
		riscvtest.DRStep(32, 0, 0x00000001), // abits field 0 -> invalid (<5)
	}}
	d := New(p)
	if err := d.probeDTM(); err == nil {
		t.Fatal("expected an error for abits out of range")
	}
}

func asTransportError(err error, out **TransportError) bool {
	te, ok := err.(*TransportError)
	if ok {
		*out = te
	}
	return ok
}
