// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscv

import (
	"testing"

	"periph.io/x/riscv/riscv/riscvtest"
)

func TestProgbufUploadPrecedence(t *testing.T) {
	// §9 Open Question resolution: capacity is progbufSize + (impebreak?1:0).
	// Accepted uploads are written over DMI, so the DTMs need a live adapter.
	d := New(riscvtest.NewFakeTarget(17, 7, 2, false, 1))
	d.abits = 17
	d.progbufSize = 2
	d.impebreak = false
	if err := d.progbufUpload(make([]uint32, 2)); err != nil {
		t.Fatalf("2 words into a 2-word buffer: %v", err)
	}
	if err := d.progbufUpload(make([]uint32, 3)); err == nil {
		t.Fatal("expected an error: 3 words exceeds a 2-word buffer with no impebreak")
	}

	d2 := New(riscvtest.NewFakeTarget(17, 7, 2, true, 1))
	d2.abits = 17
	d2.progbufSize = 2
	d2.impebreak = true
	if err := d2.progbufUpload(make([]uint32, 3)); err != nil {
		t.Fatalf("3 words into a 2-word buffer +1 impebreak slot: %v", err)
	}
	if err := d2.progbufUpload(make([]uint32, 4)); err == nil {
		t.Fatal("expected an error: 4 words exceeds 2+1")
	}
}

func TestProgbufExecTooManyScratchRegs(t *testing.T) {
	d := New(nil)
	args := make([]uint32, 32)
	err := d.progbufExec(&Hart{}, args, 32, 0)
	if err == nil {
		t.Fatal("expected an error: 32 scratch registers exceeds the 31 available")
	}
}
