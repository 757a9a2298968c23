// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscv

import (
	"testing"

	"periph.io/x/riscv/riscv/riscvtest"
)

// TestDiscoverHarts exercises §8 scenario 3 style hart discovery against a
// stateful simulated Debug Module with three implemented harts.
func TestDiscoverHarts(t *testing.T) {
	f := riscvtest.NewFakeTarget(17, 7, 2, false, 3)
	d := New(f)
	d.abits = 17
	d.idle = 7

	if err := d.discoverHarts(); err != nil {
		t.Fatalf("discoverHarts: %v", err)
	}
	if len(d.harts) != 3 {
		t.Fatalf("len(harts) = %d, want 3", len(d.harts))
	}
	for i, h := range d.harts {
		if h.Index() != uint32(i) {
			t.Fatalf("harts[%d].Index() = %d, want %d", i, h.Index(), i)
		}
	}
	// §9 Open Question resolution: discovery ends with hart 0 selected.
	cur := d.CurrentHart()
	if cur == nil || cur.Index() != 0 {
		t.Fatalf("CurrentHart() = %v, want hart 0", cur)
	}
}

func TestDiscoverHartsNoneFound(t *testing.T) {
	f := riscvtest.NewFakeTarget(17, 7, 2, false, 0)
	d := New(f)
	d.abits = 17
	d.idle = 7

	if err := d.discoverHarts(); err == nil {
		t.Fatal("expected an error when no harts are discovered")
	}
}

func TestSelectHartOutOfRange(t *testing.T) {
	f := riscvtest.NewFakeTarget(17, 7, 2, false, 2)
	d := New(f)
	d.abits = 17
	d.idle = 7
	if err := d.discoverHarts(); err != nil {
		t.Fatalf("discoverHarts: %v", err)
	}
	if err := d.SelectHart(5); err == nil {
		t.Fatal("expected an error selecting an out-of-range hart index")
	}
	if err := d.SelectHart(1); err != nil {
		t.Fatalf("SelectHart(1): %v", err)
	}
	if d.CurrentHart().Index() != 1 {
		t.Fatalf("CurrentHart().Index() = %d, want 1", d.CurrentHart().Index())
	}
}

func TestMHartIDLazyCaching(t *testing.T) {
	f := riscvtest.NewFakeTarget(17, 7, 2, false, 1)
	f.SetCSR(csrMHartID, 0x2a)
	d := New(f)
	d.abits = 17
	d.idle = 7
	if err := d.discoverHarts(); err != nil {
		t.Fatalf("discoverHarts: %v", err)
	}
	h := d.CurrentHart()
	if h.haveID {
		t.Fatal("mhartid must not be populated before first use")
	}
	v, err := h.MHartID()
	if err != nil {
		t.Fatalf("MHartID: %v", err)
	}
	if v != 0x2a {
		t.Fatalf("MHartID() = %d, want 42", v)
	}
	// Mutate the simulated CSR; the cached value must stick.
	f.SetCSR(csrMHartID, 0x99)
	v2, err := h.MHartID()
	if err != nil {
		t.Fatalf("MHartID (cached): %v", err)
	}
	if v2 != 0x2a {
		t.Fatalf("MHartID() cached = %d, want the original 42", v2)
	}
}
