// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscvreg

import (
	"testing"

	"periph.io/x/riscv/conn/jtag"
)

type fakeAdapter struct{}

func (fakeAdapter) String() string                           { return "fake" }
func (fakeAdapter) WriteIR(value uint32) error                { return nil }
func (fakeAdapter) ShiftDR(tdi, tdo []byte, nbits int) error   { return nil }
func (fakeAdapter) TMSSeq(pattern uint64, count int) error     { return nil }

func open() (jtag.Adapter, error) { return fakeAdapter{}, nil }

func TestRegisterOpenUnregister(t *testing.T) {
	defer reset()
	if err := Register("probe0", []string{"default"}, open); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := Open(""); err != nil {
		t.Fatalf("Open(\"\"): %v", err)
	}
	if _, err := Open("probe0"); err != nil {
		t.Fatalf("Open(\"probe0\"): %v", err)
	}
	if _, err := Open("default"); err != nil {
		t.Fatalf("Open(\"default\"): %v", err)
	}
	if len(All()) != 1 {
		t.Fatalf("All() = %d entries, want 1", len(All()))
	}
	if err := Unregister("probe0"); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if len(All()) != 0 {
		t.Fatal("expected an empty registry after Unregister")
	}
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	defer reset()
	if err := Register("probe0", nil, open); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := Register("probe0", nil, open); err == nil {
		t.Fatal("expected an error registering the same name twice")
	}
}

func TestRegisterRejectsNumericName(t *testing.T) {
	defer reset()
	if err := Register("1", nil, open); err == nil {
		t.Fatal("expected an error registering a purely numeric name")
	}
}

func TestOpenUnknownFails(t *testing.T) {
	defer reset()
	if err := Register("probe0", nil, open); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := Open("probe1"); err == nil {
		t.Fatal("expected an error opening an unregistered adapter")
	}
}

func reset() {
	mu.Lock()
	defer mu.Unlock()
	byName = map[string]*Ref{}
	byAlias = map[string]*Ref{}
}
