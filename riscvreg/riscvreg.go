// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package riscvreg defines a registry of named JTAG adapters usable as a
// RISC-V debug transport, so a driver (a USB-JTAG probe, an FTDI MPSSE
// bitbang driver, a simulator) can be selected by name rather than wired by
// hand, the same way conn/i2c/i2creg and conn/spi/spireg let a bus driver
// register itself for i2creg.Open/spireg.Open.
package riscvreg

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"periph.io/x/riscv/conn/jtag"
)

// Opener opens a handle to a JTAG adapter usable as a RISC-V debug
// transport.
//
// It is provided by the actual adapter driver.
type Opener func() (jtag.Adapter, error)

// Ref references a registered JTAG adapter.
//
// It is returned by All() to enumerate every registered adapter.
type Ref struct {
	// Name of the adapter. It must not be a sole number and must be unique
	// across the host.
	Name string
	// Aliases are the alternative names that can be used to reference this
	// adapter.
	Aliases []string
	// Open is the factory to open a handle to this adapter.
	Open Opener
}

// Open opens a JTAG adapter by its name or an alias and returns a handle to
// it.
//
// Specify the empty string "" to get the first available adapter, sorted by
// name. This is the recommended default unless an application knows the
// exact adapter to use.
func Open(name string) (jtag.Adapter, error) {
	var r *Ref
	var err error
	func() {
		mu.Lock()
		defer mu.Unlock()
		if len(byName) == 0 {
			err = wrapf("no adapter found; did you forget to call Register()?")
			return
		}
		if len(name) == 0 {
			r = getDefault()
			return
		}
		if r = byName[name]; r == nil {
			r = byAlias[name]
		}
	}()
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, wrapf("can't open unknown adapter: %q", name)
	}
	return r.Open()
}

// All returns a copy of all the registered references to every known JTAG
// adapter, sorted by name.
func All() []*Ref {
	mu.Lock()
	defer mu.Unlock()
	out := make(refList, 0, len(byName))
	for _, v := range byName {
		r := &Ref{Name: v.Name, Aliases: make([]string, len(v.Aliases)), Open: v.Open}
		copy(r.Aliases, v.Aliases)
		out = append(out, r)
	}
	sort.Sort(out)
	return out
}

// Register registers a JTAG adapter.
//
// Registering the same adapter name twice is an error.
func Register(name string, aliases []string, o Opener) error {
	if len(name) == 0 {
		return wrapf("can't register an adapter with no name")
	}
	if o == nil {
		return wrapf("can't register adapter %q with nil Opener", name)
	}
	if _, err := strconv.Atoi(name); err == nil {
		return wrapf("can't register adapter %q with name being only a number", name)
	}
	if strings.Contains(name, ":") {
		return wrapf("can't register adapter %q with name containing ':'", name)
	}
	for _, alias := range aliases {
		if len(alias) == 0 {
			return wrapf("can't register adapter %q with an empty alias", name)
		}
		if name == alias {
			return wrapf("can't register adapter %q with an alias the same as its name", name)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if _, ok := byName[name]; ok {
		return wrapf("can't register adapter %q twice", name)
	}
	if _, ok := byAlias[name]; ok {
		return wrapf("can't register adapter %q twice; it is already an alias", name)
	}
	for _, alias := range aliases {
		if _, ok := byName[alias]; ok {
			return wrapf("can't register adapter %q twice; alias %q is already an adapter", name, alias)
		}
		if _, ok := byAlias[alias]; ok {
			return wrapf("can't register adapter %q twice; alias %q is already an alias", name, alias)
		}
	}

	r := &Ref{Name: name, Aliases: make([]string, len(aliases)), Open: o}
	copy(r.Aliases, aliases)
	byName[name] = r
	for _, alias := range aliases {
		byAlias[alias] = r
	}
	return nil
}

// Unregister removes a previously registered JTAG adapter.
func Unregister(name string) error {
	mu.Lock()
	defer mu.Unlock()
	r := byName[name]
	if r == nil {
		return wrapf("can't unregister unknown adapter %q", name)
	}
	delete(byName, name)
	for _, alias := range r.Aliases {
		delete(byAlias, alias)
	}
	return nil
}

var (
	mu      sync.Mutex
	byName  = map[string]*Ref{}
	byAlias = map[string]*Ref{}
)

// getDefault returns the Ref that should be used as the default adapter: the
// lexically first by name.
func getDefault() *Ref {
	var o *Ref
	name := ""
	for n, o2 := range byName {
		if len(name) == 0 || n < name {
			o = o2
			name = n
		}
	}
	return o
}

func wrapf(format string, a ...interface{}) error {
	return fmt.Errorf("riscvreg: "+format, a...)
}

type refList []*Ref

func (r refList) Len() int           { return len(r) }
func (r refList) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
func (r refList) Less(i, j int) bool { return r[i].Name < r[j].Name }
