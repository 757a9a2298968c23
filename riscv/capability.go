// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscv

// Capability negotiation and access-strategy selection (L4, §4.5).

// probeCapabilities reads abstractcs, validates the ranges the data model
// requires, installs the progbuf-based or abstract-only CSR/memory
// operation table entries, and probes autoexecdata support.
func (d *DTM) probeCapabilities() error {
	if d.abits > maxSupportedAbits {
		return &TransportError{Op: "probe_capabilities", Err: usageErrorf("abits %d exceeds this implementation's 64-bit DMI payload cap of %d", d.abits, maxSupportedAbits)}
	}

	datacount, _, _, progbufsize, err := d.readAbstractCS()
	if err != nil {
		return err
	}
	if datacount < 1 || datacount > 12 {
		return &TransportError{Op: "probe_capabilities", Err: usageErrorf("abstract_data_count %d out of range [1,12]", datacount)}
	}
	if progbufsize > 16 {
		return &TransportError{Op: "probe_capabilities", Err: usageErrorf("progbuf_size %d out of range [0,16]", progbufsize)}
	}
	d.abstractDataCount = datacount
	d.progbufSize = progbufsize

	if err := d.probeImpebreak(); err != nil {
		return err
	}
	if d.progbufSize == 1 && !d.impebreak {
		return &TransportError{Op: "probe_capabilities", Err: usageErrorf("progbuf_size=1 requires impebreak (spec invariant)")}
	}

	if err := d.probeAutoexecdata(); err != nil {
		return err
	}

	d.installAccessStrategy()
	return nil
}

// probeImpebreak determines whether the target appends an implicit ebreak
// to the program buffer. There is no dedicated register bit for this in
// the layout this module tracks explicitly (hartinfo.dataaccess carries
// related info on real silicon), so this does not probe the wire at all;
// it derives the only value the invariant in §3 pins down and otherwise
// defaults conservatively.
//
// progbuf_size == 1 forces impebreak == true: a one-word progbuf with no
// room for a host-appended ebreak is only usable if the target supplies
// one itself, and §3 requires exactly that combination to be valid.
// progbuf_size >= 2 always has room for the host to append its own ebreak,
// so assuming impebreak == false there is always safe, merely pessimistic
// about slot usage, never incorrect: every progbuf.go template appends its
// own ebreak whenever d.impebreak is false, so an actual implicit ebreak on
// such a target only costs one redundant, harmless instruction.
func (d *DTM) probeImpebreak() error {
	d.impebreak = d.progbufSize == 1
	return nil
}

// probeAutoexecdata implements §4.5 step 3: write the magic pattern to
// abstractauto's data field, read back, and compare; set
// support_autoexecdata accordingly, then write zero regardless of outcome.
func (d *DTM) probeAutoexecdata() error {
	if err := d.dmiWrite(dmAbstractAuto, abstractautoPattern); err != nil {
		return err
	}
	readback, err := d.dmiRead(dmAbstractAuto)
	if err != nil {
		return err
	}
	d.supportAutoexec = readback == abstractautoPattern
	return d.dmiWrite(dmAbstractAuto, 0)
}

// installAccessStrategy picks the CSR/memory implementation per §4.5
// step 2: progbuf when available (progbuf_size>=1), else abstract-only
// (CSR via access_register with a CSR regno; memory access_memory is not
// modeled by this module per the SBA/access_memory Non-goal, so the
// abstract-only memory entries are left unset when there's no progbuf).
func (d *DTM) installAccessStrategy() {
	if d.progbufSize >= 1 {
		d.readCSR = func(csr uint16) (uint32, error) { return d.progbufReadCSR(d.CurrentHart(), csr) }
		d.writeCSR = func(csr uint16, v uint32) error { return d.progbufWriteCSR(d.CurrentHart(), csr, v) }
		d.readMem = func(addr uint32) (uint32, error) { return d.progbufReadMem(d.CurrentHart(), addr) }
		d.writeMem = func(addr uint32, v uint32) error { return d.progbufWriteMem(d.CurrentHart(), addr, v) }
		return
	}
	d.readCSR = func(csr uint16) (uint32, error) { return d.abstractReadRegister(regnoCSRBase | csr) }
	d.writeCSR = func(csr uint16, v uint32) error { return d.abstractWriteRegister(regnoCSRBase|csr, v) }
	d.readMem = nil
	d.writeMem = nil
}
