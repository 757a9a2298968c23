// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package riscvtest implements fakes for package conn/jtag, in the style of
// conn/conntest and conn/spi/spitest's record/playback fakes: no mocking
// library, just a scripted or stateful stand-in for the TAP adapter that
// riscv.DTM drives.
package riscvtest

import (
	"fmt"
	"sync"
)

// Step is one expected TAP operation in a Playback script.
type Step struct {
	// Kind is "ir", "dr" or "tms".
	Kind string

	// "ir" fields.
	IR uint32

	// "dr" fields. TDI, if non-nil, is compared against what the caller
	// shifts in; a mismatch fails the step. Resp is returned as tdo.
	NBits int
	TDI   []byte
	Resp  []byte

	// "tms" fields.
	TMSPattern uint64
	TMSCount   int
}

// DRStep builds a "dr" Step from the DMI payload encoding used throughout
// package riscv: nbits wide, little-endian byte packed. Tests build
// payloads with PackDMI below rather than hand-rolling bytes.
func DRStep(nbits int, tdi, resp uint64) Step {
	return Step{Kind: "dr", NBits: nbits, TDI: packBits(tdi, nbits), Resp: packBits(resp, nbits)}
}

// IRStep builds a "ir" Step expecting the given IR value.
func IRStep(ir uint32) Step { return Step{Kind: "ir", IR: ir} }

// TMSStep builds a "tms" Step.
func TMSStep(pattern uint64, count int) Step {
	return Step{Kind: "tms", TMSPattern: pattern, TMSCount: count}
}

func packBits(v uint64, nbits int) []byte {
	nbytes := (nbits + 7) / 8
	b := make([]byte, nbytes)
	for i := 0; i < nbytes; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
	return b
}

func unpackBits(b []byte, nbits int) uint64 {
	var v uint64
	for i := 0; i < len(b); i++ {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	mask := uint64(1)<<uint(nbits) - 1
	return v & mask
}

// PackDMI re-implements riscv's private DMI payload layout
// ([address:abits][data:32][op:2]) so tests can build expected scan
// payloads without reaching into the unexported riscv package.
func PackDMI(abits uint8, addr, data uint32, op uint8) uint64 {
	return uint64(addr&(1<<abits-1))<<34 | uint64(data)<<2 | uint64(op&0x3)
}

// Playback implements conn/jtag.Adapter and plays back a scripted sequence
// of operations, failing loudly on any deviation. Grounded on
// conn/conntest.Playback.
type Playback struct {
	sync.Mutex
	Ops   []Step
	Count int
}

func (p *Playback) String() string { return "riscvtest.Playback" }

// Close verifies every scripted step was consumed.
func (p *Playback) Close() error {
	p.Lock()
	defer p.Unlock()
	if p.Count != len(p.Ops) {
		return fmt.Errorf("riscvtest: playback not exhausted: %d/%d steps consumed", p.Count, len(p.Ops))
	}
	return nil
}

func (p *Playback) next(kind string) (Step, error) {
	if p.Count >= len(p.Ops) {
		return Step{}, fmt.Errorf("riscvtest: unexpected %s, script exhausted", kind)
	}
	s := p.Ops[p.Count]
	if s.Kind != kind {
		return Step{}, fmt.Errorf("riscvtest: step %d: expected %s, got %s", p.Count, s.Kind, kind)
	}
	p.Count++
	return s, nil
}

// WriteIR implements conn/jtag.Adapter.
func (p *Playback) WriteIR(value uint32) error {
	p.Lock()
	defer p.Unlock()
	s, err := p.next("ir")
	if err != nil {
		return err
	}
	if s.IR != value {
		return fmt.Errorf("riscvtest: step %d: write_ir(0x%x), expected 0x%x", p.Count-1, value, s.IR)
	}
	return nil
}

// ShiftDR implements conn/jtag.Adapter.
func (p *Playback) ShiftDR(tdi, tdo []byte, nbits int) error {
	p.Lock()
	defer p.Unlock()
	s, err := p.next("dr")
	if err != nil {
		return err
	}
	if s.NBits != nbits {
		return fmt.Errorf("riscvtest: step %d: shift_dr(%d bits), expected %d", p.Count-1, nbits, s.NBits)
	}
	if s.TDI != nil && unpackBits(tdi, nbits) != unpackBits(s.TDI, nbits) {
		return fmt.Errorf("riscvtest: step %d: shift_dr tdi=0x%x, expected 0x%x", p.Count-1, unpackBits(tdi, nbits), unpackBits(s.TDI, nbits))
	}
	copy(tdo, s.Resp)
	return nil
}

// TMSSeq implements conn/jtag.Adapter.
func (p *Playback) TMSSeq(pattern uint64, count int) error {
	p.Lock()
	defer p.Unlock()
	s, err := p.next("tms")
	if err != nil {
		return err
	}
	if s.TMSCount != count || s.TMSPattern != pattern {
		return fmt.Errorf("riscvtest: step %d: tms_seq(0x%x,%d), expected (0x%x,%d)", p.Count-1, pattern, count, s.TMSPattern, s.TMSCount)
	}
	return nil
}
