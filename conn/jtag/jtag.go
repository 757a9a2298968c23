// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package jtag defines the API to communicate with devices over the JTAG
// protocol.
//
// See https://en.wikipedia.org/wiki/JTAG for background information.
package jtag

import "fmt"

// Adapter is the scan-chain access primitive a JTAG probe exposes.
//
// It is the lowest layer consumed by a debug engine built on top of JTAG;
// this package does not implement it, only declares the contract. A
// concrete adapter drives the physical TAP: IR/DR shifts and TMS sequencing.
//
// Buffers passed to ShiftDR are little-endian bit streams: bit i of the
// stream lives at byte i/8, bit i%8 (LSB first within each byte).
type Adapter interface {
	fmt.Stringer

	// WriteIR places value in the device's instruction register.
	//
	// value must fit the target device's IR width; adapters reject a value
	// that doesn't.
	WriteIR(value uint32) error

	// ShiftDR shifts nbits through the data register.
	//
	// tdi supplies the bits shifted in, tdo receives the bits shifted out;
	// both must hold at least (nbits+7)/8 bytes. tdo may be nil if the
	// response is not needed.
	ShiftDR(tdi []byte, tdo []byte, nbits int) error

	// TMSSeq emits count TMS cycles, taking the bit value from pattern
	// (bit i of pattern drives cycle i, LSB first).
	TMSSeq(pattern uint64, count int) error
}
