// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscv

import (
	"log"
	"os"
)

// Option configures a DTM at construction time.
//
// conn/spi and conn/i2c favor plain struct configuration over functional
// options; here options exist because the busy-poll bound and logger are
// genuinely optional knobs a caller may want to override, not protocol
// parameters.
type Option func(*DTM)

// WithLogger overrides the default stderr logger.
func WithLogger(l *log.Logger) Option {
	return func(d *DTM) { d.log = l }
}

// WithMaxPoll bounds every busy-poll loop (abstractcs.busy, DMI interrupted
// retry) to at most n iterations before surfacing a TransportError. The
// spec leaves polling unbounded; §5 recommends a configurable bound.
func WithMaxPoll(n int) Option {
	return func(d *DTM) { d.maxPoll = n }
}

const defaultMaxPoll = 10000

func defaultLogger() *log.Logger {
	return log.New(os.Stderr, "riscv: ", log.LstdFlags)
}
