// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscv

import (
	"errors"
	"fmt"
)

// errUnsupportedVersion011 is returned when dtmcs reports Debug Spec 0.11,
// which this module does not support (§1 Non-goals).
var errUnsupportedVersion011 = errors.New("debug spec 0.11 is not supported, only 0.13")

var (
	errDMIOpFailed       = errors.New("dmi op=failed, resetting DMI")
	errDMIRetryExhausted = errors.New("dmi op=interrupted retry bound exceeded")
	errDMIReservedOp     = errors.New("dmi response op field is reserved (1)")
	errHandleDead        = errors.New("handle is dead after a prior transport error")
	errNotAuthenticated  = errors.New("debug module reports not authenticated")
	errBusyTimeout       = errors.New("abstractcs.busy did not clear within the poll bound")
	errNoHarts               = errors.New("hart discovery found no harts")
	errCapabilityUnavailable = errors.New("target does not support this capability")
)

// errVersionMismatch is returned when dmstatus.version disagrees with the
// debug spec version dtmcs already reported (§2 "cross-checks version").
type errVersionMismatch struct {
	dtmcs, dmstatus Version
}

func (e *errVersionMismatch) Error() string {
	return fmt.Sprintf("dtmcs reported debug spec %s but dmstatus reports %s", e.dtmcs, e.dmstatus)
}

// TransportError is a TAP/DMI level fault: op-failed, an unauthenticated
// Debug Module, or a capability value outside its valid range at init.
//
// It is fatal for the current session: the handle stays alive but every
// further operation on it fails until the caller re-inits.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("riscv: transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AbstractCommandError is a nonzero cmderr surfaced from the Abstract
// Command engine, per the cmderr encoding in abstractcs.
//
// It is recoverable at the session level: the engine clears cmderr before
// returning this, so the caller may submit further commands.
type AbstractCommandError struct {
	// Code is the raw cmderr value (2=not-supported, 3=exception,
	// 4=halt-resume, 5=bus, 7=other).
	Code uint8
	Op   string
}

func (e *AbstractCommandError) Error() string {
	return fmt.Sprintf("riscv: abstract command error during %s: %s (cmderr=%d)", e.Op, cmderrName(e.Code), e.Code)
}

func cmderrName(code uint8) string {
	switch code {
	case cmderrNone:
		return "none"
	case cmderrBusy:
		return "busy"
	case cmderrNotSupported:
		return "not-supported"
	case cmderrException:
		return "exception"
	case cmderrHaltResume:
		return "halt-resume"
	case cmderrBus:
		return "bus"
	case cmderrOther:
		return "other"
	default:
		return "reserved"
	}
}

// UsageError is a caller-visible precondition violation: a program buffer
// too large for the target, too many progbuf-exec arguments, an
// unsupported debug version, an out-of-range hart index, and similar.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return "riscv: " + e.Msg }

func usageErrorf(format string, args ...interface{}) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}
