// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscv

// JTAG instruction register values selecting which DTM register a DR scan
// addresses. 0x12-0x17 are reserved by the Debug Spec.
const (
	irIDCode = 0x01
	irDTMCS  = 0x10
	irDMI    = 0x11
	irBypass = 0x1F
)

// Debug Module register addresses (the DMI address space), per §6.
const (
	dmAbstractData0 = 0x04 // .. 0x0F, twelve words
	dmDMControl     = 0x10
	dmDMStatus      = 0x11
	dmHartInfo      = 0x12
	dmHaltSum1      = 0x13
	dmHAWindowSel   = 0x14
	dmHAWindow      = 0x15
	dmAbstractCS    = 0x16
	dmAbstractCmd   = 0x17
	dmAbstractAuto  = 0x18
	dmConfStrPtr0   = 0x19 // .. 0x1C
	dmNextDM        = 0x1D
	dmProgBuf0      = 0x20 // .. 0x2F, sixteen words
	dmAuthData      = 0x30
	dmHaltSum2      = 0x34
	dmHaltSum3      = 0x35
	dmSBCS          = 0x38
	dmSBData0       = 0x3C // .. 0x3F
	dmHaltSum0      = 0x40
)

// dtmcs field layout (32 bits): version[3:0], abits[9:4], dmistat[11:10],
// idle[14:12], dmireset=bit16, dmihardreset=bit17.
const (
	dtmcsVersionMask = 0xF
	dtmcsAbitsShift  = 4
	dtmcsAbitsMask   = 0x3F
	dtmcsIdleShift   = 12
	dtmcsIdleMask    = 0x7
	dtmcsDMIReset    = 1 << 16
	dtmcsDMIHardRst  = 1 << 17
)

// DMI scan op field, the low 2 bits of every {abits+34}-bit DMI payload.
const (
	opNop         = 0
	opRead        = 1
	opWrite       = 2
	opNoError     = 0
	opReserved    = 1
	opFailed      = 2
	opInterrupted = 3
)

// abstractcs field layout: datacount[3:0], cmderr[10:8], busy[12],
// progbufsize[28:24].
const (
	abstractcsDataCountMask  = 0xF
	abstractcsCmdErrShift    = 8
	abstractcsCmdErrMask     = 0x7
	abstractcsBusy           = 1 << 12
	abstractcsProgBufShift   = 24
	abstractcsProgBufMask    = 0x1F
)

// cmderr values from abstractcs.
const (
	cmderrNone         = 0
	cmderrBusy         = 1
	cmderrNotSupported = 2
	cmderrException    = 3
	cmderrHaltResume   = 4
	cmderrBus          = 5
	cmderrOther        = 7
)

// Abstract Command word layout for cmdtype=access register.
const (
	cmdTypeAccessRegister = 0
	cmdTypeShift          = 24

	aarsizeShift = 20
	aarsize32    = 2
	aarsize64    = 3
	aarsize128   = 4

	aarPostIncrement = 1 << 19
	postExec         = 1 << 18
	transferBit      = 1 << 17
	writeBit         = 1 << 16
)

// Register numbering for access register's regno field.
const (
	regnoCSRBase = 0x0000
	regnoGPRBase = 0x1000

	csrMHartID = 0x0F14
	csrMISA    = 0x0301
)

// abstractautoPattern is the magic bit pattern §4.5 specifies probing
// autoexecdata with: write it to the data field of abstractauto, read
// back, and compare.
const abstractautoPattern = 0b101010101010

// dmstatus / dmcontrol bits used by hart discovery (§4.6).
//
// hartsel is a 20-bit logical field split across dmcontrol as hartsello
// (bits [25:16], the low 10 bits of hartsel) and hartselhi (bits [15:6],
// the high 10 bits); dmcontrol.dmactive is bit 0.
const (
	dmstatusVersionMask    = 0xF
	dmstatusAnyNonExistent = 1 << 14

	dmcontrolDMActive    = 1 << 0
	dmcontrolHartSelLoSh = 16
	dmcontrolHartSelHiSh = 6
	hartSelFieldMask     = 0x3FF // 10 bits
	maxHartSel           = 1<<20 - 1
)

// versionFromDMStatus decodes dmstatus.version (0=>no debug support,
// 1=>0.11, 2=>0.13), the encoding §2 has Init cross-check against the
// dtmcs-probed version. This differs from dtmcs.version's own encoding
// (versionFromField), which has no "no debug support" value.
func versionFromDMStatus(f uint32) Version {
	switch f & dmstatusVersionMask {
	case 1:
		return Version011
	case 2:
		return Version013
	default:
		return VersionUnknown
	}
}

// encodeHartSel packs a 20-bit hartsel into dmcontrol's two split fields.
func encodeHartSel(hartsel uint32) uint32 {
	lo := hartsel & hartSelFieldMask
	hi := (hartsel >> 10) & hartSelFieldMask
	return dmcontrolDMActive | lo<<dmcontrolHartSelLoSh | hi<<dmcontrolHartSelHiSh
}

// decodeHartSel extracts the 20-bit hartsel from a dmcontrol readback.
func decodeHartSel(dmcontrol uint32) uint32 {
	lo := (dmcontrol >> dmcontrolHartSelLoSh) & hartSelFieldMask
	hi := (dmcontrol >> dmcontrolHartSelHiSh) & hartSelFieldMask
	return lo | hi<<10
}

// Version is the negotiated Debug Spec version.
type Version int

const (
	VersionUnknown Version = iota
	Version011
	Version013
)

func (v Version) String() string {
	switch v {
	case Version011:
		return "0.11"
	case Version013:
		return "0.13"
	default:
		return "unknown"
	}
}

// versionFromField decodes dtmcs.version (0=>0.11, 1=>0.13, 15=>unknown).
func versionFromField(f uint32) Version {
	switch f & dtmcsVersionMask {
	case 0:
		return Version011
	case 1:
		return Version013
	default:
		return VersionUnknown
	}
}
