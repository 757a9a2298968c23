// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscv

// DMI engine (L2). A DMI scan payload is abits+34 bits, laid out
// [address:abits][data:32][op:2] MSB-first at the address end. This
// implementation packs the payload into a uint64, which caps abits at 30
// (30+34=64); the 64-bit last_dmi capture kept in DTM.lastDMI implies the
// same cap. abits above 30 is rejected at probe time with a
// TransportError, see probeCapabilities.
const maxSupportedAbits = 30

func packDMI(abits uint8, addr uint32, data uint32, op uint8) uint64 {
	return uint64(addr&((1<<abits)-1))<<34 | uint64(data)<<2 | uint64(op&0x3)
}

func unpackDMIOp(payload uint64) uint8 {
	return uint8(payload & 0x3)
}

func unpackDMIData(payload uint64) uint32 {
	return uint32((payload >> 2) & 0xFFFFFFFF)
}

// dmiBits returns the DR width for this handle's negotiated abits.
func (d *DTM) dmiBits() int {
	return int(d.abits) + 34
}

// shiftDMI shifts one DMI payload through the TAP and returns the
// in-bits as a payload of the same width, IR already set to IR_DMI by the
// caller.
func (d *DTM) shiftDMI(payload uint64, nbits int) (uint64, error) {
	nbytes := (nbits + 7) / 8
	tdi := make([]byte, nbytes)
	tdo := make([]byte, nbytes)
	for i := 0; i < nbytes; i++ {
		tdi[i] = byte(payload >> (8 * uint(i)))
	}
	if err := d.adapter.ShiftDR(tdi, tdo, nbits); err != nil {
		return 0, err
	}
	var out uint64
	for i := 0; i < nbytes; i++ {
		out |= uint64(tdo[i]) << (8 * uint(i))
	}
	mask := uint64(1)<<uint(nbits) - 1
	return out & mask, nil
}

// dmiRawShift shifts one DMI payload, handling IR selection and the
// op-interrupted retry protocol from §4.2. op/addr/data describe the
// request being issued; it returns the response op field and the 32-bit
// data captured in the response (meaningful for reads, which recover the
// value from the following NOP shift, handled by the caller).
func (d *DTM) dmiRawShift(addr uint32, data uint32, op uint8) (respOp uint8, respData uint32, err error) {
	if err := d.adapter.WriteIR(irDMI); err != nil {
		return 0, 0, &TransportError{Op: "dmi write_ir", Err: err}
	}
	nbits := d.dmiBits()
	req := packDMI(d.abits, addr, data, op)

	for attempt := 0; ; attempt++ {
		resp, serr := d.shiftDMI(req, nbits)
		if serr != nil {
			return 0, 0, &TransportError{Op: "dmi shift_dr", Err: serr}
		}
		status := unpackDMIOp(resp)
		switch status {
		case opNoError:
			d.lastDMI = req
			d.haveLast = true
			return status, unpackDMIData(resp), nil
		case opFailed:
			d.markDead()
			d.log.Printf("dmi op=failed at address 0x%x, resetting DMI", addr)
			if rerr := d.dmiReset(); rerr != nil {
				d.log.Printf("dmireset after op=failed: %v", rerr)
			}
			return status, 0, &TransportError{Op: "dmi", Err: errDMIOpFailed}
		case opInterrupted:
			if attempt >= d.maxPoll {
				return status, 0, &TransportError{Op: "dmi", Err: errDMIRetryExhausted}
			}
			if err := d.interruptedRetry(); err != nil {
				return 0, 0, err
			}
			// Re-drive the original request (not the replayed last_dmi;
			// interruptedRetry already re-shifted last_dmi to clear the
			// target's pending op per §4.2 steps 1-2).
			continue
		default: // reserved
			return status, 0, &TransportError{Op: "dmi", Err: errDMIReservedOp}
		}
	}
}

// interruptedRetry implements the op-interrupted recovery protocol (§4.2):
// issue a soft dmireset, restore IR to DMI, re-shift the last committed
// payload so the target's dropped request is re-played, then spend
// idle-1 extra Run-Test/Idle cycles before the caller retries.
func (d *DTM) interruptedRetry() error {
	if err := d.dmiReset(); err != nil {
		return err
	}
	if err := d.adapter.WriteIR(irDMI); err != nil {
		return &TransportError{Op: "dmi write_ir", Err: err}
	}
	if d.haveLast {
		if _, err := d.shiftDMI(d.lastDMI, d.dmiBits()); err != nil {
			return &TransportError{Op: "dmi replay", Err: err}
		}
	}
	if d.idle >= 2 {
		if err := d.adapter.TMSSeq(0, int(d.idle)-1); err != nil {
			return &TransportError{Op: "dmi idle", Err: err}
		}
	}
	return nil
}

// dmiWrite writes data to a DMI register, retrying internally on
// op-interrupted and surfacing op-failed as a TransportError.
func (d *DTM) dmiWrite(addr uint32, data uint32) error {
	if d.isDead() {
		return &TransportError{Op: "dmi_write", Err: errHandleDead}
	}
	_, _, err := d.dmiRawShift(addr, data, opWrite)
	return err
}

// dmiRead reads a DMI register: a READ-op shift addressed to addr, then a
// NOP shift whose returned data bits are the read value (§4.2).
func (d *DTM) dmiRead(addr uint32) (uint32, error) {
	if d.isDead() {
		return 0, &TransportError{Op: "dmi_read", Err: errHandleDead}
	}
	if _, _, err := d.dmiRawShift(addr, 0, opRead); err != nil {
		return 0, err
	}
	_, data, err := d.dmiRawShift(0, 0, opNop)
	if err != nil {
		return 0, err
	}
	return data, nil
}
