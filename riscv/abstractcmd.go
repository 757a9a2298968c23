// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscv

// Abstract Command engine (L3). Submits a command word, polls busy, reads
// cmderr, retries internally on cmderr=busy, and surfaces every other
// nonzero cmderr as an AbstractCommandError (§4.3).

// abstractCmdWord builds the access-register command word.
func abstractCmdWord(aarsize uint8, postIncrement, postexec, transfer, write bool, regno uint16) uint32 {
	w := uint32(cmdTypeAccessRegister) << cmdTypeShift
	w |= uint32(aarsize) << aarsizeShift
	if postIncrement {
		w |= aarPostIncrement
	}
	if postexec {
		w |= postExec
	}
	if transfer {
		w |= transferBit
	}
	if write {
		w |= writeBit
	}
	w |= uint32(regno)
	return w
}

// readAbstractCS reads and decodes abstractcs.
func (d *DTM) readAbstractCS() (datacount uint8, cmderr uint8, busy bool, progbufsize uint8, err error) {
	v, err := d.dmiRead(dmAbstractCS)
	if err != nil {
		return 0, 0, false, 0, err
	}
	datacount = uint8(v & abstractcsDataCountMask)
	cmderr = uint8((v >> abstractcsCmdErrShift) & abstractcsCmdErrMask)
	busy = v&abstractcsBusy != 0
	progbufsize = uint8((v >> abstractcsProgBufShift) & abstractcsProgBufMask)
	return
}

// clearCmdErr writes ones to the cmderr field to acknowledge and clear it.
func (d *DTM) clearCmdErr() error {
	return d.dmiWrite(dmAbstractCS, abstractcsCmdErrMask<<abstractcsCmdErrShift)
}

// submitAbstractCmd writes cmd to abstractcmd, polls busy=0, and
// interprets cmderr per §4.3 step 3: busy(1) retries submission, every
// other nonzero code is cleared and surfaced as AbstractCommandError, op
// is the name used in error messages.
func (d *DTM) submitAbstractCmd(cmd uint32, op string) error {
	for attempt := 0; ; attempt++ {
		if err := d.dmiWrite(dmAbstractCmd, cmd); err != nil {
			return err
		}
		if err := d.pollNotBusy(op); err != nil {
			return err
		}
		_, cmderr, _, _, err := d.readAbstractCS()
		if err != nil {
			return err
		}
		if cmderr == cmderrNone {
			return nil
		}
		if err := d.clearCmdErr(); err != nil {
			return err
		}
		if cmderr == cmderrBusy {
			if attempt >= d.maxPoll {
				return &TransportError{Op: op, Err: errDMIRetryExhausted}
			}
			continue
		}
		return &AbstractCommandError{Code: cmderr, Op: op}
	}
}

// pollNotBusy spins on abstractcs.busy until it clears or maxPoll is hit.
func (d *DTM) pollNotBusy(op string) error {
	for i := 0; i < d.maxPoll; i++ {
		_, _, busy, _, err := d.readAbstractCS()
		if err != nil {
			return err
		}
		if !busy {
			return nil
		}
	}
	return &TransportError{Op: op, Err: errBusyTimeout}
}

// abstractReadRegister reads a single register (CSR or GPR, per regno's
// encoding) via access register with transfer=1, write=0.
func (d *DTM) abstractReadRegister(regno uint16) (uint32, error) {
	cmd := abstractCmdWord(aarsize32, false, false, true, false, regno)
	if err := d.submitAbstractCmd(cmd, "abstract_read_register"); err != nil {
		return 0, err
	}
	return d.dmiRead(dmAbstractData0)
}

// abstractWriteRegister writes a single register via access register with
// transfer=1, write=1; the data word is placed in data0 before submission.
func (d *DTM) abstractWriteRegister(regno uint16, value uint32) error {
	if err := d.dmiWrite(dmAbstractData0, value); err != nil {
		return err
	}
	cmd := abstractCmdWord(aarsize32, false, false, true, true, regno)
	return d.submitAbstractCmd(cmd, "abstract_write_register")
}

// abstractReadRegisterBatch reads count contiguous registers starting at
// regno. When the target supports autoexecdata it batches them per §4.3:
// one command submission with aarpostincrement=1, then count-1 additional
// data0 reads each preceded by a busy poll, then disarms abstractauto.
// Correctness is identical to count independent single reads; this is
// purely an optimization, matched by the fallback branch below.
func (d *DTM) abstractReadRegisterBatch(regno uint16, count int) ([]uint32, error) {
	out := make([]uint32, count)
	if count == 0 {
		return out, nil
	}
	if !d.supportAutoexec || count == 1 {
		for i := 0; i < count; i++ {
			v, err := d.abstractReadRegister(regno + uint16(i))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	if err := d.dmiWrite(dmAbstractAuto, abstractautoPattern); err != nil {
		return nil, err
	}
	defer d.dmiWrite(dmAbstractAuto, 0)

	cmd := abstractCmdWord(aarsize32, true, false, true, false, regno)
	if err := d.submitAbstractCmd(cmd, "abstract_read_register_batch"); err != nil {
		return nil, err
	}
	v, err := d.dmiRead(dmAbstractData0)
	if err != nil {
		return nil, err
	}
	out[0] = v
	for i := 1; i < count; i++ {
		if err := d.pollNotBusy("abstract_read_register_batch"); err != nil {
			return nil, err
		}
		v, err := d.dmiRead(dmAbstractData0)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// abstractWriteRegisterBatch is the write-side counterpart of
// abstractReadRegisterBatch.
func (d *DTM) abstractWriteRegisterBatch(regno uint16, values []uint32) error {
	count := len(values)
	if count == 0 {
		return nil
	}
	if !d.supportAutoexec || count == 1 {
		for i, v := range values {
			if err := d.abstractWriteRegister(regno+uint16(i), v); err != nil {
				return err
			}
		}
		return nil
	}
	if err := d.dmiWrite(dmAbstractAuto, abstractautoPattern); err != nil {
		return err
	}
	defer d.dmiWrite(dmAbstractAuto, 0)

	if err := d.dmiWrite(dmAbstractData0, values[0]); err != nil {
		return err
	}
	cmd := abstractCmdWord(aarsize32, true, false, true, true, regno)
	if err := d.submitAbstractCmd(cmd, "abstract_write_register_batch"); err != nil {
		return err
	}
	for i := 1; i < count; i++ {
		if err := d.dmiWrite(dmAbstractData0, values[i]); err != nil {
			return err
		}
		if err := d.pollNotBusy("abstract_write_register_batch"); err != nil {
			return err
		}
	}
	return nil
}
