// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package riscv

// Program Buffer (L4, §4.4). Upload uploads instruction words; exec backs
// up scratch GPRs, loads arguments, runs the uploaded program via
// postexec, reads results, and restores the scratch GPRs.

// progbufUpload writes words to the program buffer, rejecting an upload
// that doesn't fit. §9's Open Question resolves the precedence ambiguity
// as progbufSize + (impebreak ? 1 : 0): when impebreak, the hardware
// appends an implicit ebreak, so the host gets one extra usable slot.
func (d *DTM) progbufUpload(words []uint32) error {
	extra := 0
	if d.impebreak {
		extra = 1
	}
	if len(words) > int(d.progbufSize)+extra {
		return usageErrorf("program buffer upload of %d words exceeds capacity %d (+%d impebreak)", len(words), d.progbufSize, extra)
	}
	for i, w := range words {
		if err := d.dmiWrite(dmProgBuf0+uint32(i), w); err != nil {
			return err
		}
	}
	return nil
}

// progbufExec runs the uploaded program: backs up x1..x[1+backup), writes
// args into x1..x[1+in_len), executes via postexec, reads results into
// args[0:out_len], then restores the scratch GPRs (§4.4 steps 1-7).
//
// cmderr=none continues normally; any other cmderr is a fault surfaced to
// the caller (§9 Open Question: the source's "return -1 on every cmderr
// including none" is resolved the other way here).
func (d *DTM) progbufExec(hart *Hart, args []uint32, inLen, outLen int) error {
	backupLen := inLen
	if outLen > backupLen {
		backupLen = outLen
	}
	if backupLen > 31 {
		return usageErrorf("progbuf exec needs %d scratch GPRs, only 31 available", backupLen)
	}

	backup, err := d.abstractReadRegisterBatch(regnoGPRBase+1, backupLen)
	if err != nil {
		return err
	}
	copy(hart.scratch[:backupLen], backup)

	if inLen > 0 {
		if err := d.abstractWriteRegisterBatch(regnoGPRBase+1, args[:inLen]); err != nil {
			return err
		}
	}

	cmd := abstractCmdWord(aarsize32, false, true, false, false, regnoGPRBase)
	execErr := d.submitAbstractCmd(cmd, "progbuf_exec")

	if outLen > 0 && execErr == nil {
		out, err := d.abstractReadRegisterBatch(regnoGPRBase+1, outLen)
		if err != nil {
			return err
		}
		copy(args[:outLen], out)
	}

	if restoreErr := d.abstractWriteRegisterBatch(regnoGPRBase+1, hart.scratch[:backupLen]); restoreErr != nil {
		if execErr == nil {
			return restoreErr
		}
	}
	return execErr
}

// progbufReadCSR reads a CSR via an uploaded `csrrs x1, csr, x0` program.
func (d *DTM) progbufReadCSR(hart *Hart, csr uint16) (uint32, error) {
	prog := []uint32{d.encoder.CSRRS(1, csr, 0)}
	if !d.impebreak {
		prog = append(prog, d.encoder.EBreak())
	}
	if err := d.progbufUpload(prog); err != nil {
		return 0, err
	}
	var args [1]uint32
	if err := d.progbufExec(hart, args[:], 0, 1); err != nil {
		return 0, err
	}
	return args[0], nil
}

// progbufWriteCSR writes a CSR via an uploaded `csrrw x0, csr, x1` program;
// the value to write is loaded into x1 as the program's sole input.
func (d *DTM) progbufWriteCSR(hart *Hart, csr uint16, value uint32) error {
	prog := []uint32{d.encoder.CSRRW(0, csr, 1)}
	if !d.impebreak {
		prog = append(prog, d.encoder.EBreak())
	}
	if err := d.progbufUpload(prog); err != nil {
		return err
	}
	args := [1]uint32{value}
	return d.progbufExec(hart, args[:], 1, 0)
}

// progbufReadMem reads one 32-bit word via `lw x2, 0(x1)`: the address is
// loaded into x1 (the designated base-address argument register), the
// loaded word comes back in x2.
func (d *DTM) progbufReadMem(hart *Hart, addr uint32) (uint32, error) {
	prog := []uint32{d.encoder.LW(2, 1, 0)}
	if !d.impebreak {
		prog = append(prog, d.encoder.EBreak())
	}
	if err := d.progbufUpload(prog); err != nil {
		return 0, err
	}
	args := [2]uint32{addr, 0}
	if err := d.progbufExec(hart, args[:], 1, 2); err != nil {
		return 0, err
	}
	return args[1], nil
}

// progbufWriteMem writes one 32-bit word via `sw x2, 0(x1)`: x1 carries
// the address, x2 carries the value.
func (d *DTM) progbufWriteMem(hart *Hart, addr uint32, value uint32) error {
	prog := []uint32{d.encoder.SW(2, 1, 0)}
	if !d.impebreak {
		prog = append(prog, d.encoder.EBreak())
	}
	if err := d.progbufUpload(prog); err != nil {
		return err
	}
	args := [2]uint32{addr, value}
	return d.progbufExec(hart, args[:], 2, 0)
}
