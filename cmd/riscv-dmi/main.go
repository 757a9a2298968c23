// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// riscv-dmi brings up a RISC-V Debug Module over a registered JTAG adapter,
// prints the negotiated capabilities, and optionally reads or writes a CSR
// on the selected hart.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strconv"

	"periph.io/x/riscv/riscv"
	"periph.io/x/riscv/riscvreg"
)

func mainImpl() error {
	adapterName := flag.String("a", "", "JTAG adapter to use")
	hart := flag.Int("hart", 0, "hart index to select")
	csr := flag.Int("csr", -1, "CSR address to read, or to write if -w is given a value")
	write := flag.Int64("w", -1, "value to write to -csr instead of reading it")
	maxPoll := flag.Int("max-poll", 0, "abstractcs.busy / dmi retry bound, 0 for the default")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(ioutil.Discard)
	}
	log.SetFlags(log.Lmicroseconds)

	adapter, err := riscvreg.Open(*adapterName)
	if err != nil {
		return err
	}

	var opts []riscv.Option
	if *maxPoll > 0 {
		opts = append(opts, riscv.WithMaxPoll(*maxPoll))
	}
	t, err := riscv.Init(adapter, opts...)
	if err != nil {
		return err
	}
	defer t.Unref()

	fmt.Printf("debug spec:        %s\n", t.Version())
	fmt.Printf("progbuf size:      %d words\n", t.ProgBufSize())
	fmt.Printf("impebreak:         %t\n", t.ImpEBreak())
	fmt.Printf("abstract datacount: %d\n", t.AbstractDataCount())
	fmt.Printf("autoexecdata:      %t\n", t.SupportsAutoexecData())
	fmt.Printf("harts:             %d\n", len(t.Harts()))

	if *hart != 0 {
		if err := t.SelectHart(*hart); err != nil {
			return err
		}
	}
	for i, h := range t.Harts() {
		id, err := h.MHartID()
		if err != nil {
			return fmt.Errorf("hart %d: mhartid: %w", i, err)
		}
		fmt.Printf("  hart %d: mhartid=0x%x\n", i, id)
	}

	if *csr < 0 {
		return nil
	}
	if *csr > 0xFFF {
		return errors.New("-csr must be a 12-bit CSR address")
	}
	if *write >= 0 {
		return t.WriteCSR(uint16(*csr), uint32(*write))
	}
	v, err := t.ReadCSR(uint16(*csr))
	if err != nil {
		return err
	}
	_, err = fmt.Println(strconv.FormatUint(uint64(v), 16))
	return err
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "riscv-dmi: %s.\n", err)
		os.Exit(1)
	}
}
