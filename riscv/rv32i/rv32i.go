// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rv32i is a minimal reference RV32I instruction encoder.
//
// riscv.DTM defines riscv.InstructionEncoder and uses this package's
// Encoder as its default, so the Program Buffer path (§4.4) is exercisable
// without a caller having to supply their own encoder. Only the handful of
// instructions the progbuf CSR/memory templates need are implemented:
// csrrs, csrrw, lw, sw, ebreak.
package rv32i

// Encoder is the reference riscv.InstructionEncoder implementation.
type Encoder struct{}

const (
	opcodeSystem = 0x73
	opcodeLoad   = 0x03
	opcodeStore  = 0x23

	funct3CSRRW = 0x1
	funct3CSRRS = 0x2
	funct3LW    = 0x2
	funct3SW    = 0x2
)

// CSRRS encodes `csrrs rd, csr, rs1`: I-type, csr in imm[11:0].
func (Encoder) CSRRS(rd uint8, csr uint16, rs1 uint8) uint32 {
	return iType(uint32(csr), rs1, funct3CSRRS, rd, opcodeSystem)
}

// CSRRW encodes `csrrw rd, csr, rs1`.
func (Encoder) CSRRW(rd uint8, csr uint16, rs1 uint8) uint32 {
	return iType(uint32(csr), rs1, funct3CSRRW, rd, opcodeSystem)
}

// LW encodes `lw rd, offset(rs1)`.
func (Encoder) LW(rd, rs1 uint8, offset int32) uint32 {
	return iType(uint32(offset)&0xFFF, rs1, funct3LW, rd, opcodeLoad)
}

// SW encodes `sw rs2, offset(rs1)`.
func (Encoder) SW(rs2, rs1 uint8, offset int32) uint32 {
	imm := uint32(offset) & 0xFFF
	imm11_5 := (imm >> 5) & 0x7F
	imm4_0 := imm & 0x1F
	return imm11_5<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3SW<<12 | imm4_0<<7 | opcodeStore
}

// EBreak encodes `ebreak`.
func (Encoder) EBreak() uint32 {
	return 0x00100073
}

// iType lays out the standard RV32I I-type instruction word.
func iType(imm12 uint32, rs1, funct3, rd uint8, opcode uint32) uint32 {
	return (imm12&0xFFF)<<20 | uint32(rs1)<<15 | uint32(funct3)<<12 | uint32(rd)<<7 | opcode
}
