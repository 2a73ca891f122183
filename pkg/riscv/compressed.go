package riscv

// expandCompressed turns a 16-bit RVC instruction into the RV32I/RV64I
// encoding it's equivalent to, so the rest of the core never needs a
// separate compressed execute path. ok is false for any compressed form
// this core doesn't decode (reserved encodings, or extensions out of
// scope); callers treat that as an illegal instruction.
func expandCompressed(c uint16) (insn uint32, ok bool) {
	quadrant := c & 0x3
	funct3 := (c >> 13) & 0x7

	rdRs1 := func() uint32 { return uint32((c >> 7) & 0x1f) }
	rs2 := func() uint32 { return uint32((c >> 2) & 0x1f) }
	// 3-bit "compressed" register fields only reach x8..x15.
	crs1p := func() uint32 { return uint32((c>>7)&0x7) + 8 }
	crs2p := func() uint32 { return uint32((c>>2)&0x7) + 8 }
	rdp := crs1p

	encR := func(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
		return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
	}
	encI := func(imm uint32, rs1, funct3, rd, opcode uint32) uint32 {
		return imm<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
	}
	encS := func(imm uint32, rs2, rs1, funct3, opcode uint32) uint32 {
		lo, hi := imm&0x1f, (imm>>5)&0x7f
		return hi<<25 | rs2<<20 | rs1<<15 | funct3<<12 | lo<<7 | opcode
	}
	encU := func(imm uint32, rd, opcode uint32) uint32 {
		return (imm & 0xfffff000) | rd<<7 | opcode
	}
	encB := func(simm int32, rs2, rs1, funct3, opcode uint32) uint32 {
		imm := uint32(simm)
		b12 := (imm >> 12) & 1
		b105 := (imm >> 5) & 0x3f
		b41 := (imm >> 1) & 0xf
		b11 := (imm >> 11) & 1
		return b12<<31 | b105<<25 | rs2<<20 | rs1<<15 | funct3<<12 | b41<<8 | b11<<7 | opcode
	}
	encJ := func(simm int32, rd, opcode uint32) uint32 {
		imm := uint32(simm)
		b20 := (imm >> 20) & 1
		b101 := (imm >> 1) & 0x3ff
		b11 := (imm >> 11) & 1
		b1912 := (imm >> 12) & 0xff
		return b20<<31 | b101<<21 | b11<<20 | b1912<<12 | rd<<7 | opcode
	}

	switch quadrant {
	case 0b00:
		switch funct3 {
		case 0b000: // C.ADDI4SPN
			nzuimm := uint32((c>>7)&0x30 | (c>>1)&0x3c0 | (c>>4)&0x4 | (c>>2)&0x8)
			if nzuimm == 0 {
				return 0, false
			}
			return encI(nzuimm, 2, 0, rdp(), opOpImm), true
		case 0b010: // C.LW
			off := uint32((c>>4)&0x4 | (c>>7)&0x38 | (c<<1)&0x40)
			return encI(off, crs1p(), 0b010, rdp(), opLoad), true
		case 0b011: // C.LD
			off := uint32((c>>7)&0x38 | (c<<1)&0xc0)
			return encI(off, crs1p(), 0b011, rdp(), opLoad), true
		case 0b110: // C.SW
			off := uint32((c>>4)&0x4 | (c>>7)&0x38 | (c<<1)&0x40)
			return encS(off, crs2p(), crs1p(), 0b010, opStore), true
		case 0b111: // C.SD
			off := uint32((c>>7)&0x38 | (c<<1)&0xc0)
			return encS(off, crs2p(), crs1p(), 0b011, opStore), true
		}
		return 0, false

	case 0b01:
		switch funct3 {
		case 0b000: // C.ADDI (incl. C.NOP)
			imm := signExtend(uint64((c>>7)&0x20|(c>>2)&0x1f), 6)
			return encI(uint32(imm)&0xfff, rdRs1(), 0, rdRs1(), opOpImm), true
		case 0b001: // C.ADDIW
			imm := signExtend(uint64((c>>7)&0x20|(c>>2)&0x1f), 6)
			if rdRs1() == 0 {
				return 0, false
			}
			return encI(uint32(imm)&0xfff, rdRs1(), 0, rdRs1(), opOpImm32), true
		case 0b010: // C.LI
			imm := signExtend(uint64((c>>7)&0x20|(c>>2)&0x1f), 6)
			return encI(uint32(imm)&0xfff, 0, 0, rdRs1(), opOpImm), true
		case 0b011:
			if rdRs1() == 2 { // C.ADDI16SP
				u := uint32((c>>3)&0x200 | (c>>2)&0x10 | (c<<1)&0x40 | (c<<4)&0x180 | (c<<3)&0x20)
				simm := signExtend(uint64(u), 10)
				return encI(uint32(simm)&0xfff, 2, 0, 2, opOpImm), true
			}
			// C.LUI
			u := uint32((c>>7)&0x20 | (c>>2)&0x1f)
			simm := signExtend(uint64(u), 6)
			if simm == 0 {
				return 0, false
			}
			return encU(uint32(simm)<<12, rdRs1(), opLui), true
		case 0b100:
			fn2 := (c >> 10) & 0x3
			switch fn2 {
			case 0b00: // C.SRLI
				sh := uint32((c>>7)&0x20 | (c>>2)&0x1f)
				return encI(sh, crs1p(), 0b101, crs1p(), opOpImm), true
			case 0b01: // C.SRAI
				sh := uint32((c>>7)&0x20 | (c>>2)&0x1f)
				return encI(1<<10|sh, crs1p(), 0b101, crs1p(), opOpImm), true
			case 0b10: // C.ANDI
				imm := signExtend(uint64((c>>7)&0x20|(c>>2)&0x1f), 6)
				return encI(uint32(imm)&0xfff, crs1p(), 0b111, crs1p(), opOpImm), true
			case 0b11:
				fn1 := (c >> 12) & 1
				fn2b := (c >> 5) & 0x3
				if fn1 == 0 {
					switch fn2b {
					case 0b00: // C.SUB
						return encR(0b0100000, crs2p(), crs1p(), 0, crs1p(), opOp), true
					case 0b01: // C.XOR
						return encR(0, crs2p(), crs1p(), 0b100, crs1p(), opOp), true
					case 0b10: // C.OR
						return encR(0, crs2p(), crs1p(), 0b110, crs1p(), opOp), true
					case 0b11: // C.AND
						return encR(0, crs2p(), crs1p(), 0b111, crs1p(), opOp), true
					}
				} else {
					switch fn2b {
					case 0b00: // C.SUBW
						return encR(0b0100000, crs2p(), crs1p(), 0, crs1p(), opOp32), true
					case 0b01: // C.ADDW
						return encR(0, crs2p(), crs1p(), 0, crs1p(), opOp32), true
					}
				}
			}
			return 0, false
		case 0b101: // C.J
			off := decodeCJOffset(c)
			return encJ(off, 0, opJal), true
		case 0b110: // C.BEQZ
			off := decodeCBOffset(c)
			return encB(off, 0, crs1p(), 0b000, opBranch), true
		case 0b111: // C.BNEZ
			off := decodeCBOffset(c)
			return encB(off, 0, crs1p(), 0b001, opBranch), true
		}
		return 0, false

	case 0b10:
		switch funct3 {
		case 0b000: // C.SLLI
			sh := uint32((c>>7)&0x20 | (c>>2)&0x1f)
			return encI(sh, rdRs1(), 0b001, rdRs1(), opOpImm), true
		case 0b010: // C.LWSP
			off := uint32((c>>7)&0x20 | (c>>2)&0x1c | (c<<4)&0xc0)
			if rdRs1() == 0 {
				return 0, false
			}
			return encI(off, 2, 0b010, rdRs1(), opLoad), true
		case 0b011: // C.LDSP
			off := uint32((c>>7)&0x20 | (c>>2)&0x18 | (c<<4)&0x1c0)
			if rdRs1() == 0 {
				return 0, false
			}
			return encI(off, 2, 0b011, rdRs1(), opLoad), true
		case 0b100:
			bit12 := (c >> 12) & 1
			if bit12 == 0 {
				if rs2() == 0 { // C.JR
					if rdRs1() == 0 {
						return 0, false
					}
					return encI(0, rdRs1(), 0, 0, opJalr), true
				}
				// C.MV
				return encR(0, rs2(), 0, 0, rdRs1(), opOp), true
			}
			if rs2() == 0 {
				if rdRs1() == 0 { // C.EBREAK
					return encI(1, 0, 0, 0, opSystem), true
				}
				// C.JALR
				return encI(0, rdRs1(), 0, 1, opJalr), true
			}
			// C.ADD
			return encR(0, rs2(), rdRs1(), 0, rdRs1(), opOp), true
		case 0b110: // C.SWSP
			off := uint32((c>>7)&0x3c | (c>>1)&0xc0)
			return encS(off, rs2(), 2, 0b010, opStore), true
		case 0b111: // C.SDSP
			off := uint32((c>>7)&0x38 | (c>>1)&0x1c0)
			return encS(off, rs2(), 2, 0b011, opStore), true
		}
		return 0, false
	}
	return 0, false
}

func decodeCJOffset(c uint16) int32 {
	u := uint32((c>>1)&0x800 | (c>>7)&0x10 | (c>>1)&0x300 | (c<<2)&0x400 |
		(c>>1)&0x40 | (c<<1)&0x80 | (c>>2)&0xe | (c<<3)&0x20)
	return int32(signExtend(uint64(u), 12))
}

func decodeCBOffset(c uint16) int32 {
	u := uint32((c>>4)&0x100 | (c>>7)&0x18 | (c<<1)&0xc0 | (c>>2)&0x6 | (c<<3)&0x20)
	return int32(signExtend(uint64(u), 9))
}
