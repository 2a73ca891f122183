package riscv

import (
	"math/bits"

	"rvfuzz/pkg/mmu"
)

// StopReason tells the caller (normally pkg/linuxemu's run loop) why Step
// returned control instead of continuing to the next instruction.
type StopReason int

const (
	StopNone StopReason = iota
	StopSyscall
	StopBreakpoint
)

// execute decodes and runs one already-fetched 32-bit instruction word.
// It never advances PC for straight-line instructions; Step does that.
// Branches, jumps, and ecall/ebreak set c.Regs.PC or return a StopReason
// explicitly.
func (c *Core) execute(insn uint32) (StopReason, error) {
	switch opcode(insn) {
	case opLui:
		c.Regs.WriteX(rd(insn), uint64(immU(insn)))
	case opAuipc:
		c.Regs.WriteX(rd(insn), c.Regs.PC+uint64(immU(insn)))
	case opJal:
		target := uint64(int64(c.Regs.PC) + immJ(insn))
		c.Regs.WriteX(rd(insn), c.Regs.PC+4)
		c.Regs.PC = target
	case opJalr:
		if funct3(insn) != 0 {
			return StopNone, &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
		}
		target := (uint64(int64(c.Regs.ReadX(rs1(insn)))+immI(insn)) &^ 1)
		c.Regs.WriteX(rd(insn), c.Regs.PC+4)
		c.Regs.PC = target
	case opBranch:
		return StopNone, c.execBranch(insn)
	case opLoad:
		return StopNone, c.execLoad(insn)
	case opStore:
		return StopNone, c.execStore(insn)
	case opOpImm:
		if f3, hi := funct3(insn), insn>>26; (f3 == 0b001 && hi != 0) || (f3 == 0b101 && hi != 0 && hi != 0b010000) {
			return StopNone, &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
		}
		c.execOpImm(insn)
	case opOpImm32:
		if f3, f7 := funct3(insn), funct7(insn); !(f3 == 0b000 || (f3 == 0b001 && f7 == 0) || (f3 == 0b101 && (f7 == 0 || f7 == 0b0100000))) {
			return StopNone, &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
		}
		c.execOpImm32(insn)
	case opOp:
		return StopNone, c.execOp(insn)
	case opOp32:
		return StopNone, c.execOp32(insn)
	case opMiscMem:
		// FENCE and FENCE.I: this core executes one hart with no
		// pipeline or cache to synchronize, so both are no-ops.
	case opSystem:
		return c.execSystem(insn)
	case opAMO:
		return StopNone, c.execAMO(insn)
	default:
		return StopNone, &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
	}
	return StopNone, nil
}

func (c *Core) execBranch(insn uint32) error {
	r1, r2 := c.Regs.ReadX(rs1(insn)), c.Regs.ReadX(rs2(insn))
	var taken bool
	switch funct3(insn) {
	case 0b000:
		taken = r1 == r2
	case 0b001:
		taken = r1 != r2
	case 0b100:
		taken = int64(r1) < int64(r2)
	case 0b101:
		taken = int64(r1) >= int64(r2)
	case 0b110:
		taken = r1 < r2
	case 0b111:
		taken = r1 >= r2
	default:
		return &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
	}
	if taken {
		c.Regs.PC = uint64(int64(c.Regs.PC) + immB(insn))
	}
	return nil
}

func (c *Core) execLoad(insn uint32) error {
	addr := mmu.VirtAddr(uint64(int64(c.Regs.ReadX(rs1(insn))) + immI(insn)))
	var val uint64
	var err error
	switch funct3(insn) {
	case 0b000:
		var v uint8
		v, err = mmu.MmuRead[uint8](c.Mmu, addr)
		val = uint64(int8(v))
	case 0b001:
		var v uint16
		v, err = mmu.MmuRead[uint16](c.Mmu, addr)
		val = uint64(int16(v))
	case 0b010:
		var v uint32
		v, err = mmu.MmuRead[uint32](c.Mmu, addr)
		val = uint64(int32(v))
	case 0b011:
		val, err = mmu.MmuRead[uint64](c.Mmu, addr)
	case 0b100:
		var v uint8
		v, err = mmu.MmuRead[uint8](c.Mmu, addr)
		val = uint64(v)
	case 0b101:
		var v uint16
		v, err = mmu.MmuRead[uint16](c.Mmu, addr)
		val = uint64(v)
	case 0b110:
		var v uint32
		v, err = mmu.MmuRead[uint32](c.Mmu, addr)
		val = uint64(v)
	default:
		return &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
	}
	if err != nil {
		return err
	}
	c.Regs.WriteX(rd(insn), val)
	return nil
}

func (c *Core) execStore(insn uint32) error {
	addr := mmu.VirtAddr(uint64(int64(c.Regs.ReadX(rs1(insn))) + immS(insn)))
	val := c.Regs.ReadX(rs2(insn))
	switch funct3(insn) {
	case 0b000:
		return mmu.MmuWrite[uint8](c.Mmu, addr, uint8(val))
	case 0b001:
		return mmu.MmuWrite[uint16](c.Mmu, addr, uint16(val))
	case 0b010:
		return mmu.MmuWrite[uint32](c.Mmu, addr, uint32(val))
	case 0b011:
		return mmu.MmuWrite[uint64](c.Mmu, addr, val)
	default:
		return &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
	}
}

func (c *Core) execOpImm(insn uint32) {
	r1 := c.Regs.ReadX(rs1(insn))
	imm := immI(insn)
	var val uint64
	switch funct3(insn) {
	case 0b000:
		val = uint64(int64(r1) + imm)
	case 0b001:
		val = r1 << shamt(insn)
	case 0b010:
		if int64(r1) < imm {
			val = 1
		}
	case 0b011:
		if r1 < uint64(imm) {
			val = 1
		}
	case 0b100:
		val = r1 ^ uint64(imm)
	case 0b101:
		if (insn>>30)&1 == 1 {
			val = uint64(int64(r1) >> shamt(insn))
		} else {
			val = r1 >> shamt(insn)
		}
	case 0b110:
		val = r1 | uint64(imm)
	case 0b111:
		val = r1 & uint64(imm)
	}
	c.Regs.WriteX(rd(insn), val)
}

func (c *Core) execOpImm32(insn uint32) {
	r1 := uint32(c.Regs.ReadX(rs1(insn)))
	imm := int32(immI(insn))
	sh := shamt32(insn)
	var val int32
	switch funct3(insn) {
	case 0b000:
		val = int32(r1) + imm
	case 0b001:
		val = int32(r1 << sh)
	case 0b101:
		if (insn>>30)&1 == 1 {
			val = int32(r1) >> sh
		} else {
			val = int32(r1 >> sh)
		}
	}
	c.Regs.WriteX(rd(insn), uint64(val))
}

func (c *Core) execOp(insn uint32) error {
	r1, r2 := c.Regs.ReadX(rs1(insn)), c.Regs.ReadX(rs2(insn))
	f3, f7 := funct3(insn), funct7(insn)
	if f7 == 0b0000001 {
		c.Regs.WriteX(rd(insn), mulDivRV64(r1, r2, f3))
		return nil
	}
	if f7 != 0 && !(f7 == 0b0100000 && (f3 == 0b000 || f3 == 0b101)) {
		return &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
	}
	var val uint64
	switch f3 {
	case 0b000:
		if f7 == 0b0100000 {
			val = uint64(int64(r1) - int64(r2))
		} else {
			val = uint64(int64(r1) + int64(r2))
		}
	case 0b001:
		val = r1 << (r2 & 0x3f)
	case 0b010:
		if int64(r1) < int64(r2) {
			val = 1
		}
	case 0b011:
		if r1 < r2 {
			val = 1
		}
	case 0b100:
		val = r1 ^ r2
	case 0b101:
		if f7 == 0b0100000 {
			val = uint64(int64(r1) >> (r2 & 0x3f))
		} else {
			val = r1 >> (r2 & 0x3f)
		}
	case 0b110:
		val = r1 | r2
	case 0b111:
		val = r1 & r2
	default:
		return &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
	}
	c.Regs.WriteX(rd(insn), val)
	return nil
}

func (c *Core) execOp32(insn uint32) error {
	r1, r2 := uint32(c.Regs.ReadX(rs1(insn))), uint32(c.Regs.ReadX(rs2(insn)))
	f3, f7 := funct3(insn), funct7(insn)
	if f7 == 0b0000001 {
		if f3 == 0b001 || f3 == 0b010 || f3 == 0b011 {
			return &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
		}
		c.Regs.WriteX(rd(insn), uint64(int32(mulDivRV32(r1, r2, f3))))
		return nil
	}
	if f7 != 0 && !(f7 == 0b0100000 && (f3 == 0b000 || f3 == 0b101)) {
		return &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
	}
	var val int32
	switch f3 {
	case 0b000:
		if f7 == 0b0100000 {
			val = int32(r1) - int32(r2)
		} else {
			val = int32(r1) + int32(r2)
		}
	case 0b001:
		val = int32(r1 << (r2 & 0x1f))
	case 0b101:
		if f7 == 0b0100000 {
			val = int32(r1) >> (r2 & 0x1f)
		} else {
			val = int32(r1 >> (r2 & 0x1f))
		}
	default:
		return &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
	}
	c.Regs.WriteX(rd(insn), uint64(val))
	return nil
}

func (c *Core) execSystem(insn uint32) (StopReason, error) {
	if funct3(insn) != 0 || rd(insn) != 0 || rs1(insn) != 0 {
		// CSR instructions (funct3 != 0) are out of scope: this core has
		// no CSR file, and the guest programs this fuzzer targets don't
		// need one.
		return StopNone, &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
	}
	switch insn >> 20 {
	case 0x0: // ECALL
		return StopSyscall, nil
	case 0x1: // EBREAK
		return StopBreakpoint, nil
	default:
		return StopNone, &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
	}
}

func mulDivRV64(r1, r2 uint64, f3 uint32) uint64 {
	switch f3 {
	case 0b000: // MUL
		return uint64(int64(r1) * int64(r2))
	case 0b001: // MULH
		return uint64(mulh(int64(r1), int64(r2)))
	case 0b010: // MULHSU
		return mulhsu(int64(r1), r2)
	case 0b011: // MULHU
		hi, _ := bits.Mul64(r1, r2)
		return hi
	case 0b100: // DIV
		if r2 == 0 {
			return ^uint64(0)
		}
		if r1 == 1<<63 && r2 == ^uint64(0) {
			return r1
		}
		return uint64(int64(r1) / int64(r2))
	case 0b101: // DIVU
		if r2 == 0 {
			return ^uint64(0)
		}
		return r1 / r2
	case 0b110: // REM
		if r2 == 0 {
			return r1
		}
		if r1 == 1<<63 && r2 == ^uint64(0) {
			return 0
		}
		return uint64(int64(r1) % int64(r2))
	case 0b111: // REMU
		if r2 == 0 {
			return r1
		}
		return r1 % r2
	}
	return 0
}

func mulDivRV32(r1, r2 uint32, f3 uint32) int32 {
	switch f3 {
	case 0b000:
		return int32(r1) * int32(r2)
	case 0b100:
		if r2 == 0 {
			return -1
		}
		if r1 == 1<<31 && int32(r2) == -1 {
			return int32(r1)
		}
		return int32(r1) / int32(r2)
	case 0b101:
		if r2 == 0 {
			return -1
		}
		return int32(r1 / r2)
	case 0b110:
		if r2 == 0 {
			return int32(r1)
		}
		if r1 == 1<<31 && int32(r2) == -1 {
			return 0
		}
		return int32(r1) % int32(r2)
	case 0b111:
		if r2 == 0 {
			return int32(r1)
		}
		return int32(r1 % r2)
	}
	return 0
}

// mulh computes the high 64 bits of the signed 128-bit product a*b, via
// an unsigned 64x64 multiply corrected for either operand being negative.
func mulh(a, b int64) int64 {
	hi, _ := bits.Mul64(uint64(a), uint64(b))
	if a < 0 {
		hi -= uint64(b)
	}
	if b < 0 {
		hi -= uint64(a)
	}
	return int64(hi)
}

// mulhsu computes the high 64 bits of a (signed) times b (unsigned).
func mulhsu(a int64, b uint64) uint64 {
	hi, _ := bits.Mul64(uint64(a), b)
	if a < 0 {
		hi -= b
	}
	return hi
}
