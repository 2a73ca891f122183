package riscv

import "rvfuzz/pkg/mmu"

// AMO funct5 values (insn bits [31:27]).
const (
	amoLR      = 0b00010
	amoSC      = 0b00011
	amoSwap    = 0b00001
	amoAdd     = 0b00000
	amoXor     = 0b00100
	amoAnd     = 0b01100
	amoOr      = 0b01000
	amoMin     = 0b10000
	amoMax     = 0b10100
	amoMinU    = 0b11000
	amoMaxU    = 0b11100
)

// execAMO implements the RV64A atomic memory operations. This core runs a
// single hart with no other agents that could race a reservation, so
// LR/SC never fails: SC always succeeds and stores 0 (success) to rd.
func (c *Core) execAMO(insn uint32) error {
	addr := mmu.VirtAddr(c.Regs.ReadX(rs1(insn)))
	op := funct5(insn)
	width := funct3(insn)

	switch width {
	case 0b010: // .W
		return c.execAMO32(insn, addr, op)
	case 0b011: // .D
		return c.execAMO64(insn, addr, op)
	default:
		return &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
	}
}

func (c *Core) execAMO32(insn uint32, addr mmu.VirtAddr, op uint32) error {
	if op == amoSC {
		val := uint32(c.Regs.ReadX(rs2(insn)))
		if err := mmu.MmuWrite[uint32](c.Mmu, addr, val); err != nil {
			return err
		}
		c.Regs.WriteX(rd(insn), 0)
		return nil
	}

	old, err := mmu.MmuRead[uint32](c.Mmu, addr)
	if err != nil {
		return err
	}
	c.Regs.WriteX(rd(insn), uint64(int32(old)))
	if op == amoLR {
		return nil
	}

	src := uint32(c.Regs.ReadX(rs2(insn)))
	var result uint32
	switch op {
	case amoSwap:
		result = src
	case amoAdd:
		result = old + src
	case amoXor:
		result = old ^ src
	case amoAnd:
		result = old & src
	case amoOr:
		result = old | src
	case amoMin:
		if int32(old) < int32(src) {
			result = old
		} else {
			result = src
		}
	case amoMax:
		if int32(old) > int32(src) {
			result = old
		} else {
			result = src
		}
	case amoMinU:
		if old < src {
			result = old
		} else {
			result = src
		}
	case amoMaxU:
		if old > src {
			result = old
		} else {
			result = src
		}
	default:
		return &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
	}
	return mmu.MmuWrite[uint32](c.Mmu, addr, result)
}

func (c *Core) execAMO64(insn uint32, addr mmu.VirtAddr, op uint32) error {
	if op == amoSC {
		val := c.Regs.ReadX(rs2(insn))
		if err := mmu.MmuWrite[uint64](c.Mmu, addr, val); err != nil {
			return err
		}
		c.Regs.WriteX(rd(insn), 0)
		return nil
	}

	old, err := mmu.MmuRead[uint64](c.Mmu, addr)
	if err != nil {
		return err
	}
	c.Regs.WriteX(rd(insn), old)
	if op == amoLR {
		return nil
	}

	src := c.Regs.ReadX(rs2(insn))
	var result uint64
	switch op {
	case amoSwap:
		result = src
	case amoAdd:
		result = old + src
	case amoXor:
		result = old ^ src
	case amoAnd:
		result = old & src
	case amoOr:
		result = old | src
	case amoMin:
		if int64(old) < int64(src) {
			result = old
		} else {
			result = src
		}
	case amoMax:
		if int64(old) > int64(src) {
			result = old
		} else {
			result = src
		}
	case amoMinU:
		if old < src {
			result = old
		} else {
			result = src
		}
	case amoMaxU:
		if old > src {
			result = old
		} else {
			result = src
		}
	default:
		return &IllegalInstructionError{PC: c.Regs.PC, Insn: insn}
	}
	return mmu.MmuWrite[uint64](c.Mmu, addr, result)
}
