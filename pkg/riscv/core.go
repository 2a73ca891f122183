package riscv

import "rvfuzz/pkg/mmu"

// Core is one RV64IMAC hart: its register file plus the Mmu backing its
// address space. It holds no other state — no CSR file, no pipeline —
// since this is a fuzzing-oriented interpreter, not a full machine model.
type Core struct {
	Regs *Regs
	Mmu  *mmu.Mmu
}

// NewCore returns a Core with zeroed registers, backed by m.
func NewCore(m *mmu.Mmu) *Core {
	return &Core{Regs: &Regs{}, Mmu: m}
}

// Step fetches, decodes, and executes the instruction at the current PC,
// advancing PC by the instruction's length (2 for RVC, 4 otherwise)
// unless the instruction itself redirected control flow. The returned
// StopReason tells the caller whether to keep stepping.
func (c *Core) Step() (StopReason, error) {
	insn, length, err := c.fetch(c.Regs.PC)
	if err != nil {
		return StopNone, err
	}
	prevPC := c.Regs.PC
	stop, err := c.execute(insn)
	if err != nil {
		return StopNone, err
	}
	if length == 2 && (opcode(insn) == opJal || opcode(insn) == opJalr) {
		// An expanded C.JALR links the next 2-byte instruction, not pc+4.
		c.Regs.WriteX(rd(insn), prevPC+length)
	}
	if c.Regs.PC == prevPC {
		c.Regs.PC = prevPC + length
	}
	return stop, nil
}

// fetch reads one instruction at pc under an execute-permission probe,
// returning its 32-bit form (compressed instructions are expanded
// in-place) and its length in bytes.
func (c *Core) fetch(pc uint64) (uint32, uint64, error) {
	if pc%2 != 0 {
		return 0, 0, &MisalignedFetchError{PC: pc}
	}
	lo, err := mmu.MmuReadPerm[uint16](c.Mmu, mmu.VirtAddr(pc), mmu.PermExec)
	if err != nil {
		return 0, 0, err
	}
	if lo&0x3 != 0x3 {
		insn, ok := expandCompressed(lo)
		if !ok {
			return 0, 0, &IllegalInstructionError{PC: pc, Insn: uint32(lo)}
		}
		return insn, 2, nil
	}
	hi, err := mmu.MmuReadPerm[uint16](c.Mmu, mmu.VirtAddr(pc+2), mmu.PermExec)
	if err != nil {
		return 0, 0, err
	}
	return uint32(lo) | uint32(hi)<<16, 4, nil
}
