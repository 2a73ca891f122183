package riscv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvfuzz/pkg/mmu"
)

func newTestCore(t *testing.T) (*Core, mmu.VirtAddr) {
	t.Helper()
	m := mmu.New(mmu.DefaultConfig())
	base := mmu.VirtAddr(0x1000)
	_, err := m.AllocateSegment(&base, 4096, mmu.PermRead|mmu.PermWrite|mmu.PermExec)
	require.NoError(t, err)
	return NewCore(m), base
}

func encRType(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encIType(imm uint32, rs1, funct3, rd, opcode uint32) uint32 {
	return imm<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func writeInsn(t *testing.T, c *Core, addr mmu.VirtAddr, insn uint32) {
	t.Helper()
	require.NoError(t, mmu.MmuWrite[uint32](c.Mmu, addr, insn))
}

func TestAddiAndRegisterZeroDiscardsWrites(t *testing.T) {
	c, base := newTestCore(t)
	c.Regs.PC = uint64(base)
	// addi x0, x0, 5 — write to x0 must stay zero.
	writeInsn(t, c, base, encIType(5, 0, 0, 0, opOpImm))
	stop, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, StopNone, stop)
	assert.Equal(t, uint64(0), c.Regs.ReadX(0))
	assert.Equal(t, uint64(base)+4, c.Regs.PC)

	// addi x5, x0, 100
	writeInsn(t, c, mmu.VirtAddr(c.Regs.PC), encIType(100, 0, 0, 5, opOpImm))
	_, err = c.Step()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), c.Regs.ReadX(5))
}

func TestBranchTaken(t *testing.T) {
	c, base := newTestCore(t)
	c.Regs.PC = uint64(base)
	c.Regs.WriteX(1, 7)
	c.Regs.WriteX(2, 7)
	// beq x1, x2, +8
	imm := uint32(8)
	b12 := (imm >> 12) & 1
	b105 := (imm >> 5) & 0x3f
	b41 := (imm >> 1) & 0xf
	b11 := (imm >> 11) & 1
	insn := b12<<31 | b105<<25 | 2<<20 | 1<<15 | 0<<12 | b41<<8 | b11<<7 | opBranch
	writeInsn(t, c, base, insn)
	_, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, uint64(base)+8, c.Regs.PC)
}

func TestLoadStoreRoundTrip(t *testing.T) {
	c, base := newTestCore(t)
	c.Regs.PC = uint64(base)
	c.Regs.WriteX(1, uint64(base)+256)
	c.Regs.WriteX(2, 0xDEADBEEF)

	// sw x2, 0(x1)
	writeInsn(t, c, base, encSType(0, 2, 1, 0b010, opStore))
	_, err := c.Step()
	require.NoError(t, err)

	// lwu x3, 0(x1) — zero-extending load, so the result matches the raw
	// 32-bit pattern written even though its top bit is set.
	writeInsn(t, c, mmu.VirtAddr(c.Regs.PC), encIType(0, 1, 0b110, 3, opLoad))
	_, err = c.Step()
	require.NoError(t, err)
	assert.Equal(t, uint64(0xDEADBEEF), c.Regs.ReadX(3))
}

func encSType(imm, rs2, rs1, funct3, opcode uint32) uint32 {
	lo, hi := imm&0x1f, (imm>>5)&0x7f
	return hi<<25 | rs2<<20 | rs1<<15 | funct3<<12 | lo<<7 | opcode
}

func TestEcallStops(t *testing.T) {
	c, base := newTestCore(t)
	c.Regs.PC = uint64(base)
	writeInsn(t, c, base, encIType(0, 0, 0, 0, opSystem))
	stop, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, StopSyscall, stop)
}

func TestIllegalInstruction(t *testing.T) {
	c, base := newTestCore(t)
	c.Regs.PC = uint64(base)
	writeInsn(t, c, base, 0xFFFFFFFF)
	_, err := c.Step()
	require.Error(t, err)
	var illegal *IllegalInstructionError
	require.ErrorAs(t, err, &illegal)
}

func TestCompressedLiExpandsToAddi(t *testing.T) {
	// C.LI x5, 10: quadrant 01, funct3 010, imm[5]=0, rd=5, imm[4:0]=10.
	var cinsn uint16 = 0b010<<13 | 5<<7 | 10<<2 | 0b01
	insn, ok := expandCompressed(cinsn)
	require.True(t, ok)
	assert.Equal(t, uint32(opOpImm), opcode(insn))
	assert.Equal(t, uint32(5), rd(insn))
	assert.Equal(t, int64(10), immI(insn))
}

func TestCompressedLiExecutesViaStep(t *testing.T) {
	c, base := newTestCore(t)
	c.Regs.PC = uint64(base)
	var cinsn uint16 = 0b010<<13 | 5<<7 | 10<<2 | 0b01
	require.NoError(t, mmu.MmuWrite[uint16](c.Mmu, base, cinsn))
	stop, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, StopNone, stop)
	assert.Equal(t, uint64(10), c.Regs.ReadX(5))
	assert.Equal(t, uint64(base)+2, c.Regs.PC)
}
