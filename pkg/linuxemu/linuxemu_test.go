package linuxemu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvfuzz/pkg/mmu"
	"rvfuzz/pkg/riscv"
)

func newTestEmu(t *testing.T) (*LinuxEmu, mmu.VirtAddr) {
	t.Helper()
	m := mmu.New(mmu.DefaultConfig())
	base := mmu.VirtAddr(0x1000)
	_, err := m.AllocateSegment(&base, 4096, mmu.PermRead|mmu.PermWrite|mmu.PermExec)
	require.NoError(t, err)
	core := riscv.NewCore(m)
	core.Regs.PC = uint64(base)
	return New(core, nil, 1), base
}

func writeEcall(t *testing.T, core *riscv.Core, addr mmu.VirtAddr) {
	t.Helper()
	const ecall = 0b1110011
	require.NoError(t, mmu.MmuWrite[uint32](core.Mmu, addr, ecall))
}

func TestExitGroupSurfacesExitSignal(t *testing.T) {
	emu, base := newTestEmu(t)
	writeEcall(t, emu.Core, base)
	emu.Core.Regs.WriteX(regA7, sysExitGroup)
	emu.Core.Regs.WriteX(regA0, 7)

	err := emu.Run(0)
	var exit *ExitSignal
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, int64(7), exit.Code)
}

func TestUnknownSyscallIsBadSyscall(t *testing.T) {
	emu, base := newTestEmu(t)
	writeEcall(t, emu.Core, base)
	emu.Core.Regs.WriteX(regA7, 9999)

	err := emu.Run(0)
	var bad *BadSyscallError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, uint64(9999), bad.Number)
}

func TestWriteReadsGuestBufferIntoHostFile(t *testing.T) {
	emu, base := newTestEmu(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	fd := emu.fds.insert(f)

	msg := "hello from the guest\n"
	bufAddr := base.Add(512)
	require.NoError(t, emu.Core.Mmu.WriteFromSliceWithPerm(bufAddr, []byte(msg), mmu.PermRead|mmu.PermWrite))

	writeEcall(t, emu.Core, base)
	emu.Core.Regs.WriteX(regA7, sysWrite)
	emu.Core.Regs.WriteX(regA0, uint64(fd))
	emu.Core.Regs.WriteX(regA1, uint64(bufAddr))
	emu.Core.Regs.WriteX(regA2, uint64(len(msg)))

	stop, err := emu.Core.Step()
	require.NoError(t, err)
	require.Equal(t, riscv.StopSyscall, stop)
	require.NoError(t, emu.dispatch())
	require.NoError(t, f.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, msg, string(got))
	assert.Equal(t, uint64(len(msg)), emu.Core.Regs.ReadX(regA0))
}

func TestOpenatCloseRoundTrip(t *testing.T) {
	emu, base := newTestEmu(t)
	dir := t.TempDir()
	emu.OpenatRoot = dir
	require.NoError(t, os.WriteFile(filepath.Join(dir, "opened.txt"), []byte("data"), 0o644))

	pathAddr := base.Add(1024)
	pathBytes := append([]byte("opened.txt"), 0)
	require.NoError(t, emu.Core.Mmu.WriteFromSliceWithPerm(pathAddr, pathBytes, mmu.PermRead|mmu.PermWrite))

	writeEcall(t, emu.Core, base)
	emu.Core.Regs.WriteX(regA7, sysOpenat)
	emu.Core.Regs.WriteX(regA0, ^uint64(99)) // AT_FDCWD (-100), unused by this dirfd-less implementation
	emu.Core.Regs.WriteX(regA1, uint64(pathAddr))
	emu.Core.Regs.WriteX(regA2, 0) // O_RDONLY

	stop, err := emu.Core.Step()
	require.NoError(t, err)
	require.Equal(t, riscv.StopSyscall, stop)
	require.NoError(t, emu.dispatch())

	fd := int32(emu.Core.Regs.ReadX(regA0))
	assert.GreaterOrEqual(t, fd, int32(3))

	_, ok := emu.fds.get(fd)
	assert.True(t, ok)

	require.NoError(t, emu.fds.close(fd))
	_, ok = emu.fds.get(fd)
	assert.False(t, ok)
}

func TestBrkGrowsDataSegment(t *testing.T) {
	m := mmu.New(mmu.DefaultConfig())
	dataBase := mmu.VirtAddr(0x2000)
	_, err := m.AllocateSegment(&dataBase, 256, mmu.PermRead|mmu.PermWrite)
	require.NoError(t, err)
	m.DataSegmentBase = &dataBase

	codeBase := mmu.VirtAddr(0x1000)
	_, err = m.AllocateSegment(&codeBase, 4096, mmu.PermRead|mmu.PermWrite|mmu.PermExec)
	require.NoError(t, err)

	core := riscv.NewCore(m)
	core.Regs.PC = uint64(codeBase)
	emu := New(core, nil, 1)

	writeEcall(t, core, codeBase)
	core.Regs.WriteX(regA7, sysBrk)
	core.Regs.WriteX(regA0, uint64(dataBase)+512)

	stop, err := core.Step()
	require.NoError(t, err)
	require.Equal(t, riscv.StopSyscall, stop)
	require.NoError(t, emu.dispatch())

	assert.Equal(t, uint64(dataBase)+512, core.Regs.ReadX(regA0))
}
