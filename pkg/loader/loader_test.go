package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvfuzz/pkg/mmu"
)

func newTestLoader() *Loader {
	return &Loader{
		RandomBytes: make([]byte, 16),
		Platform:    "riscv64",
		StackSize:   64 * 1024,
	}
}

func TestLoadObjectStaticEntryAndBSS(t *testing.T) {
	code := []byte{0x01, 0x02, 0x03, 0x04}
	raw := buildMinimalELF(2 /*ET_EXEC*/, 0x10000, code, 0x1000, "")

	m := mmu.New(mmu.DefaultConfig())
	l := newTestLoader()
	res, err := l.LoadObject(m, raw, "/bin/target", []string{"/bin/target", "-x"}, []string{"HOME=/root"}, nil)
	require.NoError(t, err)
	assert.Equal(t, mmu.VirtAddr(0x10000), res.EntryPoint)
	assert.Equal(t, mmu.VirtAddr(0), res.InterpEntryPoint)

	v, err := mmu.MmuRead[uint32](m, mmu.VirtAddr(0x10000))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04030201), v)

	// .bss region (past filesz, within memsz) reads as zero.
	v2, err := mmu.MmuRead[uint8](m, mmu.VirtAddr(0x10000+4))
	require.NoError(t, err)
	assert.Equal(t, uint8(0), v2)
}

func TestLoadObjectBrkSegmentPastHighestLoad(t *testing.T) {
	raw := buildMinimalELF(2, 0x20000, []byte{0xAA}, 0, "")

	m := mmu.New(mmu.DefaultConfig())
	l := newTestLoader()
	_, err := l.LoadObject(m, raw, "/bin/a", []string{"/bin/a"}, nil, nil)
	require.NoError(t, err)

	require.NotNil(t, m.DataSegmentBase)
	assert.GreaterOrEqual(t, uint64(*m.DataSegmentBase), uint64(0x20001))
}

func TestLoadObjectStackArgvOrder(t *testing.T) {
	raw := buildMinimalELF(2, 0x30000, []byte{0x13, 0x00, 0x00, 0x00}, 0, "")

	m := mmu.New(mmu.DefaultConfig())
	l := newTestLoader()
	res, err := l.LoadObject(m, raw, "/bin/a", []string{"/bin/a", "first", "second"}, []string{"A=1", "B=2"}, nil)
	require.NoError(t, err)

	sp := res.StackPointer
	argc, err := mmu.MmuRead[uint64](m, sp)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), argc)

	argv0Ptr, err := mmu.MmuRead[uint64](m, sp.Add(8))
	require.NoError(t, err)
	assert.NotZero(t, argv0Ptr)

	argv0, err := readCString(m, mmu.VirtAddr(argv0Ptr))
	require.NoError(t, err)
	assert.Equal(t, "/bin/a", argv0)

	argv1Ptr, err := mmu.MmuRead[uint64](m, sp.Add(16))
	require.NoError(t, err)
	argv1, err := readCString(m, mmu.VirtAddr(argv1Ptr))
	require.NoError(t, err)
	assert.Equal(t, "first", argv1)

	argv2Ptr, err := mmu.MmuRead[uint64](m, sp.Add(24))
	require.NoError(t, err)
	argv2, err := readCString(m, mmu.VirtAddr(argv2Ptr))
	require.NoError(t, err)
	assert.Equal(t, "second", argv2)

	argvNull, err := mmu.MmuRead[uint64](m, sp.Add(32))
	require.NoError(t, err)
	assert.Zero(t, argvNull)

	env0Ptr, err := mmu.MmuRead[uint64](m, sp.Add(40))
	require.NoError(t, err)
	env0, err := readCString(m, mmu.VirtAddr(env0Ptr))
	require.NoError(t, err)
	assert.Equal(t, "A=1", env0)
}

func TestLoadObjectInterpreterMismatchFails(t *testing.T) {
	raw := buildMinimalELF(2, 0x40000, []byte{0x01}, 0, "/lib/ld.so.1")

	m := mmu.New(mmu.DefaultConfig())
	l := &Loader{InterpName: "/lib/ld-other.so", RandomBytes: make([]byte, 16), Platform: "riscv64", StackSize: 64 * 1024}
	_, err := l.LoadObject(m, raw, "/bin/a", []string{"/bin/a"}, nil, nil)
	require.Error(t, err)
	var mismatch *InterpreterMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func readCString(m *mmu.Mmu, addr mmu.VirtAddr) (string, error) {
	var out []byte
	for {
		b, err := mmu.MmuRead[uint8](m, addr)
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		out = append(out, b)
		addr = addr.Add(1)
	}
	return string(out), nil
}
