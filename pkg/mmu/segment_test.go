package mmu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForkResetRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	seg, err := NewSegment(VirtAddr(0x100000), 0x1000, PermWrite|PermRAW, cfg)
	require.NoError(t, err)

	require.NoError(t, Write[uint32](seg, 0x100, 0xDEADBEEF))

	fork := seg.Fork()

	require.NoError(t, Write[uint32](fork, 0x100, 0xCAFEBABE))
	v, err := Read[uint32](fork, 0x100)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), v)

	fork.Reset(seg)
	v, err = Read[uint32](fork, 0x100)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), v)
	assert.Equal(t, 0, fork.dirty.Len())
}

func TestUninitializedReadTraps(t *testing.T) {
	cfg := DefaultConfig()
	seg, err := NewSegment(VirtAddr(0), 0x100, PermWrite|PermRAW, cfg)
	require.NoError(t, err)

	_, err = Read[uint8](seg, 0)
	require.Error(t, err)
	var fault *PermissionsFault
	require.ErrorAs(t, err, &fault)
	assert.True(t, fault.IsRead)
	assert.True(t, fault.IsUninitializedRead())

	require.NoError(t, Write[uint8](seg, 0, 1))
	v, err := Read[uint8](seg, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), v)
}

func TestRawArmingAcrossSpan(t *testing.T) {
	cfg := DefaultConfig()
	seg, err := NewSegment(VirtAddr(0), 256, PermWrite|PermRAW, cfg)
	require.NoError(t, err)

	require.NoError(t, Write[uint64](seg, 0, 0x0102030405060708))
	v, err := Read[uint64](seg, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), v)

	for i := uint64(0); i < 8; i++ {
		assert.True(t, seg.permissions[i].IsSupersetOf(PermRead), "byte %d should be armed readable", i)
	}
}

func TestWriteRejectedWithoutWritePermission(t *testing.T) {
	cfg := DefaultConfig()
	seg, err := NewSegment(VirtAddr(0), 256, PermRead, cfg)
	require.NoError(t, err)

	err = Write[uint8](seg, 0, 1)
	require.Error(t, err)
	var fault *PermissionsFault
	require.ErrorAs(t, err, &fault)
	assert.False(t, fault.IsRead)
}

func TestOutOfBound(t *testing.T) {
	cfg := DefaultConfig()
	seg, err := NewSegment(VirtAddr(0), 256, PermRead|PermWrite, cfg)
	require.NoError(t, err)

	_, err = Read[uint64](seg, 252)
	require.Error(t, err)
	var oob *OutOfBoundError
	require.ErrorAs(t, err, &oob)
	assert.True(t, oob.IsRead)
}

func TestLittleEndianRegardlessOfHost(t *testing.T) {
	cfg := DefaultConfig()
	seg, err := NewSegment(VirtAddr(0), 256, PermRead|PermWrite, cfg)
	require.NoError(t, err)

	require.NoError(t, Write[uint32](seg, 0, 0x11223344))
	raw := make([]byte, 4)
	copy(raw, seg.memory[0:4])
	assert.Equal(t, []byte{0x44, 0x33, 0x22, 0x11}, raw)
}

func TestDirtyRestoreIsBlockBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DirtyBlockSize = 256
	const segSize = 1 << 20 // 1 MiB
	seg, err := NewSegment(VirtAddr(0), segSize, PermRead|PermWrite, cfg)
	require.NoError(t, err)
	snapshot := seg.Fork()

	require.NoError(t, Write[uint8](seg, 12345, 0x42))

	blocks := seg.dirty.Drain()
	require.Len(t, blocks, 1)
	assert.Equal(t, 12345/256, blocks[0])

	// Re-mark so Reset (which also drains) sees exactly this one block.
	seg.dirty.Mark(blocks[0])
	seg.Reset(snapshot)
	v, err := Read[uint8](seg, 12345)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), v)
}

func TestSetPermissionsOutOfBound(t *testing.T) {
	cfg := DefaultConfig()
	seg, err := NewSegment(VirtAddr(0), 256, PermRead, cfg)
	require.NoError(t, err)

	err = seg.SetPermissions(0, 257, PermRead|PermWrite)
	require.Error(t, err)
	var oob *SetPermissionsOutOfBoundError
	require.ErrorAs(t, err, &oob)
}

func TestSizeNotMultipleOfDirtyBlock(t *testing.T) {
	cfg := DefaultConfig()
	_, err := NewSegment(VirtAddr(0), 300, PermRead, cfg)
	require.Error(t, err)
	var sizeErr *SizeNotMultipleOfDirtyBlockError
	require.ErrorAs(t, err, &sizeErr)
}
