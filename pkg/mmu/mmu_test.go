package mmu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateSegmentFixedAddrOverlap(t *testing.T) {
	m := New(DefaultConfig())
	addr := VirtAddr(0x1000)
	_, err := m.AllocateSegment(&addr, 0x1000, PermRead|PermWrite)
	require.NoError(t, err)

	_, err = m.AllocateSegment(&addr, 0x1000, PermRead)
	require.Error(t, err)
	var overlap *OverlappingSegmentError
	require.ErrorAs(t, err, &overlap)
}

func TestAllocateSegmentAutoCursorAdvancesPastRedzone(t *testing.T) {
	cfg := DefaultConfig()
	m := New(cfg)
	idx1, err := m.AllocateSegment(nil, 256, PermRead|PermWrite)
	require.NoError(t, err)
	base1, seg1 := m.Segment(idx1)

	idx2, err := m.AllocateSegment(nil, 256, PermRead|PermWrite)
	require.NoError(t, err)
	base2, _ := m.Segment(idx2)

	assert.Equal(t, base1.Add(seg1.Len()).Add(cfg.SegmentRedzone), base2)
}

func TestMmuForkResetRoundTrip(t *testing.T) {
	m := New(DefaultConfig())
	addr := VirtAddr(0x10000)
	_, err := m.AllocateSegment(&addr, 0x1000, PermRead|PermWrite)
	require.NoError(t, err)

	require.NoError(t, MmuWrite[uint64](m, addr.Add(0x10), 111))

	snapshot := m.Fork()
	require.NoError(t, MmuWrite[uint64](m, addr.Add(0x10), 222))

	v, err := MmuRead[uint64](m, addr.Add(0x10))
	require.NoError(t, err)
	assert.Equal(t, uint64(222), v)

	m.Reset(snapshot)
	v, err = MmuRead[uint64](m, addr.Add(0x10))
	require.NoError(t, err)
	assert.Equal(t, uint64(111), v)
}

func TestBrkGrowsDataSegment(t *testing.T) {
	m := New(DefaultConfig())
	addr := VirtAddr(0x20000)
	idx, err := m.AllocateSegment(&addr, 0x100, PermRead|PermWrite)
	require.NoError(t, err)
	m.DataSegmentBase = &addr

	base, seg := m.Segment(idx)
	dataEnd := base.Add(seg.Len())

	newEnd, err := m.Brk(dataEnd.Add(0x4000))
	require.NoError(t, err)
	assert.Equal(t, dataEnd.Add(0x4000), newEnd)

	require.NoError(t, MmuWrite[uint64](m, dataEnd, 0))
	v, err := MmuRead[uint64](m, dataEnd)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)

	_, err = MmuRead[uint64](m, dataEnd.Add(0x3ff8))
	require.Error(t, err)
	var fault *PermissionsFault
	require.ErrorAs(t, err, &fault)
}

func TestSegmentNotFound(t *testing.T) {
	m := New(DefaultConfig())
	_, err := MmuRead[uint8](m, VirtAddr(0xdeadbeef))
	require.Error(t, err)
	var notFound *SegmentNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestMmapAnonymousAndMunmap(t *testing.T) {
	m := New(DefaultConfig())
	base, err := m.Mmap(0, 4096, PermRead|PermWrite, MapAnonymous|MapPrivate)
	require.NoError(t, err)

	require.NoError(t, MmuWrite[uint32](m, base, 42))
	v, err := MmuRead[uint32](m, base)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)

	require.NoError(t, m.Munmap(base, 4096))
	_, err = MmuRead[uint32](m, base)
	require.Error(t, err)
}

func TestMmapFileBackedUnsupported(t *testing.T) {
	m := New(DefaultConfig())
	_, err := m.Mmap(0, 4096, PermRead, MapPrivate)
	require.Error(t, err)
	var unsupported *UnsupportedError
	require.ErrorAs(t, err, &unsupported)
}
