package mmu

// Linux-shaped memory syscalls, implemented as host methods the emulator
// calls on syscall trap.

// PageSize is the page granularity mmap/munmap/mremap round requests to.
const PageSize = 4096

// Brk resizes the data segment so its end equals newEnd. Extended bytes are
// Write|RAW: writable, and readable only after their first write.
//
// The data segment is re-resolved by base address on every call rather than
// through a cached index, since AllocateSegment/Munmap can reorder or
// remove entries in m.segments after DataSegmentBase was first set.
func (m *Mmu) Brk(newEnd VirtAddr) (VirtAddr, error) {
	if m.DataSegmentBase == nil {
		return 0, &SegmentNotFoundError{Addr: newEnd}
	}
	base := *m.DataSegmentBase
	seg, err := m.segmentAtBase(base)
	if err != nil {
		return 0, err
	}
	newLen := uint64(newEnd - base)
	seg.Resize(newLen, PermWrite|PermRAW)
	return base.Add(newLen), nil
}

// Sbrk is equivalent to Brk(currentEnd + delta) and returns the new end.
// delta may be negative to shrink the segment.
func (m *Mmu) Sbrk(delta int64) (VirtAddr, error) {
	if m.DataSegmentBase == nil {
		return 0, &SegmentNotFoundError{}
	}
	base := *m.DataSegmentBase
	seg, err := m.segmentAtBase(base)
	if err != nil {
		return 0, err
	}
	currentEnd := base.Add(seg.Len())
	return m.Brk(VirtAddr(int64(currentEnd) + delta))
}

// MmapFlags mirrors the subset of Linux mmap(2) flags this MMU recognizes.
type MmapFlags uint32

const (
	MapShared    MmapFlags = 0x01
	MapPrivate   MmapFlags = 0x02
	MapFixed     MmapFlags = 0x10
	MapAnonymous MmapFlags = 0x20
)

func alignUpSize(size, align uint64) uint64 {
	return (size + align - 1) &^ (align - 1)
}

// Mmap reserves a new segment of length bytes. Policy minimum per the
// spec's Open Question: MAP_ANONYMOUS with either a fixed address or a
// cursor-allocated one is supported; file-backed mmap (the absence of
// MapAnonymous) is out of scope and fails UnsupportedError, since this MMU
// has no notion of a backing file descriptor to fault pages in from.
func (m *Mmu) Mmap(addr VirtAddr, length uint64, perm Perm, flags MmapFlags) (VirtAddr, error) {
	if flags&MapAnonymous == 0 {
		return 0, &UnsupportedError{Op: "mmap: file-backed mapping"}
	}
	length = alignUpSize(length, PageSize)
	// The segment length must line up with the dirty-block granularity the
	// same way any other segment does.
	length = alignUpSize(length, m.cfg.DirtyBlockSize)

	var basePtr *VirtAddr
	if flags&MapFixed != 0 {
		basePtr = &addr
	}
	idx, err := m.AllocateSegment(basePtr, length, perm)
	if err != nil {
		return 0, err
	}
	base, _ := m.Segment(idx)
	return base, nil
}

// Munmap releases the segment exactly covering [addr, addr+length). Partial
// unmaps of a subrange of a segment are UnsupportedError: this MMU tracks
// whole segments, not sub-segment mappings, so splitting one isn't
// representable without inventing semantics the spec leaves unspecified.
func (m *Mmu) Munmap(addr VirtAddr, length uint64) error {
	length = alignUpSize(length, PageSize)
	for i, e := range m.segments {
		if e.base == addr && e.segment.Len() == length {
			m.segments = append(m.segments[:i], m.segments[i+1:]...)
			return nil
		}
	}
	return &UnsupportedError{Op: "munmap: no exact-length mapping at address"}
}

// Mremap resizes the segment at oldAddr in place. Moving a mapping to a new
// address (MREMAP_MAYMOVE) is UnsupportedError: callers needing that must
// munmap and mmap explicitly, since this policy-minimum implementation
// never relocates a segment's guest address out from under a stale
// pointer the guest may still hold.
func (m *Mmu) Mremap(oldAddr VirtAddr, oldLength, newLength uint64) (VirtAddr, error) {
	oldLength = alignUpSize(oldLength, PageSize)
	newLength = alignUpSize(newLength, PageSize)
	newLength = alignUpSize(newLength, m.cfg.DirtyBlockSize)

	for _, e := range m.segments {
		if e.base == oldAddr && e.segment.Len() == oldLength {
			e.segment.Resize(newLength, PermWrite|PermRAW)
			return oldAddr, nil
		}
	}
	return 0, &UnsupportedError{Op: "mremap: no exact-length mapping at address"}
}
