package mmu

import "sort"

// segmentEntry pairs a segment with its base address for the purposes of
// the ordered segment list Mmu maintains.
type segmentEntry struct {
	base    VirtAddr
	segment *Segment
}

// Mmu is a union of segments under one guest address space. It routes
// typed reads/writes to the segment containing the target address and owns
// the loader-specific base addresses (data segment for brk, stack segment).
//
// DataSegmentBase/StackSegmentBase are stored as base addresses rather than
// slice indices: AllocateSegment re-sorts m.segments by base on every
// insertion and Munmap splices entries out, either of which silently
// invalidates a cached index. A base address survives both, since it's
// re-resolved through resolve() on every use.
type Mmu struct {
	cfg      Config
	segments []segmentEntry

	DataSegmentBase  *VirtAddr
	StackSegmentBase *VirtAddr

	allocCursor VirtAddr
}

// New returns an empty Mmu configured per cfg.
func New(cfg Config) *Mmu {
	return &Mmu{
		cfg:         cfg,
		allocCursor: cfg.AutoAllocBase,
	}
}

// Config returns the configuration this Mmu was created with.
func (m *Mmu) Config() Config { return m.cfg }

// NumSegments reports how many segments are mapped.
func (m *Mmu) NumSegments() int { return len(m.segments) }

// Segment returns the segment at index idx and its base address.
func (m *Mmu) Segment(idx int) (VirtAddr, *Segment) {
	e := m.segments[idx]
	return e.base, e.segment
}

// AllocateSegment reserves a new segment of size bytes with permission
// perm. If addr is non-nil, the segment is placed at that exact base
// (failing OverlappingSegmentError if it intersects an existing segment);
// otherwise the segment is placed at the rolling allocation cursor, which
// is then advanced past the segment plus the configured red zone.
func (m *Mmu) AllocateSegment(addr *VirtAddr, size uint64, perm Perm) (int, error) {
	var base VirtAddr
	if addr != nil {
		base = *addr
		if m.overlaps(base, size) {
			return 0, &OverlappingSegmentError{Addr: base, Size: size}
		}
	} else {
		base = m.allocCursor
		m.allocCursor = base.Add(size).Add(m.cfg.SegmentRedzone)
	}

	seg, err := NewSegment(base, size, perm, m.cfg)
	if err != nil {
		return 0, err
	}

	idx := len(m.segments)
	m.segments = append(m.segments, segmentEntry{base: base, segment: seg})
	m.sortSegments()
	// sortSegments may have moved idx; find it again by base.
	for i, e := range m.segments {
		if e.base == base {
			idx = i
			break
		}
	}
	return idx, nil
}

func (m *Mmu) overlaps(base VirtAddr, size uint64) bool {
	end := base.Add(size)
	for _, e := range m.segments {
		segEnd := e.base.Add(e.segment.Len())
		if base < segEnd && e.base < end {
			return true
		}
	}
	return false
}

func (m *Mmu) sortSegments() {
	sort.Slice(m.segments, func(i, j int) bool {
		return m.segments[i].base < m.segments[j].base
	})
}

// resolve finds the segment containing addr and returns it along with the
// intra-segment offset.
func (m *Mmu) resolve(addr VirtAddr) (*Segment, uint64, error) {
	for _, e := range m.segments {
		if e.segment.Contains(addr) {
			return e.segment, uint64(addr - e.base), nil
		}
	}
	return nil, 0, &SegmentNotFoundError{Addr: addr}
}

// segmentAtBase re-resolves the segment whose base is exactly base. Used by
// Brk/Sbrk to look up DataSegmentBase fresh on every call,
// rather than trusting a cached position in m.segments.
func (m *Mmu) segmentAtBase(base VirtAddr) (*Segment, error) {
	seg, off, err := m.resolve(base)
	if err != nil {
		return nil, err
	}
	if off != 0 {
		return nil, &SegmentNotFoundError{Addr: base}
	}
	return seg, nil
}

// Fork produces an independent Mmu: each segment is forked, and the
// topology (segment order, data/stack bases, allocation cursor) is
// preserved. The result becomes the reset reference for later mutations.
func (m *Mmu) Fork() *Mmu {
	forked := &Mmu{
		cfg:              m.cfg,
		segments:         make([]segmentEntry, len(m.segments)),
		DataSegmentBase:  m.DataSegmentBase,
		StackSegmentBase: m.StackSegmentBase,
		allocCursor:      m.allocCursor,
	}
	for i, e := range m.segments {
		forked.segments[i] = segmentEntry{base: e.base, segment: e.segment.Fork()}
	}
	return forked
}

// Reset restores every segment to the corresponding segment in snapshot,
// using each segment's own dirty tracker. Both Mmus must share identical
// segment topology (same count, same bases, same order) — true for any
// snapshot taken as a Fork() of this Mmu (or an ancestor with the same
// topology) that hasn't since had segments added or resized out from under
// it.
func (m *Mmu) Reset(snapshot *Mmu) {
	for i, e := range m.segments {
		e.segment.Reset(snapshot.segments[i].segment)
	}
}

// MmuReadPerm reads a T-sized little-endian value at addr, requiring
// requiredPerm on every touched byte instead of the default PermRead. Used
// by the emulator to fetch instruction words under an execute-permission
// probe.
func MmuReadPerm[T wideWord](m *Mmu, addr VirtAddr, requiredPerm Perm) (T, error) {
	seg, off, err := m.resolve(addr)
	if err != nil {
		return 0, err
	}
	return ReadPerm[T](seg, off, requiredPerm)
}

// MmuRead reads a T-sized little-endian value at addr.
func MmuRead[T wideWord](m *Mmu, addr VirtAddr) (T, error) {
	seg, off, err := m.resolve(addr)
	if err != nil {
		return 0, err
	}
	return Read[T](seg, off)
}

// MmuWrite writes value as a T-sized little-endian encoding at addr.
func MmuWrite[T wideWord](m *Mmu, addr VirtAddr, value T) error {
	seg, off, err := m.resolve(addr)
	if err != nil {
		return err
	}
	return Write[T](seg, off, value)
}

// WriteFromSlice copies src into memory at addr, bypassing permission
// checks. Loader-only: never reachable from guest execution.
func (m *Mmu) WriteFromSlice(addr VirtAddr, src []byte) error {
	seg, off, err := m.resolve(addr)
	if err != nil {
		return err
	}
	seg.WriteFromSlice(off, src)
	return nil
}

// WriteFromSliceWithPerm is WriteFromSlice but also sets the permission of
// every written byte to perm.
func (m *Mmu) WriteFromSliceWithPerm(addr VirtAddr, src []byte, perm Perm) error {
	seg, off, err := m.resolve(addr)
	if err != nil {
		return err
	}
	seg.WriteFromSliceWithPerm(off, src, perm)
	return nil
}

// ReadIntoSlice copies len(dst) bytes at addr into dst, enforcing PermRead.
func (m *Mmu) ReadIntoSlice(addr VirtAddr, dst []byte) error {
	seg, off, err := m.resolve(addr)
	if err != nil {
		return err
	}
	return seg.ReadIntoSlice(off, dst)
}

// WriteChecked copies src into memory at addr, enforcing PermWrite on every
// touched byte.
func (m *Mmu) WriteChecked(addr VirtAddr, src []byte) error {
	seg, off, err := m.resolve(addr)
	if err != nil {
		return err
	}
	return seg.WriteChecked(off, src)
}

// SetPermissions overwrites permissions over [addr, addr+size).
func (m *Mmu) SetPermissions(addr VirtAddr, size uint64, perm Perm) error {
	seg, off, err := m.resolve(addr)
	if err != nil {
		return err
	}
	return seg.SetPermissions(off, off+size, perm)
}
