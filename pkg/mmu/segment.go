package mmu

// Segment is one contiguous guest address range: raw bytes, one permission
// byte per guest byte, and a dirty-block tracker. Offset 0 within memory
// and permissions corresponds to guest address Base.
type Segment struct {
	memory      []byte
	permissions []Perm
	dirty       *DirtyTracker
	base        VirtAddr

	dirtyBlockSize uint64
	rawEnabled     bool
	taintEnabled   bool
}

// NewSegment allocates a zero-filled segment of size bytes at base, with
// every byte starting at initialPerm. size must be a multiple of
// dirtyBlockSize, and dirtyBlockSize must be a multiple of 64.
func NewSegment(base VirtAddr, size uint64, initialPerm Perm, cfg Config) (*Segment, error) {
	if cfg.DirtyBlockSize%64 != 0 {
		panic("mmu: configured dirty_block_size is not a multiple of 64")
	}
	if size%cfg.DirtyBlockSize != 0 {
		return nil, &SizeNotMultipleOfDirtyBlockError{Size: size, DirtyBlockSize: cfg.DirtyBlockSize}
	}

	perms := make([]Perm, size)
	for i := range perms {
		perms[i] = initialPerm
	}

	nBlocks := int(size / cfg.DirtyBlockSize)
	return &Segment{
		memory:         make([]byte, size),
		permissions:    perms,
		dirty:          newDirtyTracker(nBlocks),
		base:           base,
		dirtyBlockSize: cfg.DirtyBlockSize,
		rawEnabled:     cfg.RAW,
		taintEnabled:   cfg.Taint,
	}, nil
}

// Base returns the guest address of offset 0 in this segment.
func (s *Segment) Base() VirtAddr { return s.base }

// Len returns the segment's size in bytes.
func (s *Segment) Len() uint64 { return uint64(len(s.memory)) }

// PermAt returns the permission byte at offset, for callers (CLI segment
// listings, crash reports) that want to describe a segment's protection
// without reaching into its byte-granular internals.
func (s *Segment) PermAt(offset uint64) Perm {
	return s.permissions[offset]
}

// Contains reports whether addr falls within [Base, Base+Len).
func (s *Segment) Contains(addr VirtAddr) bool {
	return addr >= s.base && uint64(addr-s.base) < s.Len()
}

// Fork deep-copies bytes and permissions into an independent Segment with
// an empty DirtyTracker. The fork becomes the reference snapshot for a
// later Reset.
func (s *Segment) Fork() *Segment {
	memCopy := make([]byte, len(s.memory))
	copy(memCopy, s.memory)
	permCopy := make([]Perm, len(s.permissions))
	copy(permCopy, s.permissions)

	return &Segment{
		memory:         memCopy,
		permissions:    permCopy,
		dirty:          newDirtyTracker(len(s.memory) / int(s.dirtyBlockSize)),
		base:           s.base,
		dirtyBlockSize: s.dirtyBlockSize,
		rawEnabled:     s.rawEnabled,
		taintEnabled:   s.taintEnabled,
	}
}

// Reset restores s to the byte-for-byte and permission-for-permission
// contents of snapshot by copying back only the blocks s's DirtyTracker
// recorded as mutated since snapshot was taken. snapshot must be a prior
// Fork() of the same logical segment that has not itself been mutated.
func (s *Segment) Reset(snapshot *Segment) {
	blockSize := int(s.dirtyBlockSize)
	for _, block := range s.dirty.Drain() {
		start := block * blockSize
		end := start + blockSize
		copy(s.memory[start:end], snapshot.memory[start:end])
		copy(s.permissions[start:end], snapshot.permissions[start:end])
	}
}

// SetPermissions overwrites the permission bytes in [start, end) and marks
// every covered block dirty.
func (s *Segment) SetPermissions(start, end uint64, perm Perm) error {
	if end > s.Len() {
		return &SetPermissionsOutOfBoundError{End: VirtAddr(end), Len: s.Len()}
	}
	if end == start {
		return nil
	}
	for i := start; i < end; i++ {
		s.permissions[i] = perm
	}
	s.markDirtyRange(start, end)
	return nil
}

// Resize grows or shrinks the segment. Newly grown bytes are zero with
// permission fillPerm; the dirty tracker is resized to match.
func (s *Segment) Resize(newSize uint64, fillPerm Perm) {
	cur := uint64(len(s.memory))
	if newSize > cur {
		growth := int(newSize - cur)
		s.memory = append(s.memory, make([]byte, growth)...)
		extraPerms := make([]Perm, growth)
		for i := range extraPerms {
			extraPerms[i] = fillPerm
		}
		s.permissions = append(s.permissions, extraPerms...)
	} else {
		s.memory = s.memory[:newSize]
		s.permissions = s.permissions[:newSize]
	}
	s.dirty.resize(int((newSize + s.dirtyBlockSize - 1) / s.dirtyBlockSize))
}

// WriteFromSlice copies src into the segment at offset, bypassing all
// permission checks. This is a loader-only primitive: it must never be
// reachable from guest instruction execution.
func (s *Segment) WriteFromSlice(offset uint64, src []byte) {
	copy(s.memory[offset:offset+uint64(len(src))], src)
}

// ReadIntoSlice copies len(dst) bytes starting at offset into dst,
// requiring PermRead on every touched byte. Used by syscall handlers that
// need a guest buffer as a host []byte (write, writev) without forcing the
// caller to read it word-at-a-time.
func (s *Segment) ReadIntoSlice(offset uint64, dst []byte) error {
	size := uint64(len(dst))
	if offset+size > s.Len() {
		return &OutOfBoundError{IsRead: true, Addr: s.base.Add(offset)}
	}
	for i := uint64(0); i < size; i++ {
		if !s.permissions[offset+i].IsSupersetOf(PermRead) {
			return &PermissionsFault{
				IsRead: true,
				Perms:  append([]Perm(nil), s.permissions[offset:offset+size]...),
				Addr:   s.base.Add(offset),
			}
		}
	}
	copy(dst, s.memory[offset:offset+size])
	return nil
}

// WriteChecked copies src into the segment at offset, requiring PermWrite
// on every touched byte and arming RAW bytes readable, the way a guest
// store instruction would. This is the primitive syscall handlers use to
// fill a guest-supplied buffer (read, readv): unlike WriteFromSlice, a
// guest can't use it to bypass its own page permissions.
func (s *Segment) WriteChecked(offset uint64, src []byte) error {
	size := uint64(len(src))
	if offset+size > s.Len() {
		return &OutOfBoundError{IsRead: false, Addr: s.base.Add(offset)}
	}
	for i := uint64(0); i < size; i++ {
		if !s.permissions[offset+i].IsSupersetOf(PermWrite) {
			return &PermissionsFault{
				IsRead: false,
				Perms:  append([]Perm(nil), s.permissions[offset:offset+size]...),
				Addr:   s.base.Add(offset),
			}
		}
	}
	copy(s.memory[offset:offset+size], src)
	if s.rawEnabled {
		for i := offset; i < offset+size; i++ {
			if s.permissions[i].IsSupersetOf(PermRAW) {
				s.permissions[i] |= PermRead
			}
		}
	}
	s.markDirtyRange(offset, offset+size)
	return nil
}

// WriteFromSliceWithPerm is WriteFromSlice but also sets the permission of
// every written byte to perm.
func (s *Segment) WriteFromSliceWithPerm(offset uint64, src []byte, perm Perm) {
	s.WriteFromSlice(offset, src)
	end := offset + uint64(len(src))
	for i := offset; i < end; i++ {
		s.permissions[i] = perm
	}
	s.markDirtyRange(offset, end)
}

func (s *Segment) markDirtyRange(start, end uint64) {
	if end == start {
		return
	}
	first := start / s.dirtyBlockSize
	last := (end - 1) / s.dirtyBlockSize
	for block := first; block <= last; block++ {
		s.dirty.Mark(int(block))
	}
}
