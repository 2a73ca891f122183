package mmu

import "fmt"

// OutOfBoundError is raised when an access straddles the end of a segment
// or the guest address space.
type OutOfBoundError struct {
	IsRead bool
	Addr   VirtAddr
}

func (e *OutOfBoundError) Error() string {
	dir := "write"
	if e.IsRead {
		dir = "read"
	}
	return fmt.Sprintf("out of bound %s at %s", dir, e.Addr)
}

// PermissionsFault is raised when a touched byte is missing a required
// permission bit. An uninitialized read (a byte with RAW set but R clear)
// is reported through this same type, since the wide-word check cannot
// distinguish the two cases cheaply and doesn't need to.
type PermissionsFault struct {
	IsRead bool
	Perms  []Perm
	Addr   VirtAddr
}

func (e *PermissionsFault) Error() string {
	dir := "write"
	if e.IsRead {
		dir = "read"
	}
	return fmt.Sprintf("permission fault on %s at %s (perms=%v)", dir, e.Addr, e.Perms)
}

// IsUninitializedRead reports whether this fault is specifically an
// uninitialized-read trap: a read against a span where every touched byte
// carries RAW but not yet R.
func (e *PermissionsFault) IsUninitializedRead() bool {
	if !e.IsRead {
		return false
	}
	for _, p := range e.Perms {
		if !p.IsSupersetOf(PermRAW) || p.IsSupersetOf(PermRead) {
			return false
		}
	}
	return len(e.Perms) > 0
}

// SegmentNotFoundError is raised when no segment covers an address.
type SegmentNotFoundError struct {
	Addr VirtAddr
}

func (e *SegmentNotFoundError) Error() string {
	return fmt.Sprintf("no segment covers %s", e.Addr)
}

// OverlappingSegmentError is raised when an allocation would intersect an
// existing segment.
type OverlappingSegmentError struct {
	Addr VirtAddr
	Size uint64
}

func (e *OverlappingSegmentError) Error() string {
	return fmt.Sprintf("segment [%s, %s) overlaps an existing segment", e.Addr, e.Addr.Add(e.Size))
}

// SizeNotMultipleOfDirtyBlockError is raised when a segment's requested
// size isn't a multiple of the configured dirty-block size.
type SizeNotMultipleOfDirtyBlockError struct {
	Size           uint64
	DirtyBlockSize uint64
}

func (e *SizeNotMultipleOfDirtyBlockError) Error() string {
	return fmt.Sprintf("size %d is not a multiple of dirty block size %d", e.Size, e.DirtyBlockSize)
}

// SetPermissionsOutOfBoundError is raised when a permission update's range
// extends past the end of a segment.
type SetPermissionsOutOfBoundError struct {
	End VirtAddr
	Len uint64
}

func (e *SetPermissionsOutOfBoundError) Error() string {
	return fmt.Sprintf("set_permissions end %s exceeds segment length %d", e.End, e.Len)
}

// UnsupportedError is raised by memory syscalls whose requested semantics
// this MMU deliberately does not implement (e.g. file-backed mmap).
type UnsupportedError struct {
	Op string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported mmu operation: %s", e.Op)
}

// FaultInfo is a flattened, serialization-friendly summary of one of the
// error types above, for attaching to a crash report without forcing the
// report package to know about every concrete MMU error type.
type FaultInfo struct {
	Kind   string
	Addr   VirtAddr
	Detail string
}

// DescribeFault extracts a FaultInfo from err if it's one of this package's
// fault types, or nil if err isn't MMU-shaped (e.g. a decode error from
// pkg/riscv, which the caller should describe some other way).
func DescribeFault(err error) *FaultInfo {
	switch e := err.(type) {
	case *OutOfBoundError:
		return &FaultInfo{Kind: "out_of_bound", Addr: e.Addr, Detail: e.Error()}
	case *PermissionsFault:
		kind := "permission_fault"
		if e.IsUninitializedRead() {
			kind = "uninitialized_read"
		}
		return &FaultInfo{Kind: kind, Addr: e.Addr, Detail: e.Error()}
	case *SegmentNotFoundError:
		return &FaultInfo{Kind: "segment_not_found", Addr: e.Addr, Detail: e.Error()}
	default:
		return nil
	}
}
