package mmu

// Config tunes the MMU's tracking granularity and optional features.
type Config struct {
	// DirtyBlockSize is the restoration granularity, in bytes. Must be a
	// multiple of 64. Lower means finer-grained (cheaper) restores and more
	// bookkeeping; higher means fewer, larger memcpys.
	DirtyBlockSize uint64

	// RAW enables read-after-write arming: a byte with PermRAW set but not
	// PermRead traps on read until the first write.
	RAW bool

	// Taint enables taint propagation: a PermToTaint byte gains PermTainted
	// the first time it's read.
	Taint bool

	// SegmentRedzone is the gap left between automatically allocated
	// segments (those created without an explicit address).
	SegmentRedzone uint64

	// AutoAllocBase is the first address handed out by the rolling
	// allocation cursor when a segment is allocated without an explicit
	// address.
	AutoAllocBase VirtAddr
}

// DefaultConfig returns the MMU's documented defaults.
func DefaultConfig() Config {
	return Config{
		DirtyBlockSize: 256,
		RAW:            true,
		Taint:          true,
		SegmentRedzone: 4096,
		AutoAllocBase:  VirtAddr(0x0000004000000000),
	}
}
