package mmu

import "fmt"

// VirtAddr is an opaque 64-bit guest address. Arithmetic against it is
// explicit; it is never implicitly mixed with host pointers.
type VirtAddr uint64

// String renders the address the way a debugger would.
func (a VirtAddr) String() string {
	return fmt.Sprintf("0x%016x", uint64(a))
}

// Add returns a+delta.
func (a VirtAddr) Add(delta uint64) VirtAddr {
	return a + VirtAddr(delta)
}

// Sub returns a-delta.
func (a VirtAddr) Sub(delta uint64) VirtAddr {
	return a - VirtAddr(delta)
}

// AlignUp rounds a up to the next multiple of align (align must be a power
// of two).
func (a VirtAddr) AlignUp(align uint64) VirtAddr {
	mask := VirtAddr(align - 1)
	return (a + mask) &^ mask
}
