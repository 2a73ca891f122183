package mmu

import "rvfuzz/pkg/bitmap"

// DirtyTracker records which fixed-size blocks of a segment have been
// mutated since the last drain, guaranteeing at most one entry per block
// between successive drains.
type DirtyTracker struct {
	indices []int
	present *bitmap.Bitmap
}

// newDirtyTracker returns a tracker able to track nBlocks distinct block
// indices.
func newDirtyTracker(nBlocks int) *DirtyTracker {
	return &DirtyTracker{
		indices: make([]int, 0, nBlocks),
		present: bitmap.New(nBlocks),
	}
}

// Mark records block as dirty. Idempotent: marking an already-dirty block
// is a no-op.
func (d *DirtyTracker) Mark(block int) {
	if d.present.Get(block) {
		return
	}
	d.indices = append(d.indices, block)
	d.present.Set(block)
}

// Drain returns every marked block index in the order it was first marked,
// and resets the tracker to empty (capacity is retained, no reallocation).
func (d *DirtyTracker) Drain() []int {
	drained := d.indices
	for _, idx := range drained {
		d.present.ResetWide(idx)
	}
	d.indices = d.indices[:0]
	return drained
}

// Len reports how many blocks are currently marked dirty.
func (d *DirtyTracker) Len() int {
	return len(d.indices)
}

// resize grows the tracker's backing bitmap to cover nBlocks blocks.
func (d *DirtyTracker) resize(nBlocks int) {
	d.present.Resize(nBlocks)
}
