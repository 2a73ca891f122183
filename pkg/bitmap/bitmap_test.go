package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetReset(t *testing.T) {
	b := New(128)
	assert.False(t, b.Get(5))
	b.Set(5)
	assert.True(t, b.Get(5))
	b.Reset(5)
	assert.False(t, b.Get(5))
}

func TestResetWideClearsWholeWord(t *testing.T) {
	b := New(128)
	b.Set(3)
	b.Set(10)
	b.Set(63)
	b.Set(64) // lives in the next word

	b.ResetWide(10)

	assert.False(t, b.Get(3))
	assert.False(t, b.Get(10))
	assert.False(t, b.Get(63))
	assert.True(t, b.Get(64), "ResetWide must not touch bits outside the target word")
}

func TestResizePreservesContents(t *testing.T) {
	b := New(64)
	b.Set(10)
	b.Resize(256)
	require.Equal(t, 256, b.Len())
	assert.True(t, b.Get(10))
	b.Set(200)
	assert.True(t, b.Get(200))
}

func TestClear(t *testing.T) {
	b := New(128)
	b.Set(1)
	b.Set(100)
	b.Clear()
	assert.False(t, b.Get(1))
	assert.False(t, b.Get(100))
}
