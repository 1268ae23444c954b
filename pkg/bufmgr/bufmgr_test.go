package bufmgr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireScratch(t *testing.T) {
	m := NewManager()
	var scratch Scratch

	for _, n := range []int{0, 1, 100, ScratchSize} {
		buf, err := m.Acquire(&scratch, n)
		require.NoError(t, err)
		assert.False(t, buf.IsHeap())
		assert.Equal(t, n, buf.Len())
		if n > 0 {
			// the buffer aliases the scratch region
			buf.Bytes()[0] = 0xab
			assert.Equal(t, byte(0xab), scratch[0])
		}
		buf.Release()
		assert.Nil(t, buf.Bytes())
	}

	stats := m.Stats()
	assert.Equal(t, int64(4), stats.ScratchAcquired)
	assert.Equal(t, int64(0), stats.HeapAcquired)
}

func TestAcquireHeap(t *testing.T) {
	m := NewManager()
	var scratch Scratch

	buf, err := m.Acquire(&scratch, ScratchSize+1)
	require.NoError(t, err)
	assert.True(t, buf.IsHeap())
	assert.Equal(t, ScratchSize+1, buf.Len())
	assert.Equal(t, int64(1), m.Stats().Outstanding)

	buf.Release()
	assert.Equal(t, int64(0), m.Stats().Outstanding)

	// a second release must not return the buffer to the pool twice
	buf.Release()
	assert.Equal(t, int64(0), m.Stats().Outstanding)
	assert.Equal(t, int64(1), m.Stats().HeapAcquired)
}

func TestAcquireWithoutScratchUsesHeap(t *testing.T) {
	m := NewManager()
	buf, err := m.Acquire(nil, 10)
	require.NoError(t, err)
	assert.True(t, buf.IsHeap())
	buf.Release()
	assert.Equal(t, int64(0), m.Stats().Outstanding)
}

func TestAcquireOutOfMemory(t *testing.T) {
	m := NewManager()
	m.MaxHeapSize = 8192
	var scratch Scratch

	_, err := m.Acquire(&scratch, 8193)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfMemory))
	assert.Equal(t, int64(0), m.Stats().Outstanding)
	assert.Equal(t, int64(0), m.Stats().HeapAcquired)

	buf, err := m.Acquire(&scratch, 8192)
	require.NoError(t, err)
	buf.Release()
}

func TestAcquireNegative(t *testing.T) {
	m := NewManager()
	var scratch Scratch
	_, err := m.Acquire(&scratch, -1)
	assert.ErrorIs(t, err, ErrNegativeLength)
}
