// Package bufmgr hands out payload buffers for a single socket call. Small
// payloads live in a caller-owned scratch region; larger ones come from a
// shared byte pool and must be released before the call returns.
package bufmgr

import (
	"errors"
	"fmt"
	"sync/atomic"

	pool "github.com/libp2p/go-buffer-pool"
)

// ScratchSize is the largest payload served from a Scratch region.
const ScratchSize = 4096

// DefaultMaxHeapSize caps a single heap acquisition.
const DefaultMaxHeapSize = 64 << 20

var (
	ErrOutOfMemory    = errors.New("heap allocation failed")
	ErrNegativeLength = errors.New("negative buffer length")
)

// Scratch is a fixed region owned by whoever declares it. Only one Buffer
// carved from a given Scratch may be live at a time.
type Scratch [ScratchSize]byte

// Buffer is the result of Acquire. Release it exactly once per acquisition;
// extra calls are harmless.
type Buffer struct {
	b    []byte
	heap bool
	mgr  *Manager
}

func (buf *Buffer) Bytes() []byte {
	return buf.b
}

func (buf *Buffer) Len() int {
	return len(buf.b)
}

// IsHeap reports whether the buffer came from the pool rather than scratch.
func (buf *Buffer) IsHeap() bool {
	return buf.heap
}

func (buf *Buffer) Release() {
	if buf.heap {
		buf.mgr.pool.Put(buf.b)
		buf.mgr.outstanding.Add(-1)
		buf.heap = false
	}
	buf.b = nil
}

type Stats struct {
	ScratchAcquired int64
	HeapAcquired    int64
	Outstanding     int64
}

type Manager struct {
	// MaxHeapSize is the ceiling for one heap acquisition, in bytes.
	MaxHeapSize int

	pool *pool.BufferPool

	scratchAcquired atomic.Int64
	heapAcquired    atomic.Int64
	outstanding     atomic.Int64
}

func NewManager() *Manager {
	return &Manager{
		MaxHeapSize: DefaultMaxHeapSize,
		pool:        pool.GlobalPool,
	}
}

// Acquire returns a buffer of exactly length bytes. Lengths up to ScratchSize
// are carved out of scratch without allocating.
func (m *Manager) Acquire(scratch *Scratch, length int) (buf Buffer, err error) {
	if length < 0 {
		return Buffer{}, ErrNegativeLength
	}
	if length <= ScratchSize && scratch != nil {
		m.scratchAcquired.Add(1)
		return Buffer{b: scratch[:length], mgr: m}, nil
	}
	if m.MaxHeapSize > 0 && length > m.MaxHeapSize {
		return Buffer{}, fmt.Errorf("%w: %d bytes exceeds the %d byte ceiling", ErrOutOfMemory, length, m.MaxHeapSize)
	}

	defer func() {
		if r := recover(); r != nil {
			buf = Buffer{}
			err = fmt.Errorf("%w: %v", ErrOutOfMemory, r)
		}
	}()

	b := m.pool.Get(length)
	if b == nil && length > 0 {
		return Buffer{}, ErrOutOfMemory
	}
	m.heapAcquired.Add(1)
	m.outstanding.Add(1)
	return Buffer{b: b[:length], heap: true, mgr: m}, nil
}

func (m *Manager) Stats() Stats {
	return Stats{
		ScratchAcquired: m.scratchAcquired.Load(),
		HeapAcquired:    m.heapAcquired.Load(),
		Outstanding:     m.outstanding.Load(),
	}
}
