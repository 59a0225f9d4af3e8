// Package memlib models the sbrk-style growth primitive that a heap allocator sits on:
// one contiguous region that only ever grows at its break and never moves.
package memlib

import (
	"github.com/cockroachdb/errors"
)

//go:generate mockgen -source=memlib.go -destination=mocks/heap.go -package=mocks

// DefaultMaxHeap is the capacity used when New is passed a non-positive size. It is
// equal to 20Mb.
const DefaultMaxHeap int = 20 * (1 << 20)

// Heap is a growable, contiguous byte region addressed by offsets from its start.
type Heap interface {
	// Sbrk extends the heap by incr bytes and returns the offset of the old break, which is
	// the first byte of the new region. Sbrk(0) reports the current break. Implementations
	// return an error wrapping ErrHeapExhausted when the request cannot be satisfied and
	// leave the break untouched.
	Sbrk(incr int) (int, error)
	// Bytes returns the heap contents from offset 0 up to the current break. Bytes already
	// handed out keep their values after a successful Sbrk, but callers should fetch a
	// fresh slice to see the grown region.
	Bytes() []byte
}

// MemLib is a Heap over a fixed-capacity buffer that is reserved up front, so the heap
// never relocates as it grows.
type MemLib struct {
	mem []byte
	brk int
}

var _ Heap = &MemLib{}

// New reserves maxHeap bytes and returns an empty MemLib over them
func New(maxHeap int) *MemLib {
	if maxHeap <= 0 {
		maxHeap = DefaultMaxHeap
	}

	return NewFromBuffer(make([]byte, maxHeap))
}

// NewFromBuffer returns an empty MemLib that grows into buf. buf must not be used by
// anything else for as long as the MemLib is alive.
func NewFromBuffer(buf []byte) *MemLib {
	return &MemLib{mem: buf}
}

func (m *MemLib) Sbrk(incr int) (int, error) {
	if incr < 0 {
		return -1, errors.Wrapf(ErrHeapExhausted, "sbrk: negative increment %d", incr)
	}

	if incr > len(m.mem)-m.brk {
		return -1, errors.Wrapf(ErrHeapExhausted, "sbrk: %d bytes requested with %d of %d bytes in use", incr, m.brk, len(m.mem))
	}

	old := m.brk
	m.brk += incr
	return old, nil
}

func (m *MemLib) Bytes() []byte {
	return m.mem[:m.brk:m.brk]
}

// Reset moves the break back to the start of the heap. The contents are not cleared.
func (m *MemLib) Reset() {
	m.brk = 0
}

// Lo is the offset of the first heap byte
func (m *MemLib) Lo() int { return 0 }

// Hi is the offset of the last heap byte, or -1 when the heap is empty
func (m *MemLib) Hi() int { return m.brk - 1 }

// Size is the number of bytes below the break
func (m *MemLib) Size() int { return m.brk }

// MaxSize is the number of bytes the heap can grow to
func (m *MemLib) MaxSize() int { return len(m.mem) }
