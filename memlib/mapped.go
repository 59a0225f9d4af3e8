package memlib

// Mapped is a MemLib whose buffer is an anonymous memory mapping where the platform
// supports one. Pages are only committed as the allocator touches them, so large
// maximum sizes are cheap to reserve.
type Mapped struct {
	MemLib
	release func() error
}

// NewMapped reserves maxHeap bytes of address space and returns an empty heap over them.
// Close must be called to release the reservation.
func NewMapped(maxHeap int) (*Mapped, error) {
	if maxHeap <= 0 {
		maxHeap = DefaultMaxHeap
	}

	buf, release, err := reserve(maxHeap)
	if err != nil {
		return nil, err
	}

	return &Mapped{
		MemLib:  MemLib{mem: buf},
		release: release,
	}, nil
}

// Close releases the reservation. The heap must not be used afterward.
func (m *Mapped) Close() error {
	if m.release == nil {
		return nil
	}

	err := m.release()
	m.release = nil
	m.mem = nil
	m.brk = 0
	return err
}
