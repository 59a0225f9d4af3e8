package mm

import "github.com/cockroachdb/errors"

var (
	// ErrOutOfMemory indicates that the heap could not be extended to satisfy a request.
	// The underlying growth primitive error remains reachable with errors.Is.
	ErrOutOfMemory = errors.New("mm: out of memory")

	// ErrInvalidSize indicates a negative request size, or one too large to encode in a block header.
	ErrInvalidSize = errors.New("mm: invalid allocation size")

	// ErrNotInitialized indicates an operation on an allocator whose Init has not succeeded.
	ErrNotInitialized = errors.New("mm: allocator has not been initialized")
)
