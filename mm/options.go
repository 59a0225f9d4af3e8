package mm

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/segalloc/memutils"
)

const (
	// DefaultChunkSize is the value that is used as the ChunkSize when none is provided via
	// CreateOptions. It is equal to 4Kb.
	DefaultChunkSize int = 1 << 12
	// DefaultSizeClassCount is the value that is used as the SizeClassCount when none is
	// provided via CreateOptions.
	DefaultSizeClassCount int = 10
)

// CreateOptions contains optional settings when creating an allocator. It is valid to leave
// all the fields blank.
type CreateOptions struct {
	// ChunkSize is the granularity of heap growth in bytes: every extension requested from the
	// growth primitive is a multiple of it. It must be a power of two and at least MinBlockSize.
	ChunkSize int
	// SizeClassCount is the number of segregated free lists. The last list holds every block
	// too large for the others.
	SizeClassCount int
}

func (o CreateOptions) withDefaults() CreateOptions {
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}

	if o.SizeClassCount == 0 {
		o.SizeClassCount = DefaultSizeClassCount
	}

	return o
}

func (o CreateOptions) validate() error {
	err := memutils.CheckPow2(o.ChunkSize, "mm.CreateOptions.ChunkSize")
	if err != nil {
		return err
	}

	if o.ChunkSize < MinBlockSize {
		return errors.Newf("mm.CreateOptions.ChunkSize is %d, but must be at least %d", o.ChunkSize, MinBlockSize)
	}

	if o.SizeClassCount < 1 {
		return errors.Newf("mm.CreateOptions.SizeClassCount is %d, but must be at least 1", o.SizeClassCount)
	}

	return nil
}
