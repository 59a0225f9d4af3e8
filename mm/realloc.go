package mm

import "github.com/vkngwrapper/segalloc/memutils"

// Realloc moves the block at ptr into a new block with at least size usable bytes and
// returns the new address. The first min(UsableSize(ptr), size) bytes are carried over.
// The block is always moved, even when it is already large enough.
//
// Realloc(Null, size) behaves as Malloc(size). Realloc(ptr, 0) frees ptr and returns Null
// with no error. If the new block cannot be allocated the error is returned and the block
// at ptr is left exactly as it was.
func (a *Allocator) Realloc(ptr Ptr, size int) (Ptr, error) {
	if ptr == Null {
		return a.Malloc(size)
	}

	if size == 0 {
		a.Free(ptr)
		return Null, nil
	}

	newPtr, err := a.Malloc(size)
	if err != nil {
		return Null, err
	}

	copySize := memutils.Min(a.UsableSize(ptr), size)
	copy(a.Payload(newPtr), a.Payload(ptr)[:copySize])
	a.Free(ptr)

	return newPtr, nil
}
