package mm

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/segalloc/memutils"
)

// blockSizeFor is the size of the block that serves a request of size payload bytes
func blockSizeFor(size int) int {
	return memutils.AlignUp(memutils.Max(MinBlockSize, size+WordSize), Alignment)
}

// Malloc returns the address of a block with at least size usable payload bytes. A size of
// 0 is valid and yields a minimum-sized block. The returned address is 8-byte aligned.
//
// Malloc fails only when the heap cannot be extended, with an error matching
// ErrOutOfMemory, or when size is negative or too large to encode, with ErrInvalidSize.
func (a *Allocator) Malloc(size int) (Ptr, error) {
	if !a.initialized {
		return Null, ErrNotInitialized
	}

	if size < 0 || size > MaxBlockSize-Alignment {
		return Null, errors.Wrapf(ErrInvalidSize, "malloc %d bytes", size)
	}

	needed := blockSizeFor(size)
	bp := a.find(needed)
	if bp == Null {
		memutils.DebugCheckPow2(a.chunkSize, "chunk size")
		extendSize := memutils.AlignUp(needed, a.chunkSize)

		var err error
		bp, err = a.extend(extendSize / WordSize)
		if err != nil {
			return Null, errors.Wrapf(err, "malloc %d bytes", size)
		}
	}

	a.place(bp, needed)

	memutils.DebugValidate(a)
	return bp, nil
}

// place carves an allocated block of needed bytes out of the free block bp, returning the
// tail to the free lists when it is big enough to stand on its own.
func (a *Allocator) place(bp Ptr, needed int) {
	h := a.header(bp)
	a.remove(bp)

	if h.size-needed < MinBlockSize {
		a.setHeader(bp, header{size: h.size, alloc: true, prevAlloc: h.prevAlloc})
		a.setPrevAlloc(a.nextBlock(bp), true)
		return
	}

	a.setHeader(bp, header{size: needed, alloc: true, prevAlloc: h.prevAlloc})

	rest := a.nextBlock(bp)
	a.setHeader(rest, header{size: h.size - needed, prevAlloc: true})
	a.setFooter(rest, h.size-needed)
	a.insert(rest)
}

// UsableSize is the number of payload bytes in the allocated block at ptr, which may exceed
// the size it was requested with
func (a *Allocator) UsableSize(ptr Ptr) int {
	return a.blockSize(ptr) - WordSize
}

// Payload returns the usable bytes of the allocated block at ptr. The slice aliases the
// heap and is only valid until the block is freed or reallocated.
func (a *Allocator) Payload(ptr Ptr) []byte {
	end := int(ptr) + a.UsableSize(ptr)
	a.checkBounds(int(ptr), end-int(ptr))
	return a.mem[ptr:end:end]
}
