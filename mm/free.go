package mm

import "github.com/vkngwrapper/segalloc/memutils"

// Free returns the block at ptr to the heap. ptr must have come from Malloc or Realloc on
// this allocator and not been freed since; anything else corrupts the heap. Freeing Null
// does nothing.
func (a *Allocator) Free(ptr Ptr) {
	if ptr == Null {
		return
	}

	a.markFree(ptr)
	a.coalesce(ptr)

	memutils.DebugValidate(a)
}

// markFree turns an allocated block into an unlisted free block
func (a *Allocator) markFree(bp Ptr) {
	h := a.header(bp)
	h.alloc = false
	a.setHeader(bp, h)
	a.setPrevAlloc(a.nextBlock(bp), false)
	a.setFooter(bp, h.size)
	a.setSucc(bp, Null)
	a.setPred(bp, Null)
}

// coalesce merges the unlisted free block bp with whichever physical neighbours are free,
// inserts the result into the free lists and returns its address. When the previous block
// absorbs bp, that is the previous block's address.
func (a *Allocator) coalesce(bp Ptr) Ptr {
	h := a.header(bp)
	next := a.nextBlock(bp)
	nextAlloc := a.header(next).alloc
	size := h.size

	var flag int
	if h.prevAlloc {
		flag |= 2
	}
	if nextAlloc {
		flag |= 1
	}

	switch flag {
	// Both neighbours allocated
	case 3:
		a.insert(bp)

	// Next block free
	case 2:
		a.remove(next)
		size += a.blockSize(next)
		a.setHeader(bp, header{size: size, prevAlloc: true})
		a.setFooter(bp, size)
		a.insert(bp)

	// Previous block free
	case 1:
		prev := a.prevBlock(bp)
		a.remove(prev)
		size += a.blockSize(prev)
		a.setHeader(prev, header{size: size, prevAlloc: a.header(prev).prevAlloc})
		a.setFooter(prev, size)
		a.insert(prev)
		bp = prev

	// Both neighbours free
	case 0:
		prev := a.prevBlock(bp)
		a.remove(prev)
		a.remove(next)
		size += a.blockSize(prev) + a.blockSize(next)
		a.setHeader(prev, header{size: size, prevAlloc: a.header(prev).prevAlloc})
		a.setFooter(prev, size)
		a.insert(prev)
		bp = prev
	}

	return bp
}
