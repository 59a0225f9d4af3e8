package mm

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/segalloc/memutils"
)

// Validate walks every block in the heap and every size class list and returns an error
// describing the first inconsistency it finds. It checks alignment, minimum sizes, header
// and footer agreement for free blocks, prev-alloc bits, that no two free blocks are
// adjacent, that every free block sits in exactly the list its size maps to, and that the
// list links agree in both directions.
//
// A correctly functioning allocator never fails validation. This is expensive and is meant
// for tests and trace replay; builds with the debug_mem_utils tag run it after every
// operation.
func (a *Allocator) Validate() error {
	if !a.initialized {
		return ErrNotInitialized
	}

	if !a.inBounds(hdrp(a.prologue), 2*WordSize) {
		return errors.Errorf("prologue at offset %d lies outside the heap", a.prologue)
	}

	prologue := a.header(a.prologue)
	if prologue.size != DoubleWordSize || !prologue.alloc {
		return errors.Errorf("prologue header is corrupt: size %d, allocated %t", prologue.size, prologue.alloc)
	}

	prologueFooter := unpackHeader(a.word(int(a.prologue)))
	if prologueFooter.size != DoubleWordSize || !prologueFooter.alloc {
		return errors.Errorf("prologue footer is corrupt: size %d, allocated %t", prologueFooter.size, prologueFooter.alloc)
	}

	var freeBlockCount int
	prevAlloc := true
	bp := a.prologue + DoubleWordSize

	for {
		if !a.inBounds(hdrp(bp), WordSize) {
			return errors.Errorf("block at offset %d has its header outside the heap", bp)
		}

		h := a.header(bp)
		if h.prevAlloc != prevAlloc {
			return errors.Errorf("block at offset %d has prev-alloc bit %t, but the previous block's allocation status is %t", bp, h.prevAlloc, prevAlloc)
		}

		if h.size == 0 {
			if !h.alloc {
				return errors.Errorf("epilogue at offset %d is not marked allocated", bp)
			}
			if hdrp(bp) != len(a.mem)-WordSize {
				return errors.Errorf("epilogue header at offset %d is not the last word of the heap (heap ends at %d)", hdrp(bp), len(a.mem))
			}
			break
		}

		if !memutils.IsAligned(int(bp), Alignment) {
			return errors.Errorf("block at offset %d is not %d-byte aligned", bp, Alignment)
		}

		if h.size < MinBlockSize || !memutils.IsAligned(h.size, Alignment) {
			return errors.Errorf("block at offset %d has invalid size %d", bp, h.size)
		}

		if !a.inBounds(hdrp(bp), h.size+WordSize) {
			return errors.Errorf("block at offset %d with size %d runs past the end of the heap", bp, h.size)
		}

		if !h.alloc {
			footer := unpackHeader(a.word(a.ftrp(bp)))
			if footer.size != h.size || footer.alloc {
				return errors.Errorf("free block at offset %d has header size %d but footer size %d, allocated %t", bp, h.size, footer.size, footer.alloc)
			}

			if !prevAlloc {
				return errors.Errorf("free block at offset %d is adjacent to the free block before it", bp)
			}

			freeBlockCount++
		}

		prevAlloc = h.alloc
		bp += Ptr(h.size)
	}

	var listedCount int
	for class := 0; class < a.classCount; class++ {
		prev := Null
		for block := a.head(class); block != Null; block = a.succ(block) {
			if !a.inBounds(hdrp(block), WordSize+2*DoubleWordSize) {
				return errors.Errorf("size class %d links to offset %d, which lies outside the heap", class, block)
			}

			h := a.header(block)
			if h.alloc {
				return errors.Errorf("block at offset %d is in size class %d but is not free", block, class)
			}

			if a.classOf(h.size) != class {
				return errors.Errorf("block at offset %d with size %d is in size class %d, but belongs in size class %d", block, h.size, class, a.classOf(h.size))
			}

			if a.pred(block) != prev {
				return errors.Errorf("block at offset %d lists the block at offset %d as its predecessor, but was reached from offset %d", block, a.pred(block), prev)
			}

			listedCount++
			if listedCount > freeBlockCount {
				return errors.Errorf("the free lists hold more blocks than the %d free blocks in the heap", freeBlockCount)
			}

			prev = block
		}
	}

	if listedCount != freeBlockCount {
		return errors.Errorf("the number of free blocks in the heap and in the free lists do not match! free lists: %d, heap: %d", listedCount, freeBlockCount)
	}

	return nil
}
