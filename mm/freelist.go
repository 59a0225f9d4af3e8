package mm

import "math/bits"

// classOf maps a block size to its size class. It is monotonic, so scanning classes upward
// from classOf(size) never skips a block that could satisfy size.
func (a *Allocator) classOf(size int) int {
	if size <= MinBlockSize {
		return 0
	}

	class := bits.Len(uint((size - 1) / MinBlockSize))
	if class >= a.classCount {
		return a.classCount - 1
	}

	return class
}

func (a *Allocator) head(class int) Ptr {
	return Ptr(a.doubleWord(a.directory + class*DoubleWordSize))
}

func (a *Allocator) setHead(class int, bp Ptr) {
	a.putDoubleWord(a.directory+class*DoubleWordSize, uint64(bp))
}

// insert pushes a free block onto the front of its size class list
func (a *Allocator) insert(bp Ptr) {
	class := a.classOf(a.blockSize(bp))
	top := a.head(class)

	a.setPred(bp, Null)
	a.setSucc(bp, top)
	if top != Null {
		a.setPred(top, bp)
	}
	a.setHead(class, bp)
}

// remove unlinks a free block from its size class list. The block's size must not have
// changed since it was inserted.
func (a *Allocator) remove(bp Ptr) {
	pred := a.pred(bp)
	succ := a.succ(bp)

	var flag int
	if pred != Null {
		flag |= 2
	}
	if succ != Null {
		flag |= 1
	}

	switch flag {
	// Only block in the list
	case 0:
		a.setHead(a.classOf(a.blockSize(bp)), Null)
	// Head of the list
	case 1:
		a.setPred(succ, Null)
		a.setHead(a.classOf(a.blockSize(bp)), succ)
	// Tail of the list
	case 2:
		a.setSucc(pred, Null)
	// Interior
	case 3:
		a.setSucc(pred, succ)
		a.setPred(succ, pred)
	}
}

// find returns the first block large enough for size, searching size classes upward from
// the one size belongs to, or Null if there is none.
func (a *Allocator) find(size int) Ptr {
	for class := a.classOf(size); class < a.classCount; class++ {
		for bp := a.head(class); bp != Null; bp = a.succ(bp) {
			if a.blockSize(bp) >= size {
				return bp
			}
		}
	}

	return Null
}
