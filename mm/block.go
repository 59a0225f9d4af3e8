package mm

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

const (
	// WordSize is the size in bytes of a header or footer
	WordSize = 4
	// DoubleWordSize is the size in bytes of a free list link
	DoubleWordSize = 8
	// Alignment is the alignment of every payload and every block size
	Alignment = 8
	// MinBlockSize is the smallest block the allocator creates: a header, two links and a footer
	MinBlockSize = WordSize + 2*DoubleWordSize + WordSize

	// MaxBlockSize is the largest block the allocator will create. Header words could encode
	// up to 4Gb, but the limit is kept within a 32-bit int.
	MaxBlockSize = 1<<31 - Alignment

	allocBit     uint32 = 0x1
	prevAllocBit uint32 = 0x2
	sizeMask     uint32 = ^uint32(Alignment - 1)
)

// Ptr is the heap offset of a block's payload
type Ptr int

// Null is never the address of a payload: the lowest heap bytes always belong to the
// size class directory.
const Null Ptr = 0

// header is the unpacked form of a header or footer word
type header struct {
	size      int
	alloc     bool
	prevAlloc bool
}

func (h header) pack() uint32 {
	word := uint32(h.size) & sizeMask
	if h.alloc {
		word |= allocBit
	}
	if h.prevAlloc {
		word |= prevAllocBit
	}
	return word
}

func unpackHeader(word uint32) header {
	return header{
		size:      int(word & sizeMask),
		alloc:     word&allocBit != 0,
		prevAlloc: word&prevAllocBit != 0,
	}
}

// Raw heap access. Everything below is bounds checked against the allocator's own region;
// an access outside it means a caller broke the block format and is not recoverable.

func (a *Allocator) checkBounds(offset, length int) {
	if offset < a.lo || offset+length > len(a.mem) {
		panic(errors.AssertionFailedf("heap access [%d, %d) outside of heap [%d, %d)", offset, offset+length, a.lo, len(a.mem)))
	}
}

func (a *Allocator) inBounds(offset, length int) bool {
	return offset >= a.lo && offset+length <= len(a.mem)
}

func (a *Allocator) word(offset int) uint32 {
	a.checkBounds(offset, WordSize)
	return binary.LittleEndian.Uint32(a.mem[offset:])
}

func (a *Allocator) putWord(offset int, value uint32) {
	a.checkBounds(offset, WordSize)
	binary.LittleEndian.PutUint32(a.mem[offset:], value)
}

func (a *Allocator) doubleWord(offset int) uint64 {
	a.checkBounds(offset, DoubleWordSize)
	return binary.LittleEndian.Uint64(a.mem[offset:])
}

func (a *Allocator) putDoubleWord(offset int, value uint64) {
	a.checkBounds(offset, DoubleWordSize)
	binary.LittleEndian.PutUint64(a.mem[offset:], value)
}

// Block addressing

func hdrp(bp Ptr) int {
	return int(bp) - WordSize
}

func (a *Allocator) ftrp(bp Ptr) int {
	return int(bp) + a.blockSize(bp) - DoubleWordSize
}

func (a *Allocator) header(bp Ptr) header {
	return unpackHeader(a.word(hdrp(bp)))
}

func (a *Allocator) setHeader(bp Ptr, h header) {
	a.putWord(hdrp(bp), h.pack())
}

func (a *Allocator) blockSize(bp Ptr) int {
	return a.header(bp).size
}

// setFooter writes the footer of a free block of the given size. The footer never carries
// the prev-alloc bit, which would go stale as the preceding block changes state.
func (a *Allocator) setFooter(bp Ptr, size int) {
	a.putWord(int(bp)+size-DoubleWordSize, header{size: size}.pack())
}

func (a *Allocator) setAlloc(bp Ptr, alloc bool) {
	h := a.header(bp)
	h.alloc = alloc
	a.setHeader(bp, h)
}

func (a *Allocator) setPrevAlloc(bp Ptr, prevAlloc bool) {
	h := a.header(bp)
	h.prevAlloc = prevAlloc
	a.setHeader(bp, h)
}

func (a *Allocator) nextBlock(bp Ptr) Ptr {
	return bp + Ptr(a.blockSize(bp))
}

// prevBlock is only meaningful when bp's prev-alloc bit is clear: allocated blocks have no
// footer to read the size from.
func (a *Allocator) prevBlock(bp Ptr) Ptr {
	return bp - Ptr(unpackHeader(a.word(int(bp)-DoubleWordSize)).size)
}

// Free list links, stored in the first two double words of a free block's payload

func (a *Allocator) succ(bp Ptr) Ptr {
	return Ptr(a.doubleWord(int(bp)))
}

func (a *Allocator) pred(bp Ptr) Ptr {
	return Ptr(a.doubleWord(int(bp) + DoubleWordSize))
}

func (a *Allocator) setSucc(bp Ptr, succ Ptr) {
	a.putDoubleWord(int(bp), uint64(succ))
}

func (a *Allocator) setPred(bp Ptr, pred Ptr) {
	a.putDoubleWord(int(bp)+DoubleWordSize, uint64(pred))
}
