// Package mm implements a malloc-style allocator over a memlib.Heap using segregated
// explicit free lists and boundary tags.
//
// # Block format
//
// Every block starts with a 4-byte header word holding the block size (a multiple of 8)
// in its upper bits, the block's own allocation bit in bit 0, and the allocation status
// of the physically preceding block in bit 1. Pointers handed out by Malloc address the
// payload, which begins right after the header and is always 8-byte aligned.
//
// Free blocks additionally carry a footer (a copy of the size with the allocation bit
// clear) in their last word, and two 8-byte links at the start of the payload threading
// them into a size class list:
//
//	allocated: [hdr size|p|1][payload .................................]
//	free:      [hdr size|p|0][succ][pred][unused ............][ftr size|0]
//
// Allocated blocks do not pay for a footer. A block learns whether its predecessor is
// free from its own prev-alloc bit, and only reads the predecessor's footer when it is.
// The smallest block is 24 bytes: header, two links, footer.
//
// # Heap layout
//
//	[pad][size class heads][pad word][prologue 8|1][prologue ftr][blocks ...][epilogue 0|1]
//
// The prologue and epilogue are permanently allocated sentinels, so neighbour lookups
// never need a bounds check at either end of the heap. The size class heads live in the
// heap itself and were obtained from the growth primitive during Init.
//
// # Size classes
//
// Class 0 holds blocks of the minimum size. Class k ≥ 1 holds blocks whose size satisfies
// 1 + floor(log2((size-1)/24)) == k, and the last class takes everything larger. Lists are
// LIFO; Malloc scans classes upward from the request's class and takes the first block in
// a list that is large enough.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Each instance owns its heap exclusively.
package mm
