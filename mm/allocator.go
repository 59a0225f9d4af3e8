package mm

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/segalloc/memlib"
	"github.com/vkngwrapper/segalloc/memutils"
	"golang.org/x/exp/slog"
)

// Allocator hands out blocks of a memlib.Heap. All of its state other than a few offsets
// lives in the heap bytes themselves.
type Allocator struct {
	heap   memlib.Heap
	logger *slog.Logger

	chunkSize  int
	classCount int

	mem         []byte
	lo          int
	directory   int
	prologue    Ptr
	initialized bool
}

var _ memutils.Validatable = &Allocator{}

// New creates an Allocator over heap. Init must succeed before the allocator is used.
//
// logger - receives debug-level records for heap growth; slog.Default() is used when nil
//
// heap - the growth primitive; the allocator assumes it is the only user of the heap
// from the first Init onward
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, heap memlib.Heap, options CreateOptions) (*Allocator, error) {
	if heap == nil {
		return nil, errors.New("mm.New: heap must not be nil")
	}

	options = options.withDefaults()
	err := options.validate()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Allocator{
		heap:       heap,
		logger:     logger,
		chunkSize:  options.ChunkSize,
		classCount: options.SizeClassCount,
	}, nil
}

// Init lays out a fresh heap at the current break: the size class directory, the prologue
// and epilogue sentinels, and one chunk of free space. Calling Init again abandons every
// block handed out before and starts over above them.
func (a *Allocator) Init() error {
	a.initialized = false
	a.mem = a.heap.Bytes()

	brk, err := a.sbrk(0)
	if err != nil {
		return err
	}

	pad := memutils.AlignUp(brk, Alignment) - brk
	directorySize := memutils.AlignUp(a.classCount*DoubleWordSize, Alignment)
	base, err := a.sbrk(pad + directorySize)
	if err != nil {
		return err
	}

	a.lo = base
	a.directory = base + pad
	for class := 0; class < a.classCount; class++ {
		a.setHead(class, Null)
	}

	start, err := a.sbrk(4 * WordSize)
	if err != nil {
		return err
	}

	a.putWord(start, 0)
	a.putWord(start+WordSize, header{size: DoubleWordSize, alloc: true, prevAlloc: true}.pack())
	a.putWord(start+2*WordSize, header{size: DoubleWordSize, alloc: true}.pack())
	a.putWord(start+3*WordSize, header{size: 0, alloc: true, prevAlloc: true}.pack())
	a.prologue = Ptr(start + 2*WordSize)

	_, err = a.extend(a.chunkSize / WordSize)
	if err != nil {
		return err
	}

	a.initialized = true
	a.logger.Debug("Allocator::Init",
		slog.Int("directory", a.directory),
		slog.Int("sizeClasses", a.classCount),
		slog.Int("heapBytes", a.HeapSize()))

	memutils.DebugValidate(a)
	return nil
}

// HeapSize is the number of heap bytes managed by the allocator, sentinels and directory
// included
func (a *Allocator) HeapSize() int {
	return len(a.mem) - a.lo
}

// ChunkSize is the granularity of heap growth in bytes
func (a *Allocator) ChunkSize() int { return a.chunkSize }

// SizeClassCount is the number of segregated free lists
func (a *Allocator) SizeClassCount() int { return a.classCount }

func (a *Allocator) sbrk(incr int) (int, error) {
	old, err := a.heap.Sbrk(incr)
	if err != nil {
		a.logger.Warn("heap growth failed",
			slog.Int("bytes", incr),
			slog.Any("error", err))
		return 0, errors.Mark(errors.Wrapf(err, "grow heap by %d bytes", incr), ErrOutOfMemory)
	}

	a.mem = a.heap.Bytes()
	if old+incr != len(a.mem) {
		return 0, errors.AssertionFailedf("heap break moved from %d to %d after growing by %d bytes", old, len(a.mem), incr)
	}

	return old, nil
}

// extend grows the heap by words words, rounded up to keep the heap double-word aligned,
// and returns the resulting free block after merging it with any free block that ended
// the heap before.
func (a *Allocator) extend(words int) (Ptr, error) {
	size := words * WordSize
	if words%2 != 0 {
		size = (words + 1) * WordSize
	}

	old, err := a.sbrk(size)
	if err != nil {
		return Null, err
	}

	// The old epilogue header becomes the new block's header
	bp := Ptr(old)
	prevAlloc := a.header(bp).prevAlloc
	a.setHeader(bp, header{size: size, prevAlloc: prevAlloc})
	a.setFooter(bp, size)
	a.setSucc(bp, Null)
	a.setPred(bp, Null)
	a.setHeader(a.nextBlock(bp), header{size: 0, alloc: true})

	a.logger.Debug("Allocator::extend",
		slog.Int("bytes", size),
		slog.Int("heapBytes", a.HeapSize()))

	return a.coalesce(bp), nil
}
