package trace

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/segalloc/memlib"
	"github.com/vkngwrapper/segalloc/memutils"
	"github.com/vkngwrapper/segalloc/mm"
	"golang.org/x/exp/slog"
)

var (
	// ErrInvalidBlock indicates that the allocator returned a block that is misaligned, lies
	// outside the heap, or overlaps another live block
	ErrInvalidBlock = errors.New("trace: allocator returned an invalid block")

	// ErrPayloadCorrupted indicates that a live block's contents changed while the block was
	// owned by the trace
	ErrPayloadCorrupted = errors.New("trace: payload corrupted")

	// ErrBadOp indicates an operation the trace cannot legally perform, such as freeing an id
	// that is not allocated
	ErrBadOp = errors.New("trace: invalid operation")
)

// Heap is the growth primitive a Replayer runs traces on. Its bounds are used to check that
// blocks lie inside the heap, and it is reset before every run.
type Heap interface {
	memlib.Heap
	Lo() int
	Hi() int
	Reset()
}

var _ Heap = &memlib.MemLib{}
var _ Heap = &memlib.Mapped{}

type Options struct {
	// Allocator configures the allocator created for each run
	Allocator mm.CreateOptions
	// Check runs the allocator's consistency checker after every operation
	Check bool
}

// Result summarizes one replayed trace
type Result struct {
	Name     string
	Ops      int
	Allocs   int
	Frees    int
	Reallocs int
	// PeakPayloadBytes is the largest total of requested bytes live at any point
	PeakPayloadBytes int
	// HeapBytes is the size of the heap when the trace finished
	HeapBytes int
	// Utilization is PeakPayloadBytes as a fraction of HeapBytes
	Utilization float64
}

type liveBlock struct {
	ptr  mm.Ptr
	size int
}

// Replayer runs traces against a fresh allocator each time, filling every block with a
// pattern derived from its id and verifying the pattern before the block is released.
type Replayer struct {
	logger  *slog.Logger
	heap    Heap
	options Options

	allocator    *mm.Allocator
	live         *swiss.Map[int, liveBlock]
	payloadBytes int
}

func NewReplayer(logger *slog.Logger, heap Heap, options Options) (*Replayer, error) {
	if heap == nil {
		return nil, errors.New("trace.NewReplayer: heap must not be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Replayer{
		logger:  logger,
		heap:    heap,
		options: options,
	}, nil
}

// Allocator is the allocator used by the most recent Run, or nil before the first
func (r *Replayer) Allocator() *mm.Allocator {
	return r.allocator
}

// Run resets the heap and replays trace against a new allocator. The first failure ends
// the run; the returned Result covers the operations completed before it.
func (r *Replayer) Run(trace *Trace) (Result, error) {
	result := Result{Name: trace.Name}

	r.heap.Reset()
	allocator, err := mm.New(r.logger, r.heap, r.options.Allocator)
	if err != nil {
		return result, err
	}
	r.allocator = allocator

	err = allocator.Init()
	if err != nil {
		return result, errors.Wrapf(err, "trace %s: init", trace.Name)
	}

	r.live = swiss.NewMap[int, liveBlock](uint32(memutils.Max(trace.IDCount, 1)))
	r.payloadBytes = 0

	for index, op := range trace.Ops {
		switch op.Kind {
		case OpAlloc:
			err = r.alloc(op)
			result.Allocs++
		case OpFree:
			err = r.free(op)
			result.Frees++
		case OpRealloc:
			err = r.realloc(op)
			result.Reallocs++
		}

		// debug_mem_utils builds already validate inside every allocator call
		if err == nil && r.options.Check && !memutils.DebugEnabled {
			err = allocator.Validate()
		}

		if err != nil {
			return result, errors.Wrapf(err, "trace %s: op %d (%s %d)", trace.Name, index, op.Kind, op.ID)
		}

		result.Ops++
		result.PeakPayloadBytes = memutils.Max(result.PeakPayloadBytes, r.payloadBytes)
	}

	result.HeapBytes = allocator.HeapSize()
	if result.HeapBytes > 0 {
		result.Utilization = float64(result.PeakPayloadBytes) / float64(result.HeapBytes)
	}

	r.logger.Debug("Replayer::Run",
		slog.String("trace", trace.Name),
		slog.Int("ops", result.Ops),
		slog.Int("peakPayloadBytes", result.PeakPayloadBytes),
		slog.Int("heapBytes", result.HeapBytes))

	return result, nil
}

func (r *Replayer) alloc(op Op) error {
	_, exists := r.live.Get(op.ID)
	if exists {
		return errors.Mark(errors.Newf("id %d is already allocated", op.ID), ErrBadOp)
	}

	ptr, err := r.allocator.Malloc(op.Size)
	if err != nil {
		return err
	}

	block := liveBlock{ptr: ptr, size: op.Size}
	err = r.checkBlock(op.ID, block)
	if err != nil {
		return err
	}

	r.fill(op.ID, block)
	r.live.Put(op.ID, block)
	r.payloadBytes += op.Size
	return nil
}

func (r *Replayer) free(op Op) error {
	block, exists := r.live.Get(op.ID)
	if !exists {
		return errors.Mark(errors.Newf("id %d is not allocated", op.ID), ErrBadOp)
	}

	err := r.verify(op.ID, block, block.size)
	if err != nil {
		return err
	}

	r.allocator.Free(block.ptr)
	r.live.Delete(op.ID)
	r.payloadBytes -= block.size
	return nil
}

// realloc of an id that is not live starts from Null, which allocates
func (r *Replayer) realloc(op Op) error {
	old, exists := r.live.Get(op.ID)
	if exists {
		err := r.verify(op.ID, old, old.size)
		if err != nil {
			return err
		}
	}

	ptr, err := r.allocator.Realloc(old.ptr, op.Size)
	if err != nil {
		return err
	}

	r.live.Delete(op.ID)
	r.payloadBytes -= old.size
	if ptr == mm.Null {
		return nil
	}

	block := liveBlock{ptr: ptr, size: op.Size}
	err = r.checkBlock(op.ID, block)
	if err != nil {
		return err
	}

	err = r.verify(op.ID, block, memutils.Min(old.size, op.Size))
	if err != nil {
		return err
	}

	r.fill(op.ID, block)
	r.live.Put(op.ID, block)
	r.payloadBytes += op.Size
	return nil
}

// checkBlock verifies that a new block is aligned, inside the heap, and disjoint from every
// other live block
func (r *Replayer) checkBlock(id int, block liveBlock) error {
	if !memutils.IsAligned(int(block.ptr), mm.Alignment) {
		return errors.Mark(errors.Newf("block for id %d at offset %d is not %d-byte aligned", id, block.ptr, mm.Alignment), ErrInvalidBlock)
	}

	start := int(block.ptr)
	end := start + block.size
	if start < r.heap.Lo() || end-1 > r.heap.Hi() {
		return errors.Mark(errors.Newf("block for id %d at [%d, %d) lies outside the heap [%d, %d]", id, start, end, r.heap.Lo(), r.heap.Hi()), ErrInvalidBlock)
	}

	if block.size == 0 {
		return nil
	}

	var err error
	r.live.Iter(func(otherID int, other liveBlock) bool {
		if otherID == id || other.size == 0 {
			return false
		}

		otherStart := int(other.ptr)
		otherEnd := otherStart + other.size
		if start < otherEnd && otherStart < end {
			err = errors.Mark(errors.Newf("block for id %d at [%d, %d) overlaps id %d at [%d, %d)", id, start, end, otherID, otherStart, otherEnd), ErrInvalidBlock)
			return true
		}
		return false
	})

	return err
}

func pattern(id, i int) byte {
	return byte(id*31 + i)
}

func (r *Replayer) fill(id int, block liveBlock) {
	payload := r.allocator.Payload(block.ptr)[:block.size]
	for i := range payload {
		payload[i] = pattern(id, i)
	}
}

// verify checks the first length bytes of block against id's pattern
func (r *Replayer) verify(id int, block liveBlock, length int) error {
	payload := r.allocator.Payload(block.ptr)[:length]
	for i, b := range payload {
		if b != pattern(id, i) {
			return errors.Mark(errors.Newf("block for id %d at offset %d has byte %d set to %d, expected %d", id, block.ptr, i, b, pattern(id, i)), ErrPayloadCorrupted)
		}
	}

	return nil
}
