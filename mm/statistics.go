package mm

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/segalloc/memutils"
	"golang.org/x/exp/slog"
)

// VisitAllBlocks calls handleBlock for every block between the prologue and the epilogue,
// in address order, and stops at the first error it returns. size is the whole block
// size, header included.
func (a *Allocator) VisitAllBlocks(handleBlock func(ptr Ptr, size int, free bool) error) error {
	if !a.initialized {
		return ErrNotInitialized
	}

	for bp := a.prologue + DoubleWordSize; ; {
		h := a.header(bp)
		if h.size == 0 {
			return nil
		}

		err := handleBlock(bp, h.size, !h.alloc)
		if err != nil {
			return err
		}

		bp += Ptr(h.size)
	}
}

// AddStatistics sums this heap's statistics into stats
func (a *Allocator) AddStatistics(stats *memutils.Statistics) {
	var detailed memutils.DetailedStatistics
	detailed.Clear()
	a.AddDetailedStatistics(&detailed)

	stats.AddStatistics(&detailed.Statistics)
}

// AddDetailedStatistics sums this heap's per-block statistics into stats
func (a *Allocator) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.HeapBytes += a.HeapSize()

	_ = a.VisitAllBlocks(func(ptr Ptr, size int, free bool) error {
		if free {
			stats.AddFreeBlock(size)
		} else {
			stats.AddAllocation(size)
		}
		return nil
	})
}

// FreeListLengths returns the number of blocks in each size class list
func (a *Allocator) FreeListLengths() []int {
	lengths := make([]int, a.classCount)
	if !a.initialized {
		return lengths
	}

	for class := range lengths {
		for bp := a.head(class); bp != Null; bp = a.succ(bp) {
			lengths[class]++
		}
	}

	return lengths
}

// PrintDetailedMap populates a json object with the heap's totals, the length of every size
// class list and one entry per block
func (a *Allocator) PrintDetailedMap(json *jwriter.ObjectState) {
	var stats memutils.DetailedStatistics
	stats.Clear()
	a.AddDetailedStatistics(&stats)

	json.Name("TotalBytes").Int(stats.HeapBytes)
	json.Name("UnusedBytes").Int(stats.FreeBytes)
	json.Name("Allocations").Int(stats.AllocationCount)
	json.Name("UnusedRanges").Int(stats.FreeBlockCount)

	classes := json.Name("SizeClasses").Array()
	for _, length := range a.FreeListLengths() {
		classes.Int(length)
	}
	classes.End()

	blocks := json.Name("Blocks").Array()
	defer blocks.End()

	_ = a.VisitAllBlocks(func(ptr Ptr, size int, free bool) error {
		obj := blocks.Object()
		defer obj.End()

		obj.Name("Offset").Int(int(ptr))
		obj.Name("Size").Int(size)
		if free {
			obj.Name("Type").String("FREE")
		} else {
			obj.Name("Type").String("ALLOCATED")
		}
		return nil
	})
}

// DebugLogAllAllocations writes one debug record per allocated block to the allocator's
// logger
func (a *Allocator) DebugLogAllAllocations() {
	_ = a.VisitAllBlocks(func(ptr Ptr, size int, free bool) error {
		if !free {
			a.logger.Debug("allocated block",
				slog.Int("offset", int(ptr)),
				slog.Int("size", size))
		}
		return nil
	})
}
