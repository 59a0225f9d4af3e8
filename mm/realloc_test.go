package mm_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/segalloc/memlib"
	"github.com/vkngwrapper/segalloc/mm"
)

func TestReallocGrowPreservesPrefix(t *testing.T) {
	allocator := newAllocator(t, memlib.DefaultMaxHeap)

	ptr := malloc(t, allocator, 100)
	fill(allocator.Payload(ptr)[:100], 11)

	grown, err := allocator.Realloc(ptr, 300)
	require.NoError(t, err)
	require.Equal(t, mm.Ptr(200), grown)
	require.GreaterOrEqual(t, allocator.UsableSize(grown), 300)
	requireFilled(t, allocator.Payload(grown)[:100], 11)

	require.Equal(t, []block{
		{Ptr: 96, Size: 104, Free: true},
		{Ptr: 200, Size: 304},
		{Ptr: 504, Size: 3688, Free: true},
	}, blocks(t, allocator))
	require.NoError(t, allocator.Validate())
}

func TestReallocShrinkPreservesPrefix(t *testing.T) {
	allocator := newAllocator(t, memlib.DefaultMaxHeap)

	ptr := malloc(t, allocator, 500)
	fill(allocator.Payload(ptr), 3)

	shrunk, err := allocator.Realloc(ptr, 10)
	require.NoError(t, err)
	require.NotEqual(t, ptr, shrunk)
	requireFilled(t, allocator.Payload(shrunk)[:10], 3)
	require.NoError(t, allocator.Validate())
}

func TestReallocNullIsMalloc(t *testing.T) {
	allocator := newAllocator(t, memlib.DefaultMaxHeap)

	ptr, err := allocator.Realloc(mm.Null, 20)
	require.NoError(t, err)
	require.Equal(t, mm.Ptr(96), ptr)
	require.Equal(t, []block{
		{Ptr: 96, Size: 24},
		{Ptr: 120, Size: 4072, Free: true},
	}, blocks(t, allocator))
}

func TestReallocZeroFrees(t *testing.T) {
	allocator := newAllocator(t, memlib.DefaultMaxHeap)

	ptr := malloc(t, allocator, 100)
	newPtr, err := allocator.Realloc(ptr, 0)
	require.NoError(t, err)
	require.Equal(t, mm.Null, newPtr)
	require.Equal(t, []block{{Ptr: 96, Size: 4096, Free: true}}, blocks(t, allocator))
	require.NoError(t, allocator.Validate())
}

func TestReallocFailureLeavesBlockIntact(t *testing.T) {
	allocator := newAllocator(t, 8192)

	ptr := malloc(t, allocator, 100)
	fill(allocator.Payload(ptr), 42)
	before := blocks(t, allocator)

	newPtr, err := allocator.Realloc(ptr, 6000)
	require.True(t, errors.Is(err, mm.ErrOutOfMemory))
	require.Equal(t, mm.Null, newPtr)
	require.Equal(t, before, blocks(t, allocator))
	requireFilled(t, allocator.Payload(ptr), 42)
	require.NoError(t, allocator.Validate())

	newPtr, err = allocator.Realloc(ptr, -5)
	require.True(t, errors.Is(err, mm.ErrInvalidSize))
	require.Equal(t, mm.Null, newPtr)
	requireFilled(t, allocator.Payload(ptr), 42)
}

func TestReallocChain(t *testing.T) {
	allocator := newAllocator(t, memlib.DefaultMaxHeap)

	ptr := malloc(t, allocator, 8)
	fill(allocator.Payload(ptr)[:8], 200)

	for size := 16; size <= 1<<15; size *= 2 {
		var err error
		ptr, err = allocator.Realloc(ptr, size)
		require.NoError(t, err)
		requireFilled(t, allocator.Payload(ptr)[:8], 200)
		require.NoError(t, allocator.Validate())
	}

	allocator.Free(ptr)
	require.NoError(t, allocator.Validate())

	list := blocks(t, allocator)
	require.Len(t, list, 1)
	require.True(t, list[0].Free)
}
