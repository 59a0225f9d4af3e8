package mm_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/segalloc/memlib"
	"github.com/vkngwrapper/segalloc/memlib/mocks"
	"github.com/vkngwrapper/segalloc/mm"
	"go.uber.org/mock/gomock"
)

// recordingHeap forwards to a real MemLib and records every increment requested
func recordingHeap(t *testing.T, maxHeap int) (*mocks.MockHeap, *[]int) {
	ctrl := gomock.NewController(t)
	backing := memlib.New(maxHeap)
	heap := mocks.NewMockHeap(ctrl)

	var increments []int
	heap.EXPECT().Sbrk(gomock.Any()).DoAndReturn(func(incr int) (int, error) {
		increments = append(increments, incr)
		return backing.Sbrk(incr)
	}).AnyTimes()
	heap.EXPECT().Bytes().DoAndReturn(backing.Bytes).AnyTimes()

	return heap, &increments
}

func TestInitGrowthRequests(t *testing.T) {
	heap, increments := recordingHeap(t, 1<<20)

	allocator, err := mm.New(nil, heap, mm.CreateOptions{})
	require.NoError(t, err)
	require.NoError(t, allocator.Init())

	require.Equal(t, []int{0, 80, 16, 4096}, *increments)
}

func TestInitGrowthRequestsCustomOptions(t *testing.T) {
	heap, increments := recordingHeap(t, 1<<20)

	allocator, err := mm.New(nil, heap, mm.CreateOptions{ChunkSize: 1 << 14, SizeClassCount: 3})
	require.NoError(t, err)
	require.NoError(t, allocator.Init())

	require.Equal(t, []int{0, 24, 16, 1 << 14}, *increments)
	require.Equal(t, []int{0, 0, 1}, allocator.FreeListLengths())
	require.NoError(t, allocator.Validate())
}

func TestHeapGrowsInChunkMultiples(t *testing.T) {
	heap, increments := recordingHeap(t, 1<<20)

	allocator, err := mm.New(nil, heap, mm.CreateOptions{})
	require.NoError(t, err)
	require.NoError(t, allocator.Init())

	for i := 0; i < 20; i++ {
		malloc(t, allocator, 1000)
		require.NoError(t, allocator.Validate())
	}

	growth := (*increments)[4:]
	require.NotEmpty(t, growth)
	grown := 0
	for _, incr := range growth {
		require.Zero(t, incr%4096)
		grown += incr
	}
	require.Equal(t, 4192+grown, allocator.HeapSize())

	malloc(t, allocator, 5000)
	require.Equal(t, 8192, (*increments)[len(*increments)-1])
	require.NoError(t, allocator.Validate())
}

func TestInitPropagatesGrowthFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	heap := mocks.NewMockHeap(ctrl)

	heap.EXPECT().Bytes().Return(nil).AnyTimes()
	gomock.InOrder(
		heap.EXPECT().Sbrk(0).Return(0, nil),
		heap.EXPECT().Sbrk(80).Return(-1, errors.Wrap(memlib.ErrHeapExhausted, "no room")),
	)

	allocator, err := mm.New(nil, heap, mm.CreateOptions{})
	require.NoError(t, err)

	err = allocator.Init()
	require.True(t, errors.Is(err, mm.ErrOutOfMemory))
	require.True(t, errors.Is(err, memlib.ErrHeapExhausted))
	require.True(t, errors.Is(allocator.Validate(), mm.ErrNotInitialized))
}

func TestMisbehavingHeapIsReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	heap := mocks.NewMockHeap(ctrl)

	heap.EXPECT().Bytes().Return(make([]byte, 8)).AnyTimes()
	heap.EXPECT().Sbrk(0).Return(0, nil)

	allocator, err := mm.New(nil, heap, mm.CreateOptions{})
	require.NoError(t, err)
	require.Error(t, allocator.Init())
}
