package mm_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/segalloc/memlib"
	"github.com/vkngwrapper/segalloc/mm"
)

type block struct {
	Ptr  mm.Ptr
	Size int
	Free bool
}

func newAllocator(t *testing.T, maxHeap int) *mm.Allocator {
	t.Helper()

	allocator, err := mm.New(nil, memlib.New(maxHeap), mm.CreateOptions{})
	require.NoError(t, err)
	require.NoError(t, allocator.Init())
	return allocator
}

func blocks(t *testing.T, allocator *mm.Allocator) []block {
	t.Helper()

	var list []block
	err := allocator.VisitAllBlocks(func(ptr mm.Ptr, size int, free bool) error {
		list = append(list, block{Ptr: ptr, Size: size, Free: free})
		return nil
	})
	require.NoError(t, err)
	return list
}

func malloc(t *testing.T, allocator *mm.Allocator, size int) mm.Ptr {
	t.Helper()

	ptr, err := allocator.Malloc(size)
	require.NoError(t, err)
	require.NotEqual(t, mm.Null, ptr)
	return ptr
}

func fill(payload []byte, seed byte) {
	for i := range payload {
		payload[i] = seed + byte(i*7)
	}
}

func requireFilled(t *testing.T, payload []byte, seed byte) {
	t.Helper()

	for i := range payload {
		if payload[i] != seed+byte(i*7) {
			require.Failf(t, "payload corrupted", "byte %d is %d, expected %d", i, payload[i], seed+byte(i*7))
		}
	}
}
