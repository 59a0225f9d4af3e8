package mm

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/segalloc/memlib"
)

func newTestAllocator(t *testing.T, options CreateOptions) *Allocator {
	t.Helper()

	allocator, err := New(nil, memlib.New(1<<20), options)
	require.NoError(t, err)
	require.NoError(t, allocator.Init())
	return allocator
}

func (a *Allocator) listOf(class int) []Ptr {
	var list []Ptr
	for bp := a.head(class); bp != Null; bp = a.succ(bp) {
		list = append(list, bp)
	}
	return list
}

func (a *Allocator) mallocAll(t *testing.T, sizes ...int) []Ptr {
	t.Helper()

	ptrs := make([]Ptr, 0, len(sizes))
	for _, size := range sizes {
		ptr, err := a.Malloc(size)
		require.NoError(t, err)
		ptrs = append(ptrs, ptr)
	}
	return ptrs
}
