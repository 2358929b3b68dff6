package osshim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hackvm.dev/n2t/pkg/word"
)

func TestAllocatorSequentialAllocations(t *testing.T) {
	alloc := NewAllocator(100, 50)

	a, err := alloc.Alloc(10)
	require.NoError(t, err)
	assert.Equal(t, word.Word(100), a)

	b, err := alloc.Alloc(10)
	require.NoError(t, err)
	assert.Equal(t, word.Word(110), b)
}

func TestAllocatorRejectsOversizedRequest(t *testing.T) {
	alloc := NewAllocator(100, 10)
	_, err := alloc.Alloc(20)
	assert.Error(t, err)
}

// Scenario: freeing two adjacent allocations coalesces them into one hole big enough
// to satisfy a request neither original allocation could have served alone.
func TestAllocatorDeallocCoalescesAdjacentHoles(t *testing.T) {
	alloc := NewAllocator(100, 40)

	a, err := alloc.Alloc(10)
	require.NoError(t, err)
	b, err := alloc.Alloc(10)
	require.NoError(t, err)

	require.NoError(t, alloc.Dealloc(a))
	require.NoError(t, alloc.Dealloc(b))

	c, err := alloc.Alloc(20)
	require.NoError(t, err)
	assert.Equal(t, word.Word(100), c)
}

func TestAllocatorBestFitPrefersSmallestSufficientHole(t *testing.T) {
	alloc := NewAllocator(0, 100)

	a, err := alloc.Alloc(10) // [0,10)
	require.NoError(t, err)
	_, err = alloc.Alloc(30) // B: [10,40), kept live so the two freed holes can't coalesce
	require.NoError(t, err)
	c, err := alloc.Alloc(60) // [40,100)
	require.NoError(t, err)

	require.NoError(t, alloc.Dealloc(a)) // isolated 10-word hole at 0
	require.NoError(t, alloc.Dealloc(c)) // isolated 60-word hole at 40

	fit, err := alloc.Alloc(5) // fits both holes; best-fit must choose the smaller one
	require.NoError(t, err)
	assert.Equal(t, word.Word(0), fit)
}

func TestAllocatorDeallocRejectsUnknownAddress(t *testing.T) {
	alloc := NewAllocator(0, 10)
	assert.Error(t, alloc.Dealloc(5))
}
