package osshim

import (
	"fmt"

	"hackvm.dev/n2t/pkg/word"
)

// Allocator is a free-list heap manager over a fixed RAM range, serving Memory.alloc /
// Memory.deAlloc (and the Array/String library calls built on top of them). Unlike the
// reference implementation, which grabs the first hole big enough for the request,
// this allocator picks the smallest hole that fits (true best-fit), to keep fragmentation
// down on programs that interleave many differently-sized allocations.
type Allocator struct {
	holesByStart map[word.Word]word.Word
	holesByEnd   map[word.Word]word.Word
	live         map[word.Word]word.Word
}

// NewAllocator returns an Allocator managing the exclusive range [start, start+size).
func NewAllocator(start, size word.Word) Allocator {
	return Allocator{
		holesByStart: map[word.Word]word.Word{start: size},
		holesByEnd:   map[word.Word]word.Word{start + size: size},
		live:         map[word.Word]word.Word{},
	}
}

// Alloc reserves size words and returns the base address of the reservation, or an
// error if no hole is large enough.
func (m *Allocator) Alloc(size word.Word) (word.Word, error) {
	if size <= 0 {
		return 0, fmt.Errorf("Memory.alloc: size must be positive, got %d", size)
	}

	bestStart, bestSize, found := word.Word(0), word.Word(0), false
	for start, holeSize := range m.holesByStart {
		if holeSize < size {
			continue
		}
		if !found || holeSize < bestSize {
			bestStart, bestSize, found = start, holeSize, true
		}
	}
	if !found {
		return 0, fmt.Errorf("Memory.alloc: no hole large enough for %d words", size)
	}

	delete(m.holesByStart, bestStart)
	delete(m.holesByEnd, bestStart+bestSize)
	m.live[bestStart] = size

	if bestSize != size {
		remainderStart := bestStart + size
		remainderSize := bestSize - size
		m.holesByStart[remainderStart] = remainderSize
		m.holesByEnd[remainderStart+remainderSize] = remainderSize
	}

	return bestStart, nil
}

// Dealloc releases a previous allocation, coalescing it with any adjacent free hole on
// either side so repeated alloc/dealloc cycles don't fragment the heap into slivers.
func (m *Allocator) Dealloc(address word.Word) error {
	size, ok := m.live[address]
	if !ok {
		return fmt.Errorf("Memory.deAlloc: address %d is not a live allocation", address)
	}
	delete(m.live, address)

	holeStart, holeSize := address, size

	if precedingSize, ok := m.holesByEnd[address]; ok {
		holeStart -= precedingSize
		holeSize += precedingSize
		delete(m.holesByStart, holeStart)
		delete(m.holesByEnd, address)
	}

	if followingSize, ok := m.holesByStart[address+size]; ok {
		holeSize += followingSize
		delete(m.holesByStart, address+size)
		delete(m.holesByEnd, address+size+followingSize)
	}

	m.holesByStart[holeStart] = holeSize
	m.holesByEnd[holeStart+holeSize] = holeSize
	return nil
}
