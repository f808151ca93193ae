// memory.go - main memory for the MESI coherence engine

/*
memory.go implements the flat, line-addressable main memory backing the
simulator: a single contiguous slice, touched only at block boundaries,
with a full-reset operation. There is no memory-mapped I/O here - main
memory is pure storage; the Bus is the component that layers coherence
semantics over it.

Reads and writes are normalised to the containing block's base address
before touching the slice, per the specification's block-addressing rule:
floor(a/B)*B.
*/

package coherence

import "github.com/pkg/errors"

// MainMemory is an N-cell, block-size-B flat store of optional values.
type MainMemory[V Value] struct {
	cells     block[V]
	blockSize int
}

// NewMainMemory allocates a memory of n cells, partitioned into blocks of
// blockSize cells each. Callers are expected to have already validated
// n % blockSize == 0 (NewSimulator does this); MainMemory itself does not
// re-validate, since it has no notion of "invalid configuration" on its
// own - that is a Simulator-level concern.
func NewMainMemory[V Value](n, blockSize int) *MainMemory[V] {
	return &MainMemory[V]{
		cells:     make(block[V], n),
		blockSize: blockSize,
	}
}

// blockBase returns floor(a/blockSize)*blockSize.
func (m *MainMemory[V]) blockBase(a int) int {
	return a - (a % m.blockSize)
}

// Read returns a snapshot of the blockSize cells starting at the block base
// of a. Returns ErrOutOfRange if a >= N.
func (m *MainMemory[V]) Read(a int) (block[V], error) {
	if a >= len(m.cells) || a < 0 {
		return nil, errors.Wrapf(ErrOutOfRange, "read address %d", a)
	}

	bi := m.blockBase(a)
	end := bi + m.blockSize
	if end > len(m.cells) {
		end = len(m.cells)
	}
	return cloneBlock(m.cells[bi:end]), nil
}

// Write stores data's cells starting at the block base of a. Cells past N
// are silently dropped, as the specification requires. Returns
// ErrOutOfRange if a >= N.
func (m *MainMemory[V]) Write(a int, data block[V]) error {
	if a >= len(m.cells) || a < 0 {
		return errors.Wrapf(ErrOutOfRange, "write address %d", a)
	}

	bi := m.blockBase(a)
	for i := 0; i < m.blockSize && i < len(data); i++ {
		if bi+i >= len(m.cells) {
			break
		}
		m.cells[bi+i] = data[i]
	}
	return nil
}

// Clear resets every cell to empty.
func (m *MainMemory[V]) Clear() {
	for i := range m.cells {
		m.cells[i] = nil
	}
}

// Len reports the number of addressable cells.
func (m *MainMemory[V]) Len() int { return len(m.cells) }

// String renders memory as pipe-delimited, block-grouped rows for ad-hoc
// inspection.
func (m *MainMemory[V]) String() string {
	s := ""
	for i := 0; i < len(m.cells); i += m.blockSize {
		end := i + m.blockSize
		if end > len(m.cells) {
			end = len(m.cells)
		}
		if i > 0 {
			s += "\n"
		}
		s += m.cells[i:end].String()
	}
	return s
}
