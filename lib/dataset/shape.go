package dataset

import (
	"fmt"
	"slices"
)

// Shape describes the global extent of a field and the part a rank holds.
// Only dimension 0 (rows) may differ between Local and Total.
type Shape struct {
	Total []uint64
	Local []uint64
}

// FullShape returns the shape of a field held completely by one rank
func FullShape(dims ...uint64) Shape {
	return Shape{Total: slices.Clone(dims), Local: slices.Clone(dims)}
}

// Rank returns the number of dimensions
func (s Shape) Rank() int {
	return len(s.Total)
}

// Rows returns the number of rows held locally
func (s Shape) Rows() uint64 {
	if len(s.Local) == 0 {
		return 0
	}
	return s.Local[0]
}

// TotalRows returns the number of rows of the whole field
func (s Shape) TotalRows() uint64 {
	if len(s.Total) == 0 {
		return 0
	}
	return s.Total[0]
}

// Trailing returns the fixed column dimensions (everything but dimension 0)
func (s Shape) Trailing() []uint64 {
	if len(s.Total) < 2 {
		return nil
	}
	return slices.Clone(s.Total[1:])
}

// Cols returns the number of elements per row
func (s Shape) Cols() uint64 {
	cols := uint64(1)
	for _, d := range s.Trailing() {
		cols *= d
	}
	return cols
}

// WithLocalRows returns a copy of the shape holding rows rows locally
func (s Shape) WithLocalRows(rows uint64) Shape {
	local := slices.Clone(s.Total)
	if len(local) > 0 {
		local[0] = rows
	}
	return Shape{Total: slices.Clone(s.Total), Local: local}
}

// Validate checks the shape invariants
func (s Shape) Validate() error {
	if len(s.Total) < 1 || len(s.Total) > 2 {
		return fmt.Errorf("unsupported rank %d (only 1 and 2 are supported)", len(s.Total))
	}
	if len(s.Local) != len(s.Total) {
		return fmt.Errorf("local rank %d differs from total rank %d", len(s.Local), len(s.Total))
	}
	for i := 1; i < len(s.Total); i++ {
		if s.Local[i] != s.Total[i] {
			return fmt.Errorf("dimension %d differs: local %d, total %d", i, s.Local[i], s.Total[i])
		}
	}
	if s.Local[0] > s.Total[0] {
		return fmt.Errorf("local rows %d exceed total rows %d", s.Local[0], s.Total[0])
	}
	return nil
}

func (s Shape) String() string {
	return fmt.Sprintf("%v of %v", s.Local, s.Total)
}
