package solver

import "fmt"

// Matrix wraps the precomputed pairwise duration table. It is immutable for
// the lifetime of a solve call. Asymmetry is allowed.
type Matrix struct {
	d [][]int64
	n int
}

// NewMatrix validates squareness and non-negative entries.
func NewMatrix(d [][]int64) (*Matrix, error) {
	n := len(d)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrInvalidInput)
	}
	for i, row := range d {
		if len(row) != n {
			return nil, fmt.Errorf("%w: matrix row %d has length %d, want %d", ErrInvalidInput, i, len(row), n)
		}
		for j, v := range row {
			if v < 0 {
				return nil, fmt.Errorf("%w: matrix[%d][%d] = %d is negative", ErrInvalidInput, i, j, v)
			}
		}
	}
	return &Matrix{d: d, n: n}, nil
}

// Dim returns the matrix dimension.
func (m *Matrix) Dim() int { return m.n }

// At returns the travel duration from origin to destination, or ErrOutOfRange
// when either index exceeds the matrix bounds.
func (m *Matrix) At(origin, destination int) (int64, error) {
	if origin < 0 || origin >= m.n {
		return 0, fmt.Errorf("%w: origin %d, matrix dimension %d", ErrOutOfRange, origin, m.n)
	}
	if destination < 0 || destination >= m.n {
		return 0, fmt.Errorf("%w: destination %d, matrix dimension %d", ErrOutOfRange, destination, m.n)
	}
	return m.d[origin][destination], nil
}

// at skips bounds checks for the search hot path; indices must have been
// validated by preflight.
func (m *Matrix) at(origin, destination int) int64 { return m.d[origin][destination] }
