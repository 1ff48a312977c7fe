package compute

import (
	"fmt"
	"math/rand"
)

// Matrix is a square row-major grid of int32 cells.
type Matrix struct {
	N     int
	Cells []int32
}

func NewMatrix(n int) *Matrix {
	if n < 0 {
		n = 0
	}
	return &Matrix{N: n, Cells: make([]int32, n*n)}
}

// FromCells wraps cells without copying. len(cells) must equal n*n.
func FromCells(n int, cells []int32) (*Matrix, error) {
	if n < 0 || len(cells) != n*n {
		return nil, fmt.Errorf("compute: matrix n=%d has %d cells", n, len(cells))
	}
	return &Matrix{N: n, Cells: cells}, nil
}

func (m *Matrix) At(i, j int) int32 {
	return m.Cells[i*m.N+j]
}

func (m *Matrix) Set(i, j int, v int32) {
	m.Cells[i*m.N+j] = v
}

// Row returns row i as a slice sharing the matrix storage.
func (m *Matrix) Row(i int) []int32 {
	return m.Cells[i*m.N : (i+1)*m.N]
}

// RandomMatrix fills an n x n matrix with values drawn uniformly from [1, 10].
func RandomMatrix(n int, rng *rand.Rand) *Matrix {
	m := NewMatrix(n)
	for i := range m.Cells {
		m.Cells[i] = int32(rng.Intn(10) + 1)
	}
	return m
}
