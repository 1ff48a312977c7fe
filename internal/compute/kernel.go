package compute

import (
	"time"

	"golang.org/x/sync/errgroup"
)

// RowRange is the half-open row interval [Start, End) owned by one worker.
type RowRange struct {
	Start int
	End   int
}

func (r RowRange) Len() int {
	return r.End - r.Start
}

// EffectiveWorkers clamps a requested worker count to [1, n].
func EffectiveWorkers(n, requested int) int {
	if requested > 0 && requested <= n {
		return requested
	}
	return 1
}

// Partition splits n rows into contiguous blocks of n/workers rows; the last block takes the
// remainder. n <= 0 yields no ranges.
func Partition(n, requested int) []RowRange {
	if n <= 0 {
		return nil
	}
	workers := EffectiveWorkers(n, requested)
	perWorker := n / workers
	out := make([]RowRange, 0, workers)
	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := start + perWorker
		if w == workers-1 {
			end = n
		}
		out = append(out, RowRange{Start: start, End: end})
	}
	return out
}

// RowProduct multiplies every cell of row in a 64-bit accumulator and truncates to int32.
func RowProduct(row []int32) int32 {
	prod := int64(1)
	for _, v := range row {
		prod *= int64(v)
	}
	return int32(prod)
}

// PlaceSecondaryDiagonal writes each row product onto the anti-diagonal cell of that row and
// returns the wall time spent partitioning and running the workers.
func PlaceSecondaryDiagonal(m *Matrix, requested int) time.Duration {
	start := time.Now()
	ranges := Partition(m.N, requested)

	var g errgroup.Group
	for _, r := range ranges {
		g.Go(func() error {
			fillRange(m, r)
			return nil
		})
	}
	_ = g.Wait()
	return time.Since(start)
}

func fillRange(m *Matrix, r RowRange) {
	n := m.N
	for i := r.Start; i < r.End; i++ {
		m.Cells[i*n+(n-1-i)] = RowProduct(m.Row(i))
	}
}
