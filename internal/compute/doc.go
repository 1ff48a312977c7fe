// Package compute owns the anti-diagonal kernel.
//
// Each worker goroutine owns a contiguous block of rows. A row is read only by its owner and
// its write target (i, n-1-i) belongs to that row alone, so workers never share a cell and the
// kernel runs without locks. PlaceSecondaryDiagonal returns only after every worker has joined.
package compute
