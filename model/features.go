package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Features turns one feature vector per state into the n×p feature matrix.
// Every row must have the same, non zero, length.
func Features(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty feature matrix", ErrShape)
	}
	p := len(rows[0])
	data := make([]float64, 0, len(rows)*p)
	for s, row := range rows {
		if len(row) != p {
			return nil, fmt.Errorf("%w: feature row %d has %d entries, want %d", ErrShape, s, len(row), p)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), p, data), nil
}

// ScalarFeatures is the n×1 feature matrix of a single feature per state.
func ScalarFeatures(xs []float64) *mat.Dense {
	data := make([]float64, len(xs))
	copy(data, xs)
	return mat.NewDense(len(xs), 1, data)
}

// OneHot is the n×n identity feature matrix (tabular representation).
func OneHot(n int) *mat.Dense {
	f := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		f.Set(i, i, 1)
	}
	return f
}
