package model

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// weights are d_mu(s)·I(s), the state weighting of the MSVE.
func (m *Model) weights() []float64 {
	w := m.mu.D()
	floats.Mul(w, m.interest)
	return w
}

func (m *Model) msve(theta, w []float64) float64 {
	var sum float64
	for s := 0; s < m.n; s++ {
		e := floats.Dot(m.Feature(s), theta) - m.vPi[s]
		sum += w[s] * e * e
	}
	return sum
}

// MSVE is the mean squared value error of the linear approximation
// features·theta, weighted by the behavior stationary distribution and the
// interest.
func (m *Model) MSVE(theta []float64) (float64, error) {
	if m.vPi == nil {
		return 0, ErrMissingValues
	}
	if len(theta) != m.p {
		return 0, fmt.Errorf("%w: theta has %d entries, want %d", ErrShape, len(theta), m.p)
	}
	return m.msve(theta, m.weights()), nil
}

// MSVEPath is the MSVE of every row of a T×p parameter path.
func (m *Model) MSVEPath(thetas mat.Matrix) ([]float64, error) {
	if m.vPi == nil {
		return nil, ErrMissingValues
	}
	rows, cols := thetas.Dims()
	if cols != m.p {
		return nil, fmt.Errorf("%w: thetas have %d columns, want %d", ErrShape, cols, m.p)
	}
	w := m.weights()
	theta := make([]float64, m.p)
	out := make([]float64, rows)
	for t := 0; t < rows; t++ {
		mat.Row(theta, t, thetas)
		out[t] = m.msve(theta, w)
	}
	return out, nil
}

// ParallelMSVE computes the MSVE for every particle at every time step of a
// T×N×p trajectory, given as T matrices of N×p. The result is T×N.
func (m *Model) ParallelMSVE(thetas []*mat.Dense) (*mat.Dense, error) {
	if m.vPi == nil {
		return nil, ErrMissingValues
	}
	if len(thetas) == 0 {
		return nil, fmt.Errorf("%w: empty trajectory", ErrShape)
	}
	N, _ := thetas[0].Dims()
	w := m.weights()
	out := mat.NewDense(len(thetas), N, nil)

	// values are features·thetaᵀ, n×N per time step
	var values mat.Dense
	for t, th := range thetas {
		rows, cols := th.Dims()
		if rows != N || cols != m.p {
			return nil, fmt.Errorf("%w: step %d is %dx%d, want %dx%d", ErrShape, t, rows, cols, N, m.p)
		}
		values.Reset()
		values.Mul(m.features, th.T())
		row := out.RawRowView(t)
		for s := 0; s < m.n; s++ {
			for i, v := range values.RawRowView(s) {
				e := v - m.vPi[s]
				row[i] += w[s] * e * e
			}
		}
	}
	return out, nil
}

// MSVEMin minimises the MSVE, which is a convex quadratic in theta, starting
// from theta0. It returns the minimiser and the minimal value.
func (m *Model) MSVEMin() ([]float64, float64, error) {
	if m.vPi == nil {
		return nil, 0, ErrMissingValues
	}
	w := m.weights()
	problem := optimize.Problem{
		Func: func(theta []float64) float64 {
			return m.msve(theta, w)
		},
		Grad: func(grad, theta []float64) {
			for j := range grad {
				grad[j] = 0
			}
			for s := 0; s < m.n; s++ {
				f := m.Feature(s)
				e := floats.Dot(f, theta) - m.vPi[s]
				floats.AddScaled(grad, 2*w[s]*e, f)
			}
		},
	}
	result, err := optimize.Minimize(problem, m.Theta0(), nil, &optimize.BFGS{})
	if err != nil {
		return nil, 0, fmt.Errorf("model: msve minimisation: %w", err)
	}
	return result.X, result.F, nil
}
