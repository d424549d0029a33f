package td

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Solve returns the fixed point A⁻¹b, wrapping ErrSingular when A has none.
func Solve(A *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
	var theta mat.VecDense
	if err := theta.SolveVec(A, b); err != nil {
		return nil, fmt.Errorf("%w: solving A theta = b: %v", ErrSingular, err)
	}
	return &theta, nil
}

func invert(step string, a mat.Matrix) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil, fmt.Errorf("%w: inverting %s: %v", ErrSingular, step, err)
	}
	return &inv, nil
}

// Descend iterates θ ← θ + α(b - Aθ) T times from theta0 and returns the
// (T+1)×p path.
func Descend(A *mat.Dense, b *mat.VecDense, theta0 []float64, alpha float64, T int) *mat.Dense {
	p := len(theta0)
	thetas := mat.NewDense(T+1, p, nil)
	thetas.SetRow(0, theta0)

	var step mat.VecDense
	for t := 0; t < T; t++ {
		theta := mat.NewVecDense(p, thetas.RawRowView(t))
		step.MulVec(A, theta)
		step.SubVec(b, &step)
		next := thetas.RawRowView(t + 1)
		copy(next, thetas.RawRowView(t))
		floats.AddScaled(next, alpha, step.RawVector().Data)
	}
	return thetas
}

// Residual is the euclidean norm of b - Aθ.
func Residual(A mat.Matrix, b mat.Vector, theta []float64) float64 {
	var r mat.VecDense
	r.MulVec(A, mat.NewVecDense(len(theta), theta))
	r.SubVec(b, &r)
	return mat.Norm(&r, 2)
}

// identity is the n×n identity.
func identity(n int) *mat.DiagDense {
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	return mat.NewDiagDense(n, ones)
}
