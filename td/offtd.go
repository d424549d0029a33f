package td

import (
	"github.com/zeu5/emphatic-td/model"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// OffTD is off-policy TD(0) with per-transition importance sampling.
type OffTD struct {
	base
}

var _ Engine = &OffTD{}

// NewOffTD creates an off-policy TD engine with step size alpha.
func NewOffTD(alpha float64, opts ...Option) *OffTD {
	return &OffTD{base: newBase("offTD", alpha, opts)}
}

// delta is the TD error R(s,s') + γ(s')⟨θ,φ(s')⟩ - ⟨θ,φ(s)⟩.
func delta(m *model.Model, theta []float64, s, next int) float64 {
	return m.R(s, next) +
		m.Discount(next)*floats.Dot(theta, m.Feature(next)) -
		floats.Dot(theta, m.Feature(s))
}

func (o *OffTD) Run(m *model.Model, T, N int, src rand.Source) (*Trajectory, error) {
	if err := o.check(m, T, N); err != nil {
		return nil, err
	}
	src = source(src)
	tr := newTrajectory(T, N, m.P())

	theta0 := m.Theta0()
	for i := 0; i < N; i++ {
		tr.States[0][i] = m.S0()
		tr.Theta[0].SetRow(i, theta0)
	}

	for t := 0; t < T; t++ {
		o.report(t, T)
		S, next := tr.States[t], m.Mu().ParallelSteps(tr.States[t], src)
		tr.States[t+1] = next
		for i := 0; i < N; i++ {
			theta := tr.Theta[t].RawRowView(i)
			updated := tr.Theta[t+1].RawRowView(i)
			copy(updated, theta)
			step := o.alpha * m.Phi(S[i], next[i]) * delta(m, theta, S[i], next[i])
			floats.AddScaled(updated, step, m.Feature(S[i]))
		}
	}
	o.report(T, T)
	o.logger.Info("offTD has been computed", "steps", T, "particles", N)
	return tr, nil
}

// KeyMatrices returns A = Φᵀ D_mu (I - P_pi Γ) Φ and b = Φᵀ D_mu r_pi.
func (o *OffTD) KeyMatrices(m *model.Model) (*mat.Dense, *mat.VecDense, error) {
	n := m.N()
	gammas := mat.NewDiagDense(n, m.Discounts())

	var a mat.Dense
	a.Mul(m.Pi().Matrix(), gammas)
	a.Sub(identity(n), &a)

	var FtD mat.Dense
	FtD.Mul(m.FeatureMatrix().T(), m.Mu().DiagD())

	var A, tmp mat.Dense
	tmp.Mul(&FtD, &a)
	A.Mul(&tmp, m.FeatureMatrix())

	var b mat.VecDense
	b.MulVec(&FtD, m.ExpectedReward())
	return &A, &b, nil
}

func (o *OffTD) Optimal(m *model.Model) (*mat.VecDense, error) {
	return optimal(o, m)
}

func (o *OffTD) OptimalRun(m *model.Model, T int) (*mat.Dense, error) {
	return optimalRun(o, o.alpha, m, T)
}
