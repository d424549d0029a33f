package td

import (
	"github.com/zeu5/emphatic-td/model"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// EmphaticTD is emphatic TD(λ). Every particle carries a followon trace F, an
// emphasis M and an eligibility trace E across its whole trajectory; λ comes
// from the model.
type EmphaticTD struct {
	base
}

var _ Engine = &EmphaticTD{}

// NewEmphaticTD creates an emphatic TD engine with step size alpha.
func NewEmphaticTD(alpha float64, opts ...Option) *EmphaticTD {
	return &EmphaticTD{base: newBase("emphaticTD", alpha, opts)}
}

// Run also fills the Followon and Eligibility traces of the trajectory.
//
//	F[t] = ρ(S[t-1],S[t]) γ(S[t]) F[t-1] + I(S[t]),  F[0] = I(S[0])
//	M[t] = λ(S[t]) I(S[t]) + (1 - λ(S[t])) F[t]
//	E[t] = ρ(S[t],S[t+1]) (M[t] φ(S[t]) + γ(S[t]) λ(S[t]) E[t-1])
//	θ[t+1] = θ[t] + α δ[t] E[t]
func (e *EmphaticTD) Run(m *model.Model, T, N int, src rand.Source) (*Trajectory, error) {
	if err := e.check(m, T, N); err != nil {
		return nil, err
	}
	src = source(src)
	p := m.P()
	tr := newTrajectory(T, N, p)
	tr.Followon = make([][]float64, T+1)
	tr.Eligibility = make([]*mat.Dense, T)

	theta0 := m.Theta0()
	tr.Followon[0] = make([]float64, N)
	for i := 0; i < N; i++ {
		tr.States[0][i] = m.S0()
		tr.Theta[0].SetRow(i, theta0)
		tr.Followon[0][i] = m.Interest(m.S0())
	}

	for t := 0; t < T; t++ {
		e.report(t, T)
		S, next := tr.States[t], m.Mu().ParallelSteps(tr.States[t], src)
		tr.States[t+1] = next
		if t > 0 {
			tr.Followon[t] = followon(m, tr.States[t-1], S, tr.Followon[t-1])
		}
		F := tr.Followon[t]
		E := mat.NewDense(N, p, nil)
		tr.Eligibility[t] = E

		for i := 0; i < N; i++ {
			s, s2 := S[i], next[i]
			rho := m.Phi(s, s2)
			lambda := m.Lambda(s)
			emphasis := lambda*m.Interest(s) + (1-lambda)*F[i]

			trace := E.RawRowView(i)
			floats.AddScaled(trace, rho*emphasis, m.Feature(s))
			if t > 0 {
				floats.AddScaled(trace, rho*m.Discount(s)*lambda, tr.Eligibility[t-1].RawRowView(i))
			}

			theta := tr.Theta[t].RawRowView(i)
			updated := tr.Theta[t+1].RawRowView(i)
			copy(updated, theta)
			floats.AddScaled(updated, e.alpha*delta(m, theta, s, s2), trace)
		}
	}
	if T > 0 {
		tr.Followon[T] = followon(m, tr.States[T-1], tr.States[T], tr.Followon[T-1])
	}
	e.report(T, T)
	e.logger.Info("emphaticTD has been computed", "steps", T, "particles", N)
	return tr, nil
}

func followon(m *model.Model, prev, cur []int, F []float64) []float64 {
	out := make([]float64, len(cur))
	for i, s := range cur {
		out[i] = m.Phi(prev[i], s)*m.Discount(s)*F[i] + m.Interest(s)
	}
	return out
}

// KeyMatrices builds the emphatic A and b:
//
//	a      = I - P_pi Γ
//	B      = (I - P_pi Γ Λ)⁻¹
//	P_pi,λ = I - B a
//	m      = (I - P_pi,λᵀ)⁻¹ (d_mu ∘ i)
//	A      = Φᵀ M B a Φ,  b = Φᵀ M B r_pi,  M = diag(m)
func (e *EmphaticTD) KeyMatrices(m *model.Model) (*mat.Dense, *mat.VecDense, error) {
	n := m.N()
	id := identity(n)
	gammas := mat.NewDiagDense(n, m.Discounts())
	lambdas := mat.NewDiagDense(n, m.Lambdas())
	P := m.Pi().Matrix()

	var a, PG mat.Dense
	PG.Mul(P, gammas)
	a.Sub(id, &PG)

	var bootstrap mat.Dense
	bootstrap.Mul(&PG, lambdas)
	bootstrap.Sub(id, &bootstrap)
	B, err := invert("I - P_pi Gamma Lambda", &bootstrap)
	if err != nil {
		return nil, nil, err
	}

	var pLambda mat.Dense
	pLambda.Mul(B, &a)
	pLambda.Sub(id, &pLambda)

	var fixed mat.Dense
	fixed.Sub(id, pLambda.T())
	F, err := invert("I - P_pi_lambda^T", &fixed)
	if err != nil {
		return nil, nil, err
	}
	interest := m.Mu().D()
	floats.Mul(interest, m.Interests())
	var emphasis mat.VecDense
	emphasis.MulVec(F, mat.NewVecDense(n, interest))
	M := mat.NewDiagDense(n, emphasis.RawVector().Data)

	var FtM, FtMB mat.Dense
	FtM.Mul(m.FeatureMatrix().T(), M)
	FtMB.Mul(&FtM, B)

	var A, tmp mat.Dense
	tmp.Mul(&FtMB, &a)
	A.Mul(&tmp, m.FeatureMatrix())

	var b mat.VecDense
	b.MulVec(&FtMB, m.ExpectedReward())
	return &A, &b, nil
}

func (e *EmphaticTD) Optimal(m *model.Model) (*mat.VecDense, error) {
	return optimal(e, m)
}

func (e *EmphaticTD) OptimalRun(m *model.Model, T int) (*mat.Dense, error) {
	return optimalRun(e, e.alpha, m, T)
}
