// Package model bundles everything a TD engine needs about a Markov reward
// process: features, rewards, target and behavior policies, interest,
// discounts, bootstrapping parameters and the importance sampling ratios.
package model

import (
	"fmt"
	"math"

	"github.com/zeu5/emphatic-td/markov"
	"gonum.org/v1/gonum/mat"
)

// Config describes a model. Zero valued optional fields take their defaults:
// Mu defaults to Pi, Interest to the uniform 1/n, Discounts and Lambdas to 0.
// Discounts, Lambdas and Theta0 of length 1 are broadcast.
type Config struct {
	Features *mat.Dense
	Reward   Reward
	Pi       *markov.Policy
	Mu       *markov.Policy

	Interest  []float64
	Discounts []float64
	Lambdas   []float64

	Theta0 []float64
	S0     int

	// VPi are the true state values, only used by the MSVE diagnostics.
	VPi []float64
}

// Model is immutable once built.
type Model struct {
	features *mat.Dense
	r        *mat.Dense
	pi       *markov.Policy
	mu       *markov.Policy
	phi      *mat.Dense

	interest  []float64
	discounts []float64
	lambdas   []float64

	theta0 []float64
	s0     int
	vPi    []float64

	n int
	p int
}

// New validates the configuration and builds the model.
func New(cfg Config) (*Model, error) {
	if cfg.Features == nil {
		return nil, fmt.Errorf("%w: features are required", ErrShape)
	}
	if cfg.Pi == nil {
		return nil, ErrMissingPolicy
	}
	n, p := cfg.Features.Dims()
	if cfg.Pi.N() != n {
		return nil, fmt.Errorf("%w: target policy has %d states, features have %d rows", ErrShape, cfg.Pi.N(), n)
	}
	mu := cfg.Mu
	if mu == nil {
		mu = cfg.Pi
	}
	if mu.N() != cfg.Pi.N() {
		return nil, fmt.Errorf("%w: behavior policy has %d states, target policy has %d", ErrShape, mu.N(), cfg.Pi.N())
	}

	r, err := cfg.Reward.matrix(n)
	if err != nil {
		return nil, err
	}

	m := &Model{
		features: mat.DenseCopyOf(cfg.Features),
		r:        r,
		pi:       cfg.Pi,
		mu:       mu,
		s0:       cfg.S0,
		n:        n,
		p:        p,
	}

	if m.interest, err = perState("interest", cfg.Interest, n, 1/float64(n), false); err != nil {
		return nil, err
	}
	if m.discounts, err = perState("discounts", cfg.Discounts, n, 0, true); err != nil {
		return nil, err
	}
	if m.lambdas, err = perState("lambdas", cfg.Lambdas, n, 0, true); err != nil {
		return nil, err
	}
	for name, vs := range map[string][]float64{"discounts": m.discounts, "lambdas": m.lambdas} {
		for s, v := range vs {
			if v < 0 || v > 1 || math.IsNaN(v) {
				return nil, fmt.Errorf("%w: %s[%d] = %v, want [0,1]", ErrRange, name, s, v)
			}
		}
	}

	switch len(cfg.Theta0) {
	case 0:
		return nil, ErrMissingTheta0
	case 1:
		m.theta0 = broadcast(cfg.Theta0[0], p)
	case p:
		m.theta0 = append([]float64(nil), cfg.Theta0...)
	default:
		return nil, fmt.Errorf("%w: theta0 has %d entries, features have %d columns", ErrShape, len(cfg.Theta0), p)
	}

	if cfg.S0 < 0 || cfg.S0 >= n {
		return nil, fmt.Errorf("%w: S0 = %d, want 0..%d", ErrRange, cfg.S0, n-1)
	}

	if cfg.VPi != nil {
		if len(cfg.VPi) != n {
			return nil, fmt.Errorf("%w: v_pi has %d entries, want %d", ErrShape, len(cfg.VPi), n)
		}
		m.vPi = append([]float64(nil), cfg.VPi...)
	}

	m.phi = importanceRatios(cfg.Pi.Matrix(), mu.Matrix())
	return m, nil
}

// perState copies a per-state vector, broadcasting a single value when
// scalar is allowed and filling def when vs is empty.
func perState(name string, vs []float64, n int, def float64, scalar bool) ([]float64, error) {
	switch {
	case len(vs) == 0:
		return broadcast(def, n), nil
	case len(vs) == 1 && scalar:
		return broadcast(vs[0], n), nil
	case len(vs) == n:
		return append([]float64(nil), vs...), nil
	}
	return nil, fmt.Errorf("%w: %s has %d entries, want %d", ErrShape, name, len(vs), n)
}

func broadcast(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// importanceRatios is pi/mu elementwise, with 0 wherever mu is 0.
func importanceRatios(pi, mu mat.Matrix) *mat.Dense {
	n, _ := pi.Dims()
	phi := mat.NewDense(n, n, nil)
	phi.Apply(func(i, j int, _ float64) float64 {
		if m := mu.At(i, j); m != 0 {
			return pi.At(i, j) / m
		}
		return 0
	}, phi)
	return phi
}

// N is the number of states.
func (m *Model) N() int { return m.n }

// P is the dimension of the features.
func (m *Model) P() int { return m.p }

// Pi is the target policy.
func (m *Model) Pi() *markov.Policy { return m.pi }

// Mu is the behavior policy.
func (m *Model) Mu() *markov.Policy { return m.mu }

// Feature returns the feature vector of s, read only.
func (m *Model) Feature(s int) []float64 { return m.features.RawRowView(s) }

// FeatureMatrix exposes the n×p feature matrix read only.
func (m *Model) FeatureMatrix() mat.Matrix { return m.features }

// R is the reward of the transition s -> next.
func (m *Model) R(s, next int) float64 { return m.r.At(s, next) }

// RewardMatrix exposes the n×n reward matrix read only.
func (m *Model) RewardMatrix() mat.Matrix { return m.r }

// Phi is the importance sampling ratio of the transition s -> next.
func (m *Model) Phi(s, next int) float64 { return m.phi.At(s, next) }

// PhiMatrix exposes the n×n importance sampling ratios read only.
func (m *Model) PhiMatrix() mat.Matrix { return m.phi }

// Interest is i(s), the weight of state s in the emphatic objective.
func (m *Model) Interest(s int) float64 { return m.interest[s] }

// Discount is γ(s).
func (m *Model) Discount(s int) float64 { return m.discounts[s] }

// Lambda is the bootstrapping parameter λ(s).
func (m *Model) Lambda(s int) float64 { return m.lambdas[s] }

// Interests returns a copy of the interest vector.
func (m *Model) Interests() []float64 { return append([]float64(nil), m.interest...) }

// Discounts returns a copy of the discount vector.
func (m *Model) Discounts() []float64 { return append([]float64(nil), m.discounts...) }

// Lambdas returns a copy of the bootstrapping vector.
func (m *Model) Lambdas() []float64 { return append([]float64(nil), m.lambdas...) }

// Theta0 returns a copy of the initial parameters.
func (m *Model) Theta0() []float64 { return append([]float64(nil), m.theta0...) }

// S0 is the initial state.
func (m *Model) S0() int { return m.s0 }

// VPi returns a copy of the true state values, nil when unknown.
func (m *Model) VPi() []float64 {
	if m.vPi == nil {
		return nil
	}
	return append([]float64(nil), m.vPi...)
}

// ExpectedReward is r_pi, the expected immediate reward out of each state
// under the target policy.
func (m *Model) ExpectedReward() *mat.VecDense {
	rPi := mat.NewVecDense(m.n, nil)
	P := m.pi.Matrix()
	for s := 0; s < m.n; s++ {
		var sum float64
		for next := 0; next < m.n; next++ {
			sum += P.At(s, next) * m.r.At(s, next)
		}
		rPi.SetVec(s, sum)
	}
	return rPi
}

// WithLambdas returns a copy of the model using other bootstrapping
// parameters, a single value being broadcast.
func (m *Model) WithLambdas(lambdas []float64) (*Model, error) {
	ls, err := perState("lambdas", lambdas, m.n, 0, true)
	if err != nil {
		return nil, err
	}
	for s, v := range ls {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return nil, fmt.Errorf("%w: lambdas[%d] = %v, want [0,1]", ErrRange, s, v)
		}
	}
	c := *m
	c.lambdas = ls
	return &c, nil
}

// Values solves the Bellman equation of the target policy,
// v = (I - P_pi Γ)⁻¹ r_pi. It fails with ErrSingular when every discount
// along some closed class is 1.
func (m *Model) Values() ([]float64, error) {
	a := mat.NewDense(m.n, m.n, nil)
	a.Apply(func(i, j int, v float64) float64 {
		v = -v * m.discounts[j]
		if i == j {
			v++
		}
		return v
	}, m.pi.Matrix())
	var v mat.VecDense
	if err := v.SolveVec(a, m.ExpectedReward()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return v.RawVector().Data, nil
}

// WithValues returns a copy of the model holding the true state values.
func (m *Model) WithValues(vPi []float64) (*Model, error) {
	if len(vPi) != m.n {
		return nil, fmt.Errorf("%w: v_pi has %d entries, want %d", ErrShape, len(vPi), m.n)
	}
	c := *m
	c.vPi = append([]float64(nil), vPi...)
	return &c, nil
}
