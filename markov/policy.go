// Package markov holds finite Markov chains used as target and behavior
// policies: the transition matrix, its stationary distribution and batched
// next-state sampling.
package markov

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// rowTolerance bounds |Σ_j P[i][j] - 1| for every row.
	rowTolerance = 1e-8
	// unitTolerance bounds |λ - 1| for an eigenvalue to count as the unit one.
	unitTolerance = 1e-8
)

// Policy is a Markov chain over the states 0..n-1 given by a row stochastic
// transition matrix. The stationary distribution is computed once at
// construction. A Policy is immutable and safe to share.
type Policy struct {
	p *mat.Dense
	d []float64
	n int
}

// New builds a policy from the rows of a transition matrix.
func New(rows [][]float64) (*Policy, error) {
	n := len(rows)
	if n == 0 {
		return nil, ErrEmpty
	}
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", ErrNotSquare, i, len(row), n)
		}
		data = append(data, row...)
	}
	return FromDense(mat.NewDense(n, n, data))
}

// FromDense builds a policy from a transition matrix. The matrix is copied.
func FromDense(p mat.Matrix) (*Policy, error) {
	if p == nil {
		return nil, ErrEmpty
	}
	r, c := p.Dims()
	if r == 0 {
		return nil, ErrEmpty
	}
	if r != c {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, r, c)
	}
	P := mat.DenseCopyOf(p)
	if err := checkStochastic(P); err != nil {
		return nil, err
	}
	d, err := stationary(P)
	if err != nil {
		return nil, err
	}
	return &Policy{p: P, d: d, n: r}, nil
}

func checkStochastic(P *mat.Dense) error {
	n, _ := P.Dims()
	for i := 0; i < n; i++ {
		row := P.RawRowView(i)
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return fmt.Errorf("%w: entry (%d,%d) = %v", ErrNotStochastic, i, j, v)
			}
		}
		if s := floats.Sum(row); math.Abs(s-1) > rowTolerance {
			return fmt.Errorf("%w: row %d sums to %v", ErrNotStochastic, i, s)
		}
	}
	return nil
}

// stationary returns the left eigenvector of P for the eigenvalue 1,
// normalised to sum 1.
func stationary(P *mat.Dense) ([]float64, error) {
	n, _ := P.Dims()
	var eig mat.Eigen
	if ok := eig.Factorize(P.T(), mat.EigenRight); !ok {
		return nil, fmt.Errorf("%w: eigen decomposition did not converge", ErrNoStationary)
	}
	values := eig.Values(nil)
	unit := -1
	for i, v := range values {
		if cmplx.Abs(v-1) > unitTolerance {
			continue
		}
		if unit >= 0 {
			return nil, ErrStationaryNotUnique
		}
		unit = i
	}
	if unit < 0 {
		return nil, ErrNoStationary
	}

	var vecs mat.CDense
	eig.VectorsTo(&vecs)
	d := make([]float64, n)
	for i := range d {
		d[i] = real(vecs.At(i, unit))
	}
	sum := floats.Sum(d)
	if math.Abs(sum) < unitTolerance {
		return nil, fmt.Errorf("%w: eigenvector sums to zero", ErrNoStationary)
	}
	floats.Scale(1/sum, d)
	for i, v := range d {
		if v < -unitTolerance {
			return nil, fmt.Errorf("%w: negative mass %v on state %d", ErrNoStationary, v, i)
		}
		if v < 0 {
			d[i] = 0
		}
	}
	return d, nil
}

// StationaryByPower approximates the stationary distribution by squaring P
// the given number of times and reading the first row of P^(2^doublings).
// It only agrees with the eigen answer for ergodic aperiodic chains and
// never reports failure.
func StationaryByPower(p mat.Matrix, doublings int) []float64 {
	a := mat.DenseCopyOf(p)
	for i := 0; i < doublings; i++ {
		var sq mat.Dense
		sq.Mul(a, a)
		a = &sq
	}
	return mat.Row(nil, 0, a)
}

// N is the number of states.
func (p *Policy) N() int {
	return p.n
}

// P returns a copy of the transition matrix.
func (p *Policy) P() *mat.Dense {
	return mat.DenseCopyOf(p.p)
}

// Matrix exposes the transition matrix read only.
func (p *Policy) Matrix() mat.Matrix {
	return p.p
}

// At returns P[s][next].
func (p *Policy) At(s, next int) float64 {
	return p.p.At(s, next)
}

// Row returns a copy of the transition probabilities out of s.
func (p *Policy) Row(s int) []float64 {
	return mat.Row(nil, s, p.p)
}

// D returns a copy of the stationary distribution.
func (p *Policy) D() []float64 {
	d := make([]float64, len(p.d))
	copy(d, p.d)
	return d
}

// DiagD returns the stationary distribution as a diagonal matrix.
func (p *Policy) DiagD() *mat.DiagDense {
	return mat.NewDiagDense(p.n, p.D())
}

// NextStep samples a successor of s. It panics if s is out of range.
func (p *Policy) NextStep(s int, src rand.Source) int {
	if s < 0 || s >= p.n {
		panic(fmt.Errorf("%w: %d", ErrState, s))
	}
	return int(distuv.NewCategorical(p.p.RawRowView(s), src).Rand())
}

// ParallelSteps samples one successor for every entry of states. Particles
// sharing a current state are drawn together from that state's row; groups
// are visited in increasing state order so a seeded source gives the same
// result every time. It panics if a state is out of range.
func (p *Policy) ParallelSteps(states []int, src rand.Source) []int {
	groups := make(map[int][]int)
	for i, s := range states {
		if s < 0 || s >= p.n {
			panic(fmt.Errorf("%w: %d", ErrState, s))
		}
		groups[s] = append(groups[s], i)
	}
	keys := make([]int, 0, len(groups))
	for s := range groups {
		keys = append(keys, s)
	}
	sort.Ints(keys)

	next := make([]int, len(states))
	for _, s := range keys {
		dist := distuv.NewCategorical(p.p.RawRowView(s), src)
		for _, i := range groups[s] {
			next[i] = int(dist.Rand())
		}
	}
	return next
}

func (p *Policy) String() string {
	var b strings.Builder
	b.WriteString("Transition matrix :\n")
	fmt.Fprintf(&b, "%v\n", mat.Formatted(p.p))
	fmt.Fprintf(&b, "Stationary distribution : %v", p.d)
	return b.String()
}
