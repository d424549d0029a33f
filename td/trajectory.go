package td

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Trajectory is the output of a run of T steps with N particles. It is
// allocated per run and owned by the caller.
type Trajectory struct {
	// Theta holds T+1 matrices of N×p, one parameter vector per particle.
	Theta []*mat.Dense
	// States holds T+1 slices of N visited states.
	States [][]int

	// Followon holds the T+1 followon traces of every particle, emphatic
	// TD only.
	Followon [][]float64
	// Eligibility holds the T eligibility traces (N×p) of every particle,
	// emphatic TD only. E[t] depends on S[t+1], so there is none at T.
	Eligibility []*mat.Dense
}

func newTrajectory(T, N, p int) *Trajectory {
	tr := &Trajectory{
		Theta:  make([]*mat.Dense, T+1),
		States: make([][]int, T+1),
	}
	for t := 0; t <= T; t++ {
		tr.Theta[t] = mat.NewDense(N, p, nil)
		tr.States[t] = make([]int, N)
	}
	return tr
}

// Steps is T.
func (tr *Trajectory) Steps() int { return len(tr.Theta) - 1 }

// Particles is N.
func (tr *Trajectory) Particles() int {
	n, _ := tr.Theta[0].Dims()
	return n
}

func (tr *Trajectory) dim() int {
	_, p := tr.Theta[0].Dims()
	return p
}

// Final is the N×p parameters after the last step.
func (tr *Trajectory) Final() *mat.Dense { return tr.Theta[len(tr.Theta)-1] }

// Mean is the (T+1)×p average of the parameters over the particles.
func (tr *Trajectory) Mean() *mat.Dense {
	p, N := tr.dim(), float64(tr.Particles())
	mean := mat.NewDense(len(tr.Theta), p, nil)
	for t, th := range tr.Theta {
		row := mean.RawRowView(t)
		for j := 0; j < p; j++ {
			row[j] = mat.Sum(th.ColView(j)) / N
		}
	}
	return mean
}

// Std is the (T+1)×p population standard deviation over the particles.
func (tr *Trajectory) Std() *mat.Dense {
	p := tr.dim()
	std := mat.NewDense(len(tr.Theta), p, nil)
	col := make([]float64, tr.Particles())
	for t, th := range tr.Theta {
		for j := 0; j < p; j++ {
			mat.Col(col, j, th)
			_, sd := stat.PopMeanStdDev(col, nil)
			std.Set(t, j, sd)
		}
	}
	return std
}

// Component is the (T+1)×N path of parameter k for every particle.
func (tr *Trajectory) Component(k int) *mat.Dense {
	N := tr.Particles()
	c := mat.NewDense(len(tr.Theta), N, nil)
	for t, th := range tr.Theta {
		mat.Col(c.RawRowView(t), k, th)
	}
	return c
}
