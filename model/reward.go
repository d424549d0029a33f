package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Reward describes the immediate reward of a transition. Models always store
// rewards as the n×n matrix R[s][s']; a reward depending only on the next
// state is lifted into that form.
type Reward struct {
	nextState  []float64
	transition [][]float64
}

// NextStateReward is the reward r[s'] received when landing in s'.
func NextStateReward(r []float64) Reward {
	return Reward{nextState: r}
}

// TransitionReward is the reward R[s][s'] received on the transition s -> s'.
func TransitionReward(R [][]float64) Reward {
	return Reward{transition: R}
}

func (r Reward) matrix(n int) (*mat.Dense, error) {
	R := mat.NewDense(n, n, nil)
	switch {
	case r.transition != nil:
		if len(r.transition) != n {
			return nil, fmt.Errorf("%w: reward matrix has %d rows, want %d", ErrShape, len(r.transition), n)
		}
		for s, row := range r.transition {
			if len(row) != n {
				return nil, fmt.Errorf("%w: reward row %d has %d entries, want %d", ErrShape, s, len(row), n)
			}
			R.SetRow(s, row)
		}
	case r.nextState != nil:
		if len(r.nextState) != n {
			return nil, fmt.Errorf("%w: reward vector has %d entries, want %d", ErrShape, len(r.nextState), n)
		}
		for s := 0; s < n; s++ {
			R.SetRow(s, r.nextState)
		}
	}
	// no reward at all is a zero reward
	return R, nil
}
