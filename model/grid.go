package model

import (
	"fmt"

	"github.com/zeu5/emphatic-td/markov"
	"gonum.org/v1/gonum/mat"
)

// Walk are the move weights of a grid random walk.
type Walk struct {
	Up, Down, Left, Right float64
}

func (w Walk) policy(lx, ly int) (*markov.Policy, error) {
	return markov.GridRandomWalk(lx, ly, w.Up, w.Down, w.Left, w.Right)
}

// GridConfig describes a model living on an Lx×Ly grid. Per-cell quantities
// are indexed [x][y]; Features default to one-hot cells.
type GridConfig struct {
	Lx, Ly int

	Target   Walk
	Behavior *Walk

	Features  *mat.Dense
	Rewards   [][]float64 // reward for landing in the cell
	Interest  [][]float64
	Discounts [][]float64
	Lambdas   [][]float64
	VPi       [][]float64

	Theta0 []float64
	Start  [2]int
}

// Grid is a model whose states are grid cells.
type Grid struct {
	*Model
	Lx, Ly int
}

// CoordsToID maps (x, y) to the state index, false off the grid.
func (g *Grid) CoordsToID(x, y int) (int, bool) {
	return markov.GridCell(g.Lx, g.Ly, x, y)
}

// NewGrid flattens the grid description and builds the model.
func NewGrid(cfg GridConfig) (*Grid, error) {
	if cfg.Lx <= 0 || cfg.Ly <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrShape, cfg.Lx, cfg.Ly)
	}
	n := cfg.Lx * cfg.Ly
	s0, ok := markov.GridCell(cfg.Lx, cfg.Ly, cfg.Start[0], cfg.Start[1])
	if !ok {
		return nil, fmt.Errorf("%w: start %v is off the grid", ErrRange, cfg.Start)
	}

	pi, err := cfg.Target.policy(cfg.Lx, cfg.Ly)
	if err != nil {
		return nil, err
	}
	mu := pi
	if cfg.Behavior != nil {
		if mu, err = cfg.Behavior.policy(cfg.Lx, cfg.Ly); err != nil {
			return nil, err
		}
	}

	features := cfg.Features
	if features == nil {
		features = OneHot(n)
	}

	flat := make(map[string][]float64)
	for name, cells := range map[string][][]float64{
		"rewards":   cfg.Rewards,
		"interest":  cfg.Interest,
		"discounts": cfg.Discounts,
		"lambdas":   cfg.Lambdas,
		"v_pi":      cfg.VPi,
	} {
		if cells == nil {
			continue
		}
		if flat[name], err = flatten(name, cells, cfg.Lx, cfg.Ly); err != nil {
			return nil, err
		}
	}

	model, err := New(Config{
		Features:  features,
		Reward:    NextStateReward(flat["rewards"]),
		Pi:        pi,
		Mu:        mu,
		Interest:  flat["interest"],
		Discounts: flat["discounts"],
		Lambdas:   flat["lambdas"],
		Theta0:    cfg.Theta0,
		S0:        s0,
		VPi:       flat["v_pi"],
	})
	if err != nil {
		return nil, err
	}
	return &Grid{Model: model, Lx: cfg.Lx, Ly: cfg.Ly}, nil
}

func flatten(name string, cells [][]float64, lx, ly int) ([]float64, error) {
	if len(cells) != lx {
		return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrShape, name, len(cells), lx)
	}
	out := make([]float64, lx*ly)
	for x, row := range cells {
		if len(row) != ly {
			return nil, fmt.Errorf("%w: %s row %d has %d cells, want %d", ErrShape, name, x, len(row), ly)
		}
		for y, v := range row {
			id, _ := markov.GridCell(lx, ly, x, y)
			out[id] = v
		}
	}
	return out, nil
}
