package config

import (
	"fmt"

	"github.com/zeu5/emphatic-td/markov"
	"github.com/zeu5/emphatic-td/model"
	"github.com/zeu5/emphatic-td/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Build turns a validated configuration into a model.
func Build(cfg *Config) (*model.Model, error) {
	pi, err := BuildChain(&cfg.Chain)
	if err != nil {
		return nil, fmt.Errorf("chain: %w", err)
	}
	var mu *markov.Policy
	if cfg.Behavior != nil {
		if mu, err = BuildChain(cfg.Behavior); err != nil {
			return nil, fmt.Errorf("behavior: %w", err)
		}
	}

	var features *mat.Dense
	if len(cfg.Features) == 0 {
		features = model.OneHot(pi.N())
	} else if features, err = model.Features(cfg.Features); err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}

	var reward model.Reward
	switch {
	case cfg.Rewards.Transition != nil:
		reward = model.TransitionReward(cfg.Rewards.Transition)
	case cfg.Rewards.NextState != nil:
		reward = model.NextStateReward(cfg.Rewards.NextState)
	}

	return model.New(model.Config{
		Features:  features,
		Reward:    reward,
		Pi:        pi,
		Mu:        mu,
		Interest:  cfg.Interest,
		Discounts: cfg.Discounts,
		Lambdas:   cfg.Lambdas,
		Theta0:    cfg.Theta0,
		S0:        cfg.S0,
		VPi:       cfg.VPi,
	})
}

// BuildChain builds the policy a chain describes.
func BuildChain(c *ChainConfig) (*markov.Policy, error) {
	switch c.Kind {
	case ChainLeftRight:
		right, left := -1.0, -1.0
		if c.Right != nil {
			right = *c.Right
		}
		if c.Left != nil {
			left = *c.Left
		}
		return markov.LeftRight(c.States, right, left)
	case ChainUniform:
		return markov.Uniform(c.States)
	case ChainRandom:
		return markov.Random(c.States, rand.NewSource(c.Seed))
	case ChainGrid:
		w := c.Walk
		return markov.GridRandomWalk(c.Width, c.Height, w.Up, w.Down, w.Left, w.Right)
	case ChainMatrix:
		return markov.New(c.Matrix)
	}
	return nil, fmt.Errorf("unknown chain kind %q", c.Kind)
}

// Experiments are the engines of the configuration, all running on m.
func (cfg *Config) Experiments(m *model.Model) []*types.Experiment {
	out := make([]*types.Experiment, 0, len(cfg.Engines))
	for _, e := range cfg.Engines {
		out = append(out, types.NewExperiment(e.Name, e.Kind, e.Alpha, m, cfg.Run.Steps, cfg.Run.Particles, cfg.Run.Seed))
	}
	return out
}
