package benchmarks

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/zeu5/emphatic-td/markov"
	"github.com/zeu5/emphatic-td/model"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// RandomModel draws the target and behavior chains, the features and the
// rewards from a source seeded with modelSeed.
func RandomModel(states, dims int, gamma, lambda float64, modelSeed uint64) (*model.Model, error) {
	rng := rand.New(rand.NewSource(modelSeed))
	pi, err := markov.Random(states, rng)
	if err != nil {
		return nil, err
	}
	mu, err := markov.Random(states, rng)
	if err != nil {
		return nil, err
	}

	features := mat.NewDense(states, dims, nil)
	features.Apply(func(_, _ int, _ float64) float64 { return rng.Float64() }, features)
	rewards := make([]float64, states)
	for s := range rewards {
		rewards[s] = rng.NormFloat64()
	}

	return model.New(model.Config{
		Features:  features,
		Reward:    model.NextStateReward(rewards),
		Pi:        pi,
		Mu:        mu,
		Discounts: []float64{gamma},
		Lambdas:   []float64{lambda},
		Theta0:    []float64{0},
	})
}

func RandomCommand() *cobra.Command {
	var states int
	var dims int
	var gamma float64
	var lambda float64
	var modelSeed uint64

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Random chains, features and rewards",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := RandomModel(states, dims, gamma, lambda, modelSeed)
			if err != nil {
				return err
			}
			return compare(context.Background(), saveFile, parallel, bothEngines(withValues(m)), cmd.OutOrStdout())
		},
	}
	cmd.PersistentFlags().IntVar(&states, "states", 5, "Number of states")
	cmd.PersistentFlags().IntVar(&dims, "features", 2, "Dimension of the features")
	cmd.PersistentFlags().Float64Var(&gamma, "gamma", 0.9, "Discount of every state")
	cmd.PersistentFlags().Float64Var(&lambda, "lambda", 0, "Bootstrapping parameter of every state")
	cmd.PersistentFlags().Uint64Var(&modelSeed, "model-seed", 0, "Seed of the model draw")
	return cmd
}
