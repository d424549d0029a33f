package benchmarks

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/zeu5/emphatic-td/markov"
	"github.com/zeu5/emphatic-td/model"
)

// LeftRightModel is the two state example where off-policy TD(0) diverges:
// the target always moves right, the behavior moves uniformly, features are
// 1 and 3 and only the first state is of interest.
func LeftRightModel(gamma, lambda, theta0 float64) (*model.Model, error) {
	pi, err := markov.LeftRight(2, 1, -1)
	if err != nil {
		return nil, err
	}
	mu, err := markov.LeftRight(2, -1, -1)
	if err != nil {
		return nil, err
	}
	return model.New(model.Config{
		Features:  model.ScalarFeatures([]float64{1, 3}),
		Reward:    model.NextStateReward([]float64{0, 0}),
		Pi:        pi,
		Mu:        mu,
		Interest:  []float64{1, 0},
		Discounts: []float64{gamma},
		Lambdas:   []float64{lambda},
		Theta0:    []float64{theta0},
	})
}

func LeftRightCommand() *cobra.Command {
	var gamma float64
	var lambda float64
	var theta0 float64

	cmd := &cobra.Command{
		Use:   "leftright",
		Short: "Two state chain where off-policy TD diverges and emphatic TD does not",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := LeftRightModel(gamma, lambda, theta0)
			if err != nil {
				return err
			}
			return compare(context.Background(), saveFile, parallel, bothEngines(withValues(m)), cmd.OutOrStdout())
		},
	}
	cmd.PersistentFlags().Float64Var(&gamma, "gamma", 0.9, "Discount of both states")
	cmd.PersistentFlags().Float64Var(&lambda, "lambda", 0, "Bootstrapping parameter of both states")
	cmd.PersistentFlags().Float64Var(&theta0, "theta0", 1, "Initial parameter")
	return cmd
}
