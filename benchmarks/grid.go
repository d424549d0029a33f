package benchmarks

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/zeu5/emphatic-td/model"
)

// GridModel walks on a width×height grid towards the far corner, which pays
// 1, while the behavior walks uniformly. Features are one-hot cells.
func GridModel(width, height int, gamma, lambda float64) (*model.Grid, error) {
	rewards := make([][]float64, width)
	discounts := make([][]float64, width)
	lambdas := make([][]float64, width)
	for x := range rewards {
		rewards[x] = make([]float64, height)
		discounts[x] = make([]float64, height)
		lambdas[x] = make([]float64, height)
		for y := range rewards[x] {
			discounts[x][y] = gamma
			lambdas[x][y] = lambda
		}
	}
	rewards[width-1][height-1] = 1

	return model.NewGrid(model.GridConfig{
		Lx:        width,
		Ly:        height,
		Target:    model.Walk{Up: 0.1, Down: 0.4, Left: 0.1, Right: 0.4},
		Behavior:  &model.Walk{Up: 0.25, Down: 0.25, Left: 0.25, Right: 0.25},
		Rewards:   rewards,
		Discounts: discounts,
		Lambdas:   lambdas,
		Theta0:    []float64{0},
	})
}

func GridCommand() *cobra.Command {
	var height int
	var width int
	var gamma float64
	var lambda float64

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Random walk on a grid with a single rewarding corner",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := GridModel(width, height, gamma, lambda)
			if err != nil {
				return err
			}
			return compare(context.Background(), saveFile, parallel, bothEngines(withValues(g.Model)), cmd.OutOrStdout())
		},
	}
	cmd.PersistentFlags().IntVar(&height, "height", 4, "Height of the grid")
	cmd.PersistentFlags().IntVar(&width, "width", 4, "Width of the grid")
	cmd.PersistentFlags().Float64Var(&gamma, "gamma", 0.9, "Discount of every cell")
	cmd.PersistentFlags().Float64Var(&lambda, "lambda", 0, "Bootstrapping parameter of every cell")
	return cmd
}
