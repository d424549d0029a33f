package benchmarks

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	steps      int
	particles  int
	alpha      float64
	seed       uint64
	saveFile   string
	parallel   int
	cpuprofile string
	memprofile string
	verbose    bool
	quiet      bool
)

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "emphatic-td",
		Short:         "Compare off-policy TD(0) and emphatic TD(λ) on Markov reward processes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCommand.PersistentFlags().IntVarP(&steps, "steps", "t", 10000, "Number of steps of each run")
	rootCommand.PersistentFlags().IntVarP(&particles, "particles", "n", 500, "Number of particles run in parallel")
	rootCommand.PersistentFlags().Float64Var(&alpha, "alpha", 0.001, "Step size of both engines")
	rootCommand.PersistentFlags().Uint64Var(&seed, "seed", 1, "Seed of the particle simulation")
	rootCommand.PersistentFlags().StringVarP(&saveFile, "save", "s", "results", "Save the result data in the specified folder")
	rootCommand.PersistentFlags().IntVar(&parallel, "parallel", 0, "Experiments running at once, all cores by default")
	rootCommand.PersistentFlags().StringVar(&cpuprofile, "cpuprofile", "", "Write a cpu profile to this file in the save folder")
	rootCommand.PersistentFlags().StringVar(&memprofile, "memprofile", "", "Write a heap profile to this file in the save folder")
	rootCommand.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every progress report")
	rootCommand.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the live progress")
	// adding the subcommands here
	rootCommand.AddCommand(LeftRightCommand())
	rootCommand.AddCommand(GridCommand())
	rootCommand.AddCommand(RandomCommand())
	rootCommand.AddCommand(RunCommand())
	return rootCommand
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
