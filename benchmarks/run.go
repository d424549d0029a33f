package benchmarks

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zeu5/emphatic-td/config"
)

func RunCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the comparison described by a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			m, err := config.Build(cfg)
			if err != nil {
				return fmt.Errorf("building the model: %w", err)
			}
			if m.VPi() == nil {
				m = withValues(m)
			}
			output := cfg.Run.Output
			if output == "" {
				output = saveFile
			}
			return compare(context.Background(), output, cfg.Run.Parallelism, cfg.Experiments(m), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Experiment file")
	cmd.MarkFlagRequired("config")
	return cmd
}
