package benchmarks

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/zeu5/emphatic-td/model"
	"github.com/zeu5/emphatic-td/td"
	"github.com/zeu5/emphatic-td/types"
)

// plotted components of theta, the others are only recorded
const maxPlotted = 3

// bothEngines are the two experiments every builtin command compares.
func bothEngines(m *model.Model) []*types.Experiment {
	return []*types.Experiment{
		types.NewExperiment("offTD", td.KindOffTD, alpha, m, steps, particles, seed),
		types.NewExperiment("emphaticTD", td.KindEmphaticTD, alpha, m, steps, particles, seed),
	}
}

// withValues attaches the true values of the target policy to m, so that the
// msve can be analysed. m is returned unchanged when they are not defined.
func withValues(m *model.Model) *model.Model {
	v, err := m.Values()
	if err != nil {
		return m
	}
	valued, err := m.WithValues(v)
	if err != nil {
		return m
	}
	return valued
}

// compare runs the experiments and writes the plots and records under
// recordPath.
func compare(ctx context.Context, recordPath string, parallelism int, experiments []*types.Experiment, out io.Writer) error {
	if len(experiments) == 0 {
		return fmt.Errorf("nothing to compare")
	}
	logger := newLogger()
	frequency := 500 * time.Millisecond
	if quiet {
		frequency = 0
	}
	c, err := types.NewComparison(&types.ComparisonConfig{
		RecordPath:     recordPath,
		Parallelism:    parallelism,
		PrintFrequency: frequency,
		Out:            out,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	valued := true
	dims := experiments[0].Model.P()
	for _, e := range experiments {
		c.AddExperiment(e)
		valued = valued && e.Model.VPi() != nil
		if p := e.Model.P(); p < dims {
			dims = p
		}
	}

	plots := path.Join(recordPath, "plots")
	records := path.Join(recordPath, "records")
	for k := 0; k < dims; k++ {
		c.AddAnalysis(fmt.Sprintf("theta_%d_csv", k), types.ThetaAnalyzer(k), types.ThetaRecorder(records))
		if k < maxPlotted {
			c.AddAnalysis(fmt.Sprintf("theta_%d", k), types.ThetaAnalyzer(k), types.ThetaPlotter(plots))
		}
	}
	c.AddAnalysis("particles", types.ParticlesAnalyzer(0), types.ParticlesPlotter(plots))
	if valued {
		c.AddAnalysis("msve", types.MSVEAnalyzer(), types.MSVEPlotter(plots))
	}
	c.AddAnalysis("fixed_points", types.FixedPointAnalyzer(), types.RecordComparator(path.Join(records, "fixed_points.jsonl")))
	c.AddAnalysis("summary", types.FixedPointAnalyzer(), types.PrintComparator(out))

	stop, err := startProfiling()
	if err != nil {
		return err
	}
	_, err = c.Run(ctx)
	if stopErr := stop(); err == nil {
		err = stopErr
	}
	return err
}
