package types

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"runtime"
	"time"

	"github.com/zeu5/emphatic-td/util"
	"golang.org/x/sync/errgroup"
)

// Generic Dataset that contains information extracted from a result
type DataSet interface{}

// Analyzer compresses a result to a DataSet
type Analyzer func(*Result) (DataSet, error)

// Comparator differentiates between different datasets with associated names
type Comparator func(names []string, ds []DataSet) error

// ComparisonConfig contains the configuration for the comparison
type ComparisonConfig struct {
	RecordPath  string // path to store the results, nothing is written when empty
	Parallelism int    // experiments running at once, GOMAXPROCS by default

	// status line refresh, no terminal output when zero
	PrintFrequency time.Duration
	Out            io.Writer

	Logger *slog.Logger
}

// Comparison contains the different experiments to compare
// The results of the experiments are analyzed
// The analyzed datasets are then compared
type Comparison struct {
	Experiments []*Experiment
	analyses    []string
	analyzers   map[string]Analyzer
	comparators map[string]Comparator
	cConfig     *ComparisonConfig
	logger      *slog.Logger
}

// NewComparison creates a comparison instance, clearing the record path
func NewComparison(config *ComparisonConfig) (*Comparison, error) {
	if config.RecordPath != "" {
		if _, err := os.Stat(config.RecordPath); err == nil {
			if err := util.RemoveContents(config.RecordPath); err != nil {
				return nil, err
			}
		}
		if err := os.MkdirAll(config.RecordPath, 0777); err != nil {
			return nil, err
		}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Comparison{
		Experiments: make([]*Experiment, 0),
		analyzers:   make(map[string]Analyzer),
		comparators: make(map[string]Comparator),
		cConfig:     config,
		logger:      logger,
	}, nil
}

// AddAnalysis adds an analyzer and comparator to the comparison
func (c *Comparison) AddAnalysis(name string, analyzer Analyzer, comparator Comparator) {
	if _, ok := c.analyzers[name]; !ok {
		c.analyses = append(c.analyses, name)
	}
	c.analyzers[name] = analyzer
	c.comparators[name] = comparator
}

// Add experiments to compare
func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

// Run every experiment, then every analysis on the results in the order the
// experiments were added. The results are returned in the same order.
func (c *Comparison) Run(ctx context.Context) ([]*Result, error) {
	if err := c.recordConfig(); err != nil {
		return nil, err
	}

	outputs := make([]*ParallelOutput, len(c.Experiments))
	for i := range outputs {
		outputs[i] = NewParallelOutput()
	}
	if c.cConfig.PrintFrequency > 0 && len(outputs) > 0 {
		out := c.cConfig.Out
		if out == nil {
			out = os.Stdout
		}
		printer := NewTerminalPrinter(ctx, out, outputs, c.cConfig.PrintFrequency)
		printer.Start()
		defer printer.Stop()
	}

	limit := c.cConfig.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	results := make([]*Result, len(c.Experiments))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, e := range c.Experiments {
		i, e := i, e
		g.Go(func() error {
			r, err := e.Run(gCtx, outputs[i], c.logger)
			if err != nil {
				return err
			}
			results[i] = r
			c.logger.Info("experiment finished", "experiment", e.Name, "engine", r.Engine, "duration", r.Duration)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	for _, name := range c.analyses {
		datasets := make([]DataSet, len(results))
		for i, r := range results {
			ds, err := c.analyzers[name](r)
			if err != nil {
				return nil, fmt.Errorf("analysis %s of %s: %w", name, r.Name, err)
			}
			datasets[i] = ds
		}
		if err := c.comparators[name](names, datasets); err != nil {
			return nil, fmt.Errorf("comparison %s: %w", name, err)
		}
	}
	return results, nil
}

type experimentRecord struct {
	Name      string  `json:"name"`
	Engine    string  `json:"engine"`
	Alpha     float64 `json:"alpha"`
	Steps     int     `json:"steps"`
	Particles int     `json:"particles"`
	Seed      uint64  `json:"seed"`
	States    int     `json:"states"`
	Features  int     `json:"features"`
}

// record the configuration of the comparison
func (c *Comparison) recordConfig() error {
	if c.cConfig.RecordPath == "" {
		return nil
	}
	out := make(map[string]interface{})
	out["parallelism"] = c.cConfig.Parallelism

	experiments := make([]experimentRecord, 0, len(c.Experiments))
	for _, e := range c.Experiments {
		rec := experimentRecord{
			Name:      e.Name,
			Engine:    e.Kind,
			Alpha:     e.Alpha,
			Steps:     e.Steps,
			Particles: e.Particles,
			Seed:      e.Seed,
		}
		if e.Model != nil {
			rec.States, rec.Features = e.Model.N(), e.Model.P()
		}
		experiments = append(experiments, rec)
	}
	out["experiments"] = experiments
	out["analyzers"] = c.analyses

	bs, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return util.WriteToFile(path.Join(c.cConfig.RecordPath, "comparison_config.json"), string(bs))
}
