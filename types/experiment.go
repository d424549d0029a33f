package types

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/zeu5/emphatic-td/model"
	"github.com/zeu5/emphatic-td/td"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Experiment runs one TD engine on one model
type Experiment struct {
	Name      string
	Kind      string // td.KindOffTD or td.KindEmphaticTD
	Alpha     float64
	Model     *model.Model
	Steps     int
	Particles int
	Seed      uint64
}

// NewExperiment creates a new experiment instance
func NewExperiment(name, kind string, alpha float64, m *model.Model, steps, particles int, seed uint64) *Experiment {
	return &Experiment{
		Name:      name,
		Kind:      kind,
		Alpha:     alpha,
		Model:     m,
		Steps:     steps,
		Particles: particles,
		Seed:      seed,
	}
}

// Result is everything an experiment produces, read by the analyzers
type Result struct {
	Name   string
	Engine string
	Alpha  float64
	Model  *model.Model

	Trajectory *td.Trajectory
	OptimalRun *mat.Dense // (T+1)×p deterministic recursion
	A          *mat.Dense
	B          *mat.VecDense

	// Optimal is A⁻¹b, nil when A is singular (OptimalErr says why)
	Optimal    *mat.VecDense
	OptimalErr error

	Duration time.Duration
}

// Run the experiment, reporting the progress of the simulation to output.
func (e *Experiment) Run(ctx context.Context, output *ParallelOutput, logger *slog.Logger) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("experiment", e.Name)

	opts := []td.Option{td.WithLogger(logger)}
	if output != nil {
		opts = append(opts, td.WithProgress(func(step, total int) {
			output.TrySet(fmt.Sprintf("Exp: %s, Step: %d/%d", e.Name, step, total))
		}))
	}
	engine, err := td.New(e.Kind, e.Alpha, opts...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	A, b, err := engine.KeyMatrices(e.Model)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", e.Name, err)
	}
	trajectory, err := engine.Run(e.Model, e.Steps, e.Particles, rand.NewSource(e.Seed))
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", e.Name, err)
	}
	optimalRun := td.Descend(A, b, e.Model.Theta0(), e.Alpha, e.Steps)
	optimal, optimalErr := td.Solve(A, b)
	if optimalErr != nil && !errors.Is(optimalErr, td.ErrSingular) {
		return nil, fmt.Errorf("experiment %s: %w", e.Name, optimalErr)
	}

	result := &Result{
		Name:       e.Name,
		Engine:     engine.Name(),
		Alpha:      e.Alpha,
		Model:      e.Model,
		Trajectory: trajectory,
		OptimalRun: optimalRun,
		A:          A,
		B:          b,
		Optimal:    optimal,
		OptimalErr: optimalErr,
		Duration:   time.Since(start),
	}
	if output != nil {
		output.Set(fmt.Sprintf("Exp: %s, done in %s", e.Name, result.Duration.Round(time.Millisecond)))
	}
	return result, nil
}
