// Package td implements off-policy TD(0) and emphatic TD(λ) for linear value
// functions over finite Markov reward processes. Each engine simulates N
// independent particles in lock step and can compute the fixed point its
// updates converge to, from the key matrices A and b.
package td

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/zeu5/emphatic-td/model"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidArgument is returned for non positive step sizes, negative
	// horizons or an empty particle set.
	ErrInvalidArgument = errors.New("td: invalid argument")
	// ErrSingular is returned when a matrix that must be inverted is not.
	ErrSingular = errors.New("td: singular matrix")
)

// Engine is a TD algorithm.
type Engine interface {
	Name() string
	Alpha() float64
	// Run simulates T steps of N particles drawn from the behavior policy.
	Run(m *model.Model, T, N int, src rand.Source) (*Trajectory, error)
	// KeyMatrices returns A and b such that the expected update is α(b - Aθ).
	KeyMatrices(m *model.Model) (*mat.Dense, *mat.VecDense, error)
	// Optimal is the fixed point A⁻¹b.
	Optimal(m *model.Model) (*mat.VecDense, error)
	// OptimalRun is the deterministic recursion θ ← θ + α(b - Aθ) from theta0,
	// as a (T+1)×p matrix.
	OptimalRun(m *model.Model, T int) (*mat.Dense, error)
}

// ProgressFunc is called with the number of completed steps.
type ProgressFunc func(step, total int)

// Option configures an engine.
type Option func(*base)

// WithLogger sets the logger, discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(b *base) {
		b.logger = l
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(b *base) {
		b.progress = fn
	}
}

// WithProgressEvery sets how many steps separate two progress reports.
func WithProgressEvery(k int) Option {
	return func(b *base) {
		if k > 0 {
			b.every = k
		}
	}
}

// base holds what both engines share.
type base struct {
	name     string
	alpha    float64
	logger   *slog.Logger
	progress ProgressFunc
	every    int
}

func newBase(name string, alpha float64, opts []Option) base {
	b := base{
		name:   name,
		alpha:  alpha,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		every:  1000,
	}
	for _, o := range opts {
		o(&b)
	}
	return b
}

func (b *base) Name() string   { return b.name }
func (b *base) Alpha() float64 { return b.alpha }

func (b *base) check(m *model.Model, T, N int) error {
	switch {
	case m == nil:
		return fmt.Errorf("%w: nil model", ErrInvalidArgument)
	case b.alpha <= 0:
		return fmt.Errorf("%w: alpha = %v", ErrInvalidArgument, b.alpha)
	case T < 0:
		return fmt.Errorf("%w: T = %d", ErrInvalidArgument, T)
	case N < 1:
		return fmt.Errorf("%w: N = %d", ErrInvalidArgument, N)
	}
	return nil
}

func (b *base) report(t, T int) {
	if t%b.every != 0 && t != T {
		return
	}
	b.logger.Debug("computing "+b.name, "step", t, "total", T)
	if b.progress != nil {
		b.progress(t, T)
	}
}

func source(src rand.Source) rand.Source {
	if src == nil {
		return rand.NewSource(uint64(time.Now().UnixNano()))
	}
	return src
}

type keyer interface {
	KeyMatrices(m *model.Model) (*mat.Dense, *mat.VecDense, error)
}

func optimal(k keyer, m *model.Model) (*mat.VecDense, error) {
	A, b, err := k.KeyMatrices(m)
	if err != nil {
		return nil, err
	}
	return Solve(A, b)
}

func optimalRun(k keyer, alpha float64, m *model.Model, T int) (*mat.Dense, error) {
	if T < 0 {
		return nil, fmt.Errorf("%w: T = %d", ErrInvalidArgument, T)
	}
	A, b, err := k.KeyMatrices(m)
	if err != nil {
		return nil, err
	}
	return Descend(A, b, m.Theta0(), alpha, T), nil
}

// Kinds of engines known to New.
const (
	KindOffTD      = "offtd"
	KindEmphaticTD = "emphatic"
)

// New creates the engine of the given kind.
func New(kind string, alpha float64, opts ...Option) (Engine, error) {
	switch kind {
	case KindOffTD:
		return NewOffTD(alpha, opts...), nil
	case KindEmphaticTD:
		return NewEmphaticTD(alpha, opts...), nil
	}
	return nil, fmt.Errorf("%w: unknown engine %q", ErrInvalidArgument, kind)
}
