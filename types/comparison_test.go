package types

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/emphatic-td/markov"
	"github.com/zeu5/emphatic-td/model"
	"github.com/zeu5/emphatic-td/td"
	"gonum.org/v1/gonum/mat"
)

// uniformModel jumps uniformly between two states and pays 1 for landing in
// state 0. Both states are worth 1 and the TD fixed point is 1/3.
func uniformModel(t *testing.T, features []float64) *model.Model {
	t.Helper()
	pi, err := markov.Uniform(2)
	require.NoError(t, err)
	m, err := model.New(model.Config{
		Features:  model.ScalarFeatures(features),
		Reward:    model.NextStateReward([]float64{1, 0}),
		Pi:        pi,
		Discounts: []float64{0.5},
		Theta0:    []float64{0},
		VPi:       []float64{1, 1},
	})
	require.NoError(t, err)
	return m
}

func TestExperimentRun(t *testing.T) {
	out := NewParallelOutput()
	e := NewExperiment("offtd", td.KindOffTD, 0.01, uniformModel(t, []float64{1, 3}), 200, 10, 7)

	r, err := e.Run(context.Background(), out, nil)
	require.NoError(t, err)

	assert.Equal(t, "offTD", r.Engine)
	assert.Equal(t, 200, r.Trajectory.Steps())
	assert.Equal(t, 10, r.Trajectory.Particles())
	require.NotNil(t, r.Optimal)
	assert.InDelta(t, 1.0/3, r.Optimal.AtVec(0), 1e-9)
	assert.NoError(t, r.OptimalErr)
	rows, _ := r.OptimalRun.Dims()
	assert.Equal(t, 201, rows)
	assert.Contains(t, out.Get(), "Exp: offtd, done")
}

// leftRightModel is the two state chain on which off-policy TD diverges
// while emphatic TD converges.
func leftRightModel(t *testing.T) *model.Model {
	t.Helper()
	pi, err := markov.LeftRight(2, 1, -1)
	require.NoError(t, err)
	mu, err := markov.LeftRight(2, -1, -1)
	require.NoError(t, err)
	m, err := model.New(model.Config{
		Features:  model.ScalarFeatures([]float64{1, 3}),
		Reward:    model.NextStateReward([]float64{0, 0}),
		Pi:        pi,
		Mu:        mu,
		Interest:  []float64{1, 0},
		Discounts: []float64{0.9},
		Theta0:    []float64{1},
	})
	require.NoError(t, err)
	return m
}

func TestExperimentReusesKeyMatrices(t *testing.T) {
	m := leftRightModel(t)
	for _, kind := range []string{td.KindOffTD, td.KindEmphaticTD} {
		r, err := NewExperiment(kind, kind, 0.01, m, 50, 2, 1).Run(context.Background(), nil, nil)
		require.NoError(t, err)

		engine, err := td.New(kind, 0.01)
		require.NoError(t, err)
		run, err := engine.OptimalRun(m, 50)
		require.NoError(t, err)
		optimal, err := engine.Optimal(m)
		require.NoError(t, err)
		assert.True(t, mat.Equal(run, r.OptimalRun), kind)
		assert.True(t, mat.Equal(optimal, r.Optimal), kind)
	}
}

func TestExperimentSingular(t *testing.T) {
	e := NewExperiment("zero", td.KindEmphaticTD, 0.01, uniformModel(t, []float64{0, 0}), 10, 2, 1)

	r, err := e.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, r.Optimal)
	assert.ErrorIs(t, r.OptimalErr, td.ErrSingular)
}

func TestExperimentErrors(t *testing.T) {
	m := uniformModel(t, []float64{1, 3})

	_, err := NewExperiment("bad", "sarsa", 0.01, m, 10, 1, 1).Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, td.ErrInvalidArgument)

	_, err = NewExperiment("bad", td.KindOffTD, 0.01, m, 10, 0, 1).Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, td.ErrInvalidArgument)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewExperiment("cancelled", td.KindOffTD, 0.01, m, 10, 1, 1).Run(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComparisonRun(t *testing.T) {
	dir := t.TempDir()
	c, err := NewComparison(&ComparisonConfig{RecordPath: dir, Parallelism: 2})
	require.NoError(t, err)

	m := uniformModel(t, []float64{1, 3})
	c.AddExperiment(NewExperiment("offtd", td.KindOffTD, 0.05, m, 300, 20, 1))
	c.AddExperiment(NewExperiment("emphatic", td.KindEmphaticTD, 0.05, m, 300, 20, 2))

	var names []string
	var datasets []DataSet
	c.AddAnalysis("theta", ThetaAnalyzer(0), func(n []string, ds []DataSet) error {
		names, datasets = n, ds
		return nil
	})
	var printed bytes.Buffer
	c.AddAnalysis("fixed_point", FixedPointAnalyzer(), PrintComparator(&printed))
	c.AddAnalysis("record", FixedPointAnalyzer(), RecordComparator(filepath.Join(dir, "fixed_points.jsonl")))
	c.AddAnalysis("plot", ThetaAnalyzer(0), ThetaPlotter(filepath.Join(dir, "plots")))
	c.AddAnalysis("csv", ThetaAnalyzer(0), ThetaRecorder(filepath.Join(dir, "csv")))
	c.AddAnalysis("msve", MSVEAnalyzer(), MSVEPlotter(filepath.Join(dir, "plots")))
	c.AddAnalysis("particles", ParticlesAnalyzer(0), ParticlesPlotter(filepath.Join(dir, "plots")))

	results, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, []string{"offtd", "emphatic"}, names)
	for _, ds := range datasets {
		tp := ds.(*ThetaPath)
		assert.Len(t, tp.Mean, 301)
		assert.False(t, tp.Singular)
		assert.InDelta(t, 1.0/3, tp.FixedPoint, 1e-9)
		assert.InDelta(t, tp.FixedPoint, tp.Expected[300], 1e-3)
	}

	lines := strings.Split(strings.TrimSpace(printed.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "offtd (offTD): optimal [0.333333]"))
	assert.True(t, strings.HasPrefix(lines[1], "emphatic (emphaticTD): optimal [0.333333]"))

	for _, file := range []string{
		"comparison_config.json",
		"fixed_points.jsonl",
		"plots/theta_0.png",
		"plots/msve.png",
		"plots/emphatic_particles_0.png",
		"csv/offtd_theta_0.csv",
		"csv/emphatic_theta_0.csv",
	} {
		_, err := os.Stat(filepath.Join(dir, file))
		assert.NoError(t, err, file)
	}
	bs, err := os.ReadFile(filepath.Join(dir, "fixed_points.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(bs), "\n"))
}

func TestComparisonSurvivesDivergence(t *testing.T) {
	dir := t.TempDir()
	c, err := NewComparison(&ComparisonConfig{RecordPath: dir})
	require.NoError(t, err)

	m := leftRightModel(t)
	c.AddExperiment(NewExperiment("offtd", td.KindOffTD, 0.5, m, 3000, 3, 1))
	c.AddExperiment(NewExperiment("emphatic", td.KindEmphaticTD, 0.5, m, 3000, 3, 1))

	var paths []*ThetaPath
	c.AddAnalysis("theta", ThetaAnalyzer(0), func(_ []string, ds []DataSet) error {
		for _, d := range ds {
			paths = append(paths, d.(*ThetaPath))
		}
		return nil
	})
	c.AddAnalysis("plot", ThetaAnalyzer(0), ThetaPlotter(filepath.Join(dir, "plots")))
	c.AddAnalysis("particles", ParticlesAnalyzer(0), ParticlesPlotter(filepath.Join(dir, "plots")))
	c.AddAnalysis("csv", ThetaAnalyzer(0), ThetaRecorder(filepath.Join(dir, "csv")))
	c.AddAnalysis("record", FixedPointAnalyzer(), RecordComparator(filepath.Join(dir, "fixed_points.jsonl")))
	var printed bytes.Buffer
	c.AddAnalysis("summary", FixedPointAnalyzer(), PrintComparator(&printed))

	_, err = c.Run(context.Background())
	require.NoError(t, err)

	// θ ← 1.2θ from 1 overflows long before 3000 steps
	require.Len(t, paths, 2)
	assert.True(t, math.IsInf(paths[0].Expected[3000], 1))
	assert.True(t, diverged(paths[0].Expected))
	assert.False(t, diverged(paths[1].Expected))

	lines := strings.Split(strings.TrimSpace(printed.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "offtd (offTD): optimal ["), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "emphatic (emphaticTD): optimal ["), lines[1])

	_, err = os.Stat(filepath.Join(dir, "plots", "theta_0.png"))
	assert.NoError(t, err)
	bs, err := os.ReadFile(filepath.Join(dir, "fixed_points.jsonl"))
	require.NoError(t, err)
	for _, l := range strings.Split(strings.TrimSpace(string(bs)), "\n") {
		assert.True(t, json.Valid([]byte(l)), l)
	}
}

func TestFixedPointNonFinite(t *testing.T) {
	fp := &FixedPoint{
		Engine:   "offTD",
		A:        [][]float64{{-0.4}},
		B:        []float64{0},
		Theta:    []float64{0},
		Residual: math.NaN(),
		Final:    []float64{math.Inf(1)},
		Diverged: true,
	}
	bs, err := json.Marshal(fp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"engine":"offTD","A":[[-0.4]],"b":[0],"theta":[0],"singular":false,"diverged":true,"residual":null,"final":[null]}`, string(bs))

	var out bytes.Buffer
	require.NoError(t, PrintComparator(&out)([]string{"x"}, []DataSet{fp}))
	assert.Equal(t, "x (offTD): optimal [0], final [+Inf], residual NaN, diverged\n", out.String())
}

func TestLineStopsAtDivergence(t *testing.T) {
	assert.Len(t, line([]float64{1, 2, 3}), 3)
	assert.Len(t, line([]float64{1, 2, math.NaN(), 4}), 2)
	assert.Len(t, line([]float64{1, 1e13, 1}), 1)
	assert.Len(t, line([]float64{1, math.Inf(-1)}), 1)
	assert.False(t, diverged([]float64{0, -5}))
	assert.True(t, diverged([]float64{0, math.NaN()}))
}

func TestComparisonStopsOnError(t *testing.T) {
	c, err := NewComparison(&ComparisonConfig{})
	require.NoError(t, err)
	m := uniformModel(t, []float64{1, 3})
	c.AddExperiment(NewExperiment("ok", td.KindOffTD, 0.05, m, 10, 1, 1))
	c.AddExperiment(NewExperiment("bad", "unknown", 0.05, m, 10, 1, 1))
	called := false
	c.AddAnalysis("theta", ThetaAnalyzer(0), func([]string, []DataSet) error {
		called = true
		return nil
	})

	_, err = c.Run(context.Background())
	assert.ErrorIs(t, err, td.ErrInvalidArgument)
	assert.False(t, called)
}

func TestComparisonClearsRecordPath(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))

	_, err := NewComparison(&ComparisonConfig{RecordPath: dir})
	require.NoError(t, err)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestMSVEAnalyzer(t *testing.T) {
	r, err := NewExperiment("msve", td.KindOffTD, 0.01, uniformModel(t, []float64{1, 3}), 50, 4, 3).
		Run(context.Background(), nil, nil)
	require.NoError(t, err)

	ds, err := MSVEAnalyzer()(r)
	require.NoError(t, err)
	curve := ds.(*MSVECurve)
	assert.Len(t, curve.Mean, 51)
	assert.Len(t, curve.Expected, 51)
	// both states weigh 1/2 · 1/2 and theta0 = 0 misses both values by 1
	assert.InDelta(t, 0.5, curve.Mean[0], 1e-12)
	assert.InDelta(t, 0.5, curve.Expected[0], 1e-12)
	// weighted least squares on features 1 and 3 gives theta = 0.4
	assert.InDelta(t, 0.1, curve.Min, 1e-6)
}

func TestThetaAnalyzerRange(t *testing.T) {
	r, err := NewExperiment("x", td.KindOffTD, 0.01, uniformModel(t, []float64{1, 3}), 5, 1, 3).
		Run(context.Background(), nil, nil)
	require.NoError(t, err)
	_, err = ThetaAnalyzer(1)(r)
	assert.Error(t, err)
}

func TestParallelOutput(t *testing.T) {
	out := NewParallelOutput()
	assert.Equal(t, "", out.Get())
	out.Set("a")
	assert.True(t, out.TrySet("b"))
	assert.Equal(t, "b", out.Get())
}

func TestTerminalPrinter(t *testing.T) {
	var buf bytes.Buffer
	outputs := []*ParallelOutput{NewParallelOutput(), NewParallelOutput()}
	outputs[0].Set("first")
	outputs[1].Set("second")

	p := NewTerminalPrinter(context.Background(), &buf, outputs, time.Hour)
	p.Start()
	p.Stop()

	assert.Contains(t, buf.String(), "first")
	assert.Contains(t, buf.String(), "second")
}
