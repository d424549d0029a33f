package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/emphatic-td/td"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

const leftRightYAML = `
chain:
  kind: leftright
  states: 2
  right: 1
behavior:
  kind: leftright
  states: 2
features: [[1], [3]]
rewards:
  next_state: [0, 0]
interest: [1, 0]
discounts: [0.9]
theta0: [1]
engines:
  - kind: offtd
    alpha: 0.001
  - name: emphatic-fast
    kind: emphatic
    alpha: 0.01
run:
  steps: 500
  particles: 20
  seed: 3
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(leftRightYAML))
	require.NoError(t, err)

	assert.Equal(t, ChainLeftRight, cfg.Chain.Kind)
	require.NotNil(t, cfg.Chain.Right)
	assert.Equal(t, 1.0, *cfg.Chain.Right)
	assert.Nil(t, cfg.Chain.Left)
	require.Len(t, cfg.Engines, 2)
	assert.Equal(t, "offtd", cfg.Engines[0].Name)
	assert.Equal(t, "emphatic-fast", cfg.Engines[1].Name)
	assert.Equal(t, 500, cfg.Run.Steps)
	assert.Equal(t, 20, cfg.Run.Particles)
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte("chain: {kind: uniform, states: 3}\n"))
	require.NoError(t, err)

	assert.Equal(t, []float64{0}, cfg.Theta0)
	assert.Equal(t, DefaultSteps, cfg.Run.Steps)
	assert.Equal(t, DefaultParticles, cfg.Run.Particles)
	require.Len(t, cfg.Engines, 2)
	assert.Equal(t, td.KindOffTD, cfg.Engines[0].Kind)
	assert.Equal(t, td.KindEmphaticTD, cfg.Engines[1].Kind)
	assert.Equal(t, DefaultAlpha, cfg.Engines[1].Alpha)

	m, err := Build(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, m.N())
	assert.Equal(t, 3, m.P(), "one-hot features")
}

func TestValidateCollectsErrors(t *testing.T) {
	_, err := Parse([]byte(`
chain: {kind: leftright, states: 0, right: 2}
rewards:
  next_state: [0]
  transition: [[0]]
engines:
  - {kind: sarsa, alpha: -1}
run: {particles: -1}
s0: -1
`))
	var verr ValidationError
	require.True(t, errors.As(err, &verr))

	fields := make([]string, 0, len(verr.Errors))
	for _, e := range verr.Errors {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{
		"chain.states",
		"chain.right",
		"rewards",
		"engines[0].kind",
		"engines[0].alpha",
		"run.particles",
		"s0",
	}, fields)
}

func TestValidateChains(t *testing.T) {
	tests := []struct {
		name  string
		chain ChainConfig
		field string
	}{
		{"missing kind", ChainConfig{}, "chain.kind"},
		{"unknown kind", ChainConfig{Kind: "torus"}, "chain.kind"},
		{"empty grid", ChainConfig{Kind: ChainGrid, Width: 2}, "chain"},
		{"empty matrix", ChainConfig{Kind: ChainMatrix}, "chain.matrix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Chain: tt.chain}
			ApplyDefaults(cfg)
			var verr ValidationError
			require.True(t, errors.As(Validate(cfg), &verr))
			require.Len(t, verr.Errors, 1)
			assert.Equal(t, tt.field, verr.Errors[0].Field)
		})
	}
}

func TestBehaviorStateMismatch(t *testing.T) {
	cfg := &Config{
		Chain:    ChainConfig{Kind: ChainUniform, States: 2},
		Behavior: &ChainConfig{Kind: ChainUniform, States: 3},
	}
	ApplyDefaults(cfg)
	assert.ErrorContains(t, Validate(cfg), "behavior: has 3 states, chain has 2")
}

func TestBuildLeftRight(t *testing.T) {
	cfg, err := Parse([]byte(leftRightYAML))
	require.NoError(t, err)
	m, err := Build(cfg)
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.Pi().At(0, 0))
	assert.Equal(t, 1.0, m.Pi().At(0, 1))
	assert.Equal(t, 0.5, m.Mu().At(0, 0))
	assert.Equal(t, 2.0, m.Phi(0, 1))
	assert.Equal(t, []float64{0.9, 0.9}, m.Discounts())

	A, b, err := td.NewOffTD(0.001).KeyMatrices(m)
	require.NoError(t, err)
	assert.InDelta(t, -0.4, A.At(0, 0), 1e-9)
	assert.InDelta(t, 0, b.AtVec(0), 1e-12)

	exps := cfg.Experiments(m)
	require.Len(t, exps, 2)
	assert.Equal(t, "emphatic-fast", exps[1].Name)
	assert.Equal(t, td.KindEmphaticTD, exps[1].Kind)
	assert.Equal(t, 0.01, exps[1].Alpha)
	assert.Equal(t, uint64(3), exps[1].Seed)
}

func TestBuildChains(t *testing.T) {
	tests := []struct {
		name  string
		chain ChainConfig
		n     int
	}{
		{"uniform", ChainConfig{Kind: ChainUniform, States: 4}, 4},
		{"random", ChainConfig{Kind: ChainRandom, States: 5, Seed: 9}, 5},
		{"grid", ChainConfig{Kind: ChainGrid, Width: 2, Height: 3, Walk: WalkConfig{Up: 0.25, Down: 0.25, Left: 0.25, Right: 0.25}}, 6},
		{"matrix", ChainConfig{Kind: ChainMatrix, Matrix: [][]float64{{0.5, 0.5}, {1, 0}}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := BuildChain(&tt.chain)
			require.NoError(t, err)
			assert.Equal(t, tt.n, p.N())
		})
	}

	again, err := BuildChain(&tests[1].chain)
	require.NoError(t, err)
	first, err := BuildChain(&tests[1].chain)
	require.NoError(t, err)
	assert.True(t, mat.Equal(first.Matrix(), again.Matrix()), "random chains are seeded")

	_, err = BuildChain(&ChainConfig{Kind: ChainMatrix, Matrix: [][]float64{{0.5, 0.4}, {1, 0}}})
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	cfg, err := Parse([]byte(leftRightYAML))
	require.NoError(t, err)
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)

	m1, err := Build(cfg)
	require.NoError(t, err)
	m2, err := Build(again)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m1.PhiMatrix(), m2.PhiMatrix()))
	assert.True(t, mat.Equal(m1.FeatureMatrix(), m2.FeatureMatrix()))
	assert.Equal(t, m1.Interests(), m2.Interests())
}

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "experiment.yaml")
	require.NoError(t, os.WriteFile(file, []byte(leftRightYAML), 0644))
	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Chain.StateCount())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("chain: [1, 2"), 0644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "failed to parse configuration")
}
