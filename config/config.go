// Package config reads experiment descriptions from YAML files: the Markov
// chains, the model around them, the engines to compare and how long to run
// them.
package config

// Config is the root of an experiment file.
type Config struct {
	// Chain is the target policy.
	Chain ChainConfig `yaml:"chain"`
	// Behavior defaults to the target policy.
	Behavior *ChainConfig `yaml:"behavior,omitempty"`

	// Features has one row per state, one-hot when empty.
	Features [][]float64 `yaml:"features,omitempty"`
	Rewards  RewardConfig `yaml:"rewards"`

	Interest  []float64 `yaml:"interest,omitempty"`
	Discounts []float64 `yaml:"discounts,omitempty"`
	Lambdas   []float64 `yaml:"lambdas,omitempty"`
	Theta0    []float64 `yaml:"theta0,omitempty"`
	S0        int       `yaml:"s0"`
	VPi       []float64 `yaml:"v_pi,omitempty"`

	Engines []EngineConfig `yaml:"engines"`
	Run     RunConfig      `yaml:"run"`
}

// Kinds of chains.
const (
	ChainLeftRight = "leftright"
	ChainUniform   = "uniform"
	ChainRandom    = "random"
	ChainGrid      = "grid"
	ChainMatrix    = "matrix"
)

// ChainConfig describes a Markov chain.
type ChainConfig struct {
	Kind   string `yaml:"kind"`
	States int    `yaml:"states,omitempty"`

	// leftright: a missing probability is derived from the other one
	Right *float64 `yaml:"right,omitempty"`
	Left  *float64 `yaml:"left,omitempty"`

	// random
	Seed uint64 `yaml:"seed,omitempty"`

	// grid, states are numbered x*height + y
	Width  int        `yaml:"width,omitempty"`
	Height int        `yaml:"height,omitempty"`
	Walk   WalkConfig `yaml:"walk,omitempty"`

	// matrix
	Matrix [][]float64 `yaml:"matrix,omitempty"`
}

// WalkConfig are the move probabilities of a grid random walk.
type WalkConfig struct {
	Up    float64 `yaml:"up"`
	Down  float64 `yaml:"down"`
	Left  float64 `yaml:"left"`
	Right float64 `yaml:"right"`
}

// RewardConfig sets at most one of the two reward conventions.
type RewardConfig struct {
	NextState  []float64   `yaml:"next_state,omitempty"`
	Transition [][]float64 `yaml:"transition,omitempty"`
}

// EngineConfig is one experiment of the comparison.
type EngineConfig struct {
	Name  string  `yaml:"name"`
	Kind  string  `yaml:"kind"`
	Alpha float64 `yaml:"alpha"`
}

// RunConfig is shared by every engine.
type RunConfig struct {
	Steps       int    `yaml:"steps"`
	Particles   int    `yaml:"particles"`
	Seed        uint64 `yaml:"seed"`
	Parallelism int    `yaml:"parallelism"`
	// Output is the folder receiving plots and records. The run command falls
	// back to its --save folder when empty.
	Output string `yaml:"output"`
}

// StateCount is the number of states of the chain.
func (c *ChainConfig) StateCount() int {
	switch c.Kind {
	case ChainGrid:
		return c.Width * c.Height
	case ChainMatrix:
		return len(c.Matrix)
	}
	return c.States
}
