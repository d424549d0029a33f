package config

import (
	"fmt"
	"strings"

	"github.com/zeu5/emphatic-td/td"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g., "chain.kind").
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every field error of a configuration.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks what can be checked without building the model. Shapes
// that depend on the built chains are checked by Build.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateChain("chain", &cfg.Chain)...)
	if cfg.Behavior != nil {
		errs = append(errs, validateChain("behavior", cfg.Behavior)...)
		if n, m := cfg.Chain.StateCount(), cfg.Behavior.StateCount(); n != m && n > 0 && m > 0 {
			errs = append(errs, FieldError{"behavior", fmt.Sprintf("has %d states, chain has %d", m, n)})
		}
	}
	errs = append(errs, validateRewards(&cfg.Rewards)...)
	errs = append(errs, validateEngines(cfg.Engines)...)
	errs = append(errs, validateRun(&cfg.Run)...)

	n := cfg.Chain.StateCount()
	if cfg.S0 < 0 || (n > 0 && cfg.S0 >= n) {
		errs = append(errs, FieldError{"s0", fmt.Sprintf("must be in 0..%d", n-1)})
	}
	if len(cfg.Features) > 0 && n > 0 && len(cfg.Features) != n {
		errs = append(errs, FieldError{"features", fmt.Sprintf("has %d rows, want %d", len(cfg.Features), n)})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateChain(field string, c *ChainConfig) []FieldError {
	var errs []FieldError
	switch c.Kind {
	case ChainLeftRight, ChainUniform, ChainRandom:
		if c.States < 1 {
			errs = append(errs, FieldError{field + ".states", "must be positive"})
		}
	case ChainGrid:
		if c.Width < 1 || c.Height < 1 {
			errs = append(errs, FieldError{field, "width and height must be positive"})
		}
	case ChainMatrix:
		if len(c.Matrix) == 0 {
			errs = append(errs, FieldError{field + ".matrix", "is required"})
		}
	case "":
		errs = append(errs, FieldError{field + ".kind", "is required"})
	default:
		errs = append(errs, FieldError{field + ".kind", fmt.Sprintf("unknown kind %q", c.Kind)})
	}
	if c.Kind == ChainLeftRight {
		if c.Right != nil && (*c.Right < 0 || *c.Right > 1) {
			errs = append(errs, FieldError{field + ".right", "must be in [0,1]"})
		}
		if c.Left != nil && (*c.Left < 0 || *c.Left > 1) {
			errs = append(errs, FieldError{field + ".left", "must be in [0,1]"})
		}
	}
	return errs
}

func validateRewards(r *RewardConfig) []FieldError {
	if r.NextState != nil && r.Transition != nil {
		return []FieldError{{"rewards", "next_state and transition are exclusive"}}
	}
	return nil
}

func validateEngines(engines []EngineConfig) []FieldError {
	var errs []FieldError
	names := make(map[string]bool)
	for i, e := range engines {
		field := fmt.Sprintf("engines[%d]", i)
		if e.Kind != td.KindOffTD && e.Kind != td.KindEmphaticTD {
			errs = append(errs, FieldError{field + ".kind", fmt.Sprintf("unknown engine %q", e.Kind)})
		}
		if e.Alpha <= 0 {
			errs = append(errs, FieldError{field + ".alpha", "must be positive"})
		}
		if names[e.Name] {
			errs = append(errs, FieldError{field + ".name", fmt.Sprintf("duplicate name %q", e.Name)})
		}
		names[e.Name] = true
	}
	return errs
}

func validateRun(r *RunConfig) []FieldError {
	var errs []FieldError
	if r.Steps < 0 {
		errs = append(errs, FieldError{"run.steps", "must not be negative"})
	}
	if r.Particles < 1 {
		errs = append(errs, FieldError{"run.particles", "must be positive"})
	}
	if r.Parallelism < 0 {
		errs = append(errs, FieldError{"run.parallelism", "must not be negative"})
	}
	return errs
}
