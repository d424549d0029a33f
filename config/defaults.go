package config

import "github.com/zeu5/emphatic-td/td"

const (
	DefaultSteps     = 1000
	DefaultParticles = 100
	DefaultAlpha     = 0.001
)

// ApplyDefaults fills the zero valued fields that have a default.
func ApplyDefaults(cfg *Config) {
	if len(cfg.Theta0) == 0 {
		cfg.Theta0 = []float64{0}
	}
	if len(cfg.Engines) == 0 {
		cfg.Engines = []EngineConfig{
			{Kind: td.KindOffTD},
			{Kind: td.KindEmphaticTD},
		}
	}
	for i := range cfg.Engines {
		e := &cfg.Engines[i]
		if e.Alpha == 0 {
			e.Alpha = DefaultAlpha
		}
		if e.Name == "" {
			e.Name = e.Kind
		}
	}
	if cfg.Run.Steps == 0 {
		cfg.Run.Steps = DefaultSteps
	}
	if cfg.Run.Particles == 0 {
		cfg.Run.Particles = DefaultParticles
	}
}
