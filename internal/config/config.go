// Package config holds runtime configuration for the extraction pipeline:
// global settings, per-processor settings, ensemble voting thresholds, and
// the adaptive policy table.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML files can use Go duration strings
// ("30s", "1m30s"). Bare integers are taken as nanoseconds.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Known processing mode names. The orchestrator owns the mode semantics;
// config only validates that names refer to a real mode.
var knownModes = map[string]bool{
	"single":     true,
	"parallel":   true,
	"sequential": true,
	"ensemble":   true,
	"adaptive":   true,
}

// ProcessorConfig holds per-processor settings. Owned by the loader, read by
// the registry and manager; processors never mutate their own config.
type ProcessorConfig struct {
	Enabled           bool    `yaml:"enabled"`
	Weight            float64 `yaml:"weight"`
	Model             string  `yaml:"model,omitempty"`
	MinConfidence     float64 `yaml:"minConfidence"`
	MinSentenceLength int     `yaml:"minSentenceLength"`
}

// EnsembleConfig tunes the consensus voter. Both knobs are deliberately
// configuration rather than constants; product calibration is expected.
type EnsembleConfig struct {
	// MinConsensus is the number of distinct processors that must agree
	// before a merged description is kept.
	MinConsensus int `yaml:"minConsensus"`

	// OverrideConfidence lets a single high-confidence processor stand alone.
	OverrideConfidence float64 `yaml:"overrideConfidence"`
}

// AdaptiveRule is one row of the adaptive policy table: when Metric compares
// true against Value, delegate to Mode (optionally narrowing the processor
// set). Rules are evaluated in order; the first match wins.
type AdaptiveRule struct {
	// Metric is one of "length", "nameDensity", "sentenceVariance".
	Metric string `yaml:"metric"`

	// Op is ">" or "<".
	Op string `yaml:"op"`

	Value float64 `yaml:"value"`

	// Mode is the strategy to delegate to. Never "adaptive".
	Mode string `yaml:"mode"`

	// Processors optionally narrows the selection for the delegated call.
	Processors []string `yaml:"processors,omitempty"`
}

// SequentialConfig tunes the sequential strategy.
type SequentialConfig struct {
	// MaxDescriptions stops the chain early once reached.
	MaxDescriptions int `yaml:"maxDescriptions"`
}

// Config is the full pipeline configuration.
type Config struct {
	DefaultMode     string                     `yaml:"defaultMode"`
	Timeout         Duration                   `yaml:"timeout"`
	MaxDescriptions int                        `yaml:"maxDescriptions"`
	MinTextLength   int                        `yaml:"minTextLength"`
	SingleProcessor string                     `yaml:"singleProcessor,omitempty"`
	Processors      map[string]ProcessorConfig `yaml:"processors"`
	Ensemble        EnsembleConfig             `yaml:"ensemble"`
	Sequential      SequentialConfig           `yaml:"sequential"`
	Adaptive        []AdaptiveRule             `yaml:"adaptive,omitempty"`
}

// Default returns the built-in configuration: heuristic processor enabled,
// LLM processors enabled with slightly higher weights, ensemble defaults per
// the voting policy, and a conservative adaptive table.
func Default() *Config {
	return &Config{
		DefaultMode:     "parallel",
		Timeout:         Duration(30 * time.Second),
		MaxDescriptions: 50,
		MinTextLength:   25,
		SingleProcessor: "heuristic",
		Processors: map[string]ProcessorConfig{
			"heuristic": {
				Enabled:           true,
				Weight:            1.0,
				MinConfidence:     0.3,
				MinSentenceLength: 40,
			},
			"openai": {
				Enabled:           true,
				Weight:            1.2,
				Model:             "gpt-4o-mini",
				MinConfidence:     0.3,
				MinSentenceLength: 40,
			},
			"anthropic": {
				Enabled:           true,
				Weight:            1.2,
				Model:             "claude-3-5-haiku-20241022",
				MinConfidence:     0.3,
				MinSentenceLength: 40,
			},
		},
		Ensemble: EnsembleConfig{
			MinConsensus:       2,
			OverrideConfidence: 0.85,
		},
		Sequential: SequentialConfig{
			MaxDescriptions: 30,
		},
		Adaptive: []AdaptiveRule{
			// Short texts are cheap enough for a single engine.
			{Metric: "length", Op: "<", Value: 600, Mode: "single"},
			// Name-heavy prose benefits from consensus across engines.
			{Metric: "nameDensity", Op: ">", Value: 0.012, Mode: "ensemble"},
			// Syntactically uniform prose: sequential keeps cost down.
			{Metric: "sentenceVariance", Op: "<", Value: 40, Mode: "sequential"},
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if !knownModes[c.DefaultMode] {
		return fmt.Errorf("defaultMode %q is not a known mode", c.DefaultMode)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxDescriptions <= 0 {
		return fmt.Errorf("maxDescriptions must be positive, got %d", c.MaxDescriptions)
	}
	if c.MinTextLength < 0 {
		return fmt.Errorf("minTextLength must be non-negative, got %d", c.MinTextLength)
	}
	if len(c.Processors) == 0 {
		return fmt.Errorf("at least one processor must be configured")
	}
	for name, pc := range c.Processors {
		if pc.Weight < 0 {
			return fmt.Errorf("processor %q: weight must be >= 0, got %g", name, pc.Weight)
		}
		if pc.MinConfidence < 0 || pc.MinConfidence > 1 {
			return fmt.Errorf("processor %q: minConfidence must be in [0,1], got %g", name, pc.MinConfidence)
		}
	}
	if c.Ensemble.MinConsensus < 1 {
		return fmt.Errorf("ensemble.minConsensus must be >= 1, got %d", c.Ensemble.MinConsensus)
	}
	if c.Ensemble.OverrideConfidence < 0 || c.Ensemble.OverrideConfidence > 1 {
		return fmt.Errorf("ensemble.overrideConfidence must be in [0,1], got %g", c.Ensemble.OverrideConfidence)
	}
	for i, rule := range c.Adaptive {
		if err := rule.validate(); err != nil {
			return fmt.Errorf("adaptive rule %d: %w", i, err)
		}
	}
	return nil
}

func (r AdaptiveRule) validate() error {
	switch r.Metric {
	case "length", "nameDensity", "sentenceVariance":
	default:
		return fmt.Errorf("unknown metric %q", r.Metric)
	}
	if r.Op != ">" && r.Op != "<" {
		return fmt.Errorf("op must be \">\" or \"<\", got %q", r.Op)
	}
	if !knownModes[r.Mode] || r.Mode == "adaptive" {
		return fmt.Errorf("rule cannot delegate to mode %q", r.Mode)
	}
	return nil
}

// Weights returns the configured weight for every enabled processor.
func (c *Config) Weights() map[string]float64 {
	w := make(map[string]float64, len(c.Processors))
	for name, pc := range c.Processors {
		if pc.Enabled {
			w[name] = pc.Weight
		}
	}
	return w
}
