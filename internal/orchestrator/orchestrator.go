// Package orchestrator coordinates the extraction ensemble: it selects
// processors, runs them under a strategy, merges their candidate
// descriptions, and returns a single ranked result.
package orchestrator

import (
	"context"
	"time"

	"github.com/inkmill/descry/internal/config"
	"github.com/inkmill/descry/internal/description"
	"github.com/inkmill/descry/internal/processor"
)

// Mode identifies how processors are invoked for one request.
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeParallel   Mode = "parallel"
	ModeSequential Mode = "sequential"
	ModeEnsemble   Mode = "ensemble"
	ModeAdaptive   Mode = "adaptive"
)

// ParseMode validates a mode name. Unknown names are a configuration error.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSingle, ModeParallel, ModeSequential, ModeEnsemble, ModeAdaptive:
		return Mode(s), nil
	}
	return "", description.NewConfigurationError("unknown processing mode %q", s)
}

// RunConfig is the merged global + per-processor + override configuration for
// one request.
type RunConfig struct {
	// Weights maps processor name to voting weight.
	Weights map[string]float64

	// Timeout bounds the whole call; the manager applies it to the context.
	Timeout time.Duration

	// MaxDescriptions caps the final description count.
	MaxDescriptions int

	// MinConsensus and OverrideConfidence tune the ensemble voter.
	MinConsensus       int
	OverrideConfidence float64

	// SingleProcessor names the processor the single strategy runs.
	SingleProcessor string

	// SequentialMax stops the sequential chain early once reached.
	SequentialMax int

	// AdaptiveRules is the policy table for the adaptive strategy.
	AdaptiveRules []config.AdaptiveRule
}

// Run carries the per-request inputs to a strategy. Strategies are stateless;
// everything they need arrives here.
type Run struct {
	Text       string
	ChapterID  string
	Processors []processor.Processor
	Config     RunConfig
}

// Strategy defines how the selected processors are invoked for one request.
// Implementations hold no per-request state and are cached for the process
// lifetime by the Factory.
type Strategy interface {
	Mode() Mode
	Execute(ctx context.Context, run Run) (*description.ProcessingResult, error)
}
