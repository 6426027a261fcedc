package orchestrator

import (
	"context"
	"strings"
	"unicode"

	"github.com/inkmill/descry/internal/config"
	"github.com/inkmill/descry/internal/description"
	"github.com/inkmill/descry/internal/processor"
)

// TextStats are the lightweight heuristics the adaptive strategy computes
// over the input before choosing a delegate.
type TextStats struct {
	// Length is the text length in bytes.
	Length float64

	// NameDensity is distinct capitalized multi-token sequences per word, a
	// proxy for person/place name density.
	NameDensity float64

	// SentenceVariance is the variance of sentence word counts, a proxy for
	// syntactic complexity.
	SentenceVariance float64
}

// Metric returns the named statistic. Unknown names return 0.
func (t TextStats) Metric(name string) float64 {
	switch name {
	case "length":
		return t.Length
	case "nameDensity":
		return t.NameDensity
	case "sentenceVariance":
		return t.SentenceVariance
	}
	return 0
}

// TextClassifier computes TextStats. The default is language-specific, so
// the heuristic sits behind this interface and can be swapped per locale.
type TextClassifier interface {
	Classify(text string) TextStats
}

// StatsClassifier is the default English-oriented classifier.
type StatsClassifier struct{}

// Classify computes length, name density, and sentence-length variance.
func (StatsClassifier) Classify(text string) TextStats {
	words := strings.Fields(text)
	stats := TextStats{Length: float64(len(text))}
	if len(words) == 0 {
		return stats
	}

	// Distinct capitalized multi-token sequences.
	names := make(map[string]bool)
	runLen := 0
	var run []string
	flush := func() {
		if runLen >= 2 {
			names[strings.Join(run, " ")] = true
		}
		runLen = 0
		run = run[:0]
	}
	for _, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r)
		})
		if len(trimmed) > 1 && unicode.IsUpper([]rune(trimmed)[0]) {
			run = append(run, trimmed)
			runLen++
			continue
		}
		flush()
	}
	flush()
	stats.NameDensity = float64(len(names)) / float64(len(words))

	// Sentence word-count variance.
	sentences := processor.SplitSentences(text)
	if len(sentences) > 1 {
		counts := make([]float64, len(sentences))
		var sum float64
		for i, s := range sentences {
			counts[i] = float64(len(strings.Fields(s.Text)))
			sum += counts[i]
		}
		mean := sum / float64(len(counts))
		var sq float64
		for _, c := range counts {
			sq += (c - mean) * (c - mean)
		}
		stats.SentenceVariance = sq / float64(len(counts))
	}
	return stats
}

// Compile-time check.
var _ Strategy = (*AdaptiveStrategy)(nil)

// AdaptiveStrategy classifies the input text and delegates the whole call to
// another strategy chosen by the configured policy table. The table is data,
// not control flow, so the mapping can be retuned without code changes.
type AdaptiveStrategy struct {
	classifier TextClassifier
	strategies func(Mode) (Strategy, error)
}

// NewAdaptiveStrategy creates the adaptive strategy. strategies resolves
// delegate modes; it is the factory's Get method in production.
func NewAdaptiveStrategy(classifier TextClassifier, strategies func(Mode) (Strategy, error)) *AdaptiveStrategy {
	if classifier == nil {
		classifier = StatsClassifier{}
	}
	return &AdaptiveStrategy{classifier: classifier, strategies: strategies}
}

func (s *AdaptiveStrategy) Mode() Mode { return ModeAdaptive }

// Execute evaluates the policy table first-match and delegates. With no
// matching rule it falls back to parallel.
func (s *AdaptiveStrategy) Execute(ctx context.Context, run Run) (*description.ProcessingResult, error) {
	stats := s.classifier.Classify(run.Text)

	mode := ModeParallel
	var narrowed []string
	for _, rule := range run.Config.AdaptiveRules {
		if ruleMatches(rule, stats) {
			mode = Mode(rule.Mode)
			narrowed = rule.Processors
			break
		}
	}
	if mode == ModeAdaptive {
		return nil, description.NewConfigurationError("adaptive policy cannot delegate to itself")
	}

	delegate, err := s.strategies(mode)
	if err != nil {
		return nil, err
	}

	// Reselect for the delegate: narrow to the rule's processor list when it
	// leaves at least one available processor, otherwise keep the original
	// selection.
	delegated := run
	if len(narrowed) > 0 {
		filtered := filterProcessors(run.Processors, narrowed)
		if len(filtered) > 0 {
			delegated.Processors = filtered
		}
	}

	result, err := delegate.Execute(ctx, delegated)
	if err != nil {
		return nil, err
	}
	result.Recommendations = append(result.Recommendations,
		"adaptive delegated to "+string(mode))
	return result, nil
}

// ruleMatches applies one policy row to the computed stats.
func ruleMatches(rule config.AdaptiveRule, stats TextStats) bool {
	v := stats.Metric(rule.Metric)
	switch rule.Op {
	case ">":
		return v > rule.Value
	case "<":
		return v < rule.Value
	}
	return false
}

// filterProcessors keeps processors whose names appear in keep.
func filterProcessors(procs []processor.Processor, keep []string) []processor.Processor {
	want := make(map[string]bool, len(keep))
	for _, n := range keep {
		want[n] = true
	}
	var out []processor.Processor
	for _, p := range procs {
		if want[p.Name()] {
			out = append(out, p)
		}
	}
	return out
}
