// Package description holds the shared domain types for narrative text
// extraction: the Description claim model, processing results, and the
// error taxonomy used across processors and the orchestrator.
package description

import (
	"math/rand"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
)

// Type classifies what a Description is about.
type Type string

const (
	TypeCharacter  Type = "character"
	TypeLocation   Type = "location"
	TypeObject     Type = "object"
	TypeAtmosphere Type = "atmosphere"
)

// Valid reports whether t is one of the known description types.
func (t Type) Valid() bool {
	switch t {
	case TypeCharacter, TypeLocation, TypeObject, TypeAtmosphere:
		return true
	}
	return false
}

// Span is a half-open [Start, End) byte-offset range into the chapter text.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Overlaps reports whether two spans share at least one offset.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Description is one extracted claim about the chapter text.
// Descriptions are immutable after creation: merging during ensemble voting
// produces new values rather than editing contributors in place.
type Description struct {
	ID               string   `json:"id"`
	Type             Type     `json:"type"`
	Text             string   `json:"text"`
	Span             Span     `json:"span"`
	SentenceIndex    int      `json:"sentenceIndex"`
	Confidence       float64  `json:"confidence"`
	Context          string   `json:"context,omitempty"`
	SourceProcessors []string `json:"sourceProcessors"`
	ChapterID        string   `json:"chapterId"`
}

// ClampConfidence bounds c to [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// IDSource mints sortable ULID identifiers for descriptions. Entropy is
// monotonic so ids created within one extraction call sort in creation order.
type IDSource struct {
	entropy *ulid.MonotonicEntropy
}

// NewIDSource creates an IDSource seeded from the current time.
func NewIDSource() *IDSource {
	seed := time.Now().UnixNano()
	return &IDSource{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
	}
}

// Next returns a fresh description id.
func (s *IDSource) Next() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// Quality summarizes an extraction result.
type Quality struct {
	Total             int          `json:"total"`
	AverageConfidence float64      `json:"averageConfidence"`
	ByType            map[Type]int `json:"byType"`
}

// ProcessingResult is what one extraction call returns to the caller.
type ProcessingResult struct {
	Descriptions    []Description            `json:"descriptions"`
	PerProcessorRaw map[string][]Description `json:"perProcessorRaw,omitempty"`
	ProcessingTime  time.Duration            `json:"processingTimeMs"`
	ProcessorsUsed  []string                 `json:"processorsUsed"`
	Quality         Quality                  `json:"qualityMetrics"`
	Recommendations []string                 `json:"recommendations,omitempty"`
}

// EmptyResult returns a well-formed result with no descriptions. Used for
// empty or too-short input, which is a no-op rather than an error.
func EmptyResult(recommendations ...string) *ProcessingResult {
	return &ProcessingResult{
		Descriptions:    []Description{},
		ProcessorsUsed:  []string{},
		Quality:         Quality{ByType: map[Type]int{}},
		Recommendations: recommendations,
	}
}

// ComputeQuality derives summary metrics from a description set.
func ComputeQuality(descs []Description) Quality {
	q := Quality{
		Total:  len(descs),
		ByType: make(map[Type]int, 4),
	}
	if len(descs) == 0 {
		return q
	}
	var sum float64
	for _, d := range descs {
		sum += d.Confidence
		q.ByType[d.Type]++
	}
	q.AverageConfidence = sum / float64(len(descs))
	return q
}

// SortStable orders descriptions by confidence descending, then span start
// ascending, then source processor name, giving deterministic output for
// identical inputs.
func SortStable(descs []Description) {
	sort.SliceStable(descs, func(i, j int) bool {
		a, b := descs[i], descs[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		return firstSource(a) < firstSource(b)
	})
}

func firstSource(d Description) string {
	if len(d.SourceProcessors) == 0 {
		return ""
	}
	return d.SourceProcessors[0]
}
