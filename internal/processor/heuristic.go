package processor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkmill/descry/internal/config"
	"github.com/inkmill/descry/internal/description"
	"github.com/inkmill/descry/internal/metrics"
)

// HeuristicName is the registry name of the pattern-based engine.
const HeuristicName = "heuristic"

// minTextLength below which extraction is a no-op for this engine.
const minTextLength = 25

// segmentCacheSize bounds the sentence segmentation LRU.
const segmentCacheSize = 256

// entitySpan is a raw recognition hit before label mapping.
type entitySpan struct {
	Start int
	End   int
	Text  string
	Label string
	Score float64
}

// entityModel is the opaque capability behind the heuristic processor.
type entityModel interface {
	Recognize(text string, sentences []Sentence) []entitySpan
}

// labelToType maps raw model labels to description types, case-insensitively.
// Labels with no mapping are dropped.
var labelToType = map[string]description.Type{
	"person":       description.TypeCharacter,
	"per":          description.TypeCharacter,
	"character":    description.TypeCharacter,
	"location":     description.TypeLocation,
	"place":        description.TypeLocation,
	"building":     description.TypeLocation,
	"gpe":          description.TypeLocation,
	"loc":          description.TypeLocation,
	"facility":     description.TypeLocation,
	"organization": description.TypeObject,
	"org":          description.TypeObject,
	"artifact":     description.TypeObject,
	"object":       description.TypeObject,
	"product":      description.TypeObject,
	"atmosphere":   description.TypeAtmosphere,
	"mood":         description.TypeAtmosphere,
}

// mapLabel resolves a raw label to a description type.
func mapLabel(label string) (description.Type, bool) {
	t, ok := labelToType[strings.ToLower(label)]
	return t, ok
}

// Heuristic is the representative extraction engine: pattern-based entity
// recognition plus a contextual descriptiveness pass over sentences.
type Heuristic struct {
	name   string
	cfg    atomic.Pointer[config.ProcessorConfig]
	sink   metrics.Sink
	logger zerolog.Logger

	maxPerChapter int

	mu      sync.Mutex
	model   entityModel
	seg     *segmenter
	lastErr error

	// loadModel builds the engine; swapped in tests to simulate failures.
	loadModel func() (entityModel, error)
}

// NewHeuristic creates the heuristic processor. The model itself loads
// lazily via Load.
func NewHeuristic(cfg config.ProcessorConfig, maxPerChapter int, sink metrics.Sink, logger zerolog.Logger) *Heuristic {
	h := &Heuristic{
		name:          HeuristicName,
		sink:          sink,
		logger:        logger.With().Str("processor", HeuristicName).Logger(),
		maxPerChapter: maxPerChapter,
		loadModel: func() (entityModel, error) {
			return newPatternModel(), nil
		},
	}
	h.cfg.Store(&cfg)
	return h
}

func (h *Heuristic) Name() string { return h.name }

// Load initializes the pattern model and the segmentation cache. A failure is
// captured as data rather than raised past the registry boundary.
func (h *Heuristic) Load(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.model != nil {
		return nil
	}
	model, err := h.loadModel()
	if err != nil {
		h.lastErr = &description.ModelUnavailableError{Processor: h.name, Err: err}
		return h.lastErr
	}
	seg, err := newSegmenter(segmentCacheSize)
	if err != nil {
		h.lastErr = &description.ModelUnavailableError{Processor: h.name, Err: err}
		return h.lastErr
	}
	h.model = model
	h.seg = seg
	h.lastErr = nil
	return nil
}

func (h *Heuristic) Available() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.model != nil && h.lastErr == nil
}

func (h *Heuristic) LastError() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

// Configure atomically swaps the config snapshot.
func (h *Heuristic) Configure(cfg config.ProcessorConfig) {
	h.cfg.Store(&cfg)
}

// Extract runs the two-pass extraction. Runtime panics inside the engine are
// absorbed: the call logs the failure and returns an empty list so a single
// engine fault never aborts the orchestrator.
func (h *Heuristic) Extract(ctx context.Context, text, chapterID string) (descs []description.Description, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			h.sink.RecordFailure(h.name, fmt.Errorf("panic: %v", r))
			descs, err = []description.Description{}, nil
		}
	}()

	if len(text) < minTextLength {
		return []description.Description{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	model, seg := h.model, h.seg
	h.mu.Unlock()
	if model == nil {
		return nil, &description.ModelUnavailableError{Processor: h.name, Err: fmt.Errorf("model not loaded")}
	}

	cfg := *h.cfg.Load()
	sentences := seg.split(text)
	ids := description.NewIDSource()

	entityDescs := h.entityPass(model, text, chapterID, sentences, ids)
	contextual := h.contextualPass(text, chapterID, sentences, entityDescs, cfg, ids)

	merged := append(entityDescs, contextual...)
	kept := merged[:0]
	for _, d := range merged {
		if d.Confidence >= cfg.MinConfidence {
			kept = append(kept, d)
		}
	}
	description.SortStable(kept)
	if len(kept) > h.maxPerChapter {
		kept = kept[:h.maxPerChapter]
	}

	h.sink.RecordExtraction(h.name, len(kept), time.Since(start))
	return kept, nil
}

// entityPass maps recognized entity spans to descriptions with scored
// confidence and neighbor-sentence context.
func (h *Heuristic) entityPass(model entityModel, text, chapterID string, sentences []Sentence, ids *description.IDSource) []description.Description {
	var out []description.Description
	for _, ent := range model.Recognize(text, sentences) {
		dtype, ok := mapLabel(ent.Label)
		if !ok {
			continue
		}
		idx := sentenceIndexAt(sentences, ent.Start)
		if idx < 0 {
			continue
		}

		conf := ent.Score
		if strings.Contains(ent.Text, " ") {
			conf += multiWordBonus
		}
		conf += descriptiveBonus(sentences[idx].Text)

		out = append(out, description.Description{
			ID:               ids.Next(),
			Type:             dtype,
			Text:             ent.Text,
			Span:             description.Span{Start: ent.Start, End: ent.End},
			SentenceIndex:    idx,
			Confidence:       description.ClampConfidence(conf),
			Context:          contextWindow(sentences, idx),
			SourceProcessors: []string{h.name},
			ChapterID:        chapterID,
		})
	}
	return out
}

// contextualPass scores every sentence's descriptiveness and keeps those
// above threshold, skipping sentences already covered by an entity-based
// description and exact duplicates.
func (h *Heuristic) contextualPass(text, chapterID string, sentences []Sentence, entityDescs []description.Description, cfg config.ProcessorConfig, ids *description.IDSource) []description.Description {
	covered := make(map[int]bool, len(entityDescs))
	for _, d := range entityDescs {
		covered[d.SentenceIndex] = true
	}
	seen := make(map[string]bool)

	var out []description.Description
	for _, s := range sentences {
		if covered[s.Index] || seen[s.Text] {
			continue
		}
		if len(s.Text) < cfg.MinSentenceLength {
			continue
		}
		score, dtype := descriptiveScore(s.Text)
		if score < minDescriptiveScore {
			continue
		}
		seen[s.Text] = true
		out = append(out, description.Description{
			ID:               ids.Next(),
			Type:             dtype,
			Text:             s.Text,
			Span:             description.Span{Start: s.Start, End: s.End},
			SentenceIndex:    s.Index,
			Confidence:       description.ClampConfidence(score),
			Context:          contextWindow(sentences, s.Index),
			SourceProcessors: []string{h.name},
			ChapterID:        chapterID,
		})
	}
	return out
}

// contextWindow joins a sentence with its immediate neighbors.
func contextWindow(sentences []Sentence, idx int) string {
	lo, hi := idx-1, idx+1
	if lo < 0 {
		lo = 0
	}
	if hi > len(sentences)-1 {
		hi = len(sentences) - 1
	}
	parts := make([]string, 0, 3)
	for i := lo; i <= hi; i++ {
		parts = append(parts, sentences[i].Text)
	}
	return strings.Join(parts, " ")
}

// sentenceIndexAt returns the index of the sentence containing offset, or -1.
func sentenceIndexAt(sentences []Sentence, offset int) int {
	for _, s := range sentences {
		if offset >= s.Start && offset < s.End {
			return s.Index
		}
	}
	return -1
}
