package orchestrator

import (
	"context"
	"sync/atomic"

	"github.com/inkmill/descry/internal/config"
	"github.com/inkmill/descry/internal/description"
	"github.com/inkmill/descry/internal/processor"
)

// fakeProcessor scripts a processor with func fields so each test controls
// exactly what it returns.
type fakeProcessor struct {
	name      string
	available bool
	lastErr   error
	calls     atomic.Int64
	extractFn func(ctx context.Context, text, chapterID string) ([]description.Description, error)
}

var _ processor.Processor = (*fakeProcessor)(nil)

func (f *fakeProcessor) Name() string                     { return f.name }
func (f *fakeProcessor) Load(context.Context) error       { return f.lastErr }
func (f *fakeProcessor) Available() bool                  { return f.available }
func (f *fakeProcessor) LastError() error                 { return f.lastErr }
func (f *fakeProcessor) Configure(config.ProcessorConfig) {}

func (f *fakeProcessor) Extract(ctx context.Context, text, chapterID string) ([]description.Description, error) {
	f.calls.Add(1)
	if f.extractFn != nil {
		return f.extractFn(ctx, text, chapterID)
	}
	return nil, nil
}

// fakeReturning builds an available fake that always returns the given
// descriptions, stamping itself as the source.
func fakeReturning(name string, descs ...description.Description) *fakeProcessor {
	for i := range descs {
		descs[i].SourceProcessors = []string{name}
	}
	return &fakeProcessor{
		name:      name,
		available: true,
		extractFn: func(context.Context, string, string) ([]description.Description, error) {
			out := make([]description.Description, len(descs))
			copy(out, descs)
			return out, nil
		},
	}
}

// desc is shorthand for a candidate description in strategy tests.
func desc(t description.Type, text string, start, end, sentence int, conf float64) description.Description {
	return description.Description{
		Type:          t,
		Text:          text,
		Span:          description.Span{Start: start, End: end},
		SentenceIndex: sentence,
		Confidence:    conf,
		ChapterID:     "ch-1",
	}
}

// defaultRunConfig mirrors the settings most strategy tests want.
func defaultRunConfig() RunConfig {
	return RunConfig{
		Weights:            map[string]float64{},
		MaxDescriptions:    50,
		MinConsensus:       2,
		OverrideConfidence: 0.85,
	}
}
