package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkmill/descry/internal/description"
	"github.com/inkmill/descry/internal/processor"
)

func TestParallelCollectsAllProcessors(t *testing.T) {
	alpha := fakeReturning("alpha", desc(description.TypeCharacter, "a pale rider", 0, 12, 0, 0.8))
	beta := fakeReturning("beta", desc(description.TypeLocation, "the ford", 20, 28, 1, 0.6))

	s := NewParallelStrategy(nil)
	result, err := s.Execute(context.Background(), Run{
		Text:       "irrelevant for fakes",
		ChapterID:  "ch-1",
		Processors: []processor.Processor{alpha, beta},
		Config:     defaultRunConfig(),
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"alpha", "beta"}, result.ProcessorsUsed)
	require.Len(t, result.Descriptions, 2)
	assert.Equal(t, "a pale rider", result.Descriptions[0].Text, "sorted by confidence")
	assert.Empty(t, result.Recommendations)
	assert.Equal(t, 2, result.Quality.Total)
}

func TestParallelPartialFailure(t *testing.T) {
	good := fakeReturning("good", desc(description.TypeObject, "a carved door", 0, 13, 0, 0.7))
	bad := &fakeProcessor{
		name:      "bad",
		available: true,
		extractFn: func(context.Context, string, string) ([]description.Description, error) {
			return nil, &description.ExtractionError{Processor: "bad", Err: errors.New("api down")}
		},
	}

	s := NewParallelStrategy(nil)
	result, err := s.Execute(context.Background(), Run{
		Processors: []processor.Processor{good, bad},
		Config:     defaultRunConfig(),
	})
	require.NoError(t, err, "sibling failure never aborts the call")

	assert.Equal(t, []string{"good"}, result.ProcessorsUsed)
	require.Len(t, result.Descriptions, 1)
	require.Len(t, result.Recommendations, 1)
	assert.Contains(t, result.Recommendations[0], "1 of 2 processors did not contribute")
}

func TestParallelDeadlineExcludesSlow(t *testing.T) {
	fast := fakeReturning("fast", desc(description.TypeCharacter, "quick hands", 0, 11, 0, 0.9))
	slow := &fakeProcessor{
		name:      "slow",
		available: true,
		extractFn: func(ctx context.Context, _, _ string) ([]description.Description, error) {
			select {
			case <-time.After(5 * time.Second):
				return []description.Description{desc(description.TypeObject, "late", 0, 4, 0, 0.9)}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	s := NewParallelStrategy(nil)
	result, err := s.Execute(ctx, Run{
		Processors: []processor.Processor{fast, slow},
		Config:     defaultRunConfig(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fast"}, result.ProcessorsUsed)
	require.Len(t, result.Descriptions, 1)
	assert.Equal(t, "quick hands", result.Descriptions[0].Text)
}

func TestParallelExactDedup(t *testing.T) {
	// Identical type+span from two processors collapses to one entry keeping
	// the higher confidence and both sources.
	alpha := fakeReturning("alpha", desc(description.TypeLocation, "the mill", 5, 13, 0, 0.5))
	beta := fakeReturning("beta", desc(description.TypeLocation, "the mill", 5, 13, 0, 0.8))

	s := NewParallelStrategy(nil)
	result, err := s.Execute(context.Background(), Run{
		Processors: []processor.Processor{alpha, beta},
		Config:     defaultRunConfig(),
	})
	require.NoError(t, err)
	require.Len(t, result.Descriptions, 1)

	d := result.Descriptions[0]
	assert.InDelta(t, 0.8, d.Confidence, 1e-9)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, d.SourceProcessors)
}

func TestParallelNearMissesSurviveDedup(t *testing.T) {
	// Overlapping but not identical spans both survive; only exact span+type
	// collisions dedupe here. The voter handles fuzzy merging in ensemble mode.
	alpha := fakeReturning("alpha", desc(description.TypeLocation, "the old mill", 0, 12, 0, 0.5))
	beta := fakeReturning("beta", desc(description.TypeLocation, "old mill", 4, 12, 0, 0.8))

	s := NewParallelStrategy(nil)
	result, err := s.Execute(context.Background(), Run{
		Processors: []processor.Processor{alpha, beta},
		Config:     defaultRunConfig(),
	})
	require.NoError(t, err)
	assert.Len(t, result.Descriptions, 2)
}

func TestParallelCapsDescriptions(t *testing.T) {
	many := make([]description.Description, 10)
	for i := range many {
		many[i] = desc(description.TypeObject, "item", i*10, i*10+4, i, 0.5)
	}
	alpha := fakeReturning("alpha", many...)

	cfg := defaultRunConfig()
	cfg.MaxDescriptions = 3
	s := NewParallelStrategy(nil)
	result, err := s.Execute(context.Background(), Run{
		Processors: []processor.Processor{alpha},
		Config:     cfg,
	})
	require.NoError(t, err)
	assert.Len(t, result.Descriptions, 3)
}

func TestParallelEmitsProgress(t *testing.T) {
	var events []ProgressEvent
	s := NewParallelStrategy(func(ev ProgressEvent) { events = append(events, ev) })

	alpha := fakeReturning("alpha", desc(description.TypeCharacter, "x", 0, 1, 0, 0.5))
	_, err := s.Execute(context.Background(), Run{
		Processors: []processor.Processor{alpha},
		Config:     defaultRunConfig(),
	})
	require.NoError(t, err)

	var statuses []ProgressStatus
	for _, ev := range events {
		statuses = append(statuses, ev.Status)
	}
	assert.Contains(t, statuses, ProgressPending)
	assert.Contains(t, statuses, ProgressWorking)
	assert.Contains(t, statuses, ProgressComplete)
}
