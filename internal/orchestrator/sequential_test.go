package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkmill/descry/internal/description"
	"github.com/inkmill/descry/internal/processor"
)

func TestSequentialCoveredSentencesExcluded(t *testing.T) {
	// alpha claims sentence 0; beta's sentence-0 candidate is dropped but its
	// sentence-1 candidate survives.
	alpha := fakeReturning("alpha", desc(description.TypeCharacter, "first claim", 0, 11, 0, 0.6))
	beta := fakeReturning("beta",
		desc(description.TypeCharacter, "duplicate claim", 2, 12, 0, 0.9),
		desc(description.TypeLocation, "new ground", 30, 40, 1, 0.5),
	)

	s := NewSequentialStrategy(nil)
	result, err := s.Execute(context.Background(), Run{
		Processors: []processor.Processor{alpha, beta},
		Config:     defaultRunConfig(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta"}, result.ProcessorsUsed)
	require.Len(t, result.Descriptions, 2)
	texts := []string{result.Descriptions[0].Text, result.Descriptions[1].Text}
	assert.ElementsMatch(t, []string{"first claim", "new ground"}, texts)
}

func TestSequentialStopsEarlyAtMax(t *testing.T) {
	alpha := fakeReturning("alpha",
		desc(description.TypeObject, "one", 0, 3, 0, 0.5),
		desc(description.TypeObject, "two", 10, 13, 1, 0.5),
	)
	beta := fakeReturning("beta", desc(description.TypeObject, "never reached", 20, 33, 2, 0.9))

	cfg := defaultRunConfig()
	cfg.SequentialMax = 2

	s := NewSequentialStrategy(nil)
	result, err := s.Execute(context.Background(), Run{
		Processors: []processor.Processor{alpha, beta},
		Config:     cfg,
	})
	require.NoError(t, err)

	assert.Len(t, result.Descriptions, 2)
	assert.Equal(t, []string{"alpha"}, result.ProcessorsUsed)
	assert.Equal(t, int64(0), beta.calls.Load())
	require.Len(t, result.Recommendations, 1)
	assert.Contains(t, result.Recommendations[0], "stopped early")
}

func TestSequentialSkipsFailures(t *testing.T) {
	bad := &fakeProcessor{
		name:      "bad",
		available: true,
		extractFn: func(context.Context, string, string) ([]description.Description, error) {
			return nil, errors.New("down")
		},
	}
	good := fakeReturning("good", desc(description.TypeCharacter, "kept", 0, 4, 0, 0.7))

	s := NewSequentialStrategy(nil)
	result, err := s.Execute(context.Background(), Run{
		Processors: []processor.Processor{bad, good},
		Config:     defaultRunConfig(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, result.ProcessorsUsed)
	require.Len(t, result.Descriptions, 1)
}

func TestSequentialHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	alpha := &fakeProcessor{
		name:      "alpha",
		available: true,
		extractFn: func(context.Context, string, string) ([]description.Description, error) {
			// Cancel after the first processor finishes.
			cancel()
			return []description.Description{
				func() description.Description {
					d := desc(description.TypeCharacter, "partial", 0, 7, 0, 0.6)
					d.SourceProcessors = []string{"alpha"}
					return d
				}(),
			}, nil
		},
	}
	beta := fakeReturning("beta", desc(description.TypeObject, "unreached", 10, 19, 1, 0.9))

	s := NewSequentialStrategy(nil)
	result, err := s.Execute(ctx, Run{
		Processors: []processor.Processor{alpha, beta},
		Config:     defaultRunConfig(),
	})
	require.NoError(t, err, "cancellation yields the partial result, not an error")

	assert.Equal(t, []string{"alpha"}, result.ProcessorsUsed)
	assert.Equal(t, int64(0), beta.calls.Load())
	require.Len(t, result.Descriptions, 1)
	assert.Equal(t, "partial", result.Descriptions[0].Text)
	require.Len(t, result.Recommendations, 1)
	assert.Contains(t, result.Recommendations[0], "canceled")
}

func TestSequentialEmptyChain(t *testing.T) {
	s := NewSequentialStrategy(nil)
	result, err := s.Execute(context.Background(), Run{Config: defaultRunConfig()})
	require.NoError(t, err)
	assert.Empty(t, result.Descriptions)
	assert.NotNil(t, result.ProcessorsUsed)
	assert.Empty(t, result.ProcessorsUsed)
}
