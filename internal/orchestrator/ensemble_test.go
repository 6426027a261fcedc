package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkmill/descry/internal/description"
	"github.com/inkmill/descry/internal/processor"
)

func TestEnsembleVotesAcrossProcessors(t *testing.T) {
	alpha := fakeReturning("alpha", desc(description.TypeLocation, "the dark tower", 0, 14, 0, 0.6))
	beta := fakeReturning("beta", desc(description.TypeLocation, "dark tower", 4, 14, 0, 0.8))
	gamma := fakeReturning("gamma", desc(description.TypeObject, "lone claim", 50, 60, 5, 0.4))

	cfg := defaultRunConfig()
	cfg.Weights = map[string]float64{"alpha": 1, "beta": 1, "gamma": 1}

	s := NewEnsembleStrategy(NewVoter(), nil)
	result, err := s.Execute(context.Background(), Run{
		Processors: []processor.Processor{alpha, beta, gamma},
		Config:     cfg,
	})
	require.NoError(t, err)

	require.Len(t, result.Descriptions, 1, "the lone low-confidence claim is voted out")
	d := result.Descriptions[0]
	assert.Equal(t, []string{"alpha", "beta"}, d.SourceProcessors)
	assert.InDelta(t, 0.7, d.Confidence, 1e-9)

	// Raw per-processor outputs are preserved for inspection.
	require.Contains(t, result.PerProcessorRaw, "gamma")
	assert.Len(t, result.PerProcessorRaw["gamma"], 1)
	assert.ElementsMatch(t, []string{"alpha", "beta", "gamma"}, result.ProcessorsUsed)
}

func TestEnsembleAllBelowConsensusRecommends(t *testing.T) {
	alpha := fakeReturning("alpha", desc(description.TypeObject, "only claim", 0, 10, 0, 0.4))

	cfg := defaultRunConfig()
	cfg.Weights = map[string]float64{"alpha": 1}

	s := NewEnsembleStrategy(NewVoter(), nil)
	result, err := s.Execute(context.Background(), Run{
		Processors: []processor.Processor{alpha},
		Config:     cfg,
	})
	require.NoError(t, err)

	assert.Empty(t, result.Descriptions)
	require.NotEmpty(t, result.Recommendations)
	assert.Contains(t, result.Recommendations[0], "below consensus")
}

func TestEnsembleCapsDescriptions(t *testing.T) {
	var descs []description.Description
	for i := 0; i < 6; i++ {
		descs = append(descs, desc(description.TypeObject, "item", i*20, i*20+4, i, 0.9))
	}
	alpha := fakeReturning("alpha", descs...)

	cfg := defaultRunConfig()
	cfg.Weights = map[string]float64{"alpha": 1}
	cfg.MinConsensus = 1
	cfg.MaxDescriptions = 4

	s := NewEnsembleStrategy(NewVoter(), nil)
	result, err := s.Execute(context.Background(), Run{
		Processors: []processor.Processor{alpha},
		Config:     cfg,
	})
	require.NoError(t, err)
	assert.Len(t, result.Descriptions, 4)
}
