package orchestrator

import (
	"context"
	"fmt"

	"github.com/inkmill/descry/internal/description"
)

// Compile-time check.
var _ Strategy = (*EnsembleStrategy)(nil)

// EnsembleStrategy runs the same fan-out as Parallel, then merges the
// per-processor outputs through the weighted-consensus voter.
type EnsembleStrategy struct {
	voter      *Voter
	onProgress func(ProgressEvent)
}

// NewEnsembleStrategy creates the ensemble strategy. onProgress may be nil.
func NewEnsembleStrategy(voter *Voter, onProgress func(ProgressEvent)) *EnsembleStrategy {
	return &EnsembleStrategy{voter: voter, onProgress: onProgress}
}

func (s *EnsembleStrategy) Mode() Mode { return ModeEnsemble }

// Execute fans out and votes. The raw per-processor lists are preserved on
// the result for callers that want to inspect individual contributions.
func (s *EnsembleStrategy) Execute(ctx context.Context, run Run) (*description.ProcessingResult, error) {
	perProcessor, used := fanOut(ctx, run, s.onProgress)

	merged := s.voter.Vote(perProcessor, run.Config.Weights,
		run.Config.MinConsensus, run.Config.OverrideConfidence)
	if run.Config.MaxDescriptions > 0 && len(merged) > run.Config.MaxDescriptions {
		merged = merged[:run.Config.MaxDescriptions]
	}

	result := &description.ProcessingResult{
		Descriptions:    merged,
		PerProcessorRaw: perProcessor,
		ProcessorsUsed:  used,
		Quality:         description.ComputeQuality(merged),
	}

	var rawTotal int
	for _, descs := range perProcessor {
		rawTotal += len(descs)
	}
	if rawTotal > 0 && len(merged) == 0 {
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("all %d candidates fell below consensus; consider lowering minConsensus or overrideConfidence", rawTotal))
	}
	if len(used) < len(run.Processors) {
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("%d of %d processors did not contribute", len(run.Processors)-len(used), len(run.Processors)))
	}
	return result, nil
}
