package orchestrator

import (
	"context"
	"fmt"

	"github.com/inkmill/descry/internal/description"
)

// Compile-time check.
var _ Strategy = (*SequentialStrategy)(nil)

// SequentialStrategy invokes processors one at a time in the configured
// order. Sentences already covered by an earlier processor are excluded from
// later contributions, and the chain stops early once the configured maximum
// description count is reached.
type SequentialStrategy struct {
	onProgress func(ProgressEvent)
}

// NewSequentialStrategy creates the sequential strategy. onProgress may be nil.
func NewSequentialStrategy(onProgress func(ProgressEvent)) *SequentialStrategy {
	return &SequentialStrategy{onProgress: onProgress}
}

func (s *SequentialStrategy) Mode() Mode { return ModeSequential }

// Execute walks the processor chain. Cancellation is honored between
// invocations: the call returns the partial result collected so far.
func (s *SequentialStrategy) Execute(ctx context.Context, run Run) (*description.ProcessingResult, error) {
	emit := func(ev ProgressEvent) {
		if s.onProgress != nil {
			s.onProgress(ev)
		}
	}

	maxTotal := run.Config.SequentialMax
	if maxTotal <= 0 {
		maxTotal = run.Config.MaxDescriptions
	}

	covered := make(map[int]bool)
	var merged []description.Description
	var used []string
	var recommendations []string

	for _, p := range run.Processors {
		if err := ctx.Err(); err != nil {
			recommendations = append(recommendations, "canceled before all processors ran")
			break
		}
		if maxTotal > 0 && len(merged) >= maxTotal {
			recommendations = append(recommendations,
				fmt.Sprintf("stopped early at %d descriptions", len(merged)))
			break
		}

		emit(ProgressEvent{Processor: p.Name(), Status: ProgressWorking})
		descs, err := p.Extract(ctx, run.Text, run.ChapterID)
		if err != nil {
			emit(ProgressEvent{Processor: p.Name(), Status: ProgressFailed, Message: err.Error()})
			continue
		}
		emit(ProgressEvent{Processor: p.Name(), Status: ProgressComplete})
		used = append(used, p.Name())

		for _, d := range descs {
			if covered[d.SentenceIndex] {
				continue
			}
			covered[d.SentenceIndex] = true
			merged = append(merged, d)
			if maxTotal > 0 && len(merged) >= maxTotal {
				break
			}
		}
	}

	description.SortStable(merged)
	if run.Config.MaxDescriptions > 0 && len(merged) > run.Config.MaxDescriptions {
		merged = merged[:run.Config.MaxDescriptions]
	}
	if used == nil {
		used = []string{}
	}

	return &description.ProcessingResult{
		Descriptions:    merged,
		ProcessorsUsed:  used,
		Quality:         description.ComputeQuality(merged),
		Recommendations: recommendations,
	}, nil
}
