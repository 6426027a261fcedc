package orchestrator

import (
	"context"
	"fmt"

	"github.com/inkmill/descry/internal/description"
	"github.com/inkmill/descry/internal/processor"
)

// Compile-time check.
var _ Strategy = (*SingleStrategy)(nil)

// SingleStrategy runs exactly one named processor.
type SingleStrategy struct {
	onProgress func(ProgressEvent)
}

// NewSingleStrategy creates the single strategy. onProgress may be nil.
func NewSingleStrategy(onProgress func(ProgressEvent)) *SingleStrategy {
	return &SingleStrategy{onProgress: onProgress}
}

func (s *SingleStrategy) Mode() Mode { return ModeSingle }

// Execute runs the configured processor. A name absent from the available
// set is a configuration error; an extraction failure is absorbed into an
// empty result.
func (s *SingleStrategy) Execute(ctx context.Context, run Run) (*description.ProcessingResult, error) {
	name := run.Config.SingleProcessor
	if name == "" {
		return nil, description.NewConfigurationError("single mode requires a processor name")
	}

	var target processor.Processor
	for _, p := range run.Processors {
		if p.Name() == name {
			target = p
			break
		}
	}
	if target == nil {
		return nil, description.NewConfigurationError("processor %q is not in the available set", name)
	}

	if s.onProgress != nil {
		s.onProgress(ProgressEvent{Processor: name, Status: ProgressWorking})
	}
	descs, err := target.Extract(ctx, run.Text, run.ChapterID)
	if err != nil {
		if s.onProgress != nil {
			s.onProgress(ProgressEvent{Processor: name, Status: ProgressFailed, Message: err.Error()})
		}
		result := description.EmptyResult(fmt.Sprintf("processor %q failed: %v", name, err))
		return result, nil
	}
	if s.onProgress != nil {
		s.onProgress(ProgressEvent{Processor: name, Status: ProgressComplete})
	}

	description.SortStable(descs)
	if run.Config.MaxDescriptions > 0 && len(descs) > run.Config.MaxDescriptions {
		descs = descs[:run.Config.MaxDescriptions]
	}

	return &description.ProcessingResult{
		Descriptions:   descs,
		ProcessorsUsed: []string{name},
		Quality:        description.ComputeQuality(descs),
	}, nil
}
