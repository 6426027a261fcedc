package orchestrator

import (
	"context"
	"fmt"

	"github.com/inkmill/descry/internal/description"
	"github.com/inkmill/descry/internal/processor"
)

// Compile-time check.
var _ Strategy = (*ParallelStrategy)(nil)

// ParallelStrategy invokes every selected processor concurrently and collects
// all results, including partial results from processors that succeeded while
// siblings failed. Only exact span+type duplicates are removed; no weighting.
type ParallelStrategy struct {
	onProgress func(ProgressEvent)
}

// NewParallelStrategy creates the parallel strategy. onProgress may be nil.
func NewParallelStrategy(onProgress func(ProgressEvent)) *ParallelStrategy {
	return &ParallelStrategy{onProgress: onProgress}
}

func (s *ParallelStrategy) Mode() Mode { return ModeParallel }

// Execute fans out, deduplicates exact span+type collisions, and ranks the
// union deterministically.
func (s *ParallelStrategy) Execute(ctx context.Context, run Run) (*description.ProcessingResult, error) {
	perProcessor, used := fanOut(ctx, run, s.onProgress)

	merged := dedupeExact(perProcessor, run.Processors)
	description.SortStable(merged)
	if run.Config.MaxDescriptions > 0 && len(merged) > run.Config.MaxDescriptions {
		merged = merged[:run.Config.MaxDescriptions]
	}

	result := &description.ProcessingResult{
		Descriptions:   merged,
		ProcessorsUsed: used,
		Quality:        description.ComputeQuality(merged),
	}
	if len(used) < len(run.Processors) {
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("%d of %d processors did not contribute", len(run.Processors)-len(used), len(run.Processors)))
	}
	return result, nil
}

// dedupeKey identifies an exact duplicate claim.
type dedupeKey struct {
	t    description.Type
	span description.Span
}

// dedupeExact unions per-processor outputs, collapsing exact span+type
// duplicates onto the highest-confidence copy and recording every source.
// Iteration follows the selected processor order for determinism.
func dedupeExact(perProcessor map[string][]description.Description, order []processor.Processor) []description.Description {
	seen := make(map[dedupeKey]int)
	var merged []description.Description

	for _, p := range order {
		for _, d := range perProcessor[p.Name()] {
			key := dedupeKey{t: d.Type, span: d.Span}
			if idx, ok := seen[key]; ok {
				existing := &merged[idx]
				existing.SourceProcessors = appendMissing(existing.SourceProcessors, d.SourceProcessors...)
				if d.Confidence > existing.Confidence {
					sources := existing.SourceProcessors
					*existing = d
					existing.SourceProcessors = sources
				}
				continue
			}
			seen[key] = len(merged)
			merged = append(merged, d)
		}
	}
	return merged
}

// appendMissing appends names not already present.
func appendMissing(dst []string, names ...string) []string {
	for _, n := range names {
		found := false
		for _, have := range dst {
			if have == n {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, n)
		}
	}
	return dst
}
