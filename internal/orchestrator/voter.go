package orchestrator

import (
	"sort"

	"github.com/inkmill/descry/internal/description"
)

// Voter merges candidate descriptions from multiple processors into a
// weighted-consensus set.
type Voter struct{}

// NewVoter creates a Voter.
func NewVoter() *Voter {
	return &Voter{}
}

// voteGroup is one cluster of candidates judged to be the same claim.
type voteGroup struct {
	candidates []description.Description
}

// sameClaim reports whether two candidates describe the same thing: same type
// and overlapping spans, or the same sentence.
func sameClaim(a, b description.Description) bool {
	if a.Type != b.Type {
		return false
	}
	return a.Span.Overlaps(b.Span) || a.SentenceIndex == b.SentenceIndex
}

// Vote groups candidates by type and overlapping span/sentence, computes a
// weighted confidence per group, and keeps groups with enough consensus or a
// single contributor confident past the override threshold. The merged
// description's text and span come from the highest-confidence contributor.
func (v *Voter) Vote(perProcessor map[string][]description.Description, weights map[string]float64, minConsensus int, overrideConfidence float64) []description.Description {
	if minConsensus < 1 {
		minConsensus = 1
	}

	// Flatten in deterministic order: processor name, then span start.
	names := make([]string, 0, len(perProcessor))
	for name := range perProcessor {
		names = append(names, name)
	}
	sort.Strings(names)

	var candidates []description.Description
	for _, name := range names {
		candidates = append(candidates, perProcessor[name]...)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Span.Start != candidates[j].Span.Start {
			return candidates[i].Span.Start < candidates[j].Span.Start
		}
		return candidates[i].Type < candidates[j].Type
	})

	// Greedy transitive clustering within each type.
	var groups []*voteGroup
	for _, cand := range candidates {
		placed := false
		for _, g := range groups {
			for _, member := range g.candidates {
				if sameClaim(cand, member) {
					g.candidates = append(g.candidates, cand)
					placed = true
					break
				}
			}
			if placed {
				break
			}
		}
		if !placed {
			groups = append(groups, &voteGroup{candidates: []description.Description{cand}})
		}
	}

	type scored struct {
		desc     description.Description
		weighted float64
	}
	var kept []scored

	ids := description.NewIDSource()
	for _, g := range groups {
		// One vote per processor: a processor contributing several candidates
		// to a group is counted once at its highest confidence.
		best := g.candidates[0]
		perProc := make(map[string]float64)
		for _, cand := range g.candidates {
			if cand.Confidence > best.Confidence {
				best = cand
			}
			for _, src := range cand.SourceProcessors {
				if existing, ok := perProc[src]; !ok || cand.Confidence > existing {
					perProc[src] = cand.Confidence
				}
			}
		}

		var weightSum, confSum float64
		for src, conf := range perProc {
			w, ok := weights[src]
			if !ok {
				w = 1.0
			}
			weightSum += w
			confSum += w * conf
		}
		if weightSum == 0 {
			continue
		}
		weighted := confSum / weightSum
		consensus := len(perProc)

		if consensus < minConsensus && weighted < overrideConfidence {
			continue
		}

		sources := make([]string, 0, len(perProc))
		for src := range perProc {
			sources = append(sources, src)
		}
		sort.Strings(sources)

		merged := description.Description{
			ID:               ids.Next(),
			Type:             best.Type,
			Text:             best.Text,
			Span:             best.Span,
			SentenceIndex:    best.SentenceIndex,
			Confidence:       description.ClampConfidence(weighted),
			Context:          best.Context,
			SourceProcessors: sources,
			ChapterID:        best.ChapterID,
		}
		kept = append(kept, scored{desc: merged, weighted: weighted})
	}

	// Weighted confidence descending, ties broken by ascending span start.
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].weighted != kept[j].weighted {
			return kept[i].weighted > kept[j].weighted
		}
		return kept[i].desc.Span.Start < kept[j].desc.Span.Start
	})

	out := make([]description.Description, len(kept))
	for i, s := range kept {
		out[i] = s.desc
	}
	return out
}
