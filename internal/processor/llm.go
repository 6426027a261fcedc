package processor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/inkmill/descry/internal/description"
)

// llmSystemPrompt enforces a strict-JSON extraction contract on chat models.
const llmSystemPrompt = "You are a literary analysis assistant. Respond with strict JSON only, no narration. " +
	"Given a chapter of narrative text with numbered sentences, extract visual descriptions as a JSON array. " +
	"Each element is {\"type\": one of \"character\"|\"location\"|\"object\"|\"atmosphere\", " +
	"\"text\": the described phrase quoted verbatim from the chapter, " +
	"\"sentence\": zero-based index of the sentence containing it, " +
	"\"confidence\": number in [0,1]}. " +
	"Only include concrete, paintable descriptions. Return [] if there are none."

// llmCandidate is one raw extraction from a chat model.
type llmCandidate struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Sentence   int     `json:"sentence"`
	Confidence float64 `json:"confidence"`
}

// buildUserPrompt numbers every sentence so the model can reference indexes.
func buildUserPrompt(sentences []Sentence) string {
	var b strings.Builder
	b.WriteString("Chapter sentences:\n")
	for _, s := range sentences {
		fmt.Fprintf(&b, "[%d] %s\n", s.Index, s.Text)
	}
	return b.String()
}

// parseCandidates decodes the model reply, tolerating markdown code fences.
func parseCandidates(raw string) ([]llmCandidate, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var cands []llmCandidate
	if err := json.Unmarshal([]byte(raw), &cands); err != nil {
		return nil, fmt.Errorf("parse extraction json: %w", err)
	}
	return cands, nil
}

// candidatesToDescriptions validates raw candidates and resolves spans against
// the chapter text. Invalid types and out-of-range sentence indexes are
// dropped rather than failing the call.
func candidatesToDescriptions(cands []llmCandidate, sentences []Sentence, chapterID, procName string) []description.Description {
	ids := description.NewIDSource()
	out := make([]description.Description, 0, len(cands))
	for _, c := range cands {
		dtype := description.Type(strings.ToLower(c.Type))
		if !dtype.Valid() {
			continue
		}
		if c.Sentence < 0 || c.Sentence >= len(sentences) {
			continue
		}
		sent := sentences[c.Sentence]

		span := description.Span{Start: sent.Start, End: sent.End}
		text := strings.TrimSpace(c.Text)
		if text == "" {
			text = sent.Text
		} else if rel := strings.Index(sent.Text, text); rel >= 0 {
			span = description.Span{Start: sent.Start + rel, End: sent.Start + rel + len(text)}
		}

		out = append(out, description.Description{
			ID:               ids.Next(),
			Type:             dtype,
			Text:             text,
			Span:             span,
			SentenceIndex:    c.Sentence,
			Confidence:       description.ClampConfidence(c.Confidence),
			Context:          contextWindow(sentences, c.Sentence),
			SourceProcessors: []string{procName},
			ChapterID:        chapterID,
		})
	}
	return out
}
