package processor

import (
	"strings"
	"unicode"

	"github.com/inkmill/descry/internal/description"
)

// Scoring constants for the heuristic engine.
const (
	multiWordBonus      = 0.10
	maxDescriptiveBonus = 0.15
	perKeywordBonus     = 0.05
	minDescriptiveScore = 0.45
)

// honorifics preceding a name mark it as a person with high confidence.
var honorifics = map[string]bool{
	"Mr": true, "Mrs": true, "Ms": true, "Dr": true, "Sir": true,
	"Lady": true, "Lord": true, "Captain": true, "Professor": true,
	"Master": true, "Miss": true, "King": true, "Queen": true,
	"Prince": true, "Princess": true, "Count": true, "Baron": true,
}

// placeCues inside or right after a capitalized run mark a place.
var placeCues = map[string]bool{
	"castle": true, "forest": true, "valley": true, "city": true,
	"village": true, "bay": true, "harbor": true, "keep": true,
	"tower": true, "hall": true, "river": true, "mountain": true,
	"isle": true, "island": true, "manor": true, "abbey": true,
	"street": true, "road": true, "square": true, "bridge": true,
	"sea": true, "lake": true, "moor": true, "garden": true,
}

// orgCues mark organizations, which map to the object type.
var orgCues = map[string]bool{
	"guild": true, "company": true, "order": true, "council": true,
	"brotherhood": true, "house": true, "legion": true, "academy": true,
}

// prepositions that suggest the following proper noun is a place.
var placePrepositions = map[string]bool{
	"in": true, "at": true, "to": true, "from": true, "near": true,
	"toward": true, "towards": true, "beyond": true,
}

// connectors allowed inside a multi-token proper-noun run.
var nameConnectors = map[string]bool{
	"of": true, "the": true, "de": true, "van": true, "der": true,
}

// descriptiveWords is the descriptiveness lexicon for the contextual pass,
// keyed to the type the word suggests.
var descriptiveWords = map[string]string{
	"ancient": "atmosphere", "dark": "atmosphere", "gloomy": "atmosphere",
	"misty": "atmosphere", "silent": "atmosphere", "cold": "atmosphere",
	"warm": "atmosphere", "golden": "atmosphere", "pale": "atmosphere",
	"shadowy": "atmosphere", "dim": "atmosphere", "quiet": "atmosphere",
	"stormy": "atmosphere", "eerie": "atmosphere", "fragrant": "atmosphere",

	"tall": "character", "slender": "character", "weathered": "character",
	"handsome": "character", "beautiful": "character", "gaunt": "character",
	"bearded": "character", "wrinkled": "character", "youthful": "character",
	"stern": "character", "graceful": "character",

	"vast": "location", "crumbling": "location", "cobbled": "location",
	"winding": "location", "towering": "location", "sprawling": "location",
	"overgrown": "location", "distant": "location", "narrow": "location",

	"ornate": "object", "gilded": "object", "rusty": "object",
	"polished": "object", "carved": "object", "tattered": "object",
	"jeweled": "object", "worn": "object",
}

// patternModel recognizes proper-noun runs and labels them by cue words.
// It is the default opaque capability behind the heuristic processor.
type patternModel struct{}

func newPatternModel() *patternModel { return &patternModel{} }

// token is a word with byte offsets.
type token struct {
	start int
	end   int
	text  string
}

// Recognize scans for runs of capitalized tokens, allowing name connectors
// inside a run, and labels each run from surrounding cue words.
func (m *patternModel) Recognize(text string, sentences []Sentence) []entitySpan {
	tokens := tokenize(text)
	sentenceStarts := make(map[int]bool, len(sentences))
	for _, s := range sentences {
		sentenceStarts[s.Start] = true
	}

	var spans []entitySpan
	for i := 0; i < len(tokens); i++ {
		if !isCapitalized(tokens[i].text) {
			continue
		}
		// Skip sentence-initial single capitalized words with no supporting
		// cue; ordinary sentence openers would otherwise flood the output.
		runStart := i
		j := i
		for j+1 < len(tokens) {
			next := tokens[j+1]
			if isCapitalized(next.text) {
				j++
				continue
			}
			if nameConnectors[strings.ToLower(next.text)] && j+2 < len(tokens) && isCapitalized(tokens[j+2].text) {
				j += 2
				continue
			}
			break
		}

		run := tokens[runStart : j+1]
		label, score, ok := m.labelRun(tokens, runStart, j, sentenceStarts)
		if ok {
			spans = append(spans, entitySpan{
				Start: run[0].start,
				End:   run[len(run)-1].end,
				Text:  text[run[0].start:run[len(run)-1].end],
				Label: label,
				Score: score,
			})
		}
		i = j
	}
	return spans
}

// labelRun decides the raw label and base score for a capitalized run.
func (m *patternModel) labelRun(tokens []token, runStart, runEnd int, sentenceStarts map[int]bool) (string, float64, bool) {
	first := tokens[runStart]

	if honorifics[first.text] {
		return "person", 0.75, true
	}
	if runStart > 0 && honorifics[tokens[runStart-1].text] {
		return "person", 0.75, true
	}

	// Place and organization cues inside the run.
	for k := runStart; k <= runEnd; k++ {
		low := strings.ToLower(tokens[k].text)
		if placeCues[low] {
			return "place", 0.70, true
		}
		if orgCues[low] {
			return "organization", 0.60, true
		}
	}
	// Cue word immediately after the run ("the Whispering woods").
	if runEnd+1 < len(tokens) && placeCues[strings.ToLower(tokens[runEnd+1].text)] {
		return "place", 0.65, true
	}
	// Preposition before the run suggests a place.
	if runStart > 0 && placePrepositions[strings.ToLower(tokens[runStart-1].text)] {
		return "place", 0.60, true
	}

	// A lone capitalized token at a sentence start is almost always just a
	// sentence opener, not an entity.
	if runStart == runEnd && sentenceStarts[first.start] {
		return "", 0, false
	}

	return "person", 0.55, true
}

// tokenize splits text into word tokens with byte offsets, stripping
// surrounding punctuation.
func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || r == '\'' || r == '-' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, token{start: start, end: i, text: text[start:i]})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{start: start, end: len(text), text: text[start:]})
	}
	return tokens
}

// isCapitalized reports whether w starts upper-case and continues lower-case.
func isCapitalized(w string) bool {
	if len(w) < 2 {
		return false
	}
	runes := []rune(w)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// descriptiveBonus adds a small confidence bonus per descriptive keyword in
// the entity's sentence, capped.
func descriptiveBonus(sentence string) float64 {
	bonus := 0.0
	for _, w := range strings.Fields(strings.ToLower(sentence)) {
		w = strings.Trim(w, ".,;:!?\"'")
		if _, ok := descriptiveWords[w]; ok {
			bonus += perKeywordBonus
			if bonus >= maxDescriptiveBonus {
				return maxDescriptiveBonus
			}
		}
	}
	return bonus
}

// descriptiveScore rates how descriptive a sentence is and suggests the type
// its keywords lean toward. The score combines keyword density and length.
func descriptiveScore(sentence string) (float64, description.Type) {
	words := strings.Fields(strings.ToLower(sentence))
	if len(words) == 0 {
		return 0, description.TypeAtmosphere
	}
	hits := 0
	typeVotes := map[string]int{}
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?\"'")
		if t, ok := descriptiveWords[w]; ok {
			hits++
			typeVotes[t]++
		}
	}
	score := 0.2 + 0.12*float64(hits)
	if len(words) >= 12 {
		score += 0.05
	}
	if score > 1 {
		score = 1
	}

	// Fixed evaluation order keeps tie-breaking deterministic.
	best := "atmosphere"
	bestVotes := typeVotes["atmosphere"]
	for _, t := range []string{"location", "character", "object"} {
		if typeVotes[t] > bestVotes {
			best, bestVotes = t, typeVotes[t]
		}
	}
	return score, description.Type(best)
}
