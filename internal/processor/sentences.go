package processor

import (
	"crypto/sha256"
	"unicode"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Sentence is one segmented sentence with its byte offsets into the chapter.
type Sentence struct {
	Index int
	Start int
	End   int
	Text  string
}

// abbreviations that end with a period but do not terminate a sentence.
var abbreviations = map[string]bool{
	"Mr": true, "Mrs": true, "Ms": true, "Dr": true, "St": true,
	"Prof": true, "Capt": true, "Col": true, "Gen": true, "Lt": true,
	"Sgt": true, "Rev": true, "Hon": true, "Jr": true, "Sr": true,
}

// SplitSentences segments text into sentences, retaining byte offsets.
// Terminators are '.', '!', '?' and their runs; common honorific
// abbreviations do not terminate.
func SplitSentences(text string) []Sentence {
	var sentences []Sentence
	start := -1
	lastWordStart := 0

	flush := func(end int) {
		if start < 0 {
			return
		}
		raw := text[start:end]
		trimmed, lead := trimSpaceOffsets(raw)
		if trimmed != "" {
			sentences = append(sentences, Sentence{
				Index: len(sentences),
				Start: start + lead,
				End:   start + lead + len(trimmed),
				Text:  trimmed,
			})
		}
		start = -1
	}

	for i, r := range text {
		if start < 0 && !unicode.IsSpace(r) {
			start = i
		}
		switch r {
		case '.':
			word := text[lastWordStart:i]
			if abbreviations[word] {
				continue
			}
			flush(i + 1)
		case '!', '?':
			flush(i + 1)
		default:
			if unicode.IsSpace(r) {
				lastWordStart = i + utf8.RuneLen(r)
			}
		}
	}
	flush(len(text))
	return sentences
}

// trimSpaceOffsets trims leading/trailing whitespace, returning the trimmed
// string and the number of leading bytes removed.
func trimSpaceOffsets(s string) (string, int) {
	lead := 0
	for lead < len(s) {
		r, size := utf8.DecodeRuneInString(s[lead:])
		if !unicode.IsSpace(r) {
			break
		}
		lead += size
	}
	end := len(s)
	for end > lead {
		r, size := utf8.DecodeLastRuneInString(s[lead:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return s[lead:end], lead
}

// segmenter caches sentence segmentation keyed by text hash. Chapters are
// re-extracted under different modes during calibration, so the cache saves
// repeated scans of identical text.
type segmenter struct {
	cache *lru.Cache[[32]byte, []Sentence]
}

func newSegmenter(size int) (*segmenter, error) {
	c, err := lru.New[[32]byte, []Sentence](size)
	if err != nil {
		return nil, err
	}
	return &segmenter{cache: c}, nil
}

func (s *segmenter) split(text string) []Sentence {
	key := sha256.Sum256([]byte(text))
	if cached, ok := s.cache.Get(key); ok {
		return cached
	}
	sentences := SplitSentences(text)
	s.cache.Add(key, sentences)
	return sentences
}
