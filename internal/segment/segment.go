// Package segment provides token-budgeted text segmentation for TTS
// applications.
//
// Long input text is broken into bounded chunks so the autoregressive stage
// of the synthesis engine never receives more than its per-segment token
// budget. Splitting prefers sentence boundaries, then commas, then words.
package segment

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// charsPerToken is the conservative rune-to-token ratio used to estimate BPE
// token counts without the engine's vocabulary. Overestimating keeps every
// segment under the engine budget.
const charsPerToken = 4

// Sentence boundary pattern: terminal punctuation followed by whitespace.
const sentenceBoundaryPattern = `([.!?])\s+`

// commaSeparator splits oversized sentences into clause-level parts.
const commaSeparator = ","

// abbreviations that end with a period but do not terminate a sentence.
var abbreviations = []string{
	"Mr.", "Mrs.", "Ms.", "Dr.", "Prof.", "Sr.", "Jr.",
	"St.", "Ave.", "Rd.", "Blvd.", "Dept.",
	"Inc.", "Ltd.", "Co.", "Corp.",
	"etc.", "vs.", "i.e.", "e.g.", "Ph.D.",
}

var sentenceBoundary = regexp.MustCompile(sentenceBoundaryPattern)

// CountTokens estimates the token count of a piece of text. Every whitespace
// field counts for at least one token; longer words count for one token per
// started run of charsPerToken runes.
func CountTokens(text string) int {
	total := 0

	for _, field := range strings.Fields(text) {
		runeCount := utf8.RuneCountInString(field)

		tokens := (runeCount + charsPerToken - 1) / charsPerToken
		if tokens < 1 {
			tokens = 1
		}

		total += tokens
	}

	return total
}

// Split breaks text into segments of at most maxTokens estimated tokens.
// Empty or whitespace-only input yields no segments. A non-positive budget
// returns the trimmed text as a single segment.
func Split(text string, maxTokens int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if maxTokens <= 0 {
		return []string{trimmed}
	}

	var segments []string

	builder := newSegmentBuilder(maxTokens)

	for _, sentence := range splitSentences(trimmed) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if CountTokens(sentence) > maxTokens {
			segments = builder.flushTo(segments)
			segments = appendOversizedSentence(segments, sentence, maxTokens)

			continue
		}

		segments = builder.add(segments, sentence)
	}

	return builder.flushTo(segments)
}

// segmentBuilder packs pieces of text into the current segment until the
// token budget would be exceeded.
type segmentBuilder struct {
	maxTokens int
	current   strings.Builder
	tokens    int
}

func newSegmentBuilder(maxTokens int) *segmentBuilder {
	return &segmentBuilder{
		maxTokens: maxTokens,
		current:   strings.Builder{},
		tokens:    0,
	}
}

// add appends a piece that is known to fit the budget on its own, flushing
// the current segment first when the combination would exceed it.
func (b *segmentBuilder) add(segments []string, piece string) []string {
	pieceTokens := CountTokens(piece)

	if b.tokens+pieceTokens > b.maxTokens && b.current.Len() > 0 {
		segments = b.flushTo(segments)
	}

	if b.current.Len() > 0 {
		b.current.WriteString(" ")
	}

	b.current.WriteString(piece)
	b.tokens += pieceTokens

	return segments
}

// flushTo appends the current segment, if any, and resets the builder.
func (b *segmentBuilder) flushTo(segments []string) []string {
	if b.current.Len() == 0 {
		return segments
	}

	segments = append(segments, strings.TrimSpace(b.current.String()))
	b.current.Reset()
	b.tokens = 0

	return segments
}

// appendOversizedSentence splits a sentence that exceeds the budget by itself,
// first at commas, then at word boundaries as a last resort.
func appendOversizedSentence(segments []string, sentence string, maxTokens int) []string {
	builder := newSegmentBuilder(maxTokens)

	for _, part := range strings.Split(sentence, commaSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if CountTokens(part) > maxTokens {
			segments = builder.flushTo(segments)
			segments = appendByWords(segments, part, maxTokens)

			continue
		}

		segments = builder.add(segments, part)
	}

	return builder.flushTo(segments)
}

// appendByWords packs single words into segments. A single word never
// exceeds a sane budget; if it does, it becomes a segment of its own.
func appendByWords(segments []string, part string, maxTokens int) []string {
	builder := newSegmentBuilder(maxTokens)

	for _, word := range strings.Fields(part) {
		segments = builder.add(segments, word)
	}

	return builder.flushTo(segments)
}

// splitSentences splits text at sentence-ending punctuation, keeping known
// abbreviations attached to their sentence.
func splitSentences(text string) []string {
	matches := sentenceBoundary.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}

	var sentences []string

	lastEnd := 0

	for _, match := range matches {
		candidate := strings.TrimSpace(text[lastEnd:match[1]])
		if endsWithAbbreviation(candidate) {
			continue
		}

		sentences = append(sentences, text[lastEnd:match[1]])
		lastEnd = match[1]
	}

	if lastEnd < len(text) {
		sentences = append(sentences, text[lastEnd:])
	}

	if len(sentences) == 0 {
		return []string{text}
	}

	return sentences
}

func endsWithAbbreviation(candidate string) bool {
	for _, abbreviation := range abbreviations {
		if strings.HasSuffix(candidate, abbreviation) {
			return true
		}
	}

	return false
}
