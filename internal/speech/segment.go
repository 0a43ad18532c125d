package speech

import (
	"strings"
	"unicode/utf8"
)

// sentence terminators recognized in both CJK and latin text.
const sentenceEnders = "。？！.?!"

// longSentenceRunes flushes a buffered fragment that never saw a terminator
// once it grows past this many runes.
const longSentenceRunes = 50

// FindSentenceEnd returns the byte offset just past the first sentence
// terminator in text. When no terminator is present but the text already
// exceeds longSentenceRunes runes, the whole text counts as one sentence and
// len(text) is returned. Otherwise it returns -1.
func FindSentenceEnd(text string) int {
	if i := strings.IndexAny(text, sentenceEnders); i >= 0 {
		_, width := utf8.DecodeRuneInString(text[i:])
		return i + width
	}
	if utf8.RuneCountInString(text) > longSentenceRunes {
		return len(text)
	}
	return -1
}

// Segmenter accumulates streamed text chunks and emits complete sentences.
// It carries partial sentences across Feed calls; the zero value is ready to
// use.
type Segmenter struct {
	pending string
}

// Feed appends chunk to the buffer and returns every complete sentence now
// available, in order.
func (s *Segmenter) Feed(chunk string) []string {
	s.pending += chunk

	var sentences []string
	for {
		end := FindSentenceEnd(s.pending)
		if end < 0 {
			break
		}
		sentence := strings.TrimSpace(s.pending[:end])
		s.pending = s.pending[end:]
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
	}
	return sentences
}

// Flush returns whatever partial sentence remains and empties the buffer.
func (s *Segmenter) Flush() string {
	out := strings.TrimSpace(s.pending)
	s.pending = ""
	return out
}

// SplitForSynthesis breaks text into pieces no longer than maxRunes runes,
// preferring sentence boundaries, then comma boundaries, then hard cuts.
// Synthesis backends reject or truncate overlong inputs, so every returned
// piece fits.
func SplitForSynthesis(text string, maxRunes int) []string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return []string{text}
	}

	var out []string
	var current string

	flush := func() {
		if trimmed := strings.TrimSpace(current); trimmed != "" {
			out = append(out, trimmed)
		}
		current = ""
	}

	for _, sentence := range splitAfterAny(text, sentenceEnders) {
		if strings.TrimSpace(sentence) == "" {
			continue
		}

		if utf8.RuneCountInString(sentence) > maxRunes {
			for _, part := range splitAfterAny(sentence, "，,") {
				if strings.TrimSpace(part) == "" {
					continue
				}
				if utf8.RuneCountInString(current)+utf8.RuneCountInString(part) > maxRunes {
					flush()
				}
				if utf8.RuneCountInString(part) > maxRunes {
					for _, chunk := range hardChunks(part, maxRunes) {
						out = append(out, strings.TrimSpace(chunk))
					}
				} else {
					current += part
				}
			}
			continue
		}

		if utf8.RuneCountInString(current)+utf8.RuneCountInString(sentence) > maxRunes {
			flush()
		}
		current += sentence
	}
	flush()

	return out
}

// splitAfterAny splits text after every rune in cutset, keeping the
// terminator with the preceding piece.
func splitAfterAny(text, cutset string) []string {
	var parts []string
	start := 0
	for i, r := range text {
		if strings.ContainsRune(cutset, r) {
			end := i + utf8.RuneLen(r)
			parts = append(parts, text[start:end])
			start = end
		}
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

// hardChunks cuts text into maxRunes-sized rune chunks.
func hardChunks(text string, maxRunes int) []string {
	var chunks []string
	runes := []rune(text)
	for i := 0; i < len(runes); i += maxRunes {
		end := i + maxRunes
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
