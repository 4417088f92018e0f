package chunker

import (
	"regexp"
	"strings"
	"unicode"
)

// paragraphBreak matches a blank-line run: a newline, optional
// whitespace, then another newline.
var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// splitParagraphs splits text on blank-line boundaries and drops
// paragraphs that are empty after trimming.
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// splitSentences splits a paragraph into trimmed sentences. A sentence
// ends at '.', '!' or '?' followed by whitespace; the terminator stays
// with its sentence. A terminator with no following whitespace, as in
// "3.14" or "e.g.", does not end a sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	var prev rune

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsSpace(r) && isSentenceEnd(prev) {
			flush()
		}
		current.WriteRune(r)
		prev = r
	}
	flush()

	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// sentenceStream flattens paragraphs into one ordered sentence
// sequence. An empty-string marker follows each paragraph's sentences
// so assembly can see paragraph boundaries; trailing markers are
// stripped.
func sentenceStream(text string) []string {
	var stream []string
	for _, para := range splitParagraphs(text) {
		stream = append(stream, splitSentences(para)...)
		stream = append(stream, "")
	}
	for len(stream) > 0 && stream[len(stream)-1] == "" {
		stream = stream[:len(stream)-1]
	}
	return stream
}

// countTokens counts whitespace-delimited words. It is a deterministic
// size proxy, not a model tokenizer.
func countTokens(text string) int {
	return len(strings.Fields(text))
}
