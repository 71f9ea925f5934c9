// Package chunk splits long passages into paragraph-aligned pieces small
// enough to send to a rewrite service in one request.
package chunk

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Separator is placed between paragraphs inside a chunk and between chunks
// when the rewritten pieces are joined back together.
const Separator = "\n\n"

// DefaultMaxSize is the chunk size used when the configuration leaves it unset.
const DefaultMaxSize = 8000

// ErrInvalidArgument is returned for configuration that can never produce a chunking.
var ErrInvalidArgument = errors.New("invalid argument")

// Chunk is one ordered slice of the input text.
type Chunk struct {
	Index int
	Text  string
}

// paragraphBreak matches a blank line, tolerating trailing spaces and CRLF.
var paragraphBreak = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)

// Paragraphs returns the non-empty, trimmed paragraphs of text in order.
func Paragraphs(text string) []string {
	parts := paragraphBreak.Split(text, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// Split groups the paragraphs of text into chunks of at most maxSize bytes.
// A paragraph is never cut: one that alone exceeds maxSize becomes its own
// oversized chunk. The result is nil when text has no paragraphs.
func Split(text string, maxSize int) ([]Chunk, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: max chunk size must be positive, got %d", ErrInvalidArgument, maxSize)
	}

	var chunks []Chunk
	var buf strings.Builder

	seal := func() {
		chunks = append(chunks, Chunk{Index: len(chunks), Text: buf.String()})
		buf.Reset()
	}

	for _, p := range Paragraphs(text) {
		if buf.Len() > 0 && buf.Len()+len(Separator)+len(p) > maxSize {
			seal()
		}
		if buf.Len() > 0 {
			buf.WriteString(Separator)
		}
		buf.WriteString(p)
	}
	if buf.Len() > 0 {
		seal()
	}

	return chunks, nil
}

// Join concatenates per-chunk texts in index order.
func Join(texts []string) string {
	return strings.Join(texts, Separator)
}
