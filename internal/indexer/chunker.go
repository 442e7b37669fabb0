// Package indexer ingests documents: extract, preprocess, chunk, embed and add to the vector store.
package indexer

import (
	"strings"
)

// Chunk is one window of a document's words.
type Chunk struct {
	Index int
	Text  string
}

// Chunker splits text into overlapping word-based chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
// Size is at least 1 and overlap is clamped below size.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize < 1 {
		chunkSize = 1
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into windows of chunkSize words, each starting
// chunkSize-chunkOverlap words after the previous one. Blank text yields nil.
func (c *Chunker) Chunk(text string) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	chunks := make([]Chunk, 0, len(words)/step+1)
	for start := 0; ; start += step {
		end := start + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: strings.Join(words[start:end], " ")})
		if end == len(words) {
			return chunks
		}
	}
}
