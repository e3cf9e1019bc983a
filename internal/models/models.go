package models

import "strconv"

// Document is the logical unit supplied by a caller on ingest.
type Document struct {
	ID       string
	Text     string
	Source   string
	Metadata map[string]string
}

// Chunk is a contiguous substring of a document plus positional metadata.
// Chunks of one document, sorted by ChunkIndex, give overlapping coverage
// of the original text with no gaps.
type Chunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Text       string
	CharCount  int
	Source     string
	Extra      map[string]string
}

// Metadata returns the metadata mapping stored alongside the chunk's
// vector. Caller-supplied document metadata is carried through; the
// positional keys win on collision.
func (c Chunk) Metadata() map[string]string {
	m := make(map[string]string, len(c.Extra)+4)
	for k, v := range c.Extra {
		m[k] = v
	}
	m["document_id"] = c.DocumentID
	m["chunk_index"] = strconv.Itoa(c.ChunkIndex)
	m["source"] = c.Source
	m["chars"] = strconv.Itoa(c.CharCount)
	return m
}

// SearchResult is a transient per-query result, best-first ordered.
// Tie order between equal similarities is the store's native order and is
// not guaranteed stable across runs.
type SearchResult struct {
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"meta"`
	Similarity float32           `json:"-"`
}

// Answer is the transient response of a chat request.
type Answer struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
	Model    string   `json:"model"`
}
