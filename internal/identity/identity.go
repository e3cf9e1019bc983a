package identity

import (
	"fmt"

	"github.com/google/uuid"
)

// Mode selects how chunk ids are derived.
type Mode int

const (
	// Sequential derives "{document_id}_{chunk_index}". Re-ingesting the
	// same document with the same boundaries overwrites the same ids, so
	// upserts are idempotent.
	Sequential Mode = iota
	// ContentHash derives "{document_id}_{uuid5(chunk_text)}". Identical
	// text maps to the same id within a document; any character change
	// yields a new id. Stale ids are not garbage collected here; the store
	// removes them via explicit delete.
	ContentHash
)

// ChunkID derives a stable, unique chunk id. Pure given its inputs.
func ChunkID(mode Mode, documentID string, chunkIndex int, chunkText string) string {
	if mode == ContentHash {
		h := uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkText))
		return fmt.Sprintf("%s_%s", documentID, h)
	}
	return fmt.Sprintf("%s_%d", documentID, chunkIndex)
}

// NewDocumentID generates a random document id for callers that omit one.
func NewDocumentID() string {
	return uuid.NewString()
}
