package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialIDs(t *testing.T) {
	assert.Equal(t, "doc1_0", ChunkID(Sequential, "doc1", 0, "whatever"))
	assert.Equal(t, "doc1_2", ChunkID(Sequential, "doc1", 2, "whatever"))
	// same inputs, same id
	assert.Equal(t,
		ChunkID(Sequential, "doc1", 1, "a"),
		ChunkID(Sequential, "doc1", 1, "b"))
}

func TestContentHashIDs(t *testing.T) {
	a := ChunkID(ContentHash, "doc1", 0, "same text")
	b := ChunkID(ContentHash, "doc1", 7, "same text")
	// identical text anywhere in the document yields the same id
	assert.Equal(t, a, b)

	// a different document sharing the text gets a different id
	other := ChunkID(ContentHash, "doc2", 0, "same text")
	assert.NotEqual(t, a, other)

	// any character change yields a different id
	changed := ChunkID(ContentHash, "doc1", 0, "same text!")
	assert.NotEqual(t, a, changed)
}

func TestContentHashMatchesUUID5(t *testing.T) {
	want := "doc1_" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("chunk body")).String()
	assert.Equal(t, want, ChunkID(ContentHash, "doc1", 0, "chunk body"))
}

func TestNewDocumentID(t *testing.T) {
	id := NewDocumentID()
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewDocumentID())
}
