package chromem

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamitradey/OCP-RAG/internal/errs"
	"github.com/anamitradey/OCP-RAG/internal/models"
)

// fakeEmbedder derives a deterministic normalized vector from the text so
// tests run without any embedding backend.
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = fakeVector(t)
	}
	return out, nil
}

func (fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return fakeVector(text), nil
}

func fakeVector(text string) []float32 {
	v := make([]float32, 8)
	for i, b := range []byte(text) {
		v[i%8] += float32(b%31) + 1
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		v[0] = 1
		norm = 1
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("", "rag_docs", true, false, fakeEmbedder{})
	require.NoError(t, err)
	return s
}

func chunksFor(docID string, texts ...string) []models.Chunk {
	chunks := make([]models.Chunk, len(texts))
	for i, txt := range texts {
		chunks[i] = models.Chunk{
			ID:         docID + "_" + string(rune('0'+i)),
			DocumentID: docID,
			ChunkIndex: i,
			Text:       txt,
			CharCount:  len(txt),
			Source:     "test",
		}
	}
	return chunks
}

func TestUpsertAndQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.Upsert(ctx, chunksFor("doc1", "alpha beta", "gamma delta", "epsilon zeta"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, "rag_docs", res.Collection)
	assert.Equal(t, []string{"doc1_0", "doc1_1", "doc1_2"}, res.IDs)

	results, err := s.Query(ctx, "alpha beta", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc1_0", results[0].ID)
	assert.Equal(t, "alpha beta", results[0].Text)
	assert.Equal(t, "doc1", results[0].Metadata["document_id"])
}

func TestQueryClampsTopK(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, chunksFor("doc1", "one", "two", "three"))
	require.NoError(t, err)

	// never more than topK, never fewer than min(topK, total)
	results, err := s.Query(ctx, "one", 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = s.Query(ctx, "one", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestQueryInvalidTopK(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Query(context.Background(), "anything", 0)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = s.Query(context.Background(), "anything", -3)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestQueryEmptyStore(t *testing.T) {
	s := newTestStore(t)

	results, err := s.Query(context.Background(), "anything", 4)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUpsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chunks := chunksFor("doc1", "same text a", "same text b")
	_, err := s.Upsert(ctx, chunks)
	require.NoError(t, err)
	res, err := s.Upsert(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1_0", "doc1_1"}, res.IDs)

	// stored chunk count is not doubled
	results, err := s.Query(ctx, "same text a", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDeleteByDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, chunksFor("doc1", "keep me"))
	require.NoError(t, err)
	_, err = s.Upsert(ctx, chunksFor("doc2", "drop me", "drop me too"))
	require.NoError(t, err)

	deleted, err := s.DeleteByDocument(ctx, "doc2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"doc2_0", "doc2_1"}, deleted)

	results, err := s.Query(ctx, "drop me", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc1_0", results[0].ID)
}

func TestDeleteNonexistentDocument(t *testing.T) {
	s := newTestStore(t)

	deleted, err := s.DeleteByDocument(context.Background(), "no-such-doc")
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, chunksFor("doc1", "first life"))
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	results, err := s.Query(ctx, "first life", 4)
	require.NoError(t, err)
	assert.Empty(t, results)

	// the recreated collection accepts writes through the same handle
	_, err = s.Upsert(ctx, chunksFor("doc1", "second life"))
	require.NoError(t, err)
	results, err = s.Query(ctx, "second life", 4)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "second life", results[0].Text)
}

func TestCatalogSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := New(dir, "rag_docs", false, false, fakeEmbedder{})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, chunksFor("doc1", "persisted chunk"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := New(dir, "rag_docs", false, false, fakeEmbedder{})
	require.NoError(t, err)
	deleted, err := reopened.DeleteByDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1_0"}, deleted)
}
