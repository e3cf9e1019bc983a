package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamitradey/OCP-RAG/internal/chunker"
	"github.com/anamitradey/OCP-RAG/internal/errs"
	"github.com/anamitradey/OCP-RAG/internal/ingest"
	"github.com/anamitradey/OCP-RAG/internal/models"
	"github.com/anamitradey/OCP-RAG/internal/retrieval"
	"github.com/anamitradey/OCP-RAG/internal/store"
)

// memStore is a map-backed gateway standing in for the real backend.
type memStore struct {
	mu       sync.Mutex
	chunks   map[string]models.Chunk
	order    []string
	queryErr error
}

func newMemStore() *memStore {
	return &memStore{chunks: map[string]models.Chunk{}}
}

func (s *memStore) Upsert(_ context.Context, chunks []models.Chunk) (*store.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if _, ok := s.chunks[c.ID]; !ok {
			s.order = append(s.order, c.ID)
		}
		s.chunks[c.ID] = c
		ids = append(ids, c.ID)
	}
	return &store.UpsertResult{Count: len(chunks), Collection: "test", IDs: ids}, nil
}

func (s *memStore) Query(_ context.Context, _ string, topK int) ([]models.SearchResult, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", errs.ErrInvalidArgument, topK)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	results := []models.SearchResult{}
	for _, id := range s.order {
		if len(results) == topK {
			break
		}
		c := s.chunks[id]
		results = append(results, models.SearchResult{ID: c.ID, Text: c.Text, Metadata: c.Metadata()})
	}
	return results, nil
}

func (s *memStore) DeleteByDocument(_ context.Context, documentID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := []string{}
	kept := s.order[:0]
	for _, id := range s.order {
		if s.chunks[id].DocumentID == documentID {
			delete(s.chunks, id)
			deleted = append(deleted, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return deleted, nil
}

func (s *memStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = map[string]models.Chunk{}
	s.order = nil
	return nil
}

func (s *memStore) Collection() string { return "test" }
func (s *memStore) Close() error       { return nil }

type fakeComposer struct {
	err error
}

func (f *fakeComposer) Compose(_ context.Context, question, contextBlob string, sources []string, model string, _ *float64) (*models.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	if model == "" {
		model = f.DefaultModel()
	}
	if sources == nil {
		sources = []string{}
	}
	return &models.Answer{
		Question: question,
		Answer:   "answer about " + contextBlob,
		Sources:  sources,
		Model:    model,
	}, nil
}

func (f *fakeComposer) DefaultModel() string { return "test-model" }

func newTestServer(t *testing.T) (*httptest.Server, *memStore) {
	t.Helper()
	st := newMemStore()
	split, err := chunker.NewFixedWindow(100, 10)
	require.NoError(t, err)
	h := NewHandler(
		ingest.NewService(st, split),
		retrieval.NewAssembler(st),
		&fakeComposer{},
		st,
		4, 2, 0,
	)
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, st
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-model", body["model"])
}

func TestIngestAndSearch(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/ingest", map[string]any{
		"document_id": "doc1",
		"text":        strings.Repeat("g", 250),
		"metadata":    map[string]string{"lang": "en"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ing ingestResponse
	decodeBody(t, resp, &ing)
	assert.Equal(t, 3, ing.Ingested)
	assert.Equal(t, []string{"doc1_0", "doc1_1", "doc1_2"}, ing.IDs)

	resp = postJSON(t, srv.URL+"/search", map[string]any{"query": "anything", "top_k": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var search struct {
		Query   string                `json:"query"`
		TopK    int                   `json:"top_k"`
		Results []models.SearchResult `json:"results"`
	}
	decodeBody(t, resp, &search)
	assert.Equal(t, 2, search.TopK)
	require.Len(t, search.Results, 2)
	assert.Equal(t, "doc1_0", search.Results[0].ID)
	assert.Equal(t, "doc1", search.Results[0].Metadata["document_id"])
	assert.Equal(t, "en", search.Results[0].Metadata["lang"])
}

func TestIngestEmptyTextRejected(t *testing.T) {
	srv, st := newTestServer(t)

	resp := postJSON(t, srv.URL+"/ingest", map[string]any{"document_id": "doc1", "text": "   "})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, st.chunks)
}

func TestSearchZeroTopKRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/search", map[string]any{"query": "q", "top_k": 0})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchBlankQueryRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, query := range []string{"", "   ", "\n\t"} {
		resp := postJSON(t, srv.URL+"/search", map[string]any{"query": query})
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "query %q", query)
	}
}

func TestChatBlankQueryRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/chat", map[string]any{"query": "  "})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchStoreUnavailable(t *testing.T) {
	srv, st := newTestServer(t)
	st.queryErr = fmt.Errorf("%w: connection refused", errs.ErrStoreUnavailable)

	resp := postJSON(t, srv.URL+"/search", map[string]any{"query": "q"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSearchTimeout(t *testing.T) {
	srv, st := newTestServer(t)
	st.queryErr = fmt.Errorf("%w: embedding: deadline exceeded", errs.ErrTimeout)

	resp := postJSON(t, srv.URL+"/search", map[string]any{"query": "q"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
}

func TestSearchDefaultTopK(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/search", map[string]any{"query": "q"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var search struct {
		TopK    int                   `json:"top_k"`
		Results []models.SearchResult `json:"results"`
	}
	decodeBody(t, resp, &search)
	assert.Equal(t, 4, search.TopK)
	assert.Empty(t, search.Results)
}

func TestChatUsesRetrievedContext(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/ingest", map[string]any{"document_id": "doc1", "text": "the sky is blue"})
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/chat", map[string]any{"query": "what color is the sky?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var answer models.Answer
	decodeBody(t, resp, &answer)
	assert.Equal(t, "what color is the sky?", answer.Question)
	assert.Contains(t, answer.Answer, "the sky is blue")
	assert.Equal(t, []string{"doc1_0"}, answer.Sources)
	assert.Equal(t, "test-model", answer.Model)
}

func TestChatEmptyStore(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/chat", map[string]any{"query": "anything?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var answer models.Answer
	decodeBody(t, resp, &answer)
	assert.Empty(t, answer.Sources)
	assert.NotNil(t, answer.Sources)
}

func TestChatUpstreamFailure(t *testing.T) {
	st := newMemStore()
	split, err := chunker.NewFixedWindow(100, 10)
	require.NoError(t, err)
	h := NewHandler(
		ingest.NewService(st, split),
		retrieval.NewAssembler(st),
		&fakeComposer{err: fmt.Errorf("%w: quota exceeded", errs.ErrUpstream)},
		st,
		4, 2, 0,
	)
	srv := httptest.NewServer(NewRouter(h))
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/chat", map[string]any{"query": "q"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestDeleteDocument(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, doc := range []string{"doc1", "doc2"} {
		resp := postJSON(t, srv.URL+"/ingest", map[string]any{"document_id": doc, "text": "some text for " + doc})
		resp.Body.Close()
	}

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/docs/doc1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		DeletedIDs []string `json:"deleted_ids"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, []string{"doc1_0"}, body.DeletedIDs)
}

func TestDeleteUnknownDocument(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/docs/ghost", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		DeletedIDs []string `json:"deleted_ids"`
	}
	decodeBody(t, resp, &body)
	assert.Empty(t, body.DeletedIDs)
	assert.NotNil(t, body.DeletedIDs)
}

func TestResetCollection(t *testing.T) {
	srv, st := newTestServer(t)

	resp := postJSON(t, srv.URL+"/ingest", map[string]any{"document_id": "doc1", "text": "text"})
	resp.Body.Close()
	require.NotEmpty(t, st.chunks)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/collection/reset", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Empty(t, st.chunks)
}
