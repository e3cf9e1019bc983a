// Package chromem backs the store gateway with a chromem-go database,
// either persistent on disk or in memory.
package chromem

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"github.com/anamitradey/OCP-RAG/internal/embedding"
	"github.com/anamitradey/OCP-RAG/internal/errs"
	"github.com/anamitradey/OCP-RAG/internal/models"
	"github.com/anamitradey/OCP-RAG/internal/store"
)

// Store wraps one chromem collection plus a document catalog. chromem does
// not enumerate records by metadata, so the catalog tracks which chunk ids
// belong to each document; it is persisted next to the collection.
//
// All collection access goes through the shared handle under s.mu, so a
// Reset swap is visible to every caller.
type Store struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embedding.Embedder
	name       string
	catalog    *catalog
}

// New opens (or creates) the collection. dbPath is ignored when inMemory
// is set.
func New(dbPath, collectionName string, inMemory, compress bool, embedder embedding.Embedder) (*Store, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("%w: create database: %v", errs.ErrStoreUnavailable, err)
		}
	}

	s := &Store{
		db:       db,
		embedder: embedder,
		name:     collectionName,
	}
	s.catalog, err = loadCatalog(dbPath, collectionName, inMemory)
	if err != nil {
		return nil, fmt.Errorf("%w: load catalog: %v", errs.ErrStoreUnavailable, err)
	}
	if s.collection, err = s.openCollection(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) openCollection() (*chromem.Collection, error) {
	c, err := s.db.GetOrCreateCollection(s.name, nil, s.queryEmbeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("%w: create/get collection: %v", errs.ErrStoreUnavailable, err)
	}
	return c, nil
}

func (s *Store) queryEmbeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

func (s *Store) Collection() string {
	return s.name
}

// Upsert vectorizes the chunk texts in one batch, then commits. Embedding
// runs outside the write lock; only the commit and the catalog update hold
// it, so resets and deletes cannot interleave with a partial write.
func (s *Store) Upsert(ctx context.Context, chunks []models.Chunk) (*store.UpsertResult, error) {
	if len(chunks) == 0 {
		return &store.UpsertResult{Collection: s.name, IDs: []string{}}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, store.EmbedError(err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: embedding returned %d vectors for %d texts", errs.ErrUpstream, len(vectors), len(chunks))
	}

	docs := make([]chromem.Document, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		docs[i] = chromem.Document{
			ID:        c.ID,
			Content:   c.Text,
			Metadata:  c.Metadata(),
			Embedding: vectors[i],
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("%w: add documents: %v", errs.ErrStoreUnavailable, err)
	}
	for _, c := range chunks {
		s.catalog.add(c.DocumentID, c.ID)
	}
	if err := s.catalog.save(); err != nil {
		return nil, fmt.Errorf("%w: save catalog: %v", errs.ErrStoreUnavailable, err)
	}

	log.Debug().Int("chunks", len(docs)).Str("collection", s.name).Msg("Upserted chunks")
	return &store.UpsertResult{Count: len(ids), Collection: s.name, IDs: ids}, nil
}

// Query returns up to topK nearest chunks, best-first. topK is clamped to
// the collection size, so min(topK, total) results always come back.
func (s *Store) Query(ctx context.Context, text string, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", errs.ErrInvalidArgument, topK)
	}

	vec, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, store.EmbedError(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	total := s.collection.Count()
	if total == 0 {
		return []models.SearchResult{}, nil
	}
	if topK > total {
		topK = total
	}
	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vec,
		NResults:       topK,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", errs.ErrStoreUnavailable, err)
	}

	out := make([]models.SearchResult, len(results))
	for i, r := range results {
		out[i] = models.SearchResult{
			ID:         r.ID,
			Text:       r.Content,
			Metadata:   r.Metadata,
			Similarity: r.Similarity,
		}
	}
	return out, nil
}

// DeleteByDocument removes every chunk of the document. Deleting an
// unknown document returns an empty set, not an error.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.catalog.get(documentID)
	if len(ids) == 0 {
		return []string{}, nil
	}
	if err := s.collection.Delete(ctx, map[string]string{"document_id": documentID}, nil); err != nil {
		return nil, fmt.Errorf("%w: delete: %v", errs.ErrStoreUnavailable, err)
	}
	s.catalog.remove(documentID)
	if err := s.catalog.save(); err != nil {
		return nil, fmt.Errorf("%w: save catalog: %v", errs.ErrStoreUnavailable, err)
	}
	log.Info().Str("document_id", documentID).Int("chunks", len(ids)).Msg("Deleted document chunks")
	return ids, nil
}

// Reset destroys and recreates the collection. Irreversible.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("%w: drop collection: %v", errs.ErrStoreUnavailable, err)
	}
	c, err := s.openCollection()
	if err != nil {
		return err
	}
	// publish the fresh handle; every caller dereferences s.collection
	// under s.mu, so nobody keeps using the dropped one
	s.collection = c
	s.catalog.clear()
	if err := s.catalog.save(); err != nil {
		return fmt.Errorf("%w: save catalog: %v", errs.ErrStoreUnavailable, err)
	}
	log.Info().Str("collection", s.name).Msg("Collection reset")
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.save()
}
