// Package store defines the vector store gateway contract. Backends own
// vectorization of stored chunks and incoming queries through the injected
// embedding adapter; everything behind the contract is opaque to callers.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/anamitradey/OCP-RAG/internal/errs"
	"github.com/anamitradey/OCP-RAG/internal/models"
)

// UpsertResult reports what an upsert wrote.
type UpsertResult struct {
	Count      int
	Collection string
	IDs        []string
}

// Store is the upsert/query/delete service backing the pipeline.
//
// Upsert vectorizes chunk text and writes records keyed by chunk id; an
// existing id is replaced atomically from the caller's point of view.
// Query vectorizes the text and returns up to topK nearest records,
// best-first; topK <= 0 fails with errs.ErrInvalidArgument. DeleteByDocument
// is idempotent and returns the removed ids (empty when nothing matched).
// Reset destroys and recreates the underlying store; it is irreversible.
// Backend I/O failures wrap errs.ErrStoreUnavailable; the gateway never
// retries on its own.
type Store interface {
	Upsert(ctx context.Context, chunks []models.Chunk) (*UpsertResult, error)
	Query(ctx context.Context, text string, topK int) ([]models.SearchResult, error)
	DeleteByDocument(ctx context.Context, documentID string) ([]string, error)
	Reset(ctx context.Context) error
	Collection() string
	Close() error
}

// EmbedError classifies an embedding backend failure: a hit deadline is
// retriable, anything else is an upstream fault.
func EmbedError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: embedding: %v", errs.ErrTimeout, err)
	}
	return fmt.Errorf("%w: embedding: %v", errs.ErrUpstream, err)
}
