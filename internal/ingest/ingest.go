// Package ingest runs the document side of the pipeline: validation,
// chunking, identity assignment and the store upsert.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/anamitradey/OCP-RAG/internal/chunker"
	"github.com/anamitradey/OCP-RAG/internal/errs"
	"github.com/anamitradey/OCP-RAG/internal/identity"
	"github.com/anamitradey/OCP-RAG/internal/models"
	"github.com/anamitradey/OCP-RAG/internal/store"
)

type Service struct {
	store    store.Store
	splitter chunker.Splitter
}

func NewService(st store.Store, splitter chunker.Splitter) *Service {
	return &Service{store: st, splitter: splitter}
}

// Ingest validates, chunks and upserts one document. A blank text is
// rejected before any chunking occurs. With content-hash ids a re-ingest
// of changed text accumulates; callers delete the document first if they
// want replacement semantics.
func (s *Service) Ingest(ctx context.Context, doc models.Document, useContentHashIDs bool) (*store.UpsertResult, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: text payload is empty", errs.ErrValidation)
	}
	if doc.ID == "" {
		doc.ID = identity.NewDocumentID()
	}

	texts, err := s.splitter.Split(doc.Text)
	if err != nil {
		return nil, err
	}

	mode := identity.Sequential
	if useContentHashIDs {
		mode = identity.ContentHash
	}
	chunks := make([]models.Chunk, len(texts))
	for i, txt := range texts {
		chunks[i] = models.Chunk{
			ID:         identity.ChunkID(mode, doc.ID, i, txt),
			DocumentID: doc.ID,
			ChunkIndex: i,
			Text:       txt,
			CharCount:  utf8.RuneCountInString(txt),
			Source:     doc.Source,
			Extra:      doc.Metadata,
		}
	}

	res, err := s.store.Upsert(ctx, chunks)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("document_id", doc.ID).
		Int("chunks", res.Count).
		Bool("content_hash_ids", useContentHashIDs).
		Msg("Ingested document")
	return res, nil
}
