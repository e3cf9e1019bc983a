// Package pg backs the store gateway with postgres + pgvector through bun.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"unicode/utf8"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/anamitradey/OCP-RAG/internal/config"
	"github.com/anamitradey/OCP-RAG/internal/embedding"
	"github.com/anamitradey/OCP-RAG/internal/errs"
	"github.com/anamitradey/OCP-RAG/internal/models"
	"github.com/anamitradey/OCP-RAG/internal/store"
)

// vectorSize must match the embedding model's output dimension and the
// vector(...) column type below.
const vectorSize = 768

type chunkRow struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            string            `bun:"id,pk"`
	DocumentID    string            `bun:"document_id,notnull"`
	ChunkIndex    int               `bun:"chunk_index,notnull"`
	Source        string            `bun:"source"`
	Content       string            `bun:"content,notnull"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	Embedding     []float32         `bun:"embedding,notnull,type:vector(768)"`
}

// newChunkRow stores the same merged metadata mapping the chromem backend
// keeps, so results carry identical metadata regardless of backend.
func newChunkRow(c models.Chunk, vec []float32) chunkRow {
	return chunkRow{
		ID:         c.ID,
		DocumentID: c.DocumentID,
		ChunkIndex: c.ChunkIndex,
		Source:     c.Source,
		Content:    c.Text,
		Metadata:   c.Metadata(),
		Embedding:  vec,
	}
}

func (r chunkRow) searchResult() models.SearchResult {
	meta := r.Metadata
	if meta == nil {
		// rows written before the metadata column existed
		meta = map[string]string{
			"document_id": r.DocumentID,
			"chunk_index": strconv.Itoa(r.ChunkIndex),
			"source":      r.Source,
			"chars":       strconv.Itoa(utf8.RuneCountInString(r.Content)),
		}
	}
	return models.SearchResult{
		ID:       r.ID,
		Text:     r.Content,
		Metadata: meta,
	}
}

// Store implements the gateway on a single chunks table. Upserts key on
// the chunk id (ON CONFLICT DO UPDATE), so sequential-id re-ingestion
// replaces rows in place.
type Store struct {
	mu       sync.RWMutex
	db       *bun.DB
	embedder embedding.Embedder
	name     string
}

// New connects and ensures the table exists.
func New(ctx context.Context, cfg *config.PostgresConfig, collection string, embedder embedding.Embedder) (*Store, error) {
	dsn := cfg.URL + "?sslmode=disable"
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Key)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	s := &Store{db: db, embedder: embedder, name: collection}
	if err := s.createTable(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) createTable(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*chunkRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: create table: %v", errs.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) Collection() string {
	return s.name
}

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

	rows := make([]chunkRow, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		rows[i] = newChunkRow(c, vectors[i])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// one multi-row insert, chunk_index order preserved
	_, err = s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("document_id = EXCLUDED.document_id").
		Set("chunk_index = EXCLUDED.chunk_index").
		Set("source = EXCLUDED.source").
		Set("content = EXCLUDED.content").
		Set("metadata = EXCLUDED.metadata").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: upsert: %v", errs.ErrStoreUnavailable, err)
	}
	return &store.UpsertResult{Count: len(ids), Collection: s.name, IDs: ids}, nil
}

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
	var rows []chunkRow
	err = s.db.NewSelect().
		Model(&rows).
		Column("id", "document_id", "chunk_index", "source", "content", "metadata").
		OrderExpr("embedding <-> ?", vec).
		Limit(topK).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", errs.ErrStoreUnavailable, err)
	}

	out := make([]models.SearchResult, len(rows))
	for i, r := range rows {
		out[i] = r.searchResult()
	}
	return out, nil
}

func (s *Store) DeleteByDocument(ctx context.Context, documentID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	_, err := s.db.NewDelete().
		Model((*chunkRow)(nil)).
		Where("document_id = ?", documentID).
		Returning("id").
		Exec(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("%w: delete: %v", errs.ErrStoreUnavailable, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.NewDropTable().Model((*chunkRow)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: drop table: %v", errs.ErrStoreUnavailable, err)
	}
	return s.createTable(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
