// Package retrieval issues queries against the store gateway and folds
// the results into an LLM context window with provenance.
package retrieval

import (
	"context"
	"strings"

	"github.com/anamitradey/OCP-RAG/internal/models"
	"github.com/anamitradey/OCP-RAG/internal/store"
)

const (
	// DefaultSearchK is the default result count for plain search.
	DefaultSearchK = 4
	// DefaultChatK keeps the chat context minimal and cheap.
	DefaultChatK = 1
)

type Assembler struct {
	store store.Store
}

func NewAssembler(st store.Store) *Assembler {
	return &Assembler{store: st}
}

// Retrieve passes through to the store's query.
func (a *Assembler) Retrieve(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	return a.store.Query(ctx, query, k)
}

// BuildContext concatenates result texts in rank order, separated by a
// blank line, and returns the ordered source chunk ids. Zero results give
// an empty context; the answer composer still has to produce an answer.
func BuildContext(results []models.SearchResult) (string, []string) {
	texts := make([]string, len(results))
	sources := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
		sources[i] = r.ID
	}
	return strings.Join(texts, "\n\n"), sources
}
