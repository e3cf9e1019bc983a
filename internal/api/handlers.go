package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/anamitradey/OCP-RAG/internal/errs"
	"github.com/anamitradey/OCP-RAG/internal/ingest"
	"github.com/anamitradey/OCP-RAG/internal/models"
	"github.com/anamitradey/OCP-RAG/internal/parser"
	"github.com/anamitradey/OCP-RAG/internal/retrieval"
	"github.com/anamitradey/OCP-RAG/internal/store"
)

// AnswerComposer is what handlers need from the answer composer.
type AnswerComposer interface {
	Compose(ctx context.Context, question, contextBlob string, sources []string, model string, temperature *float64) (*models.Answer, error)
	DefaultModel() string
}

// Handler wires the pipeline services into HTTP endpoints.
type Handler struct {
	ingest    *ingest.Service
	assembler *retrieval.Assembler
	composer  AnswerComposer
	store     store.Store
	searchK   int
	chatK     int
	timeout   time.Duration
}

func NewHandler(ing *ingest.Service, assembler *retrieval.Assembler, composer AnswerComposer, st store.Store, searchK, chatK int, timeout time.Duration) *Handler {
	if searchK <= 0 {
		searchK = retrieval.DefaultSearchK
	}
	if chatK <= 0 {
		chatK = retrieval.DefaultChatK
	}
	return &Handler{
		ingest:    ing,
		assembler: assembler,
		composer:  composer,
		store:     st,
		searchK:   searchK,
		chatK:     chatK,
		timeout:   timeout,
	}
}

type ingestRequest struct {
	DocumentID        string            `json:"document_id"`
	Text              string            `json:"text"`
	Source            string            `json:"source"`
	Metadata          map[string]string `json:"metadata"`
	UseContentHashIDs bool              `json:"use_content_hash_ids"`
}

type ingestResponse struct {
	Ingested   int      `json:"ingested"`
	Collection string   `json:"collection"`
	IDs        []string `json:"ids"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k"`
}

type chatRequest struct {
	Query       string   `json:"query"`
	TopK        *int     `json:"top_k"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"model":  h.composer.DefaultModel(),
	})
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.ErrValidation)
		return
	}
	if req.Source == "" {
		req.Source = "manual"
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	res, err := h.ingest.Ingest(ctx, models.Document{
		ID:       req.DocumentID,
		Text:     req.Text,
		Source:   req.Source,
		Metadata: req.Metadata,
	}, req.UseContentHashIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{
		Ingested:   res.Count,
		Collection: res.Collection,
		IDs:        res.IDs,
	})
}

// IngestFile accepts a multipart upload, extracts its text and runs it
// through the same pipeline as a raw-text ingest.
func (h *Handler) IngestFile(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, errs.ErrValidation)
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		writeError(w, err)
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		writeError(w, err)
		return
	}
	tmp.Close()

	text, err := parser.ExtractText(tmp.Name())
	if err != nil {
		writeError(w, err)
		return
	}

	source := r.FormValue("source")
	if source == "" {
		source = header.Filename
	}
	useHash, _ := strconv.ParseBool(r.FormValue("use_content_hash_ids"))

	ctx, cancel := h.requestContext(r)
	defer cancel()

	res, err := h.ingest.Ingest(ctx, models.Document{
		ID:     r.FormValue("document_id"),
		Text:   text,
		Source: source,
	}, useHash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{
		Ingested:   res.Count,
		Collection: res.Collection,
		IDs:        res.IDs,
	})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.ErrValidation)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, fmt.Errorf("%w: query is empty", errs.ErrValidation))
		return
	}
	topK := h.searchK
	if req.TopK != nil {
		topK = *req.TopK
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	results, err := h.assembler.Retrieve(ctx, req.Query, topK)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   req.Query,
		"top_k":   topK,
		"results": results,
	})
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.ErrValidation)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, fmt.Errorf("%w: query is empty", errs.ErrValidation))
		return
	}
	topK := h.chatK
	if req.TopK != nil {
		topK = *req.TopK
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	results, err := h.assembler.Retrieve(ctx, req.Query, topK)
	if err != nil {
		writeError(w, err)
		return
	}
	contextBlob, sources := retrieval.BuildContext(results)

	answer, err := h.composer.Compose(ctx, req.Query, contextBlob, sources, req.Model, req.Temperature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["document_id"]

	ctx, cancel := h.requestContext(r)
	defer cancel()

	deleted, err := h.store.DeleteByDocument(ctx, documentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted_ids": deleted})
}

func (h *Handler) ResetCollection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.store.Reset(ctx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errs.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
