package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter builds the HTTP routing table for the service.
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()
	r.Use(Recover, RequestLogger)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/ingest", h.Ingest).Methods(http.MethodPost)
	r.HandleFunc("/ingest/file", h.IngestFile).Methods(http.MethodPost)
	r.HandleFunc("/search", h.Search).Methods(http.MethodPost)
	r.HandleFunc("/chat", h.Chat).Methods(http.MethodPost)
	r.HandleFunc("/docs/{document_id}", h.DeleteDocument).Methods(http.MethodDelete)
	r.HandleFunc("/collection/reset", h.ResetCollection).Methods(http.MethodDelete)

	return r
}
