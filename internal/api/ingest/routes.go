package ingest

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers ingestion routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/ingest", func(r chi.Router) {
		r.Post("/upload", h.Upload)
		r.Post("/file", h.IngestFile)
		r.Delete("/{document_id}", h.DeleteDocument)
	})
}
