package chat

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers chat routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/chat", func(r chi.Router) {
		r.Post("/", h.Chat)
		r.Post("/new", h.NewSession)
		r.Get("/sessions", h.ListSessions)
		r.Get("/history/{session_id}", h.History)

		r.Route("/session/{session_id}", func(r chi.Router) {
			r.Get("/", h.SessionInfo)
			r.Delete("/", h.ClearSession)
		})
	})
}
