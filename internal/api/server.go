package api

import (
	"net/http"
	"time"

	chatapi "github.com/erkion1127/ds-ai2/internal/api/chat"
	"github.com/erkion1127/ds-ai2/internal/api/docs"
	ingestapi "github.com/erkion1127/ds-ai2/internal/api/ingest"
	"github.com/erkion1127/ds-ai2/internal/api/middleware"
	queryapi "github.com/erkion1127/ds-ai2/internal/api/query"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Handlers groups the route handlers mounted under /api/v1
type Handlers struct {
	Ingest *ingestapi.Handler
	Query  *queryapi.Handler
	Chat   *chatapi.Handler
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(h Handlers, requestTimeout time.Duration, allowedOrigins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	docs.RegisterRoutes(r)

	r.Route("/api/v1", func(r chi.Router) {
		ingestapi.RegisterRoutes(r, h.Ingest)
		queryapi.RegisterRoutes(r, h.Query)
		chatapi.RegisterRoutes(r, h.Chat)
	})

	return r
}
