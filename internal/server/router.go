package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helicon-hq/helicon/internal/api"
	"github.com/helicon-hq/helicon/internal/api/handlers"
	"github.com/helicon-hq/helicon/internal/api/middleware"
	"github.com/helicon-hq/helicon/internal/domain"
)

// HealthPinger reports whether the database is reachable. *pgxpool.Pool
// satisfies it.
type HealthPinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	SourcesHandler *handlers.SourcesHandler
	SearchHandler  *handlers.SearchHandler
	MemoryHandler  *handlers.MemoryHandler
	ContextHandler *handlers.ContextHandler
	Pinger         HealthPinger
	MetricsHandler http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.Pinger.Ping(ctx); err != nil {
				api.Error(w, http.StatusServiceUnavailable, domain.ErrCodeInternalError, "database unreachable")
				return
			}
		}
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.TenantContext)

		r.Route("/knowledge", func(r chi.Router) {
			r.Route("/sources", func(r chi.Router) {
				r.Post("/", cfg.SourcesHandler.Create)
				r.Get("/", cfg.SourcesHandler.List)
				r.Post("/refresh-all", cfg.SourcesHandler.RefreshAll)
				r.Get("/{sourceID}", cfg.SourcesHandler.Get)
				r.Delete("/{sourceID}", cfg.SourcesHandler.Delete)
				r.Get("/{sourceID}/chunks", cfg.SourcesHandler.ListChunks)
				r.Post("/{sourceID}/refresh", cfg.SourcesHandler.Refresh)
			})
			r.Post("/search", cfg.SearchHandler.Search)
		})

		r.Route("/memories", func(r chi.Router) {
			r.Use(middleware.RequireWorkspace)
			r.Post("/", cfg.MemoryHandler.Store)
			r.Post("/search", cfg.MemoryHandler.Search)
		})

		r.With(middleware.RequireWorkspace).Post("/context/query", cfg.ContextHandler.Query)
	})

	return r
}
