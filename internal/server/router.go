package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/recall/internal/api"
	"github.com/cloo-solutions/recall/internal/api/handlers"
	"github.com/cloo-solutions/recall/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator        middleware.AuthValidator
	RetrievalHandler     *handlers.RetrievalHandler
	KnowledgebaseHandler *handlers.KnowledgebaseHandler
	AuthHandler          *handlers.AuthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Post("/retrieval", cfg.RetrievalHandler.Retrieve)
		r.Post("/citations", cfg.RetrievalHandler.InsertCitations)
		r.Post("/sql", cfg.RetrievalHandler.ExecuteSQL)
		r.Get("/chunks", cfg.RetrievalHandler.ListChunks)

		r.Route("/knowledgebases", func(r chi.Router) {
			r.Post("/", cfg.KnowledgebaseHandler.Create)
			r.Get("/", cfg.KnowledgebaseHandler.List)
			r.Get("/{id}", cfg.KnowledgebaseHandler.Get)
			r.Delete("/{id}", cfg.KnowledgebaseHandler.Delete)
		})
	})

	r.Post("/tenants", cfg.AuthHandler.CreateTenant)
	r.Post("/apikeys", cfg.AuthHandler.CreateAPIKey)

	return r
}
