// Package httpapi serves the items API as JSON:API documents over chi.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/and161185/playqueue/internal/auth"
	"github.com/and161185/playqueue/internal/limiter"
	"github.com/and161185/playqueue/internal/service"
)

// ContentType is the media type of every response body.
const ContentType = "application/vnd.api+json"

// ResourceType is the JSON:API type of queue items.
const ResourceType = "items"

type Server struct {
	items    service.ItemService
	verifier *auth.Verifier
	limiter  limiter.Limiter
	log      *zap.Logger
}

func NewServer(items service.ItemService, v *auth.Verifier, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{items: items, verifier: v, log: log}
}

// WithLimiter throttles peers that keep presenting bad tokens.
func (s *Server) WithLimiter(l limiter.Limiter) *Server {
	s.limiter = l
	return s
}

// Router returns the HTTP routes. Everything except /health needs a bearer token.
func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}
	r.Use(s.recoverer)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/items", s.handleListItems)
		r.Post("/items", s.handleCreateItem)
		r.Post("/items/resort", s.handleResort)
		r.Get("/items/{id}", s.handleGetItem)
		r.Patch("/items/{id}", s.handleUpdateItem)
		r.Delete("/items/{id}", s.handleDeleteItem)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "playqueue",
	})
}
