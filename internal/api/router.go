package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/modeltree/internal/treeservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *treeservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/root", h.Root)
	r.Get("/snapshot", h.Snapshot)

	r.Route("/nodes", func(r chi.Router) {
		r.Get("/", h.GetNode)
		r.Get("/children", h.Children)
		r.Get("/algorithm", h.Algorithm)
		r.Get("/refcount", h.RefCount)

		r.Post("/rename", h.Rename)
		r.Post("/add", h.AddNode)
		r.Post("/delete", h.DeleteNode)
		r.Post("/toggle", h.ToggleKind)
		r.Put("/algorithm", h.UpdateAlgorithm)
	})

	r.Post("/log", h.Log)
	r.Get("/journal", h.Journal)
	r.Post("/reload", h.Reload)

	r.Get("/graph/mermaid", h.Mermaid)
	r.Get("/outline", h.Outline)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
