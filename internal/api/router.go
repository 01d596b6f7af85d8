package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// An empty token disables Bearer token auth.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(token))

	// Index.
	r.Get("/files", h.ListFiles)
	r.Get("/projects/recent", h.RecentProjects)
	r.Post("/projects/recent", h.TouchProject)

	// Editing sessions.
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Post("/", h.OpenSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)

			r.Post("/update", h.UpdateField)
			r.Post("/duplicate", h.DuplicateField)
			r.Post("/delete", h.DeleteField)
			r.Post("/move", h.MoveField)

			r.Post("/undo", h.Undo)
			r.Post("/redo", h.Redo)
			r.Get("/snapshots", h.ListSnapshots)
			r.Post("/snapshots", h.CreateSnapshot)
			r.Post("/snapshots/{index}/restore", h.RestoreSnapshot)

			r.Post("/submit", h.Submit)
		})
	})

	r.Get("/notices", h.Notices)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
