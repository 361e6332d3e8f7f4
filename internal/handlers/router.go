package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router mounts every endpoint on a chi router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", h.HandleHealthcheck)

	r.Post("/analyze", h.HandleAnalyze)
	r.Post("/visualize", h.HandleVisualize)

	r.Route("/session/{code}", func(r chi.Router) {
		r.Get("/", h.HandleGetSession)
		r.Patch("/", h.HandlePatchSession)
		r.Get("/events", h.HandleSessionEvents)
	})

	r.Get("/view/{code}", h.HandleView)
	return r
}
