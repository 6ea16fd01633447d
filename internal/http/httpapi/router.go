package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"petreel/internal/http/handlers"
	"petreel/internal/infra"
	"petreel/internal/middleware"
)

// NewRouter assembles the inbound surface: stage triggers plus checkpoint
// inspection. Everything else about the product lives outside this service.
func NewRouter(app *handlers.App, logger infra.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(logger))

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/sessions/{id}", func(r chi.Router) {
		r.Post("/images", app.StartImageStage)
		r.Post("/videos", app.StartVideoStage)
	})

	r.Route("/v1/checkpoints", func(r chi.Router) {
		r.Get("/", app.ListCheckpoints)
		r.Delete("/", app.ClearAllCheckpoints)
		r.Get("/{id}", app.GetCheckpoint)
		r.Delete("/{id}", app.ClearCheckpoint)
	})

	return r
}
