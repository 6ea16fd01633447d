package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"petreel/internal/infra"
	"petreel/internal/pipeline"
)

// App bundles the handlers' collaborators. Stage runs are long (minutes to
// hours), so trigger endpoints return 202 immediately and execute in the
// background; progress is observed through the checkpoint endpoints.
type App struct {
	coordinator *pipeline.Coordinator
	logger      infra.Logger
}

// NewApp constructs the handler container.
func NewApp(coordinator *pipeline.Coordinator, logger infra.Logger) *App {
	return &App{
		coordinator: coordinator,
		logger:      infra.Component(logger, "http"),
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) jsonError(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}

// background detaches stage execution from the request lifetime while keeping
// request-scoped values (the request id) for log correlation.
func background(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
