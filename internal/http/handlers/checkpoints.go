package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"petreel/internal/pipeline"
)

// ListCheckpoints returns every stored session summary, newest-first, so an
// operator can see what is resumable.
func (a *App) ListCheckpoints(w http.ResponseWriter, r *http.Request) {
	summaries, err := a.coordinator.List()
	if err != nil {
		a.jsonError(w, http.StatusInternalServerError, "failed to list checkpoints")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"checkpoints": summaries})
}

// GetCheckpoint returns the progress summary for one session.
func (a *App) GetCheckpoint(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "id"))
	summary, err := a.coordinator.Status(sessionID)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoCheckpoint) {
			a.jsonError(w, http.StatusNotFound, "no checkpoint for session")
			return
		}
		a.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.json(w, http.StatusOK, summary)
}

// ClearCheckpoint deletes one session's checkpoint.
func (a *App) ClearCheckpoint(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "id"))
	if err := a.coordinator.Clear(sessionID); err != nil {
		a.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.json(w, http.StatusOK, map[string]string{"session_id": sessionID, "status": "cleared"})
}

// ClearAllCheckpoints deletes every stored checkpoint.
func (a *App) ClearAllCheckpoints(w http.ResponseWriter, r *http.Request) {
	removed, err := a.coordinator.ClearAll()
	if err != nil {
		a.jsonError(w, http.StatusInternalServerError, "failed to clear checkpoints")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"cleared": removed})
}
