package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"petreel/internal/pipeline"
)

type imageStageRequest struct {
	Prompts          []string `json:"prompts"`
	ReferenceImage   string   `json:"reference_image,omitempty"`
	TolerateFailures bool     `json:"tolerate_failures,omitempty"`
}

type videoStageRequest struct {
	ImagePaths    []string `json:"image_paths"`
	MotionPrompts []string `json:"motion_prompts"`
}

type stageStartedResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Total     int    `json:"total_items"`
}

// StartImageStage kicks off image generation for a session. Re-invoking with
// a session id that already has a checkpoint resumes from the last committed
// item.
func (a *App) StartImageStage(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "id"))
	if sessionID == "" {
		a.jsonError(w, http.StatusBadRequest, "session id is required")
		return
	}
	var req imageStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Prompts) == 0 {
		a.jsonError(w, http.StatusBadRequest, "prompts are required")
		return
	}
	var reference []byte
	if req.ReferenceImage != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ReferenceImage)
		if err != nil {
			a.jsonError(w, http.StatusBadRequest, "reference_image must be base64")
			return
		}
		reference = decoded
	}

	ctx := background(r)
	go func() {
		_, err := a.coordinator.RunImageStage(ctx, pipeline.ImageStageRequest{
			SessionID:        sessionID,
			Prompts:          req.Prompts,
			Reference:        reference,
			TolerateFailures: req.TolerateFailures,
		})
		if err != nil {
			a.logger.Error().Err(err).Str("session_id", sessionID).Msg("image stage failed")
		}
	}()

	a.json(w, http.StatusAccepted, stageStartedResponse{
		SessionID: sessionID,
		Status:    "started",
		Total:     len(req.Prompts),
	})
}

// StartVideoStage kicks off video generation for a session from previously
// produced images.
func (a *App) StartVideoStage(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "id"))
	if sessionID == "" {
		a.jsonError(w, http.StatusBadRequest, "session id is required")
		return
	}
	var req videoStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ImagePaths) == 0 {
		a.jsonError(w, http.StatusBadRequest, "image_paths are required")
		return
	}
	if len(req.MotionPrompts) != len(req.ImagePaths) {
		a.jsonError(w, http.StatusBadRequest, "motion_prompts must pair 1:1 with image_paths")
		return
	}

	ctx := background(r)
	go func() {
		_, err := a.coordinator.RunVideoStage(ctx, pipeline.VideoStageRequest{
			SessionID:     sessionID,
			ImagePaths:    req.ImagePaths,
			MotionPrompts: req.MotionPrompts,
		})
		if err != nil {
			a.logger.Error().Err(err).Str("session_id", sessionID).Msg("video stage failed")
		}
	}()

	a.json(w, http.StatusAccepted, stageStartedResponse{
		SessionID: sessionID,
		Status:    "started",
		Total:     len(req.ImagePaths),
	})
}
