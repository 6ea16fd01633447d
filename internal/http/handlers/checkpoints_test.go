package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"petreel/internal/checkpoint"
	"petreel/internal/config"
	"petreel/internal/minimax"
	"petreel/internal/pipeline"
	"petreel/internal/storage"
)

func newTestApp(t *testing.T) (*App, *checkpoint.Store, http.Handler) {
	t.Helper()
	store, err := checkpoint.NewStore(filepath.Join(t.TempDir(), "checkpoints"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	// No API key: any background stage run fails fast without touching the
	// network.
	client, err := minimax.NewClient(minimax.Options{PollInterval: time.Millisecond})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	coordinator := pipeline.NewCoordinator(client, store, files, config.Pipeline{
		ImageBatchSize: 1,
		VideoBatchSize: 1,
	}, zerolog.Nop())
	app := NewApp(coordinator, zerolog.Nop())

	r := chi.NewRouter()
	r.Post("/v1/sessions/{id}/images", app.StartImageStage)
	r.Post("/v1/sessions/{id}/videos", app.StartVideoStage)
	r.Get("/v1/checkpoints", app.ListCheckpoints)
	r.Delete("/v1/checkpoints", app.ClearAllCheckpoints)
	r.Get("/v1/checkpoints/{id}", app.GetCheckpoint)
	r.Delete("/v1/checkpoints/{id}", app.ClearCheckpoint)
	return app, store, r
}

func TestGetCheckpointNotFound(t *testing.T) {
	_, _, router := newTestApp(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/checkpoints/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetCheckpointSummary(t *testing.T) {
	_, store, router := newTestApp(t)

	cp := checkpoint.New("sess1", checkpoint.PhaseImageGeneration, []string{"a", "b", "c"})
	cp.RecordResult(0, "image_0.jpg")
	if err := store.Save(cp); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/checkpoints/sess1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var summary checkpoint.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.SessionID != "sess1" || summary.CompletedItems != 1 || summary.TotalItems != 3 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestListAndClearCheckpoints(t *testing.T) {
	_, store, router := newTestApp(t)
	for _, id := range []string{"s1", "s2"} {
		if err := store.Save(checkpoint.New(id, checkpoint.PhaseVideoGeneration, []string{"x"})); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/checkpoints", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed struct {
		Checkpoints []checkpoint.Summary `json:"checkpoints"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed.Checkpoints) != 2 {
		t.Fatalf("listed %d checkpoints", len(listed.Checkpoints))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/checkpoints/s1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if cp, _ := store.Load("s1"); cp != nil {
		t.Fatalf("s1 should be cleared")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/checkpoints", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("clear-all status = %d", rec.Code)
	}
	summaries, err := store.List()
	if err != nil || len(summaries) != 0 {
		t.Fatalf("remaining = %v / %v", summaries, err)
	}
}

func TestStartImageStageValidation(t *testing.T) {
	_, _, router := newTestApp(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/s1/images", strings.NewReader(`{"prompts":[]}`))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/sessions/s1/images",
		strings.NewReader(`{"prompts":["a"],"reference_image":"not base64!!"}`))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStartImageStageAccepted(t *testing.T) {
	_, _, router := newTestApp(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/s1/images",
		strings.NewReader(`{"prompts":["a dog","a cat"]}`))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	var resp stageStartedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID != "s1" || resp.Total != 2 || resp.Status != "started" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestStartVideoStageValidation(t *testing.T) {
	_, _, router := newTestApp(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/s1/videos",
		strings.NewReader(`{"image_paths":["a","b"],"motion_prompts":["only one"]}`))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
