package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"petreel/internal/checkpoint"
	"petreel/internal/config"
	"petreel/internal/minimax"
	"petreel/internal/storage"
)

// fakeAPI emulates the remote generation service end to end: image
// submissions answer inline, video submissions hand out task ids that resolve
// through the query and file endpoints.
type fakeAPI struct {
	mu         sync.Mutex
	videoTasks int
}

func (f *fakeAPI) RoundTrip(req *http.Request) (*http.Response, error) {
	switch {
	case strings.HasSuffix(req.URL.Path, "/image_generation") && req.Method == http.MethodPost:
		return jsonResponse(map[string]any{
			"data": map[string]any{"image_urls": []any{"https://cdn.test/img.png"}},
		}), nil
	case strings.HasSuffix(req.URL.Path, "/video_generation") && req.Method == http.MethodPost:
		f.mu.Lock()
		f.videoTasks++
		id := fmt.Sprintf("vt-%d", f.videoTasks)
		f.mu.Unlock()
		return jsonResponse(map[string]any{"task_id": id}), nil
	case strings.Contains(req.URL.Path, "/query/video_generation"):
		return jsonResponse(map[string]any{
			"status": "finished",
			"data":   map[string]any{"file_id": "file-1"},
		}), nil
	case strings.Contains(req.URL.Path, "/files/"):
		return jsonResponse(map[string]any{"download_url": "https://cdn.test/clip.mp4"}), nil
	case req.URL.Host == "cdn.test" && strings.HasSuffix(req.URL.Path, ".png"):
		return binaryResponse("image/png", []byte{0x89, 'P', 'N', 'G'}), nil
	case req.URL.Host == "cdn.test" && strings.HasSuffix(req.URL.Path, ".mp4"):
		return binaryResponse("video/mp4", []byte{0x00, 0x01, 0x02}), nil
	}
	return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader("not found"))}, nil
}

func jsonResponse(payload any) *http.Response {
	body, _ := json.Marshal(payload)
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}

func binaryResponse(contentType string, data []byte) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{contentType}},
		Body:       io.NopCloser(bytes.NewReader(data)),
	}
}

func newTestCoordinator(t *testing.T) (*Coordinator, *checkpoint.Store, *storage.FileStore) {
	t.Helper()
	store, err := checkpoint.NewStore(filepath.Join(t.TempDir(), "checkpoints"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	client, err := minimax.NewClient(minimax.Options{
		APIKey:       "test-key",
		HTTPClient:   &http.Client{Transport: &fakeAPI{}},
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	cfg := config.Pipeline{
		ImageBatchSize: 3,
		VideoBatchSize: 2,
		PollInterval:   time.Millisecond,
		ImageMaxWait:   time.Second,
		VideoMaxWait:   time.Second,
		ImageCount:     1,
		AspectRatio:    "9:16",
	}
	return NewCoordinator(client, store, files, cfg, zerolog.Nop()), store, files
}

func TestEndToEndSession(t *testing.T) {
	coordinator, store, _ := newTestCoordinator(t)

	sessionID := "20240601_090000_e2e"
	prompts := []string{"dog running", "dog sleeping", "dog eating"}
	motion := []string{"pan left", "zoom in", "orbit"}

	videos, err := coordinator.Run(context.Background(), ImageStageRequest{
		SessionID: sessionID,
		Prompts:   prompts,
		Reference: []byte{0xff, 0xd8},
	}, motion)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(videos) != 3 {
		t.Fatalf("videos = %v", videos)
	}
	for i, path := range videos {
		if path == "" {
			t.Fatalf("videos[%d] is empty", i)
		}
		want := fmt.Sprintf("video_%d.mp4", i)
		if filepath.Base(path) != want {
			t.Fatalf("videos[%d] = %q, want basename %q", i, path, want)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("video artifact missing: %v", err)
		}
	}

	cp, err := store.Load(sessionID)
	if err != nil || cp == nil {
		t.Fatalf("load checkpoint: %v / %v", cp, err)
	}
	if cp.Phase != checkpoint.PhaseVideoGeneration || !cp.Completed {
		t.Fatalf("checkpoint = %+v", cp)
	}
}

func TestImageStageWritesPositionalArtifacts(t *testing.T) {
	coordinator, store, files := newTestCoordinator(t)

	sessionID := "20240601_090100_img"
	images, err := coordinator.RunImageStage(context.Background(), ImageStageRequest{
		SessionID: sessionID,
		Prompts:   []string{"p0", "p1"},
		Reference: []byte{0xff, 0xd8},
	})
	if err != nil {
		t.Fatalf("image stage: %v", err)
	}
	for i, path := range images {
		want := fmt.Sprintf("image_%d.png", i)
		if filepath.Base(path) != want {
			t.Fatalf("images[%d] = %q, want basename %q", i, path, want)
		}
	}

	refPath, err := files.Path(storage.ReferenceKey(sessionID))
	if err != nil {
		t.Fatalf("reference path: %v", err)
	}
	if _, err := os.Stat(refPath); err != nil {
		t.Fatalf("reference image not persisted: %v", err)
	}

	summary, err := coordinator.Status(sessionID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if summary.CompletedItems != 2 || !summary.Completed {
		t.Fatalf("summary = %+v", summary)
	}
	if _, err := store.Load(sessionID); err != nil {
		t.Fatalf("checkpoint must survive success for auditing: %v", err)
	}
}

func TestVideoStageSkipsEmptyImagePaths(t *testing.T) {
	coordinator, _, files := newTestCoordinator(t)

	sessionID := "20240601_090200_vid"
	framePath, err := files.Write(context.Background(), "images/"+sessionID+"/image_0.png", []byte{0x89, 'P'})
	if err != nil {
		t.Fatalf("seed frame: %v", err)
	}

	videos, err := coordinator.RunVideoStage(context.Background(), VideoStageRequest{
		SessionID:     sessionID,
		ImagePaths:    []string{framePath, ""},
		MotionPrompts: []string{"pan", "zoom"},
	})
	if err != nil {
		t.Fatalf("video stage: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("videos = %v", videos)
	}
	if videos[0] == "" {
		t.Fatalf("videos[0] should be produced")
	}
	if videos[1] != "" {
		t.Fatalf("videos[1] = %q, want empty placeholder", videos[1])
	}
}

func TestVideoStageRejectsMismatchedPrompts(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)
	_, err := coordinator.RunVideoStage(context.Background(), VideoStageRequest{
		SessionID:     "s",
		ImagePaths:    []string{"a", "b"},
		MotionPrompts: []string{"only one"},
	})
	if err == nil {
		t.Fatalf("expected length-mismatch error")
	}
}

func TestStatusWithoutCheckpoint(t *testing.T) {
	coordinator, _, _ := newTestCoordinator(t)
	if _, err := coordinator.Status("nope"); err != ErrNoCheckpoint {
		t.Fatalf("err = %v, want ErrNoCheckpoint", err)
	}
}
