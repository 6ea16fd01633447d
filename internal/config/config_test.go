package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "PORT", "MINIMAX_BASE_URL", "DOWNLOAD_DIR", "CHECKPOINT_DIR",
		"IMAGE_BATCH_SIZE", "VIDEO_BATCH_SIZE", "BATCH_DELAY_SECONDS",
		"POLL_INTERVAL_SECONDS", "IMAGE_MAX_WAIT_SECONDS", "VIDEO_MAX_WAIT_SECONDS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MinimaxBaseURL != "https://api.minimaxi.chat/v1" {
		t.Fatalf("base url = %q", cfg.MinimaxBaseURL)
	}
	if cfg.Pipeline.ImageBatchSize != 4 || cfg.Pipeline.VideoBatchSize != 2 {
		t.Fatalf("batch sizes = %d/%d", cfg.Pipeline.ImageBatchSize, cfg.Pipeline.VideoBatchSize)
	}
	if cfg.Pipeline.BatchDelay != 5*time.Second {
		t.Fatalf("batch delay = %s", cfg.Pipeline.BatchDelay)
	}
	if cfg.Pipeline.ImageMaxWait != 6*time.Minute || cfg.Pipeline.VideoMaxWait != 20*time.Minute {
		t.Fatalf("max waits = %s/%s", cfg.Pipeline.ImageMaxWait, cfg.Pipeline.VideoMaxWait)
	}
	if cfg.ImageModel != "image-01" || cfg.VideoModel != "I2V-01" {
		t.Fatalf("models = %q/%q", cfg.ImageModel, cfg.VideoModel)
	}
}

func TestLoadOverridesAndValidation(t *testing.T) {
	t.Setenv("IMAGE_BATCH_SIZE", "6")
	t.Setenv("CHECKPOINT_DIR", "/var/lib/petreel/checkpoints")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.ImageBatchSize != 6 {
		t.Fatalf("image batch size = %d", cfg.Pipeline.ImageBatchSize)
	}
	if cfg.CheckpointDir != "/var/lib/petreel/checkpoints" {
		t.Fatalf("checkpoint dir = %q", cfg.CheckpointDir)
	}

	t.Setenv("VIDEO_BATCH_SIZE", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("zero batch size should fail validation")
	}
}
