package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	MinimaxAPIKey  string
	MinimaxGroupID string
	MinimaxBaseURL string
	ImageModel     string
	VideoModel     string

	DownloadDir   string
	CheckpointDir string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	Pipeline Pipeline
}

// Pipeline collects the scheduling knobs that were hardcoded inline in early
// versions of the pipeline. The remote API enforces undocumented rate limits,
// so batch sizes stay small and batches are separated by a delay.
type Pipeline struct {
	ImageBatchSize int
	VideoBatchSize int
	BatchDelay     time.Duration
	PollInterval   time.Duration
	ImageMaxWait   time.Duration
	VideoMaxWait   time.Duration
	ImageCount     int
	AspectRatio    string
}

// Load reads configuration from the environment, applying defaults where a
// variable is unset. A .env file is honored when present but never required.
func Load() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	downloadDir := getEnv("DOWNLOAD_DIR", "./downloads")
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		MinimaxAPIKey:    os.Getenv("MINIMAX_API_KEY"),
		MinimaxGroupID:   os.Getenv("MINIMAX_GROUP_ID"),
		MinimaxBaseURL:   getEnv("MINIMAX_BASE_URL", "https://api.minimaxi.chat/v1"),
		ImageModel:       getEnv("MINIMAX_IMAGE_MODEL", "image-01"),
		VideoModel:       getEnv("MINIMAX_VIDEO_MODEL", "I2V-01"),
		DownloadDir:      downloadDir,
		CheckpointDir:    getEnv("CHECKPOINT_DIR", filepath.Join(downloadDir, "checkpoints")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		Pipeline: Pipeline{
			ImageBatchSize: getEnvInt("IMAGE_BATCH_SIZE", 4),
			VideoBatchSize: getEnvInt("VIDEO_BATCH_SIZE", 2),
			BatchDelay:     time.Second * time.Duration(getEnvInt("BATCH_DELAY_SECONDS", 5)),
			PollInterval:   time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 3)),
			ImageMaxWait:   time.Second * time.Duration(getEnvInt("IMAGE_MAX_WAIT_SECONDS", 360)),
			VideoMaxWait:   time.Second * time.Duration(getEnvInt("VIDEO_MAX_WAIT_SECONDS", 1200)),
			ImageCount:     getEnvInt("IMAGE_COUNT", 1),
			AspectRatio:    getEnv("IMAGE_ASPECT_RATIO", "9:16"),
		},
	}

	if cfg.Pipeline.ImageBatchSize < 1 || cfg.Pipeline.VideoBatchSize < 1 {
		return nil, fmt.Errorf("config: batch sizes must be at least 1")
	}
	if cfg.Pipeline.PollInterval <= 0 {
		return nil, fmt.Errorf("config: poll interval must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
