package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"petreel/internal/checkpoint"
	"petreel/internal/config"
	"petreel/internal/http/handlers"
	"petreel/internal/http/httpapi"
	"petreel/internal/infra"
	"petreel/internal/minimax"
	"petreel/internal/pipeline"
	"petreel/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	store, err := checkpoint.NewStore(cfg.CheckpointDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure checkpoint store")
	}
	files, err := storage.NewFileStore(cfg.DownloadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure artifact storage")
	}

	client, err := minimax.NewClient(minimax.Options{
		APIKey:       cfg.MinimaxAPIKey,
		GroupID:      cfg.MinimaxGroupID,
		BaseURL:      cfg.MinimaxBaseURL,
		ImageModel:   cfg.ImageModel,
		VideoModel:   cfg.VideoModel,
		HTTPClient:   &http.Client{Timeout: 150 * time.Second},
		Logger:       &logger,
		PollInterval: cfg.Pipeline.PollInterval,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure minimax client")
	}
	if !client.HasCredentials() {
		logger.Warn().Msg("MINIMAX_API_KEY not set; generation requests will fail")
	}

	coordinator := pipeline.NewCoordinator(client, store, files, cfg.Pipeline, logger)
	app := handlers.NewApp(coordinator, logger)
	router := httpapi.NewRouter(app, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
