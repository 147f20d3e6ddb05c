package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agenthands/reelgraph/internal/app"
	"github.com/agenthands/reelgraph/internal/logging"
	"github.com/agenthands/reelgraph/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logging.Info().Msg("No .env file found, using defaults")
	}

	cfg, err := app.LoadConfig("")
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to start")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.NewServer(a.Recommender).SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := a.Close(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("failed to close resources")
	}
}
