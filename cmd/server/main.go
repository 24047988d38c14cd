package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tristeng/planning-poker/internal/config"
	"github.com/tristeng/planning-poker/internal/deck"
	"github.com/tristeng/planning-poker/internal/game"
	"github.com/tristeng/planning-poker/internal/transport/rest"
)

func main() {
	// .env is optional, real environments set variables directly
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	catalog := deck.Builtin()
	if cfg.DecksFile != "" {
		catalog, err = deck.LoadFile(cfg.DecksFile)
		if err != nil {
			slog.Error("failed to load deck file", "path", cfg.DecksFile, "error", err)
			os.Exit(1)
		}
		slog.Info("loaded deck definitions", "path", cfg.DecksFile, "decks", len(catalog.List()))
	}

	registry := game.NewRegistry(catalog)

	router := rest.NewRouter(&rest.Container{
		Registry:    registry,
		Catalog:     catalog,
		PublicURL:   cfg.PublicURL,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	slog.Info("server exited")
}
