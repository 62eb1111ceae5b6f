package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UkralStul/chirp/internal/blob"
	"github.com/UkralStul/chirp/internal/chat"
	"github.com/UkralStul/chirp/internal/config"
	"github.com/UkralStul/chirp/internal/httpapi"
	"github.com/UkralStul/chirp/internal/relay"
	"github.com/UkralStul/chirp/internal/social"
	"github.com/UkralStul/chirp/internal/storage"
	"github.com/UkralStul/chirp/internal/storage/inmemory"
	"github.com/UkralStul/chirp/internal/storage/postgres"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	storageType := flag.String("storage", "in-memory", "Storage type (in-memory or postgres)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// .env необязателен: в проде переменные приходят из окружения
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStorage(*storageType, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	blobs, closeBlobs, err := openBlobs(cfg, logger)
	if err != nil {
		return err
	}
	defer closeBlobs()

	gemini, err := relay.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return fmt.Errorf("create gemini client: %w", err)
	}
	relaySvc := relay.NewService(gemini, logger)
	socialSvc := social.NewService(store, blobs, logger)

	if *storageType != "postgres" {
		// Заполним данными для локального запуска
		if err := fillWithMockData(ctx, socialSvc); err != nil {
			return fmt.Errorf("fill mock data: %w", err)
		}
		logger.Info("mock data filled")
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Relay:          relaySvc,
		Chat:           chat.NewService(store, relaySvc, logger),
		Social:         socialSvc,
		Users:          store,
		Blobs:          blobs,
		SearchDebounce: cfg.SearchDebounce,
	}, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	server := httpapi.NewServer(cfg.Addr(), router, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("server started", "port", cfg.Port, "storage", *storageType, "model", gemini.Model())

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}
	return nil
}

func openStorage(kind string, cfg *config.Config, logger *slog.Logger) (storage.Storage, func(), error) {
	switch kind {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL must be set for postgres storage")
		}
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info("connected to database")
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("close database", "error", err)
			}
		}, nil
	case "in-memory":
		return inmemory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage type %q", kind)
	}
}

func openBlobs(cfg *config.Config, logger *slog.Logger) (blob.Store, func(), error) {
	if cfg.BlobPath == "" {
		return blob.NewMemory(cfg.PublicURL), func() {}, nil
	}
	store, err := blob.NewSQLite(cfg.BlobPath, cfg.PublicURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open blob store: %w", err)
	}
	logger.Info("blob store opened", "path", cfg.BlobPath)
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Error("close blob store", "error", err)
		}
	}, nil
}
