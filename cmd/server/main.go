package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"draw-guess/internal/config"
	"draw-guess/internal/db"
	"draw-guess/internal/game"
	"draw-guess/internal/logging"
	"draw-guess/internal/oracle"
	"draw-guess/internal/server"
	"draw-guess/internal/storage"

	"go.uber.org/zap"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "draw-guess")
	if err != nil {
		log.Fatalf("logger setup failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	opts := game.Options{
		Logger:         logger,
		RoomIDAttempts: cfg.RoomIDAttempts,
		JudgeTimeout:   time.Duration(cfg.JudgeTimeoutSeconds) * time.Second,
		UploadTimeout:  time.Duration(cfg.UploadTimeoutSeconds) * time.Second,
		ReconnectGrace: time.Duration(cfg.ReconnectGraceSeconds) * time.Second,
	}

	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL, db.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		if err := db.Migrate(conn, logger); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		opts.Recorder = db.NewRecorder(conn, logger)
	} else {
		logger.Info("DATABASE_URL not set; match history is not recorded")
	}

	images, reader, closeImages, err := openImages(cfg, logger)
	if err != nil {
		return err
	}
	defer closeImages()
	opts.Images = images

	if cfg.OracleAPIKey != "" {
		opts.Oracle = oracle.New(oracle.Config{
			BaseURL: cfg.OracleBaseURL,
			APIKey:  cfg.OracleAPIKey,
			Model:   cfg.OracleModel,
			Prompt:  cfg.OraclePrompt,
		}, logger)
	} else {
		logger.Info("ORACLE_API_KEY not set; drawers judge every round by hand")
	}

	svc := game.NewService(opts)
	srv := server.New(svc, reader, cfg, logger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", httpServer.Addr), zap.String("storage", cfg.StorageBackend))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	svc.Close()
	return nil
}

// openImages picks the drawing store. The reader is nil for backends that
// host images elsewhere.
func openImages(cfg config.Config, logger *zap.Logger) (storage.Store, storage.Reader, func(), error) {
	ttl := time.Duration(cfg.ImageTTLSeconds) * time.Second
	switch cfg.StorageBackend {
	case "", "memory":
		mem := storage.NewMemory(ttl)
		return mem, mem, func() {}, nil
	case "redis":
		store := storage.NewRedis(storage.NewRedisClient(storage.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), ttl)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		return store, store, func() { _ = store.Close() }, nil
	case "github":
		store, err := storage.NewGitHub(storage.GitHubConfig{
			Token:      cfg.GitHubToken,
			Repo:       cfg.GitHubRepo,
			Branch:     cfg.GitHubBranch,
			Folder:     cfg.GitHubFolder,
			CDNBaseURL: cfg.GitHubCDNBaseURL,
		}, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, func() {}, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
}
