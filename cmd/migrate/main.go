package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"draw-guess/internal/config"
	"draw-guess/internal/logging"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

func main() {
	source := flag.String("source", "file://db/migrations", "migration source URL")
	down := flag.Bool("down", false, "roll back every migration instead of applying them")
	create := flag.String("create", "", "write an empty up/down pair with this name and exit")
	dir := flag.String("dir", filepath.Join("db", "migrations"), "directory for -create")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "draw-guess-migrate")
	if err != nil {
		log.Fatalf("logger setup failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if *create != "" {
		upPath, downPath, err := createMigration(*dir, *create, time.Now().UTC())
		if err != nil {
			logger.Fatal("create migration failed", zap.Error(err))
		}
		logger.Info("migration created", zap.String("up", upPath), zap.String("down", downPath))
		return
	}

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}
	m, err := migrate.New(*source, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("migration setup failed", zap.Error(err))
	}
	defer func() { _, _ = m.Close() }()

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("database migration failed", zap.Error(err))
	}
	version, dirty, _ := m.Version()
	logger.Info("database migrations applied",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Bool("down", *down),
	)
}

// createMigration writes a timestamped pair of empty migration files.
func createMigration(dir, name string, now time.Time) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", errors.New("migration name is required")
	}
	if strings.ContainsAny(name, " /\\") {
		return "", "", fmt.Errorf("migration name %q must not contain spaces or slashes", name)
	}
	base := now.Format("20060102150405") + "_" + name
	upPath := filepath.Join(dir, base+".up.sql")
	downPath := filepath.Join(dir, base+".down.sql")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create migrations dir: %w", err)
	}
	for path, body := range map[string]string{upPath: "-- up migration\n", downPath: "-- down migration\n"} {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			return "", "", err
		}
		_, err = file.WriteString(body)
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return "", "", err
		}
	}
	return upPath, downPath, nil
}
