package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-academics-api/internal/migrations"
	"github.com/noah-isme/sma-academics-api/pkg/config"
	"github.com/noah-isme/sma-academics-api/pkg/database"
	"github.com/noah-isme/sma-academics-api/pkg/logger"
)

const usage = "usage: migrate up|down|status|reset"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(zap.NewStdLog(logr))
	if err := goose.SetDialect("postgres"); err != nil {
		logr.Fatal("set goose dialect", zap.Error(err))
	}

	ctx := context.Background()
	switch command {
	case "up":
		err = goose.UpContext(ctx, db.DB, ".")
	case "down":
		err = goose.DownContext(ctx, db.DB, ".")
	case "status":
		err = goose.StatusContext(ctx, db.DB, ".")
	case "reset":
		err = goose.ResetContext(ctx, db.DB, ".")
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logr.Fatal("migration failed", zap.String("command", command), zap.Error(err))
	}
	logr.Info("migration complete", zap.String("command", command))
}
