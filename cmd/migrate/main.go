package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"callsync/internal/config"
	"callsync/migrations"
	"callsync/pkg/logger"
	"callsync/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	cmd := flag.String("cmd", "up", "goose command: up, down, status, version")
	flag.Parse()

	cfg, err := config.LoadDatabase()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.App.Env, cfg.App.LogLevel)

	ctx := context.Background()
	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{MaxOpenConns: 2})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Error("goose dialect", "err", err)
		os.Exit(1)
	}
	if err := goose.RunContext(ctx, *cmd, db, "."); err != nil {
		log.Error("migration failed", "cmd", *cmd, "err", err)
		os.Exit(1)
	}
	log.Info("migrations applied", "cmd", *cmd)
}
