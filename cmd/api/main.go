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

	"callsync/internal/agency"
	"callsync/internal/audit"
	"callsync/internal/auth"
	"callsync/internal/calls"
	"callsync/internal/config"
	"callsync/internal/httpapi"
	"callsync/internal/ingest"
	"callsync/internal/lookup"
	"callsync/internal/report"
	"callsync/internal/reporting"
	"callsync/internal/storage"
	"callsync/internal/webhook"
	"callsync/pkg/logger"
	"callsync/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	var guard webhook.ReplayGuard
	if addr := cfg.RedisAddr(); addr != "" {
		var rdb *redis.Client
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: addr})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		guard = webhook.NewRedisReplayGuard(rdb, cfg.Webhook.ReplayWindow)
	} else {
		log.Warn("redis not configured, webhook token replay guard disabled")
	}

	files, err := storage.New(rootCtx, cfg.Storage, cfg.Webhook.MaxAttachmentBytes)
	if err != nil {
		log.Error("storage init failed", "err", err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.Ingest.ReportTimezone)
	if err != nil {
		log.Error("report timezone invalid", "err", err)
		os.Exit(1)
	}

	resolver, err := agency.NewResolver(agency.NewPostgresDirectory(db), cfg.Webhook.RoutePrefix)
	if err != nil {
		log.Error("agency resolver init failed", "err", err)
		os.Exit(1)
	}

	callStore := calls.NewPostgresStore(db)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	orchestrator := ingest.NewOrchestrator(ingest.Deps{
		Verifier:     webhook.NewVerifier(cfg.Webhook.SigningKey, cfg.Webhook.ReplayWindow, guard),
		Resolver:     resolver,
		Indexes:      lookup.NewBuilder(lookup.NewPostgresSource(db)),
		Parser:       report.NewParser(loc),
		Calls:        ingest.NewCallProcessor(callStore, cfg.Ingest.Provider),
		Metrics:      ingest.NewMetricsAggregator(callStore),
		Log:          auditSvc,
		Files:        files,
		MaxFileBytes: cfg.Webhook.MaxAttachmentBytes,
	})

	h := httpapi.Handlers{
		Ingest:       orchestrator,
		Logs:         auditSvc,
		Reports:      reporting.NewService(callStore),
		MaxBodyBytes: cfg.Webhook.MaxBodyBytes,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager), db)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "storage", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
