// Package main is the entry point for the capital pooling ledger API server.
// It wires together all services and starts the HTTP server alongside the
// WebSocket hub and background scheduler.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/openfund/pooling/internal/api"
	"github.com/openfund/pooling/internal/config"
	"github.com/openfund/pooling/internal/repository"
	"github.com/openfund/pooling/internal/scheduler"
	"github.com/openfund/pooling/internal/service"
	"github.com/openfund/pooling/internal/ws"
)

func main() {
	// ── 1. Config + logger ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting pooling ledger server", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Database ───────────────────────────────────────────────────────────
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err = db.Ping(); err != nil {
		logger.Error("database ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// ── 3. Migrations ─────────────────────────────────────────────────────────
	if err = runMigrations(db, "migrations"); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// ── 4. Repositories ───────────────────────────────────────────────────────
	poolRepo := repository.NewPoolRepository(db)
	contribRepo := repository.NewContributionRepository(db)
	walletRepo := repository.NewWalletRepository(db)

	// ── 5. Services ───────────────────────────────────────────────────────────
	poolSvc := service.NewPoolService(db, poolRepo, contribRepo, cfg)
	contribSvc := service.NewContributionService(db, poolRepo, contribRepo, walletRepo, cfg)
	distribSvc := service.NewDistributionService(db, poolRepo, contribRepo, cfg, logger)
	claimSvc := service.NewClaimService(db, poolRepo, contribRepo, walletRepo, logger)
	recoverySvc := service.NewRecoveryService(db, poolRepo, cfg, logger)

	// ── 6. WebSocket hub ──────────────────────────────────────────────────────
	hub := ws.NewHub([]byte(cfg.JWT.Secret), cfg.Server.AllowedOrigins, logger)

	poolSvc.SetBroadcaster(hub)
	contribSvc.SetBroadcaster(hub)
	distribSvc.SetBroadcaster(hub)
	claimSvc.SetBroadcaster(hub)
	recoverySvc.SetBroadcaster(hub)

	// ── 7. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 8. Start WS hub ───────────────────────────────────────────────────────
	go hub.Run()
	logger.Info("websocket hub started")

	// ── 9. Scheduler ──────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(recoverySvc, poolRepo, hub, cfg, logger)
	sched.Start(ctx)

	// ── 10. HTTP router ───────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		PoolSvc:     poolSvc,
		ContribSvc:  contribSvc,
		DistribSvc:  distribSvc,
		ClaimSvc:    claimSvc,
		RecoverySvc: recoverySvc,
		WalletRepo:  walletRepo,
		Hub:         hub,
		Cfg:         cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 11. Start server ──────────────────────────────────────────────────────
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop() // trigger graceful shutdown
		}
	}()

	// ── 12. Graceful shutdown ─────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}

	db.Close()
	logger.Info("server stopped cleanly")
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially. Idempotent: SQL files should use IF NOT EXISTS / ON CONFLICT.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
