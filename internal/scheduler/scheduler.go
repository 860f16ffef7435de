// Package scheduler manages the two background goroutines that keep the
// ledger moving without operator input:
//  1. recoverySweepLoop – flags abandoned pools as stuck on an interval.
//  2. tickerLoop        – pushes open-pool fill snapshots to WS clients.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/openfund/pooling/internal/config"
	"github.com/openfund/pooling/internal/domain"
	"github.com/openfund/pooling/internal/repository"
	"github.com/openfund/pooling/internal/service"
)

// ──────────────────────────────────────────────────────────────────────────────
// WsHub interface — minimally required from the Hub
// ──────────────────────────────────────────────────────────────────────────────

// WsHub defines the broadcast operation the Scheduler needs from the
// WebSocket hub. Declared here so the scheduler package does not import the
// ws/hub.go implementation and cause a circular dependency.
type WsHub interface {
	BroadcastPoolTicker(pools []*domain.PoolSummary)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler runs the background loops. Call Start(ctx) once from main();
// cancel the context to shut it down gracefully.
type Scheduler struct {
	recoverySvc *service.RecoveryService
	poolRepo    *repository.PoolRepository
	hub         WsHub
	cfg         *config.Config
	logger      *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	recoverySvc *service.RecoveryService,
	poolRepo *repository.PoolRepository,
	hub WsHub,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		recoverySvc: recoverySvc,
		poolRepo:    poolRepo,
		hub:         hub,
		cfg:         cfg,
		logger:      logger,
	}
}

// Start launches the background goroutines. It returns immediately; all
// loops run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.recoverySweepLoop(ctx)
	go s.tickerLoop(ctx)
	s.logger.Info("scheduler started",
		"sweep_interval", s.cfg.Ledger.SweepInterval,
		"summary_interval", s.cfg.Ledger.SummaryInterval,
	)
}

// ──────────────────────────────────────────────────────────────────────────────
// recoverySweepLoop
// ──────────────────────────────────────────────────────────────────────────────

// recoverySweepLoop runs the inactivity check across all candidate pools on
// each tick. The sweep itself isolates per-pool failures.
func (s *Scheduler) recoverySweepLoop(ctx context.Context) {
	defer s.recoverAndLog("recoverySweepLoop")

	ticker := time.NewTicker(s.cfg.Ledger.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("recoverySweepLoop: shutting down")
			return
		case <-ticker.C:
			s.recoverySvc.SweepInactive(ctx)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// tickerLoop
// ──────────────────────────────────────────────────────────────────────────────

// tickerLoop broadcasts a fill/countdown snapshot of every open pool to all
// connected WS clients on each tick.
func (s *Scheduler) tickerLoop(ctx context.Context) {
	defer s.recoverAndLog("tickerLoop")

	ticker := time.NewTicker(s.cfg.Ledger.SummaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("tickerLoop: shutting down")
			return
		case <-ticker.C:
			s.broadcastOpenPools(ctx)
		}
	}
}

// broadcastOpenPools is the inner body of tickerLoop, extracted so that the
// defer/recover in the loop catches panics correctly.
func (s *Scheduler) broadcastOpenPools(ctx context.Context) {
	if s.hub == nil {
		return
	}
	pools, err := s.poolRepo.ListOpen(ctx)
	if err != nil {
		s.logger.Warn("tickerLoop: list open pools failed", "err", err)
		return
	}
	if len(pools) == 0 {
		return
	}

	summaries := make([]*domain.PoolSummary, 0, len(pools))
	for _, p := range pools {
		summary := p.ToSummary()
		summaries = append(summaries, &summary)
	}
	s.hub.BroadcastPoolTicker(summaries)
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
