package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/DamionHane/FHEReporting/internal/config"
	"github.com/DamionHane/FHEReporting/internal/workflow"
)

// sweepActor is the audit log actor recorded for scheduled refunds.
const sweepActor = "scheduler"

// Scheduler handles periodic tasks
type Scheduler struct {
	svc      *workflow.Service
	config   *config.SchedulerConfig
	stopChan chan bool
}

// NewScheduler creates a new scheduler
func NewScheduler(svc *workflow.Service, cfg *config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		svc:      svc,
		config:   cfg,
		stopChan: make(chan bool),
	}
}

// Start starts all scheduled tasks
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler",
		"refund_sweep_enabled", s.config.EnableRefundSweep,
		"refund_sweep_interval", s.config.RefundSweepInterval)

	if s.config.EnableRefundSweep {
		go s.scheduleIntervalTask(s.config.RefundSweepInterval, "refund_sweep", s.sweepRefunds)
	}

	slog.Info("Scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	slog.Info("Stopping scheduler")
	close(s.stopChan)
}

// scheduleIntervalTask runs a task at regular intervals
func (s *Scheduler) scheduleIntervalTask(interval time.Duration, taskName string, task func()) {
	slog.Info("Starting interval task", "task", taskName, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	slog.Info("Running interval task", "task", taskName)
	task()

	for {
		select {
		case <-ticker.C:
			slog.Info("Running interval task", "task", taskName)
			task()
		case <-s.stopChan:
			return
		}
	}
}

// sweepRefunds claims all refunds whose deadlines have elapsed. Reporters can
// claim manually at any time; the sweep guarantees recovery even when they
// never come back.
func (s *Scheduler) sweepRefunds() {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	claimed, err := s.svc.SweepExpiredRefunds(ctx, sweepActor)
	if err != nil {
		slog.Error("Refund sweep failed", "error", err)
		return
	}

	slog.Info("Refund sweep completed", "refunds_issued", claimed)
}
