// Package scheduler runs the bot's periodic background jobs on cron
// schedules: account balance snapshots and matched-market refreshes. The
// jobs are side work; the trading engine never waits on them.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/cross-book/internal/exchange"
	"github.com/yourusername/cross-book/internal/logger"
	"github.com/yourusername/cross-book/internal/metrics"
	"github.com/yourusername/cross-book/internal/models"
	"github.com/yourusername/cross-book/internal/repository"
)

// Scheduler manages the bot's scheduled background jobs.
type Scheduler struct {
	cron            *cron.Cron
	logger          *logrus.Entry
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler.
func NewScheduler(log *logrus.Entry) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		logger:          log.WithField("component", "scheduler"),
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleBalanceSnapshots polls both exchanges' account balances on the
// given cron schedule, persisting each reading and exporting it as gauges.
func (s *Scheduler) ScheduleBalanceSnapshots(
	cronExpression string,
	services map[models.ExchangeID]exchange.OrderService,
	balances repository.BalanceRepository,
	audit *logger.AuditLogger,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		for ex, svc := range services {
			b, err := svc.Balance(ctx)
			if err != nil {
				s.logger.WithError(err).WithField("exchange", ex.String()).Warn("balance poll failed")
				continue
			}
			metrics.UpdateBalance(ex.String(), b.Available, b.Exposure)
			if audit != nil {
				audit.LogBalanceSnapshot(b)
			}
			if balances != nil {
				if err := balances.Insert(ctx, b); err != nil {
					s.logger.WithError(err).WithField("exchange", ex.String()).Warn("balance persist failed")
				}
			}
		}
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("schedule", cronExpression).Info("scheduled balance snapshots")

	return nil
}

// RefreshFunc reloads the matched-market mapping from an external source.
type RefreshFunc func(ctx context.Context) error

// ScheduleMarketRefresh runs the matched-market refresh on the given cron
// schedule.
func (s *Scheduler) ScheduleMarketRefresh(cronExpression string, refresh RefreshFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := refresh(ctx); err != nil {
			s.logger.WithError(err).Warn("market refresh failed")
		}
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("schedule", cronExpression).Info("scheduled market refresh")

	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("scheduler started")

	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs up to the
// graceful timeout.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(s.gracefulTimeout):
		s.logger.Warn("scheduler stop timed out")
	}
	s.isRunning = false
	s.logger.Info("scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run.
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries.
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}
