package scheduler

import (
	"context"
	"log/slog"
	"time"

	"content_pipeline/internal/domain"
)

// Ingester runs a single-source ingest cycle.
type Ingester interface {
	Ingest(ctx context.Context, sourceID int64) (*domain.IngestResult, error)
}

// Dispatcher delivers a scheduled distribution task that has come due.
type Dispatcher interface {
	DispatchScheduled(ctx context.Context, taskID int64) (*domain.DistributionTask, error)
}

// DueSourceLister returns sources whose poll cadence has elapsed.
type DueSourceLister interface {
	ListDue(ctx context.Context, now time.Time) ([]domain.Source, error)
}

// DueTaskLister returns scheduled tasks whose send time has arrived.
type DueTaskLister interface {
	ListDueScheduled(ctx context.Context, now time.Time) ([]domain.DistributionTask, error)
}

type Scheduler struct {
	sources    DueSourceLister
	tasks      DueTaskLister
	ingester   Ingester
	dispatcher Dispatcher
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(
	sources DueSourceLister,
	tasks DueTaskLister,
	ingester Ingester,
	dispatcher Dispatcher,
	interval time.Duration,
	runTimeout time.Duration,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		sources:    sources,
		tasks:      tasks,
		ingester:   ingester,
		dispatcher: dispatcher,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.run(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	s.pollDueSources(runCtx)
	s.dispatchDueTasks(runCtx)
}

func (s *Scheduler) pollDueSources(ctx context.Context) {
	sources, err := s.sources.ListDue(ctx, time.Now())
	if err != nil {
		s.logger.Error("list due sources failed", "error", err)
		return
	}

	for _, src := range sources {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.ingester.Ingest(ctx, src.ID); err != nil {
			s.logger.Error("scheduled ingest failed", "source_id", src.ID, "error", err)
		}
	}
}

func (s *Scheduler) dispatchDueTasks(ctx context.Context) {
	tasks, err := s.tasks.ListDueScheduled(ctx, time.Now())
	if err != nil {
		s.logger.Error("list due tasks failed", "error", err)
		return
	}

	for _, task := range tasks {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.dispatcher.DispatchScheduled(ctx, task.ID); err != nil {
			s.logger.Error("scheduled dispatch failed", "task_id", task.ID, "error", err)
		}
	}
}
