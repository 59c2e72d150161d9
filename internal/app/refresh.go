package service

import (
	"context"
	"time"

	"github.com/okian/stuffscore/internal/domain/model"
	"github.com/okian/stuffscore/pkg/logger"
	"github.com/okian/stuffscore/pkg/metrics"
)

// ScheduleRefresh queues a background recompute of population. It
// reports false without error when a refresh for the population is
// already waiting.
func (s *Service) ScheduleRefresh(ctx context.Context, population, reason string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if _, err := s.roster(population); err != nil {
		return false, err
	}
	if s.queue == nil {
		return false, ErrNoQueue
	}

	if s.pending != nil && s.pending.SeenAndRecord(ctx, population) {
		metrics.RecordRefreshRejected("duplicate")
		return false, nil
	}
	job := model.RefreshJob{Population: population, Reason: reason, EnqueuedAt: time.Now()}
	if !s.queue.Enqueue(ctx, job) {
		if s.pending != nil {
			s.pending.Unrecord(ctx, population)
		}
		return false, ErrQueueFull
	}
	s.scheduled.Add(1)
	return true, nil
}

// WarmAll queues a refresh of every configured population and returns
// how many were queued.
func (s *Service) WarmAll(ctx context.Context, reason string) int {
	queued := 0
	for _, pop := range s.Populations() {
		ok, err := s.ScheduleRefresh(ctx, pop, reason)
		if err != nil {
			s.logger.Warn(ctx, "failed to schedule refresh",
				logger.String("population", pop),
				logger.String("reason", reason),
				logger.Error(err))
			continue
		}
		if ok {
			queued++
		}
	}
	return queued
}

// RunScheduler warms every population once, then again every interval
// until ctx is done. A non-positive interval warms only once.
func (s *Service) RunScheduler(ctx context.Context, interval time.Duration) {
	s.WarmAll(ctx, model.RefreshStartup)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := s.WarmAll(ctx, model.RefreshScheduled)
			s.logger.Debug(ctx, "scheduled leaderboard refresh", logger.Int("queued", n))
		}
	}
}
