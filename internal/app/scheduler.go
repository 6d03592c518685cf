package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type elapsedCompleter interface {
	CompleteElapsed(ctx context.Context, now time.Time) (int, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	bookings elapsedCompleter
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// NewScheduler создаёт планировщик, завершающий прошедшие занятия раз в interval
func NewScheduler(bookings elapsedCompleter, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		bookings: bookings,
		interval: interval,
		now:      time.Now,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))

	go s.runCompletionTask(ctx)
}

// Stop останавливает фоновые задачи и дожидается их завершения
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
	<-s.done
}

// runCompletionTask периодически завершает занятия, время которых прошло
func (s *Scheduler) runCompletionTask(ctx context.Context) {
	defer close(s.done)

	// Первый запуск сразу при старте
	s.completeElapsed(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.completeElapsed(ctx)
		case <-s.stopChan:
			s.logger.Info("Completion task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Completion task cancelled")
			return
		}
	}
}

func (s *Scheduler) completeElapsed(ctx context.Context) {
	completed, err := s.bookings.CompleteElapsed(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to complete elapsed sessions", zap.Int("completed", completed), zap.Error(err))
		return
	}

	if completed > 0 {
		s.logger.Info("Elapsed sessions completed", zap.Int("completed", completed))
	}
}
