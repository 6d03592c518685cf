package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/tutor_scheduler/internal/metrics"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/schedule"
)

// AvailabilityService управляет недельным расписанием аккаунта
type AvailabilityService struct {
	state   *State
	locker  *KeyedLocker
	journal changeRecorder
	logger  *zap.Logger
}

func NewAvailabilityService(state *State, locker *KeyedLocker, journal changeRecorder, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		state:   state,
		locker:  locker,
		journal: journal,
		logger:  logger,
	}
}

// Declare вливает предложенные интервалы (Free/Busy) в расписание дня
func (s *AvailabilityService) Declare(ctx context.Context, accountID uuid.UUID, weekday model.Weekday, proposed []model.Interval) (model.DaySchedule, error) {
	return s.mutateDay(ctx, "declare", accountID, weekday, func(current model.DaySchedule) (model.DaySchedule, error) {
		return schedule.Merge(current, proposed)
	})
}

// Withdraw снова блокирует часы [start, end); занятые часы трогать нельзя
func (s *AvailabilityService) Withdraw(ctx context.Context, accountID uuid.UUID, weekday model.Weekday, start, end int) (model.DaySchedule, error) {
	return s.mutateDay(ctx, "withdraw", accountID, weekday, func(current model.DaySchedule) (model.DaySchedule, error) {
		return schedule.Withdraw(current, start, end)
	})
}

func (s *AvailabilityService) mutateDay(
	_ context.Context,
	operation string,
	accountID uuid.UUID,
	weekday model.Weekday,
	merge func(current model.DaySchedule) (model.DaySchedule, error),
) (model.DaySchedule, error) {
	if !weekday.Valid() {
		return nil, fmt.Errorf("%w: invalid weekday %d", model.ErrValidation, int(weekday))
	}

	unlock := s.locker.Lock(dayKey(accountID, weekday))
	defer unlock()

	current, ok := s.state.Day(accountID, weekday)
	if !ok {
		return nil, fmt.Errorf("%w: account %s", model.ErrNotFound, accountID)
	}

	merged, err := merge(current)
	if err != nil {
		if errors.Is(err, model.ErrScheduleConflict) {
			metrics.IncScheduleConflict(operation)
		}
		return nil, fmt.Errorf("%s %s: %w", operation, weekday, err)
	}

	committed, err := s.state.CommitDay(accountID, weekday, merged)
	if err != nil {
		return nil, fmt.Errorf("commit day: %w", err)
	}
	s.journal.Append(DayChange(committed))

	s.logger.Info("Day schedule updated",
		zap.String("operation", operation),
		zap.String("account_id", accountID.String()),
		zap.Int("weekday", int(weekday)),
		zap.Int64("version", committed.Version),
		zap.Int("intervals", len(merged)),
	)

	return merged, nil
}

// FreeSlots возвращает свободные для записи часы аккаунта на конкретную дату
func (s *AvailabilityService) FreeSlots(_ context.Context, accountID uuid.UUID, date time.Time) ([]model.Interval, error) {
	weekday := model.WeekdayOf(date)

	unlock := s.locker.Lock(dayKey(accountID, weekday))
	defer unlock()

	day, ok := s.state.Day(accountID, weekday)
	if !ok {
		return nil, fmt.Errorf("%w: account %s", model.ErrNotFound, accountID)
	}

	return schedule.FreeSlots(day, s.state.SessionsOn(accountID, date), date), nil
}

// Week возвращает копию недельного расписания
func (s *AvailabilityService) Week(_ context.Context, accountID uuid.UUID) (*model.WeeklySchedule, error) {
	week, ok := s.state.Week(accountID)
	if !ok {
		return nil, fmt.Errorf("%w: account %s", model.ErrNotFound, accountID)
	}
	return week, nil
}
