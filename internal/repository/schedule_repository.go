package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/base"
)

type ScheduleRepository struct {
	db base.DB
}

func NewScheduleRepository(db base.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// SaveDay сохраняет расписание дня; более старая версия не перезаписывает новую
func (r *ScheduleRepository) SaveDay(ctx context.Context, day model.ScheduleDay) error {
	intervals, err := json.Marshal(day.Intervals)
	if err != nil {
		return fmt.Errorf("encode intervals: %w", err)
	}

	query := `
		INSERT INTO schedule_days (account_id, weekday, version, intervals, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (account_id, weekday) DO UPDATE
		SET version = EXCLUDED.version, intervals = EXCLUDED.intervals, updated_at = NOW()
		WHERE schedule_days.version < EXCLUDED.version
	`

	if _, err := r.db.Exec(ctx, query, day.AccountID, int(day.Weekday), day.Version, intervals); err != nil {
		return fmt.Errorf("save schedule day: %w", err)
	}

	return nil
}

// ListAll возвращает расписания всех аккаунтов
func (r *ScheduleRepository) ListAll(ctx context.Context) ([]model.ScheduleDay, error) {
	query := `
		SELECT account_id, weekday, version, intervals
		FROM schedule_days
		ORDER BY account_id, weekday
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list schedule days: %w", err)
	}
	defer rows.Close()

	var days []model.ScheduleDay
	for rows.Next() {
		var (
			day       model.ScheduleDay
			weekday   int
			intervals []byte
		)
		if err := rows.Scan(&day.AccountID, &weekday, &day.Version, &intervals); err != nil {
			return nil, fmt.Errorf("scan schedule day: %w", err)
		}

		day.Weekday = model.Weekday(weekday)
		if err := json.Unmarshal(intervals, &day.Intervals); err != nil {
			return nil, fmt.Errorf("decode intervals for %s %s: %w", day.AccountID, day.Weekday, err)
		}
		if err := day.Intervals.Validate(); err != nil {
			return nil, fmt.Errorf("stored schedule %s %s: %w", day.AccountID, day.Weekday, err)
		}

		days = append(days, day)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule days: %w", err)
	}

	return days, nil
}
