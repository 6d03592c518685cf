package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/base"
)

const sessionColumns = `id, tutor_id, student_id, start_time, course_field, course_num, course_title, duration_hours, completed, rating, created_at`

type SessionRepository struct {
	db base.DB
}

func NewSessionRepository(db base.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create сохраняет новое занятие
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (id, tutor_id, student_id, start_time, course_field, course_num, course_title, duration_hours, completed, rating, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.db.Exec(
		ctx, query,
		session.ID,
		session.TutorID,
		session.StudentID,
		session.StartTime,
		session.Course.Field,
		session.Course.Number,
		session.Course.Title,
		session.Duration,
		session.Completed,
		session.Rating,
		session.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// Update обновляет статус и оценку занятия
func (r *SessionRepository) Update(ctx context.Context, session *model.Session) error {
	query := `
		UPDATE sessions
		SET completed = $1, rating = $2
		WHERE id = $3
	`

	affected, err := base.ExecAffected(ctx, r.db, query, session.Completed, session.Rating, session.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("update session %s: %w", session.ID, model.ErrNotFound)
	}

	return nil
}

// Delete удаляет отменённое занятие
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// GetByID получает занятие по ID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}

	return session, nil
}

// ListAll возвращает все занятия, отсортированные по времени начала
func (r *SessionRepository) ListAll(ctx context.Context) ([]*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY start_time, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

func scanSession(row pgx.Row) (*model.Session, error) {
	var s model.Session
	err := row.Scan(
		&s.ID,
		&s.TutorID,
		&s.StudentID,
		&s.StartTime,
		&s.Course.Field,
		&s.Course.Number,
		&s.Course.Title,
		&s.Duration,
		&s.Completed,
		&s.Rating,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
