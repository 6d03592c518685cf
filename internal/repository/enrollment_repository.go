package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/base"
)

type EnrollmentRepository struct {
	db base.DB
}

func NewEnrollmentRepository(db base.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Replace заменяет список курсов аккаунта (в транзакции)
func (r *EnrollmentRepository) Replace(ctx context.Context, accountID uuid.UUID, role model.EnrollmentRole, courses []model.Course) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM enrollments WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("delete enrollments: %w", err)
	}

	if err := insertEnrollments(ctx, tx, accountID, role, courses); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func insertEnrollments(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, role model.EnrollmentRole, courses []model.Course) error {
	query := `
		INSERT INTO enrollments (account_id, role, field, course_num, title)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, course_num) DO NOTHING
	`

	for _, c := range model.DedupeCourses(courses) {
		if _, err := tx.Exec(ctx, query, accountID, role, c.Field, c.Number, c.Title); err != nil {
			return fmt.Errorf("insert enrollment %d: %w", c.Number, err)
		}
	}

	return nil
}

// ListByAccount возвращает курсы аккаунта
func (r *EnrollmentRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Enrollment, error) {
	query := `
		SELECT account_id, role, field, course_num, title
		FROM enrollments
		WHERE account_id = $1
		ORDER BY course_num
	`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments by account: %w", err)
	}
	defer rows.Close()

	return scanEnrollments(rows)
}

// ListByRole возвращает все записи на курсы с указанной ролью
func (r *EnrollmentRepository) ListByRole(ctx context.Context, role model.EnrollmentRole) ([]model.Enrollment, error) {
	query := `
		SELECT account_id, role, field, course_num, title
		FROM enrollments
		WHERE role = $1
		ORDER BY account_id, course_num
	`

	rows, err := r.db.Query(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("list enrollments by role: %w", err)
	}
	defer rows.Close()

	return scanEnrollments(rows)
}

func scanEnrollments(rows pgx.Rows) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	for rows.Next() {
		var e model.Enrollment
		if err := rows.Scan(&e.AccountID, &e.Role, &e.Course.Field, &e.Course.Number, &e.Course.Title); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}

	return enrollments, nil
}
