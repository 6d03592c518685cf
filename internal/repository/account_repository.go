package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/base"
)

type AccountRepository struct {
	db base.DB
}

func NewAccountRepository(db base.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create создаёт аккаунт вместе с его записями на курсы в одной транзакции
func (r *AccountRepository) Create(ctx context.Context, account *model.Account, courses []model.Course) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO accounts (id, name, email, is_tutor)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err = tx.QueryRow(
		ctx, query,
		account.ID,
		account.Name,
		account.Email,
		account.IsTutor,
	).Scan(&account.CreatedAt)

	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	if err := insertEnrollments(ctx, tx, account.ID, account.Role(), courses); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID получает аккаунт по ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `
		SELECT id, name, email, is_tutor, rating_sum, rated_sessions, created_at
		FROM accounts
		WHERE id = $1
	`

	var account model.Account
	err := r.db.QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.IsTutor,
		&account.RatingSum,
		&account.RatedSessions,
		&account.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Аккаунт не найден
		}
		return nil, fmt.Errorf("get account by id: %w", err)
	}

	return &account, nil
}

// GetByEmail получает аккаунт по email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `
		SELECT id, name, email, is_tutor, rating_sum, rated_sessions, created_at
		FROM accounts
		WHERE lower(email) = lower($1)
	`

	var account model.Account
	err := r.db.QueryRow(ctx, query, email).Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.IsTutor,
		&account.RatingSum,
		&account.RatedSessions,
		&account.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}

	return &account, nil
}

// AddRating добавляет оценку к рейтингу репетитора
func (r *AccountRepository) AddRating(ctx context.Context, tutorID uuid.UUID, rating int) error {
	query := `
		UPDATE accounts
		SET rating_sum = rating_sum + $1, rated_sessions = rated_sessions + 1
		WHERE id = $2 AND is_tutor
	`

	affected, err := base.ExecAffected(ctx, r.db, query, rating, tutorID)
	if err != nil {
		return fmt.Errorf("add rating: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("add rating: tutor %s: %w", tutorID, model.ErrNotFound)
	}

	return nil
}
