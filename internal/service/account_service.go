package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

type accountStore interface {
	accountReader
	// Create сохраняет аккаунт и его курсы атомарно
	Create(ctx context.Context, account *model.Account, courses []model.Course) error
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
}

type enrollmentStore interface {
	Replace(ctx context.Context, accountID uuid.UUID, role model.EnrollmentRole, courses []model.Course) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Enrollment, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// ProvisionRequest - данные для заведения аккаунта
type ProvisionRequest struct {
	Name    string         `validate:"required"`
	Email   string         `validate:"required,email"`
	IsTutor bool           `validate:"-"`
	Courses []model.Course `validate:"-"`
}

type AccountService struct {
	accounts    accountStore
	enrollments enrollmentStore
	state       *State
	locker      *KeyedLocker
	journal     changeRecorder
	matches     cacheInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

func NewAccountService(
	accounts accountStore,
	enrollments enrollmentStore,
	state *State,
	locker *KeyedLocker,
	journal changeRecorder,
	matches cacheInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *AccountService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		accounts:    accounts,
		enrollments: enrollments,
		state:       state,
		locker:      locker,
		journal:     journal,
		matches:     matches,
		validator:   validate,
		logger:      logger,
	}
}

// Provision создаёт аккаунт с полностью заблокированной неделей и списком курсов
func (s *AccountService) Provision(ctx context.Context, req ProvisionRequest) (*model.Account, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	existing, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email %s is already registered", model.ErrValidation, req.Email)
	}

	account := &model.Account{
		ID:      uuid.New(),
		Name:    req.Name,
		Email:   req.Email,
		IsTutor: req.IsTutor,
	}

	courses := model.DedupeCourses(req.Courses)
	if err := s.accounts.Create(ctx, account, courses); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.state.AddAccount(account.ID)
	s.journalWeek(account.ID)
	s.invalidateMatches(ctx)

	s.logger.Info("Account provisioned",
		zap.String("account_id", account.ID.String()),
		zap.Bool("is_tutor", account.IsTutor),
		zap.Int("courses", len(courses)),
	)

	return account, nil
}

// journalWeek ставит в журнал все семь дней расписания аккаунта
func (s *AccountService) journalWeek(accountID uuid.UUID) {
	for _, weekday := range model.Weekdays {
		unlock := s.locker.Lock(dayKey(accountID, weekday))
		if day, ok := s.state.snapshotDay(accountID, weekday); ok {
			s.journal.Append(DayChange(day))
		}
		unlock()
	}
}

// UpdateCourses заменяет список курсов аккаунта
func (s *AccountService) UpdateCourses(ctx context.Context, accountID uuid.UUID, courses []model.Course) ([]model.Course, error) {
	account, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	courses = model.DedupeCourses(courses)
	if err := s.enrollments.Replace(ctx, account.ID, account.Role(), courses); err != nil {
		return nil, fmt.Errorf("replace enrollments: %w", err)
	}
	s.invalidateMatches(ctx)

	s.logger.Info("Courses updated",
		zap.String("account_id", account.ID.String()),
		zap.Int("courses", len(courses)),
	)

	return courses, nil
}

// Get получает аккаунт по ID
func (s *AccountService) Get(ctx context.Context, accountID uuid.UUID) (*model.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account %s", model.ErrNotFound, accountID)
	}
	return account, nil
}

// Courses возвращает записи аккаунта на курсы
func (s *AccountService) Courses(ctx context.Context, accountID uuid.UUID) ([]model.Enrollment, error) {
	enrollments, err := s.enrollments.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

func (s *AccountService) invalidateMatches(ctx context.Context) {
	if s.matches == nil {
		return
	}
	if err := s.matches.Invalidate(ctx); err != nil {
		s.logger.Warn("Failed to invalidate match cache", zap.Error(err))
	}
}
