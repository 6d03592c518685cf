package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/tutor_scheduler/internal/match"
	"github.com/Freeeeeet/tutor_scheduler/internal/metrics"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

type enrollmentLister interface {
	ListByRole(ctx context.Context, role model.EnrollmentRole) ([]model.Enrollment, error)
}

// MatchCache - кэш результатов поиска (redis); может отсутствовать.
// Resolve возвращает ключ текущего поколения, Get и Set работают с этим ключом.
type MatchCache interface {
	Resolve(ctx context.Context, queryKey string) (string, error)
	Get(ctx context.Context, key string) ([]uuid.UUID, bool, error)
	Set(ctx context.Context, key string, ids []uuid.UUID) error
	Invalidate(ctx context.Context) error
}

// MatchService ищет репетиторов по названию или номеру курса
type MatchService struct {
	enrollments enrollmentLister
	cache       MatchCache
	logger      *zap.Logger
}

func NewMatchService(enrollments enrollmentLister, cache MatchCache, logger *zap.Logger) *MatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchService{
		enrollments: enrollments,
		cache:       cache,
		logger:      logger,
	}
}

// FindTutors разбирает строку запроса: число - номер курса, иначе название
func (s *MatchService) FindTutors(ctx context.Context, raw string) ([]uuid.UUID, error) {
	q, err := match.ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	return s.FindTutorsFor(ctx, q)
}

func (s *MatchService) FindTutorsFor(ctx context.Context, q match.Query) ([]uuid.UUID, error) {
	if q.IsZero() {
		return nil, fmt.Errorf("%w: empty course query", model.ErrValidation)
	}

	cacheKey, ids, ok := s.lookup(ctx, q.Key())
	if ok {
		return ids, nil
	}

	enrollments, err := s.enrollments.ListByRole(ctx, model.RoleTutor)
	if err != nil {
		return nil, fmt.Errorf("list tutor enrollments: %w", err)
	}

	ids = match.Tutors(enrollments, q)

	if cacheKey != "" {
		if err := s.cache.Set(ctx, cacheKey, ids); err != nil {
			s.logger.Warn("Failed to cache match result", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	return ids, nil
}

// lookup читает кэш; cacheKey пустой, если кэш выключен или недоступен
func (s *MatchService) lookup(ctx context.Context, queryKey string) (cacheKey string, ids []uuid.UUID, ok bool) {
	if s.cache == nil {
		return "", nil, false
	}

	cacheKey, err := s.cache.Resolve(ctx, queryKey)
	if err != nil {
		metrics.IncMatchCacheLookup("error")
		s.logger.Warn("Match cache lookup failed", zap.String("query", queryKey), zap.Error(err))
		return "", nil, false
	}

	ids, ok, err = s.cache.Get(ctx, cacheKey)
	switch {
	case err != nil:
		metrics.IncMatchCacheLookup("error")
		s.logger.Warn("Match cache lookup failed", zap.String("key", cacheKey), zap.Error(err))
		return "", nil, false
	case ok:
		metrics.IncMatchCacheLookup("hit")
		return cacheKey, ids, true
	}

	metrics.IncMatchCacheLookup("miss")
	return cacheKey, nil, false
}

// Invalidate сбрасывает кэш после изменения записей на курсы
func (s *MatchService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}
