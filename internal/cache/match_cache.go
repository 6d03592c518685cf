package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	matchKeyPrefix     = "tutor_match"
	matchGenerationKey = "tutor_match:generation"
)

// MatchCache кэширует результаты поиска репетиторов по курсу.
// Инвалидация - через счётчик поколений: старые ключи просто истекают по TTL.
type MatchCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMatchCache создаёт кэш поверх redis клиента
func NewMatchCache(client *redis.Client, ttl time.Duration) *MatchCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MatchCache{client: client, ttl: ttl}
}

// Resolve привязывает ключ запроса к текущему поколению кэша.
// Get и Set одного поиска работают с одним и тем же ключом: результат,
// прочитанный до Invalidate, попадает в старое поколение и больше не читается.
func (c *MatchCache) Resolve(ctx context.Context, queryKey string) (string, error) {
	generation, err := c.client.Get(ctx, matchGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("get match cache generation: %w", err)
	}
	return fmt.Sprintf("%s:%d:%s", matchKeyPrefix, generation, queryKey), nil
}

// Get возвращает закэшированный список, ok=false при промахе
func (c *MatchCache) Get(ctx context.Context, key string) ([]uuid.UUID, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get match cache: %w", err)
	}

	var ids []uuid.UUID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false, fmt.Errorf("decode match cache: %w", err)
	}

	return ids, true, nil
}

// Set сохраняет результат поиска под ключом, полученным из Resolve
func (c *MatchCache) Set(ctx context.Context, key string, ids []uuid.UUID) error {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode match cache: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set match cache: %w", err)
	}

	return nil
}

// Invalidate сбрасывает все закэшированные результаты
func (c *MatchCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, matchGenerationKey).Err(); err != nil {
		return fmt.Errorf("invalidate match cache: %w", err)
	}
	return nil
}
