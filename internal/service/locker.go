package service

import (
	"bytes"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// lockKey идентифицирует расписание одного дня недели одного аккаунта
type lockKey struct {
	account uuid.UUID
	weekday model.Weekday
}

func dayKey(account uuid.UUID, weekday model.Weekday) lockKey {
	return lockKey{account: account, weekday: weekday}
}

type keyedMutex struct {
	mu   sync.Mutex
	refs int
}

// KeyedLocker сериализует изменения по ключу (аккаунт, день недели).
// Операции над разными ключами выполняются параллельно.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[lockKey]*keyedMutex
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[lockKey]*keyedMutex)}
}

// Lock захватывает все ключи в едином порядке и возвращает функцию освобождения
func (l *KeyedLocker) Lock(keys ...lockKey) (unlock func()) {
	ordered := orderKeys(keys)

	held := make([]*keyedMutex, 0, len(ordered))
	for _, k := range ordered {
		m := l.acquire(k)
		m.mu.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.release(ordered[i])
		}
	}
}

func (l *KeyedLocker) acquire(k lockKey) *keyedMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[k]
	if !ok {
		m = &keyedMutex{}
		l.locks[k] = m
	}
	m.refs++
	return m
}

func (l *KeyedLocker) release(k lockKey) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m := l.locks[k]
	m.refs--
	if m.refs == 0 {
		delete(l.locks, k)
	}
}

// size возвращает количество ключей, которые сейчас кем-то удерживаются
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func orderKeys(keys []lockKey) []lockKey {
	out := make([]lockKey, 0, len(keys))
	seen := make(map[lockKey]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].account[:], out[j].account[:]); c != 0 {
			return c < 0
		}
		return out[i].weekday < out[j].weekday
	})
	return out
}
