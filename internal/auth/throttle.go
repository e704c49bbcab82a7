package auth

import (
	"sync"
	"time"
)

// Throttle - пер-ключевой ограничитель для чувствительных мутаций
// (логин, сброс пароля). Интерфейс нарочно узкий, чтобы в
// многоинстансном деплое подставить внешний TTL-кеш и не потерять
// гарантию.
type Throttle interface {
	Allow(key string) (ok bool, retryAfter time.Duration)
	PurgeStale(now time.Time) int
}

type throttleEntry struct {
	count   int
	resetAt time.Time
}

type MemoryThrottle struct {
	mtx    sync.Mutex
	keys   map[string]*throttleEntry
	window time.Duration
	max    int
}

func NewMemoryThrottle(window time.Duration, max int) *MemoryThrottle {
	return &MemoryThrottle{
		keys:   make(map[string]*throttleEntry),
		window: window,
		max:    max,
	}
}

func (t *MemoryThrottle) Allow(key string) (bool, time.Duration) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	now := time.Now()
	entry, ok := t.keys[key]

	if !ok || now.After(entry.resetAt) {
		t.keys[key] = &throttleEntry{count: 1, resetAt: now.Add(t.window)}
		return true, 0
	}

	if entry.count >= t.max {
		return false, entry.resetAt.Sub(now)
	}

	entry.count++
	return true, 0
}

func (t *MemoryThrottle) PurgeStale(now time.Time) int {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	purged := 0
	for key, entry := range t.keys {
		if now.After(entry.resetAt) {
			delete(t.keys, key)
			purged++
		}
	}
	return purged
}
