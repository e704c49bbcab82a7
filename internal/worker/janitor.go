package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"weekPlanner/internal/auth"
	"weekPlanner/internal/logger"
)

// Janitor - фоновая уборка: протухшие сессии и устаревшие записи
// троттлинга. Без него карты в памяти растут бесконечно.
type Janitor struct {
	sessions auth.SessionStore
	throttle auth.Throttle
	interval time.Duration
}

func NewJanitor(sessions auth.SessionStore, throttle auth.Throttle, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Janitor{
		sessions: sessions,
		throttle: throttle,
		interval: interval,
	}
}

func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.Sweep()
		case <-ctx.Done():
			logger.Info("Worker: Фоновая уборка останавливается")
			return
		}
	}
}

func (j *Janitor) Sweep() {
	start := time.Now()
	now := time.Now()

	sessions := j.sessions.PurgeExpired(now)
	throttled := j.throttle.PurgeStale(now)

	logger.Info("Worker: Уборка завершена",
		zap.Duration("ms", time.Since(start)),
		zap.Int("sessions_purged", sessions),
		zap.Int("throttle_purged", throttled))
}
