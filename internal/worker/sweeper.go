package worker

import (
	"context"
	"time"

	"taskScheduler/internal/logger"

	"go.uber.org/zap"
)

const defaultSweepInterval = 5 * time.Minute

type SessionSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type ResetTokenSweeper interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int, error)
}

// Sweeper периодически удаляет истёкшие сессии и токены сброса пароля.
type Sweeper struct {
	sessions SessionSweeper
	resets   ResetTokenSweeper
	interval time.Duration
	now      func() time.Time
}

func NewSweeper(sessions SessionSweeper, resets ResetTokenSweeper, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		sessions: sessions,
		resets:   resets,
		interval: interval,
		now:      time.Now,
	}
}

// Start блокируется до отмены ctx.
func (w *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Очистка устаревших данных запущена", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ticker.C:
			w.Sweep(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Очистка устаревших данных останавливается")
			return
		}
	}
}

// Sweep выполняет один проход; ошибка одного хранилища не мешает второму.
func (w *Sweeper) Sweep(ctx context.Context) (sessions, tokens int) {
	start := time.Now()
	now := w.now()

	sessions, err := w.sessions.DeleteExpired(ctx, now)
	if err != nil {
		logger.Warn("Worker: Ошибка удаления истёкших сессий", zap.Error(err))
	}

	tokens, err = w.resets.ClearExpiredResetTokens(ctx, now)
	if err != nil {
		logger.Warn("Worker: Ошибка очистки токенов сброса", zap.Error(err))
	}

	logger.Info(
		"Worker: Завершение очистки",
		zap.Duration("ms", time.Since(start)),
		zap.Int("sessions", sessions),
		zap.Int("reset_tokens", tokens),
	)
	return sessions, tokens
}
