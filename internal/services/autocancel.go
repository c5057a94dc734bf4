package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"fretus-backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultAutoCancelTimeout applies when the setting is missing or invalid.
const DefaultAutoCancelTimeout = 30 * time.Minute

const (
	sweepLockKey = "fretus:autocancel:lock"
	sweepBatch   = 200
)

func autoCancelTimeout(ctx context.Context, tx Tx) (time.Duration, error) {
	raw, err := tx.GetSetting(ctx, models.SettingAutoCancelTimeout)
	if errors.Is(err, models.ErrNotFound) {
		return DefaultAutoCancelTimeout, nil
	}
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return DefaultAutoCancelTimeout, nil
	}
	return time.Duration(minutes) * time.Minute, nil
}

// AutoCancelSweeper periodically cancels requests no driver accepted in time.
// With a Redis client only one replica sweeps per tick.
type AutoCancelSweeper struct {
	engine   *Engine
	redis    *redis.Client
	interval time.Duration
	logger   *zap.Logger
}

func NewAutoCancelSweeper(engine *Engine, rdb *redis.Client, interval time.Duration, logger *zap.Logger) *AutoCancelSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoCancelSweeper{
		engine:   engine,
		redis:    rdb,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps immediately and then on every tick until ctx is done.
func (s *AutoCancelSweeper) Run(ctx context.Context) {
	s.logger.Info("⏰ auto-cancel sweeper started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("❌ auto-cancel sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.logger.Info("auto-cancel sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep runs one pass and returns how many requests were cancelled.
// It returns zero without error when another replica holds the lock.
func (s *AutoCancelSweeper) Sweep(ctx context.Context) (int, error) {
	if s.redis != nil {
		acquired, err := s.redis.SetNX(ctx, sweepLockKey, "1", s.interval).Result()
		if err != nil {
			return 0, err
		}
		if !acquired {
			return 0, nil
		}
	}

	cancelled, err := s.engine.CancelStale(ctx, sweepBatch)
	if err != nil {
		return 0, err
	}
	if len(cancelled) > 0 {
		s.logger.Info("🧹 auto-cancelled stale delivery requests", zap.Int("count", len(cancelled)))
	}
	return len(cancelled), nil
}
