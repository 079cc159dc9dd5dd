package service

import (
	"context"
	"errors"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/infra/lock"
	"github.com/rs/zerolog/log"
)

const promotionRefreshLockKey = "promotion:refresh"

type promotionRefresher interface {
	Refresh(ctx context.Context) (RefreshResult, error)
}

// PromotionSweeper 定期執行 Refresh，多個實例時只有取得鎖的實例會掃描
type PromotionSweeper struct {
	promotions promotionRefresher
	locker     lock.Locker
	interval   time.Duration
}

func NewPromotionSweeper(promotions *PromotionService, locker lock.Locker, interval time.Duration) *PromotionSweeper {
	return &PromotionSweeper{promotions: promotions, locker: locker, interval: interval}
}

// Run 直到 ctx 結束才返回
func (w *PromotionSweeper) Run(ctx context.Context) error {
	if w.interval <= 0 {
		log.Info().Msg("promotion sweeper disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep 取得鎖並執行一次 Refresh，回傳是否有執行
func (w *PromotionSweeper) Sweep(ctx context.Context) bool {
	lk, err := w.locker.TryObtain(ctx, promotionRefreshLockKey, w.lockTTL())
	if errors.Is(err, lock.ErrNotObtained) {
		log.Debug().Msg("promotion refresh held by another instance")
		return false
	}
	if err != nil {
		log.Error().Err(err).Msg("obtain promotion refresh lock failed")
		return false
	}
	defer func() {
		if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("release promotion refresh lock failed")
		}
	}()

	result, err := w.promotions.Refresh(ctx)
	if err != nil {
		log.Error().Err(err).Msg("promotion refresh finished with errors")
	}
	if len(result.Activated) > 0 || len(result.Expired) > 0 {
		log.Info().Ints("activated", result.Activated).Ints("expired", result.Expired).Msg("promotion statuses refreshed")
	}
	return true
}

func (w *PromotionSweeper) lockTTL() time.Duration {
	if w.interval <= 0 {
		return time.Minute
	}
	return w.interval
}
