package repository

import (
	"context"
	"sync/atomic"
	"time"

	"lendit/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverEligibilityCache prefers the primary (Redis) cache and degrades to
// the fallback (memory) when the primary errors, probing the primary again
// after a minute.
type FailoverEligibilityCache struct {
	primary   domain.EligibilityCache
	fallback  domain.EligibilityCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverEligibilityCache(primary, fallback domain.EligibilityCache, logger *zerolog.Logger) *FailoverEligibilityCache {
	return &FailoverEligibilityCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverEligibilityCache) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	// Probe the primary again after a minute of being down.
	last := time.Unix(r.lastCheck.Load(), 0)
	return time.Since(last) > time.Minute
}

func (r *FailoverEligibilityCache) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary eligibility cache failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().Unix())
}

func (r *FailoverEligibilityCache) GetCompletedRental(ctx context.Context, userID, itemID int64) (bool, error) {
	if r.usePrimary() {
		ok, err := r.primary.GetCompletedRental(ctx, userID, itemID)
		if err == nil {
			r.isDown.Store(false)
			return ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetCompletedRental(ctx, userID, itemID)
}

func (r *FailoverEligibilityCache) SetCompletedRental(ctx context.Context, userID, itemID int64) error {
	if r.usePrimary() {
		err := r.primary.SetCompletedRental(ctx, userID, itemID)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetCompletedRental(ctx, userID, itemID)
}

func (r *FailoverEligibilityCache) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			r.isDown.Store(false)
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}
