package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryEligibilityCache is the in-process fallback used when Redis is down
// or not configured.
type MemoryEligibilityCache struct {
	completed sync.Map

	rateMu     sync.Mutex
	rateLimits map[int64]*rateLimitEntry
}

func NewMemoryEligibilityCache() *MemoryEligibilityCache {
	return &MemoryEligibilityCache{rateLimits: make(map[int64]*rateLimitEntry)}
}

type memoryKey struct {
	userID int64
	itemID int64
}

func (r *MemoryEligibilityCache) GetCompletedRental(ctx context.Context, userID, itemID int64) (bool, error) {
	_, ok := r.completed.Load(memoryKey{userID, itemID})
	return ok, nil
}

func (r *MemoryEligibilityCache) SetCompletedRental(ctx context.Context, userID, itemID int64) error {
	r.completed.Store(memoryKey{userID, itemID}, struct{}{})
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryEligibilityCache) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	now := time.Now()

	r.rateMu.Lock()
	defer r.rateMu.Unlock()

	entry, ok := r.rateLimits[userID]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
		r.rateLimits[userID] = entry
	} else {
		entry.count++
	}

	return entry.count <= limit, nil
}
