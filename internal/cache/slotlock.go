package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otomatiktech/consult-booking/internal/availability"
)

// SlotCache holds the short-lived slot locks taken around booking
// creation and the cached availability payload.  A nil client disables
// both: locks report acquired and cache lookups miss, so the service
// degrades to database-level guarantees alone.
type SlotCache struct {
	client          *redis.Client
	availabilityTTL time.Duration
}

func NewSlotCache(client *redis.Client, availabilityTTL time.Duration) *SlotCache {
	return &SlotCache{client: client, availabilityTTL: availabilityTTL}
}

// AcquireSlotLock takes a best-effort advisory lock on a (date, time)
// slot.  The database transaction remains the source of truth; the
// lock only short-circuits the common double-submit case.
func (c *SlotCache) AcquireSlotLock(ctx context.Context, date, startTime string, ttl time.Duration) (bool, error) {
	if c == nil || c.client == nil {
		return true, nil
	}
	return c.client.SetNX(ctx, slotLockKey(date, startTime), "locked", ttl).Result()
}

func (c *SlotCache) ReleaseSlotLock(ctx context.Context, date, startTime string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, slotLockKey(date, startTime)).Err()
}

// GetAvailability returns the cached availability result, or nil on a
// miss (including when caching is disabled).
func (c *SlotCache) GetAvailability(ctx context.Context) (*availability.Result, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, availabilityKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var res availability.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *SlotCache) SetAvailability(ctx context.Context, res *availability.Result) error {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, availabilityKey(), payload, c.availabilityTTL).Err()
}

// InvalidateAvailability drops the cached payload after any booking or
// settings mutation.
func (c *SlotCache) InvalidateAvailability(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, availabilityKey()).Err()
}

func availabilityKey() string {
	return "cache:availability"
}

func slotLockKey(date, startTime string) string {
	return fmt.Sprintf("lock:slot:%s:%s", date, startTime)
}
