package cache

import (
	"context"
	"fmt"
	"time"

	"twse-attention-radar/engine"
	"twse-attention-radar/sources"
)

// Cache lifetimes per feed. The calendar and disposition lists change once a
// day at most; the bulletin can be re-announced intraday so it expires
// faster.
const (
	CalendarTTL = 12 * time.Hour
	JailTTL     = 6 * time.Hour
	BulletinTTL = 2 * time.Hour
)

// FeedCache keeps fetched exchange feeds across runs so a re-run after a
// crash or a same-evening manual run does not hammer the upstream APIs.
type FeedCache struct {
	redis *RedisClient
}

// NewFeedCache creates a new feed cache instance
func NewFeedCache(redis *RedisClient) *FeedCache {
	return &FeedCache{
		redis: redis,
	}
}

// GetCalendar retrieves a cached trading calendar for a date range.
func (c *FeedCache) GetCalendar(ctx context.Context, start, end string) ([]time.Time, bool) {
	if c.redis == nil {
		return nil, false
	}

	var dates []time.Time
	key := fmt.Sprintf("feed:calendar:%s:%s", start, end)
	if err := c.redis.Get(ctx, key, &dates); err != nil {
		return nil, false
	}
	return dates, true
}

// SetCalendar caches a trading calendar for a date range.
func (c *FeedCache) SetCalendar(ctx context.Context, start, end string, dates []time.Time) error {
	if c.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	key := fmt.Sprintf("feed:calendar:%s:%s", start, end)
	return c.redis.Set(ctx, key, dates, CalendarTTL)
}

// GetJailMap retrieves the cached disposition map for a lookback range.
func (c *FeedCache) GetJailMap(ctx context.Context, start, end time.Time) (engine.JailMap, bool) {
	if c.redis == nil {
		return nil, false
	}

	var jm engine.JailMap
	key := jailKey(start, end)
	if err := c.redis.Get(ctx, key, &jm); err != nil {
		return nil, false
	}
	return jm, true
}

// SetJailMap caches the disposition map for a lookback range.
func (c *FeedCache) SetJailMap(ctx context.Context, start, end time.Time, jm engine.JailMap) error {
	if c.redis == nil {
		return fmt.Errorf("redis client not available")
	}
	return c.redis.Set(ctx, jailKey(start, end), jm, JailTTL)
}

func jailKey(start, end time.Time) string {
	return fmt.Sprintf("feed:jail:%s:%s", start.Format("20060102"), end.Format("20060102"))
}

// GetBulletin retrieves the cached attention rows for one date.
func (c *FeedCache) GetBulletin(ctx context.Context, date time.Time) ([]sources.AttentionRow, bool) {
	if c.redis == nil {
		return nil, false
	}

	var rows []sources.AttentionRow
	key := fmt.Sprintf("feed:bulletin:%s", date.Format("2006-01-02"))
	if err := c.redis.Get(ctx, key, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

// SetBulletin caches the attention rows for one date.
func (c *FeedCache) SetBulletin(ctx context.Context, date time.Time, rows []sources.AttentionRow) error {
	if c.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	key := fmt.Sprintf("feed:bulletin:%s", date.Format("2006-01-02"))
	return c.redis.Set(ctx, key, rows, BulletinTTL)
}

// InvalidateBulletin drops a cached bulletin day, used when the day is
// re-fetched after the safe-crawl time.
func (c *FeedCache) InvalidateBulletin(ctx context.Context, date time.Time) {
	if c.redis == nil {
		return
	}
	key := fmt.Sprintf("feed:bulletin:%s", date.Format("2006-01-02"))
	_ = c.redis.Delete(ctx, key)
}
