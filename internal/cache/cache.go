package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/config"
	"github.com/KMMOrganisation/ParliQ/internal/core/model"
)

// TranscriptCache stores fetched transcripts keyed by video id.
type TranscriptCache interface {
	Get(ctx context.Context, videoID string) ([]model.Segment, bool)
	Set(ctx context.Context, videoID string, segments []model.Segment)
}

const (
	DefaultTTL        = 24 * time.Hour
	DefaultMaxEntries = 500
)

// Tiered keeps transcripts in process memory and, when a Redis client is
// given, mirrors them into Redis so they survive restarts.
type Tiered struct {
	l1         sync.Map // key -> *entry
	rdb        *redis.Client
	ttl        time.Duration
	maxEntries int
	logger     *zap.Logger
	now        func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// NewRedisClient returns nil when no address is configured.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// New creates a tiered cache. rdb may be nil to disable the Redis tier.
func New(rdb *redis.Client, ttl time.Duration, maxEntries int, logger *zap.Logger) *Tiered {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tiered{
		rdb:        rdb,
		ttl:        ttl,
		maxEntries: maxEntries,
		logger:     logger.Named("cache"),
		now:        time.Now,
	}
}

func Key(videoID string) string {
	return "parliq:transcript:" + videoID
}

func (c *Tiered) Get(ctx context.Context, videoID string) ([]model.Segment, bool) {
	key := Key(videoID)

	if val, ok := c.l1.Load(key); ok {
		e := val.(*entry)
		if c.now().Before(e.expiresAt) {
			var segs []model.Segment
			if json.Unmarshal(e.data, &segs) == nil {
				c.hits.Add(1)
				return segs, true
			}
		}
		c.l1.Delete(key) // expired or corrupt
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var segs []model.Segment
			if json.Unmarshal(data, &segs) == nil {
				c.hits.Add(1)
				c.storeL1(key, data)
				return segs, true
			}
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("redis get failed", zap.String("video_id", videoID), zap.Error(err))
		}
	}

	c.misses.Add(1)
	return nil, false
}

func (c *Tiered) Set(ctx context.Context, videoID string, segments []model.Segment) {
	data, err := json.Marshal(segments)
	if err != nil {
		return
	}
	key := Key(videoID)

	c.evictIfNeeded()
	c.storeL1(key, data)

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("redis set failed", zap.String("video_id", videoID), zap.Error(err))
		}
	}
}

// Stats returns hit and miss counters since creation.
func (c *Tiered) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge drops expired in-memory entries.
func (c *Tiered) Purge() {
	now := c.now()
	c.l1.Range(func(key, val any) bool {
		if e, ok := val.(*entry); ok && now.After(e.expiresAt) {
			c.l1.Delete(key)
		}
		return true
	})
}

func (c *Tiered) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *Tiered) storeL1(key string, data []byte) {
	c.l1.Store(key, &entry{data: data, expiresAt: c.now().Add(c.ttl)})
}

// evictIfNeeded drops expired entries first, then the oldest ones, until
// there is room for one more.
func (c *Tiered) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count < c.maxEntries {
		return
	}

	c.Purge()
	count = 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})

	for count >= c.maxEntries {
		var oldestKey any
		var oldestAt time.Time
		c.l1.Range(func(key, val any) bool {
			e := val.(*entry)
			if oldestKey == nil || e.expiresAt.Before(oldestAt) {
				oldestKey, oldestAt = key, e.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			return
		}
		c.l1.Delete(oldestKey)
		count--
	}
}
