package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"eproba-editor/domain"
)

type backend interface {
	FetchDraft(ctx context.Context, ownerID, draftID string) (domain.Draft, error)
	CreateDraft(ctx context.Context, d domain.Draft) (domain.Draft, error)
	SaveDraft(ctx context.Context, d domain.Draft) (domain.Draft, error)
	DeleteDraft(ctx context.Context, ownerID, draftID string) error
	EnqueueSubmission(ctx context.Context, userID string, sub domain.Submission) error
}

// Cache wraps a draft backend with a Redis read-through and write-through
// cache. Redis failures fall back to the backend.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

type cachedDraft struct {
	Draft domain.Draft `json:"draft"`
	ETag  string       `json:"etag"`
}

func (c *Cache) FetchDraft(ctx context.Context, ownerID, draftID string) (domain.Draft, error) {
	if d, ok := c.load(ctx, ownerID, draftID); ok {
		return d, nil
	}

	d, err := c.base.FetchDraft(ctx, ownerID, draftID)
	if err != nil {
		return domain.Draft{}, err
	}

	c.store(ctx, d)
	return d, nil
}

func (c *Cache) CreateDraft(ctx context.Context, d domain.Draft) (domain.Draft, error) {
	created, err := c.base.CreateDraft(ctx, d)
	if err != nil {
		return domain.Draft{}, err
	}
	c.store(ctx, created)
	return created, nil
}

func (c *Cache) SaveDraft(ctx context.Context, d domain.Draft) (domain.Draft, error) {
	saved, err := c.base.SaveDraft(ctx, d)
	if err != nil {
		if errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrNotFound) {
			c.evict(ctx, d.OwnerID, d.ID)
		}
		return domain.Draft{}, err
	}
	c.store(ctx, saved)
	return saved, nil
}

func (c *Cache) DeleteDraft(ctx context.Context, ownerID, draftID string) error {
	err := c.base.DeleteDraft(ctx, ownerID, draftID)
	c.evict(ctx, ownerID, draftID)
	return err
}

func (c *Cache) EnqueueSubmission(ctx context.Context, userID string, sub domain.Submission) error {
	return c.base.EnqueueSubmission(ctx, userID, sub)
}

func (c *Cache) load(ctx context.Context, ownerID, draftID string) (domain.Draft, bool) {
	if c.redis == nil {
		return domain.Draft{}, false
	}
	key := draftCacheKey(ownerID, draftID)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return domain.Draft{}, false
	}
	var cached cachedDraft
	if err := sonic.Unmarshal(data, &cached); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return domain.Draft{}, false
	}
	cached.Draft.ETag = cached.ETag
	return cached.Draft, true
}

func (c *Cache) store(ctx context.Context, d domain.Draft) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(cachedDraft{Draft: d, ETag: d.ETag})
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, draftCacheKey(d.OwnerID, d.ID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, ownerID, draftID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, draftCacheKey(ownerID, draftID)).Result()
}

func draftCacheKey(ownerID, draftID string) string {
	return "draft:" + ownerID + ":" + draftID
}
