package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HyunGyu-Cho/CapstonDesign-final-sub001/internal/domain"
)

const (
	defaultTTL      = 10 * time.Minute
	maxWatchRetries = 5
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func latestKey(userID int64, kind domain.Kind) string {
	return fmt.Sprintf("rec:user:%d:kind:%s", userID, kind)
}

func videoKey(category, query string) string {
	return fmt.Sprintf("video:%s:%s", category, strings.ToLower(strings.Join(strings.Fields(query), " ")))
}

// GetLatest returns the cached newest result of a kind, or nil on a miss.
func (c *Cache) GetLatest(ctx context.Context, userID int64, kind domain.Kind) (*domain.Recommendation, error) {
	var rec domain.Recommendation
	found, err := c.getJSON(ctx, latestKey(userID, kind), &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// SetLatest stores rec as the newest result of its kind unless the cached
// entry is already newer. The check and the write run under WATCH, so
// concurrent writers cannot replace a newer entry with an older one.
func (c *Cache) SetLatest(ctx context.Context, rec *domain.Recommendation) error {
	key := latestKey(rec.UserID, rec.Kind)
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil && !replaces(rec, current) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, val, c.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err = c.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// replaces reports whether rec should overwrite the cached JSON. Entries that
// no longer decode are always replaced.
func replaces(rec *domain.Recommendation, cached string) bool {
	var current domain.Recommendation
	if err := json.Unmarshal([]byte(cached), &current); err != nil {
		return true
	}
	return rec.NewerThan(&current)
}

// Clear user cache
func (c *Cache) ClearUserCache(ctx context.Context, userID int64) error {
	pattern := fmt.Sprintf("rec:user:%d:kind:*", userID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache delete %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

func (c *Cache) GetVideo(ctx context.Context, category, query string) (string, bool, error) {
	var link string
	found, err := c.getJSON(ctx, videoKey(category, query), &link)
	return link, found, err
}

func (c *Cache) SetVideo(ctx context.Context, category, query, link string, ttl time.Duration) error {
	return c.setJSON(ctx, videoKey(category, query), link, ttl)
}

// Ping connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) getJSON(ctx context.Context, key string, out any) (bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false, fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	val, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, val, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}
