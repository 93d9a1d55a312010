package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyNamespace = "storefront"

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
}

// RedisDeviceCache is the identity cache kept in Redis. Entries do not expire.
type RedisDeviceCache struct {
	store cmdable
	raw   *redis.Client
}

// NewRedisDeviceCache connects to redisURL and verifies the connection.
func NewRedisDeviceCache(ctx context.Context, redisURL string) (*RedisDeviceCache, error) {
	if redisURL == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisDeviceCache{store: raw, raw: raw}, nil
}

func deviceKey(deviceID string) string {
	return fmt.Sprintf("%s:device:%s", keyNamespace, deviceID)
}

func (c *RedisDeviceCache) Lookup(ctx context.Context, deviceID string) (string, bool, error) {
	uid, err := c.store.Get(ctx, deviceKey(deviceID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return uid, true, nil
}

// Remember stores the device's account and returns the account the device is
// bound to afterwards. The first write for a device wins.
func (c *RedisDeviceCache) Remember(ctx context.Context, deviceID, uid string) (string, error) {
	set, err := c.store.SetNX(ctx, deviceKey(deviceID), uid, 0).Result()
	if err != nil {
		return "", err
	}
	if set {
		return uid, nil
	}
	stored, ok, err := c.Lookup(ctx, deviceID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("device %s: key vanished after conflict", deviceID)
	}
	return stored, nil
}

func (c *RedisDeviceCache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx).Err()
}

func (c *RedisDeviceCache) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}
