package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a read-through redis cache. Concurrent misses on one key share a
// single load.
type Cache struct {
	RDB    *redis.Client
	prefix string
	sf     singleflight.Group

	// LoadTimeout bounds a shared load. The load does not inherit the
	// cancellation of whichever caller started it.
	LoadTimeout time.Duration
}

func New(addr, pass string, db int, prefix string) *Cache {
	return &Cache{
		RDB:         redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		prefix:      prefix,
		LoadTimeout: 10 * time.Second,
	}
}

func (c *Cache) Ping(ctx context.Context) error { return c.RDB.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.RDB.Close() }

// GetOrLoad returns the cached bytes for key, or runs load and stores its
// result for ttl. Redis read errors fall through to load; write errors are
// ignored. A caller that gives up early gets its own ctx error while the load
// continues for the others waiting on key.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	key = c.prefix + key
	b, err := c.RDB.Get(ctx, key).Bytes()
	if err == nil {
		return b, nil
	}
	ch := c.sf.DoChan(key, func() (any, error) {
		timeout := c.LoadTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		b, e := load(lctx)
		if e != nil {
			return nil, e
		}
		_ = c.RDB.Set(lctx, key, b, ttl).Err()
		return b, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]byte), nil
	}
}

// GetOrLoadJSON is GetOrLoad for a JSON-encoded T.
func GetOrLoadJSON[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var out T
	b, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, e := load(ctx)
		if e != nil {
			return nil, e
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, err
	}
	if e := json.Unmarshal(b, &out); e != nil {
		return out, errors.Join(errors.New("cache: corrupt entry "+key), e)
	}
	return out, nil
}
