package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Resource names used as the first half of a cache key.
const (
	ResourcePosts    = "posts"
	ResourceAccounts = "accounts"
	ResourceProject  = "project"
)

type Key struct {
	Resource string
	Scope    string
}

func (k Key) String() string {
	return k.Resource + ":" + k.Scope
}

type entry struct {
	value     any
	fetchedAt time.Time
}

// FetchCache suppresses redundant reads of slowly changing resources.
// Entries never expire on their own; freshness is checked when read and
// writers call Invalidate after every mutation of the resource.
type FetchCache struct {
	mu      sync.Mutex
	entries map[Key]entry
	// generation is bumped on invalidation so a load that started earlier
	// cannot store a value the writer already made stale.
	generation map[Key]uint64
	group      singleflight.Group
	now        func() time.Time
}

func New(now func() time.Time) *FetchCache {
	if now == nil {
		now = time.Now
	}
	return &FetchCache{
		entries:    make(map[Key]entry),
		generation: make(map[Key]uint64),
		now:        now,
	}
}

// Get returns the cached value for key when it is younger than ttl and
// otherwise calls loader. Concurrent misses for one key share a single
// loader call. Loader errors are returned and not cached.
func Get[T any](ctx context.Context, c *FetchCache, key Key, ttl time.Duration, loader func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Sub(e.fetchedAt) < ttl {
		c.mu.Unlock()
		v, ok := e.value.(T)
		if !ok {
			return zero, fmt.Errorf("cache entry %s holds %T", key, e.value)
		}
		return v, nil
	}
	gen, seen := c.generation[key]
	if !seen {
		c.generation[key] = 0
	}
	c.mu.Unlock()

	// Waiters share the load, so one caller going away must not fail the rest.
	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		value, err := loader(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generation[key] == gen {
			c.entries[key] = entry{value: value, fetchedAt: c.now()}
		} else {
			slog.Debug("discarding cache load started before invalidation", "key", key.String())
		}
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache loader for %s returned %T", key, v)
	}
	return value, nil
}

// Invalidate forces the next Get for key to reload.
func (c *FetchCache) Invalidate(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
		c.generation[key]++
		c.group.Forget(key.String())
	}
}

// InvalidateResource drops every scope cached for resource.
func (c *FetchCache) InvalidateResource(resource string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.generation {
		if key.Resource == resource {
			delete(c.entries, key)
			c.generation[key]++
			c.group.Forget(key.String())
		}
	}
}

func PostsKey(projectID string) Key {
	return Key{Resource: ResourcePosts, Scope: projectID}
}

func AccountsKey(clientID, projectID string) Key {
	return Key{Resource: ResourceAccounts, Scope: clientID + "/" + projectID}
}

func ProjectKey(projectID string) Key {
	return Key{Resource: ResourceProject, Scope: projectID}
}
