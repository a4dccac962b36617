package cart

import (
	"context"
	"sync"
	"time"
)

type taskEntry struct {
	done    chan struct{}
	value   any
	err     error
	expires time.Time
}

// TaskCache de-duplicates asynchronous per-row lookups. Concurrent callers
// for the same row/task share one in-flight operation; completed results
// are reused until their TTL lapses unless a forced refresh is requested.
type TaskCache struct {
	mu      sync.Mutex
	entries map[string]*taskEntry
	TTL     time.Duration
}

// NewTaskCache constructs a cache with the provided result TTL.
func NewTaskCache(ttl time.Duration) *TaskCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &TaskCache{entries: make(map[string]*taskEntry), TTL: ttl}
}

// Do runs fn once per rowID/task pair. While fn is in flight every caller
// with the same pair blocks on the same result. force discards any cached
// or in-flight entry and starts fresh.
func (c *TaskCache) Do(ctx context.Context, rowID, task string, force bool, fn func(context.Context) (any, error)) (any, error) {
	key := rowID + "\x00" + task

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && !force {
		select {
		case <-entry.done:
			if time.Now().Before(entry.expires) {
				c.mu.Unlock()
				return entry.value, entry.err
			}
			delete(c.entries, key)
		default:
			c.mu.Unlock()
			select {
			case <-entry.done:
				return entry.value, entry.err
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	entry := &taskEntry{done: make(chan struct{})}
	c.entries[key] = entry
	c.mu.Unlock()

	value, err := fn(ctx)

	c.mu.Lock()
	entry.value = value
	entry.err = err
	entry.expires = time.Now().Add(c.TTL)
	close(entry.done)
	c.mu.Unlock()
	return value, err
}

// Evict drops every cached entry for the given row.
func (c *TaskCache) Evict(rowID string) {
	prefix := rowID + "\x00"
	c.mu.Lock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}
