package resource

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Handle is a loaded resource. Close releases the underlying memory.
type Handle interface {
	Close() error
}

// Loader constructs the expensive resource. Called at most once per load.
type Loader func(ctx context.Context) (Handle, error)

// Cache is a process-wide lazy singleton for one expensive resource
// (model weights or an engine handle). One mutex serializes load and
// unload so neither can observe a half-finished transition of the other.
type Cache struct {
	mu     sync.RWMutex
	loaded Handle // nil when empty
	load   Loader
}

// NewCache returns an empty cache backed by the given loader.
func NewCache(load Loader) *Cache {
	return &Cache{load: load}
}

// GetOrCreate returns the cached handle, loading it on first use.
// Concurrent callers block behind the single in-flight load and all
// receive the same handle. A failed load leaves the cache empty so the
// next call retries; failures are never cached.
func (c *Cache) GetOrCreate(ctx context.Context) (Handle, error) {
	c.mu.RLock()
	if h := c.loaded; h != nil {
		c.mu.RUnlock()
		return h, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded != nil {
		return c.loaded, nil
	}
	log.Printf("resource event=load_start")
	h, err := c.load(ctx)
	if err != nil {
		loadFailuresTotal.Inc()
		log.Printf("resource event=load_error err=%v", err)
		return nil, ErrLoadFailed(err)
	}
	c.loaded = h
	loadsTotal.Inc()
	log.Printf("resource event=load_done")
	return h, nil
}

// Unload releases the resource and its underlying memory. Idempotent:
// returns true only when something was actually unloaded.
func (c *Cache) Unload() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded == nil {
		return false
	}
	if err := c.loaded.Close(); err != nil {
		log.Printf("resource event=unload_close_error err=%v", err)
	}
	c.loaded = nil
	unloadsTotal.Inc()
	log.Printf("resource event=unload_done")
	return true
}

// Loaded reports whether a resource is currently cached. Best-effort
// read; the answer may be stale by the time the caller acts on it.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded != nil
}

// loadFailedError wraps the cause of a failed singleton load so the
// HTTP layer can map it to 500 without string matching.
type loadFailedError struct{ cause error }

func (e loadFailedError) Error() string { return fmt.Sprintf("resource load failed: %v", e.cause) }
func (e loadFailedError) Unwrap() error { return e.cause }

// ErrLoadFailed wraps err as a resource load failure.
func ErrLoadFailed(err error) error { return loadFailedError{cause: err} }

// IsLoadFailed reports whether err indicates a failed resource load.
func IsLoadFailed(err error) bool {
	_, ok := err.(loadFailedError)
	return ok
}
