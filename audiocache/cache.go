package audiocache

import (
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Resource is a prepared (or still preparing) audio handle. Construction
// returns immediately; preparation runs in the background and closes
// Ready when it settles, successfully or not.
type Resource interface {
	Key() string
	// Ready is closed once preparation has finished. Duration and Err
	// are only meaningful after that.
	Ready() <-chan struct{}
	// Duration in seconds. Zero or negative means indefinite, as with
	// a live stream.
	Duration() float64
	Err() error
}

// Factory constructs a handle for a media key. It must not block on
// network work; that belongs behind the handle's Ready channel.
type Factory func(mediaKey string) Resource

// Cache keeps a bounded set of prepared audio handles, evicting the
// least recently used key once full. Resolving or preloading a key that
// is already present refreshes its recency without reconstructing it.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, Resource]
	factory Factory
}

func New(size int, factory Factory) (*Cache, error) {
	entries, err := lru.New[string, Resource](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries, factory: factory}, nil
}

// Resolve returns the cached handle for mediaKey, constructing and
// inserting one if absent. Either way the key becomes the most recently
// used entry.
func (c *Cache) Resolve(mediaKey string) Resource {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res, ok := c.entries.Get(mediaKey); ok {
		return res
	}
	res := c.factory(mediaKey)
	if evicted := c.entries.Add(mediaKey, res); evicted {
		slog.Debug("Evicted least recently used audio handle", slog.String("media_key", mediaKey))
	}
	return res
}

// Preload eagerly constructs handles for any keys not already cached,
// in order, applying the eviction policy per insertion. Keys already
// present only have their recency refreshed.
func (c *Cache) Preload(mediaKeys []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range mediaKeys {
		if _, ok := c.entries.Get(key); ok {
			continue
		}
		c.entries.Add(key, c.factory(key))
	}
}

func (c *Cache) Contains(mediaKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Contains(mediaKey)
}

func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Keys()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Purge drops every handle. Used on logout so nothing prepared under
// the old session outlives it.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}
