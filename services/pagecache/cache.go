// Package pagecache caches page data by route until a mutation revalidates the route.
package pagecache

import (
	"sync"
	"time"

	"github.com/trezcool/mwalimu/core"
)

type entry struct {
	data     interface{}
	storedAt time.Time
}

type Cache struct {
	mu          sync.RWMutex
	entries     map[string]entry
	generations map[string]uint64
	ttl         time.Duration // 0: no expiry
	now         func() time.Time
	logger      core.Logger // optional
}

var _ core.PageCache = (*Cache)(nil)

// New returns a cache whose entries expire after ttl, so that edits made by other processes
// (e.g. the admin CLI) show up eventually. A zero ttl keeps entries until revalidated.
func New(logger core.Logger, ttl time.Duration) *Cache {
	return &Cache{
		entries:     make(map[string]entry),
		generations: make(map[string]uint64),
		ttl:         ttl,
		now:         time.Now,
		logger:      logger,
	}
}

func (c *Cache) Get(path string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[path]
	if !ok || c.expired(e) {
		return nil, false
	}
	return e.data, true
}

func (c *Cache) expired(e entry) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl
}

func (c *Cache) Set(path string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = entry{data: data, storedAt: c.now()}
}

// Generation is the number of times path has been revalidated.
func (c *Cache) Generation(path string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generations[path]
}

// SetIfCurrent stores data only if path was not revalidated since gen was read.
func (c *Cache) SetIfCurrent(path string, gen uint64, data interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[path] != gen {
		return false
	}
	c.entries[path] = entry{data: data, storedAt: c.now()}
	return true
}

// Revalidate drops the cached data of path.
func (c *Cache) Revalidate(path string) {
	c.mu.Lock()
	_, ok := c.entries[path]
	delete(c.entries, path)
	c.generations[path]++
	c.mu.Unlock()

	if ok && c.logger != nil {
		c.logger.Debug("page revalidated", map[string]interface{}{"path": path})
	}
}

// Len is the number of cached pages, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Recorder is a Revalidator that records revalidated paths (tests).
type Recorder struct {
	*Cache

	mu    sync.Mutex
	paths []string
}

var _ core.PageCache = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{Cache: New(nil, 0)}
}

func (r *Recorder) Revalidate(path string) {
	r.Cache.Revalidate(path)
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

// Paths returns the revalidated paths, in call order.
func (r *Recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.paths = nil
	r.mu.Unlock()
}
