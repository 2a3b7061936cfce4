package server

import (
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/google/uuid"
	"github.com/vasilisp/pagechat/internal/panel"
	"go.uber.org/zap"
)

// registry keeps the open panels. The least recently used panel is closed
// once more than max are open.
type registry struct {
	mu    sync.Mutex
	cache *lru.Cache
}

func newRegistry(maxPanels int, log *zap.Logger) *registry {
	cache := lru.New(maxPanels)
	cache.OnEvicted = func(key lru.Key, _ interface{}) {
		log.Debug("panel closed", zap.Any("id", key))
	}
	return &registry{cache: cache}
}

func (r *registry) add(c *panel.Controller) string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Add(id, c)
	return id
}

func (r *registry) get(id string) (*panel.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	value, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	return value.(*panel.Controller), true
}

func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cache.Get(id); !ok {
		return false
	}
	r.cache.Remove(id)
	return true
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
