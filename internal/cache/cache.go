package cache

import (
	"sync"

	"github.com/routekit/editor/v2/pkg/core"
)

// CachedRoute is a saved route held in memory after a load or commit.
type CachedRoute struct {
	Meta   core.RouteMeta
	Points []core.GeoPoint
}

// RouteCache caches saved routes by ID to avoid storage reads when the
// user reopens a route they just committed.
type RouteCache struct {
	m      sync.Mutex
	routes map[uint]CachedRoute
}

func NewRouteCache() *RouteCache {
	return &RouteCache{
		routes: make(map[uint]CachedRoute),
	}
}

func (c *RouteCache) Get(id uint) (CachedRoute, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if r, ok := c.routes[id]; ok {
		return r, true
	}
	return CachedRoute{}, false
}

func (c *RouteCache) Add(r CachedRoute) {
	c.m.Lock()
	defer c.m.Unlock()
	points := make([]core.GeoPoint, len(r.Points))
	copy(points, r.Points)
	r.Points = points
	c.routes[r.Meta.ID] = r
}

func (c *RouteCache) Delete(id uint) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.routes, id)
}

func (c *RouteCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.routes = make(map[uint]CachedRoute)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
