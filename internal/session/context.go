package session

import (
	"sync"
	"time"

	"github.com/routekit/editor/v2/pkg/core"
)

// Context holds the identity of the route being edited and the global
// editing mode
type Context struct {
	mu        sync.RWMutex
	Meta      core.RouteMeta
	Mode      core.EditingMode
	StartedAt time.Time
	active    bool
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		Meta: core.RouteMeta{Name: "Untitled route"},
		Mode: core.ModeAdd,
	}
}

// GetMeta returns the current route identity
func (sc *Context) GetMeta() core.RouteMeta {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Meta
}

// SetMeta sets the current route identity
func (sc *Context) SetMeta(meta core.RouteMeta) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Meta = meta
}

// GetMode returns the current editing mode
func (sc *Context) GetMode() core.EditingMode {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Mode
}

// SetMode sets the current editing mode
func (sc *Context) SetMode(mode core.EditingMode) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Mode = mode
}

// CycleMode advances to the next editing mode and returns it
func (sc *Context) CycleMode() core.EditingMode {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Mode = sc.Mode.Cycle()
	return sc.Mode
}

// Begin marks the session active under the given route identity
func (sc *Context) Begin(meta core.RouteMeta, now time.Time) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Meta = meta
	sc.StartedAt = now
	sc.active = true
}

// End marks the session inactive
func (sc *Context) End() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.active = false
}

// Active reports whether an editing session is in progress
func (sc *Context) Active() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.active
}

// Started returns when the active session began
func (sc *Context) Started() time.Time {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.StartedAt
}
