package gate

import (
	"sort"
	"sync"

	"github.com/viant/authgate/menu"
)

// Route is an addressable navigation target.
type Route struct {
	Path         string
	Name         string
	Title        string
	Component    string
	RequiresAuth bool
	// Menu carries the originating authorization entry for dynamic routes.
	Menu *menu.Item
}

// Registry is the navigation table: static routes registered at startup
// plus authorization-scoped routes installed once per authenticated
// session. Dynamic entries never shadow static ones.
type Registry struct {
	mu      sync.RWMutex
	static  map[string]*Route
	dynamic map[string]*Route
}

// reserved paths the dynamic installer must never override.
var reserved = map[string]bool{"/403": true, "/404": true, "/500": true}

// NewRegistry creates a registry with the given static routes.
func NewRegistry(routes ...*Route) *Registry {
	r := &Registry{static: map[string]*Route{}, dynamic: map[string]*Route{}}
	for _, route := range routes {
		r.Register(route)
	}
	return r
}

// Register adds a static route.
func (r *Registry) Register(route *Route) {
	if route == nil || route.Path == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.static[route.Path] = route
}

// InstallMenu registers authorization-scoped routes derived from the menu
// tree, returning how many entries were installed.
func (r *Registry) InstallMenu(items []*menu.Item) int {
	flattened := menu.Flatten(items)
	r.mu.Lock()
	defer r.mu.Unlock()
	installed := 0
	for _, item := range flattened {
		path := item.RoutePath()
		if path == "" || reserved[path] {
			continue
		}
		if _, ok := r.static[path]; ok {
			continue
		}
		r.dynamic[path] = &Route{
			Path:         path,
			Name:         item.Name,
			Title:        item.Title,
			Component:    item.Component,
			RequiresAuth: true,
			Menu:         item,
		}
		installed++
	}
	return installed
}

// InvalidateMenu drops every dynamic route, forcing a re-fetch on the
// next authenticated session.
func (r *Registry) InvalidateMenu() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dynamic = map[string]*Route{}
}

// Resolve looks a path up, static routes first.
func (r *Registry) Resolve(path string) (*Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if route, ok := r.static[path]; ok {
		return route, true
	}
	if route, ok := r.dynamic[path]; ok {
		return route, true
	}
	return nil, false
}

// Paths returns every registered path, sorted, for diagnostics.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.static)+len(r.dynamic))
	for path := range r.static {
		out = append(out, path)
	}
	for path := range r.dynamic {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}
