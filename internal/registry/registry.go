// Package registry holds the explicit, process-constructed table of
// (role, name) -> module.Factory. It replaces the reference implementation's
// metaclass-driven auto-registration (see design notes): nothing registers
// itself as a side effect of being defined, and the registry is built once,
// by name, at process startup, then frozen before the controller is ever
// asked to start a module.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hellocym/SwarmClone/internal/module"
	"github.com/hellocym/SwarmClone/internal/role"
)

type key struct {
	role role.Role
	name string
}

// Entry is one registered module kind: its factory plus a static
// description used to answer startup_param without constructing an
// instance.
type Entry struct {
	Role    role.Role
	Name    string
	Desc    string
	Factory module.Factory
	Schema  []module.ConfigField
}

// Registry is the explicit, mutable-only-at-startup table modules register
// into. It is safe for concurrent reads after construction; Register itself
// is expected to be called from a single goroutine during boot.
type Registry struct {
	mu      sync.RWMutex
	entries map[key]Entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[key]Entry)}
}

// Register adds a module kind under (role, name). Calling it twice for the
// same (role, name) overwrites the previous entry, matching a rebuild at
// startup rather than raising — registration-time conflicts are a
// programmer error in process wiring, not a runtime control-plane concern
// (that's ConfigConflict, enforced by the controller when *instantiating*
// a second LLM).
func (r *Registry) Register(e Entry) error {
	if !e.Role.Valid() {
		return fmt.Errorf("registry: %w: role %q", module.ErrInvalidRole, e.Role)
	}
	if e.Name == "" {
		return fmt.Errorf("registry: module name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key{e.Role, e.Name}] = e
	return nil
}

// Lookup finds a registered module kind by role and name.
func (r *Registry) Lookup(ro role.Role, name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key{ro, name}]
	return e, ok
}

// ByRole returns every entry registered under a role, sorted by name for
// stable control-plane output.
func (r *Registry) ByRole(ro role.Role) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0)
	for k, e := range r.entries {
		if k.role == ro {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// All returns every registered entry, keyed by each role in role.All(), with
// each role's entries sorted by name.
func (r *Registry) All() map[role.Role][]Entry {
	out := make(map[role.Role][]Entry)
	for _, ro := range role.All() {
		out[ro] = r.ByRole(ro)
	}
	return out
}
