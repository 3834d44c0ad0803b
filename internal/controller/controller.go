// Package controller implements the module lifecycle supervisor and message
// router: the Controller holds the live module set indexed by role, drives
// routing from each module's results_queue back out to every destination
// role's task_queue, retains a bounded history of routed messages, and
// exposes the control-plane operations of §6 as plain Go methods (the HTTP
// binding in internal/httpapi is a thin adapter over these).
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hellocym/SwarmClone/internal/module"
	"github.com/hellocym/SwarmClone/internal/registry"
	"github.com/hellocym/SwarmClone/internal/role"
	"github.com/hellocym/SwarmClone/internal/trace"
)

// handlerPollInterval is how often a module's handler task polls an empty
// results_queue before trying again; it is also the scheduler-step sleep a
// module's own Run loop should use between task_queue polls (§4.3
// "sleep ≈100ms when idle").
const handlerPollInterval = 100 * time.Millisecond

// Controller supervises the module set and drives routing. Its module map is
// mutated only under mu and its history buffer only under the history's own
// lock, so the type is safe to call
// concurrently from the HTTP control-plane adapter and from the internal
// per-module handler goroutines.
type Controller struct {
	Version string

	reg *registry.Registry
	log *slog.Logger

	mu      sync.Mutex
	modules map[role.Role][]*managedModule
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	hist *history

	// traceStore is the optional turn-trace backend; tracer and sessionID
	// are the live session's handle onto it, created in Start and closed in
	// Stop. A nil traceStore keeps every module's tracer nil, a no-op.
	traceStore *trace.Store
	tracer     *trace.Tracer
	sessionID  string
}

// New constructs a Controller bound to a Registry. The registry must already
// be fully populated — see design notes on Registry lifecycle (built once at
// startup, frozen before Start is first called).
func New(reg *registry.Registry, version string, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		Version: version,
		reg:     reg,
		log:     log,
		modules: make(map[role.Role][]*managedModule),
		hist:    newHistory(),
	}
}

// attach validates and adds a constructed module to the live set, enforcing
// the registration constraints of §4.2: at most one LLM, and no
// CONTROLLER/unspecified role.
func (c *Controller) attach(mod module.Module) error {
	if !mod.Role().Valid() {
		return fmt.Errorf("attach %s: %w", mod.Name(), module.ErrInvalidRole)
	}
	if mod.Role() == role.LLM && len(c.modules[role.LLM]) > 0 {
		return fmt.Errorf("attach %s: %w: an LLM module is already live", mod.Name(), module.ErrConfigConflict)
	}
	c.modules[mod.Role()] = append(c.modules[mod.Role()], newManagedModule(mod))
	return nil
}

// liveModulesOf returns every attached module of a role (for routing).
func (c *Controller) liveModulesOf(r role.Role) []*managedModule {
	return c.modules[r]
}

// SetTraceStore attaches the optional turn-trace backend. Called once at
// boot, before the first Start; a nil store (the default) leaves tracing
// off entirely.
func (c *Controller) SetTraceStore(store *trace.Store) {
	c.mu.Lock()
	c.traceStore = store
	c.mu.Unlock()
}

// Module returns a live attached module by role and name, for control-plane
// adapters that need to call directly into a module's own methods (sidecar
// start/stop/status) rather than routing a message.
func (c *Controller) Module(r role.Role, name string) (module.Module, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, mm := range c.modules[r] {
		if mm.mod.Name() == name {
			return mm.mod, true
		}
	}
	return nil, false
}
