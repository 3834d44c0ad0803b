package controller

import (
	"sync"

	"github.com/hellocym/SwarmClone/internal/module"
)

// managedModule tracks the controller-side lifecycle state of one attached
// module instance: whether its Run task is live and any terminal error it
// raised. The module itself never mutates these fields — only the
// controller's supervision goroutine does, under mu. All modules share the
// controller's single context; there is no per-module stop in this spec,
// only whole-system start/stop.
type managedModule struct {
	mod module.Module

	mu      sync.Mutex
	running bool
	err     error
}

func newManagedModule(mod module.Module) *managedModule {
	return &managedModule{mod: mod}
}

func (m *managedModule) setRunning(v bool) {
	m.mu.Lock()
	m.running = v
	m.mu.Unlock()
}

func (m *managedModule) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *managedModule) snapshot() (running bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running, m.err
}
