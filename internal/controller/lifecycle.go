package controller

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hellocym/SwarmClone/internal/module"
	"github.com/hellocym/SwarmClone/internal/role"
	"github.com/hellocym/SwarmClone/internal/trace"
)

// traceable is implemented by modules that accept an optional per-session
// trace.Tracer. Start calls SetTracer on every newly built module that
// satisfies it, before supervise launches its Run goroutine, so there is no
// race between the setter and the module's first read of the field.
type traceable interface {
	SetTracer(*trace.Tracer)
}

// StartSpec is one role/name/field-map triple drawn from a start request's
// cfg, restricted to the names in its selected list.
type StartSpec struct {
	Role   role.Role
	Name   string
	Fields map[string]any
}

// Start implements the start control-plane operation: stop any live
// modules, clear state, instantiate every spec from the registry, attach
// them, and launch them. It is idempotent in the sense required by §8's
// restart property — calling Start again after Stop with a different cfg
// yields a system with only the new modules live.
//
// unknown lists any requested name the registry does not recognize under
// its claimed role; when non-empty, Start performs no instantiation at all
// (matching the 404 contract: no partial start).
func (c *Controller) Start(specs []StartSpec) (unknown []string, err error) {
	for _, s := range specs {
		if _, ok := c.reg.Lookup(s.Role, s.Name); !ok {
			unknown = append(unknown, s.Name)
		}
	}
	if len(unknown) > 0 {
		return unknown, nil
	}

	c.Stop()

	built := make([]module.Module, 0, len(specs))
	for _, s := range specs {
		entry, _ := c.reg.Lookup(s.Role, s.Name)
		mod, cerr := entry.Factory(s.Fields)
		if cerr != nil {
			return nil, fmt.Errorf("construct %s/%s: %w: %v", s.Role, s.Name, module.ErrConstruction, cerr)
		}
		built = append(built, mod)
	}

	c.mu.Lock()
	for _, mod := range built {
		if aerr := c.attach(mod); aerr != nil {
			c.modules = make(map[role.Role][]*managedModule)
			c.mu.Unlock()
			return nil, aerr
		}
	}

	if c.traceStore != nil {
		sessionID := uuid.NewString()
		if serr := c.traceStore.CreateSession(sessionID, ""); serr != nil {
			c.log.Warn("trace session create failed", "error", serr)
		}
		c.sessionID = sessionID
		c.tracer = trace.NewTracer(c.traceStore, sessionID)
	}
	for _, mod := range built {
		if tm, ok := mod.(traceable); ok {
			tm.SetTracer(c.tracer)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.ctx = ctx
	c.cancel = cancel
	for _, list := range c.modules {
		for _, mm := range list {
			c.supervise(ctx, mm)
		}
	}
	c.mu.Unlock()

	return nil, nil
}

// Stop cancels every module and handler task, waits for them to observe
// cancellation, and clears the history buffer. It does not hold the
// controller's mutex while waiting: the handler goroutines it is waiting on
// may themselves need that mutex (inside route) to drain their last
// messages before observing cancellation, so holding it here would
// deadlock.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()

	c.mu.Lock()
	c.modules = make(map[role.Role][]*managedModule)
	c.ctx, c.cancel = nil, nil
	tracer, traceStore, sessionID := c.tracer, c.traceStore, c.sessionID
	c.tracer, c.sessionID = nil, ""
	c.mu.Unlock()

	c.hist.clear()

	if tracer != nil {
		tracer.Close()
	}
	if traceStore != nil && sessionID != "" {
		if err := traceStore.EndSession(sessionID); err != nil {
			c.log.Warn("trace session end failed", "error", err)
		}
	}
}
