// Package module defines the capability interface every concrete module
// (recognizer, generator, synthesizer, chat bridge, frontend, plugin) must
// satisfy to be driven by the controller, independent of its role.
package module

import (
	"context"

	"github.com/hellocym/SwarmClone/internal/role"
)

// Module is the closed capability interface: {Run, ConfigSchema} plus the
// identity/queue accessors the controller needs to wire routing. Concrete
// recognizer/generator/synthesizer/frontend/plugin implementations all
// satisfy this same interface and are selected by name from a Registry
// populated at startup — never by language-level auto-registration.
type Module interface {
	// Name is the unique instance identifier within a run.
	Name() string
	// Role is the functional category this module fulfills.
	Role() role.Role
	// TaskQueue is the bounded inbound FIFO the router delivers into.
	TaskQueue() *Queue
	// ResultsQueue is the bounded outbound FIFO the module's handler task
	// drains and routes.
	ResultsQueue() *Queue
	// Run is the long-running cooperative operation. It must terminate
	// promptly when ctx is cancelled, releasing any resources it holds.
	Run(ctx context.Context) error
	// ConfigSchema is a static, reflective description of this module's
	// typed configuration fields, feeding the startup_param control-plane
	// operation.
	ConfigSchema() []ConfigField
}

// Factory constructs a Module from a field-wise configuration map. Both the
// map-based path and a fully-typed config object (when a concrete module
// offers one, e.g. llm.New(cfg)) must be equivalent; Factory is simply the
// uniform entry point the Registry stores.
type Factory func(fields map[string]any) (Module, error)
