package controller

import (
	"github.com/hellocym/SwarmClone/internal/message"
	"github.com/hellocym/SwarmClone/internal/module"
	"github.com/hellocym/SwarmClone/internal/role"
)

// GetVersion implements the get_version control-plane operation.
func (c *Controller) GetVersion() string {
	return c.Version
}

// StatusEntry is one row of the get_status response.
type StatusEntry struct {
	Role       role.Role `json:"role"`
	ModuleName string    `json:"module_name"`
	Running    bool      `json:"running"`
	Loaded     bool      `json:"loaded"`
	Err        string    `json:"err,omitempty"`
}

// GetStatus implements the get_status control-plane operation: one entry
// per currently-attached module instance (loaded is always true for
// attached instances — there is no notion of a "known but unloaded"
// instance in this design, only registered-but-never-instantiated kinds,
// which StartupParam reports instead).
func (c *Controller) GetStatus() []StatusEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []StatusEntry
	for _, r := range role.All() {
		for _, mm := range c.modules[r] {
			running, err := mm.snapshot()
			entry := StatusEntry{Role: r, ModuleName: mm.mod.Name(), Running: running, Loaded: true}
			if err != nil {
				entry.Err = err.Error()
			}
			out = append(out, entry)
		}
	}
	return out
}

// ParamField mirrors module.ConfigField on the wire, with string-typed
// values pre-escaped per §6's configuration-transport contract.
type ParamField struct {
	Name      string             `json:"name"`
	Type      module.FieldKind   `json:"type"`
	Desc      string             `json:"desc"`
	Required  bool               `json:"required"`
	Default   any                `json:"default"`
	Options   []string           `json:"options,omitempty"`
	Min       *float64           `json:"min,omitempty"`
	Max       *float64           `json:"max,omitempty"`
	Step      *float64           `json:"step,omitempty"`
	Password  bool               `json:"password,omitempty"`
	Multiline bool               `json:"multiline,omitempty"`
}

// ParamEntry is one registered module kind's schema, as returned per role
// by startup_param.
type ParamEntry struct {
	ModuleName string       `json:"module_name"`
	Desc       string       `json:"desc"`
	Config     []ParamField `json:"config"`
}

// StartupParam implements the startup_param control-plane operation,
// listing every registered module kind (not just attached instances) per
// role, with string defaults escaped for wire transport.
func (c *Controller) StartupParam() map[role.Role][]ParamEntry {
	out := make(map[role.Role][]ParamEntry)
	for r, entries := range c.reg.All() {
		list := make([]ParamEntry, 0, len(entries))
		for _, e := range entries {
			fields := make([]ParamField, 0, len(e.Schema))
			for _, f := range e.Schema {
				def := f.Default
				if s, ok := def.(string); ok {
					def = message.EscapeAll(s)
				}
				fields = append(fields, ParamField{
					Name: f.Name, Type: f.Kind, Desc: f.Desc, Required: f.Required,
					Default: def, Options: f.Options, Min: f.Min, Max: f.Max, Step: f.Step,
					Password: f.Password, Multiline: f.Multiline,
				})
			}
			list = append(list, ParamEntry{ModuleName: e.Name, Desc: e.Desc, Config: fields})
		}
		out[r] = list
	}
	return out
}

// GetMessages implements the get_messages control-plane operation: returns
// and clears the internal message history buffer.
func (c *Controller) GetMessages() []message.DictEntry {
	return c.hist.drain()
}

// controllerSource is the CONTROLLER pseudo-role source used for messages
// the controller synthesizes itself (the synthetic `api` injection below).
var controllerSource = message.Source{Role: role.CONTROLLER, Name: "controller"}

// InjectAPI implements the `api` control-plane operation for module="ASR":
// emits an ASRActivated followed by an ASRMessage as if produced by a real
// recognizer, routing both through the normal router path.
func (c *Controller) InjectAPI(speakerName, text string) {
	c.route(message.NewASRActivated(controllerSource))
	c.route(message.NewASRMessage(controllerSource, speakerName, text))
}
