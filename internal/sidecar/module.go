// Package sidecar is a PLUGIN-role module that manages out-of-process ML
// sidecars (synthesis backends, embedding backends) through a small
// HTTP control protocol: POST /start, POST /stop, GET /status, GET
// <health_url>. It is the same start/stop/probe shape the reference
// orchestrator's host-process control manager uses, wired here as a
// regular module instead of a deployment-only component.
package sidecar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hellocym/SwarmClone/internal/module"
	"github.com/hellocym/SwarmClone/internal/role"
)

// Status is the lifecycle state of one registered sidecar.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusHealthy Status = "healthy"
)

// Entry describes one managed sidecar's control endpoints.
type Entry struct {
	Name       string
	ControlURL string
	HealthURL  string
}

// Info is a point-in-time snapshot of one sidecar's state.
type Info struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
}

type Config struct {
	Entries []Entry
}

func DefaultConfig() Config { return Config{} }

func Schema() []module.ConfigField {
	return []module.ConfigField{
		{Name: "sidecar_1_name", Kind: module.KindString, Desc: "first managed sidecar's name"},
		{Name: "sidecar_1_control_url", Kind: module.KindString, Desc: "first managed sidecar's control URL"},
		{Name: "sidecar_1_health_url", Kind: module.KindString, Desc: "first managed sidecar's health URL"},
		{Name: "sidecar_2_name", Kind: module.KindString, Desc: "second managed sidecar's name"},
		{Name: "sidecar_2_control_url", Kind: module.KindString, Desc: "second managed sidecar's control URL"},
		{Name: "sidecar_2_health_url", Kind: module.KindString, Desc: "second managed sidecar's health URL"},
	}
}

func ConfigFromFields(fields map[string]any) (Config, error) {
	var c Config
	for _, n := range []string{"1", "2"} {
		name, _ := fields["sidecar_"+n+"_name"].(string)
		if name == "" {
			continue
		}
		control, _ := fields["sidecar_"+n+"_control_url"].(string)
		health, _ := fields["sidecar_"+n+"_health_url"].(string)
		c.Entries = append(c.Entries, Entry{Name: name, ControlURL: control, HealthURL: health})
	}
	return c, nil
}

// Module manages sidecar lifecycle through direct method calls (Start,
// Stop, StatusAll), the same way kb.Module is called directly by the LLM
// module rather than through task_queue: PLUGIN modules are services
// other code calls into.
type Module struct {
	module.Base
	cfg     Config
	cli     *http.Client
	entries map[string]Entry
	log     *slog.Logger
}

func New(name string, cfg Config) *Module {
	entries := make(map[string]Entry, len(cfg.Entries))
	for _, e := range cfg.Entries {
		entries[e.Name] = e
	}
	return &Module{
		Base:    module.NewBase(name, role.PLUGIN),
		cfg:     cfg,
		cli:     &http.Client{Timeout: 30 * time.Second},
		entries: entries,
		log:     slog.Default().With("role", role.PLUGIN, "module", name),
	}
}

func Factory(name string) func(fields map[string]any) (module.Module, error) {
	return func(fields map[string]any) (module.Module, error) {
		cfg, err := ConfigFromFields(fields)
		if err != nil {
			return nil, err
		}
		return New(name, cfg), nil
	}
}

func (m *Module) ConfigSchema() []module.ConfigField { return Schema() }

// Run idles: sidecars are driven by explicit Start/Stop calls, not by
// messages on task_queue.
func (m *Module) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (m *Module) Start(ctx context.Context, name string) error {
	e, ok := m.entries[name]
	if !ok {
		return fmt.Errorf("sidecar: %q not registered", name)
	}
	if e.ControlURL == "" {
		return fmt.Errorf("sidecar: %q has no control URL", name)
	}
	return m.post(ctx, e.ControlURL+"/start")
}

func (m *Module) Stop(ctx context.Context, name string) error {
	e, ok := m.entries[name]
	if !ok {
		return fmt.Errorf("sidecar: %q not registered", name)
	}
	if e.ControlURL == "" {
		return fmt.Errorf("sidecar: %q has no control URL", name)
	}
	return m.post(ctx, e.ControlURL+"/stop")
}

func (m *Module) post(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	resp, err := m.cli.Do(req)
	if err != nil {
		return fmt.Errorf("sidecar: control request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (m *Module) Status(ctx context.Context, name string) (Info, error) {
	e, ok := m.entries[name]
	if !ok {
		return Info{}, fmt.Errorf("sidecar: %q not registered", name)
	}
	info := Info{Name: name, Status: StatusStopped}
	if e.ControlURL == "" {
		return info, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.ControlURL+"/status", nil)
	if err != nil {
		return info, nil
	}
	resp, err := m.cli.Do(req)
	if err != nil {
		return info, nil
	}
	defer resp.Body.Close()

	var result struct {
		Running bool `json:"running"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || !result.Running {
		return info, nil
	}
	info.Status = StatusRunning

	if e.HealthURL != "" && m.probeHealth(ctx, e.HealthURL) {
		info.Status = StatusHealthy
	}
	return info, nil
}

func (m *Module) StatusAll(ctx context.Context) []Info {
	out := make([]Info, 0, len(m.cfg.Entries))
	for _, e := range m.cfg.Entries {
		info, err := m.Status(ctx, e.Name)
		if err != nil {
			m.log.Warn("sidecar status failed", "sidecar", e.Name, "error", err)
			continue
		}
		out = append(out, info)
	}
	return out
}

func (m *Module) probeHealth(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := m.cli.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
