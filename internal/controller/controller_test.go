package controller

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hellocym/SwarmClone/internal/module"
	"github.com/hellocym/SwarmClone/internal/registry"
	"github.com/hellocym/SwarmClone/internal/role"
)

// stubModule is a minimal module.Module for exercising attach/start/stop
// without any real ASR/LLM/TTS backend.
type stubModule struct {
	module.Base
	running atomic.Bool
}

func newStub(name string, r role.Role) *stubModule {
	return &stubModule{Base: module.NewBase(name, r)}
}

func (s *stubModule) ConfigSchema() []module.ConfigField { return nil }

func (s *stubModule) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)
	<-ctx.Done()
	return nil
}

func newTestRegistry() *registry.Registry {
	reg := registry.New()
	reg.Register(registry.Entry{
		Role: role.ASR, Name: "stub_a",
		Factory: func(map[string]any) (module.Module, error) { return newStub("stub_a", role.ASR), nil },
	})
	reg.Register(registry.Entry{
		Role: role.CHAT, Name: "stub_b",
		Factory: func(map[string]any) (module.Module, error) { return newStub("stub_b", role.CHAT), nil },
	})
	return reg
}

func waitForStatusCount(t *testing.T, c *Controller, want int) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if len(c.GetStatus()) == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("GetStatus never reached %d entries, last = %v", want, c.GetStatus())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// TestStartIsIdempotentAcrossRestart checks §8's restart property: calling
// Start again after a previous Start yields a system with only the new
// selection live, not a superset of old and new modules.
func TestStartIsIdempotentAcrossRestart(t *testing.T) {
	reg := newTestRegistry()
	c := New(reg, "test", slog.Default())

	unknown, err := c.Start([]StartSpec{{Role: role.ASR, Name: "stub_a"}})
	if err != nil || len(unknown) != 0 {
		t.Fatalf("first Start failed: unknown=%v err=%v", unknown, err)
	}
	waitForStatusCount(t, c, 1)

	unknown, err = c.Start([]StartSpec{{Role: role.CHAT, Name: "stub_b"}})
	if err != nil || len(unknown) != 0 {
		t.Fatalf("second Start failed: unknown=%v err=%v", unknown, err)
	}
	waitForStatusCount(t, c, 1)

	status := c.GetStatus()
	if status[0].ModuleName != "stub_b" {
		t.Errorf("expected restart to leave only the new module live, got %+v", status)
	}

	c.Stop()
	waitForStatusCount(t, c, 0)
}

// TestStartRejectsUnknownWithoutPartialStart checks the "no partial start"
// contract: a request naming an unrecognized module must leave the
// previously-live set untouched.
func TestStartRejectsUnknownWithoutPartialStart(t *testing.T) {
	reg := newTestRegistry()
	c := New(reg, "test", slog.Default())

	_, err := c.Start([]StartSpec{{Role: role.ASR, Name: "stub_a"}})
	if err != nil {
		t.Fatalf("initial Start failed: %v", err)
	}
	waitForStatusCount(t, c, 1)

	unknown, err := c.Start([]StartSpec{{Role: role.ASR, Name: "does_not_exist"}})
	if err != nil {
		t.Fatalf("Start with unknown module should not error, got: %v", err)
	}
	if len(unknown) != 1 || unknown[0] != "does_not_exist" {
		t.Fatalf("expected unknown = [does_not_exist], got %v", unknown)
	}

	status := c.GetStatus()
	if len(status) != 1 || status[0].ModuleName != "stub_a" {
		t.Errorf("expected previously-live module set untouched after a rejected start, got %+v", status)
	}

	c.Stop()
}
