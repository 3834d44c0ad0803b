package modules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hellocym/SwarmClone/internal/message"
	"github.com/hellocym/SwarmClone/internal/module"
	"github.com/hellocym/SwarmClone/internal/role"
)

// ChatDummyConfig configures the synthetic chat-platform source.
type ChatDummyConfig struct {
	Interval time.Duration
}

func DefaultChatDummyConfig() ChatDummyConfig {
	return ChatDummyConfig{Interval: 20 * time.Second}
}

func ChatDummySchema() []module.ConfigField {
	d := DefaultChatDummyConfig()
	return []module.ConfigField{
		{Name: "interval", Kind: module.KindFloat, Default: d.Interval.Seconds(), Desc: "seconds between synthetic chat messages", Min: module.Float(1), Max: module.Float(3600), Step: module.Float(1)},
	}
}

// ChatDummy periodically emits a ChatMessage, standing in for a live-chat
// platform bridge (e.g. a streaming site's comment feed).
type ChatDummy struct {
	module.Base
	cfg ChatDummyConfig
	log *slog.Logger
	n   int
}

func NewChatDummy(name string, cfg ChatDummyConfig) *ChatDummy {
	return &ChatDummy{
		Base: module.NewBase(name, role.CHAT),
		cfg:  cfg,
		log:  slog.Default().With("role", role.CHAT, "module", name),
	}
}

func ChatDummyFactory(name string) func(fields map[string]any) (module.Module, error) {
	return func(fields map[string]any) (module.Module, error) {
		cfg := DefaultChatDummyConfig()
		if v, ok := fields["interval"]; ok {
			if f, ok := v.(float64); ok && f > 0 {
				cfg.Interval = time.Duration(f * float64(time.Second))
			}
		}
		return NewChatDummy(name, cfg), nil
	}
}

func (c *ChatDummy) ConfigSchema() []module.ConfigField { return ChatDummySchema() }

func (c *ChatDummy) source() message.Source {
	return message.Source{Role: role.CHAT, Name: c.Name()}
}

func (c *ChatDummy) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.n++
			user := fmt.Sprintf("viewer%d", c.n)
			content := "this is a neat demo!"
			c.log.Debug("synthetic chat message", "user", user)
			c.ResultsQueue().TryPush(message.NewChatMessage(c.source(), user, content))
		}
	}
}
