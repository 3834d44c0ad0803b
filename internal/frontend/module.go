// Package frontend implements the FRONTEND role: a module with no inbound
// behavior of its own beyond the generic task_queue contract, whose job is
// to fan every message addressed to it out to connected WebSocket clients
// (a browser overlay, an avatar renderer, a moderation dashboard) and to
// translate a client's "the avatar finished talking" signal back into an
// AudioFinished message for the LLM.
package frontend

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hellocym/SwarmClone/internal/message"
	"github.com/hellocym/SwarmClone/internal/module"
	"github.com/hellocym/SwarmClone/internal/role"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const pumpTick = 20 * time.Millisecond

// Config holds the FRONTEND module's tunables.
type Config struct {
	// ClientQueueCapacity bounds how many pending frames a slow client can
	// accumulate before frames are dropped for it specifically.
	ClientQueueCapacity int
}

func DefaultConfig() Config { return Config{ClientQueueCapacity: 64} }

func Schema() []module.ConfigField {
	d := DefaultConfig()
	return []module.ConfigField{
		{Name: "client_queue_capacity", Kind: module.KindInt, Default: d.ClientQueueCapacity, Desc: "per-client outbound frame buffer before frames are dropped", Min: module.Float(1), Max: module.Float(4096), Step: module.Float(1)},
	}
}

// wireFrame is the JSON shape pushed to every connected client.
type wireFrame struct {
	Name    string         `json:"name"`
	Source  string         `json:"source"`
	Payload map[string]any `json:"payload,omitempty"`
}

// clientAction is a text frame a client may send back.
type clientAction struct {
	Action      string `json:"action"`
	SpeakerName string `json:"speaker_name,omitempty"`
}

// client wraps one connected WebSocket with a mutex-guarded writer — the
// same pattern the call-session handler this module supersedes used, since
// gorilla/websocket connections are not safe for concurrent writes.
type client struct {
	conn  *websocket.Conn
	mu    sync.Mutex
	queue chan wireFrame
}

func (c *client) send(f wireFrame) {
	select {
	case c.queue <- f:
	default:
	}
}

func (c *client) pump(ctx context.Context, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.queue:
			data, err := json.Marshal(f)
			if err != nil {
				continue
			}
			c.mu.Lock()
			err = c.conn.WriteMessage(websocket.TextMessage, data)
			c.mu.Unlock()
			if err != nil {
				log.Debug("client write failed", "error", err)
				return
			}
		}
	}
}

// Module is the FRONTEND role's module.Module implementation.
type Module struct {
	module.Base
	cfg Config
	log *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// New constructs a FRONTEND module instance.
func New(name string, cfg Config) *Module {
	return &Module{
		Base:    module.NewBase(name, role.FRONTEND),
		cfg:     cfg,
		log:     slog.Default().With("role", role.FRONTEND, "module", name),
		clients: make(map[*client]struct{}),
	}
}

func Factory(name string) func(fields map[string]any) (module.Module, error) {
	return func(fields map[string]any) (module.Module, error) {
		cfg := DefaultConfig()
		if v, ok := fields["client_queue_capacity"]; ok {
			if f, ok := v.(float64); ok && f > 0 {
				cfg.ClientQueueCapacity = int(f)
			}
		}
		return New(name, cfg), nil
	}
}

func (m *Module) ConfigSchema() []module.ConfigField { return Schema() }

func (m *Module) source() message.Source {
	return message.Source{Role: role.FRONTEND, Name: m.Name()}
}

// ServeHTTP upgrades an incoming connection to a pushed-message client and
// a reader of the client's own actions (e.g. "audio finished playing").
// Mounted by the HTTP control-plane adapter alongside the JSON operations.
func (m *Module) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, queue: make(chan wireFrame, m.cfg.ClientQueueCapacity)}
	m.mu.Lock()
	m.clients[c] = struct{}{}
	m.mu.Unlock()

	ctx := r.Context()
	go c.pump(ctx, m.log)

	defer func() {
		m.mu.Lock()
		delete(m.clients, c)
		m.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var act clientAction
		if json.Unmarshal(data, &act) != nil {
			continue
		}
		if act.Action == "audio_finished" {
			m.ResultsQueue().TryPush(message.NewAudioFinished(m.source()))
		}
	}
}

func (m *Module) broadcast(f wireFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for c := range m.clients {
		c.send(f)
	}
}

// Run pumps task_queue to every connected client as a wire frame.
func (m *Module) Run(ctx context.Context) error {
	ticker := time.NewTicker(pumpTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, ok := m.TaskQueue().TryPop()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			continue
		}

		payload := msg.GetValue(m.source())
		m.broadcast(wireFrame{Name: msg.Name, Source: msg.Source.Name, Payload: payload})
	}
}
