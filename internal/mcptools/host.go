// Package mcptools connects to local MCP servers (stdio transport) and
// exposes their tool catalogue for a generation backend's tool-calling
// loop, using the official MCP Go SDK.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition is a backend-agnostic description of one callable tool,
// shaped to drop straight into an OpenAI-style function-calling schema.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type serverConn struct {
	session *mcpsdk.ClientSession
}

type toolEntry struct {
	def        ToolDefinition
	serverName string
}

// Host manages a small set of locally spawned MCP servers (cmd/controller
// connects up to three, from the MCP_SERVER_PATH_1..3 environment variables
// at boot) and dispatches tool calls to them.
type Host struct {
	mu      sync.RWMutex
	client  *mcpsdk.Client
	servers map[string]serverConn
	tools   map[string]toolEntry
}

// New constructs an empty Host. Call Connect for each configured server
// path before using AvailableTools/Call.
func New() *Host {
	return &Host{
		client:  mcpsdk.NewClient(&mcpsdk.Implementation{Name: "swarmclone-orchestrator", Version: "1.0.0"}, nil),
		servers: make(map[string]serverConn),
		tools:   make(map[string]toolEntry),
	}
}

// Connect launches command as a stdio MCP server named name and imports its
// tool catalogue.
func (h *Host) Connect(ctx context.Context, name, command string) error {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return fmt.Errorf("mcptools: empty command for server %q", name)
	}
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	transport := &mcpsdk.CommandTransport{Command: cmd}

	session, err := h.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("mcptools: connect %q: %w", name, err)
	}

	var discovered []mcpsdk.Tool
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return fmt.Errorf("mcptools: list tools for %q: %w", name, err)
		}
		discovered = append(discovered, *tool)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.servers[name] = serverConn{session: session}
	for _, t := range discovered {
		h.tools[t.Name] = toolEntry{
			def: ToolDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schemaToMap(t.InputSchema),
			},
			serverName: name,
		}
	}
	return nil
}

// AvailableTools returns every tool currently registered across connected
// servers.
func (h *Host) AvailableTools() []ToolDefinition {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ToolDefinition, 0, len(h.tools))
	for _, e := range h.tools {
		out = append(out, e.def)
	}
	return out
}

// Call invokes a named tool with JSON-encoded arguments and returns its
// concatenated text content.
func (h *Host) Call(ctx context.Context, name, argsJSON string) (string, error) {
	h.mu.RLock()
	entry, ok := h.tools[name]
	conn, connOK := h.servers[entry.serverName]
	h.mu.RUnlock()
	if !ok || !connOK {
		return "", fmt.Errorf("mcptools: tool %q not found", name)
	}

	var args map[string]any
	if argsJSON != "" && argsJSON != "{}" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("mcptools: invalid args for %q: %w", name, err)
		}
	}

	result, err := conn.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("mcptools: call %q: %w", name, err)
	}

	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String(), nil
}

// Close shuts down every connected server.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var firstErr error
	for name, conn := range h.servers {
		if err := conn.session.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("mcptools: close %q: %w", name, err)
		}
	}
	h.servers = make(map[string]serverConn)
	h.tools = make(map[string]toolEntry)
	return firstErr
}

func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object"}
	}
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if json.Unmarshal(data, &m) != nil {
		return map[string]any{"type": "object"}
	}
	return m
}
