package llm

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/hellocym/SwarmClone/internal/module"
)

// Config is the LLM module's typed configuration, grounded field-for-field
// in the reference implementation's LLMConfig dataclass.
type Config struct {
	ChatMaxSize       int
	ChatSizeThreshold int
	DoStartTopic      bool
	IdleTimeout       time.Duration
	ASRTimeout        time.Duration
	TTSTimeout        time.Duration

	ChatRole     string
	ChatTemplate string // fmt.Sprintf(template, user, content)
	ASRRole      string
	ASRTemplate  string // fmt.Sprintf(template, speaker, message)

	SystemPrompt string

	ModelID     string
	ModelURL    string
	APIKey      string
	Temperature float64

	MCPSupport     bool
	MCPServerPaths []string // up to 3, reference-implementation parity

	ClassifierBackend string // "heuristic" | "remote"
	ClassifierURL     string

	// RNG drives the chat admission coin flip. Nil means "seed from current
	// time"; tests inject a seeded source for the deterministic boundary
	// property in §8.
	RNG *rand.Rand
}

// DefaultConfig returns the knob defaults named in §4.3.
func DefaultConfig() Config {
	return Config{
		ChatMaxSize:       20,
		ChatSizeThreshold: 10,
		DoStartTopic:      false,
		IdleTimeout:       120 * time.Second,
		ASRTimeout:        60 * time.Second,
		TTSTimeout:        60 * time.Second,
		ChatRole:          "user",
		ChatTemplate:      "[chat] %s: %s",
		ASRRole:           "user",
		ASRTemplate:       "[heard] %s: %s",
		SystemPrompt:      "",
		Temperature:       0.8,
		ClassifierBackend: "heuristic",
	}
}

// Schema describes Config's fields for the startup_param control-plane
// operation. base supplies the reported defaults — normally a Config built
// from the tuning file, so startup_param reflects the values a bare `start`
// request will actually get, not the package's zero-tuning baseline.
func Schema(base Config) []module.ConfigField {
	d := base
	return []module.ConfigField{
		{Name: "chat_maxsize", Kind: module.KindInt, Default: d.ChatMaxSize, Desc: "hard cap on pending chat backlog", Min: module.Float(1), Max: module.Float(1000), Step: module.Float(1)},
		{Name: "chat_size_threshold", Kind: module.KindInt, Default: d.ChatSizeThreshold, Desc: "soft cap above which admission probability ramps to zero", Min: module.Float(0), Max: module.Float(1000), Step: module.Float(1)},
		{Name: "do_start_topic", Kind: module.KindBool, Default: d.DoStartTopic, Desc: "synthesize a topic and speak after idle_timeout"},
		{Name: "idle_timeout", Kind: module.KindFloat, Default: d.IdleTimeout.Seconds(), Desc: "seconds idle before do_start_topic fires", Min: module.Float(1), Max: module.Float(3600), Step: module.Float(1)},
		{Name: "asr_timeout", Kind: module.KindFloat, Default: d.ASRTimeout.Seconds(), Desc: "seconds to wait for ASRMessage before returning to IDLE", Min: module.Float(1), Max: module.Float(600), Step: module.Float(1)},
		{Name: "tts_timeout", Kind: module.KindFloat, Default: d.TTSTimeout.Seconds(), Desc: "seconds to wait for AudioFinished before returning to IDLE", Min: module.Float(1), Max: module.Float(600), Step: module.Float(1)},
		{Name: "chat_role", Kind: module.KindString, Default: d.ChatRole, Desc: "history role label for admitted chat messages"},
		{Name: "chat_template", Kind: module.KindString, Default: d.ChatTemplate, Desc: "Sprintf template (user, content) for chat history entries"},
		{Name: "asr_role", Kind: module.KindString, Default: d.ASRRole, Desc: "history role label for recognized speech"},
		{Name: "asr_template", Kind: module.KindString, Default: d.ASRTemplate, Desc: "Sprintf template (speaker, message) for ASR history entries"},
		{Name: "system_prompt", Kind: module.KindString, Default: d.SystemPrompt, Desc: "prepended to history at startup", Multiline: true},
		{Name: "model_id", Kind: module.KindString, Required: true, Desc: "generation backend model identifier"},
		{Name: "model_url", Kind: module.KindString, Required: true, Desc: "generation backend base URL"},
		{Name: "api_key", Kind: module.KindString, Required: true, Desc: "generation backend API key", Password: true},
		{Name: "temperature", Kind: module.KindFloat, Default: d.Temperature, Desc: "sampling temperature", Min: module.Float(0), Max: module.Float(2), Step: module.Float(0.1)},
		{Name: "mcp_support", Kind: module.KindBool, Default: d.MCPSupport, Desc: "offer MCP tool calls to the generation backend"},
		{Name: "mcp_server_path_1", Kind: module.KindString, Default: "", Desc: "first MCP server command/path"},
		{Name: "mcp_server_path_2", Kind: module.KindString, Default: "", Desc: "second MCP server command/path"},
		{Name: "mcp_server_path_3", Kind: module.KindString, Default: "", Desc: "third MCP server command/path"},
		{Name: "classifier_backend", Kind: module.KindSelection, Default: d.ClassifierBackend, Options: []string{"heuristic", "remote"}, Desc: "per-sentence emotion classifier"},
		{Name: "classifier_url", Kind: module.KindString, Default: "", Desc: "classifier sidecar URL, when classifier_backend=remote"},
	}
}

// ConfigFromFields builds a Config from a field-wise map (the `start`
// control-plane request shape), applying base for anything omitted. This and
// a fully-typed Config construction path are required by §4.1 to be
// equivalent; ConfigFromFields is simply how the registry's Factory bridges
// the wire map to the typed struct.
func ConfigFromFields(base Config, fields map[string]any) (Config, error) {
	c := base

	if v, ok := fields["chat_maxsize"]; ok {
		n, err := asInt(v)
		if err != nil {
			return c, fmt.Errorf("chat_maxsize: %w", err)
		}
		c.ChatMaxSize = n
	}
	if v, ok := fields["chat_size_threshold"]; ok {
		n, err := asInt(v)
		if err != nil {
			return c, fmt.Errorf("chat_size_threshold: %w", err)
		}
		c.ChatSizeThreshold = n
	}
	if v, ok := fields["do_start_topic"]; ok {
		b, ok := v.(bool)
		if !ok {
			return c, fmt.Errorf("do_start_topic: expected bool")
		}
		c.DoStartTopic = b
	}
	if v, ok := fields["idle_timeout"]; ok {
		f, err := asFloat(v)
		if err != nil {
			return c, fmt.Errorf("idle_timeout: %w", err)
		}
		c.IdleTimeout = time.Duration(f * float64(time.Second))
	}
	if v, ok := fields["asr_timeout"]; ok {
		f, err := asFloat(v)
		if err != nil {
			return c, fmt.Errorf("asr_timeout: %w", err)
		}
		c.ASRTimeout = time.Duration(f * float64(time.Second))
	}
	if v, ok := fields["tts_timeout"]; ok {
		f, err := asFloat(v)
		if err != nil {
			return c, fmt.Errorf("tts_timeout: %w", err)
		}
		c.TTSTimeout = time.Duration(f * float64(time.Second))
	}
	if v, ok := fields["chat_role"].(string); ok {
		c.ChatRole = v
	}
	if v, ok := fields["chat_template"].(string); ok {
		c.ChatTemplate = v
	}
	if v, ok := fields["asr_role"].(string); ok {
		c.ASRRole = v
	}
	if v, ok := fields["asr_template"].(string); ok {
		c.ASRTemplate = v
	}
	if v, ok := fields["system_prompt"].(string); ok {
		c.SystemPrompt = v
	}
	if v, ok := fields["model_id"].(string); ok {
		c.ModelID = v
	}
	if v, ok := fields["model_url"].(string); ok {
		c.ModelURL = v
	}
	if v, ok := fields["api_key"].(string); ok {
		c.APIKey = v
	}
	if v, ok := fields["temperature"]; ok {
		f, err := asFloat(v)
		if err != nil {
			return c, fmt.Errorf("temperature: %w", err)
		}
		c.Temperature = f
	}
	if v, ok := fields["mcp_support"]; ok {
		b, ok := v.(bool)
		if !ok {
			return c, fmt.Errorf("mcp_support: expected bool")
		}
		c.MCPSupport = b
	}
	for _, key := range []string{"mcp_server_path_1", "mcp_server_path_2", "mcp_server_path_3"} {
		if v, ok := fields[key].(string); ok && v != "" {
			c.MCPServerPaths = append(c.MCPServerPaths, v)
		}
	}
	if v, ok := fields["classifier_backend"].(string); ok {
		c.ClassifierBackend = v
	}
	if v, ok := fields["classifier_url"].(string); ok {
		c.ClassifierURL = v
	}

	if c.ModelID == "" || c.ModelURL == "" || c.APIKey == "" {
		return c, fmt.Errorf("model_id, model_url, and api_key are required")
	}
	return c, nil
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
