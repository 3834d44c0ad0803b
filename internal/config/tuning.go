package config

import (
	"encoding/json"
	"log/slog"
	"os"
)

// Tuning holds knobs loaded from a JSON file at boot: the default values
// startup_param reports before a start call overrides them. These are
// values that plausibly belong in a database eventually; a JSON file
// keeps them out of environment variables for now.
type Tuning struct {
	LLMSystemPrompt   string  `json:"llm_system_prompt"`
	LLMModelID        string  `json:"llm_model_id"`
	LLMTemperature    float64 `json:"llm_temperature"`
	LLMChatMaxSize    int     `json:"llm_chat_maxsize"`
	LLMChatThreshold  int     `json:"llm_chat_size_threshold"`
	LLMASRTimeoutSec  float64 `json:"llm_asr_timeout_sec"`
	LLMTTSTimeoutSec  float64 `json:"llm_tts_timeout_sec"`
	LLMIdleTimeoutSec float64 `json:"llm_idle_timeout_sec"`
	TTSVoice          string  `json:"tts_voice"`
	ClassifierBackend string  `json:"classifier_backend"`
}

// DefaultTuning returns the built-in defaults used when no tuning file is
// present or it is malformed; the LLM knobs match llm.DefaultConfig.
func DefaultTuning() Tuning {
	return Tuning{
		LLMSystemPrompt:   "You are a helpful, expressive conversational avatar. Keep responses concise and natural to speak aloud.",
		LLMModelID:        "gpt-4.1-nano",
		LLMTemperature:    0.8,
		LLMChatMaxSize:    20,
		LLMChatThreshold:  10,
		LLMASRTimeoutSec:  60,
		LLMTTSTimeoutSec:  60,
		LLMIdleTimeoutSec: 120,
		TTSVoice:          "default",
		ClassifierBackend: "heuristic",
	}
}

// LoadTuning reads path if present, otherwise returns defaults. A
// malformed file also falls back to defaults, logging a warning rather
// than failing boot.
func LoadTuning(path string) Tuning {
	t := DefaultTuning()
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Info("no tuning file, using defaults", "path", path)
		return t
	}
	if err := json.Unmarshal(data, &t); err != nil {
		slog.Warn("malformed tuning file, using defaults", "path", path, "error", err)
		return DefaultTuning()
	}
	slog.Info("loaded tuning file", "path", path)
	return t
}
