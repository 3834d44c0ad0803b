// Package modules holds small reference collaborator modules — dummy ASR
// and CHAT sources used for local development and the end-to-end test
// scenarios, standing in for a real speech recognizer or chat-platform
// bridge.
package modules

import (
	"context"
	"log/slog"
	"time"

	"github.com/hellocym/SwarmClone/internal/message"
	"github.com/hellocym/SwarmClone/internal/module"
	"github.com/hellocym/SwarmClone/internal/role"
)

// ASRDummyConfig configures the synthetic speech source.
type ASRDummyConfig struct {
	SpeakerName string
	Utterances  []string
	Interval    time.Duration
}

func DefaultASRDummyConfig() ASRDummyConfig {
	return ASRDummyConfig{
		SpeakerName: "listener",
		Utterances:  []string{"hello there", "how are you", "tell me something interesting"},
		Interval:    30 * time.Second,
	}
}

func ASRDummySchema() []module.ConfigField {
	d := DefaultASRDummyConfig()
	return []module.ConfigField{
		{Name: "speaker_name", Kind: module.KindString, Default: d.SpeakerName, Desc: "speaker name attached to synthetic ASRMessages"},
		{Name: "interval", Kind: module.KindFloat, Default: d.Interval.Seconds(), Desc: "seconds between synthetic utterances", Min: module.Float(1), Max: module.Float(3600), Step: module.Float(1)},
	}
}

// ASRDummy periodically emits ASRActivated followed by an ASRMessage, as a
// real speech recognizer would on detecting and transcribing an utterance.
type ASRDummy struct {
	module.Base
	cfg ASRDummyConfig
	log *slog.Logger
	n   int
}

func NewASRDummy(name string, cfg ASRDummyConfig) *ASRDummy {
	return &ASRDummy{
		Base: module.NewBase(name, role.ASR),
		cfg:  cfg,
		log:  slog.Default().With("role", role.ASR, "module", name),
	}
}

func ASRDummyFactory(name string) func(fields map[string]any) (module.Module, error) {
	return func(fields map[string]any) (module.Module, error) {
		cfg := DefaultASRDummyConfig()
		if v, ok := fields["speaker_name"].(string); ok && v != "" {
			cfg.SpeakerName = v
		}
		if v, ok := fields["interval"]; ok {
			if f, ok := v.(float64); ok && f > 0 {
				cfg.Interval = time.Duration(f * float64(time.Second))
			}
		}
		return NewASRDummy(name, cfg), nil
	}
}

func (a *ASRDummy) ConfigSchema() []module.ConfigField { return ASRDummySchema() }

func (a *ASRDummy) source() message.Source {
	return message.Source{Role: role.ASR, Name: a.Name()}
}

func (a *ASRDummy) Run(ctx context.Context) error {
	if len(a.cfg.Utterances) == 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			text := a.cfg.Utterances[a.n%len(a.cfg.Utterances)]
			a.n++
			a.log.Debug("synthetic utterance", "text", text)
			a.ResultsQueue().TryPush(message.NewASRActivated(a.source()))
			a.ResultsQueue().TryPush(message.NewASRMessage(a.source(), a.cfg.SpeakerName, text))
		}
	}
}
