package tts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hellocym/SwarmClone/internal/message"
	"github.com/hellocym/SwarmClone/internal/role"
)

// failingSynthesizer always returns an error, forcing the module's
// failure-to-placeholder-audio policy.
type failingSynthesizer struct{}

func (failingSynthesizer) Synthesize(ctx context.Context, id, content string, emotion map[string]float64) (Result, error) {
	return Result{}, errors.New("synthesis backend unreachable")
}

func TestSynthesisFailureEmitsPlaceholderAudio(t *testing.T) {
	m := New("synth_test", DefaultConfig(), failingSynthesizer{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	src := message.Source{Role: role.LLM, Name: "agent_test"}
	m.TaskQueue().TryPush(message.NewLLMMessage(src, "hello there", "turn-1", nil))

	deadline := time.After(time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("never received a TTSAlignedAudio result for the failed synthesis")
		default:
		}
		msg, ok := m.ResultsQueue().TryPop()
		if !ok {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if msg.Name != "TTSAlignedAudio" {
			continue
		}
		payload := msg.GetValue(message.Source{Role: role.FRONTEND, Name: "display"})
		audio, _ := payload["audio_data"].([]byte)
		align, _ := payload["align_data"].([]AlignEntry)
		if len(audio) != 0 {
			t.Errorf("expected placeholder to carry zero-length audio, got %d bytes", len(audio))
		}
		if len(align) != 1 {
			t.Fatalf("expected exactly one alignment entry for the placeholder, got %d", len(align))
		}
		if align[0].Token != "hello there" {
			t.Errorf("expected placeholder alignment token to be the original text, got %q", align[0].Token)
		}
		if align[0].Duration <= 0 {
			t.Errorf("expected placeholder alignment duration to be positive, got %v", align[0].Duration)
		}
		return
	}
}
