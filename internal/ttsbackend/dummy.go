package ttsbackend

import (
	"context"
	"unicode/utf8"

	"github.com/hellocym/SwarmClone/internal/tts"
)

// DummySynthesizer fabricates silent audio of a length proportional to the
// input text, with no external dependency — grounded in the reference
// implementation's tts_dummy collaborator used for local development.
type DummySynthesizer struct {
	BytesPerRune int
}

func NewDummySynthesizer() *DummySynthesizer {
	return &DummySynthesizer{BytesPerRune: 320}
}

func (d *DummySynthesizer) Synthesize(_ context.Context, _, content string, _ map[string]float64) (tts.Result, error) {
	n := utf8.RuneCountInString(content)
	audio := make([]byte, n*d.BytesPerRune)
	return tts.Result{
		Audio: audio,
		Align: []tts.AlignEntry{{Token: content, Duration: float64(n) * 0.08}},
	}, nil
}
