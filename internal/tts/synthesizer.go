// Package tts implements the TTS streaming pipeline's module half: a
// preprocessing loop that admits sentences and handles barge-in, and a
// synthesis loop that turns each admitted sentence into aligned audio.
package tts

import (
	"context"

	"github.com/hellocym/SwarmClone/internal/message"
)

// AlignEntry mirrors message.AlignEntry, kept as its own type so the
// synthesis backend interface doesn't depend on the message package.
type AlignEntry = message.AlignEntry

// Result is what a Synthesizer produces for one sentence.
type Result struct {
	Audio []byte
	Align []AlignEntry
}

// Synthesizer turns one (id, content, emotion) triple into aligned audio.
// A non-nil error triggers the module's placeholder-audio failure policy;
// the synthesizer itself never needs to construct the placeholder.
type Synthesizer interface {
	Synthesize(ctx context.Context, id, content string, emotion map[string]float64) (Result, error)
}
