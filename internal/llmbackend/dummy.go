package llmbackend

import (
	"context"
	"fmt"
	"time"

	"github.com/hellocym/SwarmClone/internal/llm"
)

// DummyGenerator produces a short, deterministic canned reply without any
// network dependency, grounded in the reference implementation's
// LLMDummy/chat_dummy collaborators used for local development and demos.
type DummyGenerator struct {
	SentenceDelay time.Duration
	classifier    llm.Classifier
}

// NewDummyGenerator constructs a DummyGenerator. classifier may be nil, in
// which case every sentence is tagged neutral.
func NewDummyGenerator(classifier llm.Classifier) *DummyGenerator {
	return &DummyGenerator{SentenceDelay: 150 * time.Millisecond, classifier: classifier}
}

func (g *DummyGenerator) Generate(ctx context.Context, history []llm.ChatTurn) <-chan llm.Sentence {
	out := make(chan llm.Sentence, 4)

	last := "Hello there."
	if n := len(history); n > 0 {
		last = history[n-1].Content
	}
	sentences := []string{
		"Got it.",
		fmt.Sprintf("You said: %s", last),
		"Anything else on your mind?",
	}

	go func() {
		defer close(out)
		for _, s := range sentences {
			emotion := llm.Emotion{"neutral": 1.0}
			if g.classifier != nil {
				emotion = g.classifier.Classify(ctx, s)
			}
			select {
			case out <- llm.Sentence{Text: s, Emotion: emotion}:
			case <-ctx.Done():
				return
			}
			select {
			case <-time.After(g.SentenceDelay):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
