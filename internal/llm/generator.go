package llm

import "context"

// Emotion is a sparse label -> intensity map attached to each generated
// sentence, carried verbatim into the outgoing LLMMessage payload.
type Emotion map[string]float64

// Sentence is one unit streamed out of a Generator: already split at a
// sentence boundary and already classified.
type Sentence struct {
	Text    string
	Emotion Emotion
}

// ChatTurn is one entry of the conversation history handed to a Generator.
// Role follows the usual "system"/"user"/"assistant" convention.
type ChatTurn struct {
	Role    string
	Content string
}

// Generator is the generation task contract: given a conversation history,
// start producing a stream of (sentence, emotion) pairs. The returned
// channel is closed when generation is exhausted or ctx is cancelled; a
// cancelled generator must still close its channel within bounded time
// rather than leak the goroutine backing it. There is no explicit
// end-of-stream value on the channel itself — LLMEOS is synthesized by the
// caller once the channel closes.
type Generator interface {
	Generate(ctx context.Context, history []ChatTurn) <-chan Sentence
}
