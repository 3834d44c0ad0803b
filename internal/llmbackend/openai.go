// Package llmbackend provides concrete llm.Generator implementations: a
// streaming OpenAI-compatible backend and a deterministic dummy for
// development and tests.
package llmbackend

import (
	"context"
	"fmt"
	"log/slog"

	oai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared"

	"github.com/hellocym/SwarmClone/internal/llm"
	"github.com/hellocym/SwarmClone/internal/mcptools"
	"github.com/hellocym/SwarmClone/internal/textsplit"
)

// OpenAIGenerator streams chat completions from any OpenAI-compatible
// endpoint (the real OpenAI API or a local server speaking the same wire
// protocol, which is how self-hosted model servers are generally reached).
type OpenAIGenerator struct {
	client      oai.Client
	model       string
	temperature float64
	classifier  llm.Classifier
	tools       *mcptools.Host
	log         *slog.Logger
}

// NewOpenAIGenerator constructs a generator against baseURL using apiKey,
// sampling at model/temperature. classifier attaches an Emotion to each
// completed sentence as it is produced. tools may be nil, in which case no
// function-calling round is offered.
func NewOpenAIGenerator(baseURL, apiKey, model string, temperature float64, classifier llm.Classifier, tools *mcptools.Host) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIGenerator{
		client:      oai.NewClient(opts...),
		model:       model,
		temperature: temperature,
		classifier:  classifier,
		tools:       tools,
		log:         slog.Default().With("component", "llmbackend.openai"),
	}
}

func (g *OpenAIGenerator) buildParams(history []llm.ChatTurn) oai.ChatCompletionNewParams {
	messages := make([]oai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, t := range history {
		switch t.Role {
		case "system":
			messages = append(messages, oai.SystemMessage(t.Content))
		case "assistant":
			asst := oai.ChatCompletionAssistantMessageParam{}
			asst.Content.OfString = oai.String(t.Content)
			messages = append(messages, oai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		default:
			messages = append(messages, oai.UserMessage(t.Content))
		}
	}
	params := oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(g.model),
		Messages:    messages,
		Temperature: param.NewOpt(g.temperature),
	}
	if g.tools != nil {
		for _, td := range g.tools.AvailableTools() {
			params.Tools = append(params.Tools, oai.ChatCompletionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        td.Name,
					Description: param.NewOpt(td.Description),
					Parameters:  shared.FunctionParameters(td.Parameters),
				},
			})
		}
	}
	return params
}

// runToolRound executes every accumulated tool call against g.tools and
// appends the assistant call plus each tool result to messages, returning
// the extended slice ready for a follow-up completion request.
func (g *OpenAIGenerator) runToolRound(ctx context.Context, messages []oai.ChatCompletionMessageParamUnion, calls map[int]*accumulatedCall) []oai.ChatCompletionMessageParamUnion {
	asst := oai.ChatCompletionAssistantMessageParam{}
	for i := 0; i < len(calls); i++ {
		c, ok := calls[i]
		if !ok {
			continue
		}
		asst.ToolCalls = append(asst.ToolCalls, oai.ChatCompletionMessageToolCallParam{
			ID: c.id,
			Function: oai.ChatCompletionMessageToolCallFunctionParam{
				Name:      c.name,
				Arguments: c.args,
			},
		})
	}
	messages = append(messages, oai.ChatCompletionMessageParamUnion{OfAssistant: &asst})

	for i := 0; i < len(calls); i++ {
		c, ok := calls[i]
		if !ok {
			continue
		}
		result, err := g.tools.Call(ctx, c.name, c.args)
		if err != nil {
			result = fmt.Sprintf("tool error: %v", err)
		}
		messages = append(messages, oai.ToolMessage(result, c.id))
	}
	return messages
}

type accumulatedCall struct {
	id   string
	name string
	args string
}

// Generate implements llm.Generator. The returned channel is closed when
// the stream ends or ctx is cancelled; a bounded amount of trailing,
// not-yet-terminated text is dropped on cancellation per the generation
// task contract.
func (g *OpenAIGenerator) Generate(ctx context.Context, history []llm.ChatTurn) <-chan llm.Sentence {
	out := make(chan llm.Sentence, 8)

	go func() {
		defer close(out)

		params := g.buildParams(history)
		buf := textsplit.NewBuffer()
		emit := func(text string) {
			if ctx.Err() != nil {
				return
			}
			emotion := llm.Emotion{"neutral": 1.0}
			if g.classifier != nil {
				emotion = g.classifier.Classify(ctx, text)
			}
			select {
			case out <- llm.Sentence{Text: text, Emotion: emotion}:
			case <-ctx.Done():
			}
		}

		// At most one tool round: stream once, and if the model asked for
		// tool calls instead of (or in addition to) text, execute them and
		// stream a single follow-up completion. This keeps the generation
		// task's bounded-cancellation contract intact rather than allowing
		// an open-ended agentic loop.
		for round := 0; round < 2; round++ {
			stream := g.client.Chat.Completions.NewStreaming(ctx, params)
			calls := map[int]*accumulatedCall{}
			finishedOnTools := false

			for stream.Next() {
				chunk := stream.Current()
				if len(chunk.Choices) == 0 {
					continue
				}
				choice := chunk.Choices[0]
				if delta := choice.Delta.Content; delta != "" {
					for _, s := range buf.Add(delta) {
						emit(s)
					}
				}
				for _, tc := range choice.Delta.ToolCalls {
					idx := int(tc.Index)
					c, ok := calls[idx]
					if !ok {
						c = &accumulatedCall{id: tc.ID, name: tc.Function.Name}
						calls[idx] = c
					}
					if tc.ID != "" {
						c.id = tc.ID
					}
					if tc.Function.Name != "" {
						c.name = tc.Function.Name
					}
					c.args += tc.Function.Arguments
				}
				if choice.FinishReason == "tool_calls" {
					finishedOnTools = true
				}
			}
			streamErr := stream.Err()
			stream.Close()
			if streamErr != nil && ctx.Err() == nil {
				g.log.Error("generation stream error", "error", fmt.Sprint(streamErr))
			}

			if round > 0 || !finishedOnTools || g.tools == nil || len(calls) == 0 {
				break
			}
			params.Messages = g.runToolRound(ctx, params.Messages, calls)
		}

		if rest := buf.Flush(); rest != "" {
			emit(rest)
		}
	}()

	return out
}
