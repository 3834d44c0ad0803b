// Package llm implements the conversational turn-taking state machine: the
// module that decides when to speak, listen, or sing, and drives a
// Generator to produce the words.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hellocym/SwarmClone/internal/message"
	"github.com/hellocym/SwarmClone/internal/metrics"
	"github.com/hellocym/SwarmClone/internal/module"
	"github.com/hellocym/SwarmClone/internal/prompts"
	"github.com/hellocym/SwarmClone/internal/role"
	"github.com/hellocym/SwarmClone/internal/trace"
)

const tickInterval = 100 * time.Millisecond

// Module is the LLM role's module.Module implementation.
type Module struct {
	module.Base

	cfg        Config
	gen        Generator
	classifier Classifier
	retriever  Retriever
	log        *slog.Logger
	tracer     *trace.Tracer

	// mutable state, touched only from within Run's goroutine.
	state       State
	history     []ChatTurn
	chatQueue   []chatItem
	asrPending  int
	aboutToSing bool
	songID      string
	idleSince   time.Time
	waitSince   time.Time

	genCancel    context.CancelFunc
	genAbandoned bool
	genAccum     *genAccumulator
	completionCh chan string
}

// New constructs an LLM module instance. name is the registered module kind
// name (e.g. "agent"), not a config field. retriever may be nil.
func New(name string, cfg Config, gen Generator, classifier Classifier, retriever Retriever) *Module {
	if classifier == nil {
		classifier = NewClassifier(cfg.ClassifierBackend, cfg.ClassifierURL)
	}
	if cfg.RNG == nil {
		cfg.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	b := module.NewBase(name, role.LLM)
	return &Module{
		Base:       b,
		cfg:        cfg,
		gen:        gen,
		classifier: classifier,
		retriever:  retriever,
		log:        slog.Default().With("role", role.LLM, "module", name),
		state:      StateIdle,
	}
}

// Factory adapts a constructed Generator into a registry.Entry Factory,
// parameterized by the registered module name captured at registration time.
// base is the tuning-derived Config a bare `start` request (no overriding
// fields) should end up with.
func Factory(name string, gen Generator, retriever Retriever, base Config) func(fields map[string]any) (module.Module, error) {
	return func(fields map[string]any) (module.Module, error) {
		cfg, err := ConfigFromFields(base, fields)
		if err != nil {
			return nil, err
		}
		return New(name, cfg, gen, nil, retriever), nil
	}
}

// ConfigSchema implements module.Module.
func (m *Module) ConfigSchema() []module.ConfigField { return Schema(m.cfg) }

// SetTracer attaches the per-session tracer the controller wires in before
// launching Run. A nil tracer (the default) makes every trace call below a
// no-op.
func (m *Module) SetTracer(t *trace.Tracer) { m.tracer = t }

func (m *Module) source() message.Source {
	return message.Source{Role: role.LLM, Name: m.Name()}
}

func (m *Module) setState(next State) {
	if next == m.state {
		return
	}
	metrics.StateTransitions.WithLabelValues(string(m.state), string(next)).Inc()
	m.log.Debug("state transition", "from", m.state, "to", next)
	m.state = next
}

// Run drives the state machine until ctx is cancelled.
func (m *Module) Run(ctx context.Context) error {
	m.idleSince = time.Now()
	m.history = append(m.history, ChatTurn{Role: "system", Content: prompts.ForSession(m.cfg.SystemPrompt)})

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	cleanup := func() {
		if m.genCancel != nil {
			m.genCancel()
		}
	}

	for {
		select {
		case <-ctx.Done():
			cleanup()
			return nil
		default:
		}

		gotWork := false
		if text, ok := m.tryRecvCompletion(); ok {
			m.handleCompletion(text)
			gotWork = true
		}
		if msg, ok := m.TaskQueue().TryPop(); ok {
			m.handleMessage(ctx, msg)
			gotWork = true
		}
		m.evaluateState(ctx)

		if !gotWork {
			select {
			case <-ctx.Done():
				cleanup()
				return nil
			case <-ticker.C:
			}
		}
	}
}

func (m *Module) tryRecvCompletion() (string, bool) {
	if m.completionCh == nil {
		return "", false
	}
	select {
	case text := <-m.completionCh:
		m.completionCh = nil
		return text, true
	default:
		return "", false
	}
}

// handleMessage applies the global rules (ChatMessage admission, SongInfo
// "most recent wins") and then the reaction for the current state, if any.
func (m *Module) handleMessage(ctx context.Context, msg *message.Message) {
	switch msg.Name {
	case "ChatMessage":
		payload := msg.GetValue(m.source())
		if payload == nil {
			return
		}
		user, _ := payload["user"].(string)
		content, _ := payload["content"].(string)
		m.admitChat(user, content)
		return
	case "SongInfo":
		payload := msg.GetValue(m.source())
		if payload == nil {
			return
		}
		m.aboutToSing = true
		m.songID, _ = payload["song_id"].(string)
		return
	}

	switch m.state {
	case StateIdle:
		if msg.Name == "ASRActivated" {
			m.asrPending = 1
			m.waitSince = time.Now()
			m.setState(StateWaiting4ASR)
		}

	case StateGenerating:
		if msg.Name == "ASRActivated" {
			m.bargeIn()
			m.asrPending = 1
			m.waitSince = time.Now()
			m.setState(StateWaiting4ASR)
		}

	case StateWaiting4ASR:
		switch msg.Name {
		case "ASRActivated":
			m.asrPending++
		case "ASRMessage":
			payload := msg.GetValue(m.source())
			if payload == nil {
				return
			}
			speaker, _ := payload["speaker_name"].(string)
			text, _ := payload["message"].(string)
			m.appendASR(speaker, text)
			m.asrPending--
			if m.asrPending <= 0 {
				m.asrPending = 0
				m.startGeneration(ctx)
				m.setState(StateGenerating)
			}
		}

	case StateWaiting4TTS:
		switch msg.Name {
		case "AudioFinished":
			m.idleSince = time.Now()
			m.setState(StateIdle)
		case "ASRActivated":
			m.asrPending = 1
			m.waitSince = time.Now()
			m.setState(StateWaiting4ASR)
		}

	case StateSinging:
		if msg.Name == "FinishedSinging" {
			m.idleSince = time.Now()
			m.setState(StateIdle)
		}
	}
}

// evaluateState runs the state-entry and timeout rules that do not depend
// on a freshly arrived message: IDLE's priority chain (sing > chat > topic)
// and the ASR/TTS wait timeouts.
func (m *Module) evaluateState(ctx context.Context) {
	switch m.state {
	case StateIdle:
		if m.aboutToSing {
			m.aboutToSing = false
			m.appendSystem(fmt.Sprintf("you just finished singing %s", m.songID))
			metrics.StateTransitions.WithLabelValues(string(m.state), string(StateSinging)).Inc()
			m.log.Debug("state transition", "from", m.state, "to", StateSinging)
			m.state = StateSinging
			m.ResultsQueue().TryPush(message.NewReadyToSing(m.source(), m.songID))
			return
		}
		if len(m.chatQueue) > 0 {
			item := m.chatQueue[0]
			m.chatQueue = m.chatQueue[1:]
			m.appendChat(item.user, item.content)
			m.startGeneration(ctx)
			m.setState(StateGenerating)
			return
		}
		if m.cfg.DoStartTopic && time.Since(m.idleSince) > m.cfg.IdleTimeout {
			m.appendSystem("nobody has said anything in a while; say something to restart the conversation")
			m.startGeneration(ctx)
			m.setState(StateGenerating)
			return
		}

	case StateWaiting4ASR:
		if time.Since(m.waitSince) > m.cfg.ASRTimeout {
			m.asrPending = 0
			m.idleSince = time.Now()
			m.setState(StateIdle)
		}

	case StateWaiting4TTS:
		if time.Since(m.waitSince) > m.cfg.TTSTimeout {
			m.idleSince = time.Now()
			m.setState(StateIdle)
		}
	}
}

// admitChat applies the linear-ramp admission policy: always admit below
// chat_size_threshold, ramp linearly to zero at chat_maxsize, always reject
// at or above chat_maxsize.
func (m *Module) admitChat(user, content string) {
	qsize := len(m.chatQueue)
	admitted := false
	switch {
	case qsize >= m.cfg.ChatMaxSize:
		admitted = false
	case qsize < m.cfg.ChatSizeThreshold:
		admitted = true
	default:
		span := m.cfg.ChatMaxSize - m.cfg.ChatSizeThreshold
		p := 1.0
		if span > 0 {
			p = 1.0 - float64(qsize-m.cfg.ChatSizeThreshold)/float64(span)
		}
		admitted = m.cfg.RNG.Float64() < p
	}
	if admitted {
		m.chatQueue = append(m.chatQueue, chatItem{user: user, content: content})
	}
	metrics.ChatAdmitted.WithLabelValues(fmt.Sprintf("%t", admitted)).Inc()
}

func (m *Module) appendChat(user, content string) {
	m.history = append(m.history, ChatTurn{Role: m.cfg.ChatRole, Content: fmt.Sprintf(m.cfg.ChatTemplate, user, content)})
}

func (m *Module) appendASR(speaker, text string) {
	m.history = append(m.history, ChatTurn{Role: m.cfg.ASRRole, Content: fmt.Sprintf(m.cfg.ASRTemplate, speaker, text)})
}

func (m *Module) appendSystem(note string) {
	m.history = append(m.history, ChatTurn{Role: "system", Content: note})
}

func (m *Module) appendAssistant(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	m.history = append(m.history, ChatTurn{Role: "assistant", Content: text})
}

// genAccumulator is the shared, lock-guarded buffer the generation
// goroutine writes to and the state machine reads from when a barge-in
// needs "whatever text has been produced so far" without waiting for the
// goroutine to unwind.
type genAccumulator struct {
	mu   sync.Mutex
	text strings.Builder
}

func (a *genAccumulator) add(s string) {
	a.mu.Lock()
	a.text.WriteString(s)
	a.mu.Unlock()
}

func (a *genAccumulator) get() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text.String()
}

// startGeneration launches the generation task: a goroutine that drains the
// Generator's channel, pushing an LLMMessage per sentence and a terminal
// LLMEOS, then reports the full accumulated text on completionCh.
func (m *Module) startGeneration(ctx context.Context) {
	genCtx, cancel := context.WithCancel(ctx)
	m.genCancel = cancel
	m.genAbandoned = false

	acc := &genAccumulator{}
	m.genAccum = acc

	historySnapshot := make([]ChatTurn, len(m.history))
	copy(historySnapshot, m.history)
	historySnapshot = m.withRetrievedContext(ctx, historySnapshot)

	done := make(chan string, 1)
	m.completionCh = done

	stream := m.gen.Generate(genCtx, historySnapshot)
	resultsQueue := m.ResultsQueue()
	src := m.source()

	var transcript string
	if len(historySnapshot) > 0 {
		transcript = historySnapshot[len(historySnapshot)-1].Content
	}
	tracer := m.tracer
	runStart := time.Now()
	runID := tracer.StartRun()

	go func() {
		for s := range stream {
			acc.add(s.Text)
			id := uuid.NewString()
			resultsQueue.TryPush(message.NewLLMMessage(src, s.Text, id, s.Emotion))
		}
		resultsQueue.TryPush(message.NewLLMEOS(src))
		response := acc.get()

		status := "ok"
		if genCtx.Err() != nil {
			status = "cancelled"
		}
		dur := float64(time.Since(runStart).Milliseconds())
		tracer.RecordSpan(runID, "llm_generate", runStart, dur, transcript, response, status, "")
		tracer.EndRun(runID, dur, transcript, response, status)

		done <- response
	}()
}

// bargeIn cancels any in-flight generation task, immediately appending
// whatever text had already been produced as a partial assistant turn. The
// generation goroutine keeps running in the background until its channel
// closes; its eventual completion report is discarded by handleCompletion.
func (m *Module) bargeIn() {
	if m.genCancel == nil {
		return
	}
	partial := m.genAccum.get()
	m.genCancel()
	m.genCancel = nil
	m.genAbandoned = true
	m.appendAssistant(partial)
}

// withRetrievedContext asks the configured Retriever (if any) for snippets
// relevant to the most recent non-system turn and prepends them as an
// ephemeral system turn ahead of generation. The retrieved context is never
// appended to m.history itself — it is query-time scaffolding, not part of
// the durable conversation.
func (m *Module) withRetrievedContext(ctx context.Context, history []ChatTurn) []ChatTurn {
	if m.retriever == nil || len(history) == 0 {
		return history
	}
	query := history[len(history)-1].Content
	snippets, err := m.retriever.Retrieve(ctx, query, 3)
	if err != nil || len(snippets) == 0 {
		return history
	}
	out := make([]ChatTurn, 0, len(history)+1)
	out = append(out, ChatTurn{Role: "system", Content: prompts.RAGContext(strings.Join(snippets, "\n"))})
	out = append(out, history...)
	return out
}

func (m *Module) handleCompletion(text string) {
	if m.genAbandoned {
		m.genAbandoned = false
		return
	}
	m.appendAssistant(text)
	m.waitSince = time.Now()
	m.setState(StateWaiting4TTS)
}
