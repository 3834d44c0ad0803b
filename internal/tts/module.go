package tts

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hellocym/SwarmClone/internal/message"
	"github.com/hellocym/SwarmClone/internal/metrics"
	"github.com/hellocym/SwarmClone/internal/module"
	"github.com/hellocym/SwarmClone/internal/role"
	"github.com/hellocym/SwarmClone/internal/trace"
)

const (
	preprocessTick = 20 * time.Millisecond
	synthesisTick  = 20 * time.Millisecond
	// placeholderDurationPerRune is the uniform per-rune duration used for
	// the single alignment entry covering a failed synthesis's original
	// text, so downstream display timing stays roughly proportional to
	// text length even without real audio.
	placeholderDurationPerRune = 0.06
)

// Config holds the TTS module's tunables.
type Config struct {
	ProcessedQueueCapacity int
}

func DefaultConfig() Config {
	return Config{ProcessedQueueCapacity: module.QueueCapacity}
}

func Schema() []module.ConfigField {
	d := DefaultConfig()
	return []module.ConfigField{
		{Name: "processed_queue_capacity", Kind: module.KindInt, Default: d.ProcessedQueueCapacity, Desc: "capacity of the internal processed_queue between preprocessing and synthesis", Min: module.Float(1), Max: module.Float(1024), Step: module.Float(1)},
	}
}

// Module is the TTS role's module.Module implementation.
type Module struct {
	module.Base

	cfg    Config
	synt   Synthesizer
	log    *slog.Logger
	tracer *trace.Tracer

	processed *module.Queue
}

// New constructs a TTS module instance.
func New(name string, cfg Config, synt Synthesizer) *Module {
	b := module.NewBase(name, role.TTS)
	return &Module{
		Base:      b,
		cfg:       cfg,
		synt:      synt,
		log:       slog.Default().With("role", role.TTS, "module", name),
		processed: module.NewQueue(),
	}
}

// Factory adapts a constructed Synthesizer into a registry Factory.
func Factory(name string, synt Synthesizer) func(fields map[string]any) (module.Module, error) {
	return func(fields map[string]any) (module.Module, error) {
		return New(name, DefaultConfig(), synt), nil
	}
}

func (m *Module) ConfigSchema() []module.ConfigField { return Schema() }

// SetTracer attaches the per-session tracer the controller wires in before
// launching Run. A nil tracer makes every trace call below a no-op.
func (m *Module) SetTracer(t *trace.Tracer) { m.tracer = t }

func (m *Module) source() message.Source {
	return message.Source{Role: role.TTS, Name: m.Name()}
}

// Run launches the preprocessing and synthesis loops and blocks until both
// have returned (each returns when ctx is cancelled), or until either one
// returns an error.
func (m *Module) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() { errCh <- m.preprocessLoop(ctx) }()
	go func() { errCh <- m.synthesisLoop(ctx) }()

	for range 2 {
		if err := <-errCh; err != nil {
			return err
		}
	}
	return nil
}

// preprocessLoop continuously moves task_queue -> processed_queue,
// forwarding only LLMMessage, and drains processed_queue on ASRActivated
// (barge-in: discard pending sentences immediately).
func (m *Module) preprocessLoop(ctx context.Context) error {
	ticker := time.NewTicker(preprocessTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, ok := m.TaskQueue().TryPop()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			continue
		}

		switch msg.Name {
		case "ASRActivated":
			n := m.processed.Drain()
			if n > 0 {
				m.log.Debug("barge-in: discarded pending sentences", "count", n)
			}
		case "LLMMessage":
			if !m.processed.TryPush(msg) {
				metrics.QueueOverflow.WithLabelValues(string(role.TTS), msg.Name).Inc()
				m.log.Warn("processed_queue full, dropping sentence")
			}
		}
	}
}

// synthesisLoop pops LLMMessage from processed_queue and synthesizes each
// into a TTSAlignedAudio, preserving per-id and per-turn ordering since it
// is the queue's only consumer.
func (m *Module) synthesisLoop(ctx context.Context) error {
	ticker := time.NewTicker(synthesisTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, ok := m.processed.TryPop()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			continue
		}

		payload := msg.GetValue(m.source())
		if payload == nil {
			continue
		}
		id, _ := payload["id"].(string)
		content, _ := payload["content"].(string)
		emotion, _ := payload["emotion"].(map[string]float64)

		runID := m.tracer.StartRun()
		start := time.Now()

		result, err := m.synt.Synthesize(ctx, id, content, emotion)
		status, errMsg := "ok", ""
		if err != nil {
			metrics.TTSSynthesisFailures.Inc()
			m.log.Warn("synthesis failed, emitting placeholder", "id", id, "error", err)
			result = placeholder(content)
			status, errMsg = "error", err.Error()
		}

		dur := float64(time.Since(start).Milliseconds())
		m.tracer.RecordSpan(runID, "tts_synthesize", start, dur, content, "", status, errMsg)
		m.tracer.EndRun(runID, dur, content, "", status)

		m.ResultsQueue().TryPush(message.NewTTSAlignedAudio(m.source(), id, result.Audio, result.Align))
	}
}

// placeholder builds the zero-length-audio, single-alignment-entry result
// the failure policy requires.
func placeholder(content string) Result {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	if n == 0 {
		n = 1
	}
	return Result{
		Audio: []byte{},
		Align: []AlignEntry{{Token: content, Duration: float64(n) * placeholderDurationPerRune}},
	}
}
