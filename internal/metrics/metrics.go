// Package metrics exposes the orchestrator's Prometheus instrumentation.
// Naming and construction style (promauto-registered package vars, labeled
// vecs per concern) follows the reference gateway's metrics package; the
// metric set itself is specific to module lifecycle, routing, and the LLM
// turn state machine rather than to an ASR/TTS telephony pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ModulesLive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orchestrator_modules_live",
		Help: "Modules currently attached and running, by role",
	}, []string{"role"})

	TaskQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orchestrator_task_queue_depth",
		Help: "Current depth of a module's task_queue",
	}, []string{"role", "module"})

	ResultsQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orchestrator_results_queue_depth",
		Help: "Current depth of a module's results_queue",
	}, []string{"role", "module"})

	QueueOverflow = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_queue_overflow_total",
		Help: "Messages dropped because a destination task_queue was full",
	}, []string{"role", "message_name"})

	ModuleCrashes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_module_crashes_total",
		Help: "Module Run() completions that carried an error",
	}, []string{"role", "module"})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orchestrator_turn_duration_seconds",
		Help:    "Wall-clock duration of one LLM turn (IDLE to IDLE)",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
	})

	StateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_llm_state_transitions_total",
		Help: "LLM state machine transitions",
	}, []string{"from", "to"})

	GenerationStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orchestrator_generation_stage_duration_seconds",
		Help:    "Per-stage latency of external collaborators (generation, synthesis, embedding)",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.0, 2.0, 5.0},
	}, []string{"stage"})

	ChatAdmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orchestrator_chat_messages_total",
		Help: "ChatMessage admission decisions",
	}, []string{"admitted"})

	TTSSynthesisFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orchestrator_tts_synthesis_failures_total",
		Help: "Synthesis calls that fell back to the placeholder-audio policy",
	})
)
