package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hellocym/SwarmClone/internal/config"
	"github.com/hellocym/SwarmClone/internal/controller"
	"github.com/hellocym/SwarmClone/internal/frontend"
	"github.com/hellocym/SwarmClone/internal/httpapi"
	"github.com/hellocym/SwarmClone/internal/kb"
	"github.com/hellocym/SwarmClone/internal/llm"
	"github.com/hellocym/SwarmClone/internal/llmbackend"
	"github.com/hellocym/SwarmClone/internal/mcptools"
	"github.com/hellocym/SwarmClone/internal/module"
	"github.com/hellocym/SwarmClone/internal/modules"
	"github.com/hellocym/SwarmClone/internal/registry"
	"github.com/hellocym/SwarmClone/internal/role"
	"github.com/hellocym/SwarmClone/internal/sidecar"
	"github.com/hellocym/SwarmClone/internal/trace"
	"github.com/hellocym/SwarmClone/internal/tts"
	"github.com/hellocym/SwarmClone/internal/ttsbackend"
)

// version is the build identifier returned by get_version. Overridden at
// build time via -ldflags.
var version = "dev"

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
	log := slog.Default()

	t := config.LoadTuning(config.Str("TUNING_FILE", "controller.json"))

	addr := ":" + config.Str("CONTROLLER_PORT", "8000")
	modelURL := config.Str("MODEL_URL", "http://localhost:11434/v1")
	modelKey := config.Str("MODEL_API_KEY", "ollama")
	qdrantURL := config.Str("QDRANT_URL", "")
	embeddingURL := config.Str("EMBEDDING_URL", "")
	embeddingModel := config.Str("EMBEDDING_MODEL", "nomic-embed-text")
	ttsURL := config.Str("TTS_URL", "")
	postgresURL := config.Str("POSTGRES_URL", "")

	reg := registry.New()

	var tools *mcptools.Host
	mcpPaths := []string{
		config.Str("MCP_SERVER_PATH_1", ""),
		config.Str("MCP_SERVER_PATH_2", ""),
		config.Str("MCP_SERVER_PATH_3", ""),
	}
	if hasAny(mcpPaths) {
		tools = mcptools.New()
		for i, p := range mcpPaths {
			if p == "" {
				continue
			}
			if err := tools.Connect(context.Background(), "mcp"+strconv.Itoa(i+1), p); err != nil {
				log.Warn("mcp server connect failed", "path", p, "error", err)
			}
		}
	}

	classifier := llm.NewClassifier(t.ClassifierBackend, config.Str("CLASSIFIER_URL", ""))

	// The knowledge-base module is constructed once here, not via a
	// per-start factory closure: the LLM generator needs a fixed
	// llm.Retriever reference at registration time, and it must be the
	// same instance the controller attaches so get_status reflects its
	// real health once selected.
	var retriever llm.Retriever
	if qdrantURL != "" && embeddingURL != "" {
		kbCfg := kb.DefaultConfig()
		kbCfg.QdrantURL = qdrantURL
		kbCfg.EmbeddingURL = embeddingURL
		kbCfg.EmbeddingModel = embeddingModel
		kbMod := kb.New("knowledge_base", kbCfg)
		retriever = kbMod
		registerFixed(reg, log, registry.Entry{
			Role: role.PLUGIN, Name: "knowledge_base",
			Desc:   "curated knowledge-base retrieval over a Qdrant collection",
			Schema: kb.Schema(),
		}, kbMod)
	}

	generator := llmbackend.NewOpenAIGenerator(modelURL, modelKey, t.LLMModelID, t.LLMTemperature, classifier, tools)

	llmBase := llm.DefaultConfig()
	llmBase.SystemPrompt = t.LLMSystemPrompt
	llmBase.ModelID = t.LLMModelID
	llmBase.ModelURL = modelURL
	llmBase.APIKey = modelKey
	llmBase.Temperature = t.LLMTemperature
	llmBase.ChatMaxSize = t.LLMChatMaxSize
	llmBase.ChatSizeThreshold = t.LLMChatThreshold
	llmBase.ASRTimeout = time.Duration(t.LLMASRTimeoutSec * float64(time.Second))
	llmBase.TTSTimeout = time.Duration(t.LLMTTSTimeoutSec * float64(time.Second))
	llmBase.IdleTimeout = time.Duration(t.LLMIdleTimeoutSec * float64(time.Second))
	llmBase.ClassifierBackend = t.ClassifierBackend

	if err := reg.Register(registry.Entry{
		Role: role.LLM, Name: "agent",
		Desc:    "OpenAI-compatible conversational turn-taking agent",
		Factory: llm.Factory("agent", generator, retriever, llmBase),
		Schema:  llm.Schema(llmBase),
	}); err != nil {
		log.Error("register agent", "error", err)
	}

	var synth tts.Synthesizer
	if ttsURL != "" {
		synth = ttsbackend.NewHTTPSynthesizer(ttsURL, t.TTSVoice)
	} else {
		synth = ttsbackend.NewDummySynthesizer()
	}
	if err := reg.Register(registry.Entry{
		Role: role.TTS, Name: "synthesizer",
		Desc:    "streaming sentence-at-a-time speech synthesis",
		Factory: tts.Factory("synthesizer", synth),
		Schema:  tts.Schema(),
	}); err != nil {
		log.Error("register synthesizer", "error", err)
	}

	if err := reg.Register(registry.Entry{
		Role: role.ASR, Name: "asr_dummy",
		Desc:    "periodic synthetic speech recognition for local testing",
		Factory: modules.ASRDummyFactory("asr_dummy"),
		Schema:  modules.ASRDummySchema(),
	}); err != nil {
		log.Error("register asr_dummy", "error", err)
	}
	if err := reg.Register(registry.Entry{
		Role: role.CHAT, Name: "chat_dummy",
		Desc:    "periodic synthetic chat messages for local testing",
		Factory: modules.ChatDummyFactory("chat_dummy"),
		Schema:  modules.ChatDummySchema(),
	}); err != nil {
		log.Error("register chat_dummy", "error", err)
	}

	// The frontend module is likewise constructed once: its websocket
	// ServeHTTP handler and its task_queue-driven broadcast loop must be
	// the same instance, so incoming client connections see the messages
	// the controller routes to it.
	frontendMod := frontend.New("display", frontend.DefaultConfig())
	registerFixed(reg, log, registry.Entry{
		Role: role.FRONTEND, Name: "display",
		Desc:   "websocket fan-out to connected avatar display clients",
		Schema: frontend.Schema(),
	}, frontendMod)

	if err := reg.Register(registry.Entry{
		Role: role.PLUGIN, Name: "sidecars",
		Desc:    "HTTP start/stop/health control of out-of-process ML sidecars",
		Factory: sidecar.Factory("sidecars"),
		Schema:  sidecar.Schema(),
	}); err != nil {
		log.Error("register sidecars", "error", err)
	}

	var traceStore *trace.Store
	if postgresURL != "" {
		var err error
		traceStore, err = trace.Open(postgresURL)
		if err != nil {
			log.Error("trace store open failed", "error", err)
		} else {
			log.Info("turn tracing enabled", "postgres", postgresURL)
		}
	}

	ctrl := controller.New(reg, version, log)
	ctrl.SetTraceStore(traceStore)

	mux := httpapi.NewMux(httpapi.Deps{
		Controller: ctrl,
		Frontend:   frontendMod,
		Trace:      traceStore,
		Log:        log,
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	go awaitShutdown(srv, ctrl, tools, traceStore)

	log.Info("controller starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
	log.Info("controller stopped")
}

// registerFixed registers entry with a Factory that always returns the same
// pre-built instance, ignoring the start request's field map: used for
// modules another component holds a direct, non-bus reference to (the
// knowledge-base retriever, the frontend websocket handler).
func registerFixed(reg *registry.Registry, log *slog.Logger, entry registry.Entry, instance module.Module) {
	entry.Factory = func(map[string]any) (module.Module, error) { return instance, nil }
	if err := reg.Register(entry); err != nil {
		log.Error("register fixed module", "name", entry.Name, "error", err)
	}
}

func awaitShutdown(srv *http.Server, ctrl *controller.Controller, tools *mcptools.Host, traceStore *trace.Store) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)

	ctrl.Stop()
	if tools != nil {
		tools.Close()
	}
	if traceStore != nil {
		traceStore.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

func hasAny(ss []string) bool {
	for _, s := range ss {
		if s != "" {
			return true
		}
	}
	return false
}
