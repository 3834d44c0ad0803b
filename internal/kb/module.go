package kb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hellocym/SwarmClone/internal/module"
	"github.com/hellocym/SwarmClone/internal/role"
)

// Config holds the knowledge-base module's tunables.
type Config struct {
	QdrantURL      string
	Collection     string
	EmbeddingURL   string
	EmbeddingModel string
	VectorSize     int
	ScoreThreshold float64
}

func DefaultConfig() Config {
	return Config{
		Collection:     "knowledge_base",
		VectorSize:     768,
		ScoreThreshold: 0.5,
	}
}

func Schema() []module.ConfigField {
	d := DefaultConfig()
	return []module.ConfigField{
		{Name: "qdrant_url", Kind: module.KindString, Required: true, Desc: "Qdrant REST endpoint"},
		{Name: "collection", Kind: module.KindString, Default: d.Collection, Desc: "Qdrant collection holding curated knowledge-base entries"},
		{Name: "embedding_url", Kind: module.KindString, Required: true, Desc: "Ollama-compatible embedding endpoint"},
		{Name: "embedding_model", Kind: module.KindString, Required: true, Desc: "embedding model name"},
		{Name: "vector_size", Kind: module.KindInt, Default: d.VectorSize, Desc: "embedding dimensionality", Min: module.Float(1), Max: module.Float(8192), Step: module.Float(1)},
		{Name: "score_threshold", Kind: module.KindFloat, Default: d.ScoreThreshold, Desc: "minimum similarity score to include a retrieved snippet", Min: module.Float(0), Max: module.Float(1), Step: module.Float(0.01)},
	}
}

func ConfigFromFields(fields map[string]any) (Config, error) {
	c := DefaultConfig()
	if v, ok := fields["qdrant_url"].(string); ok {
		c.QdrantURL = v
	}
	if v, ok := fields["collection"].(string); ok && v != "" {
		c.Collection = v
	}
	if v, ok := fields["embedding_url"].(string); ok {
		c.EmbeddingURL = v
	}
	if v, ok := fields["embedding_model"].(string); ok {
		c.EmbeddingModel = v
	}
	if v, ok := fields["vector_size"]; ok {
		if f, ok := v.(float64); ok && f > 0 {
			c.VectorSize = int(f)
		}
	}
	if v, ok := fields["score_threshold"]; ok {
		if f, ok := v.(float64); ok {
			c.ScoreThreshold = f
		}
	}
	if c.QdrantURL == "" || c.EmbeddingURL == "" || c.EmbeddingModel == "" {
		return c, fmt.Errorf("kb: qdrant_url, embedding_url, and embedding_model are required")
	}
	return c, nil
}

// Module is the PLUGIN role's knowledge-base implementation. Unlike
// message-routed modules, other modules reach it through direct method
// calls (it implements llm.Retriever) rather than through task_queue —
// PLUGIN modules are services the core calls into, not message
// destinations in the catalog. Run still governs its lifecycle alongside
// every other module so status/stop/restart behave uniformly.
type Module struct {
	module.Base
	cfg   Config
	qc    *QdrantClient
	ec    *EmbeddingClient
	log   *slog.Logger
	ready bool
}

func New(name string, cfg Config) *Module {
	return &Module{
		Base: module.NewBase(name, role.PLUGIN),
		cfg:  cfg,
		qc:   NewQdrantClient(cfg.QdrantURL),
		ec:   NewEmbeddingClient(cfg.EmbeddingURL, cfg.EmbeddingModel),
		log:  slog.Default().With("role", role.PLUGIN, "module", name),
	}
}

func Factory(name string) func(fields map[string]any) (module.Module, error) {
	return func(fields map[string]any) (module.Module, error) {
		cfg, err := ConfigFromFields(fields)
		if err != nil {
			return nil, err
		}
		return New(name, cfg), nil
	}
}

func (m *Module) ConfigSchema() []module.ConfigField { return Schema() }

// Run ensures the backing collection exists, then idles until cancelled:
// this module has no message-driven behavior.
func (m *Module) Run(ctx context.Context) error {
	if err := m.qc.EnsureCollection(ctx, m.cfg.Collection, m.cfg.VectorSize); err != nil {
		m.log.Warn("could not ensure knowledge base collection", "error", err)
	} else {
		m.ready = true
	}
	<-ctx.Done()
	return nil
}

// Retrieve implements llm.Retriever: embed the query, search the
// collection, and return the top matching snippets' text payload above
// score_threshold.
func (m *Module) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	vector, err := m.ec.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("kb: embed query: %w", err)
	}
	hits, err := m.qc.Search(ctx, m.cfg.Collection, vector, topK, m.cfg.ScoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("kb: search: %w", err)
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if text, ok := h.Payload["text"].(string); ok && text != "" {
			out = append(out, text)
		}
	}
	return out, nil
}

// Seed upserts curated knowledge-base entries, embedding each one's text.
func (m *Module) Seed(ctx context.Context, id, text string) error {
	vector, err := m.ec.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("kb: embed seed entry %s: %w", id, err)
	}
	return m.qc.Upsert(ctx, m.cfg.Collection, []Point{{ID: id, Vector: vector, Payload: map[string]any{"text": text}}})
}
