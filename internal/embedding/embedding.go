package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/nishankhareln/Chatbot-with-PGvector/internal/config"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/models"
)

// Embedder turns texts into fixed-dimension vectors. Vector i of
// EmbedDocuments always corresponds to input text i.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

type innerEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Provider is the process-wide embedder. The backing model is loaded
// lazily on the first embed call and held for the process lifetime;
// concurrent first callers block on a single initialization and all see
// its outcome, success or failure.
type Provider struct {
	cfg     config.EmbeddingConfig
	once    sync.Once
	inner   innerEmbedder
	initErr error
}

var _ Embedder = (*Provider)(nil)

func NewProvider(cfg config.EmbeddingConfig) *Provider {
	return &Provider{cfg: cfg}
}

func (p *Provider) Dimension() int {
	return p.cfg.Dimension
}

func (p *Provider) init() error {
	p.once.Do(func() {
		log.Debug().
			Str("provider", p.cfg.Provider).
			Str("model", p.cfg.Model).
			Msg("initializing embedder")
		p.inner, p.initErr = p.build()
	})
	return p.initErr
}

func (p *Provider) build() (innerEmbedder, error) {
	switch p.cfg.Provider {
	case "local":
		return NewLocal(p.cfg.Dimension), nil
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(p.cfg.BaseURL),
			ollama.WithModel(p.cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama llm: %v", err)
		}
		return embeddings.NewEmbedder(llm, embeddings.WithBatchSize(p.cfg.BatchSize))
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(p.cfg.Key, "Bearer ")),
			openai.WithModel(p.cfg.Model),
		}
		if p.cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(p.cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai llm: %v", err)
		}
		return embeddings.NewEmbedder(llm, embeddings.WithBatchSize(p.cfg.BatchSize))
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", models.ErrInvalidConfig, p.cfg.Provider)
	}
}

// EmbedDocuments embeds a batch of texts. Inputs over the configured
// max length are truncated rather than rejected; every returned vector
// is checked against the configured dimension.
func (p *Provider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.init(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}
	trimmed := make([]string, len(texts))
	for i, t := range texts {
		trimmed[i] = truncateRunes(t, p.cfg.MaxInputRunes)
	}
	vecs, err := p.inner.EmbedDocuments(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d texts: %v", len(texts), err)
	}
	for i, vec := range vecs {
		if len(vec) != p.cfg.Dimension {
			return nil, fmt.Errorf("%w: got dimension %d for text %d, want %d",
				models.ErrDimensionMismatch, len(vec), i, p.cfg.Dimension)
		}
	}
	return vecs, nil
}

// EmbedQuery embeds a single text with the same truncation and
// dimension rules as EmbedDocuments.
func (p *Provider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := p.init(); err != nil {
		return nil, err
	}
	vec, err := p.inner.EmbedQuery(ctx, truncateRunes(text, p.cfg.MaxInputRunes))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %v", err)
	}
	if len(vec) != p.cfg.Dimension {
		return nil, fmt.Errorf("%w: got dimension %d, want %d",
			models.ErrDimensionMismatch, len(vec), p.cfg.Dimension)
	}
	return vec, nil
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
