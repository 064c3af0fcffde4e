package llmservice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"golang.org/x/time/rate"

	"github.com/nishankhareln/Chatbot-with-PGvector/internal/config"
	"github.com/nishankhareln/Chatbot-with-PGvector/internal/models"
)

// Client calls the answer generation backend. The model client is built
// lazily on first use and held for the process lifetime, so commands
// that never generate don't need credentials. Calls pass a rate
// limiter, and transient failures are retried a bounded number of times
// with doubling backoff.
type Client struct {
	cfg     config.LLMConfig
	limiter *rate.Limiter

	once    sync.Once
	llm     llms.Model
	initErr error
}

func NewClient(cfg config.LLMConfig) *Client {
	return &Client{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
	}
}

func (c *Client) init() error {
	c.once.Do(func() {
		log.Debug().
			Str("provider", c.cfg.Provider).
			Str("model", c.cfg.Model).
			Msg("initializing llm client")
		c.llm, c.initErr = c.build()
	})
	return c.initErr
}

func (c *Client) build() (llms.Model, error) {
	switch c.cfg.Provider {
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(c.cfg.BaseURL),
			ollama.WithModel(c.cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama llm: %v", err)
		}
		return llm, nil
	default:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(c.cfg.Key, "Bearer ")),
			openai.WithModel(c.cfg.Model),
		}
		if c.cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(c.cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai llm: %v", err)
		}
		return llm, nil
	}
}

// Generate answers the question from the context block. When retries
// exhaust, the error wraps ErrGenerationFailure so the caller can still
// hand back the retrieved chunks.
func (c *Client) Generate(ctx context.Context, question, contextBlock string) (string, error) {
	if err := c.init(); err != nil {
		return "", err
	}
	prompt := fmt.Sprintf(models.AnswerPromptTemplate, contextBlock, question)
	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	backoff := time.Duration(c.cfg.BackoffMS) * time.Millisecond
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		resp, err := c.llm.GenerateContent(ctx, messages)
		switch {
		case err != nil:
			lastErr = err
		case len(resp.Choices) == 0:
			lastErr = fmt.Errorf("model returned no choices")
		default:
			return resp.Choices[0].Content, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < c.cfg.MaxAttempts {
			log.Warn().Err(lastErr).Int("attempt", attempt).Msg("generation failed, retrying")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return "", fmt.Errorf("%w: after %d attempts: %v",
		models.ErrGenerationFailure, c.cfg.MaxAttempts, lastErr)
}
