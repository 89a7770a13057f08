package ai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"

	"sibyl/internal/adapters/config"
	"sibyl/pkg/errors"
	"sibyl/pkg/logger"
)

// Chat is the minimal surface the pipeline needs from a language model:
// one system-primed completion per call, returning raw text.
type Chat interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client calls the OpenAI chat completions API using the official SDK.
// Calls are rate limited and bounded by a per-call timeout.
type Client struct {
	client  openai.Client
	model   openai.ChatModel
	timeout time.Duration
	limiter *rate.Limiter
	log     *logger.Logger
}

// Ensure Client implements Chat
var _ Chat = (*Client)(nil)

// NewClient creates a chat client, or an error when no API key is configured
func NewClient(cfg config.AIConfig) (*Client, error) {
	if cfg.OpenAIKey == "" {
		return nil, errors.ErrNoDecisionProvider
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 60
	}

	return &Client{
		client:  openai.NewClient(opts...),
		model:   openai.ChatModel(cfg.DecisionModel),
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(perMinute/60.0), 1),
		log:     logger.Get().With("component", "ai_client", "model", cfg.DecisionModel),
	}, nil
}

// Complete sends one system+user exchange and returns the assistant text
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "rate limiter wait")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion failed")
	}

	if len(resp.Choices) == 0 {
		return "", errors.Wrapf(errors.ErrExternal, "no choices in completion response")
	}

	c.log.Debugw("Chat completion finished",
		"duration", time.Since(start),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return resp.Choices[0].Message.Content, nil
}
