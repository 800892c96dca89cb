// Package generation wraps Genkit text generation behind a small client that
// adds per-call timeouts and retry with exponential backoff on transient
// provider failures.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// defaultCallTimeout bounds a single generation attempt.
const defaultCallTimeout = 120 * time.Second

// Client generates text through a Genkit-registered model.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	g           *genkit.Genkit
	modelName   string
	temperature float64
	maxTokens   int
	retry       RetryConfig
	callTimeout time.Duration
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ClientOption {
	return func(c *Client) { c.temperature = t }
}

// WithMaxTokens caps the response length. Zero leaves the provider default.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) { c.maxTokens = n }
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(rc RetryConfig) ClientOption {
	return func(c *Client) { c.retry = rc }
}

// WithCallTimeout overrides the per-attempt timeout.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// NewClient creates a Client for the named model, e.g.
// "googleai/gemini-2.0-flash". logger may be nil.
func NewClient(g *genkit.Genkit, modelName string, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		g:           g,
		modelName:   modelName,
		temperature: 0.2,
		retry:       DefaultRetryConfig(),
		callTimeout: defaultCallTimeout,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate produces a completion for prompt, retrying transient provider
// failures with exponential backoff. It satisfies querygen.Generator.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	delay := c.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		text, err := c.generateOnce(ctx, prompt)
		if err == nil {
			c.logger.Debug("generation complete",
				"model", c.modelName,
				"attempts", attempt+1,
				"elapsed", time.Since(start),
				"response_length", len(text),
			)
			return text, nil
		}

		lastErr = err
		if !retryableError(err) {
			return "", fmt.Errorf("generate: %w", err)
		}
		if attempt == c.retry.MaxRetries {
			break
		}

		c.logger.Debug("retrying generation after transient error",
			"attempt", attempt+1, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, c.retry.MaxInterval)
		}
	}

	return "", fmt.Errorf("generate after %d retries (elapsed: %v): %w",
		c.retry.MaxRetries, time.Since(start), lastErr)
}

func (c *Client) generateOnce(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	opts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithPrompt(prompt),
	}
	config := &ai.GenerationCommonConfig{Temperature: c.temperature}
	if c.maxTokens > 0 {
		config.MaxOutputTokens = c.maxTokens
	}
	opts = append(opts, ai.WithConfig(config))

	resp, err := genkit.Generate(callCtx, c.g, opts...)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
