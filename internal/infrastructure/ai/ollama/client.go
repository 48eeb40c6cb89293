// Package ollama implements the model gateway against a local Ollama server
// using its native chat API.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/alchemorsel/recipemod/internal/infrastructure/ai"
	"github.com/alchemorsel/recipemod/internal/ports/outbound"
)

// Defaults for a local installation.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2:3b"
)

// Client implements outbound.ModelGateway using the Ollama API
type Client struct {
	cfg    ai.Config
	http   *resty.Client
	logger *zap.Logger
}

var _ outbound.ModelGateway = (*Client)(nil)

// NewClient creates a new Ollama client
func NewClient(cfg ai.Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = ai.DefaultSystemPrompt
	}

	logger = logger.Named("ollama")
	logger.Info("Ollama client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout))

	return &Client{
		cfg:    cfg,
		http:   ai.NewRestyClient(cfg),
		logger: logger,
	}
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	EvalCount       int         `json:"eval_count"`
	PromptEvalCount int         `json:"prompt_eval_count"`
}

// Name identifies the provider in errors and metrics
func (c *Client) Name() string {
	return ai.ProviderOllama
}

// Invoke runs one non-streaming chat request.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream:  false,
		Options: map[string]any{"temperature": c.cfg.Temperature},
	}
	if c.cfg.JSONMode {
		req.Format = "json"
	}
	if c.cfg.MaxTokens > 0 {
		req.Options["num_predict"] = c.cfg.MaxTokens
	}

	callCtx, cancel := ai.Deadline(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(callCtx).
		SetBody(req).
		Post("/api/chat")
	if err != nil {
		return "", ai.ClassifyError(ctx, callCtx, c.Name(), c.cfg.Timeout, err)
	}
	if resp.IsError() {
		return "", ai.ClassifyError(ctx, callCtx, c.Name(), c.cfg.Timeout,
			ai.NewStatusError(resp.StatusCode(), resp.Body()))
	}

	var out chatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", ai.ClassifyError(ctx, callCtx, c.Name(), c.cfg.Timeout,
			fmt.Errorf("decode chat response: %w", err))
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		return "", ai.ClassifyError(ctx, callCtx, c.Name(), c.cfg.Timeout,
			errors.New("empty completion"))
	}

	c.logger.Debug("Ollama response received",
		zap.String("model", out.Model),
		zap.Int("prompt_tokens", out.PromptEvalCount),
		zap.Int("completion_tokens", out.EvalCount),
		zap.Duration("latency", resp.Time()))

	return out.Message.Content, nil
}

// Ping checks that the server answers /api/tags.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/api/tags")
	if err != nil {
		return fmt.Errorf("ollama ping: %w", err)
	}
	if resp.IsError() {
		return ai.NewStatusError(resp.StatusCode(), resp.Body())
	}
	return nil
}
