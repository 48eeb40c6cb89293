// Package openai implements the model gateway against any OpenAI-compatible
// chat completions endpoint (OpenAI, OpenRouter, DeepSeek, Ollama's /v1).
package openai

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

// DefaultBaseURL is used when ai.base_url is empty.
const DefaultBaseURL = "https://api.openai.com/v1"

// Client implements outbound.ModelGateway
type Client struct {
	cfg    ai.Config
	http   *resty.Client
	logger *zap.Logger
}

var _ outbound.ModelGateway = (*Client)(nil)

// NewClient creates a new OpenAI-compatible client
func NewClient(cfg ai.Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = ai.DefaultSystemPrompt
	}

	logger = logger.Named("openai")
	logger.Info("OpenAI client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout),
		zap.Bool("api_key_set", cfg.APIKey != ""))

	return &Client{
		cfg:    cfg,
		http:   ai.NewRestyClient(cfg),
		logger: logger,
	}
}

// OpenAI API structures
type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Name identifies the provider in errors and metrics
func (c *Client) Name() string {
	return ai.ProviderOpenAI
}

// Invoke sends prompt as a single user message and returns the raw completion.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	req := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	if c.cfg.JSONMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	callCtx, cancel := ai.Deadline(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(callCtx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		return "", ai.ClassifyError(ctx, callCtx, c.Name(), c.cfg.Timeout, err)
	}
	if resp.IsError() {
		return "", ai.ClassifyError(ctx, callCtx, c.Name(), c.cfg.Timeout,
			ai.NewStatusError(resp.StatusCode(), resp.Body()))
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", ai.ClassifyError(ctx, callCtx, c.Name(), c.cfg.Timeout,
			fmt.Errorf("decode chat completion: %w", err))
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ai.ClassifyError(ctx, callCtx, c.Name(), c.cfg.Timeout,
			errors.New("empty completion"))
	}

	c.logger.Debug("Chat completion received",
		zap.Int("prompt_tokens", out.Usage.PromptTokens),
		zap.Int("completion_tokens", out.Usage.CompletionTokens),
		zap.String("finish_reason", out.Choices[0].FinishReason),
		zap.Duration("latency", resp.Time()))

	return out.Choices[0].Message.Content, nil
}

// Ping lists models, which every compatible endpoint serves without cost.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/models")
	if err != nil {
		return fmt.Errorf("openai ping: %w", err)
	}
	if resp.IsError() {
		return ai.NewStatusError(resp.StatusCode(), resp.Body())
	}
	return nil
}
