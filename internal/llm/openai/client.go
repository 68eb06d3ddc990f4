// Package openai implements llm.Generator on OpenAI Chat Completions.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"internship-portal/internal/llm"
	"internship-portal/internal/shared/telemetry"
)

const (
	defaultModel = "gpt-4o-mini"
	systemPrompt = "You are a resume analysis engine. Respond with JSON only. No markdown. Never omit keys."
)

// Config holds the provider settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client implements llm.Generator. Retries are left to llm.Analyzer.
type Client struct {
	client openai.Client
	model  string
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &Client{client: openai.NewClient(opts...), model: model}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if params.MaxOutputTokens > 0 {
		req.MaxCompletionTokens = openai.Int(int64(params.MaxOutputTokens))
	}
	// gpt-5 models reject custom sampling settings.
	if !isGPT5(c.model) {
		req.Temperature = openai.Float(float64(params.Temperature))
		req.TopP = openai.Float(float64(params.TopP))
	}

	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	telemetry.Debug("llm.openai.usage", map[string]any{
		"model":             c.model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	})
	for _, choice := range resp.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", fmt.Errorf("%w: openai response missing content", llm.ErrInvalidResponse)
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Generator = (*Client)(nil)
