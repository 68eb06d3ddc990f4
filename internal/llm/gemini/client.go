// Package gemini implements llm.Generator on the Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"internship-portal/internal/llm"
	"internship-portal/internal/shared/telemetry"
)

const defaultModel = "gemini-2.5-flash"

// Config holds the provider settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client sends prompts to the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{client: c, model: model}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	temperature := params.Temperature
	topP := params.TopP
	topK := params.TopK
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		TopP:             &topP,
		TopK:             &topK,
		MaxOutputTokens:  params.MaxOutputTokens,
		ResponseMIMEType: "application/json",
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: nil gemini response", llm.ErrInvalidResponse)
	}
	if resp.UsageMetadata != nil {
		telemetry.Debug("llm.gemini.usage", map[string]any{
			"model":             c.model,
			"prompt_tokens":     resp.UsageMetadata.PromptTokenCount,
			"candidates_tokens": resp.UsageMetadata.CandidatesTokenCount,
		})
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty gemini response", llm.ErrInvalidResponse)
	}
	return text, nil
}

var _ llm.Generator = (*Client)(nil)
