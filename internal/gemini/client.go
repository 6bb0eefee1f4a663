// Package gemini adapts the Google GenAI SDK to ops.Generator.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.0-flash"

// Client sends single-shot generation requests to the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a client for the Gemini API backend.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Generate performs one GenerateContent call. There is no retry and no
// deadline beyond ctx.
func (c *Client) Generate(ctx context.Context, prompt string, schema json.RawMessage) (string, error) {
	cfg, err := generationConfig(schema)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// generationConfig builds the request config. A non-empty schema switches the
// response to JSON constrained by that schema.
func generationConfig(schema json.RawMessage) (*genai.GenerateContentConfig, error) {
	trimmed := strings.TrimSpace(string(schema))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var s genai.Schema
	if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
		return nil, fmt.Errorf("invalid response schema: %w", err)
	}

	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   &s,
	}, nil
}
