package assistants

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// AnthropicAssistant queries the Anthropic messages API.
type AnthropicAssistant struct {
	apiKey    string
	model     string
	maxTokens int
	client    *resty.Client
}

// Ensure AnthropicAssistant implements Assistant
var _ Assistant = (*AnthropicAssistant)(nil)

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropicAssistant creates a new Claude-backed assistant
func NewAnthropicAssistant(apiKey, model string, maxTokens int) *AnthropicAssistant {
	return &AnthropicAssistant{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		client: resty.New().
			SetTimeout(60 * time.Second).
			SetHeader("User-Agent", userAgent),
	}
}

func (a *AnthropicAssistant) GetName() string {
	return "Claude"
}

func (a *AnthropicAssistant) IsEnabled() bool {
	return a.apiKey != ""
}

func (a *AnthropicAssistant) Ask(ctx context.Context, query string) (string, error) {
	if !a.IsEnabled() {
		return "", fmt.Errorf("anthropic assistant disabled: missing API key")
	}

	body := anthropicRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: query}},
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", a.apiKey).
		SetHeader("anthropic-version", "2023-06-01").
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("https://api.anthropic.com/v1/messages")
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("anthropic API returned status %d: %s", resp.StatusCode(), resp.Body())
	}

	return parseAnthropicResponse(resp.Body())
}

func parseAnthropicResponse(body []byte) (string, error) {
	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse anthropic response: %w", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("anthropic API error: %s", parsed.Error.Message)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("anthropic response contains no text")
	}

	return text, nil
}
