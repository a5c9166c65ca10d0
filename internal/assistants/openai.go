package assistants

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// OpenAIAssistant queries the OpenAI chat completions API.
type OpenAIAssistant struct {
	apiKey    string
	model     string
	maxTokens int
	client    *resty.Client
}

// Ensure OpenAIAssistant implements Assistant
var _ Assistant = (*OpenAIAssistant)(nil)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIAssistant creates a new OpenAI-backed assistant
func NewOpenAIAssistant(apiKey, model string, maxTokens int) *OpenAIAssistant {
	return &OpenAIAssistant{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		client: resty.New().
			SetTimeout(60 * time.Second).
			SetHeader("User-Agent", userAgent),
	}
}

func (a *OpenAIAssistant) GetName() string {
	return "ChatGPT"
}

func (a *OpenAIAssistant) IsEnabled() bool {
	return a.apiKey != ""
}

func (a *OpenAIAssistant) Ask(ctx context.Context, query string) (string, error) {
	if !a.IsEnabled() {
		return "", fmt.Errorf("openai assistant disabled: missing API key")
	}

	body := openAIRequest{
		Model:     a.model,
		Messages:  []openAIMessage{{Role: "user", Content: query}},
		MaxTokens: a.maxTokens,
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+a.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("https://api.openai.com/v1/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("openai API returned status %d: %s", resp.StatusCode(), resp.Body())
	}

	return parseOpenAIResponse(resp.Body())
}

func parseOpenAIResponse(body []byte) (string, error) {
	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse openai response: %w", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("openai API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response contains no choices")
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai response is empty")
	}

	return text, nil
}
