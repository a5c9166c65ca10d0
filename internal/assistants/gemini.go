package assistants

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// GeminiAssistant queries the Google Gemini generateContent API.
type GeminiAssistant struct {
	apiKey    string
	model     string
	maxTokens int
	client    *resty.Client
}

// Ensure GeminiAssistant implements Assistant
var _ Assistant = (*GeminiAssistant)(nil)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGeminiAssistant creates a new Gemini-backed assistant
func NewGeminiAssistant(apiKey, model string, maxTokens int) *GeminiAssistant {
	return &GeminiAssistant{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		client: resty.New().
			SetTimeout(60 * time.Second).
			SetHeader("User-Agent", userAgent),
	}
}

func (a *GeminiAssistant) GetName() string {
	return "Gemini"
}

func (a *GeminiAssistant) IsEnabled() bool {
	return a.apiKey != ""
}

func (a *GeminiAssistant) Ask(ctx context.Context, query string) (string, error) {
	if !a.IsEnabled() {
		return "", fmt.Errorf("gemini assistant disabled: missing API key")
	}

	var body geminiRequest
	body.Contents = []geminiContent{{Parts: []geminiPart{{Text: query}}}}
	body.GenerationConfig.MaxOutputTokens = a.maxTokens

	endpoint := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", a.model)

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("key", a.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(endpoint)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("gemini API returned status %d: %s", resp.StatusCode(), resp.Body())
	}

	return parseGeminiResponse(resp.Body())
}

func parseGeminiResponse(body []byte) (string, error) {
	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse gemini response: %w", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("gemini API error: %s", parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response contains no candidates")
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("gemini response is empty")
	}

	return text, nil
}
