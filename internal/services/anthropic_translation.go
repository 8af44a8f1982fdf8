package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/polychat/backend/internal/metrics"
)

const (
	anthropicAPIURL  = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	anthropicModel   = "claude-3-5-haiku-latest"
	anthropicTimeout = 10 * time.Second
)

// AnthropicTranslation translates chat messages through the Anthropic
// messages API.
type AnthropicTranslation struct {
	apiKey     string
	httpClient *http.Client
	enabled    bool
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropicTranslation creates the Anthropic backend. It is enabled only
// when ANTHROPIC_API_KEY is set.
func NewAnthropicTranslation() *AnthropicTranslation {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")

	svc := &AnthropicTranslation{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: anthropicTimeout},
		enabled:    apiKey != "",
	}

	if svc.enabled {
		infoLog("Anthropic translation: enabled (model=%s)", anthropicModel)
	} else {
		infoLog("Anthropic translation: disabled (no ANTHROPIC_API_KEY)")
	}

	return svc
}

func (s *AnthropicTranslation) Name() string { return "anthropic" }

func (s *AnthropicTranslation) IsEnabled() bool { return s.enabled }

// Translate sends the message text to the messages endpoint and extracts the
// first text block.
func (s *AnthropicTranslation) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if !s.enabled {
		return "", fmt.Errorf("Anthropic translation not enabled")
	}

	startTime := time.Now()

	reqBody := anthropicRequest{
		Model:     anthropicModel,
		MaxTokens: 1024,
		System:    "You are a translation engine for a live chat system.",
		Messages: []anthropicMessage{
			{Role: "user", Content: translationPrompt(text, sourceLang, targetLang)},
		},
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", anthropicAPIURL, bytes.NewReader(reqJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.TranslationProviderErrors.WithLabelValues("anthropic", "network").Inc()
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.TranslationProviderLatency.WithLabelValues("anthropic").Observe(time.Since(startTime).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.TranslationProviderErrors.WithLabelValues("anthropic", "read").Inc()
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.TranslationProviderErrors.WithLabelValues("anthropic", "api").Inc()
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result anthropicResponse
	if err := json.Unmarshal(body, &result); err != nil {
		metrics.TranslationProviderErrors.WithLabelValues("anthropic", "parse").Inc()
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Error != nil {
		metrics.TranslationProviderErrors.WithLabelValues("anthropic", "api").Inc()
		return "", fmt.Errorf("API error (%s): %s", result.Error.Type, result.Error.Message)
	}

	for _, block := range result.Content {
		if block.Type == "text" && block.Text != "" {
			return strings.TrimSpace(block.Text), nil
		}
	}

	metrics.TranslationProviderErrors.WithLabelValues("anthropic", "empty").Inc()
	return "", fmt.Errorf("no text content returned")
}
