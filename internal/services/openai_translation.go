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
	openaiAPIURL  = "https://api.openai.com/v1/chat/completions"
	openaiModel   = "gpt-4o-mini"
	openaiTimeout = 10 * time.Second
)

// OpenAITranslation translates chat messages through the OpenAI chat
// completions API.
type OpenAITranslation struct {
	apiKey     string
	httpClient *http.Client
	enabled    bool
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAITranslation creates the OpenAI backend. It is enabled only when
// OPENAI_API_KEY is set.
func NewOpenAITranslation() *OpenAITranslation {
	apiKey := os.Getenv("OPENAI_API_KEY")

	svc := &OpenAITranslation{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: openaiTimeout},
		enabled:    apiKey != "",
	}

	if svc.enabled {
		infoLog("OpenAI translation: enabled (model=%s)", openaiModel)
	} else {
		infoLog("OpenAI translation: disabled (no OPENAI_API_KEY)")
	}

	return svc
}

func (s *OpenAITranslation) Name() string { return "openai" }

func (s *OpenAITranslation) IsEnabled() bool { return s.enabled }

// Translate sends the message text to the chat completions endpoint and
// extracts the first choice.
func (s *OpenAITranslation) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if !s.enabled {
		return "", fmt.Errorf("OpenAI translation not enabled")
	}

	startTime := time.Now()

	reqBody := openaiRequest{
		Model: openaiModel,
		Messages: []openaiMessage{
			{Role: "system", Content: "You are a translation engine for a live chat system."},
			{Role: "user", Content: translationPrompt(text, sourceLang, targetLang)},
		},
		Temperature: 0.2,
		MaxTokens:   1024,
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", openaiAPIURL, bytes.NewReader(reqJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.TranslationProviderErrors.WithLabelValues("openai", "network").Inc()
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.TranslationProviderLatency.WithLabelValues("openai").Observe(time.Since(startTime).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.TranslationProviderErrors.WithLabelValues("openai", "read").Inc()
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.TranslationProviderErrors.WithLabelValues("openai", "api").Inc()
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result openaiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		metrics.TranslationProviderErrors.WithLabelValues("openai", "parse").Inc()
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Error != nil {
		metrics.TranslationProviderErrors.WithLabelValues("openai", "api").Inc()
		return "", fmt.Errorf("API error (%s): %s", result.Error.Type, result.Error.Message)
	}

	if len(result.Choices) == 0 {
		metrics.TranslationProviderErrors.WithLabelValues("openai", "empty").Inc()
		return "", fmt.Errorf("no choices returned")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
