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
	googleModel   = "gemini-2.0-flash"
	googleAPIURL  = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
	googleTimeout = 10 * time.Second
)

// GoogleTranslation translates chat messages through the Gemini
// generateContent API.
type GoogleTranslation struct {
	apiKey     string
	httpClient *http.Client
	enabled    bool
}

type googleRequest struct {
	Contents         []googleContent `json:"contents"`
	GenerationConfig googleGenConfig `json:"generationConfig"`
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type googleResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGoogleTranslation creates the Gemini backend. It is enabled only when
// GOOGLE_API_KEY (or a file pointed to by GOOGLE_API_KEY_FILE) is set.
func NewGoogleTranslation() *GoogleTranslation {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		// Try reading from file as fallback (for local dev)
		if keyPath := os.Getenv("GOOGLE_API_KEY_FILE"); keyPath != "" {
			if data, err := os.ReadFile(keyPath); err == nil {
				apiKey = strings.TrimSpace(string(data))
			}
		}
	}

	svc := &GoogleTranslation{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: googleTimeout},
		enabled:    apiKey != "",
	}

	if svc.enabled {
		infoLog("Google translation: enabled (model=%s)", googleModel)
	} else {
		infoLog("Google translation: disabled (no GOOGLE_API_KEY)")
	}

	return svc
}

func (s *GoogleTranslation) Name() string { return "google" }

func (s *GoogleTranslation) IsEnabled() bool { return s.enabled }

// Translate sends the message text to generateContent and extracts the first
// candidate part.
func (s *GoogleTranslation) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if !s.enabled {
		return "", fmt.Errorf("Google translation not enabled")
	}

	startTime := time.Now()

	reqBody := googleRequest{
		Contents: []googleContent{
			{Parts: []googlePart{{Text: translationPrompt(text, sourceLang, targetLang)}}},
		},
		GenerationConfig: googleGenConfig{
			Temperature:     0.2,
			MaxOutputTokens: 1024,
		},
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf(googleAPIURL, googleModel) + "?key=" + s.apiKey
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	debugLog("Google request: model=%s, input_len=%d", googleModel, len(text))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.TranslationProviderErrors.WithLabelValues("google", "network").Inc()
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.TranslationProviderLatency.WithLabelValues("google").Observe(time.Since(startTime).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.TranslationProviderErrors.WithLabelValues("google", "read").Inc()
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.TranslationProviderErrors.WithLabelValues("google", "api").Inc()
		debugLog("Google API error: status=%d body=%s", resp.StatusCode, string(body))
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result googleResponse
	if err := json.Unmarshal(body, &result); err != nil {
		metrics.TranslationProviderErrors.WithLabelValues("google", "parse").Inc()
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Error != nil {
		metrics.TranslationProviderErrors.WithLabelValues("google", "api").Inc()
		return "", fmt.Errorf("API error %d: %s", result.Error.Code, result.Error.Message)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		metrics.TranslationProviderErrors.WithLabelValues("google", "empty").Inc()
		return "", fmt.Errorf("no candidates returned")
	}

	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}
