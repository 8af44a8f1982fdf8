package services

import (
	"context"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/polychat/backend/internal/metrics"
)

// providerCallTimeout bounds a single provider call so a slow translation API
// can never hold up message persistence.
const providerCallTimeout = 10 * time.Second

// TranslationService is the translate-or-reuse pipeline: secret scrub, cache
// lookup, provider dispatch, cache write-through. Every failure mode degrades
// to a nil translation and the chat keeps delivering the original text.
type TranslationService struct {
	cache    *TranslationCacheService
	provider TranslationProvider
	enabled  bool
}

// TranslationStatus is the shape returned by the operator status endpoint.
type TranslationStatus struct {
	Enabled         bool   `json:"enabled"`
	Provider        string `json:"provider"`
	ProviderEnabled bool   `json:"provider_enabled"`
	CacheEntries    int64  `json:"cache_entries"`
	CacheHits       int64  `json:"cache_hits"`
}

// NewTranslationService builds the pipeline from environment configuration:
// TRANSLATION_ENABLED gates the whole thing, TRANSLATION_PROVIDER picks the
// backend (default "google").
func NewTranslationService(db *gorm.DB) *TranslationService {
	enabled := true
	if v := strings.ToLower(os.Getenv("TRANSLATION_ENABLED")); v == "0" || v == "false" || v == "no" {
		enabled = false
	}

	providerName := os.Getenv("TRANSLATION_PROVIDER")
	if providerName == "" {
		providerName = "google"
	}

	svc := &TranslationService{
		cache:    NewTranslationCacheService(db),
		provider: NewTranslationProvider(providerName),
		enabled:  enabled,
	}

	providerEnabled := svc.provider != nil && svc.provider.IsEnabled()
	infoLog("Translation service initialized: enabled=%v, provider=%s, provider_ready=%v",
		enabled, providerName, providerEnabled)

	return svc
}

// IsEnabled reports whether translation is globally on and a provider is ready.
func (s *TranslationService) IsEnabled() bool {
	return s.enabled && s.provider != nil && s.provider.IsEnabled()
}

// Translate returns the translated text, or nil when translation was skipped
// or failed for any reason. It never returns an error: translation is a
// best-effort enhancement and the caller stores the original text regardless.
func (s *TranslationService) Translate(ctx context.Context, text, sourceLang, targetLang string) *string {
	if !s.enabled {
		metrics.TranslationDecisions.WithLabelValues("disabled").Inc()
		return nil
	}

	if text == "" || sourceLang == "" || targetLang == "" || sourceLang == targetLang {
		metrics.TranslationDecisions.WithLabelValues("same_language").Inc()
		return nil
	}

	if IsLikelySecret(text) {
		infoLog("Scrubber blocked translation of credential-shaped text (%s->%s, len=%d)",
			sourceLang, targetLang, len(text))
		metrics.TranslationDecisions.WithLabelValues("scrubbed").Inc()
		return nil
	}

	if cached, found := s.cache.Get(text, sourceLang, targetLang); found {
		metrics.TranslationDecisions.WithLabelValues("cache").Inc()
		return &cached
	}

	if s.provider == nil || !s.provider.IsEnabled() {
		metrics.TranslationDecisions.WithLabelValues("disabled").Inc()
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, providerCallTimeout)
	defer cancel()

	translated, err := s.provider.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		infoLog("Provider %s error: %v", s.provider.Name(), err)
		metrics.TranslationDecisions.WithLabelValues("failed").Inc()
		return nil
	}

	translated = strings.TrimSpace(translated)
	if translated == "" {
		metrics.TranslationDecisions.WithLabelValues("failed").Inc()
		return nil
	}

	if err := s.cache.Set(text, sourceLang, targetLang, translated, s.provider.Name()); err != nil {
		infoLog("Cache write failed: %v", err)
	}

	metrics.TranslationDecisions.WithLabelValues("provider").Inc()
	debugLog("Translated (%s->%s): %q -> %q", sourceLang, targetLang,
		truncateText(text, 40), truncateText(translated, 40))
	return &translated
}

// Status returns the current pipeline state for the operator console.
func (s *TranslationService) Status() TranslationStatus {
	status := TranslationStatus{Enabled: s.enabled}
	if s.provider != nil {
		status.Provider = s.provider.Name()
		status.ProviderEnabled = s.provider.IsEnabled()
	}
	status.CacheEntries, status.CacheHits = s.cache.GetStats()
	return status
}

// truncateText truncates text to maxLen runes with ellipsis.
// Uses rune count instead of byte count to properly handle UTF-8.
func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
