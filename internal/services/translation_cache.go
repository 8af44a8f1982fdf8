package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/polychat/backend/internal/metrics"
	"github.com/polychat/backend/internal/models"
)

// TranslationCacheService memoizes provider translations in the database,
// keyed by SHA-256 of the source text plus the language pair. Exact match
// only; entries never expire.
type TranslationCacheService struct {
	db *gorm.DB
}

// NewTranslationCacheService creates a new translation cache service
func NewTranslationCacheService(db *gorm.DB) *TranslationCacheService {
	return &TranslationCacheService{db: db}
}

// Get retrieves a cached translation for the exact (text, sourceLang, targetLang)
// triple. Returns the translated text and true on a hit.
func (s *TranslationCacheService) Get(sourceText, sourceLang, targetLang string) (string, bool) {
	if s.db == nil {
		return "", false
	}

	hash := hashText(sourceText)

	var cached models.TranslationCache
	err := s.db.
		Where("source_hash = ? AND source_language = ? AND target_language = ?", hash, sourceLang, targetLang).
		First(&cached).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			debugLog("Cache lookup error for hash=%s: %v", hash[:16], err)
		}
		metrics.TranslationCacheMisses.Inc()
		return "", false
	}

	// Increment hit count inline (avoid goroutine-per-hit)
	_ = s.db.Model(&models.TranslationCache{}).
		Where("id = ?", cached.ID).
		UpdateColumn("hit_count", gorm.Expr("hit_count + 1")).Error

	metrics.TranslationCacheHits.Inc()
	debugLog("Cache hit for hash=%s (%s->%s)", hash[:16], sourceLang, targetLang)
	return cached.TranslatedText, true
}

// Set stores a translation. Write-once semantics: if the triple already
// exists the stored translation is left as is.
func (s *TranslationCacheService) Set(sourceText, sourceLang, targetLang, translatedText, provider string) error {
	if s.db == nil {
		return nil
	}

	cached := models.TranslationCache{
		SourceHash:     hashText(sourceText),
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
		SourceText:     sourceText,
		TranslatedText: translatedText,
		Provider:       provider,
		HitCount:       0,
	}

	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source_hash"},
			{Name: "source_language"},
			{Name: "target_language"},
		},
		DoNothing: true,
	}).Create(&cached).Error
}

// GetStats returns cache statistics
func (s *TranslationCacheService) GetStats() (totalEntries int64, totalHits int64) {
	if s.db == nil {
		return 0, 0
	}

	s.db.Model(&models.TranslationCache{}).Count(&totalEntries)

	var result struct {
		TotalHits int64
	}
	s.db.Model(&models.TranslationCache{}).Select("COALESCE(SUM(hit_count), 0) as total_hits").Scan(&result)
	totalHits = result.TotalHits

	return totalEntries, totalHits
}

// hashText creates a SHA256 hash of the text for efficient lookups
func hashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
