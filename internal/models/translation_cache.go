package models

import "time"

// TranslationCache memoizes provider translations, keyed by a SHA-256 hash of
// the source text plus the language pair. Exact-match only: no fuzzy lookup.
// Entries are written once and never expire. Repeated chat phrases (greetings,
// FAQ questions) dominate traffic, so unbounded growth is the accepted tradeoff.
type TranslationCache struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SourceHash     string    `gorm:"uniqueIndex:idx_cache_key;not null;size:64" json:"source_hash"` // SHA256 hex
	SourceLanguage string    `gorm:"uniqueIndex:idx_cache_key;not null;size:10" json:"source_language"`
	TargetLanguage string    `gorm:"uniqueIndex:idx_cache_key;not null;size:10" json:"target_language"`
	SourceText     string    `gorm:"not null" json:"source_text"`
	TranslatedText string    `gorm:"not null" json:"translated_text"`
	Provider       string    `gorm:"size:20" json:"provider"` // "openai", "anthropic", "google"
	CreatedAt      time.Time `json:"created_at"`
	HitCount       int       `gorm:"default:0" json:"hit_count"`
}

func (TranslationCache) TableName() string {
	return "translation_caches"
}
