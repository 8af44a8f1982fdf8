package services

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/polychat/backend/internal/models"
)

// FAQResponder matches incoming visitor text against the knowledge base and
// produces an immediate pre-authored operator reply.
type FAQResponder struct {
	db *gorm.DB
}

// NewFAQResponder creates a new FAQ responder
func NewFAQResponder(db *gorm.DB) *FAQResponder {
	return &FAQResponder{db: db}
}

// Match returns the first active FAQ entry for lang whose any keyword appears
// as a substring of text, or nil when nothing matches. First match wins;
// entry order (by id) is the tie-break, there is no ranking or scoring.
func (r *FAQResponder) Match(text, lang string) (*models.FAQEntry, error) {
	if r.db == nil || strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var entries []models.FAQEntry
	err := r.db.
		Where("language = ? AND is_active = ?", lang, true).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	// Locale-aware lowercasing: visitor text may be in any script, and plain
	// strings.ToLower mishandles cases like Turkish dotless i.
	lower := cases.Lower(language.Make(lang))
	loweredText := lower.String(text)

	for i := range entries {
		for _, keyword := range strings.Split(entries[i].Keywords, ",") {
			keyword = strings.TrimSpace(keyword)
			if keyword == "" {
				continue
			}
			if strings.Contains(loweredText, lower.String(keyword)) {
				return &entries[i], nil
			}
		}
	}

	return nil, nil
}
