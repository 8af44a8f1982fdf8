package models

import "time"

// FAQEntry is a pre-authored answer triggered by keyword match against
// incoming visitor text. Keywords is a comma-delimited list; Answer is written
// in Language, so auto-replies built from it are never machine-translated.
type FAQEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Language  string    `json:"language" gorm:"size:10;not null;index"`
	Keywords  string    `json:"keywords" gorm:"not null"` // e.g. "contact,phone,email"
	Answer    string    `json:"answer" gorm:"not null"`
	IsActive  bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FAQEntry) TableName() string {
	return "faq_entries"
}
