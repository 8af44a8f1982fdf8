package models

import "time"

type SenderType string

const (
	SenderUser     SenderType = "user"
	SenderOperator SenderType = "operator"
)

// Message is one immutable chat turn. The auto-increment ID doubles as the
// delivery cursor: insertion order and ID order are the same, so pollers pass
// back the highest ID they have seen and never miss or re-receive a message,
// independent of clock skew.
type Message struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	ConversationID   string     `json:"conversation_id" gorm:"not null;size:36;index"`
	SenderType       SenderType `json:"sender_type" gorm:"not null;size:10"`
	MessageText      string     `json:"text" gorm:"not null"`
	TranslatedText   *string    `json:"translated_text"` // nil when translation was skipped or failed
	OriginalLanguage string     `json:"original_language" gorm:"size:10"`
	TargetLanguage   string     `json:"target_language" gorm:"size:10"`
	IsRead           bool       `json:"is_read" gorm:"default:false"` // only meaningful for user -> operator messages
	CreatedAt        time.Time  `json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}
