package models

import "time"

type ConversationStatus string

const (
	ConversationActive ConversationStatus = "active"
	ConversationClosed ConversationStatus = "closed"
)

// TypingTTL is how long a stored typing flag stays meaningful. Pollers must
// check the timestamp against this window, not just the boolean, because a
// client that stops typing (or crashes) never sends a "stopped" ping.
const TypingTTL = 3 * time.Second

type Conversation struct {
	ID               string             `json:"id" gorm:"primaryKey;size:36"`
	SessionID        string             `json:"session_id" gorm:"uniqueIndex;not null;size:64"`
	UserID           *string            `json:"user_id" gorm:"size:64;index"` // set once the visitor authenticates
	UserName         string             `json:"user_name" gorm:"size:100"`
	UserLanguage     string             `json:"user_language" gorm:"size:10;default:'en'"`
	OperatorLanguage string             `json:"operator_language" gorm:"size:10"`
	Status           ConversationStatus `json:"status" gorm:"size:10;default:'active';index"`
	UserTyping       bool               `json:"user_typing"`
	UserTypingAt     *time.Time         `json:"user_typing_at"`
	OperatorTyping   bool               `json:"operator_typing"`
	OperatorTypingAt *time.Time         `json:"operator_typing_at"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// UserTypingActive reports whether the visitor-is-typing flag is still fresh.
func (c *Conversation) UserTypingActive(now time.Time) bool {
	return c.UserTyping && c.UserTypingAt != nil && now.Sub(*c.UserTypingAt) <= TypingTTL
}

// OperatorTypingActive reports whether the operator-is-typing flag is still fresh.
func (c *Conversation) OperatorTypingActive(now time.Time) bool {
	return c.OperatorTyping && c.OperatorTypingAt != nil && now.Sub(*c.OperatorTypingAt) <= TypingTTL
}

// ConversationSummary is a conversation annotated with derived fields for the
// operator console list. UnreadCount and LastMessage are computed per request,
// never stored.
type ConversationSummary struct {
	Conversation
	UnreadCount int    `json:"unread_count"`
	LastMessage string `json:"last_message"`
}
