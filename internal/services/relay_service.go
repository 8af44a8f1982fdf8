package services

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/polychat/backend/internal/metrics"
	"github.com/polychat/backend/internal/models"
)

// RelayService orchestrates message ingestion, translation dispatch, FAQ
// auto-replies and the polling delivery cursor. All dependencies are injected;
// there is no ambient global instance.
type RelayService struct {
	db               *gorm.DB
	translator       *TranslationService
	faq              *FAQResponder
	notifier         *EmailNotifier
	operatorLanguage string
}

// DefaultOperatorLanguage reads OPERATOR_LANGUAGE, defaulting to "en".
func DefaultOperatorLanguage() string {
	if v := strings.TrimSpace(os.Getenv("OPERATOR_LANGUAGE")); v != "" {
		return strings.ToLower(v)
	}
	return "en"
}

// NewRelayService creates the relay engine. notifier may be nil.
func NewRelayService(db *gorm.DB, translator *TranslationService, faq *FAQResponder, notifier *EmailNotifier) *RelayService {
	return &RelayService{
		db:               db,
		translator:       translator,
		faq:              faq,
		notifier:         notifier,
		operatorLanguage: DefaultOperatorLanguage(),
	}
}

// OperatorLanguage returns the configured operator-side language.
func (s *RelayService) OperatorLanguage() string {
	return s.operatorLanguage
}

// StartConversation resolves or creates the conversation for a session id.
// Reusing a session id updates the stored visitor name/language on the
// existing row rather than creating a duplicate.
func (s *RelayService) StartConversation(ctx context.Context, sessionID, userName, userLanguage string) (*models.Conversation, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	userLanguage = strings.ToLower(strings.TrimSpace(userLanguage))

	var conv models.Conversation
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&conv).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{}
		if userName != "" && userName != conv.UserName {
			updates["user_name"] = userName
			conv.UserName = userName
		}
		if userLanguage != "" && userLanguage != conv.UserLanguage {
			updates["user_language"] = userLanguage
			conv.UserLanguage = userLanguage
		}
		if len(updates) > 0 {
			if err := s.db.WithContext(ctx).Model(&conv).Updates(updates).Error; err != nil {
				return nil, err
			}
		}
		return &conv, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		if userLanguage == "" {
			userLanguage = "en"
		}
		conv = models.Conversation{
			ID:               uuid.New().String(),
			SessionID:        sessionID,
			UserName:         userName,
			UserLanguage:     userLanguage,
			OperatorLanguage: s.operatorLanguage,
			Status:           models.ConversationActive,
		}
		createErr := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoNothing: true,
		}).Create(&conv).Error
		if createErr != nil {
			return nil, createErr
		}
		// A concurrent poller may have won the insert; re-read the canonical row.
		if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&conv).Error; err != nil {
			return nil, err
		}
		return &conv, nil

	default:
		return nil, err
	}
}

// SendUserMessage ingests a visitor message: resolves the conversation by
// session id (creating it if needed), translates best-effort toward the
// operator language, persists, notifies, and injects a FAQ auto-reply when
// the knowledge base matches.
func (s *RelayService) SendUserMessage(ctx context.Context, sessionID, userName, text, userLanguage string) (*models.Message, *models.Conversation, error) {
	text = sanitizeText(text)
	if text == "" {
		return nil, nil, ErrEmptyMessage
	}

	conv, err := s.StartConversation(ctx, sessionID, userName, userLanguage)
	if err != nil {
		return nil, nil, err
	}

	source := conv.UserLanguage
	target := conv.OperatorLanguage
	if target == "" {
		target = s.operatorLanguage
	}

	var translated *string
	if s.translator != nil && source != target {
		translated = s.translator.Translate(ctx, text, source, target)
	}

	msg := &models.Message{
		ConversationID:   conv.ID,
		SenderType:       models.SenderUser,
		MessageText:      text,
		TranslatedText:   translated,
		OriginalLanguage: source,
		TargetLanguage:   target,
	}
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return touchConversation(tx, conv.ID)
	}); err != nil {
		return nil, nil, err
	}
	metrics.MessagesIngested.WithLabelValues(string(models.SenderUser)).Inc()

	if s.notifier != nil {
		notifyConv := *conv
		go s.notifier.Notify(&notifyConv, text)
	}

	s.injectAutoReply(ctx, conv, text)

	return msg, conv, nil
}

// injectAutoReply appends a synthetic operator message when the FAQ knowledge
// base matches the raw visitor text. Failures are logged, never surfaced: the
// visitor's message is already stored.
func (s *RelayService) injectAutoReply(ctx context.Context, conv *models.Conversation, text string) {
	if s.faq == nil {
		return
	}

	entry, err := s.faq.Match(text, conv.UserLanguage)
	if err != nil {
		log.Printf("Relay: FAQ match failed: %v", err)
		return
	}
	if entry == nil {
		return
	}

	// FAQ answers are pre-authored in the visitor's language, so the reply
	// carries no translation and both language fields point at the visitor.
	reply := &models.Message{
		ConversationID:   conv.ID,
		SenderType:       models.SenderOperator,
		MessageText:      entry.Answer,
		OriginalLanguage: conv.UserLanguage,
		TargetLanguage:   conv.UserLanguage,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reply).Error; err != nil {
			return err
		}
		return touchConversation(tx, conv.ID)
	})
	if err != nil {
		log.Printf("Relay: auto-reply persist failed: %v", err)
		return
	}
	metrics.AutoRepliesTotal.Inc()
	metrics.MessagesIngested.WithLabelValues(string(models.SenderOperator)).Inc()
}

// SendOperatorMessage ingests an operator message. Unlike the visitor path,
// an unknown conversation id is an error.
func (s *RelayService) SendOperatorMessage(ctx context.Context, conversationID, text string) (*models.Message, error) {
	text = sanitizeText(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	source := conv.OperatorLanguage
	if source == "" {
		source = s.operatorLanguage
	}
	target := conv.UserLanguage

	var translated *string
	if s.translator != nil && source != target {
		translated = s.translator.Translate(ctx, text, source, target)
	}

	msg := &models.Message{
		ConversationID:   conv.ID,
		SenderType:       models.SenderOperator,
		MessageText:      text,
		TranslatedText:   translated,
		OriginalLanguage: source,
		TargetLanguage:   target,
	}
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return touchConversation(tx, conv.ID)
	}); err != nil {
		return nil, err
	}
	metrics.MessagesIngested.WithLabelValues(string(models.SenderOperator)).Inc()

	return msg, nil
}

// MessagesForUser returns messages with id > sinceID for the visitor's
// conversation, oldest first. A missing conversation is silently created so
// a widget may start polling before the first message.
func (s *RelayService) MessagesForUser(ctx context.Context, sessionID string, sinceID uint) ([]models.Message, *models.Conversation, error) {
	conv, err := s.StartConversation(ctx, sessionID, "", "")
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messagesSince(ctx, conv.ID, sinceID)
	if err != nil {
		return nil, nil, err
	}
	return msgs, conv, nil
}

// MessagesForOperator returns messages with id > sinceID for a conversation.
// A full fetch (sinceID == 0) doubles as the read receipt: every visitor
// message in the conversation flips to read. Incremental fetches do not.
func (s *RelayService) MessagesForOperator(ctx context.Context, conversationID string, sinceID uint) ([]models.Message, *models.Conversation, error) {
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}

	if sinceID == 0 {
		err := s.db.WithContext(ctx).Model(&models.Message{}).
			Where("conversation_id = ? AND sender_type = ? AND is_read = ?", conv.ID, models.SenderUser, false).
			UpdateColumn("is_read", true).Error
		if err != nil {
			return nil, nil, err
		}
	}

	msgs, err := s.messagesSince(ctx, conv.ID, sinceID)
	if err != nil {
		return nil, nil, err
	}
	return msgs, conv, nil
}

func (s *RelayService) messagesSince(ctx context.Context, conversationID string, sinceID uint) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ? AND id > ?", conversationID, sinceID).
		Order("id ASC").
		Find(&msgs).Error
	return msgs, err
}

// ListConversations returns conversations ordered by last activity, annotated
// with derived unread counts and last-message previews. status may be
// "active", "closed", or "all".
func (s *RelayService) ListConversations(ctx context.Context, status string) ([]models.ConversationSummary, error) {
	q := s.db.WithContext(ctx).Model(&models.Conversation{})
	if status != "" && status != "all" {
		q = q.Where("status = ?", status)
	}

	var convs []models.Conversation
	if err := q.Order("updated_at DESC").Find(&convs).Error; err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	if len(convs) == 0 {
		return summaries, nil
	}

	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}

	type convCount struct {
		ConversationID string
		N              int
	}
	var counts []convCount
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Select("conversation_id, COUNT(*) as n").
		Where("conversation_id IN ? AND sender_type = ? AND is_read = ?", ids, models.SenderUser, false).
		Group("conversation_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	unread := make(map[string]int, len(counts))
	for _, c := range counts {
		unread[c.ConversationID] = c.N
	}

	type lastMessage struct {
		ConversationID string
		MessageText    string
	}
	var lasts []lastMessage
	err = s.db.WithContext(ctx).Raw(`
		SELECT m.conversation_id, m.message_text
		FROM messages m
		JOIN (
			SELECT conversation_id, MAX(id) AS max_id
			FROM messages
			WHERE conversation_id IN ?
			GROUP BY conversation_id
		) t ON m.id = t.max_id
	`, ids).Scan(&lasts).Error
	if err != nil {
		return nil, err
	}
	lastByConv := make(map[string]string, len(lasts))
	for _, l := range lasts {
		lastByConv[l.ConversationID] = l.MessageText
	}

	for _, c := range convs {
		summaries = append(summaries, models.ConversationSummary{
			Conversation: c,
			UnreadCount:  unread[c.ID],
			LastMessage:  lastByConv[c.ID],
		})
	}
	return summaries, nil
}

// SetUserTyping records a visitor typing ping. Advisory: a session with no
// conversation yet is a no-op, and callers should ignore errors.
func (s *RelayService) SetUserTyping(ctx context.Context, sessionID string, typing bool) error {
	var conv models.Conversation
	err := s.db.WithContext(ctx).Select("id").Where("session_id = ?", sessionID).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conv.ID).
		UpdateColumns(map[string]interface{}{
			"user_typing":    typing,
			"user_typing_at": time.Now(),
		}).Error
}

// SetOperatorTyping records an operator typing ping. Advisory, same as above.
func (s *RelayService) SetOperatorTyping(ctx context.Context, conversationID string, typing bool) error {
	return s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		UpdateColumns(map[string]interface{}{
			"operator_typing":    typing,
			"operator_typing_at": time.Now(),
		}).Error
}

// CloseConversation transitions a conversation to closed. Conversations are
// never hard-deleted.
func (s *RelayService) CloseConversation(ctx context.Context, conversationID string) error {
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(conv).
		Update("status", models.ConversationClosed).Error
}

func (s *RelayService) getConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).Where("id = ?", conversationID).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// touchConversation bumps updated_at inside the same transaction as the
// message insert so conversation ordering and message existence stay in sync.
func touchConversation(tx *gorm.DB, conversationID string) error {
	return tx.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		UpdateColumn("updated_at", time.Now()).Error
}

// sanitizeText trims whitespace and strips control characters (except
// newlines and tabs) before the empty-message check.
func sanitizeText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
