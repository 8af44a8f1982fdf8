package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polychat/backend/internal/middleware"
	"github.com/polychat/backend/internal/models"
	"github.com/polychat/backend/internal/services"
)

// ChatHandler serves the visitor-facing widget endpoints.
type ChatHandler struct {
	relay   *services.RelayService
	limiter *middleware.SendRateLimiter
}

func NewChatHandler(relay *services.RelayService, limiter *middleware.SendRateLimiter) *ChatHandler {
	return &ChatHandler{
		relay:   relay,
		limiter: limiter,
	}
}

// wireMessage is the message shape delivered to polling clients.
type wireMessage struct {
	ID             uint              `json:"id"`
	SenderType     models.SenderType `json:"sender_type"`
	Text           string            `json:"text"`
	TranslatedText *string           `json:"translated_text"`
	CreatedAt      time.Time         `json:"created_at"`
}

func toWireMessages(msgs []models.Message) []wireMessage {
	out := make([]wireMessage, len(msgs))
	for i, m := range msgs {
		out[i] = wireMessage{
			ID:             m.ID,
			SenderType:     m.SenderType,
			Text:           m.MessageText,
			TranslatedText: m.TranslatedText,
			CreatedAt:      m.CreatedAt,
		}
	}
	return out
}

// sinceParam parses the delivery cursor from the query string, defaulting to 0.
func sinceParam(c *gin.Context) uint {
	v := c.Query("since")
	if v == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0
	}
	return uint(parsed)
}

type startConversationRequest struct {
	SessionID    string `json:"session_id" binding:"required"`
	UserName     string `json:"user_name"`
	UserLanguage string `json:"user_language"`
}

// StartConversation explicitly opens (or reuses) the conversation for a session
// POST /api/chat/start
func (h *ChatHandler) StartConversation(c *gin.Context) {
	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	conv, err := h.relay.StartConversation(c.Request.Context(), req.SessionID, req.UserName, req.UserLanguage)
	if err != nil {
		if errors.Is(err, services.ErrMissingSession) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation_id": conv.ID})
}

type sendMessageRequest struct {
	SessionID    string `json:"session_id" binding:"required"`
	Text         string `json:"text"`
	UserName     string `json:"user_name"`
	UserLanguage string `json:"user_language"`
}

// SendMessage ingests a visitor message
// POST /api/chat/message
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	if h.limiter != nil && !h.limiter.Allow(req.SessionID) {
		h.limiter.Reject(c)
		return
	}

	msg, conv, err := h.relay.SendUserMessage(c.Request.Context(), req.SessionID, req.UserName, req.Text, req.UserLanguage)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage), errors.Is(err, services.ErrMissingSession):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			// The write path never silently drops a message; surface a
			// retryable failure to the sender.
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message, please retry"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message_id":      msg.ID,
		"conversation_id": conv.ID,
	})
}

// GetMessages is the visitor polling endpoint
// GET /api/chat/messages?session_id=...&since=...
func (h *ChatHandler) GetMessages(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	msgs, conv, err := h.relay.MessagesForUser(c.Request.Context(), sessionID, sinceParam(c))
	if err != nil {
		if errors.Is(err, services.ErrMissingSession) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": conv.ID,
		"messages":        toWireMessages(msgs),
		"operator_typing": conv.OperatorTypingActive(time.Now()),
	})
}

type userTypingRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Typing    bool   `json:"typing"`
}

// SetTyping records a visitor typing ping. Always answers ok: typing
// indicators are advisory and a lost ping ages out via the TTL.
// POST /api/chat/typing
func (h *ChatHandler) SetTyping(c *gin.Context) {
	var req userTypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	_ = h.relay.SetUserTyping(c.Request.Context(), req.SessionID, req.Typing)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
