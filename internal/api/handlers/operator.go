package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polychat/backend/internal/models"
	"github.com/polychat/backend/internal/services"
)

// OperatorHandler serves the operator console endpoints. Everything here sits
// behind the operator key middleware.
type OperatorHandler struct {
	relay *services.RelayService
}

func NewOperatorHandler(relay *services.RelayService) *OperatorHandler {
	return &OperatorHandler{relay: relay}
}

// wireConversation is the conversation shape for the operator list. Typing is
// resolved against the TTL here so clients never see a stale flag.
type wireConversation struct {
	ID           string                    `json:"id"`
	SessionID    string                    `json:"session_id"`
	UserName     string                    `json:"user_name"`
	UserLanguage string                    `json:"user_language"`
	Status       models.ConversationStatus `json:"status"`
	UnreadCount  int                       `json:"unread_count"`
	LastMessage  string                    `json:"last_message"`
	UserTyping   bool                      `json:"user_typing"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// ListConversations returns the operator console list, most recently active
// first
// GET /api/operator/conversations?status=active|closed|all
func (h *OperatorHandler) ListConversations(c *gin.Context) {
	status := c.DefaultQuery("status", "active")

	summaries, err := h.relay.ListConversations(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list conversations"})
		return
	}

	now := time.Now()
	out := make([]wireConversation, len(summaries))
	for i, s := range summaries {
		out[i] = wireConversation{
			ID:           s.ID,
			SessionID:    s.SessionID,
			UserName:     s.UserName,
			UserLanguage: s.UserLanguage,
			Status:       s.Status,
			UnreadCount:  s.UnreadCount,
			LastMessage:  s.LastMessage,
			UserTyping:   s.UserTypingActive(now),
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    s.UpdatedAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

// GetMessages is the operator polling endpoint. A full fetch (since omitted or
// 0) marks pending visitor messages as read; incremental polls do not.
// GET /api/operator/conversations/:id/messages?since=...
func (h *OperatorHandler) GetMessages(c *gin.Context) {
	conversationID := c.Param("id")

	msgs, conv, err := h.relay.MessagesForOperator(c.Request.Context(), conversationID, sinceParam(c))
	if err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": toWireMessages(msgs),
		"conversation": gin.H{
			"id":            conv.ID,
			"status":        conv.Status,
			"user_name":     conv.UserName,
			"user_language": conv.UserLanguage,
			"user_typing":   conv.UserTypingActive(time.Now()),
		},
	})
}

type operatorMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// SendMessage ingests an operator reply
// POST /api/operator/conversations/:id/message
func (h *OperatorHandler) SendMessage(c *gin.Context) {
	var req operatorMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	msg, err := h.relay.SendOperatorMessage(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		case errors.Is(err, services.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message, please retry"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message_id": msg.ID})
}

type operatorTypingRequest struct {
	Typing bool `json:"typing"`
}

// SetTyping records an operator typing ping
// POST /api/operator/conversations/:id/typing
func (h *OperatorHandler) SetTyping(c *gin.Context) {
	var req operatorTypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	_ = h.relay.SetOperatorTyping(c.Request.Context(), c.Param("id"), req.Typing)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Close marks a conversation closed
// POST /api/operator/conversations/:id/close
func (h *OperatorHandler) Close(c *gin.Context) {
	err := h.relay.CloseConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to close conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}
