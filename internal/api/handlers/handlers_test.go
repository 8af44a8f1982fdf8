package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/polychat/backend/internal/middleware"
	"github.com/polychat/backend/internal/models"
	"github.com/polychat/backend/internal/services"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Conversation{},
		&models.Message{},
		&models.TranslationCache{},
		&models.FAQEntry{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// newTestRouter wires the full route surface against an in-memory database,
// with translation off and no operator key configured.
func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	t.Setenv("TRANSLATION_ENABLED", "false")
	t.Setenv("OPERATOR_LANGUAGE", "")

	gin.SetMode(gin.TestMode)
	db := newTestDB(t)

	translator := services.NewTranslationService(db)
	relay := services.NewRelayService(db, translator, services.NewFAQResponder(db), nil)
	limiter := middleware.NewSendRateLimiter()

	chatHandler := NewChatHandler(relay, limiter)
	operatorHandler := NewOperatorHandler(relay)
	adminHandler := NewAdminHandler(db, translator)

	r := gin.New()
	r.POST("/api/chat/start", chatHandler.StartConversation)
	r.POST("/api/chat/message", chatHandler.SendMessage)
	r.GET("/api/chat/messages", chatHandler.GetMessages)
	r.POST("/api/chat/typing", chatHandler.SetTyping)

	r.GET("/api/operator/conversations", operatorHandler.ListConversations)
	r.GET("/api/operator/conversations/:id/messages", operatorHandler.GetMessages)
	r.POST("/api/operator/conversations/:id/message", operatorHandler.SendMessage)
	r.POST("/api/operator/conversations/:id/typing", operatorHandler.SetTyping)
	r.POST("/api/operator/conversations/:id/close", operatorHandler.Close)
	r.GET("/api/operator/translation/status", adminHandler.TranslationStatus)
	r.GET("/api/operator/faqs", adminHandler.ListFAQs)
	r.POST("/api/operator/faqs", adminHandler.CreateFAQ)
	r.PUT("/api/operator/faqs/:id", adminHandler.UpdateFAQ)
	r.DELETE("/api/operator/faqs/:id", adminHandler.DeleteFAQ)

	return r, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestVisitorFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, "POST", "/api/chat/start",
		`{"session_id":"sess1","user_name":"Alice","user_language":"en"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	convID, _ := decodeBody(t, w)["conversation_id"].(string)
	if convID == "" {
		t.Fatal("start: expected a conversation_id")
	}

	w = doJSON(t, r, "POST", "/api/chat/message",
		`{"session_id":"sess1","text":"hello there"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("message: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if got, _ := decodeBody(t, w)["conversation_id"].(string); got != convID {
		t.Errorf("message landed in conversation %q, want %q", got, convID)
	}

	w = doJSON(t, r, "GET", "/api/chat/messages?session_id=sess1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("poll: expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	msgs, _ := body["messages"].([]interface{})
	if len(msgs) != 1 {
		t.Fatalf("poll: expected 1 message, got %d", len(msgs))
	}
	if typing, _ := body["operator_typing"].(bool); typing {
		t.Error("poll: operator_typing should be false")
	}

	// The operator list shows the conversation with one unread message.
	w = doJSON(t, r, "GET", "/api/operator/conversations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	convs, _ := decodeBody(t, w)["conversations"].([]interface{})
	if len(convs) != 1 {
		t.Fatalf("list: expected 1 conversation, got %d", len(convs))
	}
	summary := convs[0].(map[string]interface{})
	if unread, _ := summary["unread_count"].(float64); unread != 1 {
		t.Errorf("list: unread_count = %v, want 1", summary["unread_count"])
	}
	if last, _ := summary["last_message"].(string); last != "hello there" {
		t.Errorf("list: last_message = %q, want %q", last, "hello there")
	}
}

func TestOperatorFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, "POST", "/api/chat/message",
		`{"session_id":"sess1","text":"I need help","user_language":"en"}`)

	w := doJSON(t, r, "GET", "/api/chat/messages?session_id=sess1", "")
	convID, _ := decodeBody(t, w)["conversation_id"].(string)
	if convID == "" {
		t.Fatal("expected a conversation after the first message")
	}

	// Full fetch marks the visitor message read.
	w = doJSON(t, r, "GET", "/api/operator/conversations/"+convID+"/messages", "")
	if w.Code != http.StatusOK {
		t.Fatalf("operator poll: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	msgs, _ := decodeBody(t, w)["messages"].([]interface{})
	if len(msgs) != 1 {
		t.Fatalf("operator poll: expected 1 message, got %d", len(msgs))
	}

	w = doJSON(t, r, "GET", "/api/operator/conversations", "")
	convs, _ := decodeBody(t, w)["conversations"].([]interface{})
	summary := convs[0].(map[string]interface{})
	if unread, _ := summary["unread_count"].(float64); unread != 0 {
		t.Errorf("unread_count after full fetch = %v, want 0", summary["unread_count"])
	}

	w = doJSON(t, r, "POST", "/api/operator/conversations/"+convID+"/message",
		`{"text":"How can I help?"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("operator message: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// The visitor sees the reply on the next poll.
	w = doJSON(t, r, "GET", "/api/chat/messages?session_id=sess1", "")
	msgs, _ = decodeBody(t, w)["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("visitor poll: expected 2 messages, got %d", len(msgs))
	}
	reply := msgs[1].(map[string]interface{})
	if sender, _ := reply["sender_type"].(string); sender != "operator" {
		t.Errorf("second message sender = %q, want operator", sender)
	}

	w = doJSON(t, r, "POST", "/api/operator/conversations/"+convID+"/close", "")
	if w.Code != http.StatusOK {
		t.Fatalf("close: expected 200, got %d", w.Code)
	}
	w = doJSON(t, r, "GET", "/api/operator/conversations?status=closed", "")
	convs, _ = decodeBody(t, w)["conversations"].([]interface{})
	if len(convs) != 1 {
		t.Errorf("expected 1 closed conversation, got %d", len(convs))
	}
}

func TestDeliveryCursor(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, "POST", "/api/chat/message", `{"session_id":"sess1","text":"one"}`)
	doJSON(t, r, "POST", "/api/chat/message", `{"session_id":"sess1","text":"two"}`)

	w := doJSON(t, r, "GET", "/api/chat/messages?session_id=sess1", "")
	msgs, _ := decodeBody(t, w)["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	firstID := msgs[0].(map[string]interface{})["id"].(float64)

	w = doJSON(t, r, "GET",
		fmt.Sprintf("/api/chat/messages?session_id=sess1&since=%d", int(firstID)), "")
	msgs, _ = decodeBody(t, w)["messages"].([]interface{})
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message after cursor, got %d", len(msgs))
	}
	if text, _ := msgs[0].(map[string]interface{})["text"].(string); text != "two" {
		t.Errorf("cursor poll returned %q, want %q", text, "two")
	}
}

func TestUnknownConversationReturns404(t *testing.T) {
	r, _ := newTestRouter(t)

	paths := []struct {
		method, path, body string
	}{
		{"GET", "/api/operator/conversations/no-such-id/messages", ""},
		{"POST", "/api/operator/conversations/no-such-id/message", `{"text":"hi"}`},
		{"POST", "/api/operator/conversations/no-such-id/close", ""},
	}
	for _, p := range paths {
		w := doJSON(t, r, p.method, p.path, p.body)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", p.method, p.path, w.Code)
		}
	}
}

func TestSendMessageValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, "POST", "/api/chat/message", `{"text":"no session"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing session_id: expected 400, got %d", w.Code)
	}

	w = doJSON(t, r, "POST", "/api/chat/message", `{"session_id":"sess1","text":"   "}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank text: expected 400, got %d", w.Code)
	}

	w = doJSON(t, r, "GET", "/api/chat/messages", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("poll without session_id: expected 400, got %d", w.Code)
	}
}

func TestSendMessageRateLimited(t *testing.T) {
	t.Setenv("CHAT_RATE_LIMIT", "1")
	t.Setenv("CHAT_RATE_BURST", "2")
	r, _ := newTestRouter(t)

	for i := 0; i < 2; i++ {
		w := doJSON(t, r, "POST", "/api/chat/message",
			fmt.Sprintf(`{"session_id":"sess1","text":"msg %d"}`, i))
		if w.Code != http.StatusCreated {
			t.Fatalf("message %d: expected 201, got %d", i, w.Code)
		}
	}

	w := doJSON(t, r, "POST", "/api/chat/message", `{"session_id":"sess1","text":"over"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over burst, got %d", w.Code)
	}
	if code, _ := decodeBody(t, w)["code"].(string); code != "RATE_LIMITED" {
		t.Errorf("expected code RATE_LIMITED, got %q", code)
	}

	// Other sessions are unaffected.
	w = doJSON(t, r, "POST", "/api/chat/message", `{"session_id":"sess2","text":"hi"}`)
	if w.Code != http.StatusCreated {
		t.Errorf("other session: expected 201, got %d", w.Code)
	}
}

func TestTypingVisibleToOperator(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, "POST", "/api/chat/message", `{"session_id":"sess1","text":"hi"}`)

	w := doJSON(t, r, "POST", "/api/chat/typing", `{"session_id":"sess1","typing":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("typing ping: expected 200, got %d", w.Code)
	}

	w = doJSON(t, r, "GET", "/api/operator/conversations", "")
	convs, _ := decodeBody(t, w)["conversations"].([]interface{})
	summary := convs[0].(map[string]interface{})
	if typing, _ := summary["user_typing"].(bool); !typing {
		t.Error("expected user_typing true right after a ping")
	}

	// A ping for an unknown session is still accepted.
	w = doJSON(t, r, "POST", "/api/chat/typing", `{"session_id":"ghost","typing":true}`)
	if w.Code != http.StatusOK {
		t.Errorf("unknown session typing: expected 200, got %d", w.Code)
	}
}

func TestFAQCRUD(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, "POST", "/api/operator/faqs",
		`{"language":"en","keywords":"contact,phone","answer":"Email us"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decodeBody(t, w)
	id := int(created["id"].(float64))
	if active, _ := created["is_active"].(bool); !active {
		t.Error("create: is_active should default to true")
	}

	w = doJSON(t, r, "GET", "/api/operator/faqs", "")
	faqs, _ := decodeBody(t, w)["faqs"].([]interface{})
	if len(faqs) != 1 {
		t.Fatalf("list: expected 1 entry, got %d", len(faqs))
	}

	w = doJSON(t, r, "PUT", fmt.Sprintf("/api/operator/faqs/%d", id),
		`{"answer":"Call us instead","is_active":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	updated := decodeBody(t, w)
	if updated["answer"] != "Call us instead" {
		t.Errorf("update: answer = %v", updated["answer"])
	}
	if active, _ := updated["is_active"].(bool); active {
		t.Error("update: is_active should now be false")
	}
	if updated["keywords"] != "contact,phone" {
		t.Errorf("update: untouched keywords changed to %v", updated["keywords"])
	}

	w = doJSON(t, r, "PUT", "/api/operator/faqs/9999", `{"answer":"x"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing: expected 404, got %d", w.Code)
	}

	w = doJSON(t, r, "DELETE", fmt.Sprintf("/api/operator/faqs/%d", id), "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}
	w = doJSON(t, r, "DELETE", fmt.Sprintf("/api/operator/faqs/%d", id), "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", w.Code)
	}
}

func TestTranslationStatusEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, "GET", "/api/operator/translation/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if enabled, ok := body["enabled"].(bool); !ok || enabled {
		t.Errorf("expected enabled false, got %v", body["enabled"])
	}
	if _, ok := body["cache_entries"]; !ok {
		t.Error("expected cache_entries in status body")
	}
}
