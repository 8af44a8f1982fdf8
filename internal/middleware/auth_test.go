package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestOperatorKeyAuth(t *testing.T) {
	// Save original env and restore after test
	originalKey := os.Getenv("OPERATOR_KEY")
	defer os.Setenv("OPERATOR_KEY", originalKey)

	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		operatorKey    string // env var value
		authHeader     string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "no operator key configured - allows all requests",
			operatorKey:    "",
			authHeader:     "",
			expectedStatus: http.StatusOK,
			expectedBody:   "ok",
		},
		{
			name:           "valid operator key",
			operatorKey:    "test-secret-key",
			authHeader:     "Bearer test-secret-key",
			expectedStatus: http.StatusOK,
			expectedBody:   "ok",
		},
		{
			name:           "missing auth header",
			operatorKey:    "test-secret-key",
			authHeader:     "",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "AUTH_REQUIRED",
		},
		{
			name:           "invalid auth format - no Bearer",
			operatorKey:    "test-secret-key",
			authHeader:     "test-secret-key",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "AUTH_INVALID_FORMAT",
		},
		{
			name:           "invalid operator key",
			operatorKey:    "test-secret-key",
			authHeader:     "Bearer wrong-key",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "AUTH_INVALID_KEY",
		},
		{
			name:           "case insensitive Bearer",
			operatorKey:    "test-secret-key",
			authHeader:     "bearer test-secret-key",
			expectedStatus: http.StatusOK,
			expectedBody:   "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset the cached key for each test
			operatorKeyOnce = sync.Once{}
			operatorKey = ""

			os.Setenv("OPERATOR_KEY", tt.operatorKey)

			router := gin.New()
			router.Use(OperatorKeyAuth())
			router.GET("/test", func(c *gin.Context) {
				c.String(http.StatusOK, "ok")
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			if tt.expectedBody != "" && !strings.Contains(w.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestGetAuthStatus(t *testing.T) {
	originalKey := os.Getenv("OPERATOR_KEY")
	defer os.Setenv("OPERATOR_KEY", originalKey)

	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		operatorKey string
		authEnabled bool
	}{
		{
			name:        "auth disabled when no key",
			operatorKey: "",
			authEnabled: false,
		},
		{
			name:        "auth enabled when key set",
			operatorKey: "some-key",
			authEnabled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			operatorKeyOnce = sync.Once{}
			operatorKey = ""

			os.Setenv("OPERATOR_KEY", tt.operatorKey)

			router := gin.New()
			router.GET("/auth/status", GetAuthStatus)

			req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", w.Code)
			}

			expectedStr := "false"
			if tt.authEnabled {
				expectedStr = "true"
			}
			if !strings.Contains(w.Body.String(), `"auth_enabled":`+expectedStr) {
				t.Errorf("expected auth_enabled:%s, got %s", expectedStr, w.Body.String())
			}
		})
	}
}
