package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polychat/backend/internal/api/handlers"
	"github.com/polychat/backend/internal/database"
	"github.com/polychat/backend/internal/metrics"
	"github.com/polychat/backend/internal/middleware"
	"github.com/polychat/backend/internal/services"
)

func main() {
	dbPath := os.Getenv("CHAT_DB_PATH")
	if dbPath == "" {
		dbPath = "./data/chat.db"
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	if err := database.Initialize(dbPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	operatorLanguage := services.DefaultOperatorLanguage()
	if err := database.RunMigrations(db, operatorLanguage); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	translator := services.NewTranslationService(db)
	relay := services.NewRelayService(db, translator, services.NewFAQResponder(db), services.NewEmailNotifier())
	limiter := middleware.NewSendRateLimiter()

	chatHandler := handlers.NewChatHandler(relay, limiter)
	operatorHandler := handlers.NewOperatorHandler(relay)
	adminHandler := handlers.NewAdminHandler(db, translator)

	r := gin.Default()
	r.Use(metrics.HTTPMetrics())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/api/auth/status", middleware.GetAuthStatus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chat := r.Group("/api/chat")
	{
		chat.POST("/start", chatHandler.StartConversation)
		chat.POST("/message", chatHandler.SendMessage)
		chat.GET("/messages", chatHandler.GetMessages)
		chat.POST("/typing", chatHandler.SetTyping)
	}

	operator := r.Group("/api/operator")
	operator.Use(middleware.OperatorKeyAuth())
	{
		operator.GET("/conversations", operatorHandler.ListConversations)
		operator.GET("/conversations/:id/messages", operatorHandler.GetMessages)
		operator.POST("/conversations/:id/message", operatorHandler.SendMessage)
		operator.POST("/conversations/:id/typing", operatorHandler.SetTyping)
		operator.POST("/conversations/:id/close", operatorHandler.Close)

		operator.GET("/translation/status", adminHandler.TranslationStatus)

		operator.GET("/faqs", adminHandler.ListFAQs)
		operator.POST("/faqs", adminHandler.CreateFAQ)
		operator.PUT("/faqs/:id", adminHandler.UpdateFAQ)
		operator.DELETE("/faqs/:id", adminHandler.DeleteFAQ)
	}

	// Gauges are refreshed on a timer rather than on every write so the hot
	// path never waits on aggregate queries.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		metrics.UpdateChatMetrics(db)
		for range ticker.C {
			metrics.UpdateChatMetrics(db)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting chat relay server on port %s (operator language %s)", port, operatorLanguage)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
