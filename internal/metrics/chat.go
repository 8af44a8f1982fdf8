package metrics

import (
	"log"

	"gorm.io/gorm"

	"github.com/polychat/backend/internal/models"
)

// UpdateChatMetrics queries the database and refreshes the chat gauges.
// Call this after writes or periodically.
func UpdateChatMetrics(db *gorm.DB) {
	if db == nil {
		return
	}

	var open int64
	if err := db.Model(&models.Conversation{}).
		Where("status = ?", models.ConversationActive).
		Count(&open).Error; err != nil {
		log.Printf("Metrics: failed to count open conversations: %v", err)
	} else {
		ConversationsOpen.Set(float64(open))
	}

	var unread int64
	if err := db.Model(&models.Message{}).
		Where("sender_type = ? AND is_read = ?", models.SenderUser, false).
		Count(&unread).Error; err != nil {
		log.Printf("Metrics: failed to count unread messages: %v", err)
	} else {
		MessagesUnread.Set(float64(unread))
	}

	var cacheEntries int64
	if err := db.Model(&models.TranslationCache{}).Count(&cacheEntries).Error; err != nil {
		log.Printf("Metrics: failed to count translation cache entries: %v", err)
	} else {
		TranslationCacheEntries.Set(float64(cacheEntries))
	}
}
