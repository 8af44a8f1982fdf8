package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/polychat/backend/internal/models"
	"github.com/polychat/backend/internal/services"
)

// AdminHandler serves operator-side management endpoints: the FAQ table and
// the translation pipeline status.
type AdminHandler struct {
	db         *gorm.DB
	translator *services.TranslationService
}

func NewAdminHandler(db *gorm.DB, translator *services.TranslationService) *AdminHandler {
	return &AdminHandler{
		db:         db,
		translator: translator,
	}
}

// ListFAQs returns every FAQ entry, active or not
// GET /api/operator/faqs
func (h *AdminHandler) ListFAQs(c *gin.Context) {
	var entries []models.FAQEntry
	if err := h.db.WithContext(c.Request.Context()).Order("id ASC").Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list FAQ entries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"faqs": entries})
}

type createFAQRequest struct {
	Language string `json:"language" binding:"required"`
	Keywords string `json:"keywords" binding:"required"`
	Answer   string `json:"answer" binding:"required"`
	IsActive *bool  `json:"is_active"`
}

// CreateFAQ adds a FAQ entry
// POST /api/operator/faqs
func (h *AdminHandler) CreateFAQ(c *gin.Context) {
	var req createFAQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "language, keywords and answer are required"})
		return
	}

	entry := models.FAQEntry{
		Language: req.Language,
		Keywords: req.Keywords,
		Answer:   req.Answer,
		IsActive: true,
	}
	if req.IsActive != nil {
		entry.IsActive = *req.IsActive
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create FAQ entry"})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

type updateFAQRequest struct {
	Language *string `json:"language"`
	Keywords *string `json:"keywords"`
	Answer   *string `json:"answer"`
	IsActive *bool   `json:"is_active"`
}

// UpdateFAQ patches an existing FAQ entry; omitted fields are left alone
// PUT /api/operator/faqs/:id
func (h *AdminHandler) UpdateFAQ(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid FAQ id"})
		return
	}

	var req updateFAQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var entry models.FAQEntry
	if err := h.db.WithContext(c.Request.Context()).First(&entry, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "FAQ entry not found"})
		return
	}

	if req.Language != nil {
		entry.Language = *req.Language
	}
	if req.Keywords != nil {
		entry.Keywords = *req.Keywords
	}
	if req.Answer != nil {
		entry.Answer = *req.Answer
	}
	if req.IsActive != nil {
		entry.IsActive = *req.IsActive
	}

	if err := h.db.WithContext(c.Request.Context()).Save(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update FAQ entry"})
		return
	}

	c.JSON(http.StatusOK, entry)
}

// DeleteFAQ removes a FAQ entry
// DELETE /api/operator/faqs/:id
func (h *AdminHandler) DeleteFAQ(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid FAQ id"})
		return
	}

	result := h.db.WithContext(c.Request.Context()).Delete(&models.FAQEntry{}, uint(id))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete FAQ entry"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "FAQ entry not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// TranslationStatus reports whether the pipeline is live and how the cache is
// doing
// GET /api/operator/translation/status
func (h *AdminHandler) TranslationStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.translator.Status())
}
