package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"whatsapp-console/internal/campaign"
	"whatsapp-console/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TemplateHandler struct {
	DB *gorm.DB
}

func NewTemplateHandler(db *gorm.DB) *TemplateHandler {
	return &TemplateHandler{DB: db}
}

func (h *TemplateHandler) List(c *gin.Context) {
	var templates []models.Template
	if err := h.DB.Order("created_at DESC").Find(&templates).Error; err != nil {
		writeError(c, err, "Failed to fetch templates")
		return
	}
	if templates == nil {
		templates = []models.Template{}
	}
	c.JSON(http.StatusOK, templates)
}

func (h *TemplateHandler) Get(c *gin.Context) {
	template, ok := h.findTemplate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, template)
}

type TemplateRequest struct {
	Name    string `json:"name" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func (h *TemplateHandler) Create(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	template := models.Template{Name: req.Name, Content: req.Content}
	if err := h.DB.Create(&template).Error; err != nil {
		writeError(c, err, "Failed to create template")
		return
	}
	c.JSON(http.StatusCreated, template)
}

func (h *TemplateHandler) Update(c *gin.Context) {
	template, ok := h.findTemplate(c)
	if !ok {
		return
	}

	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	template.Name = req.Name
	template.Content = req.Content
	if err := h.DB.Save(template).Error; err != nil {
		writeError(c, err, "Failed to update template")
		return
	}
	c.JSON(http.StatusOK, template)
}

func (h *TemplateHandler) Delete(c *gin.Context) {
	template, ok := h.findTemplate(c)
	if !ok {
		return
	}
	if err := h.DB.Delete(template).Error; err != nil {
		writeError(c, err, "Failed to delete template")
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkUsed stamps last_used, called when a template is picked for a send.
func (h *TemplateHandler) MarkUsed(c *gin.Context) {
	template, ok := h.findTemplate(c)
	if !ok {
		return
	}

	now := time.Now()
	template.LastUsed = &now
	if err := h.DB.Save(template).Error; err != nil {
		writeError(c, err, "Failed to update template usage")
		return
	}
	c.JSON(http.StatusOK, template)
}

type previewRequest struct {
	ContactID uint `json:"contact_id" binding:"required"`
}

// Preview renders the template's {{placeholder}} fields against a contact.
func (h *TemplateHandler) Preview(c *gin.Context) {
	template, ok := h.findTemplate(c)
	if !ok {
		return
	}

	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var contact models.Contact
	if err := h.DB.First(&contact, req.ContactID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		} else {
			writeError(c, err, "Failed to render template")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"template_id": template.ID,
		"contact_id":  contact.ID,
		"rendered":    campaign.RenderMessage(template.Content, &contact),
	})
}

func (h *TemplateHandler) findTemplate(c *gin.Context) (*models.Template, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template id"})
		return nil, false
	}

	var template models.Template
	if err := h.DB.First(&template, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		} else {
			writeError(c, err, "Failed to fetch template")
		}
		return nil, false
	}
	return &template, true
}
