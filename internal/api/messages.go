package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"whatsapp-console/internal/campaign"
	"whatsapp-console/internal/metrics"
	"whatsapp-console/internal/models"
	"whatsapp-console/internal/whatsapp"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type MessageHandler struct {
	DB     *gorm.DB
	Sender campaign.Sender
}

func NewMessageHandler(db *gorm.DB, sender campaign.Sender) *MessageHandler {
	return &MessageHandler{DB: db, Sender: sender}
}

var messageStatuses = map[string]bool{
	"pending":   true,
	"sent":      true,
	"delivered": true,
	"read":      true,
	"failed":    true,
}

func (h *MessageHandler) List(c *gin.Context) {
	var messages []models.Message
	if err := h.DB.Order("timestamp ASC").Find(&messages).Error; err != nil {
		writeError(c, err, "Failed to fetch messages")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

func (h *MessageHandler) ListByContact(c *gin.Context) {
	contactID, err := strconv.ParseUint(c.Param("contactId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact id"})
		return
	}

	var messages []models.Message
	if err := h.DB.Where("contact_id = ?", uint(contactID)).
		Order("timestamp ASC").Find(&messages).Error; err != nil {
		writeError(c, err, "Failed to fetch messages for contact")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

type SendMessageRequest struct {
	ContactID         uint   `json:"contact_id"`
	Content           string `json:"content"`
	MessageType       string `json:"message_type"`
	MediaURL          string `json:"media_url"`
	IsCampaignMessage bool   `json:"is_campaign_message"`
}

// Send submits one message through the provider and persists the outgoing
// Message row on success. A failed send persists nothing; the caller only
// sees the error response.
func (h *MessageHandler) Send(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ContactID == 0 || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Contact ID and content are required"})
		return
	}

	var contact models.Contact
	if err := h.DB.First(&contact, req.ContactID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		} else {
			writeError(c, err, "Failed to send message")
		}
		return
	}

	providerID, err := h.Sender.Send(whatsapp.SendRequest{
		PhoneNumber: contact.PhoneNumber,
		Content:     req.Content,
		MessageType: req.MessageType,
		MediaURL:    req.MediaURL,
	})
	if err != nil {
		metrics.MessagesFailed.WithLabelValues(failureReason(err)).Inc()
		writeError(c, err, "Failed to send message")
		return
	}
	metrics.MessagesSent.Inc()

	msgType := req.MessageType
	if msgType == "" {
		msgType = "text"
	}
	message := models.Message{
		ContactID:         contact.ID,
		Direction:         "outgoing",
		Content:           req.Content,
		MessageType:       msgType,
		Timestamp:         time.Now(),
		Status:            "sent",
		MessageID:         providerID,
		IsCampaignMessage: req.IsCampaignMessage,
	}
	if err := h.DB.Create(&message).Error; err != nil {
		writeError(c, err, "Failed to record sent message")
		return
	}
	c.JSON(http.StatusCreated, message)
}

type messageStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *MessageHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
		return
	}

	var req messageStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !messageStatuses[req.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status value"})
		return
	}

	result := h.DB.Model(&models.Message{}).Where("id = ?", uint(id)).
		Update("status", req.Status)
	if result.Error != nil {
		writeError(c, result.Error, "Failed to update message status")
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *MessageHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
		return
	}

	result := h.DB.Delete(&models.Message{}, uint(id))
	if result.Error != nil {
		writeError(c, result.Error, "Failed to delete message")
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func failureReason(err error) string {
	var upstream *whatsapp.UpstreamError
	switch {
	case errors.Is(err, whatsapp.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, whatsapp.ErrUnsupportedType):
		return "unsupported_type"
	case errors.As(err, &upstream):
		return "upstream"
	}
	return "transport"
}
