package webhook

import (
	"net/http"
	"time"

	"whatsapp-console/internal/config"
	"whatsapp-console/internal/metrics"
	"whatsapp-console/internal/models"
	"whatsapp-console/internal/phone"
	wire "whatsapp-console/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Handler struct {
	Config *config.Config
	DB     *gorm.DB
}

func NewHandler(cfg *config.Config, db *gorm.DB) *Handler {
	return &Handler{Config: cfg, DB: db}
}

// Verify answers the provider's subscription handshake.
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		c.Status(http.StatusBadRequest)
		return
	}
	if mode == "subscribe" && token == h.Config.VerifyToken {
		zap.L().Info("webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// Receive ingests message, status and error callbacks.
func (h *Handler) Receive(c *gin.Context) {
	var payload wire.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload structure"})
		return
	}

	if len(payload.Entry) == 0 || len(payload.Entry[0].Changes) == 0 || payload.Entry[0].Changes[0].Value == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload structure"})
		return
	}
	value := payload.Entry[0].Changes[0].Value

	switch {
	case len(value.Messages) > 0:
		h.handleInboundMessage(c, &value.Messages[0])
	case len(value.Statuses) > 0:
		status := value.Statuses[0]
		metrics.WebhookEvents.WithLabelValues("status").Inc()
		zap.L().Info("received status update",
			zap.String("message_id", status.ID),
			zap.String("status", status.Status))
		c.JSON(http.StatusOK, gin.H{"type": "status", "status": status.Status})
	case len(value.Errors) > 0:
		provErr := value.Errors[0]
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		zap.L().Error("received provider error",
			zap.Int("code", provErr.Code),
			zap.String("title", provErr.Title))
		c.JSON(http.StatusBadRequest, gin.H{"error": provErr.Title})
	default:
		metrics.WebhookEvents.WithLabelValues("unhandled").Inc()
		c.JSON(http.StatusOK, gin.H{"type": "unhandled"})
	}
}

func (h *Handler) handleInboundMessage(c *gin.Context, msg *wire.InboundMessage) {
	metrics.WebhookEvents.WithLabelValues("message").Inc()

	if msg.From == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing from number in message"})
		return
	}

	var contacts []models.Contact
	if err := h.DB.Order("id").Find(&contacts).Error; err != nil {
		zap.L().Error("failed to load contacts for matching", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message"})
		return
	}

	matched := phone.MatchContact(msg.From, contacts)
	if matched == nil {
		zap.L().Info("no contact matched inbound number", zap.String("from", msg.From))
		c.JSON(http.StatusOK, gin.H{"message": "Message received, but contact not found in database"})
		return
	}

	msgType := msg.Type
	if msgType == "" {
		msgType = "text"
	}

	now := time.Now()
	message := models.Message{
		ContactID:   matched.ID,
		Direction:   "incoming",
		Content:     inboundContent(msg),
		MessageType: msgType,
		Timestamp:   now,
		Status:      "delivered",
		MessageID:   msg.ID,
	}
	if err := h.DB.Create(&message).Error; err != nil {
		zap.L().Error("failed to store inbound message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message"})
		return
	}

	if err := h.DB.Model(&models.Contact{}).Where("id = ?", matched.ID).
		Updates(map[string]interface{}{
			"status":         "responded",
			"last_contacted": now,
		}).Error; err != nil {
		zap.L().Error("failed to update contact after inbound message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message"})
		return
	}

	zap.L().Info("inbound message recorded",
		zap.Uint("contact_id", matched.ID),
		zap.String("from", msg.From),
		zap.String("type", msgType))

	c.JSON(http.StatusOK, gin.H{
		"message":   "Message processed successfully",
		"contactId": matched.ID,
		"messageId": message.ID,
	})
}

// inboundContent extracts a storable text representation of the message.
// Media messages get a bracketed placeholder with the media id and caption.
func inboundContent(msg *wire.InboundMessage) string {
	if msg.Type == "text" || msg.Type == "" {
		if msg.Text != nil {
			return msg.Text.Body
		}
		return ""
	}

	var media *wire.MediaMessage
	switch msg.Type {
	case "image":
		media = msg.Image
	case "video":
		media = msg.Video
	case "audio":
		media = msg.Audio
	case "document":
		media = msg.Document
	}

	content := "[" + msg.Type + "]"
	if media != nil {
		content += ":" + media.ID
		if media.Caption != "" {
			content += ":" + media.Caption
		} else if media.Filename != "" {
			content += ":" + media.Filename
		}
	}
	return content
}
