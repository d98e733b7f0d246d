package api

import (
	"errors"
	"net/http"

	"whatsapp-console/internal/campaign"
	"whatsapp-console/internal/whatsapp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// writeError maps tagged service errors to HTTP statuses. Anything
// unrecognized becomes a 500 with a generic message so internal wording
// never leaks into the API contract.
func writeError(c *gin.Context, err error, fallback string) {
	var upstream *whatsapp.UpstreamError

	switch {
	case errors.Is(err, campaign.ErrCampaignNotFound),
		errors.Is(err, campaign.ErrCampaignContactNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, campaign.ErrInvalidStatus),
		errors.Is(err, campaign.ErrCampaignFinished),
		errors.Is(err, whatsapp.ErrNotConfigured),
		errors.Is(err, whatsapp.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &upstream):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":           "provider request failed",
			"provider_status": upstream.StatusCode,
			"provider_error":  upstream.Body,
		})
	default:
		zap.L().Error(fallback, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
