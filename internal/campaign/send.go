package campaign

import (
	"errors"
	"time"

	"whatsapp-console/internal/metrics"
	"whatsapp-console/internal/models"
	"whatsapp-console/internal/whatsapp"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SendResult summarizes one fan-out run.
type SendResult struct {
	CampaignID uint `json:"campaign_id"`
	Total      int  `json:"total"`
	Sent       int  `json:"sent"`
	Failed     int  `json:"failed"`
}

// Send runs the campaign fan-out: renders the template message for each
// recipient in row order and submits it to the provider, one call at a
// time. Per-recipient failures are recorded on the join row and do not stop
// the loop. The campaign is marked completed when the loop ends.
func (s *Service) Send(campaignID uint) (*SendResult, error) {
	campaign, err := s.Get(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status == "completed" || campaign.Status == "cancelled" {
		return nil, ErrCampaignFinished
	}

	if _, err := s.UpdateStatus(campaignID, "in_progress"); err != nil {
		return nil, err
	}

	var recipients []models.CampaignContact
	if err := s.db.Where("campaign_id = ?", campaignID).Order("id").Find(&recipients).Error; err != nil {
		return nil, pkgerrors.Wrapf(err, "list recipients for campaign %d", campaignID)
	}

	result := &SendResult{CampaignID: campaignID, Total: len(recipients)}
	for i := range recipients {
		link := &recipients[i]
		if err := s.sendToRecipient(campaign, link); err != nil {
			result.Failed++
			metrics.CampaignRecipients.WithLabelValues("failed").Inc()
			zap.L().Warn("campaign recipient failed",
				zap.Uint("campaign_id", campaignID),
				zap.Uint("contact_id", link.ContactID),
				zap.Error(err))
			continue
		}
		result.Sent++
		metrics.CampaignRecipients.WithLabelValues("sent").Inc()
	}

	if _, err := s.UpdateStatus(campaignID, "completed"); err != nil {
		return nil, err
	}
	if _, err := s.RecomputeCounts(campaignID); err != nil {
		return nil, err
	}

	zap.L().Info("campaign send finished",
		zap.Uint("campaign_id", campaignID),
		zap.Int("total", result.Total),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *Service) sendToRecipient(campaign *models.Campaign, link *models.CampaignContact) error {
	var contact models.Contact
	if err := s.db.First(&contact, link.ContactID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.markRecipientFailed(link, "contact no longer exists")
			return pkgerrors.Errorf("contact %d no longer exists", link.ContactID)
		}
		return pkgerrors.Wrapf(err, "load contact %d", link.ContactID)
	}

	content := RenderMessage(campaign.TemplateMessage, &contact)
	providerID, err := s.sender.Send(whatsapp.SendRequest{
		PhoneNumber: contact.PhoneNumber,
		Content:     content,
		MessageType: "text",
	})
	if err != nil {
		s.markRecipientFailed(link, err.Error())
		return err
	}

	now := time.Now()
	link.Status = "sent"
	link.SentAt = &now
	link.ErrorMessage = ""
	if err := s.db.Save(link).Error; err != nil {
		return pkgerrors.Wrapf(err, "save recipient %d", link.ID)
	}

	message := models.Message{
		ContactID:         contact.ID,
		Direction:         "outgoing",
		Content:           content,
		MessageType:       "text",
		Timestamp:         now,
		Status:            "sent",
		MessageID:         providerID,
		IsCampaignMessage: true,
	}
	if err := s.db.Create(&message).Error; err != nil {
		return pkgerrors.Wrapf(err, "record campaign message for contact %d", contact.ID)
	}

	if err := s.db.Model(&models.Contact{}).Where("id = ?", contact.ID).
		Update("last_contacted", now).Error; err != nil {
		return pkgerrors.Wrapf(err, "stamp contact %d last_contacted", contact.ID)
	}
	return nil
}

func (s *Service) markRecipientFailed(link *models.CampaignContact, reason string) {
	link.Status = "failed"
	link.ErrorMessage = reason
	if err := s.db.Save(link).Error; err != nil {
		zap.L().Error("failed to mark recipient failed",
			zap.Uint("campaign_contact_id", link.ID), zap.Error(err))
	}
}
