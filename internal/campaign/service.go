package campaign

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"whatsapp-console/internal/models"
	"whatsapp-console/internal/whatsapp"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrCampaignNotFound        = errors.New("campaign not found")
	ErrCampaignContactNotFound = errors.New("campaign contact not found")
	ErrInvalidStatus           = errors.New("invalid status value")

	// ErrCampaignFinished rejects sending a campaign that already ran or
	// was cancelled.
	ErrCampaignFinished = errors.New("campaign is completed or cancelled")
)

var campaignStatuses = map[string]bool{
	"draft":       true,
	"scheduled":   true,
	"in_progress": true,
	"completed":   true,
	"cancelled":   true,
}

var recipientStatuses = map[string]bool{
	"pending":   true,
	"sent":      true,
	"delivered": true,
	"read":      true,
	"replied":   true,
	"failed":    true,
}

// Sender submits one message to the provider and returns its message ID.
// Satisfied by *whatsapp.Client.
type Sender interface {
	Send(req whatsapp.SendRequest) (string, error)
}

// Service owns campaign lifecycle, recipient association and the
// denormalized progress counters on the campaign row.
type Service struct {
	db     *gorm.DB
	sender Sender
}

func NewService(db *gorm.DB, sender Sender) *Service {
	return &Service{db: db, sender: sender}
}

// CampaignInput carries create/update fields. Nil ID slices mean "leave
// associations alone"; empty non-nil slices clear them.
type CampaignInput struct {
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	TemplateMessage string     `json:"template_message"`
	Status          string     `json:"status"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	TemplateID      *uint      `json:"template_id"`
	ContactIDs      []uint     `json:"contact_ids"`
	GroupIDs        []uint     `json:"group_ids"`
}

func (s *Service) List() ([]models.Campaign, error) {
	var campaigns []models.Campaign
	if err := s.db.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list campaigns")
	}
	return campaigns, nil
}

func (s *Service) Get(id uint) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := s.db.First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, pkgerrors.Wrapf(err, "get campaign %d", id)
	}
	return &campaign, nil
}

// Recipients returns the per-recipient delivery rows for a campaign.
func (s *Service) Recipients(campaignID uint) ([]models.CampaignContact, error) {
	if _, err := s.Get(campaignID); err != nil {
		return nil, err
	}
	var recipients []models.CampaignContact
	if err := s.db.Where("campaign_id = ?", campaignID).Order("id").Find(&recipients).Error; err != nil {
		return nil, pkgerrors.Wrapf(err, "list recipients for campaign %d", campaignID)
	}
	return recipients, nil
}

func (s *Service) Create(input CampaignInput) (*models.Campaign, error) {
	status := input.Status
	if status == "" {
		status = "draft"
	}
	if !campaignStatuses[status] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	campaign := models.Campaign{
		Name:            input.Name,
		Description:     input.Description,
		TemplateMessage: input.TemplateMessage,
		Status:          status,
		ScheduledAt:     input.ScheduledAt,
		TemplateID:      input.TemplateID,
	}
	if err := s.db.Create(&campaign).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "create campaign")
	}

	if len(input.ContactIDs) > 0 {
		if err := s.AddContacts(campaign.ID, input.ContactIDs); err != nil {
			return nil, err
		}
	}
	if len(input.GroupIDs) > 0 {
		if err := s.AddGroups(campaign.ID, input.GroupIDs); err != nil {
			return nil, err
		}
	}

	if _, err := s.RecountContacts(campaign.ID); err != nil {
		return nil, err
	}
	return s.Get(campaign.ID)
}

func (s *Service) Update(id uint, input CampaignInput) (*models.Campaign, error) {
	campaign, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		campaign.Name = input.Name
	}
	if input.Description != "" {
		campaign.Description = input.Description
	}
	if input.TemplateMessage != "" {
		campaign.TemplateMessage = input.TemplateMessage
	}
	if input.Status != "" {
		if !campaignStatuses[input.Status] {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, input.Status)
		}
		campaign.Status = input.Status
	}
	if input.ScheduledAt != nil {
		campaign.ScheduledAt = input.ScheduledAt
	}
	if input.TemplateID != nil {
		campaign.TemplateID = input.TemplateID
	}
	if err := s.db.Save(campaign).Error; err != nil {
		return nil, pkgerrors.Wrapf(err, "update campaign %d", id)
	}

	// A present ID list replaces the association wholesale.
	if input.ContactIDs != nil {
		if err := s.db.Where("campaign_id = ?", id).Delete(&models.CampaignContact{}).Error; err != nil {
			return nil, pkgerrors.Wrapf(err, "clear campaign %d contacts", id)
		}
		if len(input.ContactIDs) > 0 {
			if err := s.AddContacts(id, input.ContactIDs); err != nil {
				return nil, err
			}
		}
	}
	if input.GroupIDs != nil {
		if err := s.db.Where("campaign_id = ?", id).Delete(&models.CampaignGroup{}).Error; err != nil {
			return nil, pkgerrors.Wrapf(err, "clear campaign %d groups", id)
		}
		if len(input.GroupIDs) > 0 {
			if err := s.AddGroups(id, input.GroupIDs); err != nil {
				return nil, err
			}
		}
	}

	if _, err := s.RecountContacts(id); err != nil {
		return nil, err
	}
	return s.Get(id)
}

func (s *Service) Delete(id uint) error {
	campaign, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := s.db.Where("campaign_id = ?", id).Delete(&models.CampaignContact{}).Error; err != nil {
		return pkgerrors.Wrapf(err, "delete campaign %d contacts", id)
	}
	if err := s.db.Where("campaign_id = ?", id).Delete(&models.CampaignGroup{}).Error; err != nil {
		return pkgerrors.Wrapf(err, "delete campaign %d groups", id)
	}
	if err := s.db.Delete(campaign).Error; err != nil {
		return pkgerrors.Wrapf(err, "delete campaign %d", id)
	}
	return nil
}

// AddContacts links contacts to a campaign. Pairs already linked are
// skipped; the same contact arriving again through a group is not (see
// AddGroups).
func (s *Service) AddContacts(campaignID uint, contactIDs []uint) error {
	if _, err := s.Get(campaignID); err != nil {
		return err
	}
	for _, contactID := range contactIDs {
		var existing int64
		if err := s.db.Model(&models.CampaignContact{}).
			Where("campaign_id = ? AND contact_id = ?", campaignID, contactID).
			Count(&existing).Error; err != nil {
			return pkgerrors.Wrapf(err, "check campaign %d contact %d", campaignID, contactID)
		}
		if existing > 0 {
			continue
		}
		link := models.CampaignContact{
			CampaignID: campaignID,
			ContactID:  contactID,
			Status:     "pending",
		}
		if err := s.db.Create(&link).Error; err != nil {
			return pkgerrors.Wrapf(err, "link contact %d to campaign %d", contactID, campaignID)
		}
	}
	_, err := s.RecountContacts(campaignID)
	return err
}

// AddGroups links groups to a campaign and expands each group's current
// membership into campaign contacts.
func (s *Service) AddGroups(campaignID uint, groupIDs []uint) error {
	if _, err := s.Get(campaignID); err != nil {
		return err
	}
	for _, groupID := range groupIDs {
		link := models.CampaignGroup{CampaignID: campaignID, GroupID: groupID}
		if err := s.db.Create(&link).Error; err != nil {
			return pkgerrors.Wrapf(err, "link group %d to campaign %d", groupID, campaignID)
		}

		var memberships []models.GroupContact
		if err := s.db.Where("group_id = ?", groupID).Find(&memberships).Error; err != nil {
			return pkgerrors.Wrapf(err, "expand group %d", groupID)
		}
		contactIDs := make([]uint, 0, len(memberships))
		for _, m := range memberships {
			contactIDs = append(contactIDs, m.ContactID)
		}
		if len(contactIDs) > 0 {
			if err := s.AddContacts(campaignID, contactIDs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecountContacts refreshes contact_count as a raw row count of
// campaign_contacts, not a distinct-contact count.
func (s *Service) RecountContacts(campaignID uint) (int, error) {
	var count int64
	if err := s.db.Model(&models.CampaignContact{}).
		Where("campaign_id = ?", campaignID).
		Count(&count).Error; err != nil {
		return 0, pkgerrors.Wrapf(err, "count campaign %d contacts", campaignID)
	}
	if err := s.db.Model(&models.Campaign{}).Where("id = ?", campaignID).
		Update("contact_count", count).Error; err != nil {
		return 0, pkgerrors.Wrapf(err, "store campaign %d contact count", campaignID)
	}
	return int(count), nil
}

// UpdateStatus sets the campaign status, stamping started_at on
// in_progress and completed_at on completed. Any status may follow any
// other.
func (s *Service) UpdateStatus(id uint, status string) (*models.Campaign, error) {
	if !campaignStatuses[status] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	campaign, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	campaign.Status = status
	now := time.Now()
	switch status {
	case "in_progress":
		campaign.StartedAt = &now
	case "completed":
		campaign.CompletedAt = &now
	}
	if err := s.db.Save(campaign).Error; err != nil {
		return nil, pkgerrors.Wrapf(err, "update campaign %d status", id)
	}
	return campaign, nil
}

// Counts holds the recomputed per-status aggregates.
type Counts struct {
	DeliveredCount int `json:"delivered_count"`
	ReadCount      int `json:"read_count"`
	RepliedCount   int `json:"replied_count"`
}

// RecomputeCounts re-counts campaign_contacts rows per status and stores
// the result on the campaign. Full recount rather than increment, so a
// missed update heals on the next call.
func (s *Service) RecomputeCounts(campaignID uint) (*Counts, error) {
	if _, err := s.Get(campaignID); err != nil {
		return nil, err
	}

	counts := &Counts{}
	for status, target := range map[string]*int{
		"delivered": &counts.DeliveredCount,
		"read":      &counts.ReadCount,
		"replied":   &counts.RepliedCount,
	} {
		var n int64
		if err := s.db.Model(&models.CampaignContact{}).
			Where("campaign_id = ? AND status = ?", campaignID, status).
			Count(&n).Error; err != nil {
			return nil, pkgerrors.Wrapf(err, "count campaign %d %s", campaignID, status)
		}
		*target = int(n)
	}

	if err := s.db.Model(&models.Campaign{}).Where("id = ?", campaignID).
		Updates(map[string]interface{}{
			"delivered_count": counts.DeliveredCount,
			"read_count":      counts.ReadCount,
			"replied_count":   counts.RepliedCount,
		}).Error; err != nil {
		return nil, pkgerrors.Wrapf(err, "store campaign %d counts", campaignID)
	}
	return counts, nil
}

// UpdateMessageStatus applies a per-recipient status transition and stamps
// the matching timestamp, then refreshes the campaign aggregates.
func (s *Service) UpdateMessageStatus(campaignID, contactID uint, status string) (*models.CampaignContact, error) {
	if !recipientStatuses[status] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	var link models.CampaignContact
	err := s.db.Where("campaign_id = ? AND contact_id = ?", campaignID, contactID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignContactNotFound
		}
		return nil, pkgerrors.Wrapf(err, "find campaign %d contact %d", campaignID, contactID)
	}

	link.Status = status
	now := time.Now()
	switch status {
	case "sent":
		link.SentAt = &now
	case "delivered":
		link.DeliveredAt = &now
	case "read":
		link.ReadAt = &now
	case "replied":
		link.RepliedAt = &now
	}
	if err := s.db.Save(&link).Error; err != nil {
		return nil, pkgerrors.Wrapf(err, "save campaign %d contact %d", campaignID, contactID)
	}

	if _, err := s.RecomputeCounts(campaignID); err != nil {
		return nil, err
	}
	return &link, nil
}

// RenderMessage substitutes {{name}}, {{company}}, {{position}} and
// {{phone_number}} placeholders with the contact's fields.
func RenderMessage(content string, contact *models.Contact) string {
	r := strings.NewReplacer(
		"{{name}}", contact.Name,
		"{{company}}", contact.Company,
		"{{position}}", contact.Position,
		"{{phone_number}}", contact.PhoneNumber,
	)
	return r.Replace(content)
}
