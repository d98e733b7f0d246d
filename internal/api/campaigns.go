package api

import (
	"net/http"
	"strconv"

	"whatsapp-console/internal/campaign"

	"github.com/gin-gonic/gin"
)

type CampaignHandler struct {
	Service *campaign.Service
}

func NewCampaignHandler(service *campaign.Service) *CampaignHandler {
	return &CampaignHandler{Service: service}
}

func (h *CampaignHandler) List(c *gin.Context) {
	campaigns, err := h.Service.List()
	if err != nil {
		writeError(c, err, "Failed to fetch campaigns")
		return
	}
	c.JSON(http.StatusOK, campaigns)
}

func (h *CampaignHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	record, err := h.Service.Get(id)
	if err != nil {
		writeError(c, err, "Failed to fetch campaign")
		return
	}
	recipients, err := h.Service.Recipients(id)
	if err != nil {
		writeError(c, err, "Failed to fetch campaign")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"campaign":   record,
		"recipients": recipients,
	})
}

func (h *CampaignHandler) Create(c *gin.Context) {
	var input campaign.CampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Name == "" || input.TemplateMessage == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and template_message are required"})
		return
	}

	record, err := h.Service.Create(input)
	if err != nil {
		writeError(c, err, "Failed to create campaign")
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *CampaignHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input campaign.CampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.Service.Update(id, input)
	if err != nil {
		writeError(c, err, "Failed to update campaign")
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *CampaignHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.Service.Delete(id); err != nil {
		writeError(c, err, "Failed to delete campaign")
		return
	}
	c.Status(http.StatusNoContent)
}

type campaignContactsRequest struct {
	ContactIDs []uint `json:"contact_ids" binding:"required"`
}

func (h *CampaignHandler) AddContacts(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req campaignContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Service.AddContacts(id, req.ContactIDs); err != nil {
		writeError(c, err, "Failed to add contacts to campaign")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contacts added to campaign successfully"})
}

type campaignGroupsRequest struct {
	GroupIDs []uint `json:"group_ids" binding:"required"`
}

func (h *CampaignHandler) AddGroups(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req campaignGroupsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Service.AddGroups(id, req.GroupIDs); err != nil {
		writeError(c, err, "Failed to add groups to campaign")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Groups added to campaign successfully"})
}

type campaignStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *CampaignHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req campaignStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.Service.UpdateStatus(id, req.Status)
	if err != nil {
		writeError(c, err, "Failed to update campaign status")
		return
	}
	c.JSON(http.StatusOK, record)
}

// UpdateMessageStatus applies a per-recipient delivery transition and
// refreshes the campaign aggregates.
func (h *CampaignHandler) UpdateMessageStatus(c *gin.Context) {
	campaignID, ok := pathID(c, "id")
	if !ok {
		return
	}
	contactID, ok := pathID(c, "contactId")
	if !ok {
		return
	}

	var req campaignStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := h.Service.UpdateMessageStatus(campaignID, contactID, req.Status)
	if err != nil {
		writeError(c, err, "Failed to update message status")
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *CampaignHandler) Send(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.Service.Send(id)
	if err != nil {
		writeError(c, err, "Failed to send campaign messages")
		return
	}
	c.JSON(http.StatusOK, result)
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
