package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"whatsapp-console/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ContactHandler struct {
	DB *gorm.DB
}

func NewContactHandler(db *gorm.DB) *ContactHandler {
	return &ContactHandler{DB: db}
}

func (h *ContactHandler) List(c *gin.Context) {
	var contacts []models.Contact
	if err := h.DB.Order("created_at DESC").Find(&contacts).Error; err != nil {
		writeError(c, err, "Error fetching contacts")
		return
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	c.JSON(http.StatusOK, gin.H{"data": contacts})
}

func (h *ContactHandler) Get(c *gin.Context) {
	contact, ok := h.findContact(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contact})
}

type ContactRequest struct {
	Name        string `json:"name" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Company     string `json:"company"`
	Position    string `json:"position"`
	Status      string `json:"status"`
	Notes       string `json:"notes"`
}

func (h *ContactHandler) Create(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := req.Status
	if status == "" {
		status = "active"
	}
	contact := models.Contact{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Company:     req.Company,
		Position:    req.Position,
		Status:      status,
		Notes:       req.Notes,
	}
	if err := h.DB.Create(&contact).Error; err != nil {
		writeError(c, err, "Error creating contact")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": contact})
}

func (h *ContactHandler) Update(c *gin.Context) {
	contact, ok := h.findContact(c)
	if !ok {
		return
	}

	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact.Name = req.Name
	contact.PhoneNumber = req.PhoneNumber
	contact.Company = req.Company
	contact.Position = req.Position
	if req.Status != "" {
		contact.Status = req.Status
	}
	contact.Notes = req.Notes
	if err := h.DB.Save(contact).Error; err != nil {
		writeError(c, err, "Error updating contact")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contact})
}

// Delete removes the contact and its messages and campaign/group links.
// Application-level cascade, not enforced atomically.
func (h *ContactHandler) Delete(c *gin.Context) {
	contact, ok := h.findContact(c)
	if !ok {
		return
	}

	id := contact.ID
	if err := h.DB.Where("contact_id = ?", id).Delete(&models.Message{}).Error; err != nil {
		writeError(c, err, "Error deleting contact")
		return
	}
	if err := h.DB.Where("contact_id = ?", id).Delete(&models.CampaignContact{}).Error; err != nil {
		writeError(c, err, "Error deleting contact")
		return
	}
	if err := h.DB.Where("contact_id = ?", id).Delete(&models.GroupContact{}).Error; err != nil {
		writeError(c, err, "Error deleting contact")
		return
	}
	if err := h.DB.Delete(contact).Error; err != nil {
		writeError(c, err, "Error deleting contact")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contact deleted successfully"})
}

type contactStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *ContactHandler) UpdateStatus(c *gin.Context) {
	contact, ok := h.findContact(c)
	if !ok {
		return
	}

	var req contactStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact.Status = req.Status
	if err := h.DB.Save(contact).Error; err != nil {
		writeError(c, err, "Error updating contact status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contact})
}

func (h *ContactHandler) TouchLastContacted(c *gin.Context) {
	contact, ok := h.findContact(c)
	if !ok {
		return
	}

	now := time.Now()
	contact.LastContacted = &now
	if err := h.DB.Save(contact).Error; err != nil {
		writeError(c, err, "Error updating last contacted")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contact})
}

func (h *ContactHandler) findContact(c *gin.Context) (*models.Contact, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact id"})
		return nil, false
	}

	var contact models.Contact
	if err := h.DB.First(&contact, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		} else {
			writeError(c, err, "Error fetching contact")
		}
		return nil, false
	}
	return &contact, true
}
