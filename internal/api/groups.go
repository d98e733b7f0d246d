package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"whatsapp-console/internal/models"
	"whatsapp-console/internal/phone"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type GroupHandler struct {
	DB *gorm.DB
}

func NewGroupHandler(db *gorm.DB) *GroupHandler {
	return &GroupHandler{DB: db}
}

func (h *GroupHandler) List(c *gin.Context) {
	var groups []models.Group
	if err := h.DB.Preload("Contacts").Find(&groups).Error; err != nil {
		writeError(c, err, "Failed to fetch groups")
		return
	}
	if groups == nil {
		groups = []models.Group{}
	}
	c.JSON(http.StatusOK, groups)
}

func (h *GroupHandler) Get(c *gin.Context) {
	group, ok := h.findGroup(c, true)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, group)
}

type GroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ContactIDs  []uint `json:"contact_ids"`
}

func (h *GroupHandler) Create(c *gin.Context) {
	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group := models.Group{Name: req.Name, Description: req.Description}
	if err := h.DB.Create(&group).Error; err != nil {
		writeError(c, err, "Failed to create group")
		return
	}

	if len(req.ContactIDs) > 0 {
		if err := h.linkContacts(group.ID, req.ContactIDs); err != nil {
			writeError(c, err, "Failed to create group")
			return
		}
	}

	var created models.Group
	if err := h.DB.Preload("Contacts").First(&created, group.ID).Error; err != nil {
		writeError(c, err, "Failed to create group")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *GroupHandler) Update(c *gin.Context) {
	group, ok := h.findGroup(c, false)
	if !ok {
		return
	}

	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group.Name = req.Name
	group.Description = req.Description
	if err := h.DB.Save(group).Error; err != nil {
		writeError(c, err, "Failed to update group")
		return
	}

	// A present contact_ids list replaces the membership wholesale.
	if req.ContactIDs != nil {
		if err := h.DB.Where("group_id = ?", group.ID).Delete(&models.GroupContact{}).Error; err != nil {
			writeError(c, err, "Failed to update group")
			return
		}
		if err := h.linkContacts(group.ID, req.ContactIDs); err != nil {
			writeError(c, err, "Failed to update group")
			return
		}
	}

	var updated models.Group
	if err := h.DB.Preload("Contacts").First(&updated, group.ID).Error; err != nil {
		writeError(c, err, "Failed to update group")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *GroupHandler) Delete(c *gin.Context) {
	group, ok := h.findGroup(c, false)
	if !ok {
		return
	}

	if err := h.DB.Where("group_id = ?", group.ID).Delete(&models.GroupContact{}).Error; err != nil {
		writeError(c, err, "Failed to delete group")
		return
	}
	if err := h.DB.Where("group_id = ?", group.ID).Delete(&models.CampaignGroup{}).Error; err != nil {
		writeError(c, err, "Failed to delete group")
		return
	}
	if err := h.DB.Delete(group).Error; err != nil {
		writeError(c, err, "Failed to delete group")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Group deleted successfully"})
}

type groupImportContact struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Company  string `json:"company"`
	Position string `json:"position"`
	Notes    string `json:"notes"`
}

type groupImportRequest struct {
	Name        string               `json:"name" binding:"required"`
	Description string               `json:"description"`
	Contacts    []groupImportContact `json:"contacts" binding:"required"`
}

// ImportContacts creates a group and its contacts from an imported contact
// list in one call. Phone numbers arrive free-form and are stored in E.164.
func (h *GroupHandler) ImportContacts(c *gin.Context) {
	var req groupImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Imported group with %d contacts", len(req.Contacts))
	}
	group := models.Group{Name: req.Name, Description: description}
	if err := h.DB.Create(&group).Error; err != nil {
		writeError(c, err, "Failed to import contacts and create group")
		return
	}

	now := time.Now()
	contactIDs := make([]uint, 0, len(req.Contacts))
	for _, row := range req.Contacts {
		contact := models.Contact{
			Name:         row.Name,
			PhoneNumber:  phone.E164(row.Phone),
			Company:      row.Company,
			Position:     row.Position,
			Status:       "active",
			Notes:        row.Notes,
			ImportedFrom: "csv-import",
			ImportedAt:   &now,
		}
		if err := h.DB.Create(&contact).Error; err != nil {
			writeError(c, err, "Failed to import contacts and create group")
			return
		}
		contactIDs = append(contactIDs, contact.ID)
	}

	if err := h.linkContacts(group.ID, contactIDs); err != nil {
		writeError(c, err, "Failed to import contacts and create group")
		return
	}

	var created models.Group
	if err := h.DB.Preload("Contacts").First(&created, group.ID).Error; err != nil {
		writeError(c, err, "Failed to import contacts and create group")
		return
	}
	c.JSON(http.StatusCreated, created)
}

type groupContactsRequest struct {
	ContactIDs []uint `json:"contact_ids" binding:"required"`
}

func (h *GroupHandler) AddContacts(c *gin.Context) {
	group, ok := h.findGroup(c, false)
	if !ok {
		return
	}

	var req groupContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.linkContacts(group.ID, req.ContactIDs); err != nil {
		writeError(c, err, "Failed to add contacts to group")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contacts added to group successfully"})
}

func (h *GroupHandler) RemoveContact(c *gin.Context) {
	group, ok := h.findGroup(c, false)
	if !ok {
		return
	}

	contactID, err := strconv.ParseUint(c.Param("contactId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact id"})
		return
	}

	result := h.DB.Where("group_id = ? AND contact_id = ?", group.ID, uint(contactID)).
		Delete(&models.GroupContact{})
	if result.Error != nil {
		writeError(c, result.Error, "Failed to remove contact from group")
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not in group"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contact removed from group"})
}

// linkContacts adds memberships, skipping pairs already present.
func (h *GroupHandler) linkContacts(groupID uint, contactIDs []uint) error {
	for _, contactID := range contactIDs {
		var existing int64
		if err := h.DB.Model(&models.GroupContact{}).
			Where("group_id = ? AND contact_id = ?", groupID, contactID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			continue
		}
		link := models.GroupContact{GroupID: groupID, ContactID: contactID}
		if err := h.DB.Create(&link).Error; err != nil {
			return err
		}
	}
	return nil
}

func (h *GroupHandler) findGroup(c *gin.Context, withContacts bool) (*models.Group, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group id"})
		return nil, false
	}

	query := h.DB
	if withContacts {
		query = query.Preload("Contacts")
	}

	var group models.Group
	if err := query.First(&group, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		} else {
			writeError(c, err, "Failed to fetch group")
		}
		return nil, false
	}
	return &group, true
}
