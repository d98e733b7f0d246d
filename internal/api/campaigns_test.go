package api

import (
	"net/http"
	"testing"

	"whatsapp-console/internal/campaign"
	"whatsapp-console/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func newCampaignRouter(t *testing.T, db *gorm.DB, sender *fakeSender) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewCampaignHandler(campaign.NewService(db, sender))
	r := gin.New()
	r.GET("/api/campaigns", h.List)
	r.GET("/api/campaigns/:id", h.Get)
	r.POST("/api/campaigns", h.Create)
	r.POST("/api/campaigns/:id/contacts", h.AddContacts)
	r.POST("/api/campaigns/:id/groups", h.AddGroups)
	r.POST("/api/campaigns/:id/send", h.Send)
	r.PUT("/api/campaigns/:id", h.Update)
	r.PATCH("/api/campaigns/:id/status", h.UpdateStatus)
	r.PATCH("/api/campaigns/:id/messages/:contactId/status", h.UpdateMessageStatus)
	r.DELETE("/api/campaigns/:id", h.Delete)
	return r
}

func TestCampaignCreate_Validation(t *testing.T) {
	r := newCampaignRouter(t, newTestDB(t), &fakeSender{})

	rec := doJSON(t, r, http.MethodPost, "/api/campaigns", gin.H{"name": "launch"})
	wantStatus(t, rec, http.StatusBadRequest)
	if decodeBody(t, rec)["error"] != "Name and template_message are required" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestCampaignLifecycle(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{}
	r := newCampaignRouter(t, db, sender)

	contact := models.Contact{Name: "Alice", PhoneNumber: "15551234567", Status: "active"}
	if err := db.Create(&contact).Error; err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, r, http.MethodPost, "/api/campaigns", gin.H{
		"name":             "launch",
		"template_message": "Hi {{name}}",
		"contact_ids":      []uint{contact.ID},
	})
	wantStatus(t, rec, http.StatusCreated)
	created := decodeBody(t, rec)
	if int(created["contact_count"].(float64)) != 1 {
		t.Fatalf("contact_count = %v, want 1", created["contact_count"])
	}

	rec = doJSON(t, r, http.MethodGet, "/api/campaigns/1", nil)
	wantStatus(t, rec, http.StatusOK)
	body := decodeBody(t, rec)
	if body["campaign"] == nil {
		t.Fatal("missing campaign in response")
	}
	if len(body["recipients"].([]interface{})) != 1 {
		t.Fatalf("recipients = %v", body["recipients"])
	}

	rec = doJSON(t, r, http.MethodPost, "/api/campaigns/1/send", nil)
	wantStatus(t, rec, http.StatusOK)
	result := decodeBody(t, rec)
	if int(result["sent"].(float64)) != 1 || int(result["failed"].(float64)) != 0 {
		t.Fatalf("unexpected send result: %v", result)
	}
	if len(sender.requests) != 1 {
		t.Fatalf("provider calls = %d, want 1", len(sender.requests))
	}

	rec = doJSON(t, r, http.MethodPatch, "/api/campaigns/1/messages/1/status", gin.H{"status": "delivered"})
	wantStatus(t, rec, http.StatusOK)

	var record models.Campaign
	db.First(&record, 1)
	if record.DeliveredCount != 1 {
		t.Fatalf("delivered_count = %d, want 1", record.DeliveredCount)
	}

	rec = doJSON(t, r, http.MethodDelete, "/api/campaigns/1", nil)
	wantStatus(t, rec, http.StatusNoContent)
}

func TestCampaignGet_NotFound(t *testing.T) {
	r := newCampaignRouter(t, newTestDB(t), &fakeSender{})

	rec := doJSON(t, r, http.MethodGet, "/api/campaigns/99", nil)
	wantStatus(t, rec, http.StatusNotFound)
}

func TestCampaignUpdateStatus_Invalid(t *testing.T) {
	db := newTestDB(t)
	r := newCampaignRouter(t, db, &fakeSender{})

	if err := db.Create(&models.Campaign{Name: "launch", TemplateMessage: "Hi", Status: "draft"}).Error; err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, r, http.MethodPatch, "/api/campaigns/1/status", gin.H{"status": "bogus"})
	wantStatus(t, rec, http.StatusBadRequest)
}

func TestCampaignSend_Finished(t *testing.T) {
	db := newTestDB(t)
	r := newCampaignRouter(t, db, &fakeSender{})

	if err := db.Create(&models.Campaign{Name: "done", TemplateMessage: "Hi", Status: "completed"}).Error; err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, r, http.MethodPost, "/api/campaigns/1/send", nil)
	wantStatus(t, rec, http.StatusBadRequest)
}
