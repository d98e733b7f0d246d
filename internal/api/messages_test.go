package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"whatsapp-console/internal/models"
	"whatsapp-console/internal/whatsapp"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func newMessageRouter(t *testing.T, db *gorm.DB, sender *fakeSender) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewMessageHandler(db, sender)
	r := gin.New()
	r.GET("/api/messages", h.List)
	r.GET("/api/messages/contact/:contactId", h.ListByContact)
	r.POST("/api/messages/send", h.Send)
	r.PUT("/api/messages/:id/status", h.UpdateStatus)
	r.DELETE("/api/messages/:id", h.Delete)
	return r
}

func TestSendMessage_Success(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{}
	r := newMessageRouter(t, db, sender)

	contact := models.Contact{Name: "Alice", PhoneNumber: "15551234567", Status: "active"}
	if err := db.Create(&contact).Error; err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, r, http.MethodPost, "/api/messages/send", gin.H{
		"contact_id": contact.ID,
		"content":    "hello",
	})
	wantStatus(t, rec, http.StatusCreated)

	if len(sender.requests) != 1 {
		t.Fatalf("provider calls = %d, want 1", len(sender.requests))
	}
	if sender.requests[0].PhoneNumber != "15551234567" {
		t.Fatalf("sent to %q", sender.requests[0].PhoneNumber)
	}

	var message models.Message
	if err := db.Where("contact_id = ?", contact.ID).First(&message).Error; err != nil {
		t.Fatalf("expected persisted message: %v", err)
	}
	if message.Direction != "outgoing" || message.Status != "sent" {
		t.Fatalf("unexpected message row: %+v", message)
	}
	if message.MessageType != "text" {
		t.Fatalf("message_type = %q, want text default", message.MessageType)
	}
	if message.MessageID != "wamid.1" {
		t.Fatalf("message_id = %q", message.MessageID)
	}
}

func TestSendMessage_MissingFields(t *testing.T) {
	r := newMessageRouter(t, newTestDB(t), &fakeSender{})

	rec := doJSON(t, r, http.MethodPost, "/api/messages/send", gin.H{"content": "hello"})
	wantStatus(t, rec, http.StatusBadRequest)
	if decodeBody(t, rec)["error"] != "Contact ID and content are required" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodPost, "/api/messages/send", gin.H{"contact_id": 1})
	wantStatus(t, rec, http.StatusBadRequest)
}

func TestSendMessage_ContactNotFound(t *testing.T) {
	r := newMessageRouter(t, newTestDB(t), &fakeSender{})

	rec := doJSON(t, r, http.MethodPost, "/api/messages/send", gin.H{
		"contact_id": 42,
		"content":    "hello",
	})
	wantStatus(t, rec, http.StatusNotFound)
}

func TestSendMessage_UpstreamFailure(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{err: &whatsapp.UpstreamError{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error":{"message":"Invalid OAuth access token"}}`,
	}}
	r := newMessageRouter(t, db, sender)

	contact := models.Contact{Name: "Alice", PhoneNumber: "15551234567", Status: "active"}
	if err := db.Create(&contact).Error; err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, r, http.MethodPost, "/api/messages/send", gin.H{
		"contact_id": contact.ID,
		"content":    "hello",
	})
	wantStatus(t, rec, http.StatusBadGateway)

	body := decodeBody(t, rec)
	if int(body["provider_status"].(float64)) != http.StatusUnauthorized {
		t.Fatalf("provider_status = %v", body["provider_status"])
	}

	// Failed sends leave no message row behind.
	var count int64
	db.Model(&models.Message{}).Count(&count)
	if count != 0 {
		t.Fatalf("message rows = %d, want 0", count)
	}
}

func TestSendMessage_NotConfigured(t *testing.T) {
	db := newTestDB(t)
	r := newMessageRouter(t, db, &fakeSender{err: whatsapp.ErrNotConfigured})

	contact := models.Contact{Name: "Alice", PhoneNumber: "15551234567", Status: "active"}
	if err := db.Create(&contact).Error; err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, r, http.MethodPost, "/api/messages/send", gin.H{
		"contact_id": contact.ID,
		"content":    "hello",
	})
	wantStatus(t, rec, http.StatusBadRequest)
}

func TestUpdateMessageStatus(t *testing.T) {
	db := newTestDB(t)
	r := newMessageRouter(t, db, &fakeSender{})

	message := models.Message{ContactID: 1, Direction: "outgoing", Content: "hi", Status: "sent"}
	if err := db.Create(&message).Error; err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, r, http.MethodPut, "/api/messages/1/status", gin.H{"status": "read"})
	wantStatus(t, rec, http.StatusOK)

	var refreshed models.Message
	db.First(&refreshed, message.ID)
	if refreshed.Status != "read" {
		t.Fatalf("status = %q, want read", refreshed.Status)
	}

	rec = doJSON(t, r, http.MethodPut, "/api/messages/1/status", gin.H{"status": "bogus"})
	wantStatus(t, rec, http.StatusBadRequest)
	if decodeBody(t, rec)["error"] != "Invalid status value" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodPut, "/api/messages/99/status", gin.H{"status": "read"})
	wantStatus(t, rec, http.StatusNotFound)
}

func TestListMessagesByContact(t *testing.T) {
	db := newTestDB(t)
	r := newMessageRouter(t, db, &fakeSender{})

	db.Create(&models.Message{ContactID: 1, Direction: "incoming", Content: "a"})
	db.Create(&models.Message{ContactID: 2, Direction: "incoming", Content: "b"})
	db.Create(&models.Message{ContactID: 1, Direction: "outgoing", Content: "c"})

	rec := doJSON(t, r, http.MethodGet, "/api/messages/contact/1", nil)
	wantStatus(t, rec, http.StatusOK)

	var messages []models.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &messages); err != nil {
		t.Fatal(err)
	}
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	for _, m := range messages {
		if m.ContactID != 1 {
			t.Fatalf("got message for contact %d", m.ContactID)
		}
	}
}

func TestDeleteMessage(t *testing.T) {
	db := newTestDB(t)
	r := newMessageRouter(t, db, &fakeSender{})

	if err := db.Create(&models.Message{ContactID: 1, Direction: "incoming", Content: "a"}).Error; err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, r, http.MethodDelete, "/api/messages/1", nil)
	wantStatus(t, rec, http.StatusOK)

	rec = doJSON(t, r, http.MethodDelete, "/api/messages/1", nil)
	wantStatus(t, rec, http.StatusNotFound)
}
