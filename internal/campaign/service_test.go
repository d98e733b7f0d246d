package campaign

import (
	"errors"
	"fmt"
	"testing"

	"whatsapp-console/internal/database"
	"whatsapp-console/internal/models"
	"whatsapp-console/internal/whatsapp"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeSender records send requests and fails for numbers listed in
// failFor.
type fakeSender struct {
	requests []whatsapp.SendRequest
	failFor  map[string]bool
	nextID   int
}

func (f *fakeSender) Send(req whatsapp.SendRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.failFor[req.PhoneNumber] {
		return "", &whatsapp.UpstreamError{StatusCode: 400, Body: "invalid recipient"}
	}
	f.nextID++
	return fmt.Sprintf("wamid.%d", f.nextID), nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// A pooled second connection would see its own empty :memory: database.
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func seedContacts(t *testing.T, db *gorm.DB, numbers ...string) []models.Contact {
	t.Helper()
	contacts := make([]models.Contact, 0, len(numbers))
	for i, number := range numbers {
		contact := models.Contact{
			Name:        fmt.Sprintf("Contact %d", i+1),
			PhoneNumber: number,
			Status:      "active",
		}
		if err := db.Create(&contact).Error; err != nil {
			t.Fatalf("failed to seed contact: %v", err)
		}
		contacts = append(contacts, contact)
	}
	return contacts
}

func TestCreateCampaign_CountsContacts(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &fakeSender{})
	contacts := seedContacts(t, db, "15551230001", "15551230002")

	created, err := svc.Create(CampaignInput{
		Name:            "Launch",
		TemplateMessage: "Hello {{name}}",
		ContactIDs:      []uint{contacts[0].ID, contacts[1].ID},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ContactCount != 2 {
		t.Fatalf("expected contact_count 2, got %d", created.ContactCount)
	}
	if created.Status != "draft" {
		t.Fatalf("expected status draft, got %q", created.Status)
	}
}

func TestUpdateMessageStatus_RecomputesCounters(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &fakeSender{})
	contacts := seedContacts(t, db, "15551230001", "15551230002")

	created, err := svc.Create(CampaignInput{
		Name:            "Launch",
		TemplateMessage: "Hi",
		ContactIDs:      []uint{contacts[0].ID, contacts[1].ID},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := svc.UpdateMessageStatus(created.ID, contacts[0].ID, "delivered"); err != nil {
		t.Fatalf("UpdateMessageStatus failed: %v", err)
	}

	refreshed, err := svc.Get(created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if refreshed.DeliveredCount != 1 {
		t.Fatalf("expected delivered_count 1, got %d", refreshed.DeliveredCount)
	}

	link, err := svc.UpdateMessageStatus(created.ID, contacts[0].ID, "delivered")
	if err != nil {
		t.Fatalf("repeat UpdateMessageStatus failed: %v", err)
	}
	if link.DeliveredAt == nil {
		t.Fatal("expected delivered_at to be stamped")
	}

	// Recount, not increment: calling twice must not double the counter.
	refreshed, _ = svc.Get(created.ID)
	if refreshed.DeliveredCount != 1 {
		t.Fatalf("expected delivered_count to stay 1 after repeat call, got %d", refreshed.DeliveredCount)
	}
}

func TestUpdateMessageStatus_NotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &fakeSender{})
	contacts := seedContacts(t, db, "15551230001")

	created, err := svc.Create(CampaignInput{Name: "X", TemplateMessage: "Hi"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = svc.UpdateMessageStatus(created.ID, contacts[0].ID, "delivered")
	if !errors.Is(err, ErrCampaignContactNotFound) {
		t.Fatalf("expected ErrCampaignContactNotFound, got %v", err)
	}

	_, err = svc.UpdateMessageStatus(9999, contacts[0].ID, "delivered")
	if !errors.Is(err, ErrCampaignContactNotFound) {
		t.Fatalf("expected ErrCampaignContactNotFound for missing campaign, got %v", err)
	}
}

func TestRecomputeCounts_MatchesRowCounts(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &fakeSender{})

	created, err := svc.Create(CampaignInput{Name: "X", TemplateMessage: "Hi"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Arbitrary status distribution inserted directly.
	distribution := map[string]int{
		"pending":   3,
		"sent":      2,
		"delivered": 4,
		"read":      2,
		"replied":   1,
		"failed":    2,
	}
	contactID := uint(100)
	for status, n := range distribution {
		for i := 0; i < n; i++ {
			contactID++
			link := models.CampaignContact{
				CampaignID: created.ID,
				ContactID:  contactID,
				Status:     status,
			}
			if err := db.Create(&link).Error; err != nil {
				t.Fatalf("failed to insert campaign contact: %v", err)
			}
		}
	}

	counts, err := svc.RecomputeCounts(created.ID)
	if err != nil {
		t.Fatalf("RecomputeCounts failed: %v", err)
	}
	if counts.DeliveredCount != distribution["delivered"] {
		t.Errorf("delivered_count = %d, want %d", counts.DeliveredCount, distribution["delivered"])
	}
	if counts.ReadCount != distribution["read"] {
		t.Errorf("read_count = %d, want %d", counts.ReadCount, distribution["read"])
	}
	if counts.RepliedCount != distribution["replied"] {
		t.Errorf("replied_count = %d, want %d", counts.RepliedCount, distribution["replied"])
	}

	refreshed, _ := svc.Get(created.ID)
	if refreshed.DeliveredCount != counts.DeliveredCount ||
		refreshed.ReadCount != counts.ReadCount ||
		refreshed.RepliedCount != counts.RepliedCount {
		t.Fatalf("stored counters %d/%d/%d do not match recomputed %d/%d/%d",
			refreshed.DeliveredCount, refreshed.ReadCount, refreshed.RepliedCount,
			counts.DeliveredCount, counts.ReadCount, counts.RepliedCount)
	}
}

func TestAddGroups_ExpandsMembershipAndKeepsDuplicates(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &fakeSender{})
	contacts := seedContacts(t, db, "15551230001", "15551230002", "15551230003")

	groupA := models.Group{Name: "A"}
	groupB := models.Group{Name: "B"}
	if err := db.Create(&groupA).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&groupB).Error; err != nil {
		t.Fatal(err)
	}
	// Contact 1 belongs to both groups.
	for _, link := range []models.GroupContact{
		{GroupID: groupA.ID, ContactID: contacts[0].ID},
		{GroupID: groupA.ID, ContactID: contacts[1].ID},
		{GroupID: groupB.ID, ContactID: contacts[0].ID},
		{GroupID: groupB.ID, ContactID: contacts[2].ID},
	} {
		if err := db.Create(&link).Error; err != nil {
			t.Fatal(err)
		}
	}

	created, err := svc.Create(CampaignInput{
		Name:            "X",
		TemplateMessage: "Hi",
		GroupIDs:        []uint{groupA.ID, groupB.ID},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Group A adds contacts 1 and 2; group B re-adds contact 1 (skipped,
	// already linked) and adds contact 3.
	if created.ContactCount != 3 {
		t.Fatalf("expected contact_count 3, got %d", created.ContactCount)
	}

	var groupLinks int64
	db.Model(&models.CampaignGroup{}).Where("campaign_id = ?", created.ID).Count(&groupLinks)
	if groupLinks != 2 {
		t.Fatalf("expected 2 campaign_groups rows, got %d", groupLinks)
	}
}

func TestUpdateStatus_StampsTimestamps(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &fakeSender{})

	created, err := svc.Create(CampaignInput{Name: "X", TemplateMessage: "Hi"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := svc.UpdateStatus(created.ID, "in_progress")
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.StartedAt == nil {
		t.Fatal("expected started_at to be stamped on in_progress")
	}

	updated, err = svc.UpdateStatus(created.ID, "completed")
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.CompletedAt == nil {
		t.Fatal("expected completed_at to be stamped on completed")
	}

	if _, err := svc.UpdateStatus(created.ID, "bogus"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdate_ReplacesAssociations(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &fakeSender{})
	contacts := seedContacts(t, db, "15551230001", "15551230002", "15551230003")

	created, err := svc.Create(CampaignInput{
		Name:            "X",
		TemplateMessage: "Hi",
		ContactIDs:      []uint{contacts[0].ID, contacts[1].ID},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := svc.Update(created.ID, CampaignInput{
		ContactIDs: []uint{contacts[2].ID},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.ContactCount != 1 {
		t.Fatalf("expected contact_count 1 after replacement, got %d", updated.ContactCount)
	}

	recipients, err := svc.Recipients(created.ID)
	if err != nil {
		t.Fatalf("Recipients failed: %v", err)
	}
	if len(recipients) != 1 || recipients[0].ContactID != contacts[2].ID {
		t.Fatalf("expected only contact %d linked, got %+v", contacts[2].ID, recipients)
	}
}

func TestDelete_RemovesJoinRows(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &fakeSender{})
	contacts := seedContacts(t, db, "15551230001")

	created, err := svc.Create(CampaignInput{
		Name:            "X",
		TemplateMessage: "Hi",
		ContactIDs:      []uint{contacts[0].ID},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Delete(created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := svc.Get(created.ID); !errors.Is(err, ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
	var links int64
	db.Model(&models.CampaignContact{}).Where("campaign_id = ?", created.ID).Count(&links)
	if links != 0 {
		t.Fatalf("expected no campaign_contacts rows, got %d", links)
	}
}

func TestRenderMessage(t *testing.T) {
	contact := models.Contact{
		Name:        "Alice",
		Company:     "Acme",
		Position:    "CTO",
		PhoneNumber: "15551234567",
	}
	got := RenderMessage("Hi {{name}} from {{company}} ({{position}}), confirming {{phone_number}}", &contact)
	want := "Hi Alice from Acme (CTO), confirming 15551234567"
	if got != want {
		t.Fatalf("RenderMessage = %q, want %q", got, want)
	}
}
