package models

import (
	"time"
)

// Contact represents an outreach recipient
type Contact struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"type:varchar(255);not null" json:"name"`
	PhoneNumber   string     `gorm:"type:varchar(50);not null;uniqueIndex" json:"phone_number"`
	Company       string     `gorm:"type:varchar(255)" json:"company,omitempty"`
	Position      string     `gorm:"type:varchar(255)" json:"position,omitempty"`
	ImportedFrom  string     `gorm:"type:varchar(50)" json:"imported_from,omitempty"`
	ImportedAt    *time.Time `json:"imported_at,omitempty"`
	LastContacted *time.Time `json:"last_contacted,omitempty"`
	Status        string     `gorm:"type:varchar(20);default:'active'" json:"status"` // active, inactive, blocked, responded
	Notes         string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Message represents one inbound or outbound message for a contact
type Message struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ContactID         uint      `gorm:"index;not null" json:"contact_id"`
	Direction         string    `gorm:"type:varchar(10);not null" json:"direction"` // incoming, outgoing
	Content           string    `gorm:"type:text;not null" json:"content"`
	MessageType       string    `gorm:"type:varchar(20);default:'text'" json:"message_type"`
	Timestamp         time.Time `json:"timestamp"`
	Status            string    `gorm:"type:varchar(20);default:'pending'" json:"status"` // pending, sent, delivered, read, failed
	MessageID         string    `gorm:"type:varchar(255)" json:"message_id,omitempty"`    // provider-assigned id
	IsCampaignMessage bool      `gorm:"default:false" json:"is_campaign_message"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

// Template represents a reusable message text with {{placeholder}} fields
type Template struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"type:varchar(255);not null" json:"name"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Template) TableName() string {
	return "templates"
}

// Group represents a named set of contacts
type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Contacts    []Contact `gorm:"many2many:group_contacts;joinForeignKey:GroupID;joinReferences:ContactID" json:"contacts,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Group) TableName() string {
	return "groups"
}

// GroupContact links contacts to groups
type GroupContact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"index;not null" json:"group_id"`
	ContactID uint      `gorm:"index;not null" json:"contact_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (GroupContact) TableName() string {
	return "group_contacts"
}

// Campaign represents a bulk-send run with denormalized progress counters.
// The counters are maintained by full recounts of campaign_contacts rows.
type Campaign struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Name            string     `gorm:"type:varchar(255);not null" json:"name"`
	Description     string     `gorm:"type:text" json:"description,omitempty"`
	TemplateMessage string     `gorm:"type:text;not null" json:"template_message"`
	Status          string     `gorm:"type:varchar(20);default:'draft'" json:"status"` // draft, scheduled, in_progress, completed, cancelled
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ContactCount    int        `gorm:"default:0" json:"contact_count"`
	DeliveredCount  int        `gorm:"default:0" json:"delivered_count"`
	ReadCount       int        `gorm:"default:0" json:"read_count"`
	RepliedCount    int        `gorm:"default:0" json:"replied_count"`
	TemplateID      *uint      `json:"template_id,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// CampaignContact tracks per-recipient delivery state within a campaign
type CampaignContact struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CampaignID   uint       `gorm:"index;not null" json:"campaign_id"`
	ContactID    uint       `gorm:"index;not null" json:"contact_id"`
	Status       string     `gorm:"type:varchar(20);default:'pending'" json:"status"` // pending, sent, delivered, read, replied, failed
	SentAt       *time.Time `json:"sent_at,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	RepliedAt    *time.Time `json:"replied_at,omitempty"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CampaignContact) TableName() string {
	return "campaign_contacts"
}

// CampaignGroup links groups to campaigns
type CampaignGroup struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CampaignID uint      `gorm:"index;not null" json:"campaign_id"`
	GroupID    uint      `gorm:"index;not null" json:"group_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CampaignGroup) TableName() string {
	return "campaign_groups"
}
