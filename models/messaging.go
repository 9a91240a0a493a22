package models

import (
	"time"

	"gorm.io/gorm"
)

// Message directions
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message sources
const (
	SourceContactPage  = "contact_page"
	SourceContactAgent = "contact_agent"
	SourceEmailWebhook = "email_webhook"
	SourceAdminConsole = "admin_console"
	SourceSystem       = "system"
)

// Message statuses. Outbound messages start queued; the delivery worker
// advances them to sent/failed.
const (
	MessageStatusDraft     = "draft"
	MessageStatusQueued    = "queued"
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusFailed    = "failed"
)

// Contact represents one person who has written in via the public site
type Contact struct {
	gorm.Model
	FullName string `json:"full_name"`
	Email    string `gorm:"index" json:"email"`
	Phone    string `json:"phone"`

	// Relations
	Conversations []Conversation `gorm:"foreignKey:ContactID" json:"conversations,omitempty"`
}

// Conversation groups messages from one contact, optionally about a listing
type Conversation struct {
	gorm.Model
	ContactID     uint       `gorm:"not null;index" json:"contact_id"`
	Subject       string     `json:"subject"`
	ListingID     *uint      `gorm:"index" json:"listing_id"`
	LastMessageAt *time.Time `gorm:"index" json:"last_message_at"`
	IsArchived    bool       `gorm:"default:false" json:"is_archived"`

	// Relations
	Contact  Contact   `json:"contact"`
	Messages []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

// Message is one inbound or outbound communication in a conversation
type Message struct {
	gorm.Model
	ConversationID uint   `gorm:"not null;index" json:"conversation_id"`
	Direction      string `gorm:"not null" json:"direction"`
	Source         string `gorm:"not null" json:"source"`
	Status         string `gorm:"default:sent" json:"status"`
	AdminUserID    *uint  `json:"admin_user_id"`
	FromEmail      string `json:"from_email"`
	ToEmail        string `json:"to_email"`
	Subject        string `json:"subject"`
	BodyText       string `gorm:"type:text" json:"body_text"`
	IsRead         bool   `gorm:"default:false" json:"is_read"`
	FailedReason   string `json:"failed_reason"`

	// Relations
	Conversation Conversation        `json:"-"`
	Attachments  []MessageAttachment `gorm:"foreignKey:MessageID" json:"attachments"`
}

// MessageAttachment stores the storage pointer for one attached file
type MessageAttachment struct {
	gorm.Model
	MessageID   uint   `gorm:"not null;index" json:"message_id"`
	Bucket      string `gorm:"not null" json:"bucket"`
	ObjectPath  string `gorm:"not null" json:"object_path"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	ByteSize    int64  `json:"byte_size"`

	// Relations
	Message Message `json:"-"`
}

// MessageDraft is an admin's unsent reply; at most one per
// (conversation, admin) pair.
type MessageDraft struct {
	gorm.Model
	ConversationID uint   `gorm:"not null;uniqueIndex:idx_draft_conversation_admin" json:"conversation_id"`
	AdminUserID    uint   `gorm:"not null;uniqueIndex:idx_draft_conversation_admin" json:"admin_user_id"`
	Subject        string `json:"subject"`
	BodyText       string `gorm:"type:text" json:"body_text"`

	// Relations
	Conversation Conversation `json:"-"`
}

// Notification informs one admin of an event tied to a conversation
type Notification struct {
	gorm.Model
	AdminUserID    uint   `gorm:"not null;index" json:"admin_user_id"`
	Type           string `json:"type"`
	ConversationID *uint  `gorm:"index" json:"conversation_id"`
	MessageID      *uint  `json:"message_id"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	IsRead         bool   `gorm:"default:false" json:"is_read"`
}

const NotificationTypeNewMessage = "new_message"
