package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ContactFormInput carries one public form submission (or an inbound email
// routed through the mail worker) into the messaging data model.
type ContactFormInput struct {
	Source    string
	FullName  string
	Email     string
	Phone     string
	Subject   string
	BodyText  string
	ListingID *uint
}

var ErrIngestEmailRequired = errors.New("a contact email is required")

// IngestContactFormMessage is the single write path from anonymous
// visitors into the messaging tables. It creates or reuses the Contact and
// Conversation, inserts the inbound Message, bumps last_message_at and
// fans out one notification per active admin, all in one transaction.
func IngestContactFormMessage(db *gorm.DB, in ContactFormInput) (*Message, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return nil, ErrIngestEmailRequired
	}
	if in.Source == "" {
		in.Source = SourceContactPage
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		subject = "General enquiry"
	}

	var message Message
	err := db.Transaction(func(tx *gorm.DB) error {
		var contact Contact
		err := tx.Where("email = ?", email).First(&contact).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			contact = Contact{
				FullName: strings.TrimSpace(in.FullName),
				Email:    email,
				Phone:    strings.TrimSpace(in.Phone),
			}
			if err := tx.Create(&contact).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		} else {
			// Backfill details we did not have before
			updates := map[string]interface{}{}
			if contact.FullName == "" && in.FullName != "" {
				updates["full_name"] = strings.TrimSpace(in.FullName)
			}
			if contact.Phone == "" && in.Phone != "" {
				updates["phone"] = strings.TrimSpace(in.Phone)
			}
			if len(updates) > 0 {
				if err := tx.Model(&contact).Updates(updates).Error; err != nil {
					return err
				}
			}
		}

		conversation, err := reuseOrCreateConversation(tx, contact.ID, subject, in.ListingID)
		if err != nil {
			return err
		}

		now := time.Now()
		message = Message{
			ConversationID: conversation.ID,
			Direction:      DirectionInbound,
			Source:         in.Source,
			Status:         MessageStatusSent,
			FromEmail:      email,
			Subject:        subject,
			BodyText:       in.BodyText,
			IsRead:         false,
		}
		if err := tx.Create(&message).Error; err != nil {
			return err
		}

		if err := tx.Model(conversation).Update("last_message_at", now).Error; err != nil {
			return err
		}

		return notifyAdmins(tx, conversation, &message, contact)
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// reuseOrCreateConversation matches the newest non-archived conversation
// this contact has about the same listing (nullable matches nullable).
func reuseOrCreateConversation(tx *gorm.DB, contactID uint, subject string, listingID *uint) (*Conversation, error) {
	var conversation Conversation
	q := tx.Where("contact_id = ? AND is_archived = ?", contactID, false)
	if listingID != nil {
		q = q.Where("listing_id = ?", *listingID)
	} else {
		q = q.Where("listing_id IS NULL")
	}
	err := q.Order("created_at DESC").First(&conversation).Error
	if err == nil {
		return &conversation, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conversation = Conversation{
		ContactID: contactID,
		Subject:   subject,
		ListingID: listingID,
	}
	if err := tx.Create(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

func notifyAdmins(tx *gorm.DB, conversation *Conversation, message *Message, contact Contact) error {
	var admins []AdminUser
	if err := tx.Where("is_active = ?", true).Find(&admins).Error; err != nil {
		return err
	}

	name := contact.FullName
	if name == "" {
		name = contact.Email
	}

	for _, admin := range admins {
		notification := Notification{
			AdminUserID:    admin.ID,
			Type:           NotificationTypeNewMessage,
			ConversationID: &conversation.ID,
			MessageID:      &message.ID,
			Title:          "New message from " + name,
			Body:           message.BodyText,
		}
		if err := tx.Create(&notification).Error; err != nil {
			return err
		}
	}
	return nil
}
