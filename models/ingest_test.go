package models

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ingestTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&Listing{}, &Contact{}, &Conversation{}, &Message{},
		&MessageAttachment{}, &MessageDraft{}, &Notification{}, &AdminUser{},
	))
	return db
}

func seedAdmin(t *testing.T, db *gorm.DB, email string, active bool) AdminUser {
	t.Helper()
	admin := AdminUser{Email: email, PasswordHash: "x", Role: RoleAdmin, IsActive: active}
	require.NoError(t, db.Create(&admin).Error)
	return admin
}

func TestIngestRequiresEmail(t *testing.T) {
	db := ingestTestDB(t)
	_, err := IngestContactFormMessage(db, ContactFormInput{FullName: "No Email"})
	assert.ErrorIs(t, err, ErrIngestEmailRequired)
}

func TestIngestCreatesContactConversationAndMessage(t *testing.T) {
	db := ingestTestDB(t)
	admin := seedAdmin(t, db, "admin@riseagain.test", true)
	seedAdmin(t, db, "retired@riseagain.test", false)

	msg, err := IngestContactFormMessage(db, ContactFormInput{
		Source:   SourceContactPage,
		FullName: "Jane Wanjiku",
		Email:    "Jane@Example.com",
		Phone:    "+254700000001",
		Subject:  "Viewing request",
		BodyText: "I would like to view the Karen property.",
	})
	require.NoError(t, err)

	var contact Contact
	require.NoError(t, db.Where("email = ?", "jane@example.com").First(&contact).Error)
	assert.Equal(t, "Jane Wanjiku", contact.FullName)

	var conv Conversation
	require.NoError(t, db.First(&conv, msg.ConversationID).Error)
	assert.Equal(t, contact.ID, conv.ContactID)
	assert.Equal(t, "Viewing request", conv.Subject)
	assert.Nil(t, conv.ListingID)
	require.NotNil(t, conv.LastMessageAt)

	assert.Equal(t, DirectionInbound, msg.Direction)
	assert.Equal(t, MessageStatusSent, msg.Status)
	assert.False(t, msg.IsRead)

	// One notification for the active admin, none for the inactive one.
	var notifications []Notification
	require.NoError(t, db.Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, admin.ID, notifications[0].AdminUserID)
	assert.Equal(t, NotificationTypeNewMessage, notifications[0].Type)
	assert.Contains(t, notifications[0].Title, "Jane Wanjiku")
}

func TestIngestReusesContactAndBackfills(t *testing.T) {
	db := ingestTestDB(t)

	_, err := IngestContactFormMessage(db, ContactFormInput{
		Email:    "buyer@example.com",
		BodyText: "First message",
	})
	require.NoError(t, err)

	_, err = IngestContactFormMessage(db, ContactFormInput{
		FullName: "Peter Otieno",
		Email:    "BUYER@example.com",
		Phone:    "+254711111111",
		BodyText: "Second message",
	})
	require.NoError(t, err)

	var contacts []Contact
	require.NoError(t, db.Find(&contacts).Error)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Peter Otieno", contacts[0].FullName)
	assert.Equal(t, "+254711111111", contacts[0].Phone)
}

func TestIngestConversationReuseMatchesListing(t *testing.T) {
	db := ingestTestDB(t)
	listing := Listing{Slug: "karen-villa", Title: "Karen Villa", Status: ListingStatusAvailable}
	require.NoError(t, db.Create(&listing).Error)

	// Same contact, no listing → one conversation reused.
	_, err := IngestContactFormMessage(db, ContactFormInput{Email: "x@example.com", BodyText: "a"})
	require.NoError(t, err)
	_, err = IngestContactFormMessage(db, ContactFormInput{Email: "x@example.com", BodyText: "b"})
	require.NoError(t, err)

	// Same contact about a listing → separate conversation.
	_, err = IngestContactFormMessage(db, ContactFormInput{
		Source:    SourceContactAgent,
		Email:     "x@example.com",
		BodyText:  "c",
		ListingID: &listing.ID,
	})
	require.NoError(t, err)

	var conversations []Conversation
	require.NoError(t, db.Find(&conversations).Error)
	require.Len(t, conversations, 2)

	var general, aboutListing *Conversation
	for i := range conversations {
		if conversations[i].ListingID == nil {
			general = &conversations[i]
		} else {
			aboutListing = &conversations[i]
		}
	}
	require.NotNil(t, general)
	require.NotNil(t, aboutListing)
	assert.Equal(t, listing.ID, *aboutListing.ListingID)

	var count int64
	require.NoError(t, db.Model(&Message{}).Where("conversation_id = ?", general.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestIngestArchivedConversationNotReused(t *testing.T) {
	db := ingestTestDB(t)

	msg, err := IngestContactFormMessage(db, ContactFormInput{Email: "y@example.com", BodyText: "a"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&Conversation{}).
		Where("id = ?", msg.ConversationID).
		Update("is_archived", true).Error)

	msg2, err := IngestContactFormMessage(db, ContactFormInput{Email: "y@example.com", BodyText: "b"})
	require.NoError(t, err)
	assert.NotEqual(t, msg.ConversationID, msg2.ConversationID)
}

func TestIngestDefaultsSubjectAndSource(t *testing.T) {
	db := ingestTestDB(t)
	msg, err := IngestContactFormMessage(db, ContactFormInput{Email: "z@example.com", BodyText: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "General enquiry", msg.Subject)
	assert.Equal(t, SourceContactPage, msg.Source)
}
