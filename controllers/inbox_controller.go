package controller

import (
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"riseagain/config"
	"riseagain/models"
	"riseagain/storage"
	"riseagain/utils"
)

const attachmentURLTTL = 5 * time.Minute

type InboxController struct {
	db     *gorm.DB
	store  storage.ObjectStore
	logger *logrus.Logger
}

func NewInboxController(db *gorm.DB, store storage.ObjectStore, logger *logrus.Logger) *InboxController {
	return &InboxController{
		db:     db,
		store:  store,
		logger: logger,
	}
}

// ConversationSummary is one row of the inbox list.
type ConversationSummary struct {
	ID               uint       `json:"id"`
	ContactName      string     `json:"contact_name"`
	ContactEmail     string     `json:"contact_email"`
	Subject          string     `json:"subject"`
	ListingID        *uint      `json:"listing_id"`
	LastMessageAt    *time.Time `json:"last_message_at"`
	Preview          string     `json:"preview"`
	PreviewDirection string     `json:"preview_direction"`
	UnreadCount      int64      `json:"unread_count"`
	HasDraft         bool       `json:"has_draft"`
}

// BuildConversationSummaries assembles the inbox list for one admin:
// non-archived conversations with the latest message preview, unread
// inbound count and that admin's draft flag, newest activity first with
// never-messaged conversations last.
func BuildConversationSummaries(db *gorm.DB, adminID uint) ([]ConversationSummary, error) {
	var conversations []models.Conversation
	if err := db.Preload("Contact").
		Where("is_archived = ?", false).
		Find(&conversations).Error; err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for i := range conversations {
		conv := &conversations[i]
		s := ConversationSummary{
			ID:            conv.ID,
			ContactName:   conv.Contact.FullName,
			ContactEmail:  conv.Contact.Email,
			Subject:       conv.Subject,
			ListingID:     conv.ListingID,
			LastMessageAt: conv.LastMessageAt,
		}

		var latest models.Message
		err := db.Where("conversation_id = ?", conv.ID).
			Order("created_at DESC, id DESC").
			First(&latest).Error
		if err == nil {
			s.Preview = previewText(latest.BodyText)
			s.PreviewDirection = latest.Direction
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		if err := db.Model(&models.Message{}).
			Where("conversation_id = ? AND direction = ? AND is_read = ?",
				conv.ID, models.DirectionInbound, false).
			Count(&s.UnreadCount).Error; err != nil {
			return nil, err
		}

		var drafts int64
		if err := db.Model(&models.MessageDraft{}).
			Where("conversation_id = ? AND admin_user_id = ?", conv.ID, adminID).
			Count(&drafts).Error; err != nil {
			return nil, err
		}
		s.HasDraft = drafts > 0

		summaries = append(summaries, s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].LastMessageAt, summaries[j].LastMessageAt
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})

	return summaries, nil
}

func previewText(body string) string {
	const max = 120
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	return string([]rune(body)[:max]) + "…"
}

// GetConversations lists the inbox for the signed-in admin.
func (ic *InboxController) GetConversations(c *fiber.Ctx) error {
	adminID := c.Locals("adminID").(uint)

	summaries, err := BuildConversationSummaries(ic.db, adminID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch conversations", err)
	}
	return c.JSON(utils.SuccessResponse(summaries))
}

// GetMessages returns one conversation's history, oldest first. Viewing
// marks unread inbound messages and the admin's matching notifications
// as read.
func (ic *InboxController) GetMessages(c *fiber.Ctx) error {
	adminID := c.Locals("adminID").(uint)
	convID := utils.ParseUint(c.Params("id"))
	if convID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	var conv models.Conversation
	if err := ic.db.Preload("Contact").First(&conv, convID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch conversation", err)
	}

	var messages []models.Message
	if err := ic.db.Preload("Attachments").
		Where("conversation_id = ?", convID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch messages", err)
	}

	if err := ic.db.Model(&models.Message{}).
		Where("conversation_id = ? AND direction = ? AND is_read = ?",
			convID, models.DirectionInbound, false).
		Update("is_read", true).Error; err != nil {
		ic.logger.WithError(err).Warn("marking messages read failed")
	}
	if err := ic.db.Model(&models.Notification{}).
		Where("admin_user_id = ? AND conversation_id = ? AND is_read = ?",
			adminID, convID, false).
		Update("is_read", true).Error; err != nil {
		ic.logger.WithError(err).Warn("marking notifications read failed")
	}

	var draft models.MessageDraft
	hasDraft := ic.db.Where("conversation_id = ? AND admin_user_id = ?", convID, adminID).
		First(&draft).Error == nil

	resp := fiber.Map{
		"conversation": conv,
		"messages":     messages,
	}
	if hasDraft {
		resp["draft"] = draft
	}
	return c.JSON(utils.SuccessResponse(resp))
}

type DraftRequest struct {
	Subject  string `json:"subject"`
	BodyText string `json:"body_text"`
}

// SaveDraft upserts the admin's draft for a conversation. An empty draft
// deletes it.
func (ic *InboxController) SaveDraft(c *fiber.Ctx) error {
	adminID := c.Locals("adminID").(uint)
	convID := utils.ParseUint(c.Params("id"))
	if convID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	var req DraftRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Subject == "" && req.BodyText == "" {
		if err := ic.db.Where("conversation_id = ? AND admin_user_id = ?", convID, adminID).
			Delete(&models.MessageDraft{}).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to clear draft", err)
		}
		return c.JSON(fiber.Map{"success": true, "deleted": true})
	}

	var draft models.MessageDraft
	err := ic.db.Where("conversation_id = ? AND admin_user_id = ?", convID, adminID).
		First(&draft).Error
	switch {
	case err == nil:
		draft.Subject = req.Subject
		draft.BodyText = req.BodyText
		err = ic.db.Save(&draft).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		draft = models.MessageDraft{
			ConversationID: convID,
			AdminUserID:    adminID,
			Subject:        req.Subject,
			BodyText:       req.BodyText,
		}
		err = ic.db.Create(&draft).Error
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save draft", err)
	}

	return c.JSON(utils.SuccessResponse(draft))
}

// SendReply queues an outbound reply. Attachments are uploaded one by
// one; a failed upload is skipped, not fatal. The admin's draft for the
// conversation is removed on success.
func (ic *InboxController) SendReply(c *fiber.Ctx) error {
	adminID := c.Locals("adminID").(uint)
	convID := utils.ParseUint(c.Params("id"))
	if convID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	var conv models.Conversation
	if err := ic.db.Preload("Contact").First(&conv, convID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch conversation", err)
	}

	if err := checkmail.ValidateFormat(conv.Contact.Email); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Contact has no valid email address",
		})
	}

	bodyText := c.FormValue("body_text")
	if bodyText == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "body_text is required"})
	}
	subject := c.FormValue("subject")
	if subject == "" {
		subject = conv.Subject
	}

	msg := models.Message{
		ConversationID: convID,
		Direction:      models.DirectionOutbound,
		Source:         models.SourceAdminConsole,
		Status:         models.MessageStatusQueued,
		AdminUserID:    &adminID,
		FromEmail:      config.AppConfig.SMTP.FromEmail,
		ToEmail:        conv.Contact.Email,
		Subject:        subject,
		BodyText:       bodyText,
		IsRead:         true,
	}
	if err := ic.db.Create(&msg).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create message", err)
	}

	bucket := config.AppConfig.Storage.AttachmentsBucket
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["attachments"] {
			data, err := readMultipartFile(fh)
			if err != nil {
				ic.logger.WithError(err).WithField("file", fh.Filename).Warn("attachment read failed, skipping")
				continue
			}
			name := utils.NormalizeFileName(fh.Filename)
			objectPath := fmt.Sprintf("conversation/%d/%s-%s", convID, uuid.New().String(), name)

			if err := ic.store.Upload(bucket, objectPath, data, fh.Header.Get("Content-Type"), false); err != nil {
				ic.logger.WithError(err).WithField("file", name).Warn("attachment upload failed, skipping")
				continue
			}
			att := models.MessageAttachment{
				MessageID:   msg.ID,
				Bucket:      bucket,
				ObjectPath:  objectPath,
				FileName:    name,
				ContentType: fh.Header.Get("Content-Type"),
				ByteSize:    int64(len(data)),
			}
			if err := ic.db.Create(&att).Error; err != nil {
				ic.logger.WithError(err).WithField("file", name).Warn("attachment row insert failed")
				continue
			}
			msg.Attachments = append(msg.Attachments, att)
		}
	}

	now := time.Now()
	if err := ic.db.Model(&conv).Update("last_message_at", &now).Error; err != nil {
		ic.logger.WithError(err).Warn("last_message_at update failed")
	}

	if err := ic.db.Where("conversation_id = ? AND admin_user_id = ?", convID, adminID).
		Delete(&models.MessageDraft{}).Error; err != nil {
		ic.logger.WithError(err).Warn("draft cleanup failed")
	}

	ic.logger.WithFields(logrus.Fields{
		"conversation_id": convID,
		"message_id":      msg.ID,
		"attachments":     len(msg.Attachments),
	}).Info("reply queued")

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(msg))
}

// SetConversationArchived archives or restores a conversation.
func (ic *InboxController) SetConversationArchived(c *fiber.Ctx) error {
	convID := utils.ParseUint(c.Params("id"))
	if convID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	var req struct {
		Archived bool `json:"archived"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	res := ic.db.Model(&models.Conversation{}).
		Where("id = ?", convID).
		Update("is_archived", req.Archived)
	if res.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update conversation", res.Error)
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	}
	return c.JSON(fiber.Map{"success": true})
}

// GetAttachmentURL returns a short-lived signed URL for one attachment.
func (ic *InboxController) GetAttachmentURL(c *fiber.Ctx) error {
	attID := utils.ParseUint(c.Params("id"))
	if attID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid attachment id"})
	}

	var att models.MessageAttachment
	if err := ic.db.First(&att, attID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Attachment not found"})
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch attachment", err)
	}

	url, err := ic.store.SignedURL(att.Bucket, att.ObjectPath, attachmentURLTTL)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to sign attachment URL", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"url":        url,
		"file_name":  att.FileName,
		"expires_in": int(attachmentURLTTL.Seconds()),
	}))
}
