package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"riseagain/models"
	"riseagain/utils"
)

type ContactController struct {
	db     *gorm.DB
	logger *log.Logger
}

func NewContactController(db *gorm.DB) *ContactController {
	return &ContactController{
		db:     db,
		logger: log.New(log.Writer(), "CONTACT: ", log.LstdFlags),
	}
}

type ContactFormRequest struct {
	FullName  string `json:"full_name" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Subject   string `json:"subject"`
	Message   string `json:"message" validate:"required,min=5"`
	ListingID *uint  `json:"listing_id"`
}

// SubmitContactForm handles the public contact page.
func (cc *ContactController) SubmitContactForm(c *fiber.Ctx) error {
	return cc.ingest(c, models.SourceContactPage)
}

// SubmitAgentForm handles the contact-agent form on a listing page; it
// requires the listing reference.
func (cc *ContactController) SubmitAgentForm(c *fiber.Ctx) error {
	return cc.ingest(c, models.SourceContactAgent)
}

func (cc *ContactController) ingest(c *fiber.Ctx, source string) error {
	var req ContactFormRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if source == models.SourceContactAgent && req.ListingID == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "listing_id is required"})
	}
	if req.ListingID != nil {
		var count int64
		if err := cc.db.Model(&models.Listing{}).Where("id = ?", *req.ListingID).Count(&count).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to submit message", err)
		}
		if count == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown listing"})
		}
	}

	msg, err := models.IngestContactFormMessage(cc.db, models.ContactFormInput{
		Source:    source,
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		Subject:   req.Subject,
		BodyText:  req.Message,
		ListingID: req.ListingID,
	})
	if err != nil {
		if errors.Is(err, models.ErrIngestEmailRequired) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		cc.logger.Printf("ingest failed: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to submit message", err)
	}

	cc.logger.Printf("✅ Contact message %d ingested (source=%s)", msg.ID, source)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":         true,
		"conversation_id": msg.ConversationID,
	})
}
