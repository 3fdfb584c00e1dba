package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"mailforge/models"
	"mailforge/utils"
)

type DraftController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Mailer *utils.Mailer
}

func NewDraftController(db *gorm.DB, logger *log.Logger, mailer *utils.Mailer) *DraftController {
	return &DraftController{DB: db, Logger: logger, Mailer: mailer}
}

type DraftRequest struct {
	CampaignID          uint                   `json:"campaign" validate:"required"`
	RecipientEmail      string                 `json:"recipient_email" validate:"required,email"`
	RecipientName       string                 `json:"recipient_name" validate:"max=100"`
	Subject             string                 `json:"subject" validate:"max=200"`
	Body                string                 `json:"body"`
	PersonalizationData map[string]interface{} `json:"personalization_data"`
}

// GetDrafts lists drafts belonging to the caller's campaigns, newest first.
// Ownership is derived through the campaign.
func (dc *DraftController) GetDrafts(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var drafts []models.EmailDraft
	if err := dc.DB.
		Select("email_drafts.*").
		Joins("JOIN email_campaigns ON email_campaigns.id = email_drafts.campaign_id").
		Where("email_campaigns.created_by_id = ?", user.ID).
		Order("email_drafts.created_at DESC").
		Find(&drafts).Error; err != nil {
		return internalError(c, dc.Logger, "failed to fetch drafts", err)
	}

	return c.JSON(drafts)
}

// CreateDraft creates a draft manually, bypassing generation. The target
// campaign must belong to the caller.
func (dc *DraftController) CreateDraft(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req DraftRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var campaign models.EmailCampaign
	if err := dc.DB.Where("id = ? AND created_by_id = ?", req.CampaignID, user.ID).
		First(&campaign).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	draft := models.EmailDraft{
		CampaignID:          campaign.ID,
		RecipientEmail:      req.RecipientEmail,
		RecipientName:       req.RecipientName,
		Subject:             req.Subject,
		Body:                req.Body,
		PersonalizationData: req.PersonalizationData,
		Status:              models.DraftStatusPending,
	}

	if err := dc.DB.Create(&draft).Error; err != nil {
		return internalError(c, dc.Logger, "failed to create draft", err)
	}

	return c.Status(fiber.StatusCreated).JSON(draft)
}

// GetDraft returns one draft from the caller's campaigns.
func (dc *DraftController) GetDraft(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	draft, err := dc.ownedDraft(c.Params("id"), user.ID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Draft not found",
		})
	}

	return c.JSON(draft)
}

// MarkSent transitions a draft to sent. Repeated calls are a no-op: the
// original sent timestamp is preserved.
func (dc *DraftController) MarkSent(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	draft, err := dc.ownedDraft(c.Params("id"), user.ID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Draft not found",
		})
	}

	if err := draft.MarkSent(dc.DB); err != nil {
		return internalError(c, dc.Logger, "failed to mark draft sent", err)
	}

	return c.JSON(draft)
}

// SendDraft delivers a draft over SMTP and marks it sent. A delivery
// failure is recorded on the draft as failed with the error message.
func (dc *DraftController) SendDraft(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	draft, err := dc.ownedDraft(c.Params("id"), user.ID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Draft not found",
		})
	}

	if draft.Status == models.DraftStatusSent {
		return c.JSON(draft)
	}

	if err := dc.Mailer.SendDraft(draft); err != nil {
		dc.Logger.Printf("Failed to send draft %d: %v", draft.ID, err)
		if dbErr := draft.MarkFailed(dc.DB, err.Error()); dbErr != nil {
			return internalError(c, dc.Logger, "failed to record send failure", dbErr)
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := draft.MarkSent(dc.DB); err != nil {
		return internalError(c, dc.Logger, "failed to mark draft sent", err)
	}

	dc.Logger.Printf("Draft %d sent to %s", draft.ID, draft.RecipientEmail)
	return c.JSON(draft)
}

// ownedDraft resolves a draft id to a draft whose campaign belongs to the
// given user. A miss and a foreign draft are indistinguishable to the
// caller.
func (dc *DraftController) ownedDraft(draftID string, userID uint) (*models.EmailDraft, error) {
	var draft models.EmailDraft
	err := dc.DB.
		Select("email_drafts.*").
		Joins("JOIN email_campaigns ON email_campaigns.id = email_drafts.campaign_id").
		Where("email_drafts.id = ? AND email_campaigns.created_by_id = ?", draftID, userID).
		First(&draft).Error
	if err != nil {
		return nil, err
	}
	return &draft, nil
}
