package controller

import (
	"time"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"mailforge/models"
	"mailforge/utils"
)

type GenerateEmailRequest struct {
	RecipientData map[string]interface{} `json:"recipient_data"`
}

// GenerateEmail produces one draft for one recipient of a campaign.
//
// The completion prompt is assembled deterministically from the campaign's
// template body, its custom instructions and the recipient payload. The
// call to the completion service is synchronous and at-most-once: on any
// failure nothing is persisted and the causal message is returned; on
// success exactly one draft is inserted, already in generated status with
// its timestamp set, so a pending draft is never observable.
func (cc *CampaignController) GenerateEmail(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	campaignID := c.Params("id")

	var campaign models.EmailCampaign
	if err := cc.DB.Where("id = ? AND created_by_id = ?", campaignID, user.ID).
		First(&campaign).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	var req GenerateEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	recipientEmail, _ := req.RecipientData["email"].(string)
	recipientName, _ := req.RecipientData["name"].(string)
	if recipientEmail == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "recipient_data.email is required",
		})
	}
	if err := checkmail.ValidateFormat(recipientEmail); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "recipient_data.email is not a valid email address",
		})
	}

	// Resolve the template; it may have been deleted since the campaign
	// was created, in which case the prompt carries a placeholder.
	templateBody := ""
	subject := utils.DefaultDraftSubject
	if campaign.TemplateID != nil {
		var template models.EmailTemplate
		if err := cc.DB.First(&template, *campaign.TemplateID).Error; err == nil {
			templateBody = template.BodyTemplate
			subject = template.SubjectTemplate
		}
	}

	prompt := utils.BuildGenerationPrompt(templateBody, campaign.CustomPrompt, req.RecipientData)

	start := time.Now()
	generated, err := cc.Completion.Complete(c.Context(), utils.SystemPrompt, prompt)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"campaign_id": campaign.ID,
			"user_id":     user.ID,
			"elapsed":     time.Since(start).String(),
		}).WithError(err).Error("email generation failed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// Single insert: the draft is born generated, never visible as pending.
	now := time.Now()
	draft := models.EmailDraft{
		CampaignID:          campaign.ID,
		RecipientEmail:      recipientEmail,
		RecipientName:       recipientName,
		Subject:             subject,
		Body:                generated,
		PersonalizationData: req.RecipientData,
		Status:              models.DraftStatusGenerated,
		GeneratedAt:         &now,
	}
	if err := cc.DB.Create(&draft).Error; err != nil {
		return internalError(c, cc.Logger, "failed to persist draft", err)
	}

	logrus.WithFields(logrus.Fields{
		"campaign_id": campaign.ID,
		"draft_id":    draft.ID,
		"elapsed":     time.Since(start).String(),
	}).Info("email generated")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"draft_id":        draft.ID,
		"generated_email": generated,
	})
}
