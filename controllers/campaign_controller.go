package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"mailforge/models"
	"mailforge/utils"
)

type CampaignController struct {
	DB         *gorm.DB
	Logger     *log.Logger
	Completion *utils.CompletionClient
}

func NewCampaignController(db *gorm.DB, logger *log.Logger, completion *utils.CompletionClient) *CampaignController {
	return &CampaignController{
		DB:         db,
		Logger:     logger,
		Completion: completion,
	}
}

type CampaignRequest struct {
	Name          string     `json:"name" validate:"required,max=100"`
	Description   string     `json:"description"`
	TemplateID    *uint      `json:"template"`
	CustomPrompt  string     `json:"custom_prompt"`
	Status        string     `json:"status" validate:"omitempty,oneof=draft scheduled in_progress completed failed"`
	ScheduledTime *time.Time `json:"scheduled_time"`
}

// GetCampaigns lists the caller's campaigns, newest first.
func (cc *CampaignController) GetCampaigns(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var campaigns []models.EmailCampaign
	if err := cc.DB.Where("created_by_id = ?", user.ID).
		Order("created_at DESC").Find(&campaigns).Error; err != nil {
		return internalError(c, cc.Logger, "failed to fetch campaigns", err)
	}

	return c.JSON(campaigns)
}

// CreateCampaign creates a campaign owned by the caller. A template
// reference, when provided, must point at one of the caller's own
// templates.
func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CampaignRequest
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

	if req.TemplateID != nil {
		var template models.EmailTemplate
		if err := cc.DB.Where("id = ? AND created_by_id = ? AND is_active = ?", *req.TemplateID, user.ID, true).
			First(&template).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Template not found",
			})
		}
	}

	status := req.Status
	if status == "" {
		status = models.CampaignStatusDraft
	}

	campaign := models.EmailCampaign{
		Name:          req.Name,
		Description:   req.Description,
		TemplateID:    req.TemplateID,
		CustomPrompt:  req.CustomPrompt,
		CreatedByID:   user.ID,
		Status:        status,
		ScheduledTime: req.ScheduledTime,
	}

	if err := cc.DB.Create(&campaign).Error; err != nil {
		return internalError(c, cc.Logger, "failed to create campaign", err)
	}

	cc.Logger.Printf("Campaign %d created by user %d", campaign.ID, user.ID)
	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// GetCampaign returns one of the caller's campaigns with its drafts.
func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	campaignID := c.Params("id")

	var campaign models.EmailCampaign
	if err := cc.DB.Preload("Drafts").
		Where("id = ? AND created_by_id = ?", campaignID, user.ID).
		First(&campaign).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	return c.JSON(campaign)
}

// UpdateCampaign updates campaign details.
func (cc *CampaignController) UpdateCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	campaignID := c.Params("id")

	var campaign models.EmailCampaign
	if err := cc.DB.Where("id = ? AND created_by_id = ?", campaignID, user.ID).
		First(&campaign).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	var req CampaignRequest
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

	if req.TemplateID != nil {
		var template models.EmailTemplate
		if err := cc.DB.Where("id = ? AND created_by_id = ? AND is_active = ?", *req.TemplateID, user.ID, true).
			First(&template).Error; err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Template not found",
			})
		}
	}

	campaign.Name = req.Name
	campaign.Description = req.Description
	campaign.TemplateID = req.TemplateID
	campaign.CustomPrompt = req.CustomPrompt
	campaign.ScheduledTime = req.ScheduledTime
	if req.Status != "" {
		campaign.Status = req.Status
	}

	if err := cc.DB.Save(&campaign).Error; err != nil {
		return internalError(c, cc.Logger, "failed to update campaign", err)
	}

	return c.JSON(campaign)
}

// DeleteCampaign removes a campaign and all of its drafts.
func (cc *CampaignController) DeleteCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	campaignID := c.Params("id")

	var campaign models.EmailCampaign
	if err := cc.DB.Where("id = ? AND created_by_id = ?", campaignID, user.ID).
		First(&campaign).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	tx := cc.DB.Begin()
	if err := tx.Where("campaign_id = ?", campaign.ID).
		Delete(&models.EmailDraft{}).Error; err != nil {
		tx.Rollback()
		return internalError(c, cc.Logger, "failed to delete campaign drafts", err)
	}
	if err := tx.Delete(&campaign).Error; err != nil {
		tx.Rollback()
		return internalError(c, cc.Logger, "failed to delete campaign", err)
	}
	tx.Commit()

	return c.SendStatus(fiber.StatusNoContent)
}
