package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"mailforge/models"
	"mailforge/utils"
)

type TemplateController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewTemplateController(db *gorm.DB, logger *log.Logger) *TemplateController {
	return &TemplateController{DB: db, Logger: logger}
}

type TemplateRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	Description     string `json:"description"`
	SubjectTemplate string `json:"subject_template" validate:"required,max=200"`
	BodyTemplate    string `json:"body_template" validate:"required"`
}

// GetTemplates lists the caller's active templates, newest first.
func (tc *TemplateController) GetTemplates(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var templates []models.EmailTemplate
	if err := tc.DB.Where("created_by_id = ? AND is_active = ?", user.ID, true).
		Order("created_at DESC").Find(&templates).Error; err != nil {
		return internalError(c, tc.Logger, "failed to fetch templates", err)
	}

	return c.JSON(templates)
}

// CreateTemplate creates a template owned by the caller. The owner is always
// the authenticated user regardless of anything in the request body.
func (tc *TemplateController) CreateTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req TemplateRequest
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

	template := models.EmailTemplate{
		Name:            req.Name,
		Description:     req.Description,
		SubjectTemplate: req.SubjectTemplate,
		BodyTemplate:    req.BodyTemplate,
		CreatedByID:     user.ID,
		IsActive:        true,
	}

	if err := tc.DB.Create(&template).Error; err != nil {
		return internalError(c, tc.Logger, "failed to create template", err)
	}

	tc.Logger.Printf("Template %d created by user %d", template.ID, user.ID)
	return c.Status(fiber.StatusCreated).JSON(template)
}

// GetTemplate returns one of the caller's templates.
func (tc *TemplateController) GetTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	templateID := c.Params("id")

	var template models.EmailTemplate
	if err := tc.DB.Where("id = ? AND created_by_id = ? AND is_active = ?", templateID, user.ID, true).
		First(&template).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	return c.JSON(template)
}

// UpdateTemplate updates one of the caller's active templates. A deactivated
// template is invisible to writes the same way it is to reads.
func (tc *TemplateController) UpdateTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	templateID := c.Params("id")

	var template models.EmailTemplate
	if err := tc.DB.Where("id = ? AND created_by_id = ? AND is_active = ?", templateID, user.ID, true).
		First(&template).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	var req TemplateRequest
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

	template.Name = req.Name
	template.Description = req.Description
	template.SubjectTemplate = req.SubjectTemplate
	template.BodyTemplate = req.BodyTemplate

	if err := tc.DB.Save(&template).Error; err != nil {
		return internalError(c, tc.Logger, "failed to update template", err)
	}

	return c.JSON(template)
}

// DeleteTemplate soft-deactivates a template and clears the reference on
// campaigns that used it; the campaigns themselves survive.
func (tc *TemplateController) DeleteTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	templateID := c.Params("id")

	var template models.EmailTemplate
	if err := tc.DB.Where("id = ? AND created_by_id = ? AND is_active = ?", templateID, user.ID, true).
		First(&template).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	if err := tc.DB.Model(&template).Update("is_active", false).Error; err != nil {
		return internalError(c, tc.Logger, "failed to deactivate template", err)
	}

	if err := tc.DB.Model(&models.EmailCampaign{}).
		Where("template_id = ?", template.ID).
		Update("template_id", nil).Error; err != nil {
		return internalError(c, tc.Logger, "failed to detach template from campaigns", err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
