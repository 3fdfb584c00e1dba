package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"mailforge/config"
	controller "mailforge/controllers"
	"mailforge/middleware"
	"mailforge/utils"
)

// SetupAuthRoutes wires the public authentication endpoints.
func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	authController := controller.NewAuthController(db, log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile))
	secret := []byte(config.AppConfig.JWTSecret)

	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/google", authController.GoogleAuth)
	auth.Post("/refresh-token", authController.RefreshToken)

	// Server-side Google OAuth redirect flow
	auth.Get("/google", authController.GoogleOAuth)
	auth.Get("/google/callback", authController.GoogleOAuthCallback)

	// Protected auth endpoints (require valid JWT)
	auth.Get("/me", middleware.Protected(db, secret), authController.GetCurrentUser)
}

// SetupAPIRoutes wires the authenticated resource endpoints.
func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	completion := utils.NewCompletionClient(config.AppConfig.OpenAI)
	mailer := utils.NewMailer(config.AppConfig.SMTP)

	templateController := controller.NewTemplateController(db, log.New(os.Stdout, "TEMPLATE: ", log.LstdFlags))
	campaignController := controller.NewCampaignController(db, log.New(os.Stdout, "CAMPAIGN: ", log.LstdFlags), completion)
	draftController := controller.NewDraftController(db, log.New(os.Stdout, "DRAFT: ", log.LstdFlags), mailer)

	// The JWT guard is scoped to the resource prefixes so unknown paths
	// fall through to the 404 handler instead of failing auth
	protected := middleware.Protected(db, []byte(config.AppConfig.JWTSecret))
	requestLogger := logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	})

	// Template routes
	template := app.Group("/templates", protected, requestLogger)
	template.Get("/", templateController.GetTemplates)
	template.Post("/", templateController.CreateTemplate)
	template.Get("/:id", templateController.GetTemplate)
	template.Put("/:id", templateController.UpdateTemplate)
	template.Delete("/:id", templateController.DeleteTemplate)

	// Campaign routes
	campaign := app.Group("/campaigns", protected, requestLogger)
	campaign.Get("/", campaignController.GetCampaigns)
	campaign.Post("/", campaignController.CreateCampaign)
	campaign.Get("/:id", campaignController.GetCampaign)
	campaign.Put("/:id", campaignController.UpdateCampaign)
	campaign.Delete("/:id", campaignController.DeleteCampaign)
	campaign.Post("/:id/generate_email", middleware.GenerateRateLimiter(), campaignController.GenerateEmail)

	// Draft routes
	draft := app.Group("/drafts", protected, requestLogger)
	draft.Get("/", draftController.GetDrafts)
	draft.Post("/", draftController.CreateDraft)
	draft.Get("/:id", draftController.GetDraft)
	draft.Post("/:id/mark_sent", draftController.MarkSent)
	draft.Post("/:id/send", draftController.SendDraft)

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app, db)
	SetupAPIRoutes(app, db)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
