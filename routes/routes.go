package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	controller "riseagain/controllers"
	"riseagain/middleware"
	"riseagain/storage"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	auth.Post("/admin/login", controller.Login)
	auth.Post("/admin/refresh", controller.RefreshToken)

	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Get("/admin/me", controller.GetCurrentAdmin)

	// Bootstrap-key guarded admin provisioning
	admin := app.Group("/admin")
	admin.Post("/users", controller.CreateAdmin)
	admin.Post("/users/reset-password", controller.ResetAdminPassword)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupPublicRoutes(app *fiber.App, db *gorm.DB, store storage.ObjectStore, appLogger *logrus.Logger) {
	listingController := controller.NewListingController(db, store, appLogger)
	contactController := controller.NewContactController(db)

	// Public site endpoints: available listings only, rate-limited contact
	// forms
	public := app.Group("", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	public.Get("/listings", listingController.GetPublicListings)
	public.Get("/listings/:id", listingController.GetListing)

	contact := public.Group("/contact", middleware.ContactRateLimiter())
	contact.Post("/", contactController.SubmitContactForm)
	contact.Post("/agent", contactController.SubmitAgentForm)
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, store storage.ObjectStore, appLogger *logrus.Logger) {
	listingController := controller.NewListingController(db, store, appLogger)
	inboxController := controller.NewInboxController(db, store, appLogger)
	notificationController := controller.NewNotificationController(db, appLogger)
	dashboardController := controller.NewDashboardController(db)

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.Get("/stats", dashboardController.GetStats)

	// Listing routes
	listing := api.Group("/listings")
	listing.Post("/", listingController.CreateListing)
	listing.Get("/", listingController.GetListings)
	listing.Get("/:id", listingController.GetListing)
	listing.Put("/:id", listingController.UpdateListing)
	listing.Delete("/:id", listingController.DeleteListing)
	listing.Put("/:id/cover", listingController.SetListingCover)

	api.Get("/features/search", listingController.SearchFeatures)

	// Inbox routes
	inbox := api.Group("/inbox")
	inbox.Get("/conversations", inboxController.GetConversations)
	inbox.Get("/conversations/:id/messages", inboxController.GetMessages)
	inbox.Put("/conversations/:id/draft", inboxController.SaveDraft)
	inbox.Post("/conversations/:id/send", inboxController.SendReply)
	inbox.Put("/conversations/:id/archive", inboxController.SetConversationArchived)
	inbox.Get("/attachments/:id/url", inboxController.GetAttachmentURL)

	// Notification routes
	notifications := api.Group("/notifications")
	notifications.Get("/", notificationController.GetNotifications)
	notifications.Put("/:id/read", notificationController.MarkNotificationRead)

	// WebSocket route for the notification stream
	app.Get("/api/v1/notifications/ws",
		middleware.Protected(),
		controller.WebSocketUpgrade,
		notificationController.StreamNotifications())

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB, store storage.ObjectStore, appLogger *logrus.Logger) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app, db)
	SetupPublicRoutes(app, db, store, appLogger)
	SetupAPIRoutes(app, db, store, appLogger)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
