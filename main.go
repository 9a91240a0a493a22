package main

import (
	"context"
	"log"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"riseagain/config"
	"riseagain/middleware"
	"riseagain/routes"
	"riseagain/storage"
	"riseagain/utils"
	"riseagain/worker"
)

func main() {
	logger := log.New(os.Stdout, "SERVER: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry init failed: %v", err)
		}
	}

	appLogger := logrus.New()
	appLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	store := storage.NewSupabaseStore(config.AppConfig.Storage)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024, // listing media uploads
	})

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := utils.NewMailer(config.AppConfig.SMTP, store)
	deliveryWorker := worker.NewDeliveryWorker(config.DB, mailer, log.New(os.Stdout, "DELIVERY: ", log.LstdFlags))
	go deliveryWorker.Start(ctx)

	inboxWorker := worker.NewInboxWorker(config.DB, config.AppConfig.IMAP, log.New(os.Stdout, "INBOX: ", log.LstdFlags))
	go inboxWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB, store, appLogger)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
