package main

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"slotmarket_backend/internal/controller"
	"slotmarket_backend/internal/middleware"
	"slotmarket_backend/internal/model"
	"slotmarket_backend/pkg/booking"
	"slotmarket_backend/pkg/config"
	"slotmarket_backend/pkg/cron"
	"slotmarket_backend/pkg/database"
	"slotmarket_backend/pkg/events"
	"slotmarket_backend/pkg/gateway"
	"slotmarket_backend/pkg/seed"
	"slotmarket_backend/pkg/settlement"
	"slotmarket_backend/pkg/utils/storage"
)

func setupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)

	// Public listing browse and availability routes
	public := api.Group("/l")
	public.Get("/:id", controller.GetListing)
	public.Get("/:id/availability", controller.GetAvailability)
	public.Post("/:id/recurring-check", controller.CheckRecurringConflicts)

	// Stripe webhook. Registered before the auth group so the gateway
	// can reach it unauthenticated.
	api.Post("/webhook", controller.HandleStripeWebhook)

	// Protected Routes
	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", controller.GetMe)

	// Owner listing management
	listings := protected.Group("/listings")
	listings.Get("/my", middleware.RequireRole(model.RoleOwner), controller.ListMyListings)
	listings.Post("/", middleware.RequireRole(model.RoleOwner), controller.CreateListing)
	listings.Put("/:id", middleware.CheckListingOwnership(), controller.UpdateListing)
	listings.Get("/:id/reservations", middleware.CheckListingOwnership(), controller.ListListingReservations)
	listings.Post("/:id/images", middleware.CheckListingOwnership(), controller.UploadListingImage)
	listings.Delete("/:id/images/:image_id", middleware.CheckListingOwnership(), controller.DeleteListingImage)

	// Reservation lifecycle
	reservations := protected.Group("/reservations")
	reservations.Post("/", middleware.RequireRole(model.RoleConsumer), controller.CreateReservation)
	reservations.Get("/my", controller.ListMyReservations)
	reservations.Get("/:id", controller.GetReservation)
	reservations.Post("/:id/confirm", controller.ConfirmReservation)
	reservations.Post("/:id/cancel", controller.CancelReservation)
	reservations.Post("/:id/reschedule", controller.RescheduleReservation)
	reservations.Post("/:id/complete", controller.CompleteReservation)

	// Recurring subscriptions
	subscriptions := protected.Group("/subscriptions")
	subscriptions.Post("/", middleware.RequireRole(model.RoleConsumer), controller.CreateSubscription)
	subscriptions.Get("/my", controller.ListMySubscriptions)
	subscriptions.Post("/:id/cancel", controller.CancelSubscription)

	// Owner payout surface
	payouts := protected.Group("/payouts", middleware.RequireRole(model.RoleOwner))
	payouts.Post("/account", controller.OnboardPayoutAccount)
	payouts.Get("/account", controller.GetPayoutAccount)
	payouts.Get("/earnings", controller.GetEarnings)
	payouts.Get("/my", controller.ListMyPayouts)

	// Admin surface
	admin := protected.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.Post("/listings/:id/approve", controller.ApproveListing)
	admin.Post("/commission-overrides", controller.SetCommissionOverride)
	admin.Delete("/commission-overrides/:owner_id", controller.DeleteCommissionOverride)
	admin.Get("/payouts/failed", controller.ListFailedPayouts)
	admin.Post("/payouts/release/:owner_id", controller.ReleaseOwnerPayouts)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := config.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set in .env")
	}

	database.InitDB(dbURL)
	err := database.MigrateDatabase(
		&model.User{},
		&model.Listing{},
		&model.ListingImage{},
		&model.Reservation{},
		&model.RecurringSubscription{},
		&model.PayoutAccount{},
		&model.Payout{},
		&model.CommissionOverride{},
	)
	if err != nil {
		log.Printf("Migration warning: %v", err)
	}
	if err := database.EnsureSlotConstraint(); err != nil {
		log.Fatal("Could not create slot uniqueness constraint:", err)
	}

	if err := storage.InitStorage(); err != nil {
		log.Printf("Storage init warning: %v", err)
	}

	if os.Getenv("RABBITMQ_URL") != "" || os.Getenv("AMQP_URL") != "" {
		booking.Notify = events.NewAMQPPublisher()
	}

	payments := gateway.NewStripeGateway()
	store := settlement.NewGormStore(database.DB)
	engine := settlement.NewEngine(store, payments, booking.Notify)
	engine.RetryWindow = time.Duration(cfg.Payout.RetryWindowHours) * time.Hour
	releaser := settlement.NewReleaser(store, payments)

	controller.InitControllers(cfg, payments, engine, releaser)

	cron.InitSettlementSweep(engine, cfg.Booking)
	cron.InitCompletionSweep(cfg.Booking)
	cron.InitEarningsReconciliation()

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		seed.SeedDemoData(database.DB)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New())

	setupRoutes(app)

	log.Printf("Server is running on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}
