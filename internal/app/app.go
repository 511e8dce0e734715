package app

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sailakshmi-0987/Campus-recycle/internal/auth"
	"github.com/sailakshmi-0987/Campus-recycle/internal/config"
	"github.com/sailakshmi-0987/Campus-recycle/internal/database"
	"github.com/sailakshmi-0987/Campus-recycle/internal/emails"
	"github.com/sailakshmi-0987/Campus-recycle/internal/listings"
	"github.com/sailakshmi-0987/Campus-recycle/internal/messages"
	"github.com/sailakshmi-0987/Campus-recycle/internal/middleware"
	"github.com/sailakshmi-0987/Campus-recycle/internal/notifications"
	"github.com/sailakshmi-0987/Campus-recycle/internal/transactions"
	"github.com/sailakshmi-0987/Campus-recycle/internal/uploads"
	"github.com/sailakshmi-0987/Campus-recycle/internal/users"
)

// CreateApp builds the Fiber app with every route wired. The returned DB and
// Redis client are handed back so main can ping them before listening.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigin: cfg.FrontendURL}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opts)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, err
	}

	RegisterRoutes(app, db, rdb, cfg)
	return app, db, rdb, nil
}

// RegisterRoutes wires services, handlers and middleware onto the app. Split
// from CreateApp so tests can mount the API over an in-memory database.
func RegisterRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	notifier := &notifications.Service{DB: db}
	var sender emails.Sender
	if cfg.SendinblueAPIKey != "" {
		sender = &emails.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom}
	}
	uploader := &uploads.Service{Host: &uploads.HTTPClient{BaseURL: cfg.ImageHostURL, APIKey: cfg.ImageHostAPIKey}}

	authSvc := &auth.Service{DB: db, Emails: sender, JWTSecret: cfg.JWTSecret, JWTExpiry: cfg.JWTExpiry}
	userSvc := &users.Service{DB: db}
	listingSvc := &listings.Service{DB: db, Notifier: notifier}
	messageSvc := &messages.Service{DB: db, Notifier: notifier, Emails: sender}
	txnSvc := &transactions.Service{DB: db, Notifier: notifier}

	authH := &auth.Handlers{Service: authSvc}
	userH := &users.Handlers{Service: userSvc, Uploads: uploader}
	listingH := &listings.Handlers{Service: listingSvc, Uploads: uploader}
	messageH := &messages.Handlers{Service: messageSvc}
	txnH := &transactions.Handlers{Service: txnSvc}
	notifyH := &notifications.Handlers{Service: notifier}

	authCfg := middleware.AuthConfig{Secret: cfg.JWTSecret, DB: db}
	requireAuth := middleware.RequireAuth(authCfg)
	optionalAuth := middleware.OptionalAuth(authCfg)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
	})

	api := app.Group("/api")
	if rdb != nil {
		api.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Rdb:    rdb,
			Max:    cfg.RateLimitMax,
			Window: cfg.RateLimitWindow,
			Prefix: "rl:api",
		}))
	}

	authGroup := api.Group("/auth")
	if rdb != nil {
		// Credential endpoints get a tighter window than the rest of the API.
		authGroup.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Rdb:    rdb,
			Max:    20,
			Window: cfg.RateLimitWindow,
			Prefix: "rl:auth",
		}))
	}
	authGroup.Post("/register", authH.Register)
	authGroup.Post("/verify-email", authH.VerifyEmail)
	authGroup.Get("/verify-email/:token", authH.VerifyEmailToken)
	authGroup.Post("/resend-verification", authH.ResendVerification)
	authGroup.Post("/login", authH.Login)
	authGroup.Get("/me", requireAuth, authH.Me)
	authGroup.Post("/logout", requireAuth, authH.Logout)

	api.Get("/universities", userH.Universities)

	userGroup := api.Group("/users")
	userGroup.Get("/:id", userH.GetProfile)
	userGroup.Put("/:id", requireAuth, userH.UpdateProfile)
	userGroup.Post("/:id/profile-image", requireAuth, userH.UploadProfileImage)
	userGroup.Get("/:id/listings", userH.Listings)
	userGroup.Get("/:id/reviews", userH.Reviews)

	listingGroup := api.Group("/listings")
	listingGroup.Get("/", listingH.List)
	listingGroup.Post("/", requireAuth, listingH.Create)
	listingGroup.Get("/:id", optionalAuth, listingH.Get)
	listingGroup.Get("/:id/views", requireAuth, listingH.ViewsHistory)
	listingGroup.Put("/:id", requireAuth, listingH.Update)
	listingGroup.Post("/:id/images", requireAuth, listingH.AddImages)
	listingGroup.Put("/:id/sold", requireAuth, listingH.MarkSold)
	listingGroup.Delete("/:id", requireAuth, listingH.Delete)

	// Static message paths registered before the :conversationId catch-all.
	messageGroup := api.Group("/messages", requireAuth)
	messageGroup.Post("/", messageH.Send)
	messageGroup.Get("/conversations", messageH.ListConversations)
	messageGroup.Get("/unread/count", messageH.UnreadCount)
	messageGroup.Get("/:conversationId", messageH.ListMessages)
	messageGroup.Put("/:conversationId/read", messageH.MarkConversationRead)

	txnGroup := api.Group("/transactions", requireAuth)
	txnGroup.Post("/", txnH.Open)
	txnGroup.Get("/", txnH.ListMine)
	txnGroup.Get("/:id", txnH.Get)
	txnGroup.Put("/:id/confirm", txnH.Confirm)
	txnGroup.Put("/:id/meetup", txnH.ScheduleMeetup)
	txnGroup.Put("/:id/complete", txnH.Complete)
	txnGroup.Put("/:id/cancel", txnH.Cancel)
	txnGroup.Put("/:id/dispute", txnH.Dispute)
	txnGroup.Post("/:id/reviews", txnH.SubmitReview)

	notifyGroup := api.Group("/notifications", requireAuth)
	notifyGroup.Get("/", notifyH.List)
	notifyGroup.Get("/unread/count", notifyH.UnreadCount)
	notifyGroup.Put("/:id/read", notifyH.MarkRead)
	notifyGroup.Put("/read-all", notifyH.MarkAllRead)
}
