package container

import (
	"log/slog"

	"github.com/joshua-takyi/trailbook/internal/config"
	"github.com/joshua-takyi/trailbook/internal/helpers"
	"github.com/joshua-takyi/trailbook/internal/models"
	"github.com/joshua-takyi/trailbook/internal/services"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	Store     models.Store
	Directory models.AccountDirectory
	Inbox     models.NotificationsRepo
	Redis     *redis.Client
	Tokens    *helpers.TokenValidator

	NotificationService *services.NotificationService
	BookingService      *services.BookingService
	ReviewService       *services.ReviewService
	CatalogService      *services.CatalogService
}

// Features maps the feature flags onto the store capabilities.
func Features(cfg *config.Config) models.Features {
	return models.Features{
		ReviewVotes:   cfg.FeatureReviewVotes,
		ReviewReports: cfg.FeatureReviewReports,
	}
}

// NewContainer wires the services over the given stores. mailer and rdb may be nil.
func NewContainer(
	cfg *config.Config,
	logger *slog.Logger,
	store models.Store,
	directory models.AccountDirectory,
	inbox models.NotificationsRepo,
	mailer services.Mailer,
	rdb *redis.Client,
) *Container {
	notifications := services.NewNotificationService(inbox, directory, mailer, logger, cfg.AppBaseURL)

	return &Container{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Directory: directory,
		Inbox:     inbox,
		Redis:     rdb,
		Tokens:    helpers.NewTokenValidator(cfg.SupabaseURL, cfg.JWTSecret, logger),

		NotificationService: notifications,
		BookingService:      services.NewBookingService(store, notifications, logger),
		ReviewService:       services.NewReviewService(store, notifications, Features(cfg), logger),
		CatalogService:      services.NewCatalogService(store, logger),
	}
}
