package main

import (
	api "traction-backend/cmd/api"
	authdomain "traction-backend/internal/auth/domain"
	authrepo "traction-backend/internal/auth/repository"
	authusecase "traction-backend/internal/auth/usecase"
	crmdomain "traction-backend/internal/crm/domain"
	crmrepo "traction-backend/internal/crm/repository"
	feedusecase "traction-backend/internal/feed/usecase"
	syncdomain "traction-backend/internal/sync/domain"
	syncrepo "traction-backend/internal/sync/repository"
	syncscheduler "traction-backend/internal/sync/scheduler"
	syncusecase "traction-backend/internal/sync/usecase"
	"traction-backend/pkg/config"
	"traction-backend/pkg/database"
	"traction-backend/pkg/gcal"
	"traction-backend/pkg/gmail"
	"traction-backend/pkg/imap"

	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&authdomain.User{}, &crmdomain.Contact{}, &crmdomain.Account{}, &syncdomain.Activity{}, &syncdomain.SyncRun{}); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	// Initialize repositories (dependency injection)
	userRepo := authrepo.NewUserRepository(db)
	contactRepo := crmrepo.NewContactRepository(db)
	accountRepo := crmrepo.NewAccountRepository(db)
	activityRepo := syncrepo.NewActivityRepository(db)
	runRepo := syncrepo.NewSyncRunRepository(db)

	// Initialize provider adapters
	messageProviders := []syncdomain.MessageProvider{
		gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, logger),
	}
	if cfg.IMAPHost != "" {
		messageProviders = append(messageProviders, imap.NewService(cfg.IMAPHost, cfg.IMAPPort, cfg.IMAPUsername, cfg.IMAPPassword, logger))
	}
	eventProviders := []syncdomain.EventProvider{
		gcal.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, logger),
	}

	// Initialize use cases (dependency injection)
	authUsecase := authusecase.NewAuthUsecase(userRepo, cfg)
	syncUsecase := syncusecase.NewSyncUsecase(activityRepo, runRepo, contactRepo, accountRepo, userRepo, messageProviders, eventProviders, cfg, logger)
	feedCache := feedusecase.NewFeedCache(nil, logger)

	// Scheduled runs race manual ones safely: upserts are idempotent and
	// last-touch updates are monotonic.
	scheduler := syncscheduler.NewSyncScheduler(syncUsecase, userRepo, cfg.SyncInterval, logger)
	scheduler.Start()

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecase, syncUsecase, feedCache, cfg, logger)

	logger.WithField("port", cfg.Port).Info("Server starting")
	if err := handler.Start(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("Failed to start server")
	}
}
