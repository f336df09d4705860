package main

import (
	"github.com/nutrilens/backend/internal/config"
	"github.com/nutrilens/backend/internal/handlers"
	"github.com/nutrilens/backend/internal/models"
	"github.com/nutrilens/backend/internal/services"
	"github.com/nutrilens/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg             *config.Config
	verifier        *services.TokenVerifier
	quota           *services.QuotaService
	logCleanup      *services.LogCleanupScheduler
	healthHandler   *handlers.HealthHandler
	analysisHandler *handlers.AnalysisHandler
	userHandler     *handlers.UserHandler
	adminHandler    *handlers.AdminHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	services.InitSystemLogger(models.GetDB())

	logCleanup := services.NewLogCleanupScheduler(models.GetDB(), cfg.Log.RetentionDays)
	logCleanup.Start()

	// The usage store carries the per-user lock state; everything that
	// touches counters must share this single instance.
	store := services.NewUsageStore(models.GetDB())
	quota := services.NewQuotaService(store, cfg)
	records := services.NewAnalysisLogService(models.GetDB())
	vision := services.NewVisionService(&cfg.AI)
	pipeline := services.NewAnalysisService(quota, records, vision, &cfg.Upload)
	reports := services.NewReportService()
	verifier := services.NewTokenVerifier(&cfg.Auth)

	if cfg.Auth.AdminUserID == "" {
		logger.Warn().Msg("no admin user configured, privileged access disabled")
	}

	return &appServices{
		cfg:             cfg,
		verifier:        verifier,
		quota:           quota,
		logCleanup:      logCleanup,
		healthHandler:   handlers.NewHealthHandler(),
		analysisHandler: handlers.NewAnalysisHandler(pipeline, records, reports, cfg.Quota.DailyLimit),
		userHandler:     handlers.NewUserHandler(store, quota, records),
		adminHandler:    handlers.NewAdminHandler(store, records),
	}
}

// shutdown gracefully stops background work and closes the database handle.
func (s *appServices) shutdown() {
	s.logCleanup.Stop()
	if err := models.CloseDB(); err != nil {
		logger.Warn().Err(err).Msg("failed to close database")
	}
	logger.Info().Msg("shutdown complete")
}
