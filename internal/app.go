// Package internal contains core application wiring
package internal

import (
	"fmt"

	"github.com/karloscodes/cartridge"

	v1 "sitepulse/api/v1"
	"sitepulse/internal/config"
	"sitepulse/internal/database"
	"sitepulse/internal/jobs"
	"sitepulse/internal/ledger"
	"sitepulse/internal/pkg/geoip"
	"sitepulse/internal/snapshot"
)

// Application wraps cartridge.Application with the sitepulse components.
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager
	Ledger    *ledger.Ledger
	Store     *snapshot.Store
}

// NewApp creates a new application instance with default settings.
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config.
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)
	geoip.InitLogger(logger)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	visitorLedger := ledger.New(cfg.LedgerRetentionDays)
	store := snapshot.NewStore(logger, dbManager.GetConnection())
	handler := v1.NewHandler(visitorLedger, store, cfg)

	scheduler, err := jobs.NewScheduler(dbManager, visitorLedger, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:    cfg,
		Logger:    logger,
		DBManager: dbManager,
		RouteMountFunc: func(srv *cartridge.Server) {
			MountAppRoutes(srv, handler)
		},
		BackgroundWorkers: []cartridge.BackgroundWorker{scheduler},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Ledger:      visitorLedger,
		Store:       store,
	}, nil
}
