// Package app wires configuration, storage and services for the binaries.
package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/alenapavlenkko/expireassist/internal/config"
	"github.com/alenapavlenkko/expireassist/internal/database"
	"github.com/alenapavlenkko/expireassist/internal/repository"
	"github.com/alenapavlenkko/expireassist/internal/seed"
	"github.com/alenapavlenkko/expireassist/internal/service"
)

// App is the assembled service layer.
type App struct {
	DB        *gorm.DB
	Catalog   *service.CatalogService
	Inventory *service.InventoryService
	Meals     *service.MealService
	Export    *service.ExportService
}

// New connects to the database, migrates, seeds when configured and
// builds every service. publisher may be nil.
func New(ctx context.Context, cfg *config.Config, publisher service.Publisher) (*App, error) {
	db, err := database.NewPostgres(cfg.DatabaseURL, database.Options{
		Attempts: cfg.DBConnectAttempts,
		LogLevel: cfg.DBLogLevel,
	})
	if err != nil {
		return nil, err
	}

	if err := database.AutoMigrateTables(db, database.AllModels()...); err != nil {
		return nil, err
	}

	itemRepo := repository.NewItemRepo(db)
	inventoryRepo := repository.NewInventoryRepo(db)
	mealRepo := repository.NewMealRepo(db)
	recRepo := repository.NewRecommendationRepo(db)

	if cfg.SeedOnStart {
		catalog, err := seed.Default()
		if err != nil {
			return nil, err
		}
		if _, err := seed.NewSeeder(itemRepo, mealRepo, inventoryRepo).Run(ctx, catalog); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	catalogService := service.NewCatalogService(itemRepo)
	inventoryService := service.NewInventoryService(inventoryRepo, catalogService, publisher)
	mealService := service.NewMealService(mealRepo, recRepo, inventoryService, cfg.MealsDefaultLimit)

	return &App{
		DB:        db,
		Catalog:   catalogService,
		Inventory: inventoryService,
		Meals:     mealService,
		Export:    service.NewExportService(inventoryService, mealService),
	}, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
