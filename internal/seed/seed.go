// Package seed loads the built-in catalog of items and meals.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/alenapavlenkko/expireassist/internal/models"
	"github.com/alenapavlenkko/expireassist/internal/repository"
	"github.com/alenapavlenkko/expireassist/pkg/utils"
)

//go:embed catalog.yaml
var catalogYAML []byte

type CatalogItem struct {
	Name          string `yaml:"name"`
	Brand         string `yaml:"brand"`
	Category      string `yaml:"category"`
	ShelfLifeDays int    `yaml:"shelf_life_days"`
	Photo         string `yaml:"photo"`
}

type CatalogMeal struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Items       []string `yaml:"items"`
}

type SampleStock struct {
	Name     string `yaml:"name"`
	Cost     string `yaml:"cost"`
	Quantity int    `yaml:"quantity"`
	Unit     string `yaml:"unit"`
	Bin      string `yaml:"bin"`
	Notes    string `yaml:"notes"`
}

// Catalog is the parsed seed file.
type Catalog struct {
	DefaultShelfLifeDays int           `yaml:"default_shelf_life_days"`
	Items                []CatalogItem `yaml:"items"`
	Meals                []CatalogMeal `yaml:"meals"`
	SampleInventory      []SampleStock `yaml:"sample_inventory"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(catalogYAML)
}

// Parse decodes and checks a seed file.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse seed catalog: %w", err)
	}
	if c.DefaultShelfLifeDays <= 0 {
		c.DefaultShelfLifeDays = 7
	}

	seen := make(map[string]bool, len(c.Items))
	for i, it := range c.Items {
		if strings.TrimSpace(it.Name) == "" {
			return nil, fmt.Errorf("seed item %d has no name", i)
		}
		if seen[it.Name] {
			return nil, fmt.Errorf("seed item %q listed twice", it.Name)
		}
		seen[it.Name] = true
	}

	meals := make(map[string]bool, len(c.Meals))
	for i, m := range c.Meals {
		if strings.TrimSpace(m.Name) == "" {
			return nil, fmt.Errorf("seed meal %d has no name", i)
		}
		if meals[m.Name] {
			return nil, fmt.Errorf("seed meal %q listed twice", m.Name)
		}
		if len(m.Items) == 0 {
			return nil, fmt.Errorf("seed meal %q has no items", m.Name)
		}
		meals[m.Name] = true
	}

	for _, s := range c.SampleInventory {
		if s.Cost == "" {
			continue
		}
		if _, err := decimal.NewFromString(s.Cost); err != nil {
			return nil, fmt.Errorf("sample %q: bad cost %q", s.Name, s.Cost)
		}
	}
	return &c, nil
}

// Report counts what a Run inserted.
type Report struct {
	ItemsCreated  int
	MealsCreated  int
	InventoryRows int
}

type Seeder struct {
	items     repository.ItemRepository
	meals     repository.MealRepository
	inventory repository.InventoryRepository
	now       func() time.Time
}

func NewSeeder(items repository.ItemRepository, meals repository.MealRepository, inventory repository.InventoryRepository) *Seeder {
	return &Seeder{items: items, meals: meals, inventory: inventory, now: time.Now}
}

// Run inserts whatever part of c is missing. Running it twice changes
// nothing the second time. Sample stock is added only to an empty pantry.
func (s *Seeder) Run(ctx context.Context, c *Catalog) (*Report, error) {
	report := &Report{}
	byName := make(map[string]*models.Item, len(c.Items))

	for _, entry := range c.Items {
		shelf := entry.ShelfLifeDays
		item := &models.Item{
			Name:          entry.Name,
			Brand:         entry.Brand,
			Category:      optional(entry.Category),
			ShelfLifeDays: &shelf,
			PhotoPath:     optional(entry.Photo),
		}
		got, created, err := s.items.FirstOrCreateByName(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("seed item %q: %w", entry.Name, err)
		}
		if created {
			report.ItemsCreated++
		}
		byName[entry.Name] = got
	}

	for _, entry := range c.Meals {
		_, err := s.meals.FindByName(ctx, entry.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("seed meal %q: %w", entry.Name, err)
		}

		meal := &models.Meal{Name: entry.Name, Description: optional(entry.Description)}
		used := make(map[uint]bool, len(entry.Items))
		for _, name := range entry.Items {
			item, err := s.ingredient(ctx, byName, name, c.DefaultShelfLifeDays, report)
			if err != nil {
				return nil, fmt.Errorf("seed meal %q: %w", entry.Name, err)
			}
			if used[item.ID] {
				continue
			}
			used[item.ID] = true
			meal.Ingredients = append(meal.Ingredients, models.MealItem{ItemID: item.ID, Position: len(meal.Ingredients)})
		}

		if _, err := s.meals.Create(ctx, meal); err != nil {
			return nil, fmt.Errorf("seed meal %q: %w", entry.Name, err)
		}
		report.MealsCreated++
	}

	rows, err := s.sampleRows(ctx, c, byName)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		if err := s.inventory.CreateBatch(ctx, rows); err != nil {
			return nil, fmt.Errorf("seed sample inventory: %w", err)
		}
		report.InventoryRows = len(rows)
	}

	utils.Log.Info("Seed finished",
		zap.Int("items_created", report.ItemsCreated),
		zap.Int("meals_created", report.MealsCreated),
		zap.Int("inventory_rows", report.InventoryRows),
	)
	return report, nil
}

// ingredient resolves a meal ingredient, adding unknown names to the catalog.
func (s *Seeder) ingredient(ctx context.Context, byName map[string]*models.Item, name string, shelf int, report *Report) (*models.Item, error) {
	if item, ok := byName[name]; ok {
		return item, nil
	}
	days := shelf
	item, created, err := s.items.FirstOrCreateByName(ctx, &models.Item{Name: name, ShelfLifeDays: &days})
	if err != nil {
		return nil, fmt.Errorf("item %q: %w", name, err)
	}
	if created {
		report.ItemsCreated++
	}
	byName[name] = item
	return item, nil
}

func (s *Seeder) sampleRows(ctx context.Context, c *Catalog, byName map[string]*models.Item) ([]*models.InventoryRow, error) {
	if len(c.SampleInventory) == 0 {
		return nil, nil
	}
	n, err := s.inventory.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count inventory: %w", err)
	}
	if n > 0 {
		return nil, nil
	}

	y, m, d := s.now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	rows := make([]*models.InventoryRow, 0, len(c.SampleInventory))
	for _, entry := range c.SampleInventory {
		item, ok := byName[entry.Name]
		if !ok {
			utils.Log.Warn("Sample item not in catalog", zap.String("name", entry.Name))
			continue
		}
		days := c.DefaultShelfLifeDays
		if item.ShelfLifeDays != nil && *item.ShelfLifeDays > 0 {
			days = *item.ShelfLifeDays
		}
		expiry := datatypes.Date(today.AddDate(0, 0, days))

		row := &models.InventoryRow{
			ItemID:     item.ID,
			ExpiryDate: &expiry,
			Quantity:   entry.Quantity,
			Unit:       entry.Unit,
			BinName:    entry.Bin,
			Notes:      entry.Notes,
		}
		if entry.Cost != "" {
			row.Cost = decimal.NewNullDecimal(decimal.RequireFromString(entry.Cost))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
