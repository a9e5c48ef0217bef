package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/alenapavlenkko/expireassist/internal/models"
	"github.com/alenapavlenkko/expireassist/internal/repository"
	"github.com/alenapavlenkko/expireassist/pkg/utils"
)

const maxNameLen = 255

type CatalogService struct {
	repo repository.ItemRepository
}

func NewCatalogService(repo repository.ItemRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// ListItems - whole catalog ordered by name
func (s *CatalogService) ListItems(ctx context.Context) ([]*models.Item, error) {
	items, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// GetItem - one catalog item
func (s *CatalogService) GetItem(ctx context.Context, id uint) (*models.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "item", id)
	}
	return item, nil
}

// EnsureItem returns the item with dto.Name, creating it if needed.
// The bool reports whether a new row was inserted.
func (s *CatalogService) EnsureItem(ctx context.Context, dto EnsureItemDTO) (*models.Item, bool, error) {
	name := strings.TrimSpace(dto.Name)
	if name == "" {
		return nil, false, invalidf("item name is required")
	}
	if len(name) > maxNameLen {
		return nil, false, invalidf("item name is longer than %d characters", maxNameLen)
	}
	if dto.ShelfLifeDays != nil && *dto.ShelfLifeDays < 0 {
		return nil, false, invalidf("shelf_life_days must not be negative")
	}

	item, created, err := s.repo.FirstOrCreateByName(ctx, &models.Item{
		Name:          name,
		Brand:         strings.TrimSpace(dto.Brand),
		Category:      trimmedOrNil(dto.Category),
		ShelfLifeDays: dto.ShelfLifeDays,
		PhotoPath:     trimmedOrNil(dto.PhotoPath),
	})
	if err != nil {
		return nil, false, fmt.Errorf("ensure item %q: %w", name, err)
	}
	if created {
		utils.Log.Info("Catalog item created", zap.Uint("item_id", item.ID), zap.String("name", item.Name))
	}
	return item, created, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
