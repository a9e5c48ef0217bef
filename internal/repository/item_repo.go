package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/alenapavlenkko/expireassist/internal/models"
)

type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) (*models.Item, error)
	FirstOrCreateByName(ctx context.Context, item *models.Item) (*models.Item, bool, error)
	FindAll(ctx context.Context) ([]*models.Item, error)
	FindByID(ctx context.Context, id uint) (*models.Item, error)
	FindByName(ctx context.Context, name string) (*models.Item, error)
	Count(ctx context.Context) (int64, error)
}

type itemRepo struct {
	db *gorm.DB
}

func NewItemRepo(db *gorm.DB) ItemRepository {
	return &itemRepo{db: db}
}

func (r *itemRepo) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	err := r.db.WithContext(ctx).Create(item).Error
	return item, err
}

// FirstOrCreateByName returns the item with item.Name, creating it when it
// doesn't exist yet. The bool reports whether a row was inserted.
func (r *itemRepo) FirstOrCreateByName(ctx context.Context, item *models.Item) (*models.Item, bool, error) {
	existing, err := r.FindByName(ctx, item.Name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		// lost a race against another insert of the same name
		if existing, findErr := r.FindByName(ctx, item.Name); findErr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return item, true, nil
}

func (r *itemRepo) FindAll(ctx context.Context) ([]*models.Item, error) {
	var items []*models.Item
	err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

func (r *itemRepo) FindByID(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).First(&item, id).Error
	return &item, err
}

func (r *itemRepo) FindByName(ctx context.Context, name string) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&item).Error
	return &item, err
}

func (r *itemRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Item{}).Count(&count).Error
	return count, err
}
