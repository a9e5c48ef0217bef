package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alenapavlenkko/expireassist/internal/models"
)

type InventoryRepository interface {
	Create(ctx context.Context, row *models.InventoryRow) (*models.InventoryRow, error)
	CreateBatch(ctx context.Context, rows []*models.InventoryRow) error
	FindAll(ctx context.Context) ([]*models.InventoryRow, error)
	FindByID(ctx context.Context, id uint) (*models.InventoryRow, error)
	FindByIDs(ctx context.Context, ids []uint) ([]*models.InventoryRow, error)
	FindExpiringBefore(ctx context.Context, day time.Time) ([]*models.InventoryRow, error)
	Update(ctx context.Context, row *models.InventoryRow) error
	Delete(ctx context.Context, id uint) (bool, error)
	AvailableItemIDs(ctx context.Context) ([]uint, error)
	Count(ctx context.Context) (int64, error)
}

type inventoryRepo struct {
	db *gorm.DB
}

func NewInventoryRepo(db *gorm.DB) InventoryRepository {
	return &inventoryRepo{db: db}
}

const inventoryOrder = "expiry_date ASC NULLS LAST, id ASC"

func (r *inventoryRepo) Create(ctx context.Context, row *models.InventoryRow) (*models.InventoryRow, error) {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error
	return row, err
}

// CreateBatch inserts all rows or none.
func (r *inventoryRepo) CreateBatch(ctx context.Context, rows []*models.InventoryRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&rows).Error
	})
}

func (r *inventoryRepo) FindAll(ctx context.Context) ([]*models.InventoryRow, error) {
	var rows []*models.InventoryRow
	err := r.db.WithContext(ctx).Preload("Item").Order(inventoryOrder).Find(&rows).Error
	return rows, err
}

func (r *inventoryRepo) FindByID(ctx context.Context, id uint) (*models.InventoryRow, error) {
	var row models.InventoryRow
	err := r.db.WithContext(ctx).Preload("Item").First(&row, id).Error
	return &row, err
}

func (r *inventoryRepo) FindByIDs(ctx context.Context, ids []uint) ([]*models.InventoryRow, error) {
	var rows []*models.InventoryRow
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).Preload("Item").Where("id IN ?", ids).Order("id ASC").Find(&rows).Error
	return rows, err
}

// FindExpiringBefore returns rows with an expiry date on or before day.
func (r *inventoryRepo) FindExpiringBefore(ctx context.Context, day time.Time) ([]*models.InventoryRow, error) {
	var rows []*models.InventoryRow
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", day.Format("2006-01-02")).
		Order(inventoryOrder).
		Find(&rows).Error
	return rows, err
}

func (r *inventoryRepo) Update(ctx context.Context, row *models.InventoryRow) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(row).Error
}

// Delete reports false when no row had that id.
func (r *inventoryRepo) Delete(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.InventoryRow{}, id)
	return result.RowsAffected > 0, result.Error
}

// AvailableItemIDs returns distinct item ids held with quantity > 0.
func (r *inventoryRepo) AvailableItemIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.InventoryRow{}).
		Where("quantity > 0").
		Distinct("item_id").
		Order("item_id ASC").
		Pluck("item_id", &ids).Error
	return ids, err
}

func (r *inventoryRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InventoryRow{}).Count(&count).Error
	return count, err
}
