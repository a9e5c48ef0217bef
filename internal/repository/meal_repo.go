package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/alenapavlenkko/expireassist/internal/models"
)

// MealRepository - recipes and their ingredient sets
type MealRepository interface {
	Create(ctx context.Context, meal *models.Meal) (*models.Meal, error)
	FindAll(ctx context.Context) ([]*models.Meal, error)
	FindByID(ctx context.Context, id uint) (*models.Meal, error)
	FindByName(ctx context.Context, name string) (*models.Meal, error)
	FindWithAnyItem(ctx context.Context, itemIDs []uint) ([]*models.Meal, error)
	Count(ctx context.Context) (int64, error)
}

// RecommendationRepository - persisted suggestion snapshots
type RecommendationRepository interface {
	CreateBatch(ctx context.Context, recs []*models.Recommendation) error
	FindRecent(ctx context.Context, limit int) ([]*models.Recommendation, error)
}

type mealRepo struct {
	db *gorm.DB
}

func NewMealRepo(db *gorm.DB) MealRepository {
	return &mealRepo{db: db}
}

// withIngredients preloads ingredients in insertion order together with
// their catalog items.
func withIngredients(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Ingredients", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("meal_items.position ASC")
		}).
		Preload("Ingredients.Item")
}

func (r *mealRepo) Create(ctx context.Context, meal *models.Meal) (*models.Meal, error) {
	err := r.db.WithContext(ctx).Create(meal).Error
	return meal, err
}

func (r *mealRepo) FindAll(ctx context.Context) ([]*models.Meal, error) {
	var meals []*models.Meal
	err := withIngredients(r.db.WithContext(ctx)).Order("id ASC").Find(&meals).Error
	return meals, err
}

func (r *mealRepo) FindByID(ctx context.Context, id uint) (*models.Meal, error) {
	var meal models.Meal
	err := withIngredients(r.db.WithContext(ctx)).First(&meal, id).Error
	return &meal, err
}

func (r *mealRepo) FindByName(ctx context.Context, name string) (*models.Meal, error) {
	var meal models.Meal
	err := withIngredients(r.db.WithContext(ctx)).Where("name = ?", name).First(&meal).Error
	return &meal, err
}

// FindWithAnyItem returns meals sharing at least one ingredient with itemIDs.
func (r *mealRepo) FindWithAnyItem(ctx context.Context, itemIDs []uint) ([]*models.Meal, error) {
	var meals []*models.Meal
	if len(itemIDs) == 0 {
		return meals, nil
	}
	candidates := r.db.WithContext(ctx).
		Model(&models.MealItem{}).
		Select("meal_id").
		Where("item_id IN ?", itemIDs)

	err := withIngredients(r.db.WithContext(ctx)).
		Where("id IN (?)", candidates).
		Order("id ASC").
		Find(&meals).Error
	return meals, err
}

func (r *mealRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Meal{}).Count(&count).Error
	return count, err
}

// ==================== RecommendationRepository ====================

type recommendationRepo struct {
	db *gorm.DB
}

func NewRecommendationRepo(db *gorm.DB) RecommendationRepository {
	return &recommendationRepo{db: db}
}

func (r *recommendationRepo) CreateBatch(ctx context.Context, recs []*models.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Meal").Create(&recs).Error
}

func (r *recommendationRepo) FindRecent(ctx context.Context, limit int) ([]*models.Recommendation, error) {
	var recs []*models.Recommendation
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&recs).Error
	return recs, err
}
