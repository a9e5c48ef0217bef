package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/alenapavlenkko/expireassist/internal/database"
	"github.com/alenapavlenkko/expireassist/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgres(dsn, database.Options{Attempts: 1, LogLevel: "silent"})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrateTables(db, database.AllModels()...))

	// clean slate before each test
	db.Exec("TRUNCATE recommendations, meal_items, meals, inventory, items RESTART IDENTITY CASCADE")

	return db
}

func date(t time.Time) *datatypes.Date {
	d := datatypes.Date(t)
	return &d
}

func TestItemRepoFirstOrCreateByName(t *testing.T) {
	db := setupTestDB(t)
	repo := NewItemRepo(db)
	ctx := context.Background()

	first, created, err := repo.FirstOrCreateByName(ctx, &models.Item{Name: "Milk"})
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := repo.FirstOrCreateByName(ctx, &models.Item{Name: "Milk"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestInventoryRepo(t *testing.T) {
	db := setupTestDB(t)
	items := NewItemRepo(db)
	repo := NewInventoryRepo(db)
	ctx := context.Background()

	milk, err := items.Create(ctx, &models.Item{Name: "Milk"})
	require.NoError(t, err)
	eggs, err := items.Create(ctx, &models.Item{Name: "Eggs"})
	require.NoError(t, err)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	require.NoError(t, repo.CreateBatch(ctx, []*models.InventoryRow{
		{ItemID: milk.ID, Quantity: 1, ExpiryDate: date(today.AddDate(0, 0, 5))},
		{ItemID: eggs.ID, Quantity: 0, ExpiryDate: date(today.AddDate(0, 0, 1))},
		{ItemID: milk.ID, Quantity: 2},
	}))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Eggs", all[0].Item.Name)
	assert.Nil(t, all[2].ExpiryDate)

	ids, err := repo.AvailableItemIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{milk.ID}, ids)

	expiring, err := repo.FindExpiringBefore(ctx, today.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Len(t, expiring, 1)

	deleted, err := repo.Delete(ctx, all[0].ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, 999999)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestMealRepoFindWithAnyItem(t *testing.T) {
	db := setupTestDB(t)
	items := NewItemRepo(db)
	meals := NewMealRepo(db)
	ctx := context.Background()

	milk, _ := items.Create(ctx, &models.Item{Name: "Milk"})
	eggs, _ := items.Create(ctx, &models.Item{Name: "Eggs"})
	sugar, _ := items.Create(ctx, &models.Item{Name: "Sugar"})

	_, err := meals.Create(ctx, &models.Meal{Name: "Omelette", Ingredients: []models.MealItem{
		{ItemID: eggs.ID, Position: 0},
		{ItemID: milk.ID, Position: 1},
	}})
	require.NoError(t, err)
	_, err = meals.Create(ctx, &models.Meal{Name: "Syrup", Ingredients: []models.MealItem{
		{ItemID: sugar.ID, Position: 0},
	}})
	require.NoError(t, err)

	got, err := meals.FindWithAnyItem(ctx, []uint{milk.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Omelette", got[0].Name)
	require.Len(t, got[0].Ingredients, 2)
	assert.Equal(t, "Eggs", got[0].Ingredients[0].Item.Name)
	assert.Equal(t, "Milk", got[0].Ingredients[1].Item.Name)

	none, err := meals.FindWithAnyItem(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
