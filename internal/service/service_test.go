package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/alenapavlenkko/expireassist/internal/realtime"
	"github.com/alenapavlenkko/expireassist/internal/repository/repotest"
)

var fixedNow = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recorder) Publish(e realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type fixture struct {
	store     *repotest.Store
	catalog   *CatalogService
	inventory *InventoryService
	meals     *MealService
	events    *recorder
}

func newFixture() *fixture {
	store := repotest.NewStore()
	events := &recorder{}
	catalog := NewCatalogService(store.Items())
	inventory := NewInventoryService(store.Inventory(), catalog, events)
	inventory.now = func() time.Time { return fixedNow }
	meals := NewMealService(store.Meals(), store.Recommendations(), inventory, 0)
	return &fixture{store: store, catalog: catalog, inventory: inventory, meals: meals, events: events}
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func uintPtr(v uint) *uint    { return &v }
func str(v *string) string    { return *v }

// ==================== catalog ====================

func TestEnsureItemIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, created, err := f.catalog.EnsureItem(ctx, EnsureItemDTO{Name: "  Milk ", ShelfLifeDays: intPtr(7)})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Milk", first.Name)

	second, created, err := f.catalog.EnsureItem(ctx, EnsureItemDTO{Name: "Milk"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	items, err := f.catalog.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestEnsureItemValidation(t *testing.T) {
	f := newFixture()

	_, _, err := f.catalog.EnsureItem(context.Background(), EnsureItemDTO{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = f.catalog.EnsureItem(context.Background(), EnsureItemDTO{Name: "Salt", ShelfLifeDays: intPtr(-1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetItemNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.catalog.GetItem(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ==================== inventory ====================

func TestCreateByNameDefaultsExpiryFromShelfLife(t *testing.T) {
	f := newFixture()
	f.store.AddItem("Yogurt", intPtr(14))

	entry, err := f.inventory.Create(context.Background(), CreateInventoryDTO{Name: "Yogurt"})
	require.NoError(t, err)

	assert.Equal(t, "Yogurt", entry.Name)
	assert.Equal(t, 1, entry.Quantity)
	require.NotNil(t, entry.ExpiryDate)
	assert.Equal(t, "2024-03-24", *entry.ExpiryDate)
	assert.Equal(t, 14, *entry.DaysUntilExpiry)
	assert.Equal(t, []string{realtime.KindInventoryCreated}, f.events.kinds())
}

func TestCreateByUnknownNameAddsCatalogItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cost := decimal.RequireFromString("2.49")

	entry, err := f.inventory.Create(ctx, CreateInventoryDTO{
		Name:       "Kefir",
		ExpiryDate: strPtr("2024-03-08"),
		Quantity:   intPtr(2),
		Cost:       &cost,
		BinName:    " fridge ",
	})
	require.NoError(t, err)
	assert.Equal(t, -2, *entry.DaysUntilExpiry)
	assert.Equal(t, "fridge", entry.BinName)
	assert.True(t, entry.Cost.Valid)
	assert.Equal(t, "2.49", entry.Cost.Decimal.String())

	item, err := f.store.Items().FindByName(ctx, "Kefir")
	require.NoError(t, err)
	assert.Equal(t, item.ID, entry.ItemID)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	milk := f.store.AddItem("Milk", nil)
	neg := decimal.RequireFromString("-1")

	tests := []struct {
		name string
		dto  CreateInventoryDTO
		want error
	}{
		{"no item", CreateInventoryDTO{}, ErrInvalidInput},
		{"both id and name", CreateInventoryDTO{ItemID: uintPtr(milk), Name: "Milk"}, ErrInvalidInput},
		{"negative quantity", CreateInventoryDTO{ItemID: uintPtr(milk), Quantity: intPtr(-1)}, ErrInvalidInput},
		{"negative cost", CreateInventoryDTO{ItemID: uintPtr(milk), Cost: &neg}, ErrInvalidInput},
		{"bad date", CreateInventoryDTO{ItemID: uintPtr(milk), ExpiryDate: strPtr("10.03.2024")}, ErrInvalidInput},
		{"unknown item", CreateInventoryDTO{ItemID: uintPtr(999)}, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.inventory.Create(context.Background(), tt.dto)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	n, _ := f.store.Inventory().Count(context.Background())
	assert.Zero(t, n)
	assert.Empty(t, f.events.kinds())
}

func TestCreateWithoutShelfLifeLeavesExpiryEmpty(t *testing.T) {
	f := newFixture()
	salt := f.store.AddItem("Salt", nil)

	entry, err := f.inventory.Create(context.Background(), CreateInventoryDTO{ItemID: uintPtr(salt), Quantity: intPtr(0)})
	require.NoError(t, err)
	assert.Nil(t, entry.ExpiryDate)
	assert.Nil(t, entry.DaysUntilExpiry)
	assert.Equal(t, 0, entry.Quantity)
}

func TestUpdateAppliesOnlyGivenFields(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	milk := f.store.AddItem("Milk", intPtr(5))

	created, err := f.inventory.Create(ctx, CreateInventoryDTO{ItemID: uintPtr(milk), Notes: "open", Unit: "l"})
	require.NoError(t, err)

	updated, err := f.inventory.Update(ctx, created.ID, UpdateInventoryDTO{Quantity: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Quantity)
	assert.Equal(t, "open", updated.Notes)
	assert.Equal(t, "l", updated.Unit)
	assert.Equal(t, created.ExpiryDate, updated.ExpiryDate)

	cleared, err := f.inventory.Update(ctx, created.ID, UpdateInventoryDTO{ClearExpiry: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.ExpiryDate)

	got, err := f.inventory.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ExpiryDate)
	assert.Equal(t, 3, got.Quantity)

	assert.Equal(t, []string{
		realtime.KindInventoryCreated,
		realtime.KindInventoryUpdated,
		realtime.KindInventoryUpdated,
	}, f.events.kinds())
}

func TestUpdateErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.inventory.Update(ctx, 7, UpdateInventoryDTO{Quantity: intPtr(1)})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.inventory.Update(ctx, 7, UpdateInventoryDTO{ClearExpiry: true, ExpiryDate: strPtr("2024-01-01")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.inventory.Update(ctx, 7, UpdateInventoryDTO{Quantity: intPtr(-4)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	row := f.store.AddRow(f.store.AddItem("Eggs", nil), 6)

	removed, err := f.inventory.Delete(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, row, removed.ID)
	assert.Equal(t, "Eggs", removed.Name)
	assert.Equal(t, 6, removed.Quantity)

	_, err = f.inventory.Delete(ctx, row)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.inventory.Get(ctx, row)
	assert.ErrorIs(t, err, ErrNotFound)

	require.Equal(t, []string{realtime.KindInventoryDeleted}, f.events.kinds())
	assert.Equal(t, *removed, f.events.events[0].Payload)
}

func TestListOrdersBySoonestExpiry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	milk := f.store.AddItem("Milk", nil)

	for _, d := range []*string{nil, strPtr("2024-03-20"), strPtr("2024-03-11")} {
		_, err := f.inventory.Create(ctx, CreateInventoryDTO{ItemID: uintPtr(milk), ExpiryDate: d})
		require.NoError(t, err)
	}

	list, err := f.inventory.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "2024-03-11", str(list[0].ExpiryDate))
	assert.Equal(t, "2024-03-20", str(list[1].ExpiryDate))
	assert.Nil(t, list[2].ExpiryDate)
}

func TestExpiring(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	milk := f.store.AddItem("Milk", nil)

	for _, d := range []string{"2024-03-01", "2024-03-12", "2024-03-13", "2024-04-01"} {
		_, err := f.inventory.Create(ctx, CreateInventoryDTO{ItemID: uintPtr(milk), ExpiryDate: strPtr(d)})
		require.NoError(t, err)
	}

	soon, err := f.inventory.Expiring(ctx, 2)
	require.NoError(t, err)
	require.Len(t, soon, 2)
	assert.Equal(t, "2024-03-01", str(soon[0].ExpiryDate))
	assert.Equal(t, "2024-03-12", str(soon[1].ExpiryDate))

	_, err = f.inventory.Expiring(ctx, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCheckout(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	bread := f.store.AddItem("Bread", intPtr(4))

	entries, err := f.inventory.Checkout(ctx, CheckoutDTO{Items: []BasketLine{
		{ItemID: uintPtr(bread), Quantity: 1},
		{Name: "Feta", Quantity: 2, ExpiryDate: strPtr("2024-04-01")},
	}})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Bread", entries[0].Name)
	assert.Equal(t, "2024-03-14", str(entries[0].ExpiryDate))
	assert.Equal(t, "Feta", entries[1].Name)
	assert.Equal(t, 2, entries[1].Quantity)
	assert.Len(t, f.events.kinds(), 2)
}

func TestCheckoutRejectsWholeBasket(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	bread := f.store.AddItem("Bread", nil)

	_, err := f.inventory.Checkout(ctx, CheckoutDTO{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.inventory.Checkout(ctx, CheckoutDTO{Items: []BasketLine{
		{ItemID: uintPtr(bread), Quantity: 1},
		{ItemID: uintPtr(bread), Quantity: 0},
	}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.inventory.Checkout(ctx, CheckoutDTO{Items: []BasketLine{
		{ItemID: uintPtr(bread), Quantity: 1},
		{ItemID: uintPtr(555), Quantity: 1},
	}})
	assert.ErrorIs(t, err, ErrNotFound)

	n, _ := f.store.Inventory().Count(ctx)
	assert.Zero(t, n)
}

func TestStorageErrorsAreNotClassified(t *testing.T) {
	f := newFixture()
	f.store.Err = errors.New("connection reset")

	_, err := f.inventory.List(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidInput))
	assert.False(t, errors.Is(err, ErrNotFound))

	_, err = f.inventory.Get(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

// ==================== meals ====================

type kitchen struct {
	milk, eggs, flour, sugar  uint
	omelette, pancakes, candy uint
}

func stockKitchen(f *fixture) kitchen {
	k := kitchen{
		milk:  f.store.AddItem("Milk", nil),
		eggs:  f.store.AddItem("Eggs", nil),
		flour: f.store.AddItem("Flour", nil),
		sugar: f.store.AddItem("Sugar", nil),
	}
	k.omelette = f.store.AddMeal("Omelette", k.milk, k.eggs)
	k.pancakes = f.store.AddMeal("Pancakes", k.milk, k.eggs, k.flour)
	k.candy = f.store.AddMeal("Candy", k.sugar)
	return k
}

func TestSuggestBrowsesWhenInventoryIsEmpty(t *testing.T) {
	f := newFixture()
	stockKitchen(f)

	got, err := f.meals.Suggest(context.Background(), MealQuery{})
	require.NoError(t, err)
	assert.Equal(t, ModeBrowse, got.Mode)
	assert.Nil(t, got.Ranked)
	require.Len(t, got.Browse, 3)
	assert.Equal(t, "Omelette", got.Browse[0].Name)
	assert.Equal(t, []string{"Milk", "Eggs"}, got.Browse[0].ItemNames)
	assert.Empty(t, got.Browse[0].MatchedItemNames)
}

func TestSuggestRanksAgainstInventory(t *testing.T) {
	f := newFixture()
	k := stockKitchen(f)
	f.store.AddRow(k.milk, 1)
	f.store.AddRow(k.eggs, 12)

	got, err := f.meals.Suggest(context.Background(), MealQuery{})
	require.NoError(t, err)
	assert.Equal(t, ModeRanked, got.Mode)
	require.Len(t, got.Ranked, 2)
	assert.Equal(t, "Omelette", got.Ranked[0].Name)
	assert.Equal(t, 1.0, got.Ranked[0].Score)
	assert.Equal(t, "Pancakes", got.Ranked[1].Name)
	assert.InDelta(t, 0.67, got.Ranked[1].Score, 0.01)
	assert.Equal(t, []string{"Flour"}, got.Ranked[1].MissingItemNames)
}

func TestSuggestEmptyRankedWhenOnlyUsedUpRows(t *testing.T) {
	f := newFixture()
	k := stockKitchen(f)
	f.store.AddRow(k.milk, 0)

	got, err := f.meals.Suggest(context.Background(), MealQuery{})
	require.NoError(t, err)
	assert.Equal(t, ModeRanked, got.Mode)
	assert.NotNil(t, got.Ranked)
	assert.Empty(t, got.Ranked)
	assert.Nil(t, got.Browse)
}

func TestSuggestExplicitItemIDs(t *testing.T) {
	f := newFixture()
	k := stockKitchen(f)
	f.store.AddRow(k.milk, 1)

	got, err := f.meals.Suggest(context.Background(), MealQuery{ItemIDs: strPtr("abc, 4, -1")})
	require.NoError(t, err)
	assert.Equal(t, ModeRanked, got.Mode)
	require.Len(t, got.Ranked, 1)
	assert.Equal(t, k.candy, got.Ranked[0].MealID)
}

func TestSuggestRejectsUnusableItemIDs(t *testing.T) {
	f := newFixture()
	stockKitchen(f)

	for _, raw := range []string{"", "abc", "-1,0"} {
		_, err := f.meals.Suggest(context.Background(), MealQuery{ItemIDs: strPtr(raw)})
		assert.ErrorIs(t, err, ErrInvalidInput, raw)

		var idsErr *InvalidIDsError
		require.True(t, errors.As(err, &idsErr))
		assert.Equal(t, "item_ids", idsErr.Param)
	}
}

func TestSuggestLimit(t *testing.T) {
	f := newFixture()
	milk := f.store.AddItem("Milk", nil)
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		f.store.AddMeal(name, milk)
	}
	f.store.AddRow(milk, 1)

	got, err := f.meals.Suggest(context.Background(), MealQuery{})
	require.NoError(t, err)
	assert.Len(t, got.Ranked, 5)

	got, err = f.meals.Suggest(context.Background(), MealQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got.Ranked, 2)
}

func TestMatchSelection(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	k := stockKitchen(f)
	milkRow := f.store.AddRow(k.milk, 1)

	got, err := f.meals.MatchSelection(ctx, Selection{
		PantryRowIDs: []uint{milkRow, 9999},
		Basket:       map[uint]int{k.eggs: 2, k.sugar: 0},
	}, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, k.omelette, got[0].MealID)
	assert.Equal(t, k.pancakes, got[1].MealID)

	empty, err := f.meals.MatchSelection(ctx, Selection{}, 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = f.meals.MatchSelection(ctx, Selection{Basket: map[uint]int{k.eggs: -1}}, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetMeal(t *testing.T) {
	f := newFixture()
	k := stockKitchen(f)

	meal, err := f.meals.GetMeal(context.Background(), k.pancakes)
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", meal.Name)
	assert.Equal(t, 3, meal.TotalItems)

	_, err = f.meals.GetMeal(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecommendPersistsRankedResults(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	k := stockKitchen(f)

	none, err := f.meals.Recommend(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	f.store.AddRow(k.eggs, 6)
	recs, err := f.meals.Recommend(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Omelette", recs[0].MealName)

	var missing []string
	require.NoError(t, json.Unmarshal(recs[0].MissingItems, &missing))
	assert.Equal(t, []string{"Milk"}, missing)

	stored, err := f.meals.ListRecommendations(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

// ==================== export ====================

func TestWriteInventoryXLSX(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	k := stockKitchen(f)
	_, err := f.inventory.Create(ctx, CreateInventoryDTO{ItemID: uintPtr(k.milk), ExpiryDate: strPtr("2024-03-12"), Unit: "l"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewExportService(f.inventory, f.meals).WriteInventoryXLSX(ctx, &buf))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(inventorySheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Item", rows[0][1])
	assert.Equal(t, "Milk", rows[1][1])
	assert.Equal(t, "2024-03-12", rows[1][3])
	assert.Equal(t, "2", rows[1][4])

	meals, err := book.GetRows(mealsSheet)
	require.NoError(t, err)
	require.Len(t, meals, 3)
	assert.Equal(t, "Omelette", meals[1][0])
}
