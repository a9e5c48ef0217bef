// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/alenapavlenkko/expireassist/internal/models"
	"github.com/alenapavlenkko/expireassist/internal/repository"
)

// Store keeps every table in memory. Set Err to make all calls fail.
type Store struct {
	mu sync.Mutex

	items []models.Item
	rows  []models.InventoryRow
	meals []models.Meal
	recs  []models.Recommendation

	nextItem, nextRow, nextMeal, nextRec uint

	Err error
}

func NewStore() *Store {
	return &Store{nextItem: 1, nextRow: 1, nextMeal: 1, nextRec: 1}
}

func (s *Store) Items() repository.ItemRepository                     { return itemRepo{s} }
func (s *Store) Inventory() repository.InventoryRepository            { return inventoryRepo{s} }
func (s *Store) Meals() repository.MealRepository                     { return mealRepo{s} }
func (s *Store) Recommendations() repository.RecommendationRepository { return recRepo{s} }

// AddItem inserts a catalog item and returns its id.
func (s *Store) AddItem(name string, shelfLifeDays *int) uint {
	item, _ := s.Items().Create(context.Background(), &models.Item{Name: name, ShelfLifeDays: shelfLifeDays})
	return item.ID
}

// AddMeal inserts a meal whose ingredients are the given item ids in order.
func (s *Store) AddMeal(name string, itemIDs ...uint) uint {
	meal := &models.Meal{Name: name}
	for i, id := range itemIDs {
		meal.Ingredients = append(meal.Ingredients, models.MealItem{ItemID: id, Position: i})
	}
	created, _ := s.Meals().Create(context.Background(), meal)
	return created.ID
}

// AddRow inserts an inventory row.
func (s *Store) AddRow(itemID uint, quantity int) uint {
	row, _ := s.Inventory().Create(context.Background(), &models.InventoryRow{ItemID: itemID, Quantity: quantity})
	return row.ID
}

// caller holds mu
func (s *Store) itemByID(id uint) (models.Item, bool) {
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return models.Item{}, false
}

// ==================== items ====================

type itemRepo struct{ s *Store }

func (r itemRepo) Create(_ context.Context, item *models.Item) (*models.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, it := range r.s.items {
		if it.Name == item.Name {
			return nil, gorm.ErrDuplicatedKey
		}
	}
	item.ID = r.s.nextItem
	r.s.nextItem++
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	r.s.items = append(r.s.items, *item)
	return item, nil
}

func (r itemRepo) FirstOrCreateByName(ctx context.Context, item *models.Item) (*models.Item, bool, error) {
	if existing, err := r.FindByName(ctx, item.Name); err == nil {
		return existing, false, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}
	created, err := r.Create(ctx, item)
	return created, err == nil, err
}

func (r itemRepo) FindAll(context.Context) ([]*models.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	out := make([]*models.Item, 0, len(r.s.items))
	for _, it := range r.s.items {
		it := it
		out = append(out, &it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r itemRepo) FindByID(_ context.Context, id uint) (*models.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	if it, ok := r.s.itemByID(id); ok {
		return &it, nil
	}
	return &models.Item{}, gorm.ErrRecordNotFound
}

func (r itemRepo) FindByName(_ context.Context, name string) (*models.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, it := range r.s.items {
		if it.Name == name {
			it := it
			return &it, nil
		}
	}
	return &models.Item{}, gorm.ErrRecordNotFound
}

func (r itemRepo) Count(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.items)), r.s.Err
}

// ==================== inventory ====================

type inventoryRepo struct{ s *Store }

// caller holds mu
func (r inventoryRepo) insert(row *models.InventoryRow) error {
	if _, ok := r.s.itemByID(row.ItemID); !ok {
		return gorm.ErrForeignKeyViolated
	}
	row.ID = r.s.nextRow
	r.s.nextRow++
	now := time.Now()
	row.CreatedAt, row.UpdatedAt = now, now
	stored := *row
	stored.Item = models.Item{}
	r.s.rows = append(r.s.rows, stored)
	return nil
}

// caller holds mu
func (r inventoryRepo) withItem(row models.InventoryRow) *models.InventoryRow {
	row.Item, _ = r.s.itemByID(row.ItemID)
	return &row
}

func (r inventoryRepo) Create(_ context.Context, row *models.InventoryRow) (*models.InventoryRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	return row, r.insert(row)
}

func (r inventoryRepo) CreateBatch(_ context.Context, rows []*models.InventoryRow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	for _, row := range rows {
		if _, ok := r.s.itemByID(row.ItemID); !ok {
			return gorm.ErrForeignKeyViolated
		}
	}
	for _, row := range rows {
		if err := r.insert(row); err != nil {
			return err
		}
	}
	return nil
}

func (r inventoryRepo) sorted(keep func(models.InventoryRow) bool) []*models.InventoryRow {
	out := make([]*models.InventoryRow, 0, len(r.s.rows))
	for _, row := range r.s.rows {
		if keep(row) {
			out = append(out, r.withItem(row))
		}
	}
	// expiry asc, nulls last, then id
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate == nil:
			return a.ID < b.ID
		case a.ExpiryDate == nil:
			return false
		case b.ExpiryDate == nil:
			return true
		}
		ta, tb := time.Time(*a.ExpiryDate), time.Time(*b.ExpiryDate)
		if !ta.Equal(tb) {
			return ta.Before(tb)
		}
		return a.ID < b.ID
	})
	return out
}

func (r inventoryRepo) FindAll(context.Context) ([]*models.InventoryRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	return r.sorted(func(models.InventoryRow) bool { return true }), nil
}

func (r inventoryRepo) FindByID(_ context.Context, id uint) (*models.InventoryRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, row := range r.s.rows {
		if row.ID == id {
			return r.withItem(row), nil
		}
	}
	return &models.InventoryRow{}, gorm.ErrRecordNotFound
}

func (r inventoryRepo) FindByIDs(_ context.Context, ids []uint) ([]*models.InventoryRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]*models.InventoryRow, 0, len(ids))
	for _, row := range r.s.rows {
		if want[row.ID] {
			out = append(out, r.withItem(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r inventoryRepo) FindExpiringBefore(_ context.Context, day time.Time) ([]*models.InventoryRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	limit := day.Format("2006-01-02")
	return r.sorted(func(row models.InventoryRow) bool {
		return row.ExpiryDate != nil && time.Time(*row.ExpiryDate).Format("2006-01-02") <= limit
	}), nil
}

func (r inventoryRepo) Update(_ context.Context, row *models.InventoryRow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	for i := range r.s.rows {
		if r.s.rows[i].ID == row.ID {
			stored := *row
			stored.Item = models.Item{}
			stored.UpdatedAt = time.Now()
			r.s.rows[i] = stored
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r inventoryRepo) Delete(_ context.Context, id uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return false, r.s.Err
	}
	for i := range r.s.rows {
		if r.s.rows[i].ID == id {
			r.s.rows = append(r.s.rows[:i], r.s.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r inventoryRepo) AvailableItemIDs(context.Context) ([]uint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	seen := map[uint]bool{}
	var ids []uint
	for _, row := range r.s.rows {
		if row.Quantity > 0 && !seen[row.ItemID] {
			seen[row.ItemID] = true
			ids = append(ids, row.ItemID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r inventoryRepo) Count(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.rows)), r.s.Err
}

// ==================== meals ====================

type mealRepo struct{ s *Store }

// caller holds mu
func (r mealRepo) withIngredients(m models.Meal) *models.Meal {
	ings := make([]models.MealItem, len(m.Ingredients))
	copy(ings, m.Ingredients)
	sort.SliceStable(ings, func(i, j int) bool { return ings[i].Position < ings[j].Position })
	for i := range ings {
		ings[i].MealID = m.ID
		ings[i].Item, _ = r.s.itemByID(ings[i].ItemID)
	}
	m.Ingredients = ings
	return &m
}

func (r mealRepo) Create(_ context.Context, meal *models.Meal) (*models.Meal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, m := range r.s.meals {
		if m.Name == meal.Name {
			return nil, gorm.ErrDuplicatedKey
		}
	}
	meal.ID = r.s.nextMeal
	r.s.nextMeal++
	meal.CreatedAt = time.Now()
	for i := range meal.Ingredients {
		meal.Ingredients[i].MealID = meal.ID
	}
	stored := *meal
	stored.Ingredients = append([]models.MealItem(nil), meal.Ingredients...)
	r.s.meals = append(r.s.meals, stored)
	return meal, nil
}

func (r mealRepo) find(keep func(models.Meal) bool) []*models.Meal {
	out := make([]*models.Meal, 0, len(r.s.meals))
	for _, m := range r.s.meals {
		if keep(m) {
			out = append(out, r.withIngredients(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r mealRepo) FindAll(context.Context) ([]*models.Meal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	return r.find(func(models.Meal) bool { return true }), nil
}

func (r mealRepo) FindByID(_ context.Context, id uint) (*models.Meal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	if found := r.find(func(m models.Meal) bool { return m.ID == id }); len(found) == 1 {
		return found[0], nil
	}
	return &models.Meal{}, gorm.ErrRecordNotFound
}

func (r mealRepo) FindByName(_ context.Context, name string) (*models.Meal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	if found := r.find(func(m models.Meal) bool { return m.Name == name }); len(found) == 1 {
		return found[0], nil
	}
	return &models.Meal{}, gorm.ErrRecordNotFound
}

func (r mealRepo) FindWithAnyItem(_ context.Context, itemIDs []uint) ([]*models.Meal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	want := make(map[uint]bool, len(itemIDs))
	for _, id := range itemIDs {
		want[id] = true
	}
	return r.find(func(m models.Meal) bool {
		for _, ing := range m.Ingredients {
			if want[ing.ItemID] {
				return true
			}
		}
		return false
	}), nil
}

func (r mealRepo) Count(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.meals)), r.s.Err
}

// ==================== recommendations ====================

type recRepo struct{ s *Store }

func (r recRepo) CreateBatch(_ context.Context, recs []*models.Recommendation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	for _, rec := range recs {
		rec.ID = r.s.nextRec
		r.s.nextRec++
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now()
		}
		r.s.recs = append(r.s.recs, *rec)
	}
	return nil
}

func (r recRepo) FindRecent(_ context.Context, limit int) ([]*models.Recommendation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	out := make([]*models.Recommendation, 0, len(r.s.recs))
	for i := len(r.s.recs) - 1; i >= 0; i-- {
		rec := r.s.recs[i]
		out = append(out, &rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
