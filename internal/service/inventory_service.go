package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/alenapavlenkko/expireassist/internal/matcher"
	"github.com/alenapavlenkko/expireassist/internal/models"
	"github.com/alenapavlenkko/expireassist/internal/realtime"
	"github.com/alenapavlenkko/expireassist/internal/repository"
	"github.com/alenapavlenkko/expireassist/pkg/utils"
)

const dateLayout = "2006-01-02"

// Publisher receives inventory change events. *realtime.Hub implements it.
type Publisher interface {
	Publish(e realtime.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(realtime.Event) {}

// InventoryEntry is the flat pantry view: one row joined with its item.
type InventoryEntry struct {
	ID              uint                `json:"id"`
	ItemID          uint                `json:"item_id"`
	Name            string              `json:"name"`
	Category        *string             `json:"category"`
	ShelfLifeDays   *int                `json:"shelf_life_days"`
	PhotoPath       *string             `json:"photo_path"`
	ExpiryDate      *string             `json:"expiry_date"`
	DaysUntilExpiry *int                `json:"days_until_expiry"`
	Quantity        int                 `json:"quantity"`
	Cost            decimal.NullDecimal `json:"cost"`
	Unit            string              `json:"unit"`
	BinName         string              `json:"bin_name"`
	Notes           string              `json:"notes"`
	CreatedAt       time.Time           `json:"created_at"`
}

type InventoryService struct {
	repo      repository.InventoryRepository
	catalog   *CatalogService
	publisher Publisher
	now       func() time.Time
}

// NewInventoryService - publisher may be nil
func NewInventoryService(repo repository.InventoryRepository, catalog *CatalogService, publisher Publisher) *InventoryService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &InventoryService{
		repo:      repo,
		catalog:   catalog,
		publisher: publisher,
		now:       time.Now,
	}
}

// List - every row, soonest expiry first
func (s *InventoryService) List(ctx context.Context) ([]InventoryEntry, error) {
	rows, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return s.entries(rows), nil
}

// Get - one row
func (s *InventoryService) Get(ctx context.Context, id uint) (*InventoryEntry, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "inventory row", id)
	}
	entry := s.entry(row)
	return &entry, nil
}

// Expiring - rows expiring within days from today, expired ones included
func (s *InventoryService) Expiring(ctx context.Context, days int) ([]InventoryEntry, error) {
	if days < 0 {
		return nil, invalidf("days must not be negative")
	}
	rows, err := s.repo.FindExpiringBefore(ctx, s.today().AddDate(0, 0, days))
	if err != nil {
		return nil, fmt.Errorf("list expiring inventory: %w", err)
	}
	return s.entries(rows), nil
}

// Create adds one row. An omitted expiry date defaults to today plus the
// item's shelf life when the catalog knows it.
func (s *InventoryService) Create(ctx context.Context, dto CreateInventoryDTO) (*InventoryEntry, error) {
	quantity := 1
	if dto.Quantity != nil {
		quantity = *dto.Quantity
	}
	if quantity < 0 {
		return nil, invalidf("quantity must not be negative")
	}
	if dto.Cost != nil && dto.Cost.IsNegative() {
		return nil, invalidf("cost must not be negative")
	}
	expiry, err := parseDate(dto.ExpiryDate)
	if err != nil {
		return nil, err
	}

	item, err := s.resolveItem(ctx, dto.ItemID, EnsureItemDTO{
		Name:          dto.Name,
		Category:      dto.Category,
		ShelfLifeDays: dto.ShelfLifeDays,
	})
	if err != nil {
		return nil, err
	}

	row := &models.InventoryRow{
		ItemID:     item.ID,
		ExpiryDate: s.defaultExpiry(expiry, item),
		Quantity:   quantity,
		Unit:       strings.TrimSpace(dto.Unit),
		BinName:    strings.TrimSpace(dto.BinName),
		Notes:      strings.TrimSpace(dto.Notes),
	}
	if dto.Cost != nil {
		row.Cost = decimal.NewNullDecimal(*dto.Cost)
	}

	if _, err := s.repo.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("create inventory row: %w", err)
	}
	row.Item = *item

	entry := s.entry(row)
	utils.Log.Info("Inventory row created", zap.Uint("row_id", row.ID), zap.String("item", item.Name))
	s.publish(realtime.KindInventoryCreated, row.ID, entry)
	return &entry, nil
}

// Update applies the non-nil fields of dto.
func (s *InventoryService) Update(ctx context.Context, id uint, dto UpdateInventoryDTO) (*InventoryEntry, error) {
	if dto.ClearExpiry && dto.ExpiryDate != nil {
		return nil, invalidf("expiry_date and clear_expiry are mutually exclusive")
	}
	expiry, err := parseDate(dto.ExpiryDate)
	if err != nil {
		return nil, err
	}
	if dto.Quantity != nil && *dto.Quantity < 0 {
		return nil, invalidf("quantity must not be negative")
	}
	if dto.Cost != nil && dto.Cost.IsNegative() {
		return nil, invalidf("cost must not be negative")
	}

	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "inventory row", id)
	}

	switch {
	case dto.ClearExpiry:
		row.ExpiryDate = nil
	case expiry != nil:
		row.ExpiryDate = expiry
	}
	if dto.Quantity != nil {
		row.Quantity = *dto.Quantity
	}
	if dto.Cost != nil {
		row.Cost = decimal.NewNullDecimal(*dto.Cost)
	}
	if dto.Unit != nil {
		row.Unit = strings.TrimSpace(*dto.Unit)
	}
	if dto.BinName != nil {
		row.BinName = strings.TrimSpace(*dto.BinName)
	}
	if dto.Notes != nil {
		row.Notes = strings.TrimSpace(*dto.Notes)
	}

	if err := s.repo.Update(ctx, row); err != nil {
		return nil, fmt.Errorf("update inventory row %d: %w", id, err)
	}

	entry := s.entry(row)
	s.publish(realtime.KindInventoryUpdated, row.ID, entry)
	return &entry, nil
}

// Delete removes one row and returns it as it was before removal.
func (s *InventoryService) Delete(ctx context.Context, id uint) (*InventoryEntry, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "inventory row", id)
	}
	entry := s.entry(row)

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete inventory row %d: %w", id, err)
	}
	if !deleted {
		return nil, fmt.Errorf("inventory row %d: %w", id, ErrNotFound)
	}
	utils.Log.Info("Inventory row deleted", zap.Uint("row_id", id))
	s.publish(realtime.KindInventoryDeleted, id, entry)
	return &entry, nil
}

// Checkout records a shopping basket. Items are resolved (and created by
// name when unknown) first, then every row is inserted in one transaction.
func (s *InventoryService) Checkout(ctx context.Context, dto CheckoutDTO) ([]InventoryEntry, error) {
	if len(dto.Items) == 0 {
		return nil, invalidf("basket is empty")
	}

	rows := make([]*models.InventoryRow, 0, len(dto.Items))
	for i, line := range dto.Items {
		if line.Quantity <= 0 {
			return nil, invalidf("items[%d]: quantity must be positive", i)
		}
		expiry, err := parseDate(line.ExpiryDate)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		item, err := s.resolveItem(ctx, line.ItemID, EnsureItemDTO{Name: line.Name})
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		rows = append(rows, &models.InventoryRow{
			ItemID:     item.ID,
			Item:       *item,
			ExpiryDate: s.defaultExpiry(expiry, item),
			Quantity:   line.Quantity,
		})
	}

	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	entries := s.entries(rows)
	utils.Log.Info("Basket checked out", zap.Int("rows", len(entries)))
	for _, e := range entries {
		s.publish(realtime.KindInventoryCreated, e.ID, e)
	}
	return entries, nil
}

// AvailableItemIDs - items with at least one row of positive quantity
func (s *InventoryService) AvailableItemIDs(ctx context.Context) (matcher.IDSet, error) {
	ids, err := s.repo.AvailableItemIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load available items: %w", err)
	}
	return matcher.NewIDSet(ids...), nil
}

// HasInventory reports whether any row exists, regardless of quantity.
func (s *InventoryService) HasInventory(ctx context.Context) (bool, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count inventory: %w", err)
	}
	return n > 0, nil
}

// ResolveSelection merges the item ids of the picked pantry rows with the
// basket entries of positive quantity. Unknown row ids are skipped.
func (s *InventoryService) ResolveSelection(ctx context.Context, sel Selection) (matcher.IDSet, error) {
	ids := matcher.NewIDSet()

	for itemID, qty := range sel.Basket {
		if qty < 0 {
			return nil, invalidf("basket quantity for item %d must not be negative", itemID)
		}
		if qty > 0 {
			ids.Add(itemID)
		}
	}

	if len(sel.PantryRowIDs) > 0 {
		rows, err := s.repo.FindByIDs(ctx, sel.PantryRowIDs)
		if err != nil {
			return nil, fmt.Errorf("load selected rows: %w", err)
		}
		for _, row := range rows {
			ids.Add(row.ItemID)
		}
	}
	return ids, nil
}

func (s *InventoryService) resolveItem(ctx context.Context, itemID *uint, byName EnsureItemDTO) (*models.Item, error) {
	hasName := strings.TrimSpace(byName.Name) != ""
	switch {
	case itemID != nil && hasName:
		return nil, invalidf("give either item_id or name, not both")
	case itemID != nil:
		return s.catalog.GetItem(ctx, *itemID)
	case hasName:
		item, _, err := s.catalog.EnsureItem(ctx, byName)
		return item, err
	default:
		return nil, invalidf("item_id or name is required")
	}
}

func (s *InventoryService) defaultExpiry(given *datatypes.Date, item *models.Item) *datatypes.Date {
	if given != nil {
		return given
	}
	if item.ShelfLifeDays == nil || *item.ShelfLifeDays <= 0 {
		return nil
	}
	d := datatypes.Date(s.today().AddDate(0, 0, *item.ShelfLifeDays))
	return &d
}

func (s *InventoryService) publish(kind string, id uint, payload any) {
	s.publisher.Publish(realtime.Event{Kind: kind, ID: id, Payload: payload, At: s.now()})
}

func (s *InventoryService) today() time.Time {
	return dateOf(s.now())
}

func (s *InventoryService) entries(rows []*models.InventoryRow) []InventoryEntry {
	out := make([]InventoryEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.entry(row))
	}
	return out
}

func (s *InventoryService) entry(row *models.InventoryRow) InventoryEntry {
	e := InventoryEntry{
		ID:            row.ID,
		ItemID:        row.ItemID,
		Name:          row.Item.Name,
		Category:      row.Item.Category,
		ShelfLifeDays: row.Item.ShelfLifeDays,
		PhotoPath:     row.Item.PhotoPath,
		Quantity:      row.Quantity,
		Cost:          row.Cost,
		Unit:          row.Unit,
		BinName:       row.BinName,
		Notes:         row.Notes,
		CreatedAt:     row.CreatedAt,
	}
	if row.ExpiryDate != nil {
		expiry := dateOf(time.Time(*row.ExpiryDate))
		formatted := expiry.Format(dateLayout)
		days := int(expiry.Sub(s.today()).Hours() / 24)
		e.ExpiryDate = &formatted
		e.DaysUntilExpiry = &days
	}
	return e
}

// dateOf drops the clock part, keeping the calendar day of t.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDate(raw *string) (*datatypes.Date, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, invalidf("date %q is not YYYY-MM-DD", *raw)
	}
	d := datatypes.Date(t)
	return &d, nil
}
