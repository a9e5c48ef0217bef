package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	inventorySheet = "Inventory"
	mealsSheet     = "Meals"
)

// ExportService writes spreadsheets for people who keep the pantry in Excel.
type ExportService struct {
	inventory *InventoryService
	meals     *MealService
}

func NewExportService(inventory *InventoryService, meals *MealService) *ExportService {
	return &ExportService{inventory: inventory, meals: meals}
}

// WriteInventoryXLSX writes the pantry and the current suggestions as a
// two-sheet workbook.
func (s *ExportService) WriteInventoryXLSX(ctx context.Context, w io.Writer) error {
	entries, err := s.inventory.List(ctx)
	if err != nil {
		return err
	}
	suggestions, err := s.meals.Suggest(ctx, MealQuery{})
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", inventorySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := setRow(f, inventorySheet, 1, []interface{}{
		"ID", "Item", "Category", "Expiry date", "Days left", "Quantity", "Unit", "Cost", "Bin", "Notes",
	}); err != nil {
		return err
	}
	for i, e := range entries {
		row := []interface{}{e.ID, e.Name, deref(e.Category), deref(e.ExpiryDate), "", e.Quantity, e.Unit, "", e.BinName, e.Notes}
		if e.DaysUntilExpiry != nil {
			row[4] = *e.DaysUntilExpiry
		}
		if e.Cost.Valid {
			row[7] = e.Cost.Decimal.InexactFloat64()
		}
		if err := setRow(f, inventorySheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(mealsSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	if err := setRow(f, mealsSheet, 1, []interface{}{"Meal", "Score", "Have", "Missing"}); err != nil {
		return err
	}
	for i, r := range suggestions.Ranked {
		row := []interface{}{r.Name, r.Score, strings.Join(r.MatchedItemNames, ", "), strings.Join(r.MissingItemNames, ", ")}
		if err := setRow(f, mealsSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("fill %s row %d: %w", sheet, row, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
