// Package matcher ranks meals by how many of their ingredients are on hand.
//
// Everything here is a pure function of its arguments: callers fetch the
// available item ids and the recipes first, then call Match or Browse.
package matcher

import (
	"sort"
)

// DefaultLimit is used when Match is called with a non-positive limit.
const DefaultLimit = 5

// Ingredient is one required catalog item of a recipe.
type Ingredient struct {
	ItemID uint   `json:"item_id"`
	Name   string `json:"name"`
}

// Recipe is a meal with its ingredient set in insertion order.
type Recipe struct {
	ID          uint
	Name        string
	Description *string
	Ingredients []Ingredient
}

// Result is one ranked meal suggestion.
type Result struct {
	MealID           uint     `json:"meal_id"`
	Name             string   `json:"name"`
	Description      *string  `json:"description"`
	TotalItems       int      `json:"total_items"`
	MatchedItems     int      `json:"matched_items"`
	Score            float64  `json:"score"`
	MissingCount     int      `json:"missing_count"`
	MatchedItemNames []string `json:"matched_item_names"`
	MissingItemNames []string `json:"missing_item_names"`
	MissingItemIDs   []uint   `json:"missing_item_ids"`
}

// Listing is the unranked browse-mode view of a meal.
type Listing struct {
	MealID           uint         `json:"meal_id"`
	Name             string       `json:"name"`
	Description      *string      `json:"description"`
	TotalItems       int          `json:"total_items"`
	Ingredients      []Ingredient `json:"ingredients"`
	ItemNames        []string     `json:"item_names"`
	MatchedItemNames []string     `json:"matched_item_names"`
}

// Match scores every recipe against available, drops recipes without a
// single matched ingredient, orders the rest and keeps at most limit.
//
// Order: matched desc, missing asc, meal id asc.
func Match(available IDSet, recipes []Recipe, limit int) []Result {
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := make([]Result, 0)
	if available.Len() == 0 {
		return results
	}

	for _, r := range recipes {
		res, ok := score(r, available)
		if !ok {
			continue
		}
		results = append(results, res)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.MatchedItems != b.MatchedItems {
			return a.MatchedItems > b.MatchedItems
		}
		if a.MissingCount != b.MissingCount {
			return a.MissingCount < b.MissingCount
		}
		return a.MealID < b.MealID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// score partitions the recipe's own ingredient list. All counts come from
// that list so matched+missing == total always holds.
func score(r Recipe, available IDSet) (Result, bool) {
	ingredients := dedupe(r.Ingredients)

	res := Result{
		MealID:           r.ID,
		Name:             r.Name,
		Description:      r.Description,
		TotalItems:       len(ingredients),
		MatchedItemNames: make([]string, 0, len(ingredients)),
		MissingItemNames: make([]string, 0, len(ingredients)),
		MissingItemIDs:   make([]uint, 0, len(ingredients)),
	}

	for _, ing := range ingredients {
		if available.Has(ing.ItemID) {
			res.MatchedItemNames = append(res.MatchedItemNames, ing.Name)
			continue
		}
		res.MissingItemNames = append(res.MissingItemNames, ing.Name)
		res.MissingItemIDs = append(res.MissingItemIDs, ing.ItemID)
	}

	res.MatchedItems = len(res.MatchedItemNames)
	res.MissingCount = len(res.MissingItemNames)

	if res.TotalItems == 0 || res.MatchedItems == 0 {
		return res, false
	}
	res.Score = float64(res.MatchedItems) / float64(res.TotalItems)
	return res, true
}

// Browse lists every recipe ordered by id without scoring.
func Browse(recipes []Recipe) []Listing {
	out := make([]Listing, 0, len(recipes))
	for _, r := range recipes {
		ingredients := dedupe(r.Ingredients)
		names := make([]string, 0, len(ingredients))
		for _, ing := range ingredients {
			names = append(names, ing.Name)
		}
		out = append(out, Listing{
			MealID:           r.ID,
			Name:             r.Name,
			Description:      r.Description,
			TotalItems:       len(ingredients),
			Ingredients:      ingredients,
			ItemNames:        names,
			MatchedItemNames: []string{},
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MealID < out[j].MealID })
	return out
}

// dedupe keeps the first occurrence of every item id.
func dedupe(in []Ingredient) []Ingredient {
	seen := make(map[uint]struct{}, len(in))
	out := make([]Ingredient, 0, len(in))
	for _, ing := range in {
		if _, ok := seen[ing.ItemID]; ok {
			continue
		}
		seen[ing.ItemID] = struct{}{}
		out = append(out, ing)
	}
	return out
}
