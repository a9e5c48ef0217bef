package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/alenapavlenkko/expireassist/internal/matcher"
	"github.com/alenapavlenkko/expireassist/internal/models"
	"github.com/alenapavlenkko/expireassist/internal/repository"
	"github.com/alenapavlenkko/expireassist/pkg/utils"
)

const (
	ModeRanked = "ranked"
	ModeBrowse = "browse"

	// MaxLimit caps any requested result count.
	MaxLimit = 50
)

// MealSuggestions is either a ranked list or a browse listing, never both.
type MealSuggestions struct {
	Mode   string            `json:"mode"`
	Ranked []matcher.Result  `json:"ranked,omitempty"`
	Browse []matcher.Listing `json:"browse,omitempty"`
}

type MealService struct {
	meals        repository.MealRepository
	recs         repository.RecommendationRepository
	inventory    *InventoryService
	defaultLimit int
}

func NewMealService(
	meals repository.MealRepository,
	recs repository.RecommendationRepository,
	inventory *InventoryService,
	defaultLimit int,
) *MealService {
	if defaultLimit <= 0 {
		defaultLimit = matcher.DefaultLimit
	}
	return &MealService{meals: meals, recs: recs, inventory: inventory, defaultLimit: defaultLimit}
}

// Suggest answers GET /meals.
//
//	item_ids given           -> ranked over the parsed ids (400 if none parse)
//	item_ids absent, stock   -> ranked over available item ids
//	only zero-quantity rows  -> ranked, empty
//	no inventory rows at all -> browse every meal
func (s *MealService) Suggest(ctx context.Context, q MealQuery) (*MealSuggestions, error) {
	limit := s.limit(q.Limit)

	if q.ItemIDs != nil {
		ids, rejected := matcher.ParseIDs(*q.ItemIDs)
		if ids.Len() == 0 {
			return nil, &InvalidIDsError{Param: "item_ids", Rejected: rejected}
		}
		if len(rejected) > 0 {
			utils.Log.Debug("Ignoring invalid item ids", zap.Strings("rejected", rejected))
		}
		ranked, err := s.Rank(ctx, ids, limit)
		if err != nil {
			return nil, err
		}
		return &MealSuggestions{Mode: ModeRanked, Ranked: ranked}, nil
	}

	available, err := s.inventory.AvailableItemIDs(ctx)
	if err != nil {
		return nil, err
	}
	if available.Len() == 0 {
		hasRows, err := s.inventory.HasInventory(ctx)
		if err != nil {
			return nil, err
		}
		if !hasRows {
			listing, err := s.ListMeals(ctx)
			if err != nil {
				return nil, err
			}
			return &MealSuggestions{Mode: ModeBrowse, Browse: listing}, nil
		}
	}

	ranked, err := s.Rank(ctx, available, limit)
	if err != nil {
		return nil, err
	}
	return &MealSuggestions{Mode: ModeRanked, Ranked: ranked}, nil
}

// MatchSelection ranks meals against an explicit selection. An empty
// selection yields an empty ranked list.
func (s *MealService) MatchSelection(ctx context.Context, sel Selection, limit int) ([]matcher.Result, error) {
	ids, err := s.inventory.ResolveSelection(ctx, sel)
	if err != nil {
		return nil, err
	}
	return s.Rank(ctx, ids, s.limit(limit))
}

// Rank loads meals sharing at least one item with ids and scores them.
func (s *MealService) Rank(ctx context.Context, ids matcher.IDSet, limit int) ([]matcher.Result, error) {
	if ids.Len() == 0 {
		return []matcher.Result{}, nil
	}
	meals, err := s.meals.FindWithAnyItem(ctx, ids.Sorted())
	if err != nil {
		return nil, fmt.Errorf("load candidate meals: %w", err)
	}
	return matcher.Match(ids, recipes(meals), s.limit(limit)), nil
}

// ListMeals - browse listing of every meal
func (s *MealService) ListMeals(ctx context.Context) ([]matcher.Listing, error) {
	meals, err := s.meals.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	return matcher.Browse(recipes(meals)), nil
}

// GetMeal - one meal with its ingredients
func (s *MealService) GetMeal(ctx context.Context, id uint) (*matcher.Listing, error) {
	meal, err := s.meals.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "meal", id)
	}
	listing := matcher.Browse([]matcher.Recipe{toRecipe(meal)})
	return &listing[0], nil
}

// Recommend ranks meals against the current inventory and stores the
// results. Nothing is stored when nothing is in stock.
func (s *MealService) Recommend(ctx context.Context, limit int) ([]*models.Recommendation, error) {
	available, err := s.inventory.AvailableItemIDs(ctx)
	if err != nil {
		return nil, err
	}
	ranked, err := s.Rank(ctx, available, limit)
	if err != nil {
		return nil, err
	}

	recs := make([]*models.Recommendation, 0, len(ranked))
	for _, r := range ranked {
		missing, err := json.Marshal(r.MissingItemNames)
		if err != nil {
			return nil, fmt.Errorf("encode missing items: %w", err)
		}
		recs = append(recs, &models.Recommendation{
			MealID:       r.MealID,
			MealName:     r.Name,
			MissingItems: datatypes.JSON(missing),
			Score:        r.Score,
			Notes:        fmt.Sprintf("%d of %d ingredients on hand", r.MatchedItems, r.TotalItems),
		})
	}
	if len(recs) == 0 {
		return recs, nil
	}

	if err := s.recs.CreateBatch(ctx, recs); err != nil {
		return nil, fmt.Errorf("save recommendations: %w", err)
	}
	utils.Log.Info("Recommendations stored", zap.Int("count", len(recs)))
	return recs, nil
}

// ListRecommendations - newest first
func (s *MealService) ListRecommendations(ctx context.Context, limit int) ([]*models.Recommendation, error) {
	recs, err := s.recs.FindRecent(ctx, s.limit(limit))
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	return recs, nil
}

func (s *MealService) limit(n int) int {
	if n <= 0 {
		return s.defaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

func recipes(meals []*models.Meal) []matcher.Recipe {
	out := make([]matcher.Recipe, 0, len(meals))
	for _, m := range meals {
		out = append(out, toRecipe(m))
	}
	return out
}

func toRecipe(m *models.Meal) matcher.Recipe {
	ings := make([]models.MealItem, len(m.Ingredients))
	copy(ings, m.Ingredients)
	sort.SliceStable(ings, func(i, j int) bool { return ings[i].Position < ings[j].Position })

	r := matcher.Recipe{ID: m.ID, Name: m.Name, Description: m.Description}
	for _, ing := range ings {
		r.Ingredients = append(r.Ingredients, matcher.Ingredient{ItemID: ing.ItemID, Name: ing.Item.Name})
	}
	return r
}
