package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alenapavlenkko/expireassist/internal/realtime"
	"github.com/alenapavlenkko/expireassist/internal/service"
	"github.com/alenapavlenkko/expireassist/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers holds the services behind the HTTP API.
type Handlers struct {
	catalog   *service.CatalogService
	inventory *service.InventoryService
	meals     *service.MealService
	export    *service.ExportService
	hub       *realtime.Hub

	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

// NewHandlers - hub may be nil, then /ws answers 503
func NewHandlers(
	catalog *service.CatalogService,
	inventory *service.InventoryService,
	meals *service.MealService,
	export *service.ExportService,
	hub *realtime.Hub,
) *Handlers {
	return &Handlers{
		catalog:   catalog,
		inventory: inventory,
		meals:     meals,
		export:    export,
		hub:       hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingInterval: 30 * time.Second,
	}
}

// ==================== items ====================

func (h *Handlers) ListItems(c *gin.Context) {
	items, err := h.catalog.ListItems(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handlers) GetItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	item, err := h.catalog.GetItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// EnsureItem - 201 when the item was added, 200 when it already existed
func (h *Handlers) EnsureItem(c *gin.Context) {
	var input service.EnsureItemDTO
	if !bindJSON(c, &input) {
		return
	}
	item, created, err := h.catalog.EnsureItem(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, item)
}

// ==================== inventory ====================

func (h *Handlers) ListInventory(c *gin.Context) {
	var (
		entries []service.InventoryEntry
		err     error
	)
	if raw, ok := c.GetQuery("expiring_within"); ok {
		days, convErr := strconv.Atoi(raw)
		if convErr != nil {
			badRequest(c, "expiring_within must be a whole number of days")
			return
		}
		entries, err = h.inventory.Expiring(c.Request.Context(), days)
	} else {
		entries, err = h.inventory.List(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handlers) GetInventory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entry, err := h.inventory.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handlers) CreateInventory(c *gin.Context) {
	var input service.CreateInventoryDTO
	if !bindJSON(c, &input) {
		return
	}
	entry, err := h.inventory.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *Handlers) UpdateInventory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input service.UpdateInventoryDTO
	if !bindJSON(c, &input) {
		return
	}
	entry, err := h.inventory.Update(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handlers) DeleteInventory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entry, err := h.inventory.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handlers) Checkout(c *gin.Context) {
	var input service.CheckoutDTO
	if !bindJSON(c, &input) {
		return
	}
	entries, err := h.inventory.Checkout(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entries)
}

// ExportInventory builds the workbook in memory so a failure still
// produces a JSON error instead of a truncated file.
func (h *Handlers) ExportInventory(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.export.WriteInventoryXLSX(c.Request.Context(), &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="inventory.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ==================== meals ====================

// SuggestMeals answers with a JSON array. X-Meals-Mode tells ranked
// results from the browse listing.
func (h *Handlers) SuggestMeals(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	q := service.MealQuery{Limit: limit}
	if raw, present := c.GetQuery("item_ids"); present {
		q.ItemIDs = &raw
	}

	res, err := h.meals.Suggest(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header(mealsModeHeader, res.Mode)
	if res.Mode == service.ModeBrowse {
		c.JSON(http.StatusOK, res.Browse)
		return
	}
	c.JSON(http.StatusOK, res.Ranked)
}

func (h *Handlers) MatchSelection(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	var sel service.Selection
	if !bindJSON(c, &sel) {
		return
	}
	ranked, err := h.meals.MatchSelection(c.Request.Context(), sel, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header(mealsModeHeader, service.ModeRanked)
	c.JSON(http.StatusOK, ranked)
}

func (h *Handlers) GetMeal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	meal, err := h.meals.GetMeal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

func (h *Handlers) Recommend(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	recs, err := h.meals.Recommend(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recs)
}

func (h *Handlers) ListRecommendations(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	recs, err := h.meals.ListRecommendations(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

// ==================== realtime ====================

// Stream upgrades to a websocket that receives inventory events.
func (h *Handlers) Stream(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime updates are disabled"})
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Log.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	h.hub.Serve(conn, h.pingInterval)
}

// ==================== helpers ====================

func pathID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid id: "+raw)
		return 0, false
	}
	return uint(id), true
}

func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "limit must be a number")
		return 0, false
	}
	return n, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
