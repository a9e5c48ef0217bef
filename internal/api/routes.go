package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alenapavlenkko/expireassist/pkg/utils"
)

// Options configures NewRouter.
type Options struct {
	CORSOrigins  []string
	PhotosDir    string
	PingInterval time.Duration
}

// NewRouter builds the engine with middleware and every route.
func NewRouter(h *Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), AccessLog(utils.Log), gin.Recovery(), CORS(opts.CORSOrigins))

	if opts.PingInterval > 0 {
		h.pingInterval = opts.PingInterval
	}
	SetupRoutes(r, h)

	if opts.PhotosDir != "" {
		r.Static("/pictures", opts.PhotosDir)
	}
	return r
}

func SetupRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// catalog
	items := r.Group("/items")
	items.GET("", h.ListItems)
	items.GET("/:id", h.GetItem)
	items.POST("", h.EnsureItem)

	// pantry
	inventory := r.Group("/inventory")
	inventory.GET("", h.ListInventory)
	inventory.POST("", h.CreateInventory)
	inventory.POST("/checkout", h.Checkout)
	inventory.GET("/export.xlsx", h.ExportInventory)
	inventory.GET("/:id", h.GetInventory)
	inventory.PUT("/:id", h.UpdateInventory)
	inventory.DELETE("/:id", h.DeleteInventory)

	// meals
	meals := r.Group("/meals")
	meals.GET("", h.SuggestMeals)
	meals.POST("/match", h.MatchSelection)
	meals.GET("/:id", h.GetMeal)

	recs := r.Group("/recommendations")
	recs.GET("", h.ListRecommendations)
	recs.POST("", h.Recommend)

	r.GET("/ws", h.Stream)
}
