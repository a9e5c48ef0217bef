package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alenapavlenkko/expireassist/internal/service"
	"github.com/alenapavlenkko/expireassist/pkg/utils"
)

// respondError maps service errors onto status codes. Storage errors are
// logged and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	var idsErr *service.InvalidIDsError
	switch {
	case errors.As(err, &idsErr):
		rejected := idsErr.Rejected
		if rejected == nil {
			rejected = []string{}
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "rejected": rejected})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		utils.Log.Error("Request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
