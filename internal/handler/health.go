package handler

import (
	"net/http"
	"time"

	"metatags-backend/internal/model"

	"github.com/gin-gonic/gin"
)

// Health GET /health
func Health(provider, modelName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, model.HealthResponse{
			Status:    "ok",
			Provider:  provider,
			Model:     modelName,
			Timestamp: time.Now().Unix(),
		})
	}
}
