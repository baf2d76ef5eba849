package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Storage  string `json:"storage"`
}

// HealthCheck reports whether the database and file storage are reachable.
// A nil database check means the service runs on in-memory stores.
// @Summary Health check
// @Description Reports database and file storage reachability
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func HealthCheck(database, storage func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		response := HealthResponse{Status: "ok", Database: "not configured", Storage: "ok"}
		code := http.StatusOK

		if database != nil {
			response.Database = "connected"
			if err := database(ctx); err != nil {
				response.Database = "disconnected"
				code = http.StatusServiceUnavailable
			}
		}
		if storage != nil {
			if err := storage(ctx); err != nil {
				response.Storage = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if code != http.StatusOK {
			response.Status = "degraded"
		}
		c.JSON(code, response)
	}
}
