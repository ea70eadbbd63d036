package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type IHealthHandler interface {
	Health(c *gin.Context)
}

type HealthHandler struct {
	now func() time.Time
}

func NewHealthHandler() IHealthHandler {
	return &HealthHandler{now: time.Now}
}

// Health returns OK for health checks
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": h.now().UTC().Format(time.RFC3339Nano)})
}
