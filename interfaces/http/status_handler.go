package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"multipost/usecase"
)

type IStatusHandler interface {
	Status(c *gin.Context)
	InstagramLink(c *gin.Context)
}

type StatusHandler struct {
	statusUsecase usecase.IStatusUsecase
}

func NewStatusHandler(statusUsecase usecase.IStatusUsecase) IStatusHandler {
	return &StatusHandler{statusUsecase: statusUsecase}
}

// Status handles GET /status/:platform
func (h *StatusHandler) Status(c *gin.Context) {
	st, err := h.statusUsecase.Status(c.Request.Context(), c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"connected": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

// InstagramLink handles GET /auth/instagram/status
func (h *StatusHandler) InstagramLink(c *gin.Context) {
	c.JSON(http.StatusOK, h.statusUsecase.InstagramLink(c.Request.Context()))
}
