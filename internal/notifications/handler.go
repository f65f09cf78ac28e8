package notifications

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/equinor/fusion-app-resources-sub003/internal/auth"
)

// Handler exposes a recipient's notification feed.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers notification routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/notifications")
	{
		group.GET("", h.List)
		group.POST("/:notificationId/seen", h.MarkSeen)
	}
}

func (h *Handler) List(c *gin.Context) {
	actor := auth.ActorFrom(c)
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	out, err := h.service.ListForRecipient(c.Request.Context(), actor.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": out})
}

func (h *Handler) MarkSeen(c *gin.Context) {
	id, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "notificationId must be a uuid"})
		return
	}
	if err := h.service.MarkSeen(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}
