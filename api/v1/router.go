package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/equinor/fusion-app-resources-sub003/internal/auth"
	"github.com/equinor/fusion-app-resources-sub003/internal/notifications"
	"github.com/equinor/fusion-app-resources-sub003/internal/requests"
)

// API bundles the handlers exposed under /api/v1.
type API struct {
	Requests      *requests.Handler
	Notifications *notifications.Handler
	JWTSecret     string
}

// Register mounts the versioned API and the unauthenticated health probe.
func Register(r *gin.Engine, api *API) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	group := r.Group("/api/v1", auth.Middleware(api.JWTSecret))
	{
		api.Requests.RegisterRoutes(group)
		api.Notifications.RegisterRoutes(group)
	}
}
