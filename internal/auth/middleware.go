package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/equinor/fusion-app-resources-sub003/internal/workflow"
)

const actorKey = "auth.actor"

// Claims are the token claims this service reads. The object id identifies
// the actor across the org chart and profile services.
type Claims struct {
	jwt.RegisteredClaims
	ObjectID string `json:"oid"`
	Name     string `json:"name"`
	Email    string `json:"preferred_username"`
}

// Middleware validates the bearer token and puts the resolved actor on the
// request context.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		var claims Claims
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &claims,
			func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		id, err := uuid.Parse(claims.ObjectID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no usable object id"})
			return
		}
		c.Set(actorKey, workflow.Actor{ID: id, Name: claims.Name, Mail: claims.Email})
		c.Next()
	}
}

// ActorFrom returns the authenticated actor placed by Middleware.
func ActorFrom(c *gin.Context) workflow.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(workflow.Actor); ok {
			return actor
		}
	}
	return workflow.Actor{}
}
