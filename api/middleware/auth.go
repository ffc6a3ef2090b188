package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"example.com/supplychain/services/tracker/internal/models"
	"example.com/supplychain/services/tracker/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// principalContextKey is the gin context key holding the authenticated
// principal
const principalContextKey = "principal"

// APIKeyAuth validates bearer API keys from the Authorization header and
// stores the resulting principal in the request context. Handlers pass the
// principal explicitly into tracker operations; nothing downstream reads
// authentication state from globals.
func APIKeyAuth(repo repository.Repository, log *logrus.Logger, requiredLevel models.AuthorizationLevel) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid Authorization header format. Expected: 'Bearer {token}'",
			})
			c.Abort()
			return
		}

		token := parts[1]

		apiKey, err := repo.GetAPIKeyByKey(c.Request.Context(), token)
		if err != nil {
			log.WithError(err).Warn("Invalid API key")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid API key",
			})
			c.Abort()
			return
		}

		if apiKey.ExpiresAt != nil && apiKey.ExpiresAt.Before(time.Now()) {
			log.Warn("Expired API key")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "API key expired",
			})
			c.Abort()
			return
		}

		if apiKey.AuthorizationLevel < requiredLevel {
			log.Warnf("Insufficient permissions. Required: %d, Provided: %d",
				requiredLevel, apiKey.AuthorizationLevel)
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			c.Abort()
			return
		}

		// Update last used timestamp without blocking the request
		now := time.Now()
		apiKey.LastUsedAt = &now
		go func() {
			repo.UpdateAPIKey(context.Background(), apiKey)
		}()

		c.Set(principalContextKey, models.Principal{
			KeyID: apiKey.ID,
			Name:  apiKey.Name,
			Level: apiKey.AuthorizationLevel,
		})

		c.Next()
	}
}

// GetPrincipal returns the authenticated principal stored by APIKeyAuth.
// Routes without auth middleware yield the zero principal.
func GetPrincipal(c *gin.Context) models.Principal {
	if v, ok := c.Get(principalContextKey); ok {
		if p, ok := v.(models.Principal); ok {
			return p
		}
	}
	return models.Principal{}
}
