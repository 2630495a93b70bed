package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/atc-endorsement-api/internal/middleware"
	"github.com/noah-isme/atc-endorsement-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext derives the acting identity for audit entries. Requests
// that slipped past the auth middleware fall back to the system actor.
func actorFromContext(c *gin.Context) models.Actor {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.System
	}
	return models.Actor{
		ID:        claims.UserID,
		Role:      claims.Role,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
