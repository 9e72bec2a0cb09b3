package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/sjd-portal/grievance-api/internal/middleware"
	"github.com/sjd-portal/grievance-api/internal/models"
	appErrors "github.com/sjd-portal/grievance-api/pkg/errors"
)

// userLoader resolves an account by ID. Satisfied by service.UserService.
type userLoader interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

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

// actorFromContext resolves the full acting account from the session
// claims. Tokens outlive deletion by up to their expiry, so the deleted
// flag is re-checked here.
func actorFromContext(c *gin.Context, users userLoader) (*models.User, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := users.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account has been deactivated")
	}
	return user, nil
}
