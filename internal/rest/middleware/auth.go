package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/settlehq/settle/internal/config"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/security"
	"github.com/settlehq/settle/internal/types"
)

// GuestAuthenticateMiddleware acts as the system user. Only mounted in local mode.
func GuestAuthenticateMiddleware(c *gin.Context) {
	ctx := types.SetUserID(c.Request.Context(), types.DefaultUserID)
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

// AuthenticateMiddleware validates the bearer token and puts its user id in the request context
func AuthenticateMiddleware(cfg *config.Configuration, logger *logger.Logger) gin.HandlerFunc {
	validator := security.NewTokenValidator(cfg)

	return func(c *gin.Context) {
		authHeader := c.GetHeader(types.HeaderAuthorization)
		if authHeader == "" {
			abortUnauthenticated(c, "Authorization header is required")
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			abortUnauthenticated(c, "Invalid authorization header format")
			return
		}

		claims, err := validator.ValidateToken(tokenString)
		if err != nil {
			logger.Debugw("failed to validate token", "error", err)
			c.Error(err)
			c.Abort()
			return
		}

		ctx := types.SetUserID(c.Request.Context(), claims.UserID)
		ctx = context.WithValue(ctx, types.CtxJWT, tokenString)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, hint string) {
	c.Error(ierr.NewError("unauthenticated").
		WithHint(hint).
		Mark(ierr.ErrUnauthenticated))
	c.Abort()
}
