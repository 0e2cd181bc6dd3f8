package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
)

// AuthRequired ensures the request carries a valid bearer token.
func AuthRequired(auth *forum.AuthService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "Unauthorized")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "Unauthorized")
			ctx.Abort()
			return
		}

		id, err := auth.Verify(parts[1])
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40103, forum.Message(err))
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, id.UserID)
		ctx.Set(ContextUsernameKey, id.Username)
		ctx.Next()
	}
}

// CurrentIdentity returns the identity stored by AuthRequired, or the
// anonymous identity on public routes.
func CurrentIdentity(ctx *gin.Context) forum.Identity {
	return forum.Identity{
		UserID:   ctx.GetUint(ContextUserIDKey),
		Username: ctx.GetString(ContextUsernameKey),
	}
}
