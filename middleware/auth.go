package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TomKlotzPro/openbite/models"
	"github.com/TomKlotzPro/openbite/utils"
)

// ContextIdentityKey stores the authenticated models.Identity inside the Gin context.
const ContextIdentityKey = "identity"

// AuthRequired ensures the request carries a valid bearer token signed with secret.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Abort(ctx, http.StatusUnauthorized, utils.CodeUnauthorized, "authorization header missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Abort(ctx, http.StatusUnauthorized, utils.CodeUnauthorized+1, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Abort(ctx, http.StatusUnauthorized, utils.CodeUnauthorized+2, "empty bearer token")
			return
		}

		claims, err := utils.ParseToken(secret, tokenString)
		if err != nil {
			utils.Abort(ctx, http.StatusUnauthorized, utils.CodeUnauthorized+3, "invalid token")
			return
		}

		ctx.Set(ContextIdentityKey, claims.Identity())
		ctx.Next()
	}
}

// CurrentIdentity returns the identity stored by AuthRequired.
func CurrentIdentity(ctx *gin.Context) (models.Identity, bool) {
	v, ok := ctx.Get(ContextIdentityKey)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	return id, ok && id.ID != ""
}
