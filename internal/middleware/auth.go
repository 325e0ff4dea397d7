package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/CXmiloxx/secop-app-sub001/internal/util"

	"github.com/gin-gonic/gin"
)

const (
	ctxActor = "actor"
	ctxRole  = "role"
)

// AuthMiddleware verifies the bearer JWT and puts the actor (token subject) and
// role in the context. Tokens are issued elsewhere.
func AuthMiddleware(jwtSecret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenStr = strings.TrimSpace(parts[1])
			}
		}

		if tokenStr == "" {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "missing bearer token")
			c.Abort()
			return
		}

		claims, err := util.ParseToken(jwtSecret, issuer, tokenStr)
		if err != nil {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ctxActor, claims.Subject)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// RequireRole lets the request through only for one of roles. Admin passes every
// check.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c)
		if role == util.RoleAdmin || slices.Contains(roles, role) {
			c.Next()
			return
		}
		util.Error(c, http.StatusForbidden, util.CodeForbidden, "role "+role+" may not perform this operation")
		c.Abort()
	}
}

// Actor is the authenticated user id.
func Actor(c *gin.Context) string {
	return c.GetString(ctxActor)
}

func Role(c *gin.Context) string {
	return c.GetString(ctxRole)
}
