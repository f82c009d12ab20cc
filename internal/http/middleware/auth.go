package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"busline/internal/domain/models"
)

const (
	userIDKey = "user_id"
	roleKey   = "user_role"
)

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":      msg,
		"code":       "unauthorized",
		"request_id": GetRequestID(c),
	})
}

// Auth validates the bearer token and stores the caller's id and role in
// the context. Handlers that need the full profile load it themselves.
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "invalid token claims")
			return
		}
		sub, ok := claims["sub"].(float64)
		if !ok || sub <= 0 {
			abortUnauthorized(c, "invalid token claims")
			return
		}
		role, _ := claims["role"].(string)

		c.Set(userIDKey, int64(sub))
		c.Set(roleKey, models.ParseRole(role))
		c.Next()
	}
}

// UserID returns the authenticated caller's id, 0 when unauthenticated.
func UserID(c *gin.Context) int64 {
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// UserRole returns the authenticated caller's role.
func UserRole(c *gin.Context) models.Role {
	if v, ok := c.Get(roleKey); ok {
		if r, ok := v.(models.Role); ok {
			return r
		}
	}
	return models.RoleNormalUser
}

// RequireRoles rejects callers whose role is not in the allowed set.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[UserRole(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "insufficient role",
				"code":       "forbidden",
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Next()
	}
}
