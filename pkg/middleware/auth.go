package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/EllieBekrian/cab432/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// NewAuthMiddleware verifies the request's token and attaches the
// acting identity (username, role) to the context. The token comes
// from the auth_token cookie or an Authorization bearer header.
func NewAuthMiddleware() gin.HandlerFunc {
	secret := []byte(viper.GetString("security.jwt_secret"))

	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		tokenStr, err := c.Cookie("auth_token")
		if err != nil {
			if !errors.Is(err, http.ErrNoCookie) {
				zap.L().Error("Failed to get token cookie", zap.Error(err))
			}

			bearer := c.GetHeader("Authorization")
			if after, ok := strings.CutPrefix(bearer, "Bearer "); ok {
				tokenStr = after
			}
		}

		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "No token provided",
				"requestID": requestID,
			})
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
			}

			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Invalid or expired token",
				"requestID": requestID,
			})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Invalid or expired token",
				"requestID": requestID,
			})
			return
		}

		if exp, ok := claims["exp"].(float64); !ok || time.Now().Unix() >= int64(exp) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Invalid or expired token",
				"requestID": requestID,
			})
			return
		}

		username, _ := claims["username"].(string)
		if username == "" {
			username, _ = claims["sub"].(string)
		}

		if username == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Invalid or expired token",
				"requestID": requestID,
			})
			return
		}

		role, _ := claims["role"].(string)
		if role != model.RoleAdmin {
			role = model.RoleUser
		}

		c.Set("username", username)
		c.Set("role", role)
		c.Next()
	}
}

// AdminOnly gates a route to identities carrying the admin role. Must
// run after NewAuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		if c.GetString("role") != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "Admin only",
				"requestID": requestID,
			})
			return
		}

		c.Next()
	}
}
