package middlewares

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/clearwm/clearwm-service/config"
	"github.com/clearwm/clearwm-service/utils"
)

// AuthMiddleware validates a bearer token when an auth secret is configured.
// Without a secret the API is open, matching the original deployment.
func AuthMiddleware(cfg *config.EnvConfig) gin.HandlerFunc {
	secret := cfg.Auth.SecretKey

	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenString == "" {
			utils.JSON401(c, "missing bearer token")
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			utils.JSON401(c, "invalid token")
			c.Abort()
			return
		}

		c.Next()
	}
}
