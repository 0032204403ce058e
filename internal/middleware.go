package internal

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Chave HS256 compartilhada entre login e middleware
func jwtKey() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("dev-secret")
}

// AuthMiddleware valida o bearer token e injeta user_id no contexto.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			RespondError(c, http.StatusUnauthorized, "token ausente")
			return
		}
		token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return jwtKey(), nil
		})
		if err != nil || !token.Valid {
			RespondError(c, http.StatusUnauthorized, "token inválido")
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			RespondError(c, http.StatusUnauthorized, "token inválido")
			return
		}
		uid, ok := claims["user_id"].(float64)
		if !ok || uid <= 0 {
			RespondError(c, http.StatusUnauthorized, "token inválido")
			return
		}
		c.Set("user_id", uint(uid))
		c.Next()
	}
}
