package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cake_back_end/internal/utils"
)

const (
	CartTokenHeader = "X-Cart-Token"
	cartIDKey       = "cart_id"
)

// CartToken exige un jeton de panier invité valide
func CartToken(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(CartTokenHeader)
		if raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Jeton de panier manquant"})
			c.Abort()
			return
		}

		cartID, err := utils.ParseCartToken(secret, raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Jeton de panier invalide"})
			c.Abort()
			return
		}

		c.Set(cartIDKey, cartID)
		c.Next()
	}
}

// CartID retourne l'identifiant posé par CartToken
func CartID(c *gin.Context) string {
	return c.GetString(cartIDKey)
}
