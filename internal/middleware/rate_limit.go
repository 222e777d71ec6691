package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"cake_back_end/internal/cache"
)

const (
	// Limites par endpoint
	LoginMaxAttempts  = 5
	APIMaxRequests    = 100 // Par minute pour les endpoints généraux
	CartMaxWrites     = 20  // Par minute et par panier
	CheckoutMaxOrders = 5   // Par IP sur CheckoutWindow
	SearchMaxRequests = 30

	// Durées de cooldown
	LoginCooldown  = 15 * time.Minute
	APICooldown    = 1 * time.Minute
	CheckoutWindow = 10 * time.Minute
)

// RateLimiter compte les requêtes dans Redis ; sans client Redis tout passe
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// LoginRateLimit limite les tentatives de connexion admin par IP et identifiant
func (l *RateLimiter) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.client == nil {
			c.Next()
			return
		}

		// Lire le body sans le consommer
		bodyBytes, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		var input struct {
			Username string `json:"username"`
		}
		_ = json.Unmarshal(bodyBytes, &input)

		ctx := c.Request.Context()
		who := c.ClientIP() + ":" + input.Username
		key := "login_attempts:" + who
		cooldownKey := "login_cooldown:" + who

		// Vérifier si l'IP est en cooldown
		if l.client.Exists(ctx, cooldownKey).Val() > 0 {
			ttl := l.client.TTL(ctx, cooldownKey).Val()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Trop de tentatives échouées. Réessayez dans %d minutes", int(ttl.Minutes())),
				"retry_after": int(ttl.Seconds()),
			})
			c.Abort()
			return
		}

		attempts, _ := cache.GetRateLimit(ctx, l.client, key)
		if attempts >= LoginMaxAttempts {
			l.client.Set(ctx, cooldownKey, "1", LoginCooldown)
			l.client.Del(ctx, key)

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Trop de tentatives échouées. Accès bloqué pendant %d minutes", int(LoginCooldown.Minutes())),
				"retry_after": int(LoginCooldown.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()

		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			if _, err := cache.IncrementRateLimit(context.WithoutCancel(ctx), l.client, key, LoginCooldown); err != nil {
				log.Printf("⚠️ Compteur de connexion non incrémenté: %v", err)
			}
			if remaining := LoginMaxAttempts - attempts - 1; remaining > 0 {
				c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			}
		case http.StatusOK:
			l.client.Del(context.WithoutCancel(ctx), key, cooldownKey)
		}
	}
}

// limit : fenêtre fixe de maxRequests requêtes par clé
func (l *RateLimiter) limit(prefix string, keyOf func(*gin.Context) string, maxRequests int64, window time.Duration, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := keyOf(c)
		if l.client == nil || id == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := prefix + id
		requests, _ := cache.GetRateLimit(ctx, l.client, key)
		if requests >= maxRequests {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       message,
				"retry_after": int(window.Seconds()),
			})
			c.Abort()
			return
		}

		if _, err := cache.IncrementRateLimit(ctx, l.client, key, window); err != nil {
			log.Printf("⚠️ Rate limit %s indisponible: %v", prefix, err)
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-requests-1))
		c.Next()
	}
}

// APIRateLimit limite le nombre de requêtes par IP (général)
func (l *RateLimiter) APIRateLimit() gin.HandlerFunc {
	return l.limit("api_requests:", (*gin.Context).ClientIP, APIMaxRequests, APICooldown,
		"Trop de requêtes. Réessayez dans 1 minute")
}

// CartRateLimit limite les écritures sur un panier (anti-spam)
func (l *RateLimiter) CartRateLimit() gin.HandlerFunc {
	return l.limit("cart_writes:", CartID, CartMaxWrites, time.Minute,
		"Trop de modifications du panier. Ralentissez un peu")
}

// CheckoutRateLimit limite les commandes passées depuis une même IP
func (l *RateLimiter) CheckoutRateLimit() gin.HandlerFunc {
	return l.limit("checkout:", (*gin.Context).ClientIP, CheckoutMaxOrders, CheckoutWindow,
		"Trop de commandes envoyées. Réessayez plus tard")
}

// SearchRateLimit limite les recherches (anti-spam)
func (l *RateLimiter) SearchRateLimit() gin.HandlerFunc {
	return l.limit("search_requests:", (*gin.Context).ClientIP, SearchMaxRequests, time.Minute,
		"Trop de recherches. Réessayez dans 1 minute")
}
