package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"cake_back_end/internal/cache"
	"cake_back_end/internal/handlers"
	"cake_back_end/internal/handlers/booking"
	"cake_back_end/internal/middleware"
	"cake_back_end/internal/models"
	"cake_back_end/internal/repository"
	"cake_back_end/internal/reservation"
	"cake_back_end/internal/services"
	"cake_back_end/internal/utils"
)

// ImageSigner produit des URLs temporaires pour les images stockées
type ImageSigner interface {
	SignedURL(ctx context.Context, objectURL string, duration time.Duration) (string, error)
}

type Deps struct {
	Store        repository.Store
	Reservations *reservation.Service
	Sessions     *middleware.AdminSessions
	Redis        *redis.Client
	Username     string
	Password     string // en clair ou hash argon2id
	Search       *services.ProductSearch
	Feed         *services.OrderFeed
	Mailer       *utils.Mailer
	Relay        *services.Relay
	Images       ImageSigner // nil sans stockage objet
}

type Handler struct {
	Deps
}

func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d}
}

// =============================================
// CONNEXION
// =============================================

func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant et mot de passe requis"})
		return
	}
	ctx := c.Request.Context()

	if !h.checkCredentials(ctx, input.Username, input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Identifiants invalides"})
		return
	}
	if err := h.Sessions.Login(c); err != nil {
		log.Printf("❌ Erreur sauvegarde session admin: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session indisponible"})
		return
	}
	log.Printf("✅ Connexion admin depuis %s", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"admin": true})
}

func (h *Handler) checkCredentials(ctx context.Context, username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(h.Username)) != 1 {
		return false
	}
	if cache.IsCredentialCached(ctx, h.Redis, username, password) {
		return true
	}
	if !utils.CheckAdminPassword(h.Password, password) {
		return false
	}
	if utils.IsArgon2Hash(h.Password) {
		cache.CacheCredential(ctx, h.Redis, username, password)
	}
	return true
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.Sessions.Logout(c); err != nil {
		log.Printf("⚠️ Erreur fermeture session admin: %v", err)
	}
	cache.InvalidateAuthCache(c.Request.Context(), h.Redis, h.Username)
	c.JSON(http.StatusOK, gin.H{"admin": false})
}

// =============================================
// CAPACITÉ ET RÉSERVATIONS
// =============================================

// GetCapacity : charge par jour relue depuis le store
func (h *Handler) GetCapacity(c *gin.Context) {
	from, to, ok := booking.Range(c, h.Reservations.Today())
	if !ok {
		return
	}
	days, err := h.Reservations.Capacity(c.Request.Context(), from, to)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	policy := h.Reservations.Policy()
	c.JSON(http.StatusOK, gin.H{
		"daily_max":     policy.DailyMax,
		"slots":         policy.Slots,
		"min_lead_days": policy.MinLeadDays,
		"days":          days,
	})
}

func (h *Handler) GetReservations(c *gin.Context) {
	from, to, ok := booking.Range(c, h.Reservations.Today())
	if !ok {
		return
	}
	list, err := h.Reservations.Reservations(c.Request.Context(), from, to)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CancelReservation libère le créneau. Une commande encore active liée à la
// réservation est annulée avec elle ; une commande livrée la conserve (409).
func (h *Handler) CancelReservation(c *gin.Context) {
	id, ok := handlers.ParamUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	r, err := h.Store.GetReservation(ctx, id)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}

	var linked *models.Order
	if r.OrderID != uuid.Nil {
		order, err := h.Store.GetOrder(ctx, r.OrderID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			handlers.WriteError(c, err)
			return
		case order.Status == models.OrderCancelled:
			linked = &order
		case !order.Status.CanTransition(models.OrderCancelled):
			c.JSON(http.StatusConflict, gin.H{
				"error":  "Commande déjà livrée, réservation conservée",
				"order":  order.ID,
				"status": order.Status,
			})
			return
		default:
			cancelled, err := h.applyStatus(ctx, order, models.OrderCancelled)
			if err != nil {
				handlers.WriteError(c, err)
				return
			}
			linked = &cancelled
		}
	}

	// sans effet si applyStatus vient de la libérer
	r, err = h.Reservations.CancelReservation(ctx, id)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservation": r, "order": linked})
}

// =============================================
// RECHERCHE
// =============================================

func (h *Handler) Reindex(c *gin.Context) {
	if !h.Search.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Elasticsearch non configuré"})
		return
	}
	products, err := h.Store.ListProducts(c.Request.Context(), repository.ProductFilter{IncludeInactive: true})
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	indexed, err := h.Search.Reindex(c.Request.Context(), products)
	if err != nil {
		log.Printf("⚠️ Réindexation partielle: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"indexed": indexed, "total": len(products)})
}

// =============================================
// FLUX TEMPS RÉEL DES COMMANDES
// =============================================

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// la session admin a déjà été vérifiée par RequireAdmin
		return true
	},
}

// OrderFeed pousse chaque nouvelle commande et changement de statut
func (h *Handler) OrderFeed(c *gin.Context) {
	if !h.Feed.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Flux indisponible sans Redis"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.Feed.Subscribe(ctx)
	defer pubsub.Close()
	ch := pubsub.Channel()

	// lecture pour détecter la fermeture côté client
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(gin.H{"type": "connected"}); err != nil {
		return
	}

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
