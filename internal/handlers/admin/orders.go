package admin

import (
	"context"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cake_back_end/internal/handlers"
	"cake_back_end/internal/models"
	"cake_back_end/internal/services"
)

// SignedURLTTL : durée de validité des liens d'images renvoyés à l'admin
const SignedURLTTL = time.Hour

// =============================================
// COMMANDES
// =============================================

// ListOrders filtre optionnellement par ?status= et ?date=
func (h *Handler) ListOrders(c *gin.Context) {
	status := models.OrderStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut inconnu"})
		return
	}
	date := c.Query("date")

	orders, err := h.Store.ListOrders(c.Request.Context())
	if err != nil {
		handlers.WriteError(c, err)
		return
	}

	filtered := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if status != "" && o.Status != status {
			continue
		}
		if date != "" && o.DeliveryDate != date {
			continue
		}
		filtered = append(filtered, o)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	c.JSON(http.StatusOK, gin.H{"orders": filtered, "count": len(filtered)})
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := handlers.ParamUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	order, err := h.Store.GetOrder(ctx, id)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}

	h.signImages(ctx, &order)
	c.JSON(http.StatusOK, gin.H{
		"order":         order,
		"whatsapp_link": h.Relay.WhatsAppLink(order),
	})
}

// signImages remplace les URLs d'objets par des liens signés temporaires
func (h *Handler) signImages(ctx context.Context, order *models.Order) {
	if h.Images == nil {
		return
	}
	for i := range order.Items {
		urls := make([]string, 0, len(order.Items[i].ImageURLs))
		for _, raw := range order.Items[i].ImageURLs {
			signed, err := h.Images.SignedURL(ctx, raw, SignedURLTTL)
			if err != nil {
				log.Printf("⚠️ Signature de %s échouée: %v", raw, err)
				signed = raw
			}
			urls = append(urls, signed)
		}
		order.Items[i].ImageURLs = urls
	}
}

// GetOrderQR renvoie le QR code PNG du lien WhatsApp de la commande
func (h *Handler) GetOrderQR(c *gin.Context) {
	id, ok := handlers.ParamUUID(c, "id")
	if !ok {
		return
	}
	order, err := h.Store.GetOrder(c.Request.Context(), id)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	link := h.Relay.WhatsAppLink(order)
	if link == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Numéro WhatsApp non configuré"})
		return
	}
	png, err := services.WhatsAppQR(link)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := handlers.ParamUUID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || !input.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut invalide", "allowed": models.OrderStatuses})
		return
	}
	ctx := c.Request.Context()

	current, err := h.Store.GetOrder(ctx, id)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	if !current.Status.CanTransition(input.Status) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Transition de statut non autorisée",
			"current": current.Status,
			"target":  input.Status,
		})
		return
	}
	if current.Status == input.Status {
		c.JSON(http.StatusOK, current)
		return
	}

	order, err := h.applyStatus(ctx, current, input.Status)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// applyStatus enregistre le statut puis libère le créneau et prévient le flux et le client
func (h *Handler) applyStatus(ctx context.Context, current models.Order, next models.OrderStatus) (models.Order, error) {
	order, err := h.Store.UpdateOrderStatus(ctx, current.ID, next)
	if err != nil {
		return models.Order{}, err
	}
	log.Printf("📦 Commande %s: %s → %s", order.ID, current.Status, order.Status)

	if order.Status == models.OrderCancelled {
		h.releaseReservation(ctx, order)
	}
	if h.Feed.Enabled() {
		if err := h.Feed.PublishStatus(ctx, order); err != nil {
			log.Printf("⚠️ Publication du statut échouée: %v", err)
		}
	}
	if h.Mailer.Enabled() && order.Email != "" {
		go func(o models.Order) {
			mctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.Mailer.NotifyStatus(mctx, o); err != nil {
				log.Printf("⚠️ Email de statut non envoyé à %s: %v", o.Email, err)
			}
		}(order)
	}
	return order, nil
}

// DeleteOrder supprime la commande et libère son créneau
func (h *Handler) DeleteOrder(c *gin.Context) {
	id, ok := handlers.ParamUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	order, err := h.Store.GetOrder(ctx, id)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	if err := h.Store.DeleteOrder(ctx, id); err != nil {
		handlers.WriteError(c, err)
		return
	}
	h.releaseReservation(ctx, order)
	log.Printf("🗑️ Commande %s supprimée", id)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) releaseReservation(ctx context.Context, order models.Order) {
	if order.ReservationID == uuid.Nil {
		return
	}
	if _, err := h.Reservations.CancelReservation(ctx, order.ReservationID); err != nil {
		log.Printf("⚠️ Libération de la réservation %s échouée: %v", order.ReservationID, err)
	}
}

// =============================================
// STATISTIQUES
// =============================================

type ProductStat struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
}

type Stats struct {
	TotalOrders    int                        `json:"total_orders"`
	ByStatus       map[models.OrderStatus]int `json:"by_status"`
	Revenue        string                     `json:"revenue"`
	AverageOrder   string                     `json:"average_order"`
	UpcomingOrders int                        `json:"upcoming_orders"`
	TopProducts    []ProductStat              `json:"top_products"`
}

// ComputeStats : les commandes annulées sont comptées mais exclues du chiffre d'affaires
func ComputeStats(orders []models.Order, today string) Stats {
	stats := Stats{ByStatus: make(map[models.OrderStatus]int), TopProducts: []ProductStat{}}
	revenue := decimal.Zero
	paid := 0
	sold := make(map[uuid.UUID]*ProductStat)

	for _, o := range orders {
		stats.TotalOrders++
		stats.ByStatus[o.Status]++
		if o.Status == models.OrderCancelled {
			continue
		}
		revenue = revenue.Add(o.Total)
		paid++
		if o.DeliveryDate >= today && o.Status != models.OrderDelivered {
			stats.UpcomingOrders++
		}
		for _, item := range o.Items {
			s, ok := sold[item.ProductID]
			if !ok {
				s = &ProductStat{ProductID: item.ProductID, Name: item.Name}
				sold[item.ProductID] = s
			}
			s.Quantity += item.Quantity
		}
	}

	stats.Revenue = revenue.StringFixed(2)
	stats.AverageOrder = "0.00"
	if paid > 0 {
		stats.AverageOrder = revenue.DivRound(decimal.NewFromInt(int64(paid)), 2).StringFixed(2)
	}

	for _, s := range sold {
		stats.TopProducts = append(stats.TopProducts, *s)
	}
	sort.Slice(stats.TopProducts, func(i, j int) bool {
		a, b := stats.TopProducts[i], stats.TopProducts[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		return a.Name < b.Name
	})
	if len(stats.TopProducts) > 5 {
		stats.TopProducts = stats.TopProducts[:5]
	}
	return stats
}

func (h *Handler) GetStats(c *gin.Context) {
	orders, err := h.Store.ListOrders(c.Request.Context())
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, ComputeStats(orders, h.Reservations.Today()))
}
