package user

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"cake_back_end/internal/checkout"
	"cake_back_end/internal/handlers"
	"cake_back_end/internal/middleware"
	"cake_back_end/internal/models"
	"cake_back_end/internal/reservation"
	"cake_back_end/internal/services"
)

type CheckoutHandler struct {
	checkout     *checkout.Service
	reservations *reservation.Service
	relay        *services.Relay
}

func NewCheckoutHandler(co *checkout.Service, reservations *reservation.Service, relay *services.Relay) *CheckoutHandler {
	return &CheckoutHandler{checkout: co, reservations: reservations, relay: relay}
}

// DeliveryOptions décrit les modes de remise, leurs frais et les créneaux
func (h *CheckoutHandler) DeliveryOptions(c *gin.Context) {
	policy := h.reservations.Policy()
	c.JSON(http.StatusOK, gin.H{
		"delivery_types": []gin.H{
			{"type": models.DeliveryHome, "fee": h.checkout.DeliveryFee(models.DeliveryHome)},
			{"type": models.DeliveryPickup, "fee": h.checkout.DeliveryFee(models.DeliveryPickup)},
		},
		"slots":         policy.Slots,
		"daily_max":     policy.DailyMax,
		"min_lead_days": policy.MinLeadDays,
		"earliest_date": h.reservations.EarliestDate(),
	})
}

// Checkout transforme le panier en commande. Un créneau perdu entre-temps
// renvoie 409 avec la disponibilité fraîche du jour demandé.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var input checkout.Request
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps JSON invalide"})
		return
	}
	ctx := c.Request.Context()

	order, err := h.checkout.PlaceOrder(ctx, middleware.CartID(c), input)
	switch {
	case err == nil:
	case reservation.IsCapacityError(err):
		body := gin.H{"error": err.Error(), "retry": true}
		if day, derr := h.reservations.Day(ctx, input.Date); derr == nil {
			body["availability"] = day
		} else {
			log.Printf("⚠️ Disponibilité fraîche indisponible pour %s: %v", input.Date, derr)
		}
		c.JSON(http.StatusConflict, body)
		return
	case errors.Is(err, reservation.ErrDateNotSelectable):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":         err.Error(),
			"earliest_date": h.reservations.EarliestDate(),
		})
		return
	default:
		handlers.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":         order,
		"whatsapp_link": h.relay.WhatsAppLink(order),
	})
}
