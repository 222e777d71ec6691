package user

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cake_back_end/internal/cart"
	"cake_back_end/internal/handlers"
	"cake_back_end/internal/middleware"
	"cake_back_end/internal/models"
	"cake_back_end/internal/pricing"
	"cake_back_end/internal/repository"
	"cake_back_end/internal/utils"
)

type CartHandler struct {
	store     repository.Store
	carts     *cart.Service
	jwtSecret string
}

func NewCartHandler(store repository.Store, carts *cart.Service, jwtSecret string) *CartHandler {
	return &CartHandler{store: store, carts: carts, jwtSecret: jwtSecret}
}

// IssueCartToken crée un panier invité
func (h *CartHandler) IssueCartToken(c *gin.Context) {
	token, cartID, err := utils.GenerateCartToken(h.jwtSecret, time.Now())
	if err != nil {
		log.Printf("❌ Erreur génération jeton panier: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Impossible de créer le panier"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "cart_id": cartID})
}

func (h *CartHandler) GetCart(c *gin.Context) {
	current, err := h.carts.Get(c.Request.Context(), middleware.CartID(c))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), middleware.CartID(c)); err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Panier vidé"})
}

type addItemRequest struct {
	ProductID      uuid.UUID         `json:"product_id" binding:"required"`
	Selections     models.Selections `json:"selections"`
	Mode           string            `json:"mode"`
	Quantity       int               `json:"quantity"`
	Notes          string            `json:"notes"`
	CustomImageURL string            `json:"custom_image_url"`
}

// AddToCart recalcule le prix côté serveur puis fige la ligne
func (h *CartHandler) AddToCart(c *gin.Context) {
	var input addItemRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps JSON invalide"})
		return
	}
	ctx := c.Request.Context()

	p, catalog, err := handlers.LoadCatalog(ctx, h.store, input.ProductID)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	quote, err := pricing.QuoteFor(p, input.Selections, catalog, pricing.ParseMode(input.Mode))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	item, err := pricing.BuildCartItem(p, catalog, pricing.LineInput{
		Selections:  quote.Selections,
		Total:       quote.Total,
		Quantity:    input.Quantity,
		Notes:       input.Notes,
		CustomImage: input.CustomImageURL,
	})
	if err != nil {
		handlers.WriteError(c, err)
		return
	}

	current, err := h.carts.Add(ctx, middleware.CartID(c), item)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": item, "cart": current})
}

func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	var input struct {
		Quantity *int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantité requise"})
		return
	}
	current, err := h.carts.UpdateQuantity(c.Request.Context(), middleware.CartID(c), c.Param("itemId"), *input.Quantity)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}

func (h *CartHandler) RemoveCartItem(c *gin.Context) {
	current, err := h.carts.Remove(c.Request.Context(), middleware.CartID(c), c.Param("itemId"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}
