package admin

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cake_back_end/internal/handlers"
	"cake_back_end/internal/models"
	"cake_back_end/internal/pricing"
	"cake_back_end/internal/repository"
)

// productInput : un champ absent du corps garde sa valeur actuelle
type productInput struct {
	Name           *string                `json:"name"`
	Description    *string                `json:"description"`
	ImageURL       *string                `json:"image_url"`
	BasePrice      *decimal.Decimal       `json:"base_price"`
	Category       *string                `json:"category"`
	IsActive       *bool                  `json:"is_active"`
	Kind           *models.ProductKind    `json:"kind"`
	AllowedOptions *models.AllowedOptions `json:"allowed_options"`
	DefaultOptions *models.DefaultOptions `json:"default_options"`
}

func (in productInput) apply(p *models.Product) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.BasePrice != nil {
		p.BasePrice = *in.BasePrice
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.Kind != nil {
		p.Kind = *in.Kind
	}
	if in.AllowedOptions != nil {
		p.AllowedOptions = *in.AllowedOptions
	}
	if in.DefaultOptions != nil {
		p.DefaultOptions = *in.DefaultOptions
	}
}

// index met à jour Elasticsearch sans bloquer la réponse
func (h *Handler) index(p models.Product) {
	if !h.Search.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.Search.IndexProduct(ctx, p); err != nil {
			log.Printf("⚠️ Indexation de %s échouée: %v", p.Name, err)
		}
	}()
}

// =============================================
// PRODUITS
// =============================================

func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.Store.ListProducts(c.Request.Context(), repository.ProductFilter{IncludeInactive: true})
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var input productInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps JSON invalide"})
		return
	}

	now := time.Now().UTC()
	p := models.Product{ID: uuid.New(), IsActive: true, Kind: models.KindReadyMade, CreatedAt: now, UpdatedAt: now}
	input.apply(&p)
	if p.Kind == "" {
		p.Kind = models.KindReadyMade
	}
	if err := pricing.ValidateProduct(p); err != nil {
		handlers.WriteError(c, err)
		return
	}

	if err := h.Store.SaveProduct(c.Request.Context(), p); err != nil {
		handlers.WriteError(c, err)
		return
	}
	log.Printf("✅ Produit créé: %s (%s)", p.Name, p.ID)
	h.index(p)
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := handlers.ParamUUID(c, "id")
	if !ok {
		return
	}
	var input productInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps JSON invalide"})
		return
	}
	ctx := c.Request.Context()

	p, err := h.Store.GetProduct(ctx, id)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	input.apply(&p)
	p.UpdatedAt = time.Now().UTC()
	if err := pricing.ValidateProduct(p); err != nil {
		handlers.WriteError(c, err)
		return
	}

	if err := h.Store.SaveProduct(ctx, p); err != nil {
		handlers.WriteError(c, err)
		return
	}
	h.index(p)
	c.JSON(http.StatusOK, p)
}

// DeleteProduct désactive le produit ; ?permanent=true le supprime réellement
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := handlers.ParamUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if c.Query("permanent") == "true" {
		if err := h.Store.DeleteProduct(ctx, id); err != nil {
			handlers.WriteError(c, err)
			return
		}
		if h.Search.Enabled() {
			if err := h.Search.DeleteProduct(ctx, id); err != nil {
				log.Printf("⚠️ Suppression Elasticsearch de %s échouée: %v", id, err)
			}
		}
		log.Printf("🗑️ Produit %s supprimé", id)
		c.JSON(http.StatusOK, gin.H{"deleted": true})
		return
	}

	p, err := h.Store.GetProduct(ctx, id)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	p.IsActive = false
	p.UpdatedAt = time.Now().UTC()
	if err := h.Store.SaveProduct(ctx, p); err != nil {
		handlers.WriteError(c, err)
		return
	}
	h.index(p)
	c.JSON(http.StatusOK, p)
}

// =============================================
// OPTIONS DE PERSONNALISATION
// =============================================

func (h *Handler) ListOptions(c *gin.Context) {
	t := models.OptionType(c.Query("type"))
	if t != "" && !t.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Type d'option inconnu"})
		return
	}
	options, err := h.Store.ListOptions(c.Request.Context(), t, true)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, options)
}

func (h *Handler) CreateOption(c *gin.Context) {
	// is_active omis : option active
	o := models.CustomizationOption{IsActive: true}
	if err := c.ShouldBindJSON(&o); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps JSON invalide"})
		return
	}
	o.ID = strings.TrimSpace(o.ID)
	if o.ID == "" {
		o.ID = pricing.Slug(o.Name)
	}
	if err := pricing.ValidateOption(o); err != nil {
		handlers.WriteError(c, err)
		return
	}
	ctx := c.Request.Context()

	_, err := h.Store.GetOption(ctx, o.Type, o.ID)
	switch {
	case err == nil:
		c.JSON(http.StatusConflict, gin.H{"error": "Une option avec cet identifiant existe déjà"})
		return
	case !errors.Is(err, repository.ErrNotFound):
		handlers.WriteError(c, err)
		return
	}

	if err := h.Store.SaveOption(ctx, o); err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// UpdateOption : les champs omis gardent leur valeur, type et id sont fixés par l'URL
func (h *Handler) UpdateOption(c *gin.Context) {
	t, id := models.OptionType(c.Param("type")), c.Param("id")
	ctx := c.Request.Context()

	o, err := h.Store.GetOption(ctx, t, id)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	if err := c.ShouldBindJSON(&o); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps JSON invalide"})
		return
	}
	o.Type, o.ID = t, id
	if err := pricing.ValidateOption(o); err != nil {
		handlers.WriteError(c, err)
		return
	}
	if err := h.Store.SaveOption(ctx, o); err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) DeleteOption(c *gin.Context) {
	if err := h.Store.DeleteOption(c.Request.Context(), models.OptionType(c.Param("type")), c.Param("id")); err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
