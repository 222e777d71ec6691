package product

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cake_back_end/internal/handlers"
	"cake_back_end/internal/models"
	"cake_back_end/internal/pricing"
	"cake_back_end/internal/repository"
	"cake_back_end/internal/services"
)

type Handler struct {
	store  repository.Store
	search *services.ProductSearch
}

func NewHandler(store repository.Store, search *services.ProductSearch) *Handler {
	return &Handler{store: store, search: search}
}

// GetAllProducts : catalogue public, produits actifs uniquement
func (h *Handler) GetAllProducts(c *gin.Context) {
	products, err := h.store.ListProducts(c.Request.Context(), repository.ProductFilter{
		Category: strings.TrimSpace(c.Query("category")),
	})
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := handlers.ParamUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.store.GetProduct(c.Request.Context(), id)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	if !p.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// SearchProducts interroge Elasticsearch, avec repli sur un filtre en mémoire
func (h *Handler) SearchProducts(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre 'q' requis"})
		return
	}
	ctx := c.Request.Context()

	if h.search.Enabled() {
		ids, err := h.search.Search(ctx, query)
		if err == nil {
			results := make([]models.Product, 0, len(ids))
			for _, id := range ids {
				p, err := h.store.GetProduct(ctx, id)
				if err != nil || !p.IsActive {
					continue // index en retard sur le store
				}
				results = append(results, p)
			}
			c.JSON(http.StatusOK, gin.H{"results": results, "source": "elasticsearch"})
			return
		}
		log.Printf("⚠️ Recherche Elasticsearch indisponible, repli en mémoire: %v", err)
	}

	products, err := h.store.ListProducts(ctx, repository.ProductFilter{})
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": services.MatchProducts(products, query), "source": "memory"})
}

// GetOptions : options actives, éventuellement filtrées par type
func (h *Handler) GetOptions(c *gin.Context) {
	t := models.OptionType(strings.TrimSpace(c.Query("type")))
	if t != "" && !t.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Type d'option inconnu"})
		return
	}
	options, err := h.store.ListOptions(c.Request.Context(), t, false)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, options)
}

// GetProductOptions : options proposées pour ce produit, liste blanche appliquée
func (h *Handler) GetProductOptions(c *gin.Context) {
	id, ok := handlers.ParamUUID(c, "id")
	if !ok {
		return
	}
	p, options, err := handlers.LoadConfigurator(c.Request.Context(), h.store, id)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id": p.ID,
		"kind":       p.Kind,
		"options":    pricing.OptionsForProduct(options, p),
		"defaults":   pricing.ApplyDefaults(p, nil),
	})
}

type configurationRequest struct {
	Selections models.Selections `json:"selections"`
	Mode       string            `json:"mode"`
}

// Quote calcule le prix d'une configuration sans rien enregistrer
func (h *Handler) Quote(c *gin.Context) {
	id, ok := handlers.ParamUUID(c, "id")
	if !ok {
		return
	}
	var input configurationRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps JSON invalide"})
		return
	}

	p, catalog, err := handlers.LoadCatalog(c.Request.Context(), h.store, id)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	quote, err := pricing.QuoteFor(p, input.Selections, catalog, pricing.ParseMode(input.Mode))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// Preview retourne les couches d'aperçu de la configuration
func (h *Handler) Preview(c *gin.Context) {
	id, ok := handlers.ParamUUID(c, "id")
	if !ok {
		return
	}
	var input configurationRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps JSON invalide"})
		return
	}

	p, catalog, err := handlers.LoadCatalog(c.Request.Context(), h.store, id)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	selections := pricing.ApplyDefaults(p, input.Selections)
	if !p.IsCustomizable() {
		selections = models.Selections{}
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id": p.ID,
		"image_url":  p.ImageURL,
		"layers":     pricing.PreviewLayers(selections, catalog),
	})
}
