package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cake_back_end/internal/cart"
	"cake_back_end/internal/models"
	"cake_back_end/internal/pricing"
	"cake_back_end/internal/repository"
	"cake_back_end/internal/reservation"
	"cake_back_end/internal/validation"
)

// WriteError traduit une erreur métier en réponse JSON
func WriteError(c *gin.Context, err error) {
	if verr, ok := validation.From(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Données invalides",
			"missing":  verr.Missing,
			"problems": verr.Problems,
		})
		return
	}

	switch {
	case errors.Is(err, validation.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Ressource introuvable"})
	case errors.Is(err, cart.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, reservation.ErrDateNotSelectable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case reservation.IsCapacityError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne, réessayez"})
	}
}

// ParamUUID lit un paramètre d'URL ; répond 400 et retourne false s'il est invalide
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant invalide"})
		return uuid.Nil, false
	}
	return id, true
}

// LoadConfigurator charge en parallèle le produit et les options actives
func LoadConfigurator(ctx context.Context, store repository.Store, id uuid.UUID) (models.Product, []models.CustomizationOption, error) {
	var (
		product models.Product
		options []models.CustomizationOption
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := store.GetProduct(gctx, id)
		if err != nil {
			return err
		}
		if !p.IsActive {
			return repository.ErrNotFound
		}
		product = p
		return nil
	})
	g.Go(func() error {
		o, err := store.ListOptions(gctx, "", false)
		options = o
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Product{}, nil, err
	}
	return product, options, nil
}

// LoadCatalog : comme LoadConfigurator, avec le catalogue indexé
func LoadCatalog(ctx context.Context, store repository.Store, id uuid.UUID) (models.Product, pricing.Catalog, error) {
	product, options, err := LoadConfigurator(ctx, store, id)
	if err != nil {
		return models.Product{}, pricing.Catalog{}, err
	}
	return product, pricing.NewCatalog(options), nil
}
