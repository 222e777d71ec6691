package cache

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"cake_back_end/internal/models"
	"cake_back_end/internal/repository"
	"cake_back_end/internal/reservation"
)

const (
	ProductCacheTTL      = 10 * time.Minute
	OptionCacheTTL       = 10 * time.Minute
	AvailabilityCacheTTL = 5 * time.Minute
)

// =============================================
// DISPONIBILITÉS
// =============================================

// AvailabilityCache implémente reservation.Cache au-dessus de Redis
type AvailabilityCache struct {
	client *redis.Client
}

func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

const calendarGenerationKey = "availability:generation"

// CalendarGeneration lit le compteur incrémenté à chaque invalidation
func (c *AvailabilityCache) CalendarGeneration(ctx context.Context) (string, bool) {
	if c.client == nil {
		return "", false
	}
	generation, err := c.client.Get(ctx, calendarGenerationKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "0", true
	case err != nil:
		log.Printf("⚠️ Génération du calendrier illisible, cache ignoré: %v", err)
		return "", false
	}
	return generation, true
}

func (c *AvailabilityCache) GetCalendar(ctx context.Context, key string) ([]reservation.DaySummary, bool) {
	var days []reservation.DaySummary
	if !getJSON(ctx, c.client, "availability:calendar:"+key, &days) {
		return nil, false
	}
	return days, true
}

func (c *AvailabilityCache) SetCalendar(ctx context.Context, key string, days []reservation.DaySummary) {
	setJSON(ctx, c.client, "availability:calendar:"+key, days, AvailabilityCacheTTL)
}

// InvalidateCalendar change de génération avant de vider les entrées : un
// calcul encore en cours écrira sous l'ancienne génération.
func (c *AvailabilityCache) InvalidateCalendar(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, calendarGenerationKey).Err(); err != nil {
		log.Printf("⚠️ Incrément de la génération du calendrier échoué: %v", err)
	}
	deletePattern(ctx, c.client, "availability:calendar:*")
}

// =============================================
// CATALOGUE (read-through)
// =============================================

// CachedStore sert produits et options depuis Redis et invalide à chaque écriture.
// Réservations et commandes passent toujours directement au store.
type CachedStore struct {
	repository.Store
	client *redis.Client
}

func NewCachedStore(store repository.Store, client *redis.Client) *CachedStore {
	return &CachedStore{Store: store, client: client}
}

func productListKey(filter repository.ProductFilter) string {
	return "products:list:" + strconv.FormatBool(filter.IncludeInactive) + ":" + filter.Category
}

func (s *CachedStore) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	key := productListKey(filter)
	var products []models.Product
	if getJSON(ctx, s.client, key, &products) {
		return products, nil
	}

	products, err := s.Store.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	setJSON(ctx, s.client, key, products, ProductCacheTTL)
	return products, nil
}

func (s *CachedStore) GetProduct(ctx context.Context, id uuid.UUID) (models.Product, error) {
	key := "product:" + id.String()
	var p models.Product
	if getJSON(ctx, s.client, key, &p) {
		return p, nil
	}

	p, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	setJSON(ctx, s.client, key, p, ProductCacheTTL)
	return p, nil
}

func (s *CachedStore) SaveProduct(ctx context.Context, p models.Product) error {
	if err := s.Store.SaveProduct(ctx, p); err != nil {
		return err
	}
	s.InvalidateProducts(ctx)
	return nil
}

func (s *CachedStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.Store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.InvalidateProducts(ctx)
	return nil
}

func (s *CachedStore) InvalidateProducts(ctx context.Context) {
	deletePattern(ctx, s.client, "products:*")
	deletePattern(ctx, s.client, "product:*")
}

func (s *CachedStore) ListOptions(ctx context.Context, t models.OptionType, includeInactive bool) ([]models.CustomizationOption, error) {
	key := "options:" + string(t) + ":" + strconv.FormatBool(includeInactive)
	var options []models.CustomizationOption
	if getJSON(ctx, s.client, key, &options) {
		return options, nil
	}

	options, err := s.Store.ListOptions(ctx, t, includeInactive)
	if err != nil {
		return nil, err
	}
	setJSON(ctx, s.client, key, options, OptionCacheTTL)
	return options, nil
}

func (s *CachedStore) SaveOption(ctx context.Context, o models.CustomizationOption) error {
	if err := s.Store.SaveOption(ctx, o); err != nil {
		return err
	}
	deletePattern(ctx, s.client, "options:*")
	return nil
}

func (s *CachedStore) DeleteOption(ctx context.Context, t models.OptionType, id string) error {
	if err := s.Store.DeleteOption(ctx, t, id); err != nil {
		return err
	}
	deletePattern(ctx, s.client, "options:*")
	return nil
}
