package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cake_back_end/internal/models"
	"cake_back_end/internal/reservation"
)

// MemoryStore sert le mode démo et les tests. Un seul mutex couvre la
// vérification de capacité et l'insertion d'une réservation.
type MemoryStore struct {
	mu           sync.RWMutex
	products     map[uuid.UUID]models.Product
	options      map[models.OptionType]map[string]models.CustomizationOption
	reservations map[uuid.UUID]models.Reservation
	orders       map[uuid.UUID]models.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:     make(map[uuid.UUID]models.Product),
		options:      make(map[models.OptionType]map[string]models.CustomizationOption),
		reservations: make(map[uuid.UUID]models.Reservation),
		orders:       make(map[uuid.UUID]models.Order),
	}
}

// NewSeededMemoryStore charge le catalogue de démonstration
func NewSeededMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	for _, o := range SeedOptions() {
		s.putOption(o)
	}
	for _, p := range SeedProducts() {
		s.products[p.ID] = p
	}
	return s
}

func (s *MemoryStore) Close() {}

// --- Produits ---

func (s *MemoryStore) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if !filter.IncludeInactive && !p.IsActive {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		products = append(products, cloneProduct(p))
	}
	sortProducts(products)
	return products, nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id uuid.UUID) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return models.Product{}, fmt.Errorf("produit %s: %w", id, ErrNotFound)
	}
	return cloneProduct(p), nil
}

func (s *MemoryStore) SaveProduct(ctx context.Context, p models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = cloneProduct(p)
	return nil
}

func (s *MemoryStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return fmt.Errorf("produit %s: %w", id, ErrNotFound)
	}
	delete(s.products, id)
	return nil
}

// --- Options ---

func (s *MemoryStore) putOption(o models.CustomizationOption) {
	if s.options[o.Type] == nil {
		s.options[o.Type] = make(map[string]models.CustomizationOption)
	}
	s.options[o.Type][o.ID] = o
}

func (s *MemoryStore) ListOptions(ctx context.Context, t models.OptionType, includeInactive bool) ([]models.CustomizationOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var options []models.CustomizationOption
	for typ, byID := range s.options {
		if t != "" && typ != t {
			continue
		}
		for _, o := range byID {
			if !includeInactive && !o.IsActive {
				continue
			}
			options = append(options, o)
		}
	}
	sortOptions(options)
	return options, nil
}

func (s *MemoryStore) GetOption(ctx context.Context, t models.OptionType, id string) (models.CustomizationOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.options[t][id]
	if !ok {
		return models.CustomizationOption{}, fmt.Errorf("option %s/%s: %w", t, id, ErrNotFound)
	}
	return o, nil
}

func (s *MemoryStore) SaveOption(ctx context.Context, o models.CustomizationOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putOption(o)
	return nil
}

func (s *MemoryStore) DeleteOption(ctx context.Context, t models.OptionType, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.options[t][id]; !ok {
		return fmt.Errorf("option %s/%s: %w", t, id, ErrNotFound)
	}
	delete(s.options[t], id)
	return nil
}

// --- Réservations ---

func (s *MemoryStore) ReservationsBetween(ctx context.Context, from, to string) ([]models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Reservation
	for _, r := range s.reservations {
		if r.Date >= from && r.Date <= to {
			out = append(out, r)
		}
	}
	sortReservations(out)
	return out, nil
}

func (s *MemoryStore) GetReservation(ctx context.Context, id uuid.UUID) (models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return models.Reservation{}, fmt.Errorf("réservation %s: %w", id, ErrNotFound)
	}
	return r, nil
}

// ReserveSlot vérifie l'unicité du créneau et le plafond sous le même verrou que l'insertion
func (s *MemoryStore) ReserveSlot(ctx context.Context, r models.Reservation, dailyMax int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, existing := range s.reservations {
		if existing.Date != r.Date || !existing.HoldsCapacity() {
			continue
		}
		if existing.Time == r.Time {
			return reservation.ErrSlotTaken
		}
		count++
	}
	if count >= dailyMax {
		return reservation.ErrCapacityReached
	}

	s.reservations[r.ID] = r
	return nil
}

func (s *MemoryStore) CancelReservation(ctx context.Context, id uuid.UUID) (models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return models.Reservation{}, fmt.Errorf("réservation %s: %w", id, ErrNotFound)
	}
	r.Status = models.ReservationCancelled
	s.reservations[id] = r
	return r, nil
}

// --- Commandes ---

func (s *MemoryStore) CreateOrder(ctx context.Context, o models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[o.ID]; exists {
		return fmt.Errorf("commande %s déjà existante", o.ID)
	}
	s.orders[o.ID] = o
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id uuid.UUID) (models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, fmt.Errorf("commande %s: %w", id, ErrNotFound)
	}
	return o, nil
}

func (s *MemoryStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orders := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, o)
	}
	sortOrders(orders)
	return orders, nil
}

func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, fmt.Errorf("commande %s: %w", id, ErrNotFound)
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	s.orders[id] = o
	return o, nil
}

func (s *MemoryStore) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return fmt.Errorf("commande %s: %w", id, ErrNotFound)
	}
	delete(s.orders, id)
	return nil
}

// --- Helpers ---

func cloneProduct(p models.Product) models.Product {
	if p.AllowedOptions != nil {
		allowed := make(models.AllowedOptions, len(p.AllowedOptions))
		for t, ids := range p.AllowedOptions {
			allowed[t] = append([]string{}, ids...)
		}
		p.AllowedOptions = allowed
	}
	if p.DefaultOptions != nil {
		defaults := make(models.DefaultOptions, len(p.DefaultOptions))
		for t, id := range p.DefaultOptions {
			defaults[t] = id
		}
		p.DefaultOptions = defaults
	}
	return p
}

func sortProducts(products []models.Product) {
	sort.Slice(products, func(i, j int) bool {
		return products[i].Name < products[j].Name
	})
}

func sortOptions(options []models.CustomizationOption) {
	typeRank := make(map[models.OptionType]int, len(models.OptionTypes))
	for i, t := range models.OptionTypes {
		typeRank[t] = i
	}
	sort.Slice(options, func(i, j int) bool {
		a, b := options[i], options[j]
		if a.Type != b.Type {
			return typeRank[a.Type] < typeRank[b.Type]
		}
		if !a.Price.Equal(b.Price) {
			return a.Price.LessThan(b.Price)
		}
		return a.Name < b.Name
	})
}

func sortReservations(reservations []models.Reservation) {
	sort.Slice(reservations, func(i, j int) bool {
		a, b := reservations[i], reservations[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func sortOrders(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
