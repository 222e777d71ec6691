package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"cake_back_end/internal/models"
	"cake_back_end/internal/reservation"
)

var ErrNotFound = errors.New("introuvable")

type ProductFilter struct {
	IncludeInactive bool
	Category        string
}

type ProductStore interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (models.Product, error)
	SaveProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type OptionStore interface {
	// ListOptions : t vide = tous les types
	ListOptions(ctx context.Context, t models.OptionType, includeInactive bool) ([]models.CustomizationOption, error)
	GetOption(ctx context.Context, t models.OptionType, id string) (models.CustomizationOption, error)
	SaveOption(ctx context.Context, o models.CustomizationOption) error
	DeleteOption(ctx context.Context, t models.OptionType, id string) error
}

type OrderStore interface {
	CreateOrder(ctx context.Context, o models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (models.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type ReservationStore interface {
	reservation.Store
	GetReservation(ctx context.Context, id uuid.UUID) (models.Reservation, error)
}

// Store regroupe tout l'accès aux données ; MemoryStore et ScyllaStore
// l'implémentent tous les deux.
type Store interface {
	ProductStore
	OptionStore
	OrderStore
	ReservationStore
	Close()
}
