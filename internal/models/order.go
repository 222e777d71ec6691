package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{
	OrderPending,
	OrderConfirmed,
	OrderPreparing,
	OrderReady,
	OrderDelivered,
	OrderCancelled,
}

var orderFlow = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderReady, OrderCancelled},
	OrderReady:     {OrderDelivered, OrderCancelled},
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransition indique si un admin peut passer une commande de s à next.
// delivered et cancelled sont terminaux.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range orderFlow[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type DeliveryType string

const (
	DeliveryHome   DeliveryType = "delivery"
	DeliveryPickup DeliveryType = "pickup"
)

// PickupAddress est l'adresse sentinelle des commandes à retirer sur place
const PickupAddress = "pickup"

type OrderItem struct {
	ProductID uuid.UUID             `json:"product_id"`
	Name      string                `json:"name"`
	Quantity  int                   `json:"quantity"`
	UnitPrice decimal.Decimal       `json:"unit_price"`
	Options   map[OptionType]string `json:"options,omitempty"`
	ImageURLs []string              `json:"image_urls,omitempty"`
	Notes     string                `json:"notes,omitempty"`
}

type Order struct {
	ID            uuid.UUID       `json:"id" db:"order_id"`
	CustomerName  string          `json:"customer_name" db:"customer_name"`
	Phone         string          `json:"phone" db:"phone"`
	Email         string          `json:"email,omitempty" db:"email"`
	DeliveryType  DeliveryType    `json:"delivery_type" db:"delivery_type"`
	Address       string          `json:"address" db:"address"`
	DeliveryDate  string          `json:"delivery_date" db:"delivery_date"`
	DeliveryTime  string          `json:"delivery_time" db:"delivery_time"`
	Items         []OrderItem     `json:"items" db:"items"`
	Subtotal      decimal.Decimal `json:"subtotal" db:"subtotal"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee" db:"delivery_fee"`
	Total         decimal.Decimal `json:"total" db:"total"`
	Notes         string          `json:"notes,omitempty" db:"notes"`
	Status        OrderStatus     `json:"status" db:"status"`
	ReservationID uuid.UUID       `json:"reservation_id" db:"reservation_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}
