package models

import (
	"time"

	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

type Reservation struct {
	ID           uuid.UUID         `json:"id" db:"reservation_id"`
	CustomerName string            `json:"customer_name" db:"customer_name"`
	Phone        string            `json:"phone" db:"phone"`
	Date         string            `json:"reservation_date" db:"reservation_date"`
	Time         string            `json:"reservation_time" db:"reservation_time"`
	Description  string            `json:"description,omitempty" db:"description"`
	OrderID      uuid.UUID         `json:"order_id" db:"order_id"`
	Status       ReservationStatus `json:"status" db:"status"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}

// HoldsCapacity indique si la réservation compte dans la capacité du jour
func (r Reservation) HoldsCapacity() bool {
	return r.Status != ReservationCancelled
}
