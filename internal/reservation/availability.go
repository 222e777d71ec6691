package reservation

import (
	"time"

	"cake_back_end/internal/models"
)

// Book est une photographie des réservations actives, groupées par date.
// Toutes les décisions de disponibilité passent par lui.
type Book struct {
	policy Policy
	byDate map[string][]models.Reservation
	now    time.Time
}

// NewBook ignore les réservations annulées
func NewBook(policy Policy, reservations []models.Reservation, now time.Time) *Book {
	b := &Book{
		policy: policy,
		byDate: make(map[string][]models.Reservation),
		now:    now,
	}
	for _, r := range reservations {
		if !r.HoldsCapacity() {
			continue
		}
		b.byDate[r.Date] = append(b.byDate[r.Date], r)
	}
	return b
}

// ReservedTimes retourne les créneaux déjà pris à cette date
func (b *Book) ReservedTimes(date string) map[string]struct{} {
	reserved := make(map[string]struct{}, len(b.byDate[date]))
	for _, r := range b.byDate[date] {
		reserved[r.Time] = struct{}{}
	}
	return reserved
}

func (b *Book) Count(date string) int {
	return len(b.byDate[date])
}

func (b *Book) RemainingCapacity(date string) int {
	remaining := b.policy.DailyMax - b.Count(date)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AvailableTimes : créneaux candidats moins ceux réservés, dans l'ordre donné.
// Vide dès que le plafond journalier est atteint, même si des créneaux restent libres.
func (b *Book) AvailableTimes(date string, slots []string) []string {
	available := []string{}
	if b.Count(date) >= b.policy.DailyMax {
		return available
	}
	reserved := b.ReservedTimes(date)
	for _, slot := range slots {
		if _, taken := reserved[slot]; !taken {
			available = append(available, slot)
		}
	}
	return available
}

// IsFullyBooked est le seul prédicat utilisé pour griser un jour et pour
// refuser une réservation. Un jour sans aucun créneau candidat est complet.
func (b *Book) IsFullyBooked(date string, slots []string) bool {
	return len(b.AvailableTimes(date, slots)) == 0
}

func (b *Book) IsSelectable(date string) bool {
	canonical, err := ParseDate(date)
	if err != nil {
		return false
	}
	if canonical < b.policy.EarliestDate(b.now) {
		return false
	}
	return !b.IsFullyBooked(canonical, b.policy.Slots)
}

type DaySummary struct {
	Date           string   `json:"date"`
	Count          int      `json:"count"`
	Remaining      int      `json:"remaining"`
	AvailableTimes []string `json:"available_times"`
	FullyBooked    bool     `json:"fully_booked"`
	Selectable     bool     `json:"selectable"`
}

func (b *Book) Day(date string) DaySummary {
	return DaySummary{
		Date:           date,
		Count:          b.Count(date),
		Remaining:      b.RemainingCapacity(date),
		AvailableTimes: b.AvailableTimes(date, b.policy.Slots),
		FullyBooked:    b.IsFullyBooked(date, b.policy.Slots),
		Selectable:     b.IsSelectable(date),
	}
}
