package reservation

import (
	"errors"
	"fmt"
	"time"

	"cake_back_end/internal/models"
)

var (
	ErrCapacityReached   = errors.New("capacité maximale atteinte pour cette date")
	ErrSlotTaken         = errors.New("ce créneau est déjà réservé")
	ErrDateNotSelectable = errors.New("date non disponible à la réservation")
)

// IsCapacityError regroupe les refus liés à la charge du jour
func IsCapacityError(err error) bool {
	return errors.Is(err, ErrCapacityReached) || errors.Is(err, ErrSlotTaken)
}

// DefaultSlots : créneaux de livraison proposés chaque jour
var DefaultSlots = []string{"09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00"}

const (
	DefaultDailyMax    = 5
	DefaultMinLeadDays = 2
)

type Policy struct {
	Slots       []string
	DailyMax    int
	MinLeadDays int
	Location    *time.Location
}

func DefaultPolicy() Policy {
	return Policy{
		Slots:       append([]string(nil), DefaultSlots...),
		DailyMax:    DefaultDailyMax,
		MinLeadDays: DefaultMinLeadDays,
		Location:    time.Local,
	}
}

// HasSlot compare par égalité exacte, sans arithmétique horaire
func (p Policy) HasSlot(slot string) bool {
	for _, s := range p.Slots {
		if s == slot {
			return true
		}
	}
	return false
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// EarliestDate : aujourd'hui + délai minimum, borne incluse
func (p Policy) EarliestDate(now time.Time) string {
	local := now.In(p.location())
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.location())
	return today.AddDate(0, 0, p.MinLeadDays).Format(models.DateLayout)
}

// ParseDate valide le format YYYY-MM-DD et retourne la forme canonique
func ParseDate(date string) (string, error) {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("date invalide %q: attendu YYYY-MM-DD", date)
	}
	return t.Format(models.DateLayout), nil
}

// DatesBetween liste les jours de from à to inclus
func DatesBetween(from, to string) ([]string, error) {
	start, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("date de début invalide: %w", err)
	}
	end, err := time.Parse(models.DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("date de fin invalide: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("la date de fin précède la date de début")
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(models.DateLayout))
	}
	return dates, nil
}
