package reservation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"cake_back_end/internal/models"
	"cake_back_end/internal/validation"
)

// MaxCalendarDays borne la plage demandée au calendrier
const MaxCalendarDays = 92

// Store est la partie du stock de données dont le moteur a besoin.
// ReserveSlot doit vérifier le plafond et l'unicité (date, heure) de façon
// atomique côté stockage.
type Store interface {
	ReservationsBetween(ctx context.Context, from, to string) ([]models.Reservation, error)
	ReserveSlot(ctx context.Context, r models.Reservation, dailyMax int) error
	CancelReservation(ctx context.Context, id uuid.UUID) (models.Reservation, error)
}

// Cache conserve les résumés du calendrier ; il est vidé à chaque écriture.
// CalendarGeneration change à chaque invalidation : un résumé calculé avant une
// écriture est rangé sous l'ancienne génération et n'est plus relu. ok=false
// désactive le cache pour l'appel en cours.
type Cache interface {
	CalendarGeneration(ctx context.Context) (generation string, ok bool)
	GetCalendar(ctx context.Context, key string) ([]DaySummary, bool)
	SetCalendar(ctx context.Context, key string, days []DaySummary)
	InvalidateCalendar(ctx context.Context)
}

type noCache struct{}

func (noCache) CalendarGeneration(context.Context) (string, bool)        { return "", false }
func (noCache) GetCalendar(context.Context, string) ([]DaySummary, bool) { return nil, false }
func (noCache) SetCalendar(context.Context, string, []DaySummary)        {}
func (noCache) InvalidateCalendar(context.Context)                       {}

type Clock func() time.Time

type Service struct {
	store  Store
	cache  Cache
	policy Policy
	now    Clock
}

func NewService(store Store, cache Cache, policy Policy, now Clock) *Service {
	if cache == nil {
		cache = noCache{}
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, cache: cache, policy: policy, now: now}
}

func (s *Service) Policy() Policy {
	return s.policy
}

// Today : date du jour dans le fuseau de la boutique
func (s *Service) Today() string {
	return s.now().In(s.policy.location()).Format(models.DateLayout)
}

func (s *Service) EarliestDate() string {
	return s.policy.EarliestDate(s.now())
}

type NewReservation struct {
	Name        string
	Phone       string
	Date        string
	Time        string
	Description string
	OrderID     uuid.UUID
}

// Validate ne touche jamais au store
func (s *Service) Validate(in NewReservation) error {
	verr := &validation.Error{}
	verr.Require("name", in.Name)
	verr.Require("phone", in.Phone)
	verr.Require("date", in.Date)
	verr.Require("time", in.Time)
	if in.Date != "" {
		if _, err := ParseDate(in.Date); err != nil {
			verr.Add(err.Error())
		}
	}
	if in.Time != "" && !s.policy.HasSlot(in.Time) {
		verr.Add(fmt.Sprintf("créneau inconnu %q", in.Time))
	}
	return verr.Err()
}

// Book relit l'état du store pour la plage donnée
func (s *Service) Book(ctx context.Context, from, to string) (*Book, error) {
	reservations, err := s.store.ReservationsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("lecture des réservations: %w", err)
	}
	return NewBook(s.policy, reservations, s.now()), nil
}

// CreateReservation revérifie la capacité sur l'état frais du store, jamais sur
// un compteur en cache, puis délègue l'insertion atomique au store.
func (s *Service) CreateReservation(ctx context.Context, in NewReservation) (models.Reservation, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)

	if err := s.Validate(in); err != nil {
		return models.Reservation{}, err
	}
	date, _ := ParseDate(in.Date)

	book, err := s.Book(ctx, date, date)
	if err != nil {
		return models.Reservation{}, err
	}
	if date < s.policy.EarliestDate(s.now()) {
		return models.Reservation{}, fmt.Errorf("%w: au plus tôt le %s", ErrDateNotSelectable, s.policy.EarliestDate(s.now()))
	}
	if book.IsFullyBooked(date, s.policy.Slots) {
		return models.Reservation{}, ErrCapacityReached
	}
	if _, taken := book.ReservedTimes(date)[in.Time]; taken {
		return models.Reservation{}, ErrSlotTaken
	}

	r := models.Reservation{
		ID:           uuid.New(),
		CustomerName: in.Name,
		Phone:        in.Phone,
		Date:         date,
		Time:         in.Time,
		Description:  strings.TrimSpace(in.Description),
		OrderID:      in.OrderID,
		Status:       models.ReservationPending,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.store.ReserveSlot(ctx, r, s.policy.DailyMax); err != nil {
		return models.Reservation{}, err
	}

	s.cache.InvalidateCalendar(ctx)
	log.Printf("📅 Réservation %s créée pour le %s à %s", r.ID, r.Date, r.Time)
	return r, nil
}

// CancelReservation libère la capacité (admin et compensation du checkout)
func (s *Service) CancelReservation(ctx context.Context, id uuid.UUID) (models.Reservation, error) {
	r, err := s.store.CancelReservation(ctx, id)
	if err != nil {
		return models.Reservation{}, err
	}
	s.cache.InvalidateCalendar(ctx)
	log.Printf("🗑️ Réservation %s annulée (%s %s)", r.ID, r.Date, r.Time)
	return r, nil
}

// Day calcule la disponibilité fraîche d'une date, sans cache
func (s *Service) Day(ctx context.Context, date string) (DaySummary, error) {
	canonical, err := ParseDate(date)
	if err != nil {
		return DaySummary{}, validation.Problem(err.Error())
	}
	book, err := s.Book(ctx, canonical, canonical)
	if err != nil {
		return DaySummary{}, err
	}
	return book.Day(canonical), nil
}

// Calendar sert les résumés par jour via le cache, recalculés après chaque écriture
func (s *Service) Calendar(ctx context.Context, from, to string) ([]DaySummary, error) {
	dates, err := DatesBetween(from, to)
	if err != nil {
		return nil, validation.Problem(err.Error())
	}
	if len(dates) > MaxCalendarDays {
		return nil, validation.Problem(fmt.Sprintf("plage limitée à %d jours", MaxCalendarDays))
	}

	// génération lue avant le store ; la clé inclut la première date
	// réservable car "selectable" change à minuit
	generation, cacheable := s.cache.CalendarGeneration(ctx)
	key := generation + ":" + dates[0] + ":" + dates[len(dates)-1] + ":" + s.policy.EarliestDate(s.now())
	if cacheable {
		if days, ok := s.cache.GetCalendar(ctx, key); ok {
			return days, nil
		}
	}

	days, err := s.summaries(ctx, dates)
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.cache.SetCalendar(ctx, key, days)
	}
	return days, nil
}

// Capacity : mêmes résumés que Calendar, toujours relus depuis le store
func (s *Service) Capacity(ctx context.Context, from, to string) ([]DaySummary, error) {
	dates, err := DatesBetween(from, to)
	if err != nil {
		return nil, validation.Problem(err.Error())
	}
	if len(dates) > MaxCalendarDays {
		return nil, validation.Problem(fmt.Sprintf("plage limitée à %d jours", MaxCalendarDays))
	}
	return s.summaries(ctx, dates)
}

func (s *Service) summaries(ctx context.Context, dates []string) ([]DaySummary, error) {
	book, err := s.Book(ctx, dates[0], dates[len(dates)-1])
	if err != nil {
		return nil, err
	}
	days := make([]DaySummary, 0, len(dates))
	for _, d := range dates {
		days = append(days, book.Day(d))
	}
	return days, nil
}

// Reservations liste les réservations de la plage pour l'admin, annulées comprises
func (s *Service) Reservations(ctx context.Context, from, to string) ([]models.Reservation, error) {
	if _, err := DatesBetween(from, to); err != nil {
		return nil, validation.Problem(err.Error())
	}
	return s.store.ReservationsBetween(ctx, from, to)
}
