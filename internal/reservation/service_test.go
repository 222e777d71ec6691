package reservation

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"cake_back_end/internal/models"
	"cake_back_end/internal/validation"
)

// mockStore garde les réservations en mémoire ; ReserveSlot est atomique
type mockStore struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]models.Reservation
	reads        int

	ReservationsBetweenFunc func(ctx context.Context, from, to string) ([]models.Reservation, error)
}

func newMockStore(existing ...models.Reservation) *mockStore {
	m := &mockStore{reservations: make(map[uuid.UUID]models.Reservation)}
	for _, r := range existing {
		m.reservations[r.ID] = r
	}
	return m
}

func (m *mockStore) ReservationsBetween(ctx context.Context, from, to string) ([]models.Reservation, error) {
	if m.ReservationsBetweenFunc != nil {
		return m.ReservationsBetweenFunc(ctx, from, to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	var out []models.Reservation
	for _, r := range m.reservations {
		if r.Date >= from && r.Date <= to {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) ReserveSlot(ctx context.Context, r models.Reservation, dailyMax int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, existing := range m.reservations {
		if existing.Date != r.Date || !existing.HoldsCapacity() {
			continue
		}
		if existing.Time == r.Time {
			return ErrSlotTaken
		}
		count++
	}
	if count >= dailyMax {
		return ErrCapacityReached
	}
	m.reservations[r.ID] = r
	return nil
}

func (m *mockStore) CancelReservation(ctx context.Context, id uuid.UUID) (models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return models.Reservation{}, errors.New("not found")
	}
	r.Status = models.ReservationCancelled
	m.reservations[id] = r
	return r, nil
}

type mockCache struct {
	mu          sync.Mutex
	entries     map[string][]DaySummary
	invalidated int
}

func (c *mockCache) CalendarGeneration(ctx context.Context) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strconv.Itoa(c.invalidated), true
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]DaySummary)}
}

func (c *mockCache) GetCalendar(ctx context.Context, key string) ([]DaySummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	days, ok := c.entries[key]
	return days, ok
}

func (c *mockCache) SetCalendar(ctx context.Context, key string, days []DaySummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = days
}

func (c *mockCache) InvalidateCalendar(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]DaySummary)
	c.invalidated++
}

func newTestService(store Store, cache Cache) *Service {
	return NewService(store, cache, testPolicy(), func() time.Time { return fixedNow })
}

func TestCreateReservation(t *testing.T) {
	store := newMockStore()
	cache := newMockCache()
	svc := newTestService(store, cache)

	r, err := svc.CreateReservation(context.Background(), NewReservation{
		Name:  "  Maria  ",
		Phone: "11988887777",
		Date:  "2026-10-21",
		Time:  "13:00",
	})
	if err != nil {
		t.Fatalf("CreateReservation() error = %v", err)
	}
	if r.CustomerName != "Maria" || r.Status != models.ReservationPending {
		t.Errorf("unexpected reservation: %+v", r)
	}
	if cache.invalidated != 1 {
		t.Errorf("cache invalidated %d times, want 1", cache.invalidated)
	}

	_, err = svc.CreateReservation(context.Background(), NewReservation{
		Name: "João", Phone: "11911112222", Date: "2026-10-21", Time: "13:00",
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Errorf("expected ErrSlotTaken, got %v", err)
	}
}

func TestCreateReservationValidation(t *testing.T) {
	tests := []struct {
		name string
		in   NewReservation
	}{
		{name: "missingName", in: NewReservation{Phone: "1", Date: "2026-10-21", Time: "09:00"}},
		{name: "missingPhone", in: NewReservation{Name: "A", Date: "2026-10-21", Time: "09:00"}},
		{name: "badDate", in: NewReservation{Name: "A", Phone: "1", Date: "21/10/2026", Time: "09:00"}},
		{name: "unknownSlot", in: NewReservation{Name: "A", Phone: "1", Date: "2026-10-21", Time: "12:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			svc := newTestService(store, nil)
			_, err := svc.CreateReservation(context.Background(), tt.in)
			if !errors.Is(err, validation.ErrInvalid) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if store.reads != 0 {
				t.Error("validation errors must never reach the store")
			}
		})
	}
}

func TestCreateReservationLeadTime(t *testing.T) {
	svc := newTestService(newMockStore(), nil)
	_, err := svc.CreateReservation(context.Background(), NewReservation{
		Name: "A", Phone: "1", Date: "2026-10-20", Time: "09:00",
	})
	if !errors.Is(err, ErrDateNotSelectable) {
		t.Errorf("expected ErrDateNotSelectable, got %v", err)
	}
}

func TestCreateReservationRereadsStore(t *testing.T) {
	store := newMockStore()
	cache := newMockCache()
	svc := newTestService(store, cache)
	ctx := context.Background()

	days, err := svc.Calendar(ctx, "2026-10-22", "2026-10-22")
	if err != nil {
		t.Fatalf("Calendar() error = %v", err)
	}
	if days[0].Remaining != 5 {
		t.Fatalf("Remaining = %d, want 5", days[0].Remaining)
	}

	// un autre client remplit la journée dans le dos du cache
	for _, slot := range []string{"09:00", "10:00", "11:00", "13:00", "14:00"} {
		store.reservations[uuid.New()] = reservationAt("2026-10-22", slot, models.ReservationConfirmed)
	}

	_, err = svc.CreateReservation(ctx, NewReservation{Name: "A", Phone: "1", Date: "2026-10-22", Time: "16:00"})
	if !errors.Is(err, ErrCapacityReached) {
		t.Errorf("expected ErrCapacityReached from fresh state, got %v", err)
	}
}

func TestCreateReservationLastSlotRace(t *testing.T) {
	var existing []models.Reservation
	for _, slot := range []string{"09:00", "10:00", "11:00", "13:00"} {
		existing = append(existing, reservationAt("2026-10-23", slot, models.ReservationConfirmed))
	}

	for round := 0; round < 20; round++ {
		store := newMockStore(existing...)
		svc := newTestService(store, newMockCache())

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			failures  []error
		)
		for _, slot := range []string{"14:00", "15:00"} {
			wg.Add(1)
			go func(slot string) {
				defer wg.Done()
				_, err := svc.CreateReservation(context.Background(), NewReservation{
					Name: "Cliente " + slot, Phone: "1", Date: "2026-10-23", Time: slot,
				})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					successes++
					return
				}
				failures = append(failures, err)
			}(slot)
		}
		wg.Wait()

		if successes != 1 {
			t.Fatalf("round %d: %d bookings succeeded, want exactly 1", round, successes)
		}
		if len(failures) != 1 || !IsCapacityError(failures[0]) {
			t.Fatalf("round %d: expected one capacity error, got %v", round, failures)
		}
	}
}

func TestCancelReservationFreesCapacity(t *testing.T) {
	policy := testPolicy()
	policy.DailyMax = 1
	store := newMockStore()
	cache := newMockCache()
	svc := NewService(store, cache, policy, func() time.Time { return fixedNow })
	ctx := context.Background()

	r, err := svc.CreateReservation(ctx, NewReservation{Name: "A", Phone: "1", Date: "2026-10-24", Time: "09:00"})
	if err != nil {
		t.Fatalf("CreateReservation() error = %v", err)
	}
	day, _ := svc.Day(ctx, "2026-10-24")
	if !day.FullyBooked {
		t.Fatal("day should be full")
	}

	if _, err := svc.CancelReservation(ctx, r.ID); err != nil {
		t.Fatalf("CancelReservation() error = %v", err)
	}
	day, _ = svc.Day(ctx, "2026-10-24")
	if day.FullyBooked || day.Remaining != 1 {
		t.Errorf("capacity not freed: %+v", day)
	}
	if cache.invalidated != 2 {
		t.Errorf("cache invalidated %d times, want 2", cache.invalidated)
	}
}

func TestCalendarUsesCache(t *testing.T) {
	store := newMockStore()
	cache := newMockCache()
	svc := newTestService(store, cache)
	ctx := context.Background()

	if _, err := svc.Calendar(ctx, "2026-10-20", "2026-10-26"); err != nil {
		t.Fatalf("Calendar() error = %v", err)
	}
	if _, err := svc.Calendar(ctx, "2026-10-20", "2026-10-26"); err != nil {
		t.Fatalf("Calendar() error = %v", err)
	}
	if store.reads != 1 {
		t.Errorf("store read %d times, want 1 (second call cached)", store.reads)
	}

	days, _ := svc.Calendar(ctx, "2026-10-20", "2026-10-26")
	if len(days) != 7 {
		t.Fatalf("len(days) = %d, want 7", len(days))
	}
	if days[0].Selectable || !days[1].Selectable {
		t.Errorf("lead time not applied: %+v / %+v", days[0], days[1])
	}

	if _, err := svc.Calendar(ctx, "2026-01-01", "2026-12-31"); !errors.Is(err, validation.ErrInvalid) {
		t.Errorf("expected range validation error, got %v", err)
	}
}

func TestCreateReservationStoreFailure(t *testing.T) {
	store := newMockStore()
	store.ReservationsBetweenFunc = func(ctx context.Context, from, to string) ([]models.Reservation, error) {
		return nil, errors.New("cluster indisponible")
	}
	svc := newTestService(store, nil)

	_, err := svc.CreateReservation(context.Background(), NewReservation{Name: "A", Phone: "1", Date: "2026-10-25", Time: "09:00"})
	if err == nil || IsCapacityError(err) || errors.Is(err, validation.ErrInvalid) {
		t.Errorf("expected a store error, got %v", err)
	}
}

func TestCalendarDropsSummaryComputedBeforeInvalidation(t *testing.T) {
	store := newMockStore()
	cache := newMockCache()
	svc := newTestService(store, cache)
	ctx := context.Background()

	reads := 0
	store.ReservationsBetweenFunc = func(ctx context.Context, from, to string) ([]models.Reservation, error) {
		reads++
		if reads == 1 {
			// une réservation est écrite pendant le calcul du premier résumé
			cache.InvalidateCalendar(ctx)
		}
		return nil, nil
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Calendar(ctx, "2026-10-20", "2026-10-26"); err != nil {
			t.Fatalf("Calendar() error = %v", err)
		}
	}
	if reads != 2 {
		t.Errorf("store read %d times, want 2 (stale summary must not be served)", reads)
	}
}
