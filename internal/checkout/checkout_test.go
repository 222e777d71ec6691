package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cake_back_end/internal/cart"
	"cake_back_end/internal/models"
	"cake_back_end/internal/repository"
	"cake_back_end/internal/reservation"
	"cake_back_end/internal/validation"
)

var fixedNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

type mockOrders struct {
	mu     sync.Mutex
	orders []models.Order

	CreateOrderFunc func(ctx context.Context, o models.Order) error
}

func (m *mockOrders) CreateOrder(ctx context.Context, o models.Order) error {
	if m.CreateOrderFunc != nil {
		if err := m.CreateOrderFunc(ctx, o); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, o)
	return nil
}

type mockNotifier struct {
	calls atomic.Int32
	err   error
}

func (m *mockNotifier) Notify(ctx context.Context, order models.Order) error {
	m.calls.Add(1)
	return m.err
}

type mockImages struct {
	ResolveFunc func(ctx context.Context, orderID string, refs []string)
}

func (m *mockImages) Resolve(ctx context.Context, orderID string, refs []string) []string {
	if m.ResolveFunc != nil {
		m.ResolveFunc(ctx, orderID, refs)
	}
	var out []string
	for _, ref := range refs {
		if ref != "" {
			out = append(out, "https://cdn.example.com/"+orderID+"/"+ref)
		}
	}
	return out
}

type fixture struct {
	store    *repository.MemoryStore
	resv     *reservation.Service
	carts    *cart.Service
	orders   *mockOrders
	notifier *mockNotifier
	images   *mockImages
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	policy := reservation.DefaultPolicy()
	policy.Location = time.UTC

	f := &fixture{
		store:    repository.NewMemoryStore(),
		carts:    cart.NewService(cart.NewMemoryStore()),
		orders:   &mockOrders{},
		notifier: &mockNotifier{},
		images:   &mockImages{},
	}
	f.resv = reservation.NewService(f.store, nil, policy, func() time.Time { return fixedNow })
	f.svc = NewService(Deps{
		Reservations: f.resv,
		Orders:       f.orders,
		Carts:        f.carts,
		Images:       f.images,
		Notifiers:    []Notifier{f.notifier},
		DeliveryFee:  decimal.RequireFromString("12.5"),
		Now:          func() time.Time { return fixedNow },
	})
	return f
}

func (f *fixture) fillCart(t *testing.T, token string) {
	t.Helper()
	_, err := f.carts.Add(context.Background(), token, models.CartItem{
		ID:             uuid.NewString(),
		ProductID:      uuid.New(),
		Name:           "Bolo de Aniversário",
		ImageURL:       "catalogo.png",
		CustomImageURL: "meu-bolo.png",
		Options:        map[models.OptionType]string{models.OptionFlavor: "Morango"},
		TotalPrice:     decimal.RequireFromString("115"),
		Quantity:       2,
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
}

func validRequest() Request {
	return Request{
		CustomerName: " Ana ",
		Phone:        "11999990000",
		DeliveryType: "delivery",
		Address:      "Rua das Flores, 10",
		Date:         "2026-10-21",
		Time:         "10:00",
	}
}

func TestPlaceOrderDelivery(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "tok")

	order, err := f.svc.PlaceOrder(context.Background(), "tok", validRequest())
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
	f.svc.Wait()

	if !order.Subtotal.Equal(decimal.RequireFromString("230")) ||
		!order.DeliveryFee.Equal(decimal.RequireFromString("12.5")) ||
		!order.Total.Equal(decimal.RequireFromString("242.5")) {
		t.Errorf("subtotal = %s, fee = %s, total = %s", order.Subtotal, order.DeliveryFee, order.Total)
	}
	if order.CustomerName != "Ana" || order.Status != models.OrderPending {
		t.Errorf("order = %+v", order)
	}
	if len(order.Items) != 1 || len(order.Items[0].ImageURLs) != 1 ||
		order.Items[0].ImageURLs[0] != "https://cdn.example.com/"+order.ID.String()+"/meu-bolo.png" {
		t.Errorf("items = %+v", order.Items)
	}

	resv, err := f.store.GetReservation(context.Background(), order.ReservationID)
	if err != nil {
		t.Fatalf("GetReservation() error = %v", err)
	}
	if resv.OrderID != order.ID || resv.Date != "2026-10-21" || resv.Time != "10:00" {
		t.Errorf("reservation = %+v", resv)
	}

	c, _ := f.carts.Get(context.Background(), "tok")
	if len(c.Items) != 0 {
		t.Error("cart should be cleared after checkout")
	}
	if f.notifier.calls.Load() != 1 {
		t.Errorf("notifier calls = %d, want 1", f.notifier.calls.Load())
	}
}

func TestPlaceOrderPickup(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "tok")

	req := validRequest()
	req.DeliveryType = "pickup"
	req.Address = ""

	order, err := f.svc.PlaceOrder(context.Background(), "tok", req)
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
	f.svc.Wait()

	if order.Address != models.PickupAddress || !order.DeliveryFee.IsZero() {
		t.Errorf("address = %q, fee = %s", order.Address, order.DeliveryFee)
	}
	if !order.Total.Equal(order.Subtotal) {
		t.Errorf("total = %s, subtotal = %s", order.Total, order.Subtotal)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Request)
		emptyCart   bool
		wantMissing []string
	}{
		{name: "missingName", mutate: func(r *Request) { r.CustomerName = "  " }, wantMissing: []string{"customer_name"}},
		{name: "missingPhone", mutate: func(r *Request) { r.Phone = "" }, wantMissing: []string{"phone"}},
		{name: "missingDateAndTime", mutate: func(r *Request) { r.Date, r.Time = "", "" }, wantMissing: []string{"delivery_date", "delivery_time"}},
		{name: "missingDeliveryType", mutate: func(r *Request) { r.DeliveryType = "" }, wantMissing: []string{"delivery_type"}},
		{name: "deliveryWithoutAddress", mutate: func(r *Request) { r.Address = "" }, wantMissing: []string{"address"}},
		{name: "unknownDeliveryType", mutate: func(r *Request) { r.DeliveryType = "drone" }},
		{name: "unknownSlot", mutate: func(r *Request) { r.Time = "12:00" }},
		{name: "badDate", mutate: func(r *Request) { r.Date = "21/10/2026" }},
		{name: "emptyCart", mutate: func(*Request) {}, emptyCart: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if !tt.emptyCart {
				f.fillCart(t, "tok")
			}
			req := validRequest()
			tt.mutate(&req)

			_, err := f.svc.PlaceOrder(context.Background(), "tok", req)
			if !errors.Is(err, validation.ErrInvalid) {
				t.Fatalf("expected validation error, got %v", err)
			}
			verr, _ := validation.From(err)
			for _, field := range tt.wantMissing {
				found := false
				for _, m := range verr.Missing {
					if m == field {
						found = true
					}
				}
				if !found {
					t.Errorf("missing = %v, want %q listed", verr.Missing, field)
				}
			}

			reservations, _ := f.store.ReservationsBetween(context.Background(), "2026-01-01", "2026-12-31")
			if len(reservations) != 0 || len(f.orders.orders) != 0 {
				t.Error("a rejected checkout must not write anything")
			}
		})
	}
}

func TestPlaceOrderCapacityError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i, slot := range []string{"09:00", "10:00", "11:00", "13:00", "14:00"} {
		_, err := f.resv.CreateReservation(ctx, reservation.NewReservation{
			Name: fmt.Sprintf("c%d", i), Phone: "1", Date: "2026-10-21", Time: slot,
		})
		if err != nil {
			t.Fatalf("seed reservation: %v", err)
		}
	}
	f.fillCart(t, "tok")

	req := validRequest()
	req.Time = "15:00"
	_, err := f.svc.PlaceOrder(ctx, "tok", req)
	if !reservation.IsCapacityError(err) {
		t.Fatalf("expected a capacity error, got %v", err)
	}
	if len(f.orders.orders) != 0 {
		t.Error("no order may be written when the slot is refused")
	}
	c, _ := f.carts.Get(ctx, "tok")
	if len(c.Items) == 0 {
		t.Error("cart must be kept so the customer can pick another slot")
	}
}

func TestPlaceOrderCompensatesFailedOrderWrite(t *testing.T) {
	f := newFixture(t)
	f.orders.CreateOrderFunc = func(context.Context, models.Order) error { return errors.New("store down") }
	f.fillCart(t, "tok")

	_, err := f.svc.PlaceOrder(context.Background(), "tok", validRequest())
	if err == nil {
		t.Fatal("expected an error")
	}
	f.svc.Wait()

	day, _ := f.resv.Day(context.Background(), "2026-10-21")
	if day.Count != 0 {
		t.Errorf("reservation must be cancelled, day count = %d", day.Count)
	}
	if f.notifier.calls.Load() != 0 {
		t.Error("no notification for a failed order")
	}
	c, _ := f.carts.Get(context.Background(), "tok")
	if len(c.Items) == 0 {
		t.Error("cart must survive a failed order")
	}
}

func TestPlaceOrderNotifierFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("webhook down")
	f.fillCart(t, "tok")

	order, err := f.svc.PlaceOrder(context.Background(), "tok", validRequest())
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
	f.svc.Wait()

	if len(f.orders.orders) != 1 || f.orders.orders[0].ID != order.ID {
		t.Error("order must stay recorded when a notification fails")
	}
}

func TestConcurrentCheckoutsForLastSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i, slot := range []string{"09:00", "10:00", "11:00", "13:00"} {
		if _, err := f.resv.CreateReservation(ctx, reservation.NewReservation{
			Name: fmt.Sprintf("c%d", i), Phone: "1", Date: "2026-10-21", Time: slot,
		}); err != nil {
			t.Fatalf("seed reservation: %v", err)
		}
	}

	f.fillCart(t, "a")
	f.fillCart(t, "b")
	reqA, reqB := validRequest(), validRequest()
	reqA.Time, reqB.Time = "14:00", "15:00"

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, tc := range []struct {
		token string
		req   Request
	}{{"a", reqA}, {"b", reqB}} {
		wg.Add(1)
		go func(i int, token string, req Request) {
			defer wg.Done()
			_, errs[i] = f.svc.PlaceOrder(ctx, token, req)
		}(i, tc.token, tc.req)
	}
	wg.Wait()
	f.svc.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !reservation.IsCapacityError(err):
			t.Errorf("unexpected error %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("succeeded = %d, want exactly 1", succeeded)
	}
}

func TestPlaceOrderTwiceForSameCart(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "tok")
	reqA, reqB := validRequest(), validRequest()
	reqA.Time, reqB.Time = "09:00", "11:00"

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, req := range []Request{reqA, reqB} {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			_, errs[i] = f.svc.PlaceOrder(context.Background(), "tok", req)
		}(i, req)
	}
	wg.Wait()
	f.svc.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, validation.ErrInvalid):
			t.Errorf("expected empty cart rejection, got %v", err)
		}
	}
	if succeeded != 1 || len(f.orders.orders) != 1 {
		t.Errorf("succeeded = %d, orders = %d, want one order", succeeded, len(f.orders.orders))
	}
}

func TestPlaceOrderKeepsItemsAddedDuringCheckout(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "tok")

	added := make(chan error, 1)
	f.images.ResolveFunc = func(ctx context.Context, orderID string, refs []string) {
		go func() {
			_, err := f.carts.Add(context.Background(), "tok", models.CartItem{
				ID:         uuid.NewString(),
				ProductID:  uuid.New(),
				Name:       "Bolo de Pote",
				TotalPrice: decimal.RequireFromString("15"),
				Quantity:   1,
			})
			added <- err
		}()
		// laisse à l'ajout concurrent le temps d'arriver
		time.Sleep(20 * time.Millisecond)
	}

	if _, err := f.svc.PlaceOrder(context.Background(), "tok", validRequest()); err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
	if err := <-added; err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	f.svc.Wait()

	current, _ := f.carts.Get(context.Background(), "tok")
	if len(current.Items) != 1 || current.Items[0].Name != "Bolo de Pote" {
		t.Errorf("item added during checkout was lost: %+v", current.Items)
	}
}
