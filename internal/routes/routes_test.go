package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"cake_back_end/internal/cart"
	"cake_back_end/internal/checkout"
	"cake_back_end/internal/handlers/admin"
	"cake_back_end/internal/handlers/booking"
	"cake_back_end/internal/handlers/product"
	"cake_back_end/internal/handlers/user"
	"cake_back_end/internal/middleware"
	"cake_back_end/internal/models"
	"cake_back_end/internal/repository"
	"cake_back_end/internal/reservation"
	"cake_back_end/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

const (
	testSecret   = "test-secret-0123456789abcdef0123"
	testPassword = "segredo"
)

type testServer struct {
	router *gin.Engine
	store  *repository.MemoryStore
}

func newTestServer(t *testing.T, dailyMax int) *testServer {
	t.Helper()
	store := repository.NewSeededMemoryStore()

	policy := reservation.DefaultPolicy()
	policy.Location = time.UTC
	policy.DailyMax = dailyMax
	now := func() time.Time { return fixedNow }
	reservations := reservation.NewService(store, nil, policy, now)

	carts := cart.NewService(cart.NewMemoryStore())
	relay := services.NewRelay(services.RelayConfig{WhatsAppNumber: "+55 11 99999-0000"})
	co := checkout.NewService(checkout.Deps{
		Reservations: reservations,
		Orders:       store,
		Carts:        carts,
		Images:       services.NewImageResolver(nil),
		DeliveryFee:  decimal.RequireFromString("12.50"),
		Now:          now,
	})
	t.Cleanup(co.Wait)

	sessions := middleware.NewAdminSessions(testSecret, false)
	r := gin.New()
	RegisterRoutes(r, Handlers{
		Products:  product.NewHandler(store, nil),
		Bookings:  booking.NewHandler(reservations),
		Carts:     user.NewCartHandler(store, carts, testSecret),
		Checkouts: user.NewCheckoutHandler(co, reservations, relay),
		Admin: admin.NewHandler(admin.Deps{
			Store:        store,
			Reservations: reservations,
			Sessions:     sessions,
			Username:     "admin",
			Password:     testPassword,
			Relay:        relay,
		}),
		Sessions:  sessions,
		Limiter:   middleware.NewRateLimiter(nil),
		JWTSecret: testSecret,
	})
	return &testServer{router: r, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

// newCart retourne l'en-tête portant un jeton de panier neuf
func (s *testServer) newCart(t *testing.T) http.Header {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/cart/token", nil, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("token status = %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	decode(t, w, &out)
	return http.Header{middleware.CartTokenHeader: {out.Token}}
}

func (s *testServer) addCake(t *testing.T, header http.Header) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/cart/items", gin.H{
		"product_id": repository.SeedProductID("bolo-de-aniversario"),
		"selections": gin.H{"size": "medio", "flavor": "morango", "filling": "ganache", "decoration": "confetes"},
		"quantity":   2,
	}, header)
	if w.Code != http.StatusCreated {
		t.Fatalf("add item status = %d: %s", w.Code, w.Body.String())
	}
}

// adminLogin retourne l'en-tête portant le cookie de session admin
func (s *testServer) adminLogin(t *testing.T) http.Header {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/admin/login", gin.H{"username": "admin", "password": testPassword}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login did not set a session cookie")
	}
	session := &http.Cookie{Name: cookies[0].Name, Value: cookies[0].Value}
	return http.Header{"Cookie": {session.String()}}
}

func checkoutBody(date, slot string) gin.H {
	return gin.H{
		"customer_name": "Ana",
		"phone":         "11999990000",
		"delivery_type": "delivery",
		"address":       "Rua das Flores, 10",
		"delivery_date": date,
		"delivery_time": slot,
	}
}

func TestQuote(t *testing.T) {
	s := newTestServer(t, 5)
	id := repository.SeedProductID("bolo-de-aniversario").String()

	tests := []struct {
		name       string
		body       gin.H
		wantStatus int
		wantTotal  string
	}{
		{
			name:       "defaultsFillCovering",
			body:       gin.H{"selections": gin.H{"size": "medio", "flavor": "morango", "filling": "ganache", "decoration": "confetes"}},
			wantStatus: http.StatusOK,
			wantTotal:  "115.00",
		},
		{
			name:       "missingSize",
			body:       gin.H{"selections": gin.H{"flavor": "morango"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknownOption",
			body:       gin.H{"selections": gin.H{"size": "gigante"}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/products/"+id+"/quote", tt.body, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantTotal == "" {
				return
			}
			var q struct {
				Display string `json:"display"`
			}
			decode(t, w, &q)
			if q.Display != tt.wantTotal {
				t.Errorf("display = %s, want %s", q.Display, tt.wantTotal)
			}
		})
	}
}

func TestUnknownProductIs404(t *testing.T) {
	s := newTestServer(t, 5)
	w := s.do(t, http.MethodGet, "/api/products/"+repository.SeedProductID("inexistente").String(), nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	w = s.do(t, http.MethodGet, "/api/products/pas-un-uuid", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearchFallsBackToMemory(t *testing.T) {
	s := newTestServer(t, 5)
	w := s.do(t, http.MethodGet, "/api/products/search?q=cenoura", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		Results []models.Product `json:"results"`
		Source  string           `json:"source"`
	}
	decode(t, w, &out)
	if out.Source != "memory" || len(out.Results) != 1 || out.Results[0].Name != "Bolo de Cenoura" {
		t.Errorf("unexpected search result: %+v", out)
	}
}

func TestAvailabilityCalendar(t *testing.T) {
	s := newTestServer(t, 5)
	w := s.do(t, http.MethodGet, "/api/availability?from=2026-10-19&to=2026-10-22", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		EarliestDate string                    `json:"earliest_date"`
		Days         []reservation.DaySummary `json:"days"`
	}
	decode(t, w, &out)
	if out.EarliestDate != "2026-10-21" {
		t.Errorf("earliest_date = %s, want 2026-10-21", out.EarliestDate)
	}
	if len(out.Days) != 4 {
		t.Fatalf("len(days) = %d, want 4", len(out.Days))
	}
	if out.Days[0].Selectable || !out.Days[2].Selectable {
		t.Errorf("selectable flags wrong: %+v", out.Days)
	}

	if w := s.do(t, http.MethodGet, "/api/availability?from=21/10/2026", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", w.Code)
	}
}

func TestCartRequiresToken(t *testing.T) {
	s := newTestServer(t, 5)
	if w := s.do(t, http.MethodGet, "/api/cart", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestCartFlow(t *testing.T) {
	s := newTestServer(t, 5)
	header := s.newCart(t)
	s.addCake(t, header)

	w := s.do(t, http.MethodGet, "/api/cart", nil, header)
	var current models.Cart
	decode(t, w, &current)
	if len(current.Items) != 1 || !current.Total.Equal(decimal.RequireFromString("230")) {
		t.Fatalf("unexpected cart: %+v", current)
	}
	itemID := current.Items[0].ID

	w = s.do(t, http.MethodPut, "/api/cart/items/"+itemID, gin.H{"quantity": 1}, header)
	decode(t, w, &current)
	if current.Count != 1 || !current.Total.Equal(decimal.RequireFromString("115")) {
		t.Errorf("after update: count = %d, total = %s", current.Count, current.Total)
	}

	if w := s.do(t, http.MethodDelete, "/api/cart/items/inexistente", nil, header); w.Code != http.StatusNotFound {
		t.Errorf("remove unknown status = %d, want 404", w.Code)
	}
	if w := s.do(t, http.MethodDelete, "/api/cart/items/"+itemID, nil, header); w.Code != http.StatusOK {
		t.Errorf("remove status = %d, want 200", w.Code)
	}
}

func TestCheckout(t *testing.T) {
	s := newTestServer(t, 5)
	header := s.newCart(t)
	s.addCake(t, header)

	w := s.do(t, http.MethodPost, "/api/checkout", checkoutBody("2026-10-21", "10:00"), header)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		Order        models.Order `json:"order"`
		WhatsAppLink string       `json:"whatsapp_link"`
	}
	decode(t, w, &out)
	if !out.Order.Total.Equal(decimal.RequireFromString("242.50")) {
		t.Errorf("total = %s, want 242.50", out.Order.Total)
	}
	if !strings.HasPrefix(out.WhatsAppLink, "https://wa.me/5511999990000?text=") {
		t.Errorf("whatsapp_link = %s", out.WhatsAppLink)
	}

	w = s.do(t, http.MethodGet, "/api/cart", nil, header)
	var current models.Cart
	decode(t, w, &current)
	if len(current.Items) != 0 {
		t.Errorf("cart should be cleared after checkout, got %d items", len(current.Items))
	}
}

func TestCheckoutRejections(t *testing.T) {
	tests := []struct {
		name       string
		body       gin.H
		wantStatus int
		wantKey    string
	}{
		{name: "tooEarly", body: checkoutBody("2026-10-20", "10:00"), wantStatus: http.StatusBadRequest, wantKey: "earliest_date"},
		{name: "unknownSlot", body: checkoutBody("2026-10-21", "12:30"), wantStatus: http.StatusBadRequest, wantKey: "problems"},
		{name: "missingAddress", body: func() gin.H {
			b := checkoutBody("2026-10-21", "10:00")
			delete(b, "address")
			return b
		}(), wantStatus: http.StatusBadRequest, wantKey: "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 5)
			header := s.newCart(t)
			s.addCake(t, header)

			w := s.do(t, http.MethodPost, "/api/checkout", tt.body, header)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			var out map[string]any
			decode(t, w, &out)
			if _, ok := out[tt.wantKey]; !ok {
				t.Errorf("response lacks %q: %s", tt.wantKey, w.Body.String())
			}
		})
	}
}

func TestCheckoutCapacityConflict(t *testing.T) {
	s := newTestServer(t, 1)

	first := s.newCart(t)
	s.addCake(t, first)
	if w := s.do(t, http.MethodPost, "/api/checkout", checkoutBody("2026-10-21", "10:00"), first); w.Code != http.StatusCreated {
		t.Fatalf("first checkout status = %d: %s", w.Code, w.Body.String())
	}

	second := s.newCart(t)
	s.addCake(t, second)
	w := s.do(t, http.MethodPost, "/api/checkout", checkoutBody("2026-10-21", "14:00"), second)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
	var out struct {
		Retry        bool                   `json:"retry"`
		Availability reservation.DaySummary `json:"availability"`
	}
	decode(t, w, &out)
	if !out.Retry || !out.Availability.FullyBooked {
		t.Errorf("expected fresh fully booked availability, got %+v", out)
	}

	// le panier refusé reste intact pour réessayer une autre date
	w = s.do(t, http.MethodGet, "/api/cart", nil, second)
	var current models.Cart
	decode(t, w, &current)
	if len(current.Items) != 1 {
		t.Errorf("rejected cart should be kept, got %d items", len(current.Items))
	}
}

func TestAdminFlow(t *testing.T) {
	s := newTestServer(t, 5)

	if w := s.do(t, http.MethodGet, "/api/admin/orders", nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/admin/login", gin.H{"username": "admin", "password": "errado"}, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", w.Code)
	}

	adminHeader := s.adminLogin(t)

	cartHeader := s.newCart(t)
	s.addCake(t, cartHeader)
	w := s.do(t, http.MethodPost, "/api/checkout", checkoutBody("2026-10-21", "10:00"), cartHeader)
	var placed struct {
		Order models.Order `json:"order"`
	}
	decode(t, w, &placed)
	orderPath := "/api/admin/orders/" + placed.Order.ID.String()

	if w := s.do(t, http.MethodPut, orderPath+"/status", gin.H{"status": "delivered"}, adminHeader); w.Code != http.StatusConflict {
		t.Errorf("pending -> delivered status = %d, want 409", w.Code)
	}
	if w := s.do(t, http.MethodPut, orderPath+"/status", gin.H{"status": "baked"}, adminHeader); w.Code != http.StatusBadRequest {
		t.Errorf("unknown status = %d, want 400", w.Code)
	}

	w = s.do(t, http.MethodPut, orderPath+"/status", gin.H{"status": "cancelled"}, adminHeader)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel status = %d: %s", w.Code, w.Body.String())
	}

	// l'annulation libère le créneau
	w = s.do(t, http.MethodGet, "/api/availability/2026-10-21", nil, nil)
	var day reservation.DaySummary
	decode(t, w, &day)
	if day.Count != 0 {
		t.Errorf("count = %d after cancellation, want 0", day.Count)
	}

	w = s.do(t, http.MethodGet, "/api/admin/stats", nil, adminHeader)
	var stats admin.Stats
	decode(t, w, &stats)
	if stats.TotalOrders != 1 || stats.ByStatus[models.OrderCancelled] != 1 || stats.Revenue != "0.00" {
		t.Errorf("unexpected stats: %+v", stats)
	}

	w = s.do(t, http.MethodGet, orderPath+"/whatsapp-qr", nil, adminHeader)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Errorf("qr status = %d, content-type = %s", w.Code, w.Header().Get("Content-Type"))
	}
}

func TestAdminCancelReservationCancelsOrder(t *testing.T) {
	s := newTestServer(t, 5)
	adminHeader := s.adminLogin(t)

	place := func() (int, models.Order) {
		header := s.newCart(t)
		s.addCake(t, header)
		w := s.do(t, http.MethodPost, "/api/checkout", checkoutBody("2026-10-21", "10:00"), header)
		var placed struct {
			Order models.Order `json:"order"`
		}
		if w.Code == http.StatusCreated {
			decode(t, w, &placed)
		}
		return w.Code, placed.Order
	}

	code, first := place()
	if code != http.StatusCreated {
		t.Fatalf("first checkout status = %d", code)
	}

	w := s.do(t, http.MethodDelete, "/api/admin/reservations/"+first.ReservationID.String(), nil, adminHeader)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel reservation status = %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		Reservation models.Reservation `json:"reservation"`
		Order       *models.Order      `json:"order"`
	}
	decode(t, w, &out)
	if out.Reservation.Status != models.ReservationCancelled {
		t.Errorf("reservation status = %s", out.Reservation.Status)
	}
	if out.Order == nil || out.Order.Status != models.OrderCancelled {
		t.Fatalf("linked order not cancelled: %+v", out.Order)
	}

	stored, err := s.store.GetOrder(context.Background(), first.ID)
	if err != nil || stored.Status != models.OrderCancelled {
		t.Fatalf("stored order = %s, %v", stored.Status, err)
	}

	code, second := place()
	if code != http.StatusCreated {
		t.Fatalf("rebooking the freed slot status = %d", code)
	}

	orders, _ := s.store.ListOrders(context.Background())
	active := 0
	for _, o := range orders {
		if o.DeliveryDate == "2026-10-21" && o.DeliveryTime == "10:00" && o.Status != models.OrderCancelled {
			active++
			if o.ID != second.ID {
				t.Errorf("unexpected active order %s on the slot", o.ID)
			}
		}
	}
	if active != 1 {
		t.Errorf("active orders on the slot = %d, want 1", active)
	}
}

func TestAdminCancelReservationKeepsDeliveredOrder(t *testing.T) {
	s := newTestServer(t, 5)
	adminHeader := s.adminLogin(t)

	header := s.newCart(t)
	s.addCake(t, header)
	w := s.do(t, http.MethodPost, "/api/checkout", checkoutBody("2026-10-21", "14:00"), header)
	var placed struct {
		Order models.Order `json:"order"`
	}
	decode(t, w, &placed)

	if _, err := s.store.UpdateOrderStatus(context.Background(), placed.Order.ID, models.OrderDelivered); err != nil {
		t.Fatalf("UpdateOrderStatus() error = %v", err)
	}

	w = s.do(t, http.MethodDelete, "/api/admin/reservations/"+placed.Order.ReservationID.String(), nil, adminHeader)
	if w.Code != http.StatusConflict {
		t.Fatalf("cancel status = %d, want 409", w.Code)
	}
	r, err := s.store.GetReservation(context.Background(), placed.Order.ReservationID)
	if err != nil || r.Status == models.ReservationCancelled {
		t.Errorf("reservation must stay booked: %s, %v", r.Status, err)
	}
}
