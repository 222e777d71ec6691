package checkout

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cake_back_end/internal/models"
	"cake_back_end/internal/pricing"
	"cake_back_end/internal/reservation"
	"cake_back_end/internal/validation"
)

// notifyTimeout borne l'ensemble des effets secondaires d'une commande
const notifyTimeout = 30 * time.Second

type Reserver interface {
	Validate(in reservation.NewReservation) error
	CreateReservation(ctx context.Context, in reservation.NewReservation) (models.Reservation, error)
	CancelReservation(ctx context.Context, id uuid.UUID) (models.Reservation, error)
}

type OrderWriter interface {
	CreateOrder(ctx context.Context, o models.Order) error
}

// Carts : Consume tient le panier verrouillé de la lecture à la suppression
type Carts interface {
	Consume(ctx context.Context, token string, fn func(models.Cart) error) error
}

// ImageResolver ne renvoie que des URLs durables ; les références inutilisables
// sont écartées sans erreur.
type ImageResolver interface {
	Resolve(ctx context.Context, orderID string, refs []string) []string
}

// Notifier reçoit chaque commande enregistrée (relais, e-mail, flux admin)
type Notifier interface {
	Notify(ctx context.Context, order models.Order) error
}

type Request struct {
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	DeliveryType string `json:"delivery_type"`
	Address      string `json:"address"`
	Date         string `json:"delivery_date"`
	Time         string `json:"delivery_time"`
	Notes        string `json:"notes"`
}

func (r Request) trimmed() Request {
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.TrimSpace(r.Email)
	r.DeliveryType = strings.ToLower(strings.TrimSpace(r.DeliveryType))
	r.Address = strings.TrimSpace(r.Address)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	r.Notes = strings.TrimSpace(r.Notes)
	return r
}

type Deps struct {
	Reservations Reserver
	Orders       OrderWriter
	Carts        Carts
	Images       ImageResolver
	Notifiers    []Notifier
	DeliveryFee  decimal.Decimal
	Now          func() time.Time
}

type Service struct {
	reservations Reserver
	orders       OrderWriter
	carts        Carts
	images       ImageResolver
	notifiers    []Notifier
	deliveryFee  decimal.Decimal
	now          func() time.Time

	wg sync.WaitGroup
}

func NewService(d Deps) *Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		reservations: d.Reservations,
		orders:       d.Orders,
		carts:        d.Carts,
		images:       d.Images,
		notifiers:    d.Notifiers,
		deliveryFee:  d.DeliveryFee,
		now:          now,
	}
}

// DeliveryFee : frais appliqués à un type de livraison (zéro pour le retrait)
func (s *Service) DeliveryFee(t models.DeliveryType) decimal.Decimal {
	if t == models.DeliveryHome {
		return s.deliveryFee
	}
	return decimal.Zero
}

func (s *Service) reservationFor(req Request, orderID uuid.UUID) reservation.NewReservation {
	return reservation.NewReservation{
		Name:        req.CustomerName,
		Phone:       req.Phone,
		Date:        req.Date,
		Time:        req.Time,
		Description: req.Notes,
		OrderID:     orderID,
	}
}

// Validate contrôle la demande et le panier sans aucun accès au store
func (s *Service) Validate(req Request, cart models.Cart) error {
	req = req.trimmed()

	verr := &validation.Error{}
	verr.Require("customer_name", req.CustomerName)
	verr.Require("phone", req.Phone)
	verr.Require("delivery_date", req.Date)
	verr.Require("delivery_time", req.Time)
	verr.Require("delivery_type", req.DeliveryType)

	switch models.DeliveryType(req.DeliveryType) {
	case models.DeliveryHome:
		verr.Require("address", req.Address)
	case models.DeliveryPickup, "":
	default:
		verr.Add(fmt.Sprintf("type de livraison inconnu %q", req.DeliveryType))
	}
	if len(cart.Items) == 0 {
		verr.Add("le panier est vide")
	}

	if req.Date != "" && req.Time != "" {
		if err := s.reservations.Validate(s.reservationFor(req, uuid.Nil)); err != nil {
			if rerr, ok := validation.From(err); ok {
				verr.Problems = append(verr.Problems, rerr.Problems...)
			}
		}
	}
	return verr.Err()
}

// PlaceOrder transforme le panier en commande : réservation du créneau,
// images, écriture de la commande, puis effets secondaires en arrière-plan.
// Le panier reste verrouillé jusqu'à sa suppression : deux envois simultanés
// du même panier ne produisent qu'une commande.
func (s *Service) PlaceOrder(ctx context.Context, token string, req Request) (models.Order, error) {
	req = req.trimmed()

	var order models.Order
	err := s.carts.Consume(ctx, token, func(cart models.Cart) error {
		if err := s.Validate(req, cart); err != nil {
			return err
		}

		orderID := uuid.New()
		resv, err := s.reservations.CreateReservation(ctx, s.reservationFor(req, orderID))
		if err != nil {
			return err
		}

		order = s.buildOrder(ctx, orderID, req, cart, resv)

		if err := s.orders.CreateOrder(ctx, order); err != nil {
			// la réservation ne doit pas survivre seule
			if _, cerr := s.reservations.CancelReservation(context.WithoutCancel(ctx), resv.ID); cerr != nil {
				log.Printf("❌ Réservation %s orpheline après échec de la commande %s: %v", resv.ID, orderID, cerr)
			}
			return fmt.Errorf("création commande: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	log.Printf("✅ Commande %s enregistrée (%s %s, total %s)", order.ID, order.DeliveryDate, order.DeliveryTime, pricing.Display(order.Total))

	s.notify(order)
	return order, nil
}

func (s *Service) buildOrder(ctx context.Context, orderID uuid.UUID, req Request, cart models.Cart, resv models.Reservation) models.Order {
	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		var images []string
		if s.images != nil {
			images = s.images.Resolve(ctx, orderID.String(), []string{item.DisplayImage()})
		}
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.TotalPrice,
			Options:   item.Options,
			ImageURLs: images,
			Notes:     item.Notes,
		})
	}

	deliveryType := models.DeliveryType(req.DeliveryType)
	address := req.Address
	if deliveryType == models.DeliveryPickup {
		address = models.PickupAddress
	}

	subtotal := pricing.ForStorage(cart.Total)
	fee := pricing.ForStorage(s.DeliveryFee(deliveryType))
	now := s.now().UTC()

	return models.Order{
		ID:            orderID,
		CustomerName:  req.CustomerName,
		Phone:         req.Phone,
		Email:         req.Email,
		DeliveryType:  deliveryType,
		Address:       address,
		DeliveryDate:  resv.Date,
		DeliveryTime:  resv.Time,
		Items:         items,
		Subtotal:      subtotal,
		DeliveryFee:   fee,
		Total:         subtotal.Add(fee),
		Notes:         req.Notes,
		Status:        models.OrderPending,
		ReservationID: resv.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// notify lance les notifications sans bloquer la réponse ; un échec est
// seulement journalisé, la commande reste enregistrée.
func (s *Service) notify(order models.Order) {
	if len(s.notifiers) == 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		for _, n := range s.notifiers {
			if err := n.Notify(ctx, order); err != nil {
				log.Printf("⚠️ Notification de la commande %s échouée: %v", order.ID, err)
			}
		}
	}()
}

// Wait attend la fin des notifications en cours (arrêt du serveur, tests)
func (s *Service) Wait() {
	s.wg.Wait()
}
