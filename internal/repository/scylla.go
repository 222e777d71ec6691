package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"gopkg.in/inf.v0"

	"cake_back_end/internal/models"
	"cake_back_end/internal/reservation"
)

const (
	// casRetries borne les tentatives compare-and-set sur le compteur journalier
	casRetries = 8
	// datesPerQuery limite la taille des clauses IN sur reservations_by_date
	datesPerQuery = 31
)

var errCASContention = errors.New("trop de contention sur le compteur journalier")

type ScyllaStore struct {
	session *gocql.Session
}

func NewScyllaStore(session *gocql.Session) *ScyllaStore {
	return &ScyllaStore{session: session}
}

func (s *ScyllaStore) Close() {
	s.session.Close()
}

func (s *ScyllaStore) query(ctx context.Context, stmt string, values ...interface{}) *gocql.Query {
	return s.session.Query(stmt, values...).WithContext(ctx)
}

func notFound(err error, what string) error {
	if errors.Is(err, gocql.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// =============================================
// PRODUITS
// =============================================

const productColumns = `product_id, name, description, image_url, base_price, category, is_active, kind, allowed_options, default_options, created_at, updated_at`

func scanProduct(scan func(dest ...interface{}) error) (models.Product, error) {
	var (
		p                 models.Product
		id                gocql.UUID
		price             *inf.Dec
		kind              string
		allowed, defaults string
	)
	if err := scan(&id, &p.Name, &p.Description, &p.ImageURL, &price, &p.Category, &p.IsActive, &kind, &allowed, &defaults, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return models.Product{}, err
	}
	p.ID = uuid.UUID(id)
	p.BasePrice = fromCQLDecimal(price)
	p.Kind = models.ProductKind(kind)

	var err error
	if p.AllowedOptions, err = decodeAllowed(allowed); err != nil {
		return models.Product{}, err
	}
	if p.DefaultOptions, err = decodeDefaults(defaults); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

func (s *ScyllaStore) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	iter := s.query(ctx, `SELECT `+productColumns+` FROM products`).Iter()
	scanner := iter.Scanner()

	var products []models.Product
	for scanner.Next() {
		p, err := scanProduct(scanner.Scan)
		if err != nil {
			log.Printf("⚠️ Produit ignoré (lecture impossible): %v", err)
			continue
		}
		if !filter.IncludeInactive && !p.IsActive {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		products = append(products, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("liste produits: %w", err)
	}
	sortProducts(products)
	return products, nil
}

func (s *ScyllaStore) GetProduct(ctx context.Context, id uuid.UUID) (models.Product, error) {
	q := s.query(ctx, `SELECT `+productColumns+` FROM products WHERE product_id = ?`, gocql.UUID(id))
	p, err := scanProduct(q.Scan)
	if err != nil {
		return models.Product{}, notFound(err, "produit "+id.String())
	}
	return p, nil
}

func (s *ScyllaStore) SaveProduct(ctx context.Context, p models.Product) error {
	allowed, err := encodeAllowed(p.AllowedOptions)
	if err != nil {
		return err
	}
	defaults, err := encodeDefaults(p.DefaultOptions)
	if err != nil {
		return err
	}

	err = s.query(ctx, `INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gocql.UUID(p.ID), p.Name, p.Description, p.ImageURL, toCQLDecimal(p.BasePrice), p.Category,
		p.IsActive, string(p.Kind), allowed, defaults, p.CreatedAt, p.UpdatedAt,
	).Exec()
	if err != nil {
		return fmt.Errorf("sauvegarde produit %s: %w", p.ID, err)
	}
	return nil
}

func (s *ScyllaStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return err
	}
	if err := s.query(ctx, `DELETE FROM products WHERE product_id = ?`, gocql.UUID(id)).Exec(); err != nil {
		return fmt.Errorf("suppression produit %s: %w", id, err)
	}
	return nil
}

// =============================================
// OPTIONS
// =============================================

const optionColumns = `option_type, option_id, name, price, description, is_active`

func scanOption(scan func(dest ...interface{}) error) (models.CustomizationOption, error) {
	var (
		o     models.CustomizationOption
		typ   string
		price *inf.Dec
	)
	if err := scan(&typ, &o.ID, &o.Name, &price, &o.Description, &o.IsActive); err != nil {
		return models.CustomizationOption{}, err
	}
	o.Type = models.OptionType(typ)
	o.Price = fromCQLDecimal(price)
	return o, nil
}

func (s *ScyllaStore) ListOptions(ctx context.Context, t models.OptionType, includeInactive bool) ([]models.CustomizationOption, error) {
	types := models.OptionTypes
	if t != "" {
		types = []models.OptionType{t}
	}

	var options []models.CustomizationOption
	for _, typ := range types {
		scanner := s.query(ctx, `SELECT `+optionColumns+` FROM customization_options WHERE option_type = ?`, string(typ)).Iter().Scanner()
		for scanner.Next() {
			o, err := scanOption(scanner.Scan)
			if err != nil {
				log.Printf("⚠️ Option ignorée (lecture impossible): %v", err)
				continue
			}
			if !includeInactive && !o.IsActive {
				continue
			}
			options = append(options, o)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("liste options %s: %w", typ, err)
		}
	}
	sortOptions(options)
	return options, nil
}

func (s *ScyllaStore) GetOption(ctx context.Context, t models.OptionType, id string) (models.CustomizationOption, error) {
	q := s.query(ctx, `SELECT `+optionColumns+` FROM customization_options WHERE option_type = ? AND option_id = ?`, string(t), id)
	o, err := scanOption(q.Scan)
	if err != nil {
		return models.CustomizationOption{}, notFound(err, fmt.Sprintf("option %s/%s", t, id))
	}
	return o, nil
}

func (s *ScyllaStore) SaveOption(ctx context.Context, o models.CustomizationOption) error {
	err := s.query(ctx, `INSERT INTO customization_options (`+optionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		string(o.Type), o.ID, o.Name, toCQLDecimal(o.Price), o.Description, o.IsActive,
	).Exec()
	if err != nil {
		return fmt.Errorf("sauvegarde option %s/%s: %w", o.Type, o.ID, err)
	}
	return nil
}

func (s *ScyllaStore) DeleteOption(ctx context.Context, t models.OptionType, id string) error {
	if _, err := s.GetOption(ctx, t, id); err != nil {
		return err
	}
	if err := s.query(ctx, `DELETE FROM customization_options WHERE option_type = ? AND option_id = ?`, string(t), id).Exec(); err != nil {
		return fmt.Errorf("suppression option %s/%s: %w", t, id, err)
	}
	return nil
}

// =============================================
// RÉSERVATIONS
// =============================================

const reservationColumns = `reservation_id, customer_name, phone, reservation_date, reservation_time, description, order_id, status, created_at`

func scanReservation(scan func(dest ...interface{}) error) (models.Reservation, error) {
	var (
		r           models.Reservation
		id, orderID gocql.UUID
		status      string
	)
	if err := scan(&id, &r.CustomerName, &r.Phone, &r.Date, &r.Time, &r.Description, &orderID, &status, &r.CreatedAt); err != nil {
		return models.Reservation{}, err
	}
	r.ID = uuid.UUID(id)
	r.OrderID = uuid.UUID(orderID)
	r.Status = models.ReservationStatus(status)
	return r, nil
}

func (s *ScyllaStore) ReservationsBetween(ctx context.Context, from, to string) ([]models.Reservation, error) {
	dates, err := reservation.DatesBetween(from, to)
	if err != nil {
		return nil, err
	}

	var out []models.Reservation
	for start := 0; start < len(dates); start += datesPerQuery {
		end := start + datesPerQuery
		if end > len(dates) {
			end = len(dates)
		}
		scanner := s.query(ctx, `SELECT `+reservationColumns+` FROM reservations_by_date WHERE reservation_date IN ?`, dates[start:end]).Iter().Scanner()
		for scanner.Next() {
			r, err := scanReservation(scanner.Scan)
			if err != nil {
				return nil, fmt.Errorf("lecture réservation: %w", err)
			}
			out = append(out, r)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("réservations %s..%s: %w", dates[start], dates[end-1], err)
		}
	}
	sortReservations(out)
	return out, nil
}

func (s *ScyllaStore) GetReservation(ctx context.Context, id uuid.UUID) (models.Reservation, error) {
	q := s.query(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE reservation_id = ?`, gocql.UUID(id))
	r, err := scanReservation(q.Scan)
	if err != nil {
		return models.Reservation{}, notFound(err, "réservation "+id.String())
	}
	return r, nil
}

// ReserveSlot réserve de façon atomique via des transactions légères :
// 1. le compteur du jour avance par compare-and-set, refusé au plafond ;
// 2. le créneau (date, heure) est pris par INSERT IF NOT EXISTS ;
// 3. la réservation est écrite. Tout échec libère ce qui a été pris.
func (s *ScyllaStore) ReserveSlot(ctx context.Context, r models.Reservation, dailyMax int) error {
	if err := s.claimDay(ctx, r.Date, dailyMax); err != nil {
		return err
	}

	applied, err := s.query(ctx,
		`INSERT INTO reservation_slots (reservation_date, reservation_time, reservation_id) VALUES (?, ?, ?) IF NOT EXISTS`,
		r.Date, r.Time, gocql.UUID(r.ID),
	).SerialConsistency(gocql.Serial).MapScanCAS(map[string]interface{}{})
	if err != nil || !applied {
		s.releaseDay(ctx, r.Date)
		if err != nil {
			return fmt.Errorf("prise du créneau %s %s: %w", r.Date, r.Time, err)
		}
		return reservation.ErrSlotTaken
	}

	if err := s.writeReservation(ctx, r); err != nil {
		s.releaseSlot(ctx, r)
		s.releaseDay(ctx, r.Date)
		return err
	}
	return nil
}

func (s *ScyllaStore) writeReservation(ctx context.Context, r models.Reservation) error {
	values := []interface{}{
		gocql.UUID(r.ID), r.CustomerName, r.Phone, r.Date, r.Time, r.Description,
		gocql.UUID(r.OrderID), string(r.Status), r.CreatedAt,
	}
	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO reservations (`+reservationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, values...)
	batch.Query(`INSERT INTO reservations_by_date (`+reservationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, values...)
	if err := s.session.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("écriture réservation %s: %w", r.ID, err)
	}
	return nil
}

// claimDay incrémente booked si le plafond n'est pas atteint
func (s *ScyllaStore) claimDay(ctx context.Context, date string, dailyMax int) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		var booked int
		err := s.query(ctx, `SELECT booked FROM reservation_day_counts WHERE reservation_date = ?`, date).
			Consistency(gocql.Quorum).Scan(&booked)

		switch {
		case errors.Is(err, gocql.ErrNotFound):
			if dailyMax < 1 {
				return reservation.ErrCapacityReached
			}
			applied, err := s.query(ctx,
				`INSERT INTO reservation_day_counts (reservation_date, booked) VALUES (?, 1) IF NOT EXISTS`, date,
			).SerialConsistency(gocql.Serial).MapScanCAS(map[string]interface{}{})
			if err != nil {
				return fmt.Errorf("compteur du %s: %w", date, err)
			}
			if applied {
				return nil
			}
		case err != nil:
			return fmt.Errorf("compteur du %s: %w", date, err)
		default:
			if booked >= dailyMax {
				return reservation.ErrCapacityReached
			}
			applied, err := s.query(ctx,
				`UPDATE reservation_day_counts SET booked = ? WHERE reservation_date = ? IF booked = ?`,
				booked+1, date, booked,
			).SerialConsistency(gocql.Serial).MapScanCAS(map[string]interface{}{})
			if err != nil {
				return fmt.Errorf("compteur du %s: %w", date, err)
			}
			if applied {
				return nil
			}
		}
	}
	return fmt.Errorf("%w (%s)", errCASContention, date)
}

func (s *ScyllaStore) releaseDay(ctx context.Context, date string) {
	for attempt := 0; attempt < casRetries; attempt++ {
		var booked int
		err := s.query(ctx, `SELECT booked FROM reservation_day_counts WHERE reservation_date = ?`, date).
			Consistency(gocql.Quorum).Scan(&booked)
		if err != nil {
			log.Printf("⚠️ Libération compteur %s impossible: %v", date, err)
			return
		}
		if booked <= 0 {
			return
		}
		applied, err := s.query(ctx,
			`UPDATE reservation_day_counts SET booked = ? WHERE reservation_date = ? IF booked = ?`,
			booked-1, date, booked,
		).SerialConsistency(gocql.Serial).MapScanCAS(map[string]interface{}{})
		if err != nil {
			log.Printf("⚠️ Libération compteur %s impossible: %v", date, err)
			return
		}
		if applied {
			return
		}
	}
	log.Printf("❌ Compteur %s non libéré après %d tentatives", date, casRetries)
}

func (s *ScyllaStore) releaseSlot(ctx context.Context, r models.Reservation) {
	_, err := s.query(ctx,
		`DELETE FROM reservation_slots WHERE reservation_date = ? AND reservation_time = ? IF reservation_id = ?`,
		r.Date, r.Time, gocql.UUID(r.ID),
	).SerialConsistency(gocql.Serial).MapScanCAS(map[string]interface{}{})
	if err != nil {
		log.Printf("⚠️ Libération créneau %s %s impossible: %v", r.Date, r.Time, err)
	}
}

func (s *ScyllaStore) CancelReservation(ctx context.Context, id uuid.UUID) (models.Reservation, error) {
	r, err := s.GetReservation(ctx, id)
	if err != nil {
		return models.Reservation{}, err
	}
	if r.Status == models.ReservationCancelled {
		return r, nil
	}

	r.Status = models.ReservationCancelled
	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`UPDATE reservations SET status = ? WHERE reservation_id = ?`, string(r.Status), gocql.UUID(r.ID))
	batch.Query(`UPDATE reservations_by_date SET status = ? WHERE reservation_date = ? AND reservation_id = ?`, string(r.Status), r.Date, gocql.UUID(r.ID))
	if err := s.session.ExecuteBatch(batch); err != nil {
		return models.Reservation{}, fmt.Errorf("annulation réservation %s: %w", id, err)
	}

	s.releaseSlot(ctx, r)
	s.releaseDay(ctx, r.Date)
	return r, nil
}

// =============================================
// COMMANDES
// =============================================

const orderColumns = `order_id, customer_name, phone, email, delivery_type, address, delivery_date, delivery_time, items, subtotal, delivery_fee, total, notes, status, reservation_id, created_at, updated_at`

func scanOrder(scan func(dest ...interface{}) error) (models.Order, error) {
	var (
		o                    models.Order
		id, reservationID    gocql.UUID
		deliveryType, status string
		items                string
		subtotal, fee, total *inf.Dec
	)
	if err := scan(&id, &o.CustomerName, &o.Phone, &o.Email, &deliveryType, &o.Address, &o.DeliveryDate, &o.DeliveryTime,
		&items, &subtotal, &fee, &total, &o.Notes, &status, &reservationID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return models.Order{}, err
	}
	o.ID = uuid.UUID(id)
	o.ReservationID = uuid.UUID(reservationID)
	o.DeliveryType = models.DeliveryType(deliveryType)
	o.Status = models.OrderStatus(status)
	o.Subtotal = fromCQLDecimal(subtotal)
	o.DeliveryFee = fromCQLDecimal(fee)
	o.Total = fromCQLDecimal(total)

	var err error
	if o.Items, err = decodeItems(items); err != nil {
		return models.Order{}, err
	}
	return o, nil
}

func (s *ScyllaStore) CreateOrder(ctx context.Context, o models.Order) error {
	items, err := encodeItems(o.Items)
	if err != nil {
		return err
	}

	applied, err := s.query(ctx, `INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		gocql.UUID(o.ID), o.CustomerName, o.Phone, o.Email, string(o.DeliveryType), o.Address, o.DeliveryDate, o.DeliveryTime,
		items, toCQLDecimal(o.Subtotal), toCQLDecimal(o.DeliveryFee), toCQLDecimal(o.Total), o.Notes, string(o.Status),
		gocql.UUID(o.ReservationID), o.CreatedAt, o.UpdatedAt,
	).SerialConsistency(gocql.Serial).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("création commande %s: %w", o.ID, err)
	}
	if !applied {
		return fmt.Errorf("commande %s déjà existante", o.ID)
	}
	return nil
}

func (s *ScyllaStore) GetOrder(ctx context.Context, id uuid.UUID) (models.Order, error) {
	q := s.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, gocql.UUID(id))
	o, err := scanOrder(q.Scan)
	if err != nil {
		return models.Order{}, notFound(err, "commande "+id.String())
	}
	return o, nil
}

func (s *ScyllaStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	scanner := s.query(ctx, `SELECT `+orderColumns+` FROM orders`).Iter().Scanner()

	var orders []models.Order
	for scanner.Next() {
		o, err := scanOrder(scanner.Scan)
		if err != nil {
			log.Printf("⚠️ Commande ignorée (lecture impossible): %v", err)
			continue
		}
		orders = append(orders, o)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("liste commandes: %w", err)
	}
	sortOrders(orders)
	return orders, nil
}

func (s *ScyllaStore) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (models.Order, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	if err := s.query(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ?`,
		string(status), o.UpdatedAt, gocql.UUID(id)).Exec(); err != nil {
		return models.Order{}, fmt.Errorf("mise à jour commande %s: %w", id, err)
	}
	return o, nil
}

func (s *ScyllaStore) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetOrder(ctx, id); err != nil {
		return err
	}
	if err := s.query(ctx, `DELETE FROM orders WHERE order_id = ?`, gocql.UUID(id)).Exec(); err != nil {
		return fmt.Errorf("suppression commande %s: %w", id, err)
	}
	return nil
}
