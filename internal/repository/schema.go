package repository

import (
	"context"
	"fmt"
	"log"
)

// schema : une table par motif d'accès. reservation_slots et
// reservation_day_counts portent les transactions légères du moteur de réservation.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		product_id uuid PRIMARY KEY,
		name text,
		description text,
		image_url text,
		base_price decimal,
		category text,
		is_active boolean,
		kind text,
		allowed_options text,
		default_options text,
		created_at timestamp,
		updated_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS customization_options (
		option_type text,
		option_id text,
		name text,
		price decimal,
		description text,
		is_active boolean,
		PRIMARY KEY (option_type, option_id)
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		reservation_id uuid PRIMARY KEY,
		customer_name text,
		phone text,
		reservation_date text,
		reservation_time text,
		description text,
		order_id uuid,
		status text,
		created_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS reservations_by_date (
		reservation_date text,
		reservation_id uuid,
		reservation_time text,
		customer_name text,
		phone text,
		description text,
		order_id uuid,
		status text,
		created_at timestamp,
		PRIMARY KEY (reservation_date, reservation_id)
	)`,
	`CREATE TABLE IF NOT EXISTS reservation_slots (
		reservation_date text,
		reservation_time text,
		reservation_id uuid,
		PRIMARY KEY ((reservation_date, reservation_time))
	)`,
	`CREATE TABLE IF NOT EXISTS reservation_day_counts (
		reservation_date text PRIMARY KEY,
		booked int
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id uuid PRIMARY KEY,
		customer_name text,
		phone text,
		email text,
		delivery_type text,
		address text,
		delivery_date text,
		delivery_time text,
		items text,
		subtotal decimal,
		delivery_fee decimal,
		total decimal,
		notes text,
		status text,
		reservation_id uuid,
		created_at timestamp,
		updated_at timestamp
	)`,
}

// EnsureSchema crée les tables manquantes dans le keyspace de la session
func (s *ScyllaStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if err := s.session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("création schéma: %w", err)
		}
	}
	log.Printf("✅ Schéma ScyllaDB vérifié (%d tables)", len(schema))
	return nil
}
