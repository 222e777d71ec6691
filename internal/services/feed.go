package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"cake_back_end/internal/models"
)

// OrderFeedChannel : canal Redis écouté par le tableau de bord admin
const OrderFeedChannel = "orders:feed"

type FeedEvent struct {
	Type  string       `json:"type"` // order_created | order_status
	Order models.Order `json:"order"`
}

// OrderFeed publie les événements de commande pour les websockets admin
type OrderFeed struct {
	client *redis.Client
}

func NewOrderFeed(client *redis.Client) *OrderFeed {
	return &OrderFeed{client: client}
}

func (f *OrderFeed) Enabled() bool {
	return f != nil && f.client != nil
}

func (f *OrderFeed) publish(ctx context.Context, event FeedEvent) error {
	if !f.Enabled() {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encodage événement: %w", err)
	}
	if err := f.client.Publish(ctx, OrderFeedChannel, data).Err(); err != nil {
		return fmt.Errorf("publication %s: %w", OrderFeedChannel, err)
	}
	return nil
}

// Notify : une nouvelle commande vient d'être enregistrée
func (f *OrderFeed) Notify(ctx context.Context, order models.Order) error {
	return f.publish(ctx, FeedEvent{Type: "order_created", Order: order})
}

func (f *OrderFeed) PublishStatus(ctx context.Context, order models.Order) error {
	return f.publish(ctx, FeedEvent{Type: "order_status", Order: order})
}

// Subscribe ouvre un abonnement ; l'appelant doit le fermer
func (f *OrderFeed) Subscribe(ctx context.Context) *redis.PubSub {
	return f.client.Subscribe(ctx, OrderFeedChannel)
}
