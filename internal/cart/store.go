package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"cake_back_end/internal/models"
)

const CartTTL = 30 * 24 * time.Hour // 30 jours

// Store persiste les lignes d'un panier par jeton invité
type Store interface {
	Load(ctx context.Context, token string) ([]models.CartItem, error)
	Save(ctx context.Context, token string, items []models.CartItem) error
	Delete(ctx context.Context, token string) error
}

func Key(token string) string {
	return "cart:" + token
}

// RedisStore garde le panier en JSON et publie chaque changement sur le canal
// du panier pour la synchronisation temps réel.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context, token string) ([]models.CartItem, error) {
	data, err := s.client.Get(ctx, Key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []models.CartItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lecture panier: %w", err)
	}

	var items []models.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("décodage panier: %w", err)
	}
	return items, nil
}

func (s *RedisStore) Save(ctx context.Context, token string, items []models.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encodage panier: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, Key(token), data, CartTTL)
	pipe.Publish(ctx, Key(token), "updated")
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sauvegarde panier: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, Key(token))
	pipe.Publish(ctx, Key(token), "cleared")
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("suppression panier: %w", err)
	}
	return nil
}

// MemoryStore sert le mode démo sans Redis et les tests. Les paniers sont
// stockés sérialisés, comme dans Redis.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, token string) ([]models.CartItem, error) {
	s.mu.Lock()
	data, ok := s.carts[token]
	s.mu.Unlock()
	if !ok {
		return []models.CartItem{}, nil
	}

	var items []models.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("décodage panier: %w", err)
	}
	return items, nil
}

func (s *MemoryStore) Save(ctx context.Context, token string, items []models.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encodage panier: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[token] = data
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, token)
	return nil
}
