package cart

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"cake_back_end/internal/models"
	"cake_back_end/internal/validation"
)

// MaxQuantity borne la quantité d'une ligne
const MaxQuantity = 50

var ErrItemNotFound = errors.New("article introuvable dans le panier")

// lockStripes borne le nombre de verrous quel que soit le nombre de paniers
const lockStripes = 64

type Service struct {
	store Store
	// verrous répartis par hachage du jeton : deux onglets du même client ne
	// s'écrasent pas
	locks [lockStripes]sync.Mutex
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func stripe(token string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % lockStripes)
}

func (s *Service) lock(token string) func() {
	m := &s.locks[stripe(token)]
	m.Lock()
	return m.Unlock
}

// Total : prix unitaires figés × quantités
func Total(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func view(token string, items []models.CartItem) models.Cart {
	if items == nil {
		items = []models.CartItem{}
	}
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return models.Cart{Token: token, Items: items, Total: Total(items), Count: count}
}

func (s *Service) Get(ctx context.Context, token string) (models.Cart, error) {
	items, err := s.store.Load(ctx, token)
	if err != nil {
		return models.Cart{}, err
	}
	return view(token, items), nil
}

// Add ajoute une ligne déjà figée par le moteur de prix
func (s *Service) Add(ctx context.Context, token string, item models.CartItem) (models.Cart, error) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if item.Quantity > MaxQuantity {
		return models.Cart{}, validation.Problem(fmt.Sprintf("quantité maximale %d", MaxQuantity))
	}

	unlock := s.lock(token)
	defer unlock()

	items, err := s.store.Load(ctx, token)
	if err != nil {
		return models.Cart{}, err
	}
	items = append(items, item)
	if err := s.store.Save(ctx, token, items); err != nil {
		return models.Cart{}, err
	}
	return view(token, items), nil
}

// UpdateQuantity : 0 supprime la ligne
func (s *Service) UpdateQuantity(ctx context.Context, token, itemID string, quantity int) (models.Cart, error) {
	if quantity < 0 || quantity > MaxQuantity {
		return models.Cart{}, validation.Problem(fmt.Sprintf("quantité invalide (0 à %d)", MaxQuantity))
	}
	if quantity == 0 {
		return s.Remove(ctx, token, itemID)
	}

	unlock := s.lock(token)
	defer unlock()

	items, err := s.store.Load(ctx, token)
	if err != nil {
		return models.Cart{}, err
	}
	found := false
	for i := range items {
		if items[i].ID == itemID {
			items[i].Quantity = quantity
			found = true
			break
		}
	}
	if !found {
		return models.Cart{}, ErrItemNotFound
	}
	if err := s.store.Save(ctx, token, items); err != nil {
		return models.Cart{}, err
	}
	return view(token, items), nil
}

func (s *Service) Remove(ctx context.Context, token, itemID string) (models.Cart, error) {
	unlock := s.lock(token)
	defer unlock()

	items, err := s.store.Load(ctx, token)
	if err != nil {
		return models.Cart{}, err
	}
	kept := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return models.Cart{}, ErrItemNotFound
	}
	if err := s.store.Save(ctx, token, kept); err != nil {
		return models.Cart{}, err
	}
	return view(token, kept), nil
}

// Consume passe le panier à fn sous le verrou du jeton, puis le vide si fn
// réussit. Aucun ajout concurrent ne peut se glisser entre la lecture et la
// suppression. Un échec de suppression est seulement journalisé : l'effet de
// fn est déjà acquis.
func (s *Service) Consume(ctx context.Context, token string, fn func(models.Cart) error) error {
	unlock := s.lock(token)
	defer unlock()

	items, err := s.store.Load(ctx, token)
	if err != nil {
		return err
	}
	if err := fn(view(token, items)); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, token); err != nil {
		log.Printf("⚠️ Panier %s non vidé: %v", token, err)
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, token string) error {
	unlock := s.lock(token)
	defer unlock()
	return s.store.Delete(ctx, token)
}
