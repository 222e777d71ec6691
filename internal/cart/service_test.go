package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cake_back_end/internal/models"
	"cake_back_end/internal/validation"
)

func item(price string, quantity int) models.CartItem {
	return models.CartItem{
		ID:         uuid.NewString(),
		ProductID:  uuid.New(),
		Name:       "Bolo",
		TotalPrice: decimal.RequireFromString(price),
		Quantity:   quantity,
	}
}

func TestServiceAddAndTotal(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Add(ctx, "tok", item("115.00", 1)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	cart, err := svc.Add(ctx, "tok", item("45.50", 2))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if !cart.Total.Equal(decimal.RequireFromString("206.00")) {
		t.Errorf("Total = %s, want 206.00", cart.Total)
	}
	if cart.Count != 3 || len(cart.Items) != 2 {
		t.Errorf("Count = %d, items = %d", cart.Count, len(cart.Items))
	}

	other, _ := svc.Get(ctx, "other")
	if len(other.Items) != 0 || !other.Total.IsZero() {
		t.Errorf("carts must be isolated per token: %+v", other)
	}
}

func TestServiceUpdateQuantity(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()
	line := item("80.00", 1)
	_, _ = svc.Add(ctx, "tok", line)

	tests := []struct {
		name      string
		itemID    string
		quantity  int
		wantErr   error
		wantCount int
	}{
		{name: "increase", itemID: line.ID, quantity: 3, wantCount: 3},
		{name: "negative", itemID: line.ID, quantity: -1, wantErr: validation.ErrInvalid},
		{name: "tooMany", itemID: line.ID, quantity: MaxQuantity + 1, wantErr: validation.ErrInvalid},
		{name: "unknownItem", itemID: "nope", quantity: 2, wantErr: ErrItemNotFound},
		{name: "zeroRemoves", itemID: line.ID, quantity: 0, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart, err := svc.UpdateQuantity(ctx, "tok", tt.itemID, tt.quantity)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateQuantity() error = %v", err)
			}
			if cart.Count != tt.wantCount {
				t.Errorf("Count = %d, want %d", cart.Count, tt.wantCount)
			}
		})
	}
}

func TestServiceRemoveAndClear(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()
	a, b := item("10.00", 1), item("20.00", 1)
	_, _ = svc.Add(ctx, "tok", a)
	_, _ = svc.Add(ctx, "tok", b)

	cart, err := svc.Remove(ctx, "tok", a.ID)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].ID != b.ID {
		t.Errorf("unexpected items after remove: %+v", cart.Items)
	}
	if _, err := svc.Remove(ctx, "tok", a.ID); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}

	if err := svc.Clear(ctx, "tok"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	cart, _ = svc.Get(ctx, "tok")
	if len(cart.Items) != 0 {
		t.Errorf("cart should be empty, got %d items", len(cart.Items))
	}
}

func TestServiceConcurrentAdds(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Add(ctx, "tok", item("1.00", 1)); err != nil {
				t.Errorf("Add() error = %v", err)
			}
		}()
	}
	wg.Wait()

	cart, _ := svc.Get(ctx, "tok")
	if len(cart.Items) != 20 {
		t.Errorf("len(items) = %d, want 20 (no lost update)", len(cart.Items))
	}
}

func TestItemsStayFrozen(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()
	line := item("115.00", 1)
	line.Options = map[models.OptionType]string{models.OptionFlavor: "Morango"}
	_, _ = svc.Add(ctx, "tok", line)

	// la ligne passée à Add est modifiée après coup
	line.TotalPrice = decimal.RequireFromString("999.00")
	line.Options[models.OptionFlavor] = "Outro"

	cart, _ := svc.Get(ctx, "tok")
	if !cart.Items[0].TotalPrice.Equal(decimal.RequireFromString("115.00")) {
		t.Errorf("TotalPrice = %s, want 115.00", cart.Items[0].TotalPrice)
	}
	if cart.Items[0].Options[models.OptionFlavor] != "Morango" {
		t.Errorf("option label = %s, want Morango", cart.Items[0].Options[models.OptionFlavor])
	}
}

func TestConsume(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()
	_, _ = svc.Add(ctx, "tok", item("115.00", 1))

	refused := errors.New("refusé")
	if err := svc.Consume(ctx, "tok", func(models.Cart) error { return refused }); !errors.Is(err, refused) {
		t.Fatalf("expected fn error, got %v", err)
	}
	cart, _ := svc.Get(ctx, "tok")
	if len(cart.Items) != 1 {
		t.Fatalf("a failed consume must keep the cart, got %d items", len(cart.Items))
	}

	var seen models.Cart
	if err := svc.Consume(ctx, "tok", func(c models.Cart) error { seen = c; return nil }); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if len(seen.Items) != 1 || !seen.Total.Equal(decimal.RequireFromString("115.00")) {
		t.Errorf("fn saw %+v", seen)
	}
	cart, _ = svc.Get(ctx, "tok")
	if len(cart.Items) != 0 {
		t.Errorf("cart should be empty after consume, got %d items", len(cart.Items))
	}
}

func TestLocksStayBounded(t *testing.T) {
	svc := NewService(NewMemoryStore())
	for i := 0; i < 1000; i++ {
		token := uuid.NewString()
		n := stripe(token)
		if n < 0 || n >= lockStripes || n != stripe(token) {
			t.Fatalf("stripe(%s) = %d", token, n)
		}
		svc.lock(token)()
	}
}
