package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart est la vue renvoyée au client ; Total et Count sont recalculés à chaque lecture
type Cart struct {
	Token string          `json:"token"`
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// CartItem est figé à l'ajout : les noms d'options et TotalPrice ne suivent
// jamais les modifications ultérieures du catalogue.
type CartItem struct {
	ID             string                `json:"id"`
	ProductID      uuid.UUID             `json:"product_id"`
	Name           string                `json:"name"`
	ImageURL       string                `json:"image_url,omitempty"`
	CustomImageURL string                `json:"custom_image_url,omitempty"`
	Options        map[OptionType]string `json:"options,omitempty"`
	Notes          string                `json:"notes,omitempty"`
	TotalPrice     decimal.Decimal       `json:"total_price"`
	Quantity       int                   `json:"quantity"`
}

// DisplayImage privilégie l'image fournie par le client
func (i CartItem) DisplayImage() string {
	if i.CustomImageURL != "" {
		return i.CustomImageURL
	}
	return i.ImageURL
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.TotalPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
