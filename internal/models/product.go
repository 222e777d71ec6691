package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductKind string

const (
	KindReadyMade    ProductKind = "ready_made"
	KindCustomizable ProductKind = "customizable"
)

func (k ProductKind) Valid() bool {
	return k == KindReadyMade || k == KindCustomizable
}

// AllowedOptions restreint le catalogue global d'options pour un produit.
// Clé absente = type non restreint ; clé présente avec liste vide = aucune
// option de ce type n'est proposée.
type AllowedOptions map[OptionType][]string

// Restriction retourne les ids autorisés pour t et si t est restreint.
func (a AllowedOptions) Restriction(t OptionType) ([]string, bool) {
	if a == nil {
		return nil, false
	}
	ids, ok := a[t]
	return ids, ok
}

func (a AllowedOptions) Permits(t OptionType, id string) bool {
	ids, restricted := a.Restriction(t)
	if !restricted {
		return true
	}
	for _, allowed := range ids {
		if allowed == id {
			return true
		}
	}
	return false
}

// DefaultOptions : id d'option présélectionné par type
type DefaultOptions map[OptionType]string

// Selections : id d'option choisi par type
type Selections map[OptionType]string

func (s Selections) Get(t OptionType) string {
	if s == nil {
		return ""
	}
	return s[t]
}

type Product struct {
	ID             uuid.UUID       `json:"id" db:"product_id"`
	Name           string          `json:"name" db:"name"`
	Description    string          `json:"description" db:"description"`
	ImageURL       string          `json:"image_url" db:"image_url"`
	BasePrice      decimal.Decimal `json:"base_price" db:"base_price"`
	Category       string          `json:"category" db:"category"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	Kind           ProductKind     `json:"kind" db:"kind"`
	AllowedOptions AllowedOptions  `json:"allowed_options,omitempty" db:"allowed_options"`
	DefaultOptions DefaultOptions  `json:"default_options,omitempty" db:"default_options"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

func (p Product) IsCustomizable() bool {
	return p.Kind == KindCustomizable
}
