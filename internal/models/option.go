package models

import "github.com/shopspring/decimal"

type OptionType string

const (
	OptionSize       OptionType = "size"
	OptionFlavor     OptionType = "flavor"
	OptionFilling    OptionType = "filling"
	OptionCovering   OptionType = "covering"
	OptionDecoration OptionType = "decoration"
	OptionLayer      OptionType = "layer"
)

// OptionTypes liste les axes de personnalisation dans l'ordre du configurateur
var OptionTypes = []OptionType{
	OptionSize,
	OptionFlavor,
	OptionFilling,
	OptionCovering,
	OptionDecoration,
	OptionLayer,
}

func (t OptionType) Valid() bool {
	for _, known := range OptionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// CustomizationOption est une entrée du catalogue global. Price est un delta
// signé, sauf pour les tailles où c'est le prix complet du palier.
type CustomizationOption struct {
	ID          string          `json:"id" db:"option_id"`
	Type        OptionType      `json:"option_type" db:"option_type"`
	Name        string          `json:"name" db:"name"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Description string          `json:"description,omitempty" db:"description"`
	IsActive    bool            `json:"is_active" db:"is_active"`
}
