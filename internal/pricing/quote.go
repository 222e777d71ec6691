package pricing

import (
	"github.com/shopspring/decimal"

	"cake_back_end/internal/models"
)

type Quote struct {
	ProductID  string                       `json:"product_id"`
	Selections models.Selections            `json:"selections"`
	Labels     map[models.OptionType]string `json:"labels"`
	Total      decimal.Decimal              `json:"total"`
	Display    string                       `json:"display"`
}

// QuoteFor applique les options par défaut, valide, puis calcule le total.
// Un total négatif est refusé ici : aucune ligne de panier ne peut en découler.
func QuoteFor(product models.Product, selections models.Selections, catalog Catalog, mode Mode) (Quote, error) {
	resolved := ApplyDefaults(product, selections)
	if !product.IsCustomizable() {
		resolved = models.Selections{}
	}

	if err := ValidateRequiredSelections(product, resolved, mode); err != nil {
		return Quote{}, err
	}

	total, err := ComputeTotal(product, resolved, catalog)
	if err != nil {
		return Quote{}, err
	}
	if total.IsNegative() {
		return Quote{}, invalid(ErrNegativeTotal, "%s", Display(total))
	}

	return Quote{
		ProductID:  product.ID.String(),
		Selections: resolved,
		Labels:     Labels(resolved, catalog),
		Total:      total,
		Display:    Display(total),
	}, nil
}
