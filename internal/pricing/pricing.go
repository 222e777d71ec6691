package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cake_back_end/internal/models"
	"cake_back_end/internal/validation"
)

var (
	ErrUnknownOption    = errors.New("option inconnue ou inactive")
	ErrOptionNotAllowed = errors.New("option non autorisée pour ce produit")
	ErrNegativeTotal    = errors.New("le total calculé est négatif")
)

type Mode int

const (
	// ModeCustomize : personnalisation d'un produit existant, seule la taille est obligatoire
	ModeCustomize Mode = iota
	// ModeFromScratch : gâteau composé de zéro
	ModeFromScratch
)

func ParseMode(s string) Mode {
	if strings.EqualFold(s, "from_scratch") || strings.EqualFold(s, "scratch") {
		return ModeFromScratch
	}
	return ModeCustomize
}

var fromScratchRequired = []models.OptionType{
	models.OptionFlavor,
	models.OptionFilling,
	models.OptionCovering,
	models.OptionDecoration,
}

func invalid(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: "+format, append([]any{validation.ErrInvalid, sentinel}, args...)...)
}

// ComputeTotal calcule le prix unitaire d'une configuration.
// Prêt-à-vendre : prix de base, sélections ignorées.
// Personnalisable : le prix de la taille remplace le prix de base, puis chaque
// autre delta sélectionné est ajouté, négatifs compris, sans arrondi
// intermédiaire.
func ComputeTotal(product models.Product, selections models.Selections, catalog Catalog) (decimal.Decimal, error) {
	if !product.IsCustomizable() {
		return product.BasePrice, nil
	}

	total := product.BasePrice
	if id := selections.Get(models.OptionSize); id != "" {
		size, err := resolve(product, catalog, models.OptionSize, id)
		if err != nil {
			return decimal.Zero, err
		}
		total = size.Price
	}

	for _, t := range models.OptionTypes {
		if t == models.OptionSize {
			continue
		}
		id := selections.Get(t)
		if id == "" {
			continue
		}
		opt, err := resolve(product, catalog, t, id)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(opt.Price)
	}

	return total, nil
}

func resolve(product models.Product, catalog Catalog, t models.OptionType, id string) (models.CustomizationOption, error) {
	if !product.AllowedOptions.Permits(t, id) {
		return models.CustomizationOption{}, invalid(ErrOptionNotAllowed, "%s=%s", t, id)
	}
	opt, ok := catalog.Lookup(t, id)
	if !ok {
		return models.CustomizationOption{}, invalid(ErrUnknownOption, "%s=%s", t, id)
	}
	return opt, nil
}

// ValidateRequiredSelections vérifie les choix obligatoires avant l'ajout au panier
func ValidateRequiredSelections(product models.Product, selections models.Selections, mode Mode) error {
	if !product.IsCustomizable() {
		return nil
	}

	verr := &validation.Error{}
	verr.Require(string(models.OptionSize), selections.Get(models.OptionSize))
	if mode == ModeFromScratch {
		for _, t := range fromScratchRequired {
			verr.Require(string(t), selections.Get(t))
		}
	}
	return verr.Err()
}

// ApplyDefaults complète les types non choisis avec les options par défaut du produit
func ApplyDefaults(product models.Product, selections models.Selections) models.Selections {
	out := make(models.Selections, len(models.OptionTypes))
	for t, id := range selections {
		if id != "" {
			out[t] = id
		}
	}
	if !product.IsCustomizable() {
		return out
	}
	for t, id := range product.DefaultOptions {
		if _, chosen := out[t]; chosen || id == "" {
			continue
		}
		if product.AllowedOptions.Permits(t, id) {
			out[t] = id
		}
	}
	return out
}

// Labels résout les noms d'options pour les sélections présentes dans le catalogue
func Labels(selections models.Selections, catalog Catalog) map[models.OptionType]string {
	labels := make(map[models.OptionType]string, len(selections))
	for _, t := range models.OptionTypes {
		id := selections.Get(t)
		if id == "" {
			continue
		}
		if opt, ok := catalog.Lookup(t, id); ok {
			labels[t] = opt.Name
		}
	}
	return labels
}

type LineInput struct {
	Selections  models.Selections
	Total       decimal.Decimal
	Quantity    int
	Notes       string
	CustomImage string
}

// BuildCartItem fige la ligne : noms d'options (pas les ids) et prix unitaire
func BuildCartItem(product models.Product, catalog Catalog, in LineInput) (models.CartItem, error) {
	if in.Total.IsNegative() {
		return models.CartItem{}, invalid(ErrNegativeTotal, "%s", in.Total.StringFixed(2))
	}

	quantity := in.Quantity
	if quantity < 1 {
		quantity = 1
	}

	item := models.CartItem{
		ID:             uuid.NewString(),
		ProductID:      product.ID,
		Name:           product.Name,
		ImageURL:       product.ImageURL,
		CustomImageURL: strings.TrimSpace(in.CustomImage),
		Notes:          strings.TrimSpace(in.Notes),
		TotalPrice:     in.Total,
		Quantity:       quantity,
	}
	if labels := Labels(in.Selections, catalog); len(labels) > 0 {
		item.Options = labels
	}
	return item, nil
}

// Display arrondit à 2 décimales pour l'affichage
func Display(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// ForStorage arrondit une seule fois, au moment de persister un total
func ForStorage(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
