package pricing

import (
	"sort"

	"cake_back_end/internal/models"
)

// Catalog indexe les options actives par type puis par id
type Catalog struct {
	byType map[models.OptionType]map[string]models.CustomizationOption
}

func NewCatalog(options []models.CustomizationOption) Catalog {
	c := Catalog{byType: make(map[models.OptionType]map[string]models.CustomizationOption)}
	for _, opt := range options {
		if !opt.IsActive {
			continue
		}
		if c.byType[opt.Type] == nil {
			c.byType[opt.Type] = make(map[string]models.CustomizationOption)
		}
		c.byType[opt.Type][opt.ID] = opt
	}
	return c
}

// Lookup ne retourne que les options actives
func (c Catalog) Lookup(t models.OptionType, id string) (models.CustomizationOption, bool) {
	opt, ok := c.byType[t][id]
	return opt, ok
}

func (c Catalog) Options(t models.OptionType) []models.CustomizationOption {
	out := make([]models.CustomizationOption, 0, len(c.byType[t]))
	for _, opt := range c.byType[t] {
		out = append(out, opt)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Price.Equal(out[j].Price) {
			return out[i].Price.LessThan(out[j].Price)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// FilterOptionsForProduct garde les options actives du type demandé, restreintes
// à la liste autorisée du produit quand elle existe pour ce type.
func FilterOptionsForProduct(options []models.CustomizationOption, product models.Product, t models.OptionType) []models.CustomizationOption {
	filtered := make([]models.CustomizationOption, 0, len(options))
	for _, opt := range options {
		if opt.Type != t || !opt.IsActive {
			continue
		}
		if !product.AllowedOptions.Permits(t, opt.ID) {
			continue
		}
		filtered = append(filtered, opt)
	}
	return filtered
}

// OptionsForProduct applique FilterOptionsForProduct à chaque type.
// Un produit prêt-à-vendre n'expose aucune option.
func OptionsForProduct(options []models.CustomizationOption, product models.Product) map[models.OptionType][]models.CustomizationOption {
	out := make(map[models.OptionType][]models.CustomizationOption, len(models.OptionTypes))
	if !product.IsCustomizable() {
		return out
	}
	for _, t := range models.OptionTypes {
		out[t] = FilterOptionsForProduct(options, product, t)
	}
	return out
}
