package pricing

import (
	"fmt"
	"strings"

	"cake_back_end/internal/models"
	"cake_back_end/internal/validation"
)

// ValidateProduct contrôle une fiche produit saisie dans l'admin
func ValidateProduct(p models.Product) error {
	verr := &validation.Error{}
	verr.Require("name", p.Name)
	if p.BasePrice.IsNegative() {
		verr.Add("le prix de base ne peut pas être négatif")
	}
	if !p.Kind.Valid() {
		verr.Add(fmt.Sprintf("type de produit inconnu %q", p.Kind))
	}
	for t := range p.AllowedOptions {
		if !t.Valid() {
			verr.Add(fmt.Sprintf("type d'option inconnu %q", t))
		}
	}
	for t, id := range p.DefaultOptions {
		if !t.Valid() {
			verr.Add(fmt.Sprintf("type d'option inconnu %q", t))
			continue
		}
		if !p.AllowedOptions.Permits(t, id) {
			verr.Add(fmt.Sprintf("l'option par défaut %s=%s n'est pas autorisée", t, id))
		}
	}
	return verr.Err()
}

// ValidateOption contrôle une option ; un prix négatif reste permis (remise)
func ValidateOption(o models.CustomizationOption) error {
	verr := &validation.Error{}
	verr.Require("id", o.ID)
	verr.Require("name", o.Name)
	if !o.Type.Valid() {
		verr.Add(fmt.Sprintf("type d'option inconnu %q", o.Type))
	}
	if strings.ContainsAny(o.ID, " /") {
		verr.Add("l'identifiant ne doit contenir ni espace ni '/'")
	}
	return verr.Err()
}
