package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cake_back_end/internal/models"
)

// seedNamespace rend les ids du catalogue de démo stables d'un démarrage à l'autre
var seedNamespace = uuid.MustParse("6f1c2b8e-3d4a-4f5b-9c7d-2e8a1b0c4d5e")

func SeedProductID(slug string) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(slug))
}

func seedOption(t models.OptionType, id, name, price, description string) models.CustomizationOption {
	return models.CustomizationOption{
		ID:          id,
		Type:        t,
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Description: description,
		IsActive:    true,
	}
}

// SeedOptions : catalogue global d'options de la boutique
func SeedOptions() []models.CustomizationOption {
	return []models.CustomizationOption{
		seedOption(models.OptionSize, "pequeno", "Pequeno", "60.00", "Serve 10 pessoas"),
		seedOption(models.OptionSize, "medio", "Médio", "80.00", "Serve 20 pessoas"),
		seedOption(models.OptionSize, "grande", "Grande", "120.00", "Serve 35 pessoas"),

		seedOption(models.OptionFlavor, "baunilha", "Baunilha", "0.00", ""),
		seedOption(models.OptionFlavor, "chocolate", "Chocolate", "0.00", ""),
		seedOption(models.OptionFlavor, "mesclado", "Mesclado", "5.00", "Baunilha e chocolate"),
		seedOption(models.OptionFlavor, "morango", "Morango", "10.00", ""),
		seedOption(models.OptionFlavor, "limao", "Limão", "5.00", ""),
		seedOption(models.OptionFlavor, "coco", "Coco", "5.00", ""),
		seedOption(models.OptionFlavor, "cenoura", "Cenoura", "0.00", ""),
		seedOption(models.OptionFlavor, "red-velvet", "Red Velvet", "15.00", ""),
		seedOption(models.OptionFlavor, "nozes", "Nozes", "20.00", ""),

		seedOption(models.OptionFilling, "sem-recheio", "Sem Recheio", "-10.00", "Desconto para bolo sem recheio"),
		seedOption(models.OptionFilling, "brigadeiro", "Brigadeiro", "10.00", ""),
		seedOption(models.OptionFilling, "doce-de-leite", "Doce de Leite", "10.00", ""),
		seedOption(models.OptionFilling, "ganache", "Ganache", "15.00", ""),
		seedOption(models.OptionFilling, "frutas-vermelhas", "Frutas Vermelhas", "18.00", ""),

		seedOption(models.OptionCovering, "chantilly", "Chantilly", "0.00", ""),
		seedOption(models.OptionCovering, "buttercream", "Buttercream", "12.00", ""),
		seedOption(models.OptionCovering, "pasta-americana", "Pasta Americana", "25.00", ""),

		seedOption(models.OptionDecoration, "simples", "Simples", "0.00", ""),
		seedOption(models.OptionDecoration, "confetes", "Confetes", "10.00", ""),
		seedOption(models.OptionDecoration, "flores", "Flores Comestíveis", "22.00", ""),
		seedOption(models.OptionDecoration, "topo-personalizado", "Topo Personalizado", "30.00", ""),

		seedOption(models.OptionLayer, "1", "1", "0.00", "Uma camada"),
		seedOption(models.OptionLayer, "2", "2", "20.00", "Duas camadas"),
		seedOption(models.OptionLayer, "3", "3", "40.00", "Três camadas"),
	}
}

// SeedProducts : produits de démonstration, prêts-à-vendre et personnalisables
func SeedProducts() []models.Product {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	product := func(slug, name, description, price, category string, kind models.ProductKind) models.Product {
		return models.Product{
			ID:          SeedProductID(slug),
			Name:        name,
			Description: description,
			ImageURL:    "/images/products/" + slug + ".jpg",
			BasePrice:   decimal.RequireFromString(price),
			Category:    category,
			IsActive:    true,
			Kind:        kind,
			CreatedAt:   created,
			UpdatedAt:   created,
		}
	}

	cenoura := product("bolo-de-cenoura", "Bolo de Cenoura", "Com cobertura de chocolate", "45.00", "tradicionais", models.KindReadyMade)
	pote := product("bolo-de-pote", "Bolo de Pote", "Ninho com morango", "15.00", "doces", models.KindReadyMade)

	chocolate := product("bolo-de-chocolate", "Bolo de Chocolate", "Massa de chocolate, recheio à escolha", "70.00", "personalizados", models.KindCustomizable)
	chocolate.AllowedOptions = models.AllowedOptions{
		models.OptionFlavor: {"chocolate", "mesclado"},
	}
	chocolate.DefaultOptions = models.DefaultOptions{
		models.OptionFlavor:   "chocolate",
		models.OptionCovering: "chantilly",
		models.OptionLayer:    "1",
	}

	aniversario := product("bolo-de-aniversario", "Bolo de Aniversário", "Monte o bolo do seu jeito", "60.00", "personalizados", models.KindCustomizable)
	aniversario.DefaultOptions = models.DefaultOptions{
		models.OptionCovering: "chantilly",
		models.OptionLayer:    "1",
	}

	naked := product("naked-cake", "Naked Cake", "Sem cobertura, com frutas", "90.00", "personalizados", models.KindCustomizable)
	naked.AllowedOptions = models.AllowedOptions{
		models.OptionCovering: {},
	}

	return []models.Product{cenoura, pote, chocolate, aniversario, naked}
}
