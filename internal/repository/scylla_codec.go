package repository

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/inf.v0"

	"cake_back_end/internal/models"
)

// Les colonnes CQL decimal passent par inf.Dec côté gocql

func toCQLDecimal(d decimal.Decimal) *inf.Dec {
	return inf.NewDecBig(d.Coefficient(), inf.Scale(-d.Exponent()))
}

func fromCQLDecimal(d *inf.Dec) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(d.UnscaledBig(), -int32(d.Scale()))
}

// allowed_options est stocké en JSON : une collection CQL vide devient null
// et la distinction "liste vide" / "pas de restriction" serait perdue.
func encodeAllowed(a models.AllowedOptions) (string, error) {
	if a == nil {
		return "", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encodage allowed_options: %w", err)
	}
	return string(data), nil
}

func decodeAllowed(raw string) (models.AllowedOptions, error) {
	if raw == "" {
		return nil, nil
	}
	var a models.AllowedOptions
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("décodage allowed_options: %w", err)
	}
	for t, ids := range a {
		if ids == nil {
			a[t] = []string{}
		}
	}
	return a, nil
}

func encodeDefaults(d models.DefaultOptions) (string, error) {
	if len(d) == 0 {
		return "", nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encodage default_options: %w", err)
	}
	return string(data), nil
}

func decodeDefaults(raw string) (models.DefaultOptions, error) {
	if raw == "" {
		return nil, nil
	}
	var d models.DefaultOptions
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("décodage default_options: %w", err)
	}
	return d, nil
}

func encodeItems(items []models.OrderItem) (string, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encodage items: %w", err)
	}
	return string(data), nil
}

func decodeItems(raw string) ([]models.OrderItem, error) {
	if raw == "" {
		return []models.OrderItem{}, nil
	}
	var items []models.OrderItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("décodage items: %w", err)
	}
	return items, nil
}
