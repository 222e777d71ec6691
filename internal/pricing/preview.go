package pricing

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"cake_back_end/internal/models"
)

// Slug normalise un nom d'option en clé d'asset : sans accents, minuscules,
// séparée par des tirets ("Doce de Leite" -> "doce-de-leite").
func Slug(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

type PreviewLayer struct {
	Type     models.OptionType `json:"type"`
	OptionID string            `json:"option_id"`
	Name     string            `json:"name"`
	Key      string            `json:"key"`
}

// PreviewLayers décrit l'aperçu visuel, une couche par type sélectionné,
// dans l'ordre du configurateur ("flavor/morango").
func PreviewLayers(selections models.Selections, catalog Catalog) []PreviewLayer {
	layers := make([]PreviewLayer, 0, len(selections))
	for _, t := range models.OptionTypes {
		id := selections.Get(t)
		if id == "" {
			continue
		}
		opt, ok := catalog.Lookup(t, id)
		if !ok {
			continue
		}
		layers = append(layers, PreviewLayer{
			Type:     t,
			OptionID: id,
			Name:     opt.Name,
			Key:      string(t) + "/" + Slug(opt.Name),
		})
	}
	return layers
}
