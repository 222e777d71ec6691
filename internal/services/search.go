package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"cake_back_end/internal/models"
	"cake_back_end/internal/pricing"
)

const ProductIndex = "products"

var ErrSearchUnavailable = errors.New("client Elasticsearch non initialisé")

// productDocument : ce qui est indexé pour la recherche catalogue
type productDocument struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Kind        string `json:"kind"`
	IsActive    bool   `json:"is_active"`
}

type ProductSearch struct {
	client *elasticsearch.Client
	index  string
}

// NewProductSearch accepte un client nil : Search renvoie alors ErrSearchUnavailable
func NewProductSearch(client *elasticsearch.Client) *ProductSearch {
	return &ProductSearch{client: client, index: ProductIndex}
}

func (s *ProductSearch) Enabled() bool {
	return s != nil && s.client != nil
}

//
// --- INDEXATION DANS ELASTICSEARCH ---
//

func (s *ProductSearch) IndexProduct(ctx context.Context, p models.Product) error {
	if !s.Enabled() {
		return ErrSearchUnavailable
	}

	data, err := json.Marshal(productDocument{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Kind:        string(p.Kind),
		IsActive:    p.IsActive,
	})
	if err != nil {
		return fmt.Errorf("encodage produit: %w", err)
	}
	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: p.ID.String(),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("envoi Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elastic a refusé %s: %s", p.Name, res.String())
	}
	log.Printf("✅ Produit indexé dans Elasticsearch: %s", p.Name)
	return nil
}

func (s *ProductSearch) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if !s.Enabled() {
		return ErrSearchUnavailable
	}
	req := esapi.DeleteRequest{Index: s.index, DocumentID: id.String(), Refresh: "true"}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("suppression Elastic: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("elastic a refusé la suppression de %s: %s", id, res.String())
	}
	return nil
}

// Reindex réindexe tout le catalogue et retourne le nombre de produits indexés
func (s *ProductSearch) Reindex(ctx context.Context, products []models.Product) (int, error) {
	if !s.Enabled() {
		return 0, ErrSearchUnavailable
	}
	indexed := 0
	var errs []error
	for _, p := range products {
		if err := s.IndexProduct(ctx, p); err != nil {
			errs = append(errs, err)
			continue
		}
		indexed++
	}
	return indexed, errors.Join(errs...)
}

//
// --- RECHERCHE DANS ELASTICSEARCH ---
//

// Search retourne les identifiants des produits actifs correspondant à la requête,
// par pertinence.
func (s *ProductSearch) Search(ctx context.Context, query string) ([]uuid.UUID, error) {
	if !s.Enabled() {
		return nil, ErrSearchUnavailable
	}

	var buf bytes.Buffer
	q := map[string]interface{}{
		"size": 50,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":     query,
						"fields":    []string{"name^2", "description", "category"},
						"fuzziness": "AUTO",
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"is_active": true},
				},
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  &buf,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elastic: %s", res.String())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source productDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		id, err := uuid.Parse(hit.Source.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// MatchProducts : recherche de secours en mémoire, insensible à la casse et
// aux accents, sur le nom, la description et la catégorie.
func MatchProducts(products []models.Product, query string) []models.Product {
	needle := pricing.Slug(query)
	matched := []models.Product{}
	if needle == "" {
		return matched
	}
	for _, p := range products {
		haystack := pricing.Slug(p.Name + " " + p.Description + " " + p.Category)
		if strings.Contains(haystack, needle) {
			matched = append(matched, p)
		}
	}
	return matched
}
