// Package search indexe et interroge le catalogue dans Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"atelier_back_end/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

const IndexName = "products"

var ErrDisabled = errors.New("recherche désactivée")

// Engine renvoie des identifiants produits, le catalogue reste la source de vérité
type Engine interface {
	Index(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Disabled est utilisé quand ELASTIC_URL est vide
type Disabled struct{}

func (Disabled) Index(context.Context, *models.Product) error { return nil }
func (Disabled) Delete(context.Context, string) error         { return nil }
func (Disabled) Search(context.Context, string, int) ([]string, error) {
	return nil, ErrDisabled
}

type Elastic struct {
	es    *elasticsearch.Client
	index string
	log   *zap.Logger
}

func NewElastic(es *elasticsearch.Client, log *zap.Logger) *Elastic {
	return &Elastic{es: es, index: IndexName, log: log}
}

type document struct {
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Materials   []string `json:"materials"`
	Colors      []string `json:"colors"`
	Price       float64  `json:"price"`
	Active      bool     `json:"active"`
	Featured    bool     `json:"featured"`
}

func (e *Elastic) Index(ctx context.Context, p *models.Product) error {
	price, _ := p.Price.Float64()
	data, err := json.Marshal(document{
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Category:    p.Category,
		Materials:   p.Materials,
		Colors:      p.Colors,
		Price:       price,
		Active:      p.Active,
		Featured:    p.Featured,
	})
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: p.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, e.es)
	if err != nil {
		return fmt.Errorf("indexation %s: %w", p.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexation %s: %s", p.ID, res.Status())
	}
	e.log.Debug("✅ Produit indexé", zap.String("id", p.ID), zap.String("name", p.Name))
	return nil
}

func (e *Elastic) Delete(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: e.index, DocumentID: id, Refresh: "true"}
	res, err := req.Do(ctx, e.es)
	if err != nil {
		return fmt.Errorf("suppression index %s: %w", id, err)
	}
	defer res.Body.Close()

	// 404 : déjà absent de l'index
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("suppression index %s: %s", id, res.Status())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

func (e *Elastic) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	body := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":     query,
						"fields":    []string{"name^3", "description", "materials", "category"},
						"fuzziness": "AUTO",
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"active": true},
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encodage requête: %w", err)
	}

	req := esapi.SearchRequest{Index: []string{e.index}, Body: &buf}
	res, err := req.Do(ctx, e.es)
	if err != nil {
		return nil, fmt.Errorf("requête elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elastic: %s", res.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("décodage réponse elastic: %w", err)
	}

	ids := make([]string, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// MatchProducts filtre par sous-chaîne insensible à la casse (repli sans Elasticsearch)
func MatchProducts(products []models.Product, query string) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return products
	}

	out := make([]models.Product, 0)
	for _, p := range products {
		if matches(&p, q) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p *models.Product, q string) bool {
	if strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(p.Category), q) {
		return true
	}
	for _, m := range p.Materials {
		if strings.Contains(strings.ToLower(m), q) {
			return true
		}
	}
	return false
}
