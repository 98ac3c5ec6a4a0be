package store

import (
	"context"
	"regexp"
	"time"

	"atelier_back_end/internal/database"
	"atelier_back_end/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Products struct {
	coll *mongo.Collection
}

var _ ProductStore = (*Products)(nil)

func NewProducts(db *mongo.Database) *Products {
	return &Products{coll: db.Collection(database.CollProducts)}
}

// productQuery construit le filtre Mongo du catalogue
func productQuery(f ProductFilter) bson.M {
	q := bson.M{}
	if f.ActiveOnly {
		q["active"] = true
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Featured {
		q["featured"] = true
	}
	if f.Query != "" {
		rx := containsRegex(f.Query)
		q["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"description": rx},
			bson.M{"materials": rx},
			bson.M{"category": rx},
		}
	}
	return q
}

func containsRegex(term string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
}

func (s *Products) List(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "featured", Value: -1}, {Key: "created_at", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	if f.Skip > 0 {
		opts.SetSkip(f.Skip)
	}

	cur, err := s.coll.Find(ctx, productQuery(f), opts)
	if err != nil {
		return nil, err
	}
	out := []models.Product{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get accepte l'id ou le slug
func (s *Products) Get(ctx context.Context, idOrSlug string) (*models.Product, error) {
	var p models.Product
	filter := bson.M{"$or": bson.A{bson.M{"_id": idOrSlug}, bson.M{"slug": idOrSlug}}}
	if err := s.coll.FindOne(ctx, filter).Decode(&p); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *Products) GetMany(ctx context.Context, ids []string) (map[string]models.Product, error) {
	out := make(map[string]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var list []models.Product
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (s *Products) Create(ctx context.Context, p *models.Product) error {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Slug == "" {
		p.Slug = models.Slugify(p.Name)
	}
	if p.ImageKeys == nil {
		p.ImageKeys = []string{}
	}
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := s.coll.InsertOne(ctx, p)
	return mapErr(err)
}

func (s *Products) Update(ctx context.Context, p *models.Product) error {
	if p.Slug == "" {
		p.Slug = models.Slugify(p.Name)
	}
	p.UpdatedAt = time.Now().UTC()
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return mapErr(err)
	}
	return notFoundIfZero(res.MatchedCount)
}

func (s *Products) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	return notFoundIfZero(res.DeletedCount)
}

// AdjustStock applique delta sans jamais passer sous zéro
func (s *Products) AdjustStock(ctx context.Context, id string, delta int) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["stock"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"stock": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrInsufficientStock
}

func (s *Products) Count(ctx context.Context) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{})
}

func (s *Products) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"active": true, "stock": bson.M{"$lt": threshold}})
}
