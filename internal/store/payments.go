package store

import (
	"context"
	"time"

	"atelier_back_end/internal/database"
	"atelier_back_end/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Payments struct {
	coll *mongo.Collection
}

var _ PaymentStore = (*Payments)(nil)

func NewPayments(db *mongo.Database) *Payments {
	return &Payments{coll: db.Collection(database.CollPayments)}
}

func (s *Payments) Create(ctx context.Context, p *models.Payment) error {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.PaymentCreated
	}
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := s.coll.InsertOne(ctx, p)
	return mapErr(err)
}

func (s *Payments) Get(ctx context.Context, id string) (*models.Payment, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Payments) GetByGatewayOrder(ctx context.Context, gatewayOrderID string) (*models.Payment, error) {
	return s.findOne(ctx, bson.M{"gateway_order_id": gatewayOrderID})
}

func (s *Payments) findOne(ctx context.Context, filter bson.M) (*models.Payment, error) {
	var p models.Payment
	if err := s.coll.FindOne(ctx, filter).Decode(&p); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (s *Payments) Update(ctx context.Context, p *models.Payment) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return mapErr(err)
	}
	return notFoundIfZero(res.MatchedCount)
}

func (s *Payments) List(ctx context.Context, limit int64) ([]models.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	out := []models.Payment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
