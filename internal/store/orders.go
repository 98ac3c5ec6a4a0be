package store

import (
	"context"
	"time"

	"atelier_back_end/internal/database"
	"atelier_back_end/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Orders struct {
	coll *mongo.Collection
}

var _ OrderStore = (*Orders)(nil)

func NewOrders(db *mongo.Database) *Orders {
	return &Orders{coll: db.Collection(database.CollOrders)}
}

func (s *Orders) Create(ctx context.Context, o *models.Order) error {
	now := time.Now().UTC()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = models.OrderPending
	}
	o.CreatedAt, o.UpdatedAt = now, now
	_, err := s.coll.InsertOne(ctx, o)
	return mapErr(err)
}

func (s *Orders) Get(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

func (s *Orders) List(ctx context.Context, status models.OrderStatus, limit int64) ([]models.Order, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []models.Order{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus ne passe de from à to que si le statut courant est encore from.
// ErrConflict si la commande a changé entre-temps.
func (s *Orders) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
	)
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
	return ErrConflict
}

func (s *Orders) AttachPayment(ctx context.Context, id, paymentID, gatewayOrderID string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"payment_id":       paymentID,
			"gateway_order_id": gatewayOrderID,
			"updated_at":       time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	return notFoundIfZero(res.MatchedCount)
}

type statusBucket struct {
	Status models.OrderStatus `bson:"_id"`
	Count  int64              `bson:"count"`
	Total  decimal.Decimal    `bson:"total"`
}

func (s *Orders) Stats(ctx context.Context) (*OrderStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
			"total": bson.M{"$sum": "$total"},
		}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var buckets []statusBucket
	if err := cur.All(ctx, &buckets); err != nil {
		return nil, err
	}
	return summarize(buckets), nil
}

func summarize(buckets []statusBucket) *OrderStats {
	stats := &OrderStats{Revenue: decimal.Zero, ByStatus: map[models.OrderStatus]int64{}}
	for _, b := range buckets {
		stats.Orders += b.Count
		stats.ByStatus[b.Status] = b.Count
		if b.Status.Settled() {
			stats.Revenue = stats.Revenue.Add(b.Total)
		}
	}
	return stats
}
