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

type Testimonials struct {
	coll *mongo.Collection
}

var _ TestimonialStore = (*Testimonials)(nil)

func NewTestimonials(db *mongo.Database) *Testimonials {
	return &Testimonials{coll: db.Collection(database.CollTestimonials)}
}

func (s *Testimonials) List(ctx context.Context, approvedOnly bool) ([]models.Testimonial, error) {
	filter := bson.M{}
	if approvedOnly {
		filter["approved"] = true
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	out := []models.Testimonial{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Testimonials) Create(ctx context.Context, t *models.Testimonial) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC()
	_, err := s.coll.InsertOne(ctx, t)
	return mapErr(err)
}

func (s *Testimonials) Approve(ctx context.Context, id string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"approved": true}})
	if err != nil {
		return err
	}
	return notFoundIfZero(res.MatchedCount)
}

func (s *Testimonials) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	return notFoundIfZero(res.DeletedCount)
}

func (s *Testimonials) CountPending(ctx context.Context) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"approved": false})
}
