package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Noms des collections MongoDB
const (
	CollProducts     = "products"
	CollOrders       = "orders"
	CollPayments     = "payments"
	CollAdmins       = "admins"
	CollTestimonials = "testimonials"
)

// EnsureIndexes est idempotent, appelé à chaque démarrage
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		CollProducts: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "active", Value: 1}}},
		},
		CollAdmins: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollOrders: {
			{Keys: bson.D{{Key: "gateway_order_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		CollPayments: {
			{Keys: bson.D{{Key: "gateway_order_id", Value: 1}}},
			{Keys: bson.D{{Key: "order_id", Value: 1}}},
		},
		CollTestimonials: {
			{Keys: bson.D{{Key: "approved", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("index %s: %w", coll, err)
		}
	}
	return nil
}
