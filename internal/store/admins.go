package store

import (
	"context"
	"strings"
	"time"

	"atelier_back_end/internal/database"
	"atelier_back_end/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Admins struct {
	coll *mongo.Collection
}

var _ AdminStore = (*Admins)(nil)

func NewAdmins(db *mongo.Database) *Admins {
	return &Admins{coll: db.Collection(database.CollAdmins)}
}

func (s *Admins) Get(ctx context.Context, id string) (*models.AdminProfile, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Admins) GetByEmail(ctx context.Context, email string) (*models.AdminProfile, error) {
	return s.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *Admins) findOne(ctx context.Context, filter bson.M) (*models.AdminProfile, error) {
	var a models.AdminProfile
	if err := s.coll.FindOne(ctx, filter).Decode(&a); err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (s *Admins) Create(ctx context.Context, a *models.AdminProfile) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.Role = models.RoleAdmin
	a.CreatedAt = time.Now().UTC()
	_, err := s.coll.InsertOne(ctx, a)
	return mapErr(err)
}

// Upsert crée le profil à la première connexion OAuth, sinon met à jour le nom
func (s *Admins) Upsert(ctx context.Context, a *models.AdminProfile) (*models.AdminProfile, error) {
	email := strings.ToLower(strings.TrimSpace(a.Email))
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"role":       models.RoleAdmin,
			"provider":   a.Provider,
			"created_at": time.Now().UTC(),
		},
	}
	if a.Name != "" {
		update["$set"] = bson.M{"name": a.Name}
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var out models.AdminProfile
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&out); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (s *Admins) TouchLogin(ctx context.Context, id string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_login_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	return notFoundIfZero(res.MatchedCount)
}

func (s *Admins) Count(ctx context.Context) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{})
}
