// Package store contient les dépôts MongoDB consommés par les handlers.
package store

import (
	"context"
	"errors"
	"fmt"

	"atelier_back_end/internal/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound          = errors.New("document introuvable")
	ErrConflict          = errors.New("conflit avec un document existant")
	ErrInsufficientStock = fmt.Errorf("%w: stock insuffisant", ErrConflict)
)

type ProductFilter struct {
	Category   string
	Query      string
	Featured   bool
	ActiveOnly bool
	Limit      int64
	Skip       int64
}

type ProductStore interface {
	List(ctx context.Context, f ProductFilter) ([]models.Product, error)
	Get(ctx context.Context, idOrSlug string) (*models.Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, delta int) error
	Count(ctx context.Context) (int64, error)
	CountLowStock(ctx context.Context, threshold int) (int64, error)
}

type OrderStats struct {
	Orders   int64                        `json:"orders"`
	Revenue  decimal.Decimal              `json:"revenue"`
	ByStatus map[models.OrderStatus]int64 `json:"by_status"`
}

type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, status models.OrderStatus, limit int64) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error
	AttachPayment(ctx context.Context, id, paymentID, gatewayOrderID string) error
	Stats(ctx context.Context) (*OrderStats, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	Get(ctx context.Context, id string) (*models.Payment, error)
	GetByGatewayOrder(ctx context.Context, gatewayOrderID string) (*models.Payment, error)
	Update(ctx context.Context, p *models.Payment) error
	List(ctx context.Context, limit int64) ([]models.Payment, error)
}

type AdminStore interface {
	Get(ctx context.Context, id string) (*models.AdminProfile, error)
	GetByEmail(ctx context.Context, email string) (*models.AdminProfile, error)
	Create(ctx context.Context, a *models.AdminProfile) error
	Upsert(ctx context.Context, a *models.AdminProfile) (*models.AdminProfile, error)
	TouchLogin(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type TestimonialStore interface {
	List(ctx context.Context, approvedOnly bool) ([]models.Testimonial, error)
	Create(ctx context.Context, t *models.Testimonial) error
	Approve(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	CountPending(ctx context.Context) (int64, error)
}

// mapErr traduit les erreurs du driver en sentinelles
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

func notFoundIfZero(matched int64) error {
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}
