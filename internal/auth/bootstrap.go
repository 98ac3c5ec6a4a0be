package auth

import (
	"context"
	"fmt"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/store"

	"go.uber.org/zap"
)

// Bootstrap crée le premier compte admin quand la collection est vide
func Bootstrap(ctx context.Context, admins store.AdminStore, email, password string, log *zap.Logger) error {
	if email == "" || password == "" {
		return nil
	}

	n, err := admins.Count(ctx)
	if err != nil {
		return fmt.Errorf("comptage admins: %w", err)
	}
	if n > 0 {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	admin := &models.AdminProfile{
		Email:        email,
		Name:         "Administrateur",
		PasswordHash: hash,
		Provider:     "password",
		Role:         models.RoleAdmin,
	}
	if err := models.Validate(admin); err != nil {
		return fmt.Errorf("admin initial invalide: %w", err)
	}
	if err := admins.Create(ctx, admin); err != nil {
		return fmt.Errorf("création admin initial: %w", err)
	}

	log.Info("👤 Admin initial créé", zap.String("email", admin.Email))
	return nil
}
