package models

import "time"

const RoleAdmin = "admin"

// AdminProfile : compte de la console d'administration
type AdminProfile struct {
	ID           string     `json:"id" bson:"_id"`
	Email        string     `json:"email" bson:"email" validate:"required,email"`
	Name         string     `json:"name,omitempty" bson:"name,omitempty"`
	PasswordHash string     `json:"-" bson:"password_hash,omitempty"`
	Provider     string     `json:"provider" bson:"provider"` // password, google
	Role         string     `json:"role" bson:"role" validate:"eq=admin"`
	CreatedAt    time.Time  `json:"created_at" bson:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" bson:"last_login_at,omitempty"`
}
