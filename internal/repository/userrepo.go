// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/AmmarAlGhifary/uai-secureshare-backend/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides CRUD access for user accounts.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// SearchByEmail returns users whose email contains query.
	SearchByEmail(ctx context.Context, query string, limit int) ([]model.User, error)
	// UpdateName changes the display name.
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	// UpdatePassword replaces the login hash and salt.
	UpdatePassword(ctx context.Context, id uuid.UUID, pwdHash, saltAuth []byte) error
	// SetPublicKeyIfEmpty stores the wrap key only if none is set yet;
	// a set key is immutable for its epoch.
	SetPublicKeyIfEmpty(ctx context.Context, id uuid.UUID, publicKey []byte) error
}
