// Package users declares the repository contract for the durable user store.
package users

import (
	"context"

	"github.com/akrylov/authgate/internal/server/models"
)

// Repository defines operations over the users table. The email column
// carries a unique constraint; Create surfaces a duplicate email as
// common.ErrEmailAlreadyRegistered so concurrent registrations resolve
// deterministically.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail looks a user up by the exact email as stored.
	// Returns common.ErrorNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns common.ErrorNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// SetVerified marks the account's email as verified.
	SetVerified(ctx context.Context, userID string) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
}
