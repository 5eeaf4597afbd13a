// Package tokens declares the repository contract for the opaque-token store
// backing verification, password-reset and refresh tokens.
package tokens

import (
	"context"

	"github.com/akrylov/authgate/internal/server/models"
)

// Repository defines operations over the user_tokens table. Consume is the
// only writer of the is_used flag and must be atomic: when two callers race
// on the same value, exactly one Consume succeeds.
type Repository interface {
	// Create persists a new unused token.
	Create(ctx context.Context, token *models.Token) error

	// FindByValue looks a token up by its opaque value.
	// Returns common.ErrorNotFound when absent.
	FindByValue(ctx context.Context, value string) (*models.Token, error)

	// FindByValueAndKind looks a token up by value, restricted to one kind.
	// Returns common.ErrorNotFound when absent.
	FindByValueAndKind(ctx context.Context, value string, kind models.TokenKind) (*models.Token, error)

	// Consume marks the token used via a single conditional update. It
	// returns common.ErrorNotFound when no unused row matched the value,
	// i.e. the token is absent or was already consumed by another caller.
	Consume(ctx context.Context, value string) error
}
