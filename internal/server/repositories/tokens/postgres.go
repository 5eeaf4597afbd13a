package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akrylov/authgate/internal/common"
	"github.com/akrylov/authgate/internal/dbx"
	"github.com/akrylov/authgate/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.Token) error {
	query := `
		INSERT INTO user_tokens (user_id, token, kind, is_used, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query,
		token.UserID, token.Value, token.Kind, token.Used, token.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByValue(ctx context.Context, value string) (*models.Token, error) {
	query := `
		SELECT id, user_id, token, kind, is_used, expires_at, created_at
		FROM user_tokens
		WHERE token = $1
	`
	return r.scanToken(r.db.QueryRowContext(ctx, query, value))
}

func (r *PostgresRepository) FindByValueAndKind(ctx context.Context, value string, kind models.TokenKind) (*models.Token, error) {
	query := `
		SELECT id, user_id, token, kind, is_used, expires_at, created_at
		FROM user_tokens
		WHERE token = $1 AND kind = $2
	`
	return r.scanToken(r.db.QueryRowContext(ctx, query, value, kind))
}

// Consume flips is_used in one statement so concurrent redemptions of the
// same value cannot both observe an unused row.
func (r *PostgresRepository) Consume(ctx context.Context, value string) error {
	query := `
		UPDATE user_tokens SET is_used = true
		WHERE token = $1 AND is_used = false
	`
	res, err := r.db.ExecContext(ctx, query, value)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) scanToken(row *sql.Row) (*models.Token, error) {
	token := &models.Token{}
	err := row.Scan(&token.ID, &token.UserID, &token.Value, &token.Kind,
		&token.Used, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}
