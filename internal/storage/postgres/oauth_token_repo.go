package postgres

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
	"github.com/bogdankharchenko/linear-agent/internal/storage"
)

// OAuthTokenRepository - репозиторий OAuth-токенов Linear в Postgres.
type OAuthTokenRepository struct {
	pool *pgxpool.Pool
}

// NewOAuthTokenRepository создаёт экземпляр *OAuthTokenRepository.
func NewOAuthTokenRepository(pool *pgxpool.Pool) *OAuthTokenRepository {
	return &OAuthTokenRepository{pool: pool}
}

// Get возвращает токен по id workspace.
func (r *OAuthTokenRepository) Get(ctx context.Context, workspaceID string) (storage.OAuthToken, *apperrors.AppError) {
	const query = `
		SELECT workspace_id, access_token, refresh_token, expires_at, updated_at
		FROM oauth_tokens WHERE workspace_id = $1
	`

	var t storage.OAuthToken
	err := r.pool.QueryRow(ctx, query, workspaceID).Scan(
		&t.WorkspaceID, &t.AccessToken, &t.RefreshToken, &t.ExpiresAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return t, apperrors.New(apperrors.ErrNotFound)
		}
		log.Printf("query oauth token failed: %v", err)
		return t, apperrors.New(apperrors.ErrInternalIssue)
	}

	return t, nil
}

// Upsert сохраняет токен workspace.
func (r *OAuthTokenRepository) Upsert(ctx context.Context, t storage.OAuthToken) *apperrors.AppError {
	const query = `
		INSERT INTO oauth_tokens (workspace_id, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (workspace_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, t.WorkspaceID, t.AccessToken, t.RefreshToken, t.ExpiresAt); err != nil {
		log.Printf("upsert oauth token failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	return nil
}
