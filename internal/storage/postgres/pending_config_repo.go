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

// PendingConfigRepository - репозиторий диалогов настройки в Postgres.
type PendingConfigRepository struct {
	pool *pgxpool.Pool
}

// NewPendingConfigRepository создаёт экземпляр *PendingConfigRepository.
func NewPendingConfigRepository(pool *pgxpool.Pool) *PendingConfigRepository {
	return &PendingConfigRepository{pool: pool}
}

// Get возвращает диалог настройки по id сессии.
func (r *PendingConfigRepository) Get(ctx context.Context, sessionID string) (storage.PendingConfig, *apperrors.AppError) {
	const query = `
		SELECT session_id, workspace_id, team_id, issue_id, created_at
		FROM pending_configs WHERE session_id = $1
	`

	var cfg storage.PendingConfig
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&cfg.SessionID, &cfg.WorkspaceID, &cfg.TeamID, &cfg.IssueID, &cfg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cfg, apperrors.New(apperrors.ErrNotFound)
		}
		log.Printf("query pending config failed: %v", err)
		return cfg, apperrors.New(apperrors.ErrInternalIssue)
	}

	return cfg, nil
}

// Replace создаёт диалог настройки, заменяя существующий для сессии.
func (r *PendingConfigRepository) Replace(ctx context.Context, cfg storage.PendingConfig) *apperrors.AppError {
	const query = `
		INSERT INTO pending_configs (session_id, workspace_id, team_id, issue_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (session_id) DO UPDATE SET
			workspace_id = EXCLUDED.workspace_id,
			team_id = EXCLUDED.team_id,
			issue_id = EXCLUDED.issue_id,
			created_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, cfg.SessionID, cfg.WorkspaceID, cfg.TeamID, cfg.IssueID); err != nil {
		log.Printf("replace pending config failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	return nil
}

// Delete удаляет диалог настройки; отсутствие записи не является ошибкой.
func (r *PendingConfigRepository) Delete(ctx context.Context, sessionID string) *apperrors.AppError {
	const query = `DELETE FROM pending_configs WHERE session_id = $1`

	if _, err := r.pool.Exec(ctx, query, sessionID); err != nil {
		log.Printf("delete pending config failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	return nil
}
