// Package postgres реализует интерфейсы репозиториев поверх PostgreSQL.
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

// TeamConfigRepository - репозиторий конфигураций команд в Postgres.
type TeamConfigRepository struct {
	pool *pgxpool.Pool
}

// NewTeamConfigRepository создаёт экземпляр *TeamConfigRepository.
func NewTeamConfigRepository(pool *pgxpool.Pool) *TeamConfigRepository {
	return &TeamConfigRepository{pool: pool}
}

// Get возвращает конфигурацию команды по (workspace, team).
func (r *TeamConfigRepository) Get(ctx context.Context, workspaceID, teamID string) (storage.TeamConfig, *apperrors.AppError) {
	const query = `
		SELECT workspace_id, team_id, repo_owner, repo_name, dispatch_branch, installation_id, created_at, updated_at
		FROM team_configs WHERE workspace_id = $1 AND team_id = $2
	`

	var cfg storage.TeamConfig
	err := r.pool.QueryRow(ctx, query, workspaceID, teamID).Scan(
		&cfg.WorkspaceID, &cfg.TeamID, &cfg.RepoOwner, &cfg.RepoName,
		&cfg.DispatchBranch, &cfg.InstallationID, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cfg, apperrors.New(apperrors.ErrNotFound)
		}
		log.Printf("query team config failed: %v", err)
		return cfg, apperrors.New(apperrors.ErrInternalIssue)
	}

	return cfg, nil
}

// Exists проверяет, настроена ли команда.
func (r *TeamConfigRepository) Exists(ctx context.Context, workspaceID, teamID string) (bool, *apperrors.AppError) {
	const query = `SELECT EXISTS(SELECT 1 FROM team_configs WHERE workspace_id = $1 AND team_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, workspaceID, teamID).Scan(&exists); err != nil {
		log.Printf("query team config exists failed: %v", err)
		return false, apperrors.New(apperrors.ErrInternalIssue)
	}

	return exists, nil
}

// Upsert создаёт или обновляет конфигурацию команды.
func (r *TeamConfigRepository) Upsert(ctx context.Context, cfg storage.TeamConfig) *apperrors.AppError {
	const query = `
		INSERT INTO team_configs (workspace_id, team_id, repo_owner, repo_name, dispatch_branch, installation_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (workspace_id, team_id) DO UPDATE SET
			repo_owner = EXCLUDED.repo_owner,
			repo_name = EXCLUDED.repo_name,
			dispatch_branch = EXCLUDED.dispatch_branch,
			installation_id = EXCLUDED.installation_id,
			updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, cfg.WorkspaceID, cfg.TeamID, cfg.RepoOwner, cfg.RepoName, cfg.DispatchBranch, cfg.InstallationID); err != nil {
		log.Printf("upsert team config failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	return nil
}
