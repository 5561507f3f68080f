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

// TriggerRepository - репозиторий корреляционных записей в Postgres.
type TriggerRepository struct {
	pool *pgxpool.Pool
}

// NewTriggerRepository создаёт экземпляр *TriggerRepository.
func NewTriggerRepository(pool *pgxpool.Pool) *TriggerRepository {
	return &TriggerRepository{pool: pool}
}

// Replace создаёт корреляционную запись, заменяя существующую по (session, kind).
// Повторный диспатч до сопоставления затирает прежнюю запись: последняя победила.
func (r *TriggerRepository) Replace(ctx context.Context, t storage.PendingWorkflowTrigger) *apperrors.AppError {
	const query = `
		INSERT INTO pending_workflow_triggers
			(id, session_id, kind, workspace_id, issue_id, issue_identifier,
			 repo_owner, repo_name, branch, feature_branch, installation_id, matched_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL, NOW())
		ON CONFLICT (session_id, kind) DO UPDATE SET
			id = EXCLUDED.id,
			workspace_id = EXCLUDED.workspace_id,
			issue_id = EXCLUDED.issue_id,
			issue_identifier = EXCLUDED.issue_identifier,
			repo_owner = EXCLUDED.repo_owner,
			repo_name = EXCLUDED.repo_name,
			branch = EXCLUDED.branch,
			feature_branch = EXCLUDED.feature_branch,
			installation_id = EXCLUDED.installation_id,
			matched_at = NULL,
			created_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.SessionID, t.Kind, t.WorkspaceID, t.IssueID, t.IssueIdentifier,
		t.RepoOwner, t.RepoName, t.Branch, t.FeatureBranch, t.InstallationID,
	)
	if err != nil {
		log.Printf("replace trigger failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	return nil
}

// FindUnmatched возвращает самую свежую несопоставленную запись по (owner, repo, branch).
func (r *TriggerRepository) FindUnmatched(ctx context.Context, owner, repo, branch string) (storage.PendingWorkflowTrigger, *apperrors.AppError) {
	const query = `
		SELECT id, session_id, kind, workspace_id, issue_id, issue_identifier,
		       repo_owner, repo_name, branch, feature_branch, installation_id, matched_at, created_at
		FROM pending_workflow_triggers
		WHERE repo_owner = $1 AND repo_name = $2 AND branch = $3 AND matched_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	var t storage.PendingWorkflowTrigger
	err := r.pool.QueryRow(ctx, query, owner, repo, branch).Scan(
		&t.ID, &t.SessionID, &t.Kind, &t.WorkspaceID, &t.IssueID, &t.IssueIdentifier,
		&t.RepoOwner, &t.RepoName, &t.Branch, &t.FeatureBranch, &t.InstallationID,
		&t.MatchedAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return t, apperrors.New(apperrors.ErrNotFound)
		}
		log.Printf("query unmatched trigger failed: %v", err)
		return t, apperrors.New(apperrors.ErrInternalIssue)
	}

	return t, nil
}

// MarkMatched помечает запись как сопоставленную с запуском CI.
func (r *TriggerRepository) MarkMatched(ctx context.Context, triggerID string) *apperrors.AppError {
	const query = `
		UPDATE pending_workflow_triggers SET matched_at = NOW()
		WHERE id = $1 AND matched_at IS NULL
	`

	ct, err := r.pool.Exec(ctx, query, triggerID)
	if err != nil {
		log.Printf("mark trigger matched failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.New(apperrors.ErrNotFound)
	}

	return nil
}
