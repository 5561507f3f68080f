package postgres

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
	"github.com/bogdankharchenko/linear-agent/internal/storage"
)

// WorkflowRunRepository - репозиторий запусков CI в Postgres.
type WorkflowRunRepository struct {
	pool *pgxpool.Pool
}

// NewWorkflowRunRepository создаёт экземпляр *WorkflowRunRepository.
func NewWorkflowRunRepository(pool *pgxpool.Pool) *WorkflowRunRepository {
	return &WorkflowRunRepository{pool: pool}
}

// Create создаёт запись запуска. Повторное создание по тому же run id - no-op.
func (r *WorkflowRunRepository) Create(ctx context.Context, run storage.WorkflowRun) *apperrors.AppError {
	const query = `
		INSERT INTO workflow_runs
			(run_id, session_id, workspace_id, issue_id, issue_identifier,
			 repo_owner, repo_name, feature_branch, installation_id,
			 status, conclusion, html_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`

	_, err := r.pool.Exec(ctx, query,
		run.RunID, run.SessionID, run.WorkspaceID, run.IssueID, run.IssueIdentifier,
		run.RepoOwner, run.RepoName, run.FeatureBranch, run.InstallationID,
		run.Status, run.Conclusion, run.HTMLURL,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil
		}
		log.Printf("insert workflow run failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	return nil
}

// Get возвращает запуск по run id.
func (r *WorkflowRunRepository) Get(ctx context.Context, runID int64) (storage.WorkflowRun, *apperrors.AppError) {
	const query = `
		SELECT run_id, session_id, workspace_id, issue_id, issue_identifier,
		       repo_owner, repo_name, feature_branch, installation_id,
		       status, conclusion, pr_number, pr_url, html_url, created_at, updated_at
		FROM workflow_runs WHERE run_id = $1
	`

	return r.scanOne(r.pool.QueryRow(ctx, query, runID))
}

// GetActiveByIssue возвращает незавершённый запуск по задаче.
func (r *WorkflowRunRepository) GetActiveByIssue(ctx context.Context, issueID string) (storage.WorkflowRun, *apperrors.AppError) {
	const query = `
		SELECT run_id, session_id, workspace_id, issue_id, issue_identifier,
		       repo_owner, repo_name, feature_branch, installation_id,
		       status, conclusion, pr_number, pr_url, html_url, created_at, updated_at
		FROM workflow_runs
		WHERE issue_id = $1 AND status <> 'completed'
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.scanOne(r.pool.QueryRow(ctx, query, issueID))
}

// UpdateStatus переводит статус запуска вперёд. Переходы назад и из
// терминального completed отсекаются условием в самом запросе.
func (r *WorkflowRunRepository) UpdateStatus(ctx context.Context, runID int64, status storage.RunStatus) *apperrors.AppError {
	const query = `
		UPDATE workflow_runs SET status = $2, updated_at = NOW()
		WHERE run_id = $1
		  AND status <> 'completed'
		  AND NOT (status = 'in_progress' AND $2 = 'queued')
		  AND status <> $2
	`

	if _, err := r.pool.Exec(ctx, query, runID, status); err != nil {
		log.Printf("update workflow run status failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	return nil
}

// Complete переводит запуск в completed и фиксирует итог.
func (r *WorkflowRunRepository) Complete(ctx context.Context, runID int64, conclusion storage.RunConclusion) *apperrors.AppError {
	const query = `
		UPDATE workflow_runs SET status = 'completed', conclusion = $2, updated_at = NOW()
		WHERE run_id = $1 AND status <> 'completed'
	`

	ct, err := r.pool.Exec(ctx, query, runID, conclusion)
	if err != nil {
		log.Printf("complete workflow run failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	if ct.RowsAffected() == 0 {
		exists, appErr := r.exists(ctx, runID)
		if appErr != nil {
			return appErr
		}
		if !exists {
			return apperrors.New(apperrors.ErrNotFound)
		}
		return apperrors.New(apperrors.ErrRunCompleted)
	}

	return nil
}

// SetPullRequest записывает найденный PR; уже записанный PR не перезаписывается.
func (r *WorkflowRunRepository) SetPullRequest(ctx context.Context, runID int64, prNumber int, prURL string) *apperrors.AppError {
	const query = `
		UPDATE workflow_runs SET pr_number = $2, pr_url = $3, updated_at = NOW()
		WHERE run_id = $1 AND pr_number IS NULL
	`

	if _, err := r.pool.Exec(ctx, query, runID, prNumber, prURL); err != nil {
		log.Printf("set pull request failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	return nil
}

func (r *WorkflowRunRepository) exists(ctx context.Context, runID int64) (bool, *apperrors.AppError) {
	const query = `SELECT EXISTS(SELECT 1 FROM workflow_runs WHERE run_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, runID).Scan(&exists); err != nil {
		log.Printf("query workflow run exists failed: %v", err)
		return false, apperrors.New(apperrors.ErrInternalIssue)
	}

	return exists, nil
}

func (r *WorkflowRunRepository) scanOne(row pgx.Row) (storage.WorkflowRun, *apperrors.AppError) {
	var run storage.WorkflowRun
	err := row.Scan(
		&run.RunID, &run.SessionID, &run.WorkspaceID, &run.IssueID, &run.IssueIdentifier,
		&run.RepoOwner, &run.RepoName, &run.FeatureBranch, &run.InstallationID,
		&run.Status, &run.Conclusion, &run.PRNumber, &run.PRURL, &run.HTMLURL,
		&run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return run, apperrors.New(apperrors.ErrNotFound)
		}
		log.Printf("scan workflow run failed: %v", err)
		return run, apperrors.New(apperrors.ErrInternalIssue)
	}

	return run, nil
}
