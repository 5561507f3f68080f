package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema - DDL всех таблиц сервиса. Каждый statement идемпотентен,
// поэтому Migrate можно безопасно выполнять при каждом старте.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS team_configs (
		workspace_id    TEXT NOT NULL,
		team_id         TEXT NOT NULL,
		repo_owner      TEXT NOT NULL,
		repo_name       TEXT NOT NULL,
		dispatch_branch TEXT NOT NULL,
		installation_id BIGINT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (workspace_id, team_id)
	)`,
	`CREATE TABLE IF NOT EXISTS pending_configs (
		session_id   TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		team_id      TEXT NOT NULL,
		issue_id     TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS pending_workflow_triggers (
		id               TEXT NOT NULL,
		session_id       TEXT NOT NULL,
		kind             TEXT NOT NULL,
		workspace_id     TEXT NOT NULL,
		issue_id         TEXT NOT NULL,
		issue_identifier TEXT NOT NULL,
		repo_owner       TEXT NOT NULL,
		repo_name        TEXT NOT NULL,
		branch           TEXT NOT NULL,
		feature_branch   TEXT NOT NULL,
		installation_id  BIGINT NOT NULL,
		matched_at       TIMESTAMPTZ,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (session_id, kind)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_triggers_unmatched
		ON pending_workflow_triggers (repo_owner, repo_name, branch)
		WHERE matched_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS workflow_runs (
		run_id           BIGINT PRIMARY KEY,
		session_id       TEXT NOT NULL,
		workspace_id     TEXT NOT NULL,
		issue_id         TEXT NOT NULL,
		issue_identifier TEXT NOT NULL,
		repo_owner       TEXT NOT NULL,
		repo_name        TEXT NOT NULL,
		feature_branch   TEXT NOT NULL,
		installation_id  BIGINT NOT NULL,
		status           TEXT NOT NULL,
		conclusion       TEXT NOT NULL DEFAULT '',
		pr_number        INTEGER,
		pr_url           TEXT,
		html_url         TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_workflow_runs_issue
		ON workflow_runs (issue_id) WHERE status <> 'completed'`,
	`CREATE TABLE IF NOT EXISTS processed_events (
		event_id   TEXT NOT NULL,
		source     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (event_id, source)
	)`,
	`CREATE TABLE IF NOT EXISTS run_logs (
		id         TEXT PRIMARY KEY,
		run_id     BIGINT,
		session_id TEXT,
		kind       TEXT NOT NULL,
		message    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS installations (
		installation_id BIGINT PRIMARY KEY,
		account_login   TEXT NOT NULL,
		account_type    TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_installations_login
		ON installations (account_login)`,
	`CREATE TABLE IF NOT EXISTS oauth_tokens (
		workspace_id  TEXT PRIMARY KEY,
		access_token  TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		expires_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate применяет схему к базе данных.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema failed: %w", err)
		}
	}
	return nil
}
