package storage

import (
	"context"

	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
)

// TeamConfigRepository - репозиторий конфигураций команд.
type TeamConfigRepository interface {
	Get(ctx context.Context, workspaceID, teamID string) (TeamConfig, *apperrors.AppError)
	Exists(ctx context.Context, workspaceID, teamID string) (bool, *apperrors.AppError)
	Upsert(ctx context.Context, cfg TeamConfig) *apperrors.AppError
}

// PendingConfigRepository - репозиторий диалогов настройки.
type PendingConfigRepository interface {
	Get(ctx context.Context, sessionID string) (PendingConfig, *apperrors.AppError)
	Replace(ctx context.Context, cfg PendingConfig) *apperrors.AppError
	Delete(ctx context.Context, sessionID string) *apperrors.AppError
}

// TriggerRepository - репозиторий корреляционных записей диспатча.
type TriggerRepository interface {
	// Replace создаёт запись, заменяя существующую по (session, kind).
	Replace(ctx context.Context, trigger PendingWorkflowTrigger) *apperrors.AppError
	// FindUnmatched возвращает самую свежую несопоставленную запись
	// по (owner, repo, branch); ErrNotFound, если таких нет.
	FindUnmatched(ctx context.Context, owner, repo, branch string) (PendingWorkflowTrigger, *apperrors.AppError)
	MarkMatched(ctx context.Context, triggerID string) *apperrors.AppError
}

// WorkflowRunRepository - репозиторий запусков CI.
type WorkflowRunRepository interface {
	Create(ctx context.Context, run WorkflowRun) *apperrors.AppError
	Get(ctx context.Context, runID int64) (WorkflowRun, *apperrors.AppError)
	// GetActiveByIssue возвращает незавершённый запуск по задаче.
	GetActiveByIssue(ctx context.Context, issueID string) (WorkflowRun, *apperrors.AppError)
	// UpdateStatus переводит статус вперёд; недопустимые переходы игнорируются.
	UpdateStatus(ctx context.Context, runID int64, status RunStatus) *apperrors.AppError
	// Complete переводит запуск в completed и фиксирует итог.
	Complete(ctx context.Context, runID int64, conclusion RunConclusion) *apperrors.AppError
	// SetPullRequest записывает найденный PR; выполняется не более одного раза.
	SetPullRequest(ctx context.Context, runID int64, prNumber int, prURL string) *apperrors.AppError
}

// ProcessedEventRepository - журнал обработанных событий (идемпотентность).
type ProcessedEventRepository interface {
	IsProcessed(ctx context.Context, eventID string, source EventSource) (bool, *apperrors.AppError)
	// MarkProcessed - insert-or-ignore; повторный вызов не является ошибкой.
	MarkProcessed(ctx context.Context, eventID string, source EventSource) *apperrors.AppError
}

// RunLogRepository - append-only журнал аудита.
type RunLogRepository interface {
	Append(ctx context.Context, entry RunLogEntry) *apperrors.AppError
	ListBySession(ctx context.Context, sessionID string) ([]RunLogEntry, *apperrors.AppError)
}

// InstallationRepository - репозиторий установок GitHub App.
type InstallationRepository interface {
	Upsert(ctx context.Context, inst Installation) *apperrors.AppError
	Delete(ctx context.Context, installationID int64) *apperrors.AppError
	GetByLogin(ctx context.Context, accountLogin string) (Installation, *apperrors.AppError)
}

// OAuthTokenRepository - репозиторий OAuth-токенов Linear.
type OAuthTokenRepository interface {
	Get(ctx context.Context, workspaceID string) (OAuthToken, *apperrors.AppError)
	Upsert(ctx context.Context, token OAuthToken) *apperrors.AppError
}
