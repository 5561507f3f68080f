// Package service содержит оркестратор workflow'ов и маршрутизацию интентов.
package service

import (
	"context"

	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
	githubclient "github.com/bogdankharchenko/linear-agent/internal/clients/github"
	"github.com/bogdankharchenko/linear-agent/internal/clients/linear"
	"github.com/bogdankharchenko/linear-agent/internal/storage"
)

// TicketClient - исходящие вызовы к агентскому API Linear.
type TicketClient interface {
	CreateAgentActivity(ctx context.Context, sessionID string, content linear.ActivityContent) *apperrors.AppError
	FetchIssueContext(ctx context.Context, issueID string) (linear.IssueContext, *apperrors.AppError)
	CreateAttachment(ctx context.Context, issueID, title, url string) *apperrors.AppError
}

// CIClient - исходящие вызовы к GitHub Actions от имени установки.
type CIClient interface {
	ListBranchNames(ctx context.Context, owner, repo string) ([]string, *apperrors.AppError)
	GetDefaultBranch(ctx context.Context, owner, repo string) (string, *apperrors.AppError)
	DispatchWorkflow(ctx context.Context, owner, repo, workflowFile, ref string, inputs map[string]string) *apperrors.AppError
	CancelRun(ctx context.Context, owner, repo string, runID int64) *apperrors.AppError
	ListPullRequestsForBranch(ctx context.Context, owner, repo, branch string) ([]githubclient.PullRequestRef, *apperrors.AppError)
	SearchPullRequestsByTitle(ctx context.Context, owner, repo, term string) ([]githubclient.PullRequestRef, *apperrors.AppError)
}

// AppClient - вызовы GitHub уровня приложения (без установки).
type AppClient interface {
	CheckInstallation(ctx context.Context, owner, repo string) (githubclient.InstallationInfo, bool, *apperrors.AppError)
}

// TokenProvider выдаёт действующий токен Linear для workspace.
type TokenProvider interface {
	GetValidToken(ctx context.Context, workspaceID string) (string, *apperrors.AppError)
}

// TicketClientFactory строит клиент Linear с разрешённым токеном.
// Клиент создаётся на каждый запрос; токен нигде не кэшируется.
type TicketClientFactory func(token string) TicketClient

// CIClientFactory строит клиент GitHub для конкретной установки App.
type CIClientFactory func(installationID int64) (CIClient, *apperrors.AppError)

// Repos - набор репозиториев, используемых оркестратором.
type Repos struct {
	Teams          storage.TeamConfigRepository
	PendingConfigs storage.PendingConfigRepository
	Triggers       storage.TriggerRepository
	Runs           storage.WorkflowRunRepository
	RunLogs        storage.RunLogRepository
	Installations  storage.InstallationRepository
}
