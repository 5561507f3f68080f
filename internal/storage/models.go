// Package storage содержит модели данных и интерфейсы репозиториев.
package storage

import "time"

// RunStatus - статус workflow-запуска.
type RunStatus string

const (
	// StatusQueued - запуск поставлен в очередь CI.
	StatusQueued RunStatus = "queued"
	// StatusInProgress - запуск выполняется.
	StatusInProgress RunStatus = "in_progress"
	// StatusCompleted - запуск завершён; терминальный статус.
	StatusCompleted RunStatus = "completed"
)

// RunConclusion - итог завершённого запуска.
type RunConclusion string

const (
	// ConclusionSuccess - запуск завершился успешно.
	ConclusionSuccess RunConclusion = "success"
	// ConclusionFailure - запуск завершился с ошибкой.
	ConclusionFailure RunConclusion = "failure"
	// ConclusionCancelled - запуск отменён.
	ConclusionCancelled RunConclusion = "cancelled"
)

// WorkflowKind - вид запускаемой работы; ключ корреляции вместе с сессией.
type WorkflowKind string

// KindImplement - основной вид работы: реализация задачи.
const KindImplement WorkflowKind = "implement"

// EventSource - система, приславшая событие.
type EventSource string

const (
	// SourceLinear - события агентских сессий Linear.
	SourceLinear EventSource = "linear"
	// SourceGitHub - события GitHub Actions.
	SourceGitHub EventSource = "github"
)

// TeamConfig - привязка команды Linear к репозиторию GitHub.
type TeamConfig struct {
	WorkspaceID    string
	TeamID         string
	RepoOwner      string
	RepoName       string
	DispatchBranch string
	InstallationID int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PendingConfig - незавершённый диалог настройки репозитория для сессии.
type PendingConfig struct {
	SessionID   string
	WorkspaceID string
	TeamID      string
	IssueID     string
	CreatedAt   time.Time
}

// PendingWorkflowTrigger - корреляционная запись, создаваемая при диспатче.
// Сопоставляется с событием workflow_run по (owner, repo, branch).
type PendingWorkflowTrigger struct {
	ID              string
	SessionID       string
	Kind            WorkflowKind
	WorkspaceID     string
	IssueID         string
	IssueIdentifier string
	RepoOwner       string
	RepoName        string
	// Branch - ветка, на которой запущен workflow_dispatch,
	// а не feature-ветка, которую создаст сам запуск.
	Branch         string
	FeatureBranch  string
	InstallationID int64
	MatchedAt      *time.Time
	CreatedAt      time.Time
}

// WorkflowRun - каноническая запись одного запуска CI.
type WorkflowRun struct {
	RunID           int64
	SessionID       string
	WorkspaceID     string
	IssueID         string
	IssueIdentifier string
	RepoOwner       string
	RepoName        string
	FeatureBranch   string
	InstallationID  int64
	Status          RunStatus
	Conclusion      RunConclusion
	PRNumber        *int
	PRURL           *string
	HTMLURL         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProcessedEvent - отметка об обработанном входящем событии.
type ProcessedEvent struct {
	EventID   string
	Source    EventSource
	CreatedAt time.Time
}

// RunLogEntry - запись журнала; только добавляется, никогда не изменяется.
type RunLogEntry struct {
	ID        string
	RunID     *int64
	SessionID *string
	Kind      string
	Message   string
	CreatedAt time.Time
}

// Installation - установка GitHub App на аккаунт.
type Installation struct {
	InstallationID int64
	AccountLogin   string
	AccountType    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OAuthToken - токен доступа к Linear для workspace.
type OAuthToken struct {
	WorkspaceID  string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// CanTransition возвращает true, если переход статуса допустим.
// Статусы движутся строго вперёд: queued -> in_progress -> completed.
func CanTransition(from, to RunStatus) bool {
	if from == to {
		return false
	}

	switch from {
	case StatusQueued:
		return to == StatusInProgress || to == StatusCompleted
	case StatusInProgress:
		return to == StatusCompleted
	case StatusCompleted:
		return false
	default:
		return false
	}
}
