package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bogdankharchenko/linear-agent/internal/api/dto"
	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
	"github.com/bogdankharchenko/linear-agent/internal/clients/linear"
	"github.com/bogdankharchenko/linear-agent/internal/storage"
)

// Intent - распознанное намерение пользователя.
type Intent string

const (
	// IntentWorkRequest - просьба выполнить работу по задаче.
	IntentWorkRequest Intent = "work_request"
	// IntentStatusRequest - вопрос о ходе работы.
	IntentStatusRequest Intent = "status_request"
	// IntentUnconfigured - команда не настроена; разговор невозможен.
	IntentUnconfigured Intent = "unconfigured"
	// IntentUnclear - намерение не распознано.
	IntentUnclear Intent = "unclear"
)

// Classifier распознаёт намерение по тексту сообщения. За интерфейсом
// можно подменить эвристику на полноценный классификатор, не трогая
// оркестратор.
type Classifier interface {
	Classify(message string, teamConfigured bool) Intent
}

// Маркеры намерений. Множества не пересекаются; при совпадении обоих
// приоритет у просьбы о работе (проверяется первой).
var (
	workMarkers   = []string{"implement", "work on", "fix", "add", "update", "change"}
	statusMarkers = []string{"status", "progress", "how's it going"}
)

// KeywordClassifier - эвристика v1: поиск ключевых слов в нижнем регистре.
type KeywordClassifier struct{}

// Classify реализует Classifier.
func (KeywordClassifier) Classify(message string, teamConfigured bool) Intent {
	if !teamConfigured {
		return IntentUnconfigured
	}

	text := strings.ToLower(message)
	for _, marker := range workMarkers {
		if strings.Contains(text, marker) {
			return IntentWorkRequest
		}
	}
	for _, marker := range statusMarkers {
		if strings.Contains(text, marker) {
			return IntentStatusRequest
		}
	}

	return IntentUnclear
}

// repoRefPattern - либеральный разбор ссылки owner/repo из свободного текста.
var repoRefPattern = regexp.MustCompile(`([A-Za-z0-9_.\-]+)/([A-Za-z0-9_.\-]+)`)

// ParseRepoRef извлекает первую пару owner/repo из сообщения.
func ParseRepoRef(message string) (owner, repo string, ok bool) {
	m := repoRefPattern.FindStringSubmatch(message)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// Тексты подсказок пользователю.
const (
	configurePrompt = "Which GitHub repository should I work in? Reply with it in the form owner/repo."
	installPrompt   = "I don't have access to that repository yet. Install the GitHub App on it and reply with owner/repo again: https://github.com/apps/linear-agent/installations/new"
	grantPrompt     = "The GitHub App is installed for %s, but it can't see %s/%s. Grant it access to the repository in the installation settings and reply with owner/repo again."
	unclearPrompt   = "I didn't catch that. You can ask me to work on this issue (e.g. \"implement this\"), ask for status, or reassign the issue to restart."
)

// HandlePrompt обрабатывает свободный текст пользователя в сессии.
func (o *Orchestrator) HandlePrompt(ctx context.Context, ev dto.SessionPrompted) *apperrors.AppError {
	// Незавершённый диалог настройки имеет приоритет над любым интентом.
	pending, appErr := o.repos.PendingConfigs.Get(ctx, ev.SessionID)
	if appErr == nil {
		return o.continueConfiguration(ctx, pending, ev)
	}
	if appErr.Code != apperrors.ErrNotFound {
		return appErr
	}

	ticket, appErr := o.ticketFor(ctx, ev.WorkspaceID)
	if appErr != nil {
		return appErr
	}

	// Пока запуск в полёте, любое сообщение получает статус вместо маршрутизации.
	run, appErr := o.repos.Runs.GetActiveByIssue(ctx, ev.IssueID)
	if appErr == nil {
		return ticket.CreateAgentActivity(ctx, ev.SessionID, linear.Thought(
			fmt.Sprintf("Still working on %s: the workflow run is %s. %s", run.IssueIdentifier, run.Status, run.HTMLURL)))
	}
	if appErr.Code != apperrors.ErrNotFound {
		return appErr
	}

	configured, appErr := o.repos.Teams.Exists(ctx, ev.WorkspaceID, ev.TeamID)
	if appErr != nil {
		return appErr
	}

	switch o.classifier.Classify(ev.Message, configured) {
	case IntentUnconfigured:
		return o.startConfiguration(ctx, ev.WorkspaceID, ev.TeamID, ev.SessionID, ev.IssueID)
	case IntentWorkRequest:
		cfg, appErr := o.repos.Teams.Get(ctx, ev.WorkspaceID, ev.TeamID)
		if appErr != nil {
			return appErr
		}
		return o.Dispatch(ctx, ev.SessionID, ev.IssueID, cfg)
	case IntentStatusRequest:
		return o.reportIdleStatus(ctx, ticket, ev)
	default:
		return ticket.CreateAgentActivity(ctx, ev.SessionID, linear.Elicitation(unclearPrompt))
	}
}

// reportIdleStatus отвечает на вопрос о статусе, когда запусков в полёте нет.
// Журнал сессии даёт последнюю известную точку: что успело произойти до паузы.
func (o *Orchestrator) reportIdleStatus(ctx context.Context, ticket TicketClient, ev dto.SessionPrompted) *apperrors.AppError {
	history, appErr := o.repos.RunLogs.ListBySession(ctx, ev.SessionID)
	if appErr != nil {
		return appErr
	}

	message := fmt.Sprintf("Nothing is running for %s right now. Ask me to work on it to start.", ev.IssueIdentifier)
	if len(history) > 0 {
		last := history[len(history)-1]
		message = fmt.Sprintf("Nothing is running for %s right now. Last event: %s. Ask me to work on it to start again.",
			ev.IssueIdentifier, last.Kind)
	}

	return ticket.CreateAgentActivity(ctx, ev.SessionID, linear.Thought(message))
}

// startConfiguration открывает диалог настройки репозитория для сессии.
func (o *Orchestrator) startConfiguration(ctx context.Context, workspaceID, teamID, sessionID, issueID string) *apperrors.AppError {
	pending := storage.PendingConfig{
		SessionID:   sessionID,
		WorkspaceID: workspaceID,
		TeamID:      teamID,
		IssueID:     issueID,
	}
	if appErr := o.repos.PendingConfigs.Replace(ctx, pending); appErr != nil {
		return appErr
	}

	ticket, appErr := o.ticketFor(ctx, workspaceID)
	if appErr != nil {
		return appErr
	}

	return ticket.CreateAgentActivity(ctx, sessionID, linear.Elicitation(configurePrompt))
}

// continueConfiguration разбирает ответ пользователя в диалоге настройки.
// Успешная настройка сразу запускает диспатч исходной задачи.
func (o *Orchestrator) continueConfiguration(ctx context.Context, pending storage.PendingConfig, ev dto.SessionPrompted) *apperrors.AppError {
	ticket, appErr := o.ticketFor(ctx, pending.WorkspaceID)
	if appErr != nil {
		return appErr
	}

	owner, repo, ok := ParseRepoRef(ev.Message)
	if !ok {
		return ticket.CreateAgentActivity(ctx, ev.SessionID, linear.Elicitation(configurePrompt))
	}

	info, installed, appErr := o.app.CheckInstallation(ctx, owner, repo)
	if appErr != nil {
		return appErr
	}
	if !installed {
		// Диалог остаётся открытым: пользователь ответит ещё раз после установки.
		// Если установка на аккаунте уже есть, дело в доступе к репозиторию,
		// и подсказка про повторную установку только запутает.
		if _, lookupErr := o.repos.Installations.GetByLogin(ctx, owner); lookupErr == nil {
			return ticket.CreateAgentActivity(ctx, ev.SessionID, linear.Elicitation(
				fmt.Sprintf(grantPrompt, owner, owner, repo)))
		} else if lookupErr.Code != apperrors.ErrNotFound {
			return lookupErr
		}
		return ticket.CreateAgentActivity(ctx, ev.SessionID, linear.Elicitation(installPrompt))
	}

	ci, appErr := o.newCI(info.ID)
	if appErr != nil {
		return appErr
	}

	defaultBranch, appErr := ci.GetDefaultBranch(ctx, owner, repo)
	if appErr != nil {
		return appErr
	}

	if appErr := o.repos.Installations.Upsert(ctx, storage.Installation{
		InstallationID: info.ID,
		AccountLogin:   info.AccountLogin,
		AccountType:    info.AccountType,
	}); appErr != nil {
		return appErr
	}

	cfg := storage.TeamConfig{
		WorkspaceID:    pending.WorkspaceID,
		TeamID:         pending.TeamID,
		RepoOwner:      owner,
		RepoName:       repo,
		DispatchBranch: defaultBranch,
		InstallationID: info.ID,
	}
	if appErr := o.repos.Teams.Upsert(ctx, cfg); appErr != nil {
		return appErr
	}

	if appErr := o.repos.PendingConfigs.Delete(ctx, pending.SessionID); appErr != nil {
		return appErr
	}

	return o.Dispatch(ctx, ev.SessionID, pending.IssueID, cfg)
}
