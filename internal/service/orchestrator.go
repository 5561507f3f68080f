package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/bogdankharchenko/linear-agent/internal/api/dto"
	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
	"github.com/bogdankharchenko/linear-agent/internal/branchname"
	"github.com/bogdankharchenko/linear-agent/internal/clients/github"
	"github.com/bogdankharchenko/linear-agent/internal/clients/linear"
	"github.com/bogdankharchenko/linear-agent/internal/storage"
)

// Orchestrator управляет жизненным циклом запусков: диспатч, корреляция,
// завершение и отмена.
type Orchestrator struct {
	repos        Repos
	tokens       TokenProvider
	newTicket    TicketClientFactory
	newCI        CIClientFactory
	app          AppClient
	classifier   Classifier
	workflowFile string
}

// NewOrchestrator создаёт новый Orchestrator.
func NewOrchestrator(
	repos Repos,
	tokens TokenProvider,
	newTicket TicketClientFactory,
	newCI CIClientFactory,
	app AppClient,
	classifier Classifier,
	workflowFile string,
) *Orchestrator {
	return &Orchestrator{
		repos:        repos,
		tokens:       tokens,
		newTicket:    newTicket,
		newCI:        newCI,
		app:          app,
		classifier:   classifier,
		workflowFile: workflowFile,
	}
}

// HandleSessionCreated обрабатывает делегирование задачи агенту.
func (o *Orchestrator) HandleSessionCreated(ctx context.Context, ev dto.SessionCreated) *apperrors.AppError {
	cfg, appErr := o.repos.Teams.Get(ctx, ev.WorkspaceID, ev.TeamID)
	if appErr != nil {
		if appErr.Code != apperrors.ErrNotFound {
			return appErr
		}
		return o.startConfiguration(ctx, ev.WorkspaceID, ev.TeamID, ev.SessionID, ev.IssueID)
	}

	return o.Dispatch(ctx, ev.SessionID, ev.IssueID, cfg)
}

// Dispatch запускает workflow для задачи. Первым делом отправляется
// подтверждение в сессию: на первый ответ действует внешний дедлайн
// порядка секунд, поэтому он уходит до любых медленных вызовов.
func (o *Orchestrator) Dispatch(ctx context.Context, sessionID, issueID string, cfg storage.TeamConfig) *apperrors.AppError {
	if cfg.RepoOwner == "" || cfg.RepoName == "" {
		return apperrors.New(apperrors.ErrNotConfigured)
	}

	ticket, appErr := o.ticketFor(ctx, cfg.WorkspaceID)
	if appErr != nil {
		return appErr
	}

	if appErr := ticket.CreateAgentActivity(ctx, sessionID, linear.Thought("On it. Preparing a workflow run for this issue.")); appErr != nil {
		return appErr
	}

	issue, appErr := ticket.FetchIssueContext(ctx, issueID)
	if appErr != nil {
		return appErr
	}

	ci, appErr := o.newCI(cfg.InstallationID)
	if appErr != nil {
		return appErr
	}

	// Список веток запрашивается непосредственно перед диспатчем, чтобы
	// сузить гонку между выбором имени и созданием ветки на стороне CI.
	names, appErr := ci.ListBranchNames(ctx, cfg.RepoOwner, cfg.RepoName)
	if appErr != nil {
		return appErr
	}
	featureBranch := branchname.NextAvailable(issue.Identifier, branchname.ToSet(names))

	trigger := storage.PendingWorkflowTrigger{
		ID:              uuid.NewString(),
		SessionID:       sessionID,
		Kind:            storage.KindImplement,
		WorkspaceID:     cfg.WorkspaceID,
		IssueID:         issueID,
		IssueIdentifier: issue.Identifier,
		RepoOwner:       cfg.RepoOwner,
		RepoName:        cfg.RepoName,
		Branch:          cfg.DispatchBranch,
		FeatureBranch:   featureBranch,
		InstallationID:  cfg.InstallationID,
	}
	if appErr := o.repos.Triggers.Replace(ctx, trigger); appErr != nil {
		return appErr
	}

	target := fmt.Sprintf("%s/%s", cfg.RepoOwner, cfg.RepoName)
	if appErr := ticket.CreateAgentActivity(ctx, sessionID, linear.Action("start_work", target, featureBranch)); appErr != nil {
		return appErr
	}

	serialized, err := issue.Serialize()
	if err != nil {
		log.Printf("serializing issue context failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	inputs := map[string]string{
		"feature_branch":   featureBranch,
		"issue_identifier": issue.Identifier,
		"issue_context":    serialized,
	}
	if appErr := ci.DispatchWorkflow(ctx, cfg.RepoOwner, cfg.RepoName, o.workflowFile, cfg.DispatchBranch, inputs); appErr != nil {
		return appErr
	}

	return o.appendLog(ctx, nil, &sessionID, "workflow_dispatched",
		fmt.Sprintf("dispatched %s on %s@%s, feature branch %s", o.workflowFile, target, cfg.DispatchBranch, featureBranch))
}

// HandleWorkflowRun обрабатывает событие workflow_run из GitHub.
func (o *Orchestrator) HandleWorkflowRun(ctx context.Context, ev dto.WorkflowRunEvent) *apperrors.AppError {
	switch ev.Action {
	case "queued", "in_progress":
		return o.correlate(ctx, ev)
	case "completed":
		return o.complete(ctx, ev)
	default:
		log.Printf("ignoring workflow_run action %q for run %d", ev.Action, ev.RunID)
		return nil
	}
}

// correlate связывает событие запуска с корреляционной записью диспатча
// либо продвигает статус уже известного запуска.
func (o *Orchestrator) correlate(ctx context.Context, ev dto.WorkflowRunEvent) *apperrors.AppError {
	run, appErr := o.repos.Runs.Get(ctx, ev.RunID)
	if appErr != nil {
		if appErr.Code != apperrors.ErrNotFound {
			return appErr
		}
		_, _, appErr = o.adopt(ctx, ev)
		return appErr
	}

	status := runStatusFromEvent(ev)
	if run.Status == status {
		return nil
	}

	if appErr := o.repos.Runs.UpdateStatus(ctx, ev.RunID, status); appErr != nil {
		return appErr
	}

	if status == storage.StatusInProgress {
		ticket, appErr := o.ticketFor(ctx, run.WorkspaceID)
		if appErr != nil {
			return appErr
		}
		return ticket.CreateAgentActivity(ctx, run.SessionID,
			linear.Action("workflow_running", run.IssueIdentifier, ev.HTMLURL))
	}

	return nil
}

// adopt создаёт WorkflowRun из подходящей несопоставленной записи диспатча.
// Головная ветка события - это ветка диспатча, а не feature-ветка.
func (o *Orchestrator) adopt(ctx context.Context, ev dto.WorkflowRunEvent) (storage.WorkflowRun, bool, *apperrors.AppError) {
	trigger, appErr := o.repos.Triggers.FindUnmatched(ctx, ev.RepoOwner, ev.RepoName, ev.HeadBranch)
	if appErr != nil {
		if appErr.Code == apperrors.ErrNotFound {
			// Запуск, который диспатчили не мы, либо проигранная гонка.
			log.Printf("no matching trigger for run %d on %s/%s@%s, dropping",
				ev.RunID, ev.RepoOwner, ev.RepoName, ev.HeadBranch)
			return storage.WorkflowRun{}, false, nil
		}
		return storage.WorkflowRun{}, false, appErr
	}

	// Терминальное событие без стартовых (потерянная или переставленная
	// доставка) усыновляется в in_progress: запись завершения делает caller.
	status := runStatusFromEvent(ev)
	if status == storage.StatusCompleted {
		status = storage.StatusInProgress
	}

	run := storage.WorkflowRun{
		RunID:           ev.RunID,
		SessionID:       trigger.SessionID,
		WorkspaceID:     trigger.WorkspaceID,
		IssueID:         trigger.IssueID,
		IssueIdentifier: trigger.IssueIdentifier,
		RepoOwner:       ev.RepoOwner,
		RepoName:        ev.RepoName,
		FeatureBranch:   trigger.FeatureBranch,
		InstallationID:  trigger.InstallationID,
		Status:          status,
		HTMLURL:         ev.HTMLURL,
	}
	if appErr := o.repos.Runs.Create(ctx, run); appErr != nil {
		return storage.WorkflowRun{}, false, appErr
	}

	if appErr := o.repos.Triggers.MarkMatched(ctx, trigger.ID); appErr != nil {
		return storage.WorkflowRun{}, false, appErr
	}

	if appErr := o.appendLog(ctx, &ev.RunID, &trigger.SessionID, "run_correlated",
		fmt.Sprintf("run %d matched trigger %s for %s", ev.RunID, trigger.ID, trigger.IssueIdentifier)); appErr != nil {
		return storage.WorkflowRun{}, false, appErr
	}

	return run, true, nil
}

// complete обрабатывает завершение запуска: ищет созданный PR и сообщает итог.
func (o *Orchestrator) complete(ctx context.Context, ev dto.WorkflowRunEvent) *apperrors.AppError {
	run, appErr := o.repos.Runs.Get(ctx, ev.RunID)
	if appErr != nil {
		if appErr.Code != apperrors.ErrNotFound {
			return appErr
		}
		// Завершение могло прийти раньше стартовых событий: перед сбросом
		// пробуем усыновить запуск через несопоставленную запись диспатча,
		// иначе итог так и не будет доложен.
		adopted, ok, adoptErr := o.adopt(ctx, ev)
		if adoptErr != nil {
			return adoptErr
		}
		if !ok {
			return nil
		}
		run = adopted
	}

	if run.Status == storage.StatusCompleted {
		return nil
	}

	ticket, appErr := o.ticketFor(ctx, run.WorkspaceID)
	if appErr != nil {
		return appErr
	}

	conclusion := storage.RunConclusion(ev.Conclusion)
	if conclusion != storage.ConclusionSuccess {
		if appErr := o.repos.Runs.Complete(ctx, run.RunID, conclusion); appErr != nil {
			return appErr
		}
		link := github.RunURL(run.RepoOwner, run.RepoName, run.RunID)
		if appErr := ticket.CreateAgentActivity(ctx, run.SessionID, linear.Error(
			fmt.Sprintf("The workflow run for %s finished with conclusion %q. Details: %s", run.IssueIdentifier, ev.Conclusion, link))); appErr != nil {
			return appErr
		}
		return o.appendLog(ctx, &run.RunID, &run.SessionID, "run_completed", ev.Conclusion)
	}

	pr, found, appErr := o.findResult(ctx, run)
	if appErr != nil {
		return appErr
	}

	if !found {
		if appErr := o.repos.Runs.Complete(ctx, run.RunID, storage.ConclusionSuccess); appErr != nil {
			return appErr
		}
		if appErr := ticket.CreateAgentActivity(ctx, run.SessionID, linear.Response(
			fmt.Sprintf("I finished analyzing %s. No code changes were necessary.", run.IssueIdentifier))); appErr != nil {
			return appErr
		}
		return o.appendLog(ctx, &run.RunID, &run.SessionID, "run_completed", "success, no pull request")
	}

	if appErr := o.repos.Runs.SetPullRequest(ctx, run.RunID, pr.Number, pr.URL); appErr != nil {
		return appErr
	}
	if appErr := o.repos.Runs.Complete(ctx, run.RunID, storage.ConclusionSuccess); appErr != nil {
		return appErr
	}

	if appErr := ticket.CreateAttachment(ctx, run.IssueID, pr.Title, pr.URL); appErr != nil {
		return appErr
	}
	if appErr := ticket.CreateAgentActivity(ctx, run.SessionID, linear.Response(
		fmt.Sprintf("Done! Opened %s for %s.", pr.URL, run.IssueIdentifier))); appErr != nil {
		return appErr
	}

	return o.appendLog(ctx, &run.RunID, &run.SessionID, "run_completed", "success")
}

// findResult ищет PR, созданный запуском: сначала по feature-ветке,
// затем по идентификатору задачи в заголовке.
func (o *Orchestrator) findResult(ctx context.Context, run storage.WorkflowRun) (github.PullRequestRef, bool, *apperrors.AppError) {
	ci, appErr := o.newCI(run.InstallationID)
	if appErr != nil {
		return github.PullRequestRef{}, false, appErr
	}

	prs, appErr := ci.ListPullRequestsForBranch(ctx, run.RepoOwner, run.RepoName, run.FeatureBranch)
	if appErr != nil {
		return github.PullRequestRef{}, false, appErr
	}
	if len(prs) > 0 {
		return prs[0], true, nil
	}

	prs, appErr = ci.SearchPullRequestsByTitle(ctx, run.RepoOwner, run.RepoName, run.IssueIdentifier)
	if appErr != nil {
		return github.PullRequestRef{}, false, appErr
	}
	if len(prs) > 0 {
		return prs[0], true, nil
	}

	return github.PullRequestRef{}, false, nil
}

// CancelForIssue отменяет активный запуск по задаче. Отсутствие активного
// запуска - no-op.
func (o *Orchestrator) CancelForIssue(ctx context.Context, sessionID, issueID string) *apperrors.AppError {
	run, appErr := o.repos.Runs.GetActiveByIssue(ctx, issueID)
	if appErr != nil {
		if appErr.Code == apperrors.ErrNotFound {
			return nil
		}
		return appErr
	}

	ci, appErr := o.newCI(run.InstallationID)
	if appErr != nil {
		return appErr
	}

	if appErr := ci.CancelRun(ctx, run.RepoOwner, run.RepoName, run.RunID); appErr != nil {
		return appErr
	}

	if appErr := o.repos.Runs.Complete(ctx, run.RunID, storage.ConclusionCancelled); appErr != nil {
		return appErr
	}

	ticket, appErr := o.ticketFor(ctx, run.WorkspaceID)
	if appErr != nil {
		return appErr
	}
	if appErr := ticket.CreateAgentActivity(ctx, sessionID, linear.Thought(
		fmt.Sprintf("Stopped working on %s and cancelled the workflow run.", run.IssueIdentifier))); appErr != nil {
		return appErr
	}

	if appErr := o.repos.PendingConfigs.Delete(ctx, sessionID); appErr != nil {
		return appErr
	}

	return o.appendLog(ctx, &run.RunID, &sessionID, "run_cancelled",
		fmt.Sprintf("run %d cancelled after unassignment", run.RunID))
}

func (o *Orchestrator) ticketFor(ctx context.Context, workspaceID string) (TicketClient, *apperrors.AppError) {
	token, appErr := o.tokens.GetValidToken(ctx, workspaceID)
	if appErr != nil {
		return nil, appErr
	}
	return o.newTicket(token), nil
}

func (o *Orchestrator) appendLog(ctx context.Context, runID *int64, sessionID *string, kind, message string) *apperrors.AppError {
	return o.repos.RunLogs.Append(ctx, storage.RunLogEntry{
		ID:        uuid.NewString(),
		RunID:     runID,
		SessionID: sessionID,
		Kind:      kind,
		Message:   message,
	})
}

func runStatusFromEvent(ev dto.WorkflowRunEvent) storage.RunStatus {
	switch ev.Action {
	case "queued":
		return storage.StatusQueued
	case "in_progress":
		return storage.StatusInProgress
	default:
		return storage.StatusCompleted
	}
}
