package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/bogdankharchenko/linear-agent/internal/api/dto"
	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
	"github.com/bogdankharchenko/linear-agent/internal/storage"
)

// EventProcessor прогоняет входящие события через журнал идемпотентности
// и передаёт их оркестратору.
//
// Порядок строгий: проверка журнала -> отметка -> обработка. Отметка до
// обработки означает, что упавший обработчик не будет повторён при
// повторной доставке; это осознанный размен - источник ретраит всё,
// что не получило 2xx, и дубли опаснее потерь. Настоящие сбои попадают
// в run_logs записью webhook_error.
type EventProcessor struct {
	processed     storage.ProcessedEventRepository
	runLogs       storage.RunLogRepository
	installations storage.InstallationRepository
	orch          *Orchestrator
}

// NewEventProcessor создаёт новый EventProcessor.
func NewEventProcessor(
	processed storage.ProcessedEventRepository,
	runLogs storage.RunLogRepository,
	installations storage.InstallationRepository,
	orch *Orchestrator,
) *EventProcessor {
	return &EventProcessor{
		processed:     processed,
		runLogs:       runLogs,
		installations: installations,
		orch:          orch,
	}
}

// ProcessLinearEvent обрабатывает разобранное событие Linear.
func (p *EventProcessor) ProcessLinearEvent(ctx context.Context, ev dto.LinearEvent) *apperrors.AppError {
	eventID, sessionID := linearEventKey(ev)

	return p.run(ctx, eventID, storage.SourceLinear, sessionID, func() *apperrors.AppError {
		switch e := ev.(type) {
		case dto.SessionCreated:
			return p.orch.HandleSessionCreated(ctx, e)
		case dto.SessionPrompted:
			return p.orch.HandlePrompt(ctx, e)
		case dto.SessionUnassigned:
			return p.orch.CancelForIssue(ctx, e.SessionID, e.IssueID)
		default:
			log.Printf("unknown linear event variant %T", ev)
			return nil
		}
	})
}

// ProcessGitHubEvent обрабатывает разобранное событие GitHub.
// Идентификатор события - пара (тип, delivery id) из заголовков транспорта.
func (p *EventProcessor) ProcessGitHubEvent(ctx context.Context, eventType, deliveryID string, ev dto.GitHubEvent) *apperrors.AppError {
	eventID := fmt.Sprintf("%s:%s", eventType, deliveryID)

	return p.run(ctx, eventID, storage.SourceGitHub, "", func() *apperrors.AppError {
		switch e := ev.(type) {
		case dto.WorkflowRunEvent:
			return p.orch.HandleWorkflowRun(ctx, e)
		case dto.InstallationEvent:
			return p.handleInstallation(ctx, e)
		case dto.PullRequestEvent:
			return p.handlePullRequest(ctx, e)
		default:
			log.Printf("unknown github event variant %T", ev)
			return nil
		}
	})
}

// run выполняет обработчик под защитой журнала идемпотентности.
// Ошибки обработчика не возвращаются наружу: событие уже отмечено,
// повторная доставка не поможет.
func (p *EventProcessor) run(ctx context.Context, eventID string, source storage.EventSource, sessionID string, handle func() *apperrors.AppError) *apperrors.AppError {
	done, appErr := p.processed.IsProcessed(ctx, eventID, source)
	if appErr != nil {
		return appErr
	}
	if done {
		log.Printf("event %s from %s already processed, skipping", eventID, source)
		return nil
	}

	if appErr := p.processed.MarkProcessed(ctx, eventID, source); appErr != nil {
		return appErr
	}

	if appErr := handle(); appErr != nil {
		log.Printf("handling event %s from %s failed: %v", eventID, source, appErr)

		entry := storage.RunLogEntry{
			ID:      uuid.NewString(),
			Kind:    "webhook_error",
			Message: fmt.Sprintf("event %s from %s: %v", eventID, source, appErr),
		}
		if sessionID != "" {
			entry.SessionID = &sessionID
		}
		// Сбой записи в журнал не должен затенять исходную ошибку.
		if logErr := p.runLogs.Append(ctx, entry); logErr != nil {
			log.Printf("recording webhook_error failed: %v", logErr)
		}
	}

	return nil
}

func (p *EventProcessor) handleInstallation(ctx context.Context, ev dto.InstallationEvent) *apperrors.AppError {
	switch ev.Action {
	case "created":
		return p.installations.Upsert(ctx, storage.Installation{
			InstallationID: ev.InstallationID,
			AccountLogin:   ev.AccountLogin,
			AccountType:    ev.AccountType,
		})
	case "deleted":
		return p.installations.Delete(ctx, ev.InstallationID)
	default:
		return nil
	}
}

// handlePullRequest фиксирует открытие PR в журнале. Привязка PR к запуску
// происходит на завершении workflow, а не здесь.
func (p *EventProcessor) handlePullRequest(ctx context.Context, ev dto.PullRequestEvent) *apperrors.AppError {
	if ev.Action != "opened" {
		return nil
	}

	return p.runLogs.Append(ctx, storage.RunLogEntry{
		ID:   uuid.NewString(),
		Kind: "pull_request_opened",
		Message: fmt.Sprintf("PR #%d %q opened in %s/%s: %s",
			ev.Number, ev.Title, ev.RepoOwner, ev.RepoName, ev.HTMLURL),
	})
}

// linearEventKey строит идентификатор события для журнала идемпотентности.
// Для prompted в ключ входит id активности: сессия получает много реплик.
func linearEventKey(ev dto.LinearEvent) (eventID, sessionID string) {
	switch e := ev.(type) {
	case dto.SessionCreated:
		return fmt.Sprintf("session:%s:created", e.SessionID), e.SessionID
	case dto.SessionPrompted:
		return fmt.Sprintf("session:%s:prompted:%s", e.SessionID, e.ActivityID), e.SessionID
	case dto.SessionUnassigned:
		return fmt.Sprintf("session:%s:unassigned", e.SessionID), e.SessionID
	default:
		return fmt.Sprintf("unknown:%T", ev), ""
	}
}
