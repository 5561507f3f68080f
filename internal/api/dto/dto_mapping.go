package dto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnsupportedEvent возвращается для событий, которые сервис не обрабатывает.
var ErrUnsupportedEvent = errors.New("unsupported event")

// Типы и действия вебхука Linear.
const (
	linearTypeAgentSession = "AgentSessionEvent"

	linearActionCreated    = "created"
	linearActionPrompted   = "prompted"
	linearActionUnassigned = "unassigned"
)

// Типы событий GitHub (заголовок X-GitHub-Event).
const (
	GitHubEventWorkflowRun  = "workflow_run"
	GitHubEventInstallation = "installation"
	GitHubEventPullRequest  = "pull_request"
)

// ParseLinearEvent разбирает тело вебхука Linear в один из вариантов LinearEvent.
func ParseLinearEvent(body []byte) (LinearEvent, error) {
	var raw linearWebhook
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding linear webhook failed: %w", err)
	}

	if raw.Type != linearTypeAgentSession {
		return nil, ErrUnsupportedEvent
	}

	switch raw.Action {
	case linearActionCreated:
		return SessionCreated{
			WorkspaceID:     raw.OrganizationID,
			SessionID:       raw.AgentSession.ID,
			TeamID:          raw.AgentSession.Issue.TeamID,
			IssueID:         raw.AgentSession.Issue.ID,
			IssueIdentifier: raw.AgentSession.Issue.Identifier,
		}, nil
	case linearActionPrompted:
		// Текст может лежать как в content.body, так и прямо в body.
		message := raw.AgentActivity.Content.Body
		if message == "" {
			message = raw.AgentActivity.Body
		}
		return SessionPrompted{
			WorkspaceID:     raw.OrganizationID,
			SessionID:       raw.AgentSession.ID,
			TeamID:          raw.AgentSession.Issue.TeamID,
			IssueID:         raw.AgentSession.Issue.ID,
			IssueIdentifier: raw.AgentSession.Issue.Identifier,
			ActivityID:      raw.AgentActivity.ID,
			Message:         message,
		}, nil
	case linearActionUnassigned:
		return SessionUnassigned{
			WorkspaceID: raw.OrganizationID,
			SessionID:   raw.AgentSession.ID,
			IssueID:     raw.AgentSession.Issue.ID,
		}, nil
	default:
		return nil, ErrUnsupportedEvent
	}
}

// ParseGitHubEvent разбирает тело вебхука GitHub по типу из заголовка.
func ParseGitHubEvent(eventType string, body []byte) (GitHubEvent, error) {
	switch eventType {
	case GitHubEventWorkflowRun:
		var raw workflowRunWebhook
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("decoding workflow_run webhook failed: %w", err)
		}
		return WorkflowRunEvent{
			Action:         raw.Action,
			RunID:          raw.WorkflowRun.ID,
			Status:         raw.WorkflowRun.Status,
			Conclusion:     raw.WorkflowRun.Conclusion,
			HTMLURL:        raw.WorkflowRun.HTMLURL,
			HeadBranch:     raw.WorkflowRun.HeadBranch,
			RepoOwner:      raw.Repository.Owner.Login,
			RepoName:       raw.Repository.Name,
			InstallationID: raw.Installation.ID,
		}, nil
	case GitHubEventInstallation:
		var raw struct {
			Action       string              `json:"action"`
			Installation installationPayload `json:"installation"`
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("decoding installation webhook failed: %w", err)
		}
		return InstallationEvent{
			Action:         raw.Action,
			InstallationID: raw.Installation.ID,
			AccountLogin:   raw.Installation.Account.Login,
			AccountType:    raw.Installation.Account.Type,
		}, nil
	case GitHubEventPullRequest:
		var raw pullRequestWebhook
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("decoding pull_request webhook failed: %w", err)
		}
		return PullRequestEvent{
			Action:    raw.Action,
			Number:    raw.Number,
			Title:     raw.PullRequest.Title,
			HTMLURL:   raw.PullRequest.HTMLURL,
			RepoOwner: raw.Repository.Owner.Login,
			RepoName:  raw.Repository.Name,
		}, nil
	default:
		return nil, ErrUnsupportedEvent
	}
}
