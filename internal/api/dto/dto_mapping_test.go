package dto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLinearEvent_Created(t *testing.T) {
	body := []byte(`{
		"type": "AgentSessionEvent",
		"action": "created",
		"organizationId": "ws-1",
		"agentSession": {
			"id": "sess-1",
			"issue": {"id": "issue-1", "identifier": "ABC-123", "teamId": "team-1", "title": "Fix login"}
		}
	}`)

	ev, err := ParseLinearEvent(body)
	require.NoError(t, err)

	created, ok := ev.(SessionCreated)
	require.True(t, ok)
	require.Equal(t, "ws-1", created.WorkspaceID)
	require.Equal(t, "sess-1", created.SessionID)
	require.Equal(t, "team-1", created.TeamID)
	require.Equal(t, "issue-1", created.IssueID)
	require.Equal(t, "ABC-123", created.IssueIdentifier)
}

func TestParseLinearEvent_PromptedNestedBody(t *testing.T) {
	body := []byte(`{
		"type": "AgentSessionEvent",
		"action": "prompted",
		"organizationId": "ws-1",
		"agentSession": {"id": "sess-1", "issue": {"id": "issue-1", "identifier": "ABC-123", "teamId": "team-1"}},
		"agentActivity": {"id": "act-1", "content": {"type": "prompt", "body": "please fix the login bug"}}
	}`)

	ev, err := ParseLinearEvent(body)
	require.NoError(t, err)

	p, ok := ev.(SessionPrompted)
	require.True(t, ok)
	require.Equal(t, "act-1", p.ActivityID)
	require.Equal(t, "please fix the login bug", p.Message)
}

func TestParseLinearEvent_PromptedFlatBody(t *testing.T) {
	body := []byte(`{
		"type": "AgentSessionEvent",
		"action": "prompted",
		"organizationId": "ws-1",
		"agentSession": {"id": "sess-1", "issue": {"id": "issue-1"}},
		"agentActivity": {"id": "act-2", "body": "status?"}
	}`)

	ev, err := ParseLinearEvent(body)
	require.NoError(t, err)

	p, ok := ev.(SessionPrompted)
	require.True(t, ok)
	require.Equal(t, "status?", p.Message)
}

func TestParseLinearEvent_Unassigned(t *testing.T) {
	body := []byte(`{
		"type": "AgentSessionEvent",
		"action": "unassigned",
		"organizationId": "ws-1",
		"agentSession": {"id": "sess-1", "issue": {"id": "issue-1"}}
	}`)

	ev, err := ParseLinearEvent(body)
	require.NoError(t, err)

	u, ok := ev.(SessionUnassigned)
	require.True(t, ok)
	require.Equal(t, "sess-1", u.SessionID)
	require.Equal(t, "issue-1", u.IssueID)
}

func TestParseLinearEvent_Unsupported(t *testing.T) {
	_, err := ParseLinearEvent([]byte(`{"type": "Issue", "action": "update"}`))
	require.ErrorIs(t, err, ErrUnsupportedEvent)

	_, err = ParseLinearEvent([]byte(`{"type": "AgentSessionEvent", "action": "archived"}`))
	require.ErrorIs(t, err, ErrUnsupportedEvent)
}

func TestParseLinearEvent_MalformedJSON(t *testing.T) {
	_, err := ParseLinearEvent([]byte(`{not json`))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnsupportedEvent)
}

func TestParseGitHubEvent_WorkflowRun(t *testing.T) {
	body := []byte(`{
		"action": "completed",
		"workflow_run": {
			"id": 99,
			"status": "completed",
			"conclusion": "success",
			"html_url": "https://github.com/acme/widgets/actions/runs/99",
			"head_branch": "main"
		},
		"repository": {"name": "widgets", "owner": {"login": "acme"}},
		"installation": {"id": 42}
	}`)

	ev, err := ParseGitHubEvent(GitHubEventWorkflowRun, body)
	require.NoError(t, err)

	run, ok := ev.(WorkflowRunEvent)
	require.True(t, ok)
	require.Equal(t, int64(99), run.RunID)
	require.Equal(t, "success", run.Conclusion)
	require.Equal(t, "main", run.HeadBranch)
	require.Equal(t, "acme", run.RepoOwner)
	require.Equal(t, "widgets", run.RepoName)
	require.Equal(t, int64(42), run.InstallationID)
}

func TestParseGitHubEvent_Installation(t *testing.T) {
	body := []byte(`{
		"action": "created",
		"installation": {"id": 7, "account": {"login": "acme", "type": "Organization"}}
	}`)

	ev, err := ParseGitHubEvent(GitHubEventInstallation, body)
	require.NoError(t, err)

	inst, ok := ev.(InstallationEvent)
	require.True(t, ok)
	require.Equal(t, int64(7), inst.InstallationID)
	require.Equal(t, "acme", inst.AccountLogin)
	require.Equal(t, "Organization", inst.AccountType)
}

func TestParseGitHubEvent_PullRequest(t *testing.T) {
	body := []byte(`{
		"action": "opened",
		"number": 5,
		"pull_request": {"title": "ABC-123 fix login", "html_url": "https://github.com/acme/widgets/pull/5"},
		"repository": {"name": "widgets", "owner": {"login": "acme"}}
	}`)

	ev, err := ParseGitHubEvent(GitHubEventPullRequest, body)
	require.NoError(t, err)

	pr, ok := ev.(PullRequestEvent)
	require.True(t, ok)
	require.Equal(t, 5, pr.Number)
	require.Equal(t, "ABC-123 fix login", pr.Title)
}

func TestParseGitHubEvent_Unsupported(t *testing.T) {
	_, err := ParseGitHubEvent("push", []byte(`{}`))
	require.ErrorIs(t, err, ErrUnsupportedEvent)
}
