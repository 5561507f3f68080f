// Package dto содержит структуры входящих вебхуков и разбор их вариантов.
package dto

// ErrorResponse - формат ошибки.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail - код и сообщение об ошибке.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// linearWebhook - сырое тело вебхука Linear до разбора на варианты.
type linearWebhook struct {
	Type           string `json:"type"`
	Action         string `json:"action"`
	OrganizationID string `json:"organizationId"`
	AgentSession   struct {
		ID    string `json:"id"`
		Issue struct {
			ID         string `json:"id"`
			Identifier string `json:"identifier"`
			TeamID     string `json:"teamId"`
			Title      string `json:"title"`
		} `json:"issue"`
	} `json:"agentSession"`
	AgentActivity struct {
		ID      string `json:"id"`
		Body    string `json:"body"`
		Content struct {
			Type string `json:"type"`
			Body string `json:"body"`
		} `json:"content"`
	} `json:"agentActivity"`
}

// LinearEvent - разобранное событие Linear; ровно один из вариантов ниже.
type LinearEvent interface {
	linearEvent()
}

// SessionCreated - агентская сессия создана (задача делегирована агенту).
type SessionCreated struct {
	WorkspaceID     string
	SessionID       string
	TeamID          string
	IssueID         string
	IssueIdentifier string
}

// SessionPrompted - пользователь написал свободный текст в сессию.
type SessionPrompted struct {
	WorkspaceID     string
	SessionID       string
	TeamID          string
	IssueID         string
	IssueIdentifier string
	ActivityID      string
	Message         string
}

// SessionUnassigned - задача снята с агента.
type SessionUnassigned struct {
	WorkspaceID string
	SessionID   string
	IssueID     string
}

func (SessionCreated) linearEvent()    {}
func (SessionPrompted) linearEvent()   {}
func (SessionUnassigned) linearEvent() {}

// workflowRunWebhook - сырое тело события workflow_run.
type workflowRunWebhook struct {
	Action      string `json:"action"`
	WorkflowRun struct {
		ID         int64  `json:"id"`
		Status     string `json:"status"`
		Conclusion string `json:"conclusion"`
		HTMLURL    string `json:"html_url"`
		HeadBranch string `json:"head_branch"`
	} `json:"workflow_run"`
	Repository   repositoryPayload   `json:"repository"`
	Installation installationPayload `json:"installation"`
}

type repositoryPayload struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
}

type installationPayload struct {
	ID      int64 `json:"id"`
	Account struct {
		Login string `json:"login"`
		Type  string `json:"type"`
	} `json:"account"`
}

type pullRequestWebhook struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest struct {
		Title   string `json:"title"`
		HTMLURL string `json:"html_url"`
	} `json:"pull_request"`
	Repository repositoryPayload `json:"repository"`
}

// GitHubEvent - разобранное событие GitHub; ровно один из вариантов ниже.
type GitHubEvent interface {
	githubEvent()
}

// WorkflowRunEvent - событие жизненного цикла запуска Actions.
type WorkflowRunEvent struct {
	Action         string
	RunID          int64
	Status         string
	Conclusion     string
	HTMLURL        string
	HeadBranch     string
	RepoOwner      string
	RepoName       string
	InstallationID int64
}

// InstallationEvent - установка или удаление GitHub App.
type InstallationEvent struct {
	Action         string
	InstallationID int64
	AccountLogin   string
	AccountType    string
}

// PullRequestEvent - открытие PR; в ядре используется только для журнала.
type PullRequestEvent struct {
	Action    string
	Number    int
	Title     string
	HTMLURL   string
	RepoOwner string
	RepoName  string
}

func (WorkflowRunEvent) githubEvent()  {}
func (InstallationEvent) githubEvent() {}
func (PullRequestEvent) githubEvent()  {}
