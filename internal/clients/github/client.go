// Package github - клиент GitHub Actions от имени установки GitHub App.
package github

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gh "github.com/google/go-github/v58/github"

	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
)

// PullRequestRef - ссылка на PR, созданный запуском workflow.
type PullRequestRef struct {
	Number int
	URL    string
	Title  string
}

// Client выполняет вызовы GitHub API с installation-токеном.
type Client struct {
	gh *gh.Client
}

// NewInstallationClient создаёт клиент для конкретной установки App.
// Transport ghinstallation сам обновляет installation-токен по мере истечения.
func NewInstallationClient(appID int64, privateKeyPath string, installationID int64) (*Client, *apperrors.AppError) {
	tr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, appID, installationID, privateKeyPath)
	if err != nil {
		log.Printf("creating installation transport failed: %v", err)
		return nil, apperrors.New(apperrors.ErrInternalIssue)
	}

	return &Client{gh: gh.NewClient(&http.Client{Transport: tr})}, nil
}

// ListBranchNames возвращает имена всех веток репозитория.
func (c *Client) ListBranchNames(ctx context.Context, owner, repo string) ([]string, *apperrors.AppError) {
	var names []string
	opts := &gh.BranchListOptions{ListOptions: gh.ListOptions{PerPage: 100}}

	for {
		branches, resp, err := c.gh.Repositories.ListBranches(ctx, owner, repo, opts)
		if err != nil {
			log.Printf("list branches failed: %v", err)
			return nil, apperrors.New(apperrors.ErrExternalAPI)
		}

		for _, b := range branches {
			names = append(names, b.GetName())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return names, nil
}

// GetDefaultBranch возвращает ветку по умолчанию репозитория.
func (c *Client) GetDefaultBranch(ctx context.Context, owner, repo string) (string, *apperrors.AppError) {
	repository, _, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		log.Printf("get repository failed: %v", err)
		return "", apperrors.New(apperrors.ErrExternalAPI)
	}

	return repository.GetDefaultBranch(), nil
}

// DispatchWorkflow запускает workflow_dispatch на ветке ref.
func (c *Client) DispatchWorkflow(ctx context.Context, owner, repo, workflowFile, ref string, inputs map[string]string) *apperrors.AppError {
	dispatchInputs := make(map[string]any, len(inputs))
	for k, v := range inputs {
		dispatchInputs[k] = v
	}

	req := gh.CreateWorkflowDispatchEventRequest{
		Ref:    ref,
		Inputs: dispatchInputs,
	}

	_, err := c.gh.Actions.CreateWorkflowDispatchEventByFileName(ctx, owner, repo, workflowFile, req)
	if err != nil {
		log.Printf("dispatch workflow failed: %v", err)
		var ghErr *gh.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
			log.Printf("workflow %s not found, ensure it exists on branch %s", workflowFile, ref)
		}
		return apperrors.New(apperrors.ErrExternalAPI)
	}

	return nil
}

// CancelRun отменяет запуск. Уже завершённый запуск не считается ошибкой:
// GitHub отвечает 409 Conflict, если отменять нечего.
func (c *Client) CancelRun(ctx context.Context, owner, repo string, runID int64) *apperrors.AppError {
	_, err := c.gh.Actions.CancelWorkflowRunByID(ctx, owner, repo, runID)
	if err != nil {
		var ghErr *gh.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusConflict {
			return nil
		}
		log.Printf("cancel run failed: %v", err)
		return apperrors.New(apperrors.ErrExternalAPI)
	}

	return nil
}

// ListPullRequestsForBranch возвращает открытые PR с указанной head-веткой.
func (c *Client) ListPullRequestsForBranch(ctx context.Context, owner, repo, branch string) ([]PullRequestRef, *apperrors.AppError) {
	opts := &gh.PullRequestListOptions{
		State: "open",
		Head:  fmt.Sprintf("%s:%s", owner, branch),
	}

	prs, _, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
	if err != nil {
		log.Printf("list pull requests failed: %v", err)
		return nil, apperrors.New(apperrors.ErrExternalAPI)
	}

	refs := make([]PullRequestRef, 0, len(prs))
	for _, pr := range prs {
		refs = append(refs, PullRequestRef{
			Number: pr.GetNumber(),
			URL:    pr.GetHTMLURL(),
			Title:  pr.GetTitle(),
		})
	}

	return refs, nil
}

// SearchPullRequestsByTitle ищет PR по подстроке в заголовке без учёта регистра.
func (c *Client) SearchPullRequestsByTitle(ctx context.Context, owner, repo, term string) ([]PullRequestRef, *apperrors.AppError) {
	query := fmt.Sprintf("repo:%s/%s is:pr in:title %q", owner, repo, term)

	result, _, err := c.gh.Search.Issues(ctx, query, &gh.SearchOptions{})
	if err != nil {
		log.Printf("search pull requests failed: %v", err)
		return nil, apperrors.New(apperrors.ErrExternalAPI)
	}

	lowered := strings.ToLower(term)
	var refs []PullRequestRef
	for _, issue := range result.Issues {
		if !issue.IsPullRequest() {
			continue
		}
		if !strings.Contains(strings.ToLower(issue.GetTitle()), lowered) {
			continue
		}
		refs = append(refs, PullRequestRef{
			Number: issue.GetNumber(),
			URL:    issue.GetHTMLURL(),
			Title:  issue.GetTitle(),
		})
	}

	return refs, nil
}

// RunURL строит ссылку на запуск для сообщений пользователю.
func RunURL(owner, repo string, runID int64) string {
	return fmt.Sprintf("https://github.com/%s/%s/actions/runs/%d", owner, repo, runID)
}
