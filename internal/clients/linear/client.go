// Package linear - клиент агентского API Linear.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
)

// ActivityType - вид активности в агентской сессии.
type ActivityType string

const (
	// ActivityThought - размышление агента, видимое пользователю.
	ActivityThought ActivityType = "thought"
	// ActivityAction - действие агента с параметром и результатом.
	ActivityAction ActivityType = "action"
	// ActivityElicitation - вопрос агента, требующий ответа пользователя.
	ActivityElicitation ActivityType = "elicitation"
	// ActivityResponse - финальный ответ агента.
	ActivityResponse ActivityType = "response"
	// ActivityError - сообщение об ошибке.
	ActivityError ActivityType = "error"
)

// ActivityContent - содержимое активности; заполняются поля своего типа.
type ActivityContent struct {
	Type      ActivityType `json:"type"`
	Body      string       `json:"body,omitempty"`
	Action    string       `json:"action,omitempty"`
	Parameter string       `json:"parameter,omitempty"`
	Result    string       `json:"result,omitempty"`
}

// Thought строит активность-размышление.
func Thought(body string) ActivityContent {
	return ActivityContent{Type: ActivityThought, Body: body}
}

// Action строит активность-действие.
func Action(name, parameter, result string) ActivityContent {
	return ActivityContent{Type: ActivityAction, Action: name, Parameter: parameter, Result: result}
}

// Elicitation строит активность-вопрос.
func Elicitation(body string) ActivityContent {
	return ActivityContent{Type: ActivityElicitation, Body: body}
}

// Response строит финальный ответ.
func Response(body string) ActivityContent {
	return ActivityContent{Type: ActivityResponse, Body: body}
}

// Error строит активность-ошибку.
func Error(body string) ActivityContent {
	return ActivityContent{Type: ActivityError, Body: body}
}

// IssueComment - комментарий задачи.
type IssueComment struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

// LinkedIssue - связанная задача.
type LinkedIssue struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
}

// Attachment - вложение задачи.
type Attachment struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// IssueContext - полный контекст задачи для передачи в CI.
type IssueContext struct {
	Identifier   string         `json:"identifier"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Comments     []IssueComment `json:"comments"`
	LinkedIssues []LinkedIssue  `json:"linkedIssues"`
	ParentIssue  *LinkedIssue   `json:"parentIssue,omitempty"`
	Attachments  []Attachment   `json:"attachments"`
}

// Serialize возвращает контекст задачи в виде JSON-строки для inputs workflow.
func (c IssueContext) Serialize() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshaling issue context failed: %w", err)
	}
	return string(raw), nil
}

// Client - HTTP-клиент агентского API Linear. Создаётся на каждый запрос
// с уже разрешённым токеном workspace.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient создаёт клиент с переданным токеном доступа.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateAgentActivity публикует активность в агентской сессии.
func (c *Client) CreateAgentActivity(ctx context.Context, sessionID string, content ActivityContent) *apperrors.AppError {
	path := fmt.Sprintf("/v1/agent-sessions/%s/activities", sessionID)
	return c.post(ctx, path, map[string]any{"content": content}, nil)
}

// FetchIssueContext запрашивает полный контекст задачи.
func (c *Client) FetchIssueContext(ctx context.Context, issueID string) (IssueContext, *apperrors.AppError) {
	var issue IssueContext
	path := fmt.Sprintf("/v1/issues/%s/context", issueID)
	if appErr := c.get(ctx, path, &issue); appErr != nil {
		return IssueContext{}, appErr
	}
	return issue, nil
}

// CreateAttachment прикрепляет ссылку к задаче.
func (c *Client) CreateAttachment(ctx context.Context, issueID, title, url string) *apperrors.AppError {
	path := fmt.Sprintf("/v1/issues/%s/attachments", issueID)
	body := map[string]any{"title": title, "url": url}
	return c.post(ctx, path, body, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) *apperrors.AppError {
	raw, err := json.Marshal(body)
	if err != nil {
		log.Printf("marshal request body failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		log.Printf("build request failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) *apperrors.AppError {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		log.Printf("build request failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) *apperrors.AppError {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("linear request failed: %v", err)
		return apperrors.New(apperrors.ErrExternalAPI)
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("linear API returned %d for %s %s: %s", resp.StatusCode, req.Method, req.URL.Path, snippet)
		return apperrors.New(apperrors.ErrExternalAPI)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Printf("decode linear response failed: %v", err)
		return apperrors.New(apperrors.ErrExternalAPI)
	}

	return nil
}
