package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bogdankharchenko/linear-agent/internal/config"
)

var testSecrets = config.WebhookConfig{
	LinearSecret: "linear-secret",
	GitHubSecret: "github-secret",
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Плохая подпись и неподдерживаемые события отсекаются до процессора,
// поэтому здесь он не нужен.
func newHandler() *WebhookHandler {
	return NewWebhookHandler(nil, testSecrets)
}

func TestHandleLinear_RejectsBadSignature(t *testing.T) {
	body := []byte(`{"type": "AgentSessionEvent", "action": "created"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/linear", bytes.NewReader(body))
	req.Header.Set("Linear-Signature", "deadbeef")
	rec := httptest.NewRecorder()

	newHandler().HandleLinear(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleLinear_RejectsMissingSignature(t *testing.T) {
	body := []byte(`{"type": "AgentSessionEvent", "action": "created"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/linear", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	newHandler().HandleLinear(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleLinear_IgnoresUnsupportedEvent(t *testing.T) {
	body := []byte(`{"type": "Issue", "action": "update"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/linear", bytes.NewReader(body))
	req.Header.Set("Linear-Signature", sign(body, testSecrets.LinearSecret))
	rec := httptest.NewRecorder()

	newHandler().HandleLinear(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ignored")
}

func TestHandleLinear_RejectsMalformedJSON(t *testing.T) {
	body := []byte(`{not json`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/linear", bytes.NewReader(body))
	req.Header.Set("Linear-Signature", sign(body, testSecrets.LinearSecret))
	rec := httptest.NewRecorder()

	newHandler().HandleLinear(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGitHub_RejectsBadSignature(t *testing.T) {
	body := []byte(`{"action": "completed"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	req.Header.Set("X-GitHub-Event", "workflow_run")
	rec := httptest.NewRecorder()

	newHandler().HandleGitHub(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleGitHub_RejectsSignatureWithoutPrefix(t *testing.T) {
	body := []byte(`{"action": "completed"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sign(body, testSecrets.GitHubSecret))
	req.Header.Set("X-GitHub-Event", "workflow_run")
	rec := httptest.NewRecorder()

	newHandler().HandleGitHub(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleGitHub_IgnoresUnsupportedEvent(t *testing.T) {
	body := []byte(`{"ref": "refs/heads/main"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", "sha256="+sign(body, testSecrets.GitHubSecret))
	req.Header.Set("X-GitHub-Event", "push")
	req.Header.Set("X-GitHub-Delivery", "d-1")
	rec := httptest.NewRecorder()

	newHandler().HandleGitHub(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ignored")
}
