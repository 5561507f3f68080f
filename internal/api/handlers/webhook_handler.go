// Package handlers содержит HTTP-обработчики
package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/bogdankharchenko/linear-agent/internal/api/dto"
	"github.com/bogdankharchenko/linear-agent/internal/config"
	"github.com/bogdankharchenko/linear-agent/internal/service"
	"github.com/bogdankharchenko/linear-agent/internal/signature"
)

// maxBodySize - предел размера тела вебхука.
const maxBodySize = 1 << 20

// Заголовки входящих вебхуков.
const (
	linearSignatureHeader = "Linear-Signature"
	githubSignatureHeader = "X-Hub-Signature-256"
	githubEventHeader     = "X-GitHub-Event"
	githubDeliveryHeader  = "X-GitHub-Delivery"
)

// WebhookHandler принимает вебхуки Linear и GitHub.
type WebhookHandler struct {
	processor *service.EventProcessor
	secrets   config.WebhookConfig
}

// NewWebhookHandler возвращает новый WebhookHandler.
func NewWebhookHandler(processor *service.EventProcessor, secrets config.WebhookConfig) *WebhookHandler {
	return &WebhookHandler{processor: processor, secrets: secrets}
}

// HandleLinear обрабатывает POST /webhooks/linear
func (h *WebhookHandler) HandleLinear(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		respondError(w, http.StatusBadRequest, string(InvalidRequest), "reading body failed")
		return
	}

	// Подпись проверяется до любой логики: без неё нет ни журнала, ни логов.
	if !signature.Verify(body, r.Header.Get(linearSignatureHeader), h.secrets.LinearSecret) {
		respondError(w, http.StatusUnauthorized, "BAD_SIGNATURE", "signature verification failed")
		return
	}

	ev, err := dto.ParseLinearEvent(body)
	if err != nil {
		if errors.Is(err, dto.ErrUnsupportedEvent) {
			respondJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
			return
		}
		respondError(w, http.StatusBadRequest, string(InvalidRequest), "invalid JSON")
		return
	}

	if appErr := h.processor.ProcessLinearEvent(r.Context(), ev); appErr != nil {
		log.Printf("processing linear event failed: %v", appErr)
		respondAppError(w, appErr)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"status": "accepted"})
}

// HandleGitHub обрабатывает POST /webhooks/github
func (h *WebhookHandler) HandleGitHub(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		respondError(w, http.StatusBadRequest, string(InvalidRequest), "reading body failed")
		return
	}

	if !signature.VerifyWithPrefix(body, r.Header.Get(githubSignatureHeader), h.secrets.GitHubSecret) {
		respondError(w, http.StatusUnauthorized, "BAD_SIGNATURE", "signature verification failed")
		return
	}

	eventType := r.Header.Get(githubEventHeader)
	deliveryID := r.Header.Get(githubDeliveryHeader)

	ev, err := dto.ParseGitHubEvent(eventType, body)
	if err != nil {
		if errors.Is(err, dto.ErrUnsupportedEvent) {
			respondJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
			return
		}
		respondError(w, http.StatusBadRequest, string(InvalidRequest), "invalid JSON")
		return
	}

	if appErr := h.processor.ProcessGitHubEvent(r.Context(), eventType, deliveryID, ev); appErr != nil {
		log.Printf("processing github event failed: %v", appErr)
		respondAppError(w, appErr)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"status": "accepted"})
}
