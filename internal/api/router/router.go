// Package router регистрирует HTTP-маршруты и возвращает http.Handler.
package router

import (
	"net/http"

	"github.com/bogdankharchenko/linear-agent/internal/api/handlers"
)

// NewRouter создаёт HTTP router с зарегистрированными маршрутами.
func NewRouter(webhookHandler *handlers.WebhookHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /webhooks/linear", webhookHandler.HandleLinear)
	mux.HandleFunc("POST /webhooks/github", webhookHandler.HandleGitHub)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}
	})

	return mux
}
