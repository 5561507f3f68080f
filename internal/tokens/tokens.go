// Package tokens выдаёт действующие OAuth-токены Linear по workspace.
package tokens

import (
	"context"
	"log"
	"time"

	"golang.org/x/oauth2"

	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
	"github.com/bogdankharchenko/linear-agent/internal/config"
	"github.com/bogdankharchenko/linear-agent/internal/storage"
)

// RefreshBuffer - запас до истечения, при котором токен обновляется заранее.
const RefreshBuffer = 5 * time.Minute

// Service выдаёт действующий токен, при необходимости обновляя его.
// Токены не кэшируются в памяти: единственный источник - хранилище.
type Service struct {
	repo storage.OAuthTokenRepository
	cfg  config.LinearConfig
	now  func() time.Time
}

// NewService создаёт новый Service.
func NewService(repo storage.OAuthTokenRepository, cfg config.LinearConfig) *Service {
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

// GetValidToken возвращает действующий access token для workspace.
func (s *Service) GetValidToken(ctx context.Context, workspaceID string) (string, *apperrors.AppError) {
	token, appErr := s.repo.Get(ctx, workspaceID)
	if appErr != nil {
		return "", appErr
	}

	if token.ExpiresAt.After(s.now().Add(RefreshBuffer)) {
		return token.AccessToken, nil
	}

	refreshed, appErr := s.refresh(ctx, token)
	if appErr != nil {
		return "", appErr
	}

	return refreshed.AccessToken, nil
}

func (s *Service) refresh(ctx context.Context, token storage.OAuthToken) (storage.OAuthToken, *apperrors.AppError) {
	conf := &oauth2.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: s.cfg.TokenURL},
	}

	src := conf.TokenSource(ctx, &oauth2.Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.ExpiresAt,
	})

	fresh, err := src.Token()
	if err != nil {
		log.Printf("refreshing token for workspace %s failed: %v", token.WorkspaceID, err)
		return storage.OAuthToken{}, apperrors.New(apperrors.ErrExternalAPI)
	}

	updated := storage.OAuthToken{
		WorkspaceID:  token.WorkspaceID,
		AccessToken:  fresh.AccessToken,
		RefreshToken: fresh.RefreshToken,
		ExpiresAt:    fresh.Expiry,
	}
	if updated.RefreshToken == "" {
		updated.RefreshToken = token.RefreshToken
	}

	if appErr := s.repo.Upsert(ctx, updated); appErr != nil {
		return storage.OAuthToken{}, appErr
	}

	return updated, nil
}
