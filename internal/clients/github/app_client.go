package github

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gh "github.com/google/go-github/v58/github"

	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
)

// AppClient выполняет вызовы GitHub API от имени самого App (JWT),
// без привязки к конкретной установке.
type AppClient struct {
	gh *gh.Client
}

// NewAppClient создаёт клиент уровня приложения.
func NewAppClient(appID int64, privateKeyPath string) (*AppClient, *apperrors.AppError) {
	tr, err := ghinstallation.NewAppsTransportKeyFromFile(http.DefaultTransport, appID, privateKeyPath)
	if err != nil {
		log.Printf("creating apps transport failed: %v", err)
		return nil, apperrors.New(apperrors.ErrInternalIssue)
	}

	return &AppClient{gh: gh.NewClient(&http.Client{Transport: tr})}, nil
}

// InstallationInfo - сведения об установке App.
type InstallationInfo struct {
	ID           int64
	AccountLogin string
	AccountType  string
}

// CheckInstallation возвращает установку App на репозитории.
// Отсутствие установки - не ошибка: возвращается ok=false.
func (a *AppClient) CheckInstallation(ctx context.Context, owner, repo string) (InstallationInfo, bool, *apperrors.AppError) {
	inst, _, err := a.gh.Apps.FindRepositoryInstallation(ctx, owner, repo)
	if err != nil {
		var ghErr *gh.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
			return InstallationInfo{}, false, nil
		}
		log.Printf("find repository installation failed: %v", err)
		return InstallationInfo{}, false, apperrors.New(apperrors.ErrExternalAPI)
	}

	return InstallationInfo{
		ID:           inst.GetID(),
		AccountLogin: inst.GetAccount().GetLogin(),
		AccountType:  inst.GetAccount().GetType(),
	}, true, nil
}
