// Package main - точка входа в приложение.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bogdankharchenko/linear-agent/internal/api/handlers"
	"github.com/bogdankharchenko/linear-agent/internal/api/router"
	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
	githubclient "github.com/bogdankharchenko/linear-agent/internal/clients/github"
	"github.com/bogdankharchenko/linear-agent/internal/clients/linear"
	"github.com/bogdankharchenko/linear-agent/internal/config"
	"github.com/bogdankharchenko/linear-agent/internal/infra/postgres"
	"github.com/bogdankharchenko/linear-agent/internal/service"
	postgresRepo "github.com/bogdankharchenko/linear-agent/internal/storage/postgres"
	"github.com/bogdankharchenko/linear-agent/internal/tokens"
)

func main() {
	ctx := context.Background()

	dbCfg := config.LoadDB()
	log.Printf("starting server with DB config: host=%s port=%d dbname=%s sslmode=%s",
		dbCfg.Host, dbCfg.Port, dbCfg.Name, dbCfg.SSLmode)

	pool, err := postgres.Connect(
		ctx,
		dbCfg.Port,
		dbCfg.Host,
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Name,
		string(dbCfg.SSLmode),
	)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}
	log.Println("database connection pool created, schema applied")

	webhookCfg := config.LoadWebhook()
	linearCfg := config.LoadLinear()
	appCfg := config.LoadGitHubApp()

	teamRepo := postgresRepo.NewTeamConfigRepository(pool)
	pendingRepo := postgresRepo.NewPendingConfigRepository(pool)
	triggerRepo := postgresRepo.NewTriggerRepository(pool)
	runRepo := postgresRepo.NewWorkflowRunRepository(pool)
	runLogRepo := postgresRepo.NewRunLogRepository(pool)
	installRepo := postgresRepo.NewInstallationRepository(pool)
	tokenRepo := postgresRepo.NewOAuthTokenRepository(pool)

	tokenService := tokens.NewService(tokenRepo, linearCfg)

	appClient, appErr := githubclient.NewAppClient(appCfg.AppID, appCfg.PrivateKeyPath)
	if appErr != nil {
		log.Fatalf("failed to create GitHub app client: %v", appErr)
	}

	newTicket := func(token string) service.TicketClient {
		return linear.NewClient(linearCfg.BaseURL, token)
	}
	newCI := func(installationID int64) (service.CIClient, *apperrors.AppError) {
		return githubclient.NewInstallationClient(appCfg.AppID, appCfg.PrivateKeyPath, installationID)
	}

	orch := service.NewOrchestrator(
		service.Repos{
			Teams:          teamRepo,
			PendingConfigs: pendingRepo,
			Triggers:       triggerRepo,
			Runs:           runRepo,
			RunLogs:        runLogRepo,
			Installations:  installRepo,
		},
		tokenService,
		newTicket,
		newCI,
		appClient,
		service.KeywordClassifier{},
		appCfg.WorkflowFile,
	)

	processor := service.NewEventProcessor(
		postgresRepo.NewProcessedEventRepository(pool),
		runLogRepo,
		installRepo,
		orch,
	)

	webhookHandler := handlers.NewWebhookHandler(processor, webhookCfg)
	handler := router.NewRouter(webhookHandler)

	serverCfg := config.LoadServer()
	srv := &http.Server{
		Addr:         serverCfg.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting HTTP server on %s", serverCfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	<-quit
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		cancel()
		pool.Close()
		log.Fatalf("server forced to shutdown: %v", err)
	}

	cancel()
	pool.Close()
	log.Println("server exited gracefully")
}
