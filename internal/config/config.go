// Package config загружает конфигурацию приложения из переменных окружения.
package config

import (
	"log"
	"os"
	"strconv"
)

// DBSSLmode определяет режим SSL-подключения к PostgreSQL.
type DBSSLmode string

const (
	// SSLDisable - SSL-шифрование отключено.
	SSLDisable DBSSLmode = "disable"
	// SSLRequire - SSL обязателен, но сертификат сервера не проверяется.
	SSLRequire DBSSLmode = "require"
	// SSLVerifyFull - SSL обязателен, сертификат сервера проверяется.
	SSLVerifyFull DBSSLmode = "verify-full"
)

// ServerConfig - конфигурация HTTP-сервера.
type ServerConfig struct {
	Addr string
}

// LoadServer загружает конфигурацию сервера из окружения.
func LoadServer() ServerConfig {
	return ServerConfig{
		Addr: getEnv("SERVER_ADDR", ":8080"),
	}
}

// WebhookConfig - секреты для проверки подписей входящих вебхуков.
type WebhookConfig struct {
	LinearSecret string
	GitHubSecret string
}

// LoadWebhook загружает секреты вебхуков из окружения.
func LoadWebhook() WebhookConfig {
	return WebhookConfig{
		LinearSecret: mustEnv("LINEAR_WEBHOOK_SECRET"),
		GitHubSecret: mustEnv("GITHUB_WEBHOOK_SECRET"),
	}
}

// GitHubAppConfig - параметры GitHub App, от имени которого выполняются вызовы.
type GitHubAppConfig struct {
	AppID          int64
	PrivateKeyPath string
	WorkflowFile   string
}

// LoadGitHubApp загружает конфигурацию GitHub App из окружения.
func LoadGitHubApp() GitHubAppConfig {
	appID, err := strconv.ParseInt(mustEnv("GITHUB_APP_ID"), 10, 64)
	if err != nil {
		log.Fatalf("invalid GITHUB_APP_ID %v", err)
	}

	return GitHubAppConfig{
		AppID:          appID,
		PrivateKeyPath: mustEnv("GITHUB_APP_PRIVATE_KEY_PATH"),
		WorkflowFile:   getEnv("GITHUB_WORKFLOW_FILE", "agent.yml"),
	}
}

// LinearConfig - параметры доступа к API Linear.
type LinearConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// LoadLinear загружает конфигурацию Linear из окружения.
func LoadLinear() LinearConfig {
	return LinearConfig{
		BaseURL:      getEnv("LINEAR_API_URL", "https://api.linear.app"),
		ClientID:     mustEnv("LINEAR_CLIENT_ID"),
		ClientSecret: mustEnv("LINEAR_CLIENT_SECRET"),
		TokenURL:     getEnv("LINEAR_TOKEN_URL", "https://api.linear.app/oauth/token"),
	}
}

// IsValid возвращает true, если значение является допустимым режимом SSL.
func (m DBSSLmode) IsValid() bool {
	switch m {
	case SSLDisable, SSLRequire, SSLVerifyFull:
		return true
	default:
		return false
	}
}

// DBConfig - набор параметров для подключения к базе данных.
type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	SSLmode  DBSSLmode
	Port     int
}

// LoadDB загружает конфигурацию бд из окружения и возвращает DBConfig.
func LoadDB() DBConfig {
	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		log.Fatalf("invalid DB_PORT %v", err)
	}

	rmode := getEnv("DB_SSLMODE", string(SSLDisable))
	mode := DBSSLmode(rmode)
	if !mode.IsValid() {
		log.Printf("warning: invalid DB_SSLMODE=%q; using default %q", rmode, SSLDisable)
		mode = SSLDisable
	}

	return DBConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     port,
		User:     getEnv("DB_USER", "agent"),
		Password: getEnv("DB_PASSWORD", "agent"),
		Name:     getEnv("DB_NAME", "agent"),
		SSLmode:  mode,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("required environment variable %s is not set", key)
	}
	return v
}
