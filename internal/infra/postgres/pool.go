// Package postgres предоставляет подключение к PostgreSQL через pgxpool
// и применение схемы при старте.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Настройки pool под профиль нагрузки сервиса: короткие всплески
// одновременных вебхуков, между ними длительные паузы.
const (
	// PoolMaxConns - потолок соединений; всплеск доставок редко шире десятка.
	PoolMaxConns = int32(10)
	// PoolMinConns - тёплые соединения, чтобы первая доставка не ждала dial.
	PoolMinConns = int32(2)
	// PoolMaxConnLifetime - максимальное время жизни соединения.
	PoolMaxConnLifetime = time.Hour
	// PoolMaxConnIdleTime - простой, после которого лишнее соединение закрывается.
	PoolMaxConnIdleTime = 10 * time.Minute
	// PoolHealthCheckPeriod - периодичность проверки соединений.
	PoolHealthCheckPeriod = 30 * time.Second
)

// NewPool создаёт pool соединений к PostgreSQL и проверяет его ping-ом.
func NewPool(ctx context.Context, port int, host, user, password, dbName, sslmode string) (*pgxpool.Pool, error) {
	conf := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", user, password, host, port, dbName, sslmode)

	cfg, err := pgxpool.ParseConfig(conf)
	if err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}

	cfg.MaxConns = PoolMaxConns
	cfg.MinConns = PoolMinConns
	cfg.MaxConnLifetime = PoolMaxConnLifetime
	cfg.MaxConnIdleTime = PoolMaxConnIdleTime
	cfg.HealthCheckPeriod = PoolHealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool failed: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pool ping failed: %w", err)
	}

	return pool, nil
}

// Connect создаёт pool и применяет схему. Сервис самодостаточен:
// отдельного шага миграции при деплое нет.
func Connect(ctx context.Context, port int, host, user, password, dbName, sslmode string) (*pgxpool.Pool, error) {
	pool, err := NewPool(ctx, port, host, user, password, dbName, sslmode)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
