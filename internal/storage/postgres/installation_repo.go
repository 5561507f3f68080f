package postgres

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
	"github.com/bogdankharchenko/linear-agent/internal/storage"
)

// InstallationRepository - репозиторий установок GitHub App в Postgres.
type InstallationRepository struct {
	pool *pgxpool.Pool
}

// NewInstallationRepository создаёт экземпляр *InstallationRepository.
func NewInstallationRepository(pool *pgxpool.Pool) *InstallationRepository {
	return &InstallationRepository{pool: pool}
}

// Upsert создаёт или обновляет запись установки.
func (r *InstallationRepository) Upsert(ctx context.Context, inst storage.Installation) *apperrors.AppError {
	const query = `
		INSERT INTO installations (installation_id, account_login, account_type, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (installation_id) DO UPDATE SET
			account_login = EXCLUDED.account_login,
			account_type = EXCLUDED.account_type,
			updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, inst.InstallationID, inst.AccountLogin, inst.AccountType); err != nil {
		log.Printf("upsert installation failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	return nil
}

// Delete удаляет запись установки.
func (r *InstallationRepository) Delete(ctx context.Context, installationID int64) *apperrors.AppError {
	const query = `DELETE FROM installations WHERE installation_id = $1`

	if _, err := r.pool.Exec(ctx, query, installationID); err != nil {
		log.Printf("delete installation failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	return nil
}

// GetByLogin возвращает установку по логину аккаунта.
func (r *InstallationRepository) GetByLogin(ctx context.Context, accountLogin string) (storage.Installation, *apperrors.AppError) {
	const query = `
		SELECT installation_id, account_login, account_type, created_at, updated_at
		FROM installations WHERE account_login = $1
	`

	var inst storage.Installation
	err := r.pool.QueryRow(ctx, query, accountLogin).Scan(
		&inst.InstallationID, &inst.AccountLogin, &inst.AccountType, &inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inst, apperrors.New(apperrors.ErrNotFound)
		}
		log.Printf("query installation failed: %v", err)
		return inst, apperrors.New(apperrors.ErrInternalIssue)
	}

	return inst, nil
}
