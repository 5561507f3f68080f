package postgres

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
	"github.com/bogdankharchenko/linear-agent/internal/storage"
)

// RunLogRepository - append-only журнал аудита в Postgres.
type RunLogRepository struct {
	pool *pgxpool.Pool
}

// NewRunLogRepository создаёт экземпляр *RunLogRepository.
func NewRunLogRepository(pool *pgxpool.Pool) *RunLogRepository {
	return &RunLogRepository{pool: pool}
}

// Append добавляет запись в журнал.
func (r *RunLogRepository) Append(ctx context.Context, entry storage.RunLogEntry) *apperrors.AppError {
	const query = `
		INSERT INTO run_logs (id, run_id, session_id, kind, message, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	if _, err := r.pool.Exec(ctx, query, entry.ID, entry.RunID, entry.SessionID, entry.Kind, entry.Message); err != nil {
		log.Printf("append run log failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	return nil
}

// ListBySession возвращает записи журнала по сессии в порядке добавления.
func (r *RunLogRepository) ListBySession(ctx context.Context, sessionID string) ([]storage.RunLogEntry, *apperrors.AppError) {
	const query = `
		SELECT id, run_id, session_id, kind, message, created_at
		FROM run_logs WHERE session_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		log.Printf("query run logs failed: %v", err)
		return nil, apperrors.New(apperrors.ErrInternalIssue)
	}

	defer rows.Close()

	var entries []storage.RunLogEntry
	for rows.Next() {
		var e storage.RunLogEntry
		if err := rows.Scan(&e.ID, &e.RunID, &e.SessionID, &e.Kind, &e.Message, &e.CreatedAt); err != nil {
			log.Printf("scan run log failed: %v", err)
			return nil, apperrors.New(apperrors.ErrInternalIssue)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		log.Printf("%v", err)
		return nil, apperrors.New(apperrors.ErrInternalIssue)
	}

	return entries, nil
}
