package postgres

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
	"github.com/bogdankharchenko/linear-agent/internal/storage"
)

// ProcessedEventRepository - журнал обработанных событий в Postgres.
type ProcessedEventRepository struct {
	pool *pgxpool.Pool
}

// NewProcessedEventRepository создаёт экземпляр *ProcessedEventRepository.
func NewProcessedEventRepository(pool *pgxpool.Pool) *ProcessedEventRepository {
	return &ProcessedEventRepository{pool: pool}
}

// IsProcessed проверяет, было ли событие уже обработано.
func (r *ProcessedEventRepository) IsProcessed(ctx context.Context, eventID string, source storage.EventSource) (bool, *apperrors.AppError) {
	const query = `SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1 AND source = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, eventID, source).Scan(&exists); err != nil {
		log.Printf("query processed event failed: %v", err)
		return false, apperrors.New(apperrors.ErrInternalIssue)
	}

	return exists, nil
}

// MarkProcessed отмечает событие обработанным. Повторная отметка - no-op:
// конкурентные доставки одного события разводятся атомарной вставкой.
func (r *ProcessedEventRepository) MarkProcessed(ctx context.Context, eventID string, source storage.EventSource) *apperrors.AppError {
	const query = `
		INSERT INTO processed_events (event_id, source, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (event_id, source) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, eventID, source); err != nil {
		log.Printf("mark processed failed: %v", err)
		return apperrors.New(apperrors.ErrInternalIssue)
	}

	return nil
}
