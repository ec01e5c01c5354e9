package repository

import (
	"context"
	"fmt"

	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// IngestionLogRepository is the append-only audit trail. Records are
// never updated after insert.
type IngestionLogRepository interface {
	Insert(ctx context.Context, entry *models.IngestionLog) error
	GetRecent(ctx context.Context, limit int) ([]*models.IngestionLog, error)
}

type ingestionLogRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewIngestionLogRepository(db *sqlx.DB, logger *zap.Logger) IngestionLogRepository {
	return &ingestionLogRepository{db: db, logger: logger}
}

func (r *ingestionLogRepository) Insert(ctx context.Context, entry *models.IngestionLog) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO ingestion_logs (event_date, main_event_year, status, impact_score, error_message)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := tx.QueryRowxContext(ctx, query, entry.EventDate, entry.MainEventYear, entry.Status,
		entry.ImpactScore, entry.ErrorMessage).Scan(&entry.ID); err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit record: %w", err)
	}

	r.logger.Info("Audit record written",
		zap.Int64("id", entry.ID),
		zap.String("status", entry.Status))
	return nil
}

func (r *ingestionLogRepository) GetRecent(ctx context.Context, limit int) ([]*models.IngestionLog, error) {
	var entries []*models.IngestionLog
	query := `SELECT id, event_date, main_event_year, status, impact_score, error_message
	          FROM ingestion_logs ORDER BY event_date DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to load audit records: %w", err)
	}
	return entries, nil
}
