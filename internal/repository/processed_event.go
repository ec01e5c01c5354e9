package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ProcessedEventRepository archives delivered main-event content.
// Append-only, written regardless of delivery success.
type ProcessedEventRepository interface {
	Insert(ctx context.Context, payload *models.DailyPayload) error
	GetLatest(ctx context.Context) (*models.ProcessedEvent, error)
	GetRecent(ctx context.Context, limit int) ([]*models.ProcessedEvent, error)
}

type processedEventRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewProcessedEventRepository(db *sqlx.DB, logger *zap.Logger) ProcessedEventRepository {
	return &processedEventRepository{db: db, logger: logger}
}

func (r *processedEventRepository) Insert(ctx context.Context, payload *models.DailyPayload) error {
	main := payload.MainEvent

	titles, err := json.Marshal(main.TitleTranslations)
	if err != nil {
		return fmt.Errorf("failed to marshal titles: %w", err)
	}
	narrative, err := json.Marshal(main.NarrativeTranslations)
	if err != nil {
		return fmt.Errorf("failed to marshal narrative: %w", err)
	}

	var imageURL *string
	if len(main.Gallery) > 0 {
		imageURL = &main.Gallery[0]
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO processed_events (event_date, year, titles, narrative, image_url, impact_score, source_url)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, query, payload.DateProcessed, main.Year, titles, narrative,
		imageURL, main.ImpactScore, main.SourceURL); err != nil {
		return fmt.Errorf("failed to archive event content: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive: %w", err)
	}

	r.logger.Info("Main event content archived",
		zap.Int("year", main.Year),
		zap.Float64("impact_score", main.ImpactScore))
	return nil
}

func (r *processedEventRepository) GetLatest(ctx context.Context) (*models.ProcessedEvent, error) {
	var ev models.ProcessedEvent
	query := `SELECT id, event_date, year, titles, narrative, image_url, impact_score, source_url
	          FROM processed_events ORDER BY event_date DESC, id DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &ev, query); err != nil {
		return nil, fmt.Errorf("failed to load latest event: %w", err)
	}
	return &ev, nil
}

func (r *processedEventRepository) GetRecent(ctx context.Context, limit int) ([]*models.ProcessedEvent, error) {
	var events []*models.ProcessedEvent
	query := `SELECT id, event_date, year, titles, narrative, image_url, impact_score, source_url
	          FROM processed_events ORDER BY event_date DESC, id DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, fmt.Errorf("failed to load recent events: %w", err)
	}
	return events, nil
}
