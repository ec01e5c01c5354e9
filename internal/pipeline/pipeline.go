// Package pipeline drives the daily run as a strict linear state
// machine: fetch, rank, score, hydrate media, assemble, archive,
// deliver, audit. Every stage failure is converted into a tagged
// result rather than propagating, and exactly one audit record is
// written per run no matter where the run stops.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/assembler"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/delivery"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/groq"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/models"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/ranker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Run status taxonomy. JAVA_DELIVERY_ERROR keeps its historical name:
// the downstream consumer is the Java backend.
const (
	StatusSuccess           = "SUCCESS"
	StatusSuccessUploaded   = "SUCCESS_UPLOADED"
	StatusPartialSuccess    = "PARTIAL_SUCCESS"
	StatusError             = "ERROR"
	StatusInitError         = "INIT_ERROR"
	StatusScraperError      = "SCRAPER_ERROR"
	StatusAIScoringError    = "AI_SCORING_ERROR"
	StatusMediaContentError = "MEDIA_CONTENT_ERROR"
	StatusDeliveryError     = "JAVA_DELIVERY_ERROR"
)

const maxErrorMessageLen = 500

const maxSecondaryEvents = 5

// FeedClient delivers the day's raw candidates.
type FeedClient interface {
	FetchOnThisDay(ctx context.Context, month, day int) ([]models.RawCandidate, error)
}

// AIClient is the scoring/translation and narrative collaborator.
type AIClient interface {
	BatchScoreAndTranslate(ctx context.Context, candidates []models.ScoredCandidate) (groq.BatchResult, error)
	GenerateNarrative(ctx context.Context, text string, year int) (groq.MainContent, error)
}

// Enricher hydrates the winning candidates with hosted media.
type Enricher interface {
	HydrateMain(ctx context.Context, cand models.ScoredCandidate) []string
	HydrateSecondaries(ctx context.Context, cands []models.ScoredCandidate) []*string
}

// DeliveryClient posts the payload downstream.
type DeliveryClient interface {
	Send(ctx context.Context, payload *models.DailyPayload) (delivery.Result, error)
}

// AuditLog receives the run's single audit record.
type AuditLog interface {
	Insert(ctx context.Context, entry *models.IngestionLog) error
}

// Archive stores the delivered content copy.
type Archive interface {
	Insert(ctx context.Context, payload *models.DailyPayload) error
}

// Config carries the orchestration knobs.
type Config struct {
	APISecret       string
	MaxCandidates   int
	DeliveryEnabled bool
}

// Pipeline is the top-level orchestrator. All collaborators enter as
// interfaces so the state machine can be exercised against fakes.
type Pipeline struct {
	cfg      Config
	feed     FeedClient
	ai       AIClient
	enricher Enricher
	delivery DeliveryClient
	audit    AuditLog
	archive  Archive
	logger   *zap.Logger
	now      func() time.Time
}

// runState tracks the winning year/score as soon as ranking completes,
// so a later failure still audits what was known.
type runState struct {
	year  *int
	score *float64
}

// NewPipeline creates a new pipeline orchestrator.
func NewPipeline(
	cfg Config,
	feed FeedClient,
	ai AIClient,
	enricher Enricher,
	deliveryClient DeliveryClient,
	audit AuditLog,
	archive Archive,
	logger *zap.Logger,
) *Pipeline {
	if cfg.MaxCandidates == 0 {
		cfg.MaxCandidates = 50
	}
	return &Pipeline{
		cfg:      cfg,
		feed:     feed,
		ai:       ai,
		enricher: enricher,
		delivery: deliveryClient,
		audit:    audit,
		archive:  archive,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes one full pipeline run and returns the audit record that
// was written for it. Exactly one record is written per run, on every
// exit path.
func (p *Pipeline) Run(ctx context.Context) models.IngestionLog {
	runID := uuid.New().String()
	logger := p.logger.With(zap.String("run_id", runID))
	logger.Info("Pipeline run starting")

	state := &runState{}
	status, runErr := p.execute(ctx, runID, state, logger)

	entry := models.IngestionLog{
		EventDate:     p.now(),
		MainEventYear: state.year,
		Status:        status,
		ImpactScore:   state.score,
	}
	if runErr != nil {
		msg := TruncateMessage(runErr.Error())
		entry.ErrorMessage = &msg
		logger.Error("Pipeline run failed", zap.String("status", status), zap.Error(runErr))
	} else {
		logger.Info("Pipeline run finished", zap.String("status", status))
	}

	if err := p.audit.Insert(ctx, &entry); err != nil {
		// The audit trail is best-effort at this point: the run outcome
		// is already decided and must still be reported to the caller.
		logger.Error("Failed to write audit record", zap.Error(err))
	}

	return entry
}

// execute walks the stage sequence. Each stage either yields its value
// or a tagged status and error that aborts all later stages. The
// deferred recover is the run-level catch-all: it turns a panic into a
// plain ERROR outcome so the audit record still gets written.
func (p *Pipeline) execute(ctx context.Context, runID string, state *runState, logger *zap.Logger) (status string, err error) {
	defer func() {
		if r := recover(); r != nil {
			status = StatusError
			err = fmt.Errorf("unexpected pipeline failure: %v", r)
		}
	}()

	// FETCH
	now := p.now()
	raw, fetchErr := p.feed.FetchOnThisDay(ctx, int(now.Month()), now.Day())
	if fetchErr != nil {
		return StatusScraperError, fmt.Errorf("feed fetch failed: %w", fetchErr)
	}
	if len(raw) == 0 {
		return StatusScraperError, errors.New("feed returned no events for today")
	}
	logger.Info("Stage FETCH complete", zap.Int("raw_candidates", len(raw)))

	// RANK_HEURISTIC
	cands := ranker.PreSelect(raw, p.cfg.MaxCandidates)
	logger.Info("Stage RANK_HEURISTIC complete",
		zap.Int("candidates", len(cands)),
		zap.Float64("top_heuristic", cands[0].HeuristicScore))

	// AI_SCORE
	batch, aiErr := p.ai.BatchScoreAndTranslate(ctx, cands)
	if aiErr != nil {
		return StatusAIScoringError, fmt.Errorf("batch scoring failed: %w", aiErr)
	}
	cands = ranker.Finalize(cands, batch)

	winner := cands[0]
	state.year = &winner.Year
	state.score = &winner.FinalScore
	logger.Info("Stage AI_SCORE complete",
		zap.Int("winning_year", winner.Year),
		zap.Float64("winning_score", winner.FinalScore))

	// MEDIA
	content, narrErr := p.ai.GenerateNarrative(ctx, winner.Text, winner.Year)
	if narrErr != nil {
		return StatusMediaContentError, fmt.Errorf("narrative generation failed: %w", narrErr)
	}

	gallery := p.enricher.HydrateMain(ctx, winner)

	runnerUps := cands[1:]
	if len(runnerUps) > maxSecondaryEvents {
		runnerUps = runnerUps[:maxSecondaryEvents]
	}
	thumbs := p.enricher.HydrateSecondaries(ctx, runnerUps)
	logger.Info("Stage MEDIA complete",
		zap.Int("gallery_size", len(gallery)),
		zap.Int("secondary_events", len(runnerUps)))

	// ASSEMBLE
	payload := assembler.Assemble(assembler.Input{
		Winner:    winner,
		Content:   content,
		Gallery:   gallery,
		RunnerUps: runnerUps,
		Thumbs:    thumbs,
		APISecret: p.cfg.APISecret,
		RunID:     runID,
		Now:       p.now(),
	})
	logger.Info("Stage ASSEMBLE complete")

	// ARCHIVE
	if archErr := p.archive.Insert(ctx, &payload); archErr != nil {
		return StatusError, fmt.Errorf("archival failed: %w", archErr)
	}
	logger.Info("Stage ARCHIVE complete")

	// DELIVER
	if !p.cfg.DeliveryEnabled {
		logger.Info("Stage DELIVER skipped: delivery disabled")
		return StatusSuccess, nil
	}

	result, delErr := p.delivery.Send(ctx, &payload)
	if delErr != nil {
		return StatusDeliveryError, fmt.Errorf("delivery failed: %w", delErr)
	}
	if result == delivery.Partial {
		return StatusPartialSuccess, nil
	}
	logger.Info("Stage DELIVER complete")

	return StatusSuccessUploaded, nil
}

// TruncateMessage caps an error message at 500 characters for the
// audit record. Truncation counts runes, not bytes: the column is
// character-sized and Postgres rejects text cut mid-rune.
func TruncateMessage(s string) string {
	runes := []rune(s)
	if len(runes) <= maxErrorMessageLen {
		return s
	}
	return string(runes[:maxErrorMessageLen])
}
