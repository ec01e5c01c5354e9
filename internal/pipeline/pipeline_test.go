package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/delivery"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/groq"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/models"

	"go.uber.org/zap"
)

type fakeFeed struct {
	candidates []models.RawCandidate
	err        error
}

func (f *fakeFeed) FetchOnThisDay(context.Context, int, int) ([]models.RawCandidate, error) {
	return f.candidates, f.err
}

type fakeAI struct {
	batch        groq.BatchResult
	batchErr     error
	content      groq.MainContent
	narrativeErr error
	panicOnBatch bool
}

func (f *fakeAI) BatchScoreAndTranslate(_ context.Context, cands []models.ScoredCandidate) (groq.BatchResult, error) {
	if f.panicOnBatch {
		panic("scoring client broke an invariant")
	}
	return f.batch, f.batchErr
}

func (f *fakeAI) GenerateNarrative(context.Context, string, int) (groq.MainContent, error) {
	return f.content, f.narrativeErr
}

type fakeEnricher struct{}

func (fakeEnricher) HydrateMain(context.Context, models.ScoredCandidate) []string {
	return []string{"https://hosted.example/main.jpg"}
}

func (fakeEnricher) HydrateSecondaries(_ context.Context, cands []models.ScoredCandidate) []*string {
	return make([]*string, len(cands))
}

type fakeDelivery struct {
	result delivery.Result
	err    error
	calls  int
}

func (f *fakeDelivery) Send(context.Context, *models.DailyPayload) (delivery.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeAudit struct {
	entries []models.IngestionLog
	err     error
}

func (f *fakeAudit) Insert(_ context.Context, entry *models.IngestionLog) error {
	f.entries = append(f.entries, *entry)
	return f.err
}

type fakeArchive struct {
	payloads []models.DailyPayload
	err      error
}

func (f *fakeArchive) Insert(_ context.Context, payload *models.DailyPayload) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, *payload)
	return nil
}

func batchOf(scores map[int]float64) groq.BatchResult {
	results := make(map[string]groq.ScoreResult)
	for idx, s := range scores {
		score := s
		results[fmt.Sprintf("ID_%d", idx)] = groq.ScoreResult{
			Score:  &score,
			Titles: models.Translations{En: "title"},
		}
	}
	return groq.BatchResult{Results: results}
}

func rawCandidate(text string, year int, slug string) models.RawCandidate {
	c := models.RawCandidate{Text: text, Year: year}
	if slug != "" {
		c.Pages = []models.Page{{CanonicalSlug: slug}}
	}
	return c
}

// feedFixture produces three page-less candidates with heuristic
// scores 90, 70 and 95 in feed order.
func feedFixture() []models.RawCandidate {
	return []models.RawCandidate{
		rawCandidate("war founded a new order", 1945, ""),                     // 10+50+30 = 90
		rawCandidate("the assassinated archduke died of his wounds", 1914, ""), // 10+45+15 = 70
		rawCandidate("independence declared after a long struggle", 1776, ""),  // 10+45+40 = 95
	}
}

type fixture struct {
	feed     *fakeFeed
	ai       *fakeAI
	delivery *fakeDelivery
	audit    *fakeAudit
	archive  *fakeArchive
	pipeline *Pipeline
}

func newFixture(cfg Config) *fixture {
	f := &fixture{
		feed: &fakeFeed{candidates: feedFixture()},
		ai: &fakeAI{
			// Batch indices address the pre-selected order: 95, 90, 70.
			batch:   batchOf(map[int]float64{0: 60, 1: 80, 2: 50}),
			content: groq.MainContent{Titles: models.Translations{En: "t"}, Narratives: models.Translations{En: "n"}},
		},
		delivery: &fakeDelivery{result: delivery.Delivered},
		audit:    &fakeAudit{},
		archive:  &fakeArchive{},
	}
	f.pipeline = NewPipeline(cfg, f.feed, f.ai, fakeEnricher{}, f.delivery, f.audit, f.archive, zap.NewNop())
	f.pipeline.now = func() time.Time { return time.Date(2026, 8, 26, 6, 0, 0, 0, time.UTC) }
	return f
}

func TestRunArchivalOnlySuccess(t *testing.T) {
	f := newFixture(Config{APISecret: "s3cret"})

	entry := f.pipeline.Run(context.Background())

	if entry.Status != StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", entry.Status)
	}
	// Blends: 1945 -> 0.4*90+0.6*80 = 84 wins over 1776 -> 74 and 1914 -> 58.
	if entry.MainEventYear == nil || *entry.MainEventYear != 1945 {
		t.Fatalf("expected winning year 1945, got %v", entry.MainEventYear)
	}
	if entry.ImpactScore == nil || *entry.ImpactScore != 84.00 {
		t.Fatalf("expected winning score 84.00, got %v", entry.ImpactScore)
	}
	if entry.ErrorMessage != nil {
		t.Fatalf("successful run must have no error message, got %q", *entry.ErrorMessage)
	}

	if len(f.archive.payloads) != 1 {
		t.Fatalf("expected exactly one archived payload, got %d", len(f.archive.payloads))
	}
	payload := f.archive.payloads[0]
	if payload.MainEvent.Year != 1945 || payload.MainEvent.ImpactScore != 84.00 {
		t.Fatalf("unexpected main event %+v", payload.MainEvent)
	}
	if len(payload.SecondaryEvents) != 2 {
		t.Fatalf("expected 2 secondary events, got %d", len(payload.SecondaryEvents))
	}
	if payload.SecondaryEvents[0].Year != 1776 || payload.SecondaryEvents[1].Year != 1914 {
		t.Fatalf("secondary events out of order: %+v", payload.SecondaryEvents)
	}
	if payload.APISecret != "s3cret" {
		t.Fatalf("payload must carry the delivery credential")
	}

	if f.delivery.calls != 0 {
		t.Fatal("delivery must not run when disabled")
	}
	if len(f.audit.entries) != 1 {
		t.Fatalf("expected exactly one audit record, got %d", len(f.audit.entries))
	}
}

func TestRunCapsSecondaryEvents(t *testing.T) {
	f := newFixture(Config{})
	for i := 0; i < 10; i++ {
		f.feed.candidates = append(f.feed.candidates,
			rawCandidate("an uneventful day", 1800+i, ""))
	}

	f.pipeline.Run(context.Background())

	if got := len(f.archive.payloads[0].SecondaryEvents); got != 5 {
		t.Fatalf("expected at most 5 secondary events, got %d", got)
	}
}

func TestRunEmptyFeedIsScraperError(t *testing.T) {
	f := newFixture(Config{})
	f.feed.candidates = nil

	entry := f.pipeline.Run(context.Background())

	if entry.Status != StatusScraperError {
		t.Fatalf("expected SCRAPER_ERROR, got %s", entry.Status)
	}
	if entry.MainEventYear != nil || entry.ImpactScore != nil {
		t.Fatal("failure before ranking must leave year and score unset")
	}
	if len(f.archive.payloads) != 0 {
		t.Fatal("no payload may be built for an empty feed")
	}
	if len(f.audit.entries) != 1 {
		t.Fatalf("expected exactly one audit record, got %d", len(f.audit.entries))
	}
}

func TestRunFeedFailureIsScraperError(t *testing.T) {
	f := newFixture(Config{})
	f.feed.err = errors.New("connection refused")

	entry := f.pipeline.Run(context.Background())
	if entry.Status != StatusScraperError {
		t.Fatalf("expected SCRAPER_ERROR, got %s", entry.Status)
	}
}

func TestRunScoringFailureIsAIScoringError(t *testing.T) {
	f := newFixture(Config{})
	f.ai.batchErr = errors.New("model overloaded")

	entry := f.pipeline.Run(context.Background())

	if entry.Status != StatusAIScoringError {
		t.Fatalf("expected AI_SCORING_ERROR, got %s", entry.Status)
	}
	if entry.MainEventYear != nil {
		t.Fatal("scoring failure precedes ranking, year must stay unset")
	}
}

func TestRunNarrativeFailureIsMediaContentError(t *testing.T) {
	f := newFixture(Config{})
	f.ai.narrativeErr = errors.New("generation refused")

	entry := f.pipeline.Run(context.Background())

	if entry.Status != StatusMediaContentError {
		t.Fatalf("expected MEDIA_CONTENT_ERROR, got %s", entry.Status)
	}
	// Ranking completed, so the audit record carries the winner anyway.
	if entry.MainEventYear == nil || *entry.MainEventYear != 1945 {
		t.Fatalf("expected known winning year on late failure, got %v", entry.MainEventYear)
	}
}

func TestRunDeliveryStatuses(t *testing.T) {
	cases := []struct {
		name   string
		result delivery.Result
		err    error
		want   string
	}{
		{"delivered", delivery.Delivered, nil, StatusSuccessUploaded},
		{"partial", delivery.Partial, nil, StatusPartialSuccess},
		{"exhausted", delivery.Partial, errors.New("delivery failed after 3 attempts"), StatusDeliveryError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(Config{DeliveryEnabled: true})
			f.delivery.result = c.result
			f.delivery.err = c.err

			entry := f.pipeline.Run(context.Background())
			if entry.Status != c.want {
				t.Fatalf("expected %s, got %s", c.want, entry.Status)
			}
			// Archival happens before delivery, so the content survives
			// even a failed handoff.
			if len(f.archive.payloads) != 1 {
				t.Fatalf("expected archived payload regardless of delivery, got %d", len(f.archive.payloads))
			}
		})
	}
}

func TestRunPanicBecomesErrorRecord(t *testing.T) {
	f := newFixture(Config{})
	f.ai.panicOnBatch = true

	entry := f.pipeline.Run(context.Background())

	if entry.Status != StatusError {
		t.Fatalf("expected ERROR for panic, got %s", entry.Status)
	}
	if entry.ErrorMessage == nil || !strings.Contains(*entry.ErrorMessage, "invariant") {
		t.Fatalf("expected captured panic message, got %v", entry.ErrorMessage)
	}
	if len(f.audit.entries) != 1 {
		t.Fatalf("panic must still produce exactly one audit record, got %d", len(f.audit.entries))
	}
}

func TestRunTruncatesErrorMessage(t *testing.T) {
	f := newFixture(Config{})
	f.feed.err = errors.New(strings.Repeat("x", 2000))

	entry := f.pipeline.Run(context.Background())

	if entry.ErrorMessage == nil || len(*entry.ErrorMessage) != 500 {
		t.Fatalf("expected message truncated to 500 chars, got %d", len(*entry.ErrorMessage))
	}
}

func TestRunTruncatesMultibyteErrorMessage(t *testing.T) {
	f := newFixture(Config{})
	// Two-byte runes make byte 500 fall mid-rune; truncation must cut
	// on a character boundary or the audit insert itself would fail.
	f.feed.err = errors.New(strings.Repeat("ă", 600))

	entry := f.pipeline.Run(context.Background())

	if entry.ErrorMessage == nil {
		t.Fatal("expected error message")
	}
	if !utf8.ValidString(*entry.ErrorMessage) {
		t.Fatal("truncated message must stay valid UTF-8")
	}
	if got := utf8.RuneCountInString(*entry.ErrorMessage); got != 500 {
		t.Fatalf("expected 500 characters, got %d", got)
	}
}

func TestRunSurvivesAuditFailure(t *testing.T) {
	f := newFixture(Config{})
	f.audit.err = errors.New("database gone")

	entry := f.pipeline.Run(context.Background())

	if entry.Status != StatusSuccess {
		t.Fatalf("run outcome must not change when the audit write fails, got %s", entry.Status)
	}
}

func TestRunArchiveFailureIsError(t *testing.T) {
	f := newFixture(Config{})
	f.archive.err = errors.New("disk full")

	entry := f.pipeline.Run(context.Background())

	if entry.Status != StatusError {
		t.Fatalf("expected ERROR for archive failure, got %s", entry.Status)
	}
	if f.delivery.calls != 0 {
		t.Fatal("archive failure must abort delivery")
	}
}
