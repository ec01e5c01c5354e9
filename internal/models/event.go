package models

import "time"

// Translations is the fixed five-language text bundle used for every
// user-facing string. The five keys are fixed by contract with the
// downstream consumer; this is never a free-form map.
type Translations struct {
	En string `json:"en"`
	Ro string `json:"ro"`
	Es string `json:"es"`
	De string `json:"de"`
	Fr string `json:"fr"`
}

// IsEmpty reports whether no variant has been filled in.
func (t Translations) IsEmpty() bool {
	return t.En == "" && t.Ro == "" && t.Es == "" && t.De == "" && t.Fr == ""
}

// Page is one reference page attached to a feed candidate.
type Page struct {
	CanonicalSlug string `json:"canonical_slug"`
}

// RawCandidate is one historical event as returned by the feed. It only
// lives within a single pipeline run.
type RawCandidate struct {
	Text  string `json:"text"`
	Year  int    `json:"year"`
	Pages []Page `json:"pages"`
}

// Slug returns the candidate's canonical reference slug, or "" when the
// feed attached no pages.
func (c RawCandidate) Slug() string {
	if len(c.Pages) == 0 {
		return ""
	}
	return c.Pages[0].CanonicalSlug
}

// ScoredCandidate is a RawCandidate carried through both ranking phases.
// FinalScore is always derived from HeuristicScore and AIScore via
// ranker.Hybrid; it is never set independently.
type ScoredCandidate struct {
	RawCandidate

	HeuristicScore float64
	AIScore        float64
	FinalScore     float64
	Titles         Translations
}

// MainEvent is the single top-ranked event of the day.
type MainEvent struct {
	TitleTranslations     Translations `json:"title_translations"`
	Year                  int          `json:"year"`
	SourceURL             string       `json:"source_url"`
	EventDate             time.Time    `json:"event_date"`
	NarrativeTranslations Translations `json:"narrative_translations"`
	ImpactScore           float64      `json:"impact_score"`
	Gallery               []string     `json:"gallery"`
}

// SecondaryEvent is one of up to five runner-up events.
type SecondaryEvent struct {
	TitleTranslations Translations `json:"title_translations"`
	Year              int          `json:"year"`
	SourceURL         string       `json:"source_url"`
	ThumbnailURL      *string      `json:"thumbnail_url"`
	AIRelevanceScore  float64      `json:"ai_relevance_score"`
}

// DailyPayload is the run's complete output, handed to the archive and
// delivery collaborators. Immutable once assembled.
type DailyPayload struct {
	DateProcessed   time.Time         `json:"date_processed"`
	APISecret       string            `json:"api_secret"`
	MainEvent       MainEvent         `json:"main_event"`
	SecondaryEvents []SecondaryEvent  `json:"secondary_events"`
	Metadata        map[string]string `json:"metadata"`
}

// IngestionLog is the append-only audit record, exactly one per run.
type IngestionLog struct {
	ID            int64     `db:"id"`
	EventDate     time.Time `db:"event_date"`
	MainEventYear *int      `db:"main_event_year"`
	Status        string    `db:"status"`
	ImpactScore   *float64  `db:"impact_score"`
	ErrorMessage  *string   `db:"error_message"`
}

// ProcessedEvent is the archival copy of a delivered main event's
// translated content and primary image. Persisted independently of
// delivery success; append-only.
type ProcessedEvent struct {
	ID          int64     `db:"id"`
	EventDate   time.Time `db:"event_date"`
	Year        int       `db:"year"`
	Titles      []byte    `db:"titles"`
	Narrative   []byte    `db:"narrative"`
	ImageURL    *string   `db:"image_url"`
	ImpactScore *float64  `db:"impact_score"`
	SourceURL   *string   `db:"source_url"`
}
