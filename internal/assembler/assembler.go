// Package assembler builds the canonical daily payload from scored,
// enriched candidates. Shape conversion only: no I/O, no scoring.
package assembler

import (
	"fmt"
	"time"

	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/groq"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/models"
)

const sourceBaseURL = "https://en.wikipedia.org/wiki"

// Input collects everything the assembled payload is made of.
type Input struct {
	Winner    models.ScoredCandidate
	Content   groq.MainContent
	Gallery   []string
	RunnerUps []models.ScoredCandidate
	Thumbs    []*string
	APISecret string
	RunID     string
	Now       time.Time
}

// Assemble produces the immutable daily payload: one main event and up
// to five secondary events, empty gallery slots filtered, source URLs
// derived from canonical slugs, both dates stamped with the run time.
func Assemble(in Input) models.DailyPayload {
	gallery := make([]string, 0, len(in.Gallery))
	for _, img := range in.Gallery {
		if img != "" {
			gallery = append(gallery, img)
		}
	}

	secondary := make([]models.SecondaryEvent, 0, len(in.RunnerUps))
	for i, item := range in.RunnerUps {
		var thumb *string
		if i < len(in.Thumbs) {
			thumb = in.Thumbs[i]
		}
		secondary = append(secondary, models.SecondaryEvent{
			TitleTranslations: item.Titles,
			Year:              item.Year,
			SourceURL:         sourceURL(item.Slug()),
			ThumbnailURL:      thumb,
			AIRelevanceScore:  item.FinalScore,
		})
	}

	return models.DailyPayload{
		DateProcessed: in.Now,
		APISecret:     in.APISecret,
		MainEvent: models.MainEvent{
			TitleTranslations:     in.Content.Titles,
			Year:                  in.Winner.Year,
			SourceURL:             sourceURL(mainSlug(in.Winner)),
			EventDate:             in.Now,
			NarrativeTranslations: in.Content.Narratives,
			ImpactScore:           in.Winner.FinalScore,
			Gallery:               gallery,
		},
		SecondaryEvents: secondary,
		Metadata: map[string]string{
			"run_id": in.RunID,
			"source": "wikipedia_on_this_day",
		},
	}
}

// mainSlug is the winner's canonical slug, with the generic fallback
// used when the feed attached no pages.
func mainSlug(c models.ScoredCandidate) string {
	if slug := c.Slug(); slug != "" {
		return slug
	}
	return "history"
}

func sourceURL(slug string) string {
	return fmt.Sprintf("%s/%s", sourceBaseURL, slug)
}
