// Package media coordinates image hydration for the winning
// candidates: gallery discovery plus hosting uploads, isolated so that
// any single lost image degrades to "no image" instead of failing the
// run.
package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/models"
	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/wiki"

	"go.uber.org/zap"
)

const (
	mainGalleryLimit = 3
	thumbnailLimit   = 1
)

// GalleryFetcher discovers candidate image URLs for a canonical slug.
type GalleryFetcher interface {
	FetchGalleryURLs(ctx context.Context, slug string, limit int) []string
}

// Uploader pushes one image to the media host, returning the hosted
// URL or "" on failure.
type Uploader interface {
	Upload(ctx context.Context, imageURL, publicID string) string
}

// Enricher hydrates winning candidates with hosted media.
type Enricher struct {
	gallery  GalleryFetcher
	uploader Uploader
	logger   *zap.Logger
}

// NewEnricher creates a new media enricher.
func NewEnricher(gallery GalleryFetcher, uploader Uploader, logger *zap.Logger) *Enricher {
	return &Enricher{
		gallery:  gallery,
		uploader: uploader,
		logger:   logger,
	}
}

// HydrateMain resolves and uploads up to three gallery images for the
// main event. The returned gallery is never empty: when discovery or
// every upload fails, the fixed placeholder stands in.
func (e *Enricher) HydrateMain(ctx context.Context, cand models.ScoredCandidate) []string {
	slug := cand.Slug()
	if slug == "" {
		slug = "history"
	}

	urls := e.gallery.FetchGalleryURLs(ctx, slug, mainGalleryLimit)

	var hosted []string
	for i, u := range urls {
		if hostedURL := e.uploader.Upload(ctx, u, fmt.Sprintf("main_%d_%d", cand.Year, i)); hostedURL != "" {
			hosted = append(hosted, hostedURL)
		}
	}

	if len(hosted) == 0 {
		e.logger.Warn("No usable main-event images, substituting placeholder",
			zap.String("slug", slug),
			zap.Int("year", cand.Year))
		hosted = []string{wiki.PlaceholderImageURL}
	}

	return hosted
}

// HydrateSecondaries resolves at most one thumbnail per runner-up,
// fanned out concurrently. Results are joined positionally; a failed
// item simply has a nil thumbnail.
func (e *Enricher) HydrateSecondaries(ctx context.Context, cands []models.ScoredCandidate) []*string {
	thumbs := make([]*string, len(cands))

	var wg sync.WaitGroup
	for idx, cand := range cands {
		wg.Add(1)
		go func(idx int, cand models.ScoredCandidate) {
			defer wg.Done()

			slug := cand.Slug()
			if slug == "" {
				return
			}

			urls := e.gallery.FetchGalleryURLs(ctx, slug, thumbnailLimit)
			if len(urls) == 0 {
				return
			}

			if hosted := e.uploader.Upload(ctx, urls[0], fmt.Sprintf("sec_%d_%d", cand.Year, idx)); hosted != "" {
				thumbs[idx] = &hosted
			}
		}(idx, cand)
	}
	wg.Wait()

	return thumbs
}
