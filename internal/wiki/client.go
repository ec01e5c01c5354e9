// Package wiki is the client for the "on this day" feed and the
// per-page media discovery endpoint.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/models"

	"go.uber.org/zap"
)

// PlaceholderImageURL is substituted when a page has no usable images,
// so the main event's gallery is never structurally empty.
const PlaceholderImageURL = "https://images.unsplash.com/photo-1447069387593-a5de0862481e?w=800"

// Client represents the feed API client
type Client struct {
	baseURL     string
	userAgent   string
	feedClient  *http.Client
	mediaClient *http.Client
	logger      *zap.Logger
}

// feedResponse is the raw on-this-day reply: curated "selected" events
// plus the full "events" group.
type feedResponse struct {
	Selected []feedEvent `json:"selected"`
	Events   []feedEvent `json:"events"`
}

type feedEvent struct {
	Text  string `json:"text"`
	Year  int    `json:"year"`
	Pages []struct {
		Titles struct {
			Canonical string `json:"canonical"`
		} `json:"titles"`
	} `json:"pages"`
}

type mediaListResponse struct {
	Items []struct {
		Type   string `json:"type"`
		Title  string `json:"title"`
		Srcset []struct {
			Src string `json:"src"`
		} `json:"srcset"`
	} `json:"items"`
}

// NewClient creates a new feed client
func NewClient(baseURL, userAgent string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		feedClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		mediaClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// FetchOnThisDay returns the raw event candidates for the given
// month/day, curated events first. An empty slice is a valid reply; the
// caller decides whether that fails the run.
func (c *Client) FetchOnThisDay(ctx context.Context, month, day int) ([]models.RawCandidate, error) {
	url := fmt.Sprintf("%s/feed/onthisday/events/%d/%d", c.baseURL, month, day)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.feedClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}

	var candidates []models.RawCandidate
	for _, ev := range append(feed.Selected, feed.Events...) {
		cand := models.RawCandidate{Text: ev.Text, Year: ev.Year}
		for _, p := range ev.Pages {
			cand.Pages = append(cand.Pages, models.Page{CanonicalSlug: p.Titles.Canonical})
		}
		candidates = append(candidates, cand)
	}

	c.logger.Info("Fetched on-this-day feed",
		zap.Int("month", month),
		zap.Int("day", day),
		zap.Int("count", len(candidates)))

	return candidates, nil
}

// FetchGalleryURLs returns up to limit image URLs for the page behind
// the given canonical slug, SVGs excluded. An empty slug and any
// lookup failure both yield an empty result, never an error: media is
// strictly best-effort.
func (c *Client) FetchGalleryURLs(ctx context.Context, slug string, limit int) []string {
	if slug == "" {
		return nil
	}

	url := fmt.Sprintf("%s/page/media-list/%s", c.baseURL, strings.ReplaceAll(slug, " ", "_"))

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		c.logger.Warn("Could not build media-list request", zap.String("slug", slug), zap.Error(err))
		return nil
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.mediaClient.Do(req)
	if err != nil {
		c.logger.Warn("Could not fetch gallery", zap.String("slug", slug), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Media list returned non-OK status",
			zap.String("slug", slug),
			zap.Int("status", resp.StatusCode))
		return nil
	}

	var media mediaListResponse
	if err := json.NewDecoder(resp.Body).Decode(&media); err != nil {
		c.logger.Warn("Could not decode media list", zap.String("slug", slug), zap.Error(err))
		return nil
	}

	var urls []string
	for _, item := range media.Items {
		if item.Type != "image" {
			continue
		}

		// Best available URL per item: first srcset entry, else title.
		src := item.Title
		if len(item.Srcset) > 0 && item.Srcset[0].Src != "" {
			src = item.Srcset[0].Src
		}
		if src == "" {
			continue
		}

		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}
		if strings.Contains(strings.ToLower(src), ".svg") {
			continue
		}

		urls = append(urls, src)
		if len(urls) >= limit {
			break
		}
	}

	return urls
}
