// Package delivery posts the assembled daily payload to the downstream
// consumer.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/models"

	"go.uber.org/zap"
)

// Result classifies a completed delivery attempt.
type Result int

const (
	// Delivered means the remote confirmed processing (2xx, not 202).
	Delivered Result = iota
	// Partial means the HTTP exchange completed but the remote either
	// rejected the content (4xx) or only accepted it for later
	// processing (202). Retrying would not help.
	Partial
)

// Client represents the downstream delivery client
type Client struct {
	endpoint   string
	apiSecret  string
	httpClient *http.Client
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a new delivery client
func NewClient(endpoint, apiSecret string, logger *zap.Logger) *Client {
	return &Client{
		endpoint:  endpoint,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // the remote re-renders content on ingest
		},
		logger:     logger,
		maxRetries: 3,
		retryDelay: 5 * time.Second,
	}
}

// Send posts the payload with the shared-secret header. Network errors
// and 5xx replies are retried up to 3 times with a fixed delay;
// exhausting them is a delivery failure. Any other completed exchange
// returns a Result, never an error.
func (c *Client) Send(ctx context.Context, payload *models.DailyPayload) (Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Partial, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying delivery",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries))
			time.Sleep(c.retryDelay)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Internal-Api-Key", c.apiSecret)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("delivery request failed: %w", err)
			c.logger.Error("Delivery network error", zap.Error(err), zap.Int("attempt", attempt+1))
			continue
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("delivery target returned status %d", resp.StatusCode)
			c.logger.Error("Delivery target error",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1))
			continue
		case resp.StatusCode == http.StatusAccepted:
			c.logger.Warn("Delivery accepted but not confirmed", zap.Int("status", resp.StatusCode))
			return Partial, nil
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			c.logger.Info("Payload delivered", zap.Int("status", resp.StatusCode))
			return Delivered, nil
		default:
			c.logger.Warn("Delivery target rejected payload", zap.Int("status", resp.StatusCode))
			return Partial, nil
		}
	}

	return Partial, fmt.Errorf("delivery failed after %d attempts: %w", c.maxRetries, lastErr)
}
