// Package cloudinary uploads discovered images to the media host. The
// upload API is a plain signed form POST, so the client is a thin
// net/http wrapper rather than an SDK.
package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const uploadFolder = "history_app"

// Client represents the Cloudinary upload client
type Client struct {
	cloudName  string
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// Config for Cloudinary client
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	BaseURL   string // Default: the public Cloudinary API
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

// NewClient creates a new Cloudinary client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials are required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloudinary.com/v1_1"
	}

	return &Client{
		cloudName:  cfg.CloudName,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Upload fetches the remote image into Cloudinary under the given
// public id and returns the hosted URL. Any failure degrades to an
// empty string: a single lost image must never fail a pipeline run.
func (c *Client) Upload(ctx context.Context, imageURL, publicID string) string {
	if imageURL == "" || strings.Contains(imageURL, "via.placeholder") {
		return ""
	}

	params := url.Values{}
	params.Set("public_id", fmt.Sprintf("%s/%s", uploadFolder, publicID))
	params.Set("overwrite", "true")
	params.Set("timestamp", fmt.Sprintf("%d", c.now().Unix()))
	params.Set("transformation", "c_limit,q_auto,w_1000")
	params.Set("signature", c.sign(params))
	params.Set("api_key", c.apiKey)
	params.Set("file", imageURL)

	endpoint := fmt.Sprintf("%s/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		c.logger.Error("Cloudinary upload failed", zap.String("public_id", publicID), zap.Error(err))
		return ""
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Cloudinary upload failed", zap.String("public_id", publicID), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Cloudinary upload returned non-OK status",
			zap.String("public_id", publicID),
			zap.Int("status", resp.StatusCode))
		return ""
	}

	var upload uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		c.logger.Error("Cloudinary upload reply malformed", zap.String("public_id", publicID), zap.Error(err))
		return ""
	}

	return upload.SecureURL
}

// sign computes the request signature: SHA-1 over the sorted
// key=value pairs (file and api_key excluded) plus the API secret.
func (c *Client) sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, params.Get(k)))
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return fmt.Sprintf("%x", sum)
}
