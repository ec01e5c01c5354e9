// Package groq talks to the Groq chat-completions API for the two LLM
// jobs in the pipeline: batch relevance scoring with title translation,
// and full narrative generation for the winning event.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Facem-Bani-Incorporated/daily-history-pipeline/internal/models"

	"go.uber.org/zap"
)

const maxCandidateText = 150

// Client wraps the Groq API client
type Client struct {
	apiKey     string
	baseURL    string
	modelName  string
	httpClient *http.Client
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

// Config for Groq client
type Config struct {
	APIKey     string
	BaseURL    string // Default: the public Groq endpoint
	ModelName  string // Default: "llama-3.3-70b-versatile"
	MaxRetries int
	RetryDelay time.Duration
}

// groqRequest represents the request to Groq API
type groqRequest struct {
	Model          string         `json:"model"`
	Messages       []groqMessage  `json:"messages"`
	Stream         bool           `json:"stream"`
	Temperature    float32        `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// groqResponse represents the response from Groq API
type groqResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// ScoreResult is one candidate's entry in the batch scoring reply.
type ScoreResult struct {
	Score  *float64            `json:"score"`
	Titles models.Translations `json:"titles"`
}

// BatchResult holds the parsed batch scoring reply. Lookups apply the
// degradation policy: a missing or score-less index falls back to 50
// with empty titles, so a partially malformed reply never fails a run.
type BatchResult struct {
	Results map[string]ScoreResult `json:"results"`
}

// Result resolves the reply for the candidate at the given batch
// index. The defaults are independent: a score-less entry keeps its
// titles, a missing entry gets both defaults.
func (b BatchResult) Result(index int) (float64, models.Translations) {
	res, ok := b.Results[fmt.Sprintf("ID_%d", index)]
	if !ok {
		return 50, models.Translations{}
	}
	if res.Score == nil {
		return 50, res.Titles
	}
	return *res.Score, res.Titles
}

// MainContent is the generated multilingual content for the main event.
type MainContent struct {
	Titles     models.Translations `json:"titles"`
	Narratives models.Translations `json:"narratives"`
}

// NewClient creates a new Groq client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq API key is required")
	}

	if cfg.ModelName == "" {
		cfg.ModelName = "llama-3.3-70b-versatile"
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}

	logger.Info("Groq client initialized",
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		modelName:  cfg.ModelName,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// BatchScoreAndTranslate rates every candidate 0-100 and translates its
// title into the five contract languages in a single completion call.
// Candidates are addressed by batch index; the reply may omit indices.
func (c *Client) BatchScoreAndTranslate(ctx context.Context, candidates []models.ScoredCandidate) (BatchResult, error) {
	var lines []string
	for i, item := range candidates {
		text := item.Text
		if len(text) > maxCandidateText {
			text = text[:maxCandidateText]
		}
		lines = append(lines, fmt.Sprintf("ID %d: (%d) %s", i, item.Year, text))
	}

	prompt := fmt.Sprintf(`Act as a historian and polyglot.
1. Rate each event 0-100 based on global impact.
2. Translate the titles into EN, RO, ES, DE, FR.
Events:
%s

RETURN JSON ONLY:
{ "results": { "ID_0": { "score": 85, "titles": { "en": "..", "ro": "..", "es": "..", "de": "..", "fr": ".." } } } }`,
		strings.Join(lines, "\n"))

	var result BatchResult
	if err := c.complete(ctx, prompt, &result); err != nil {
		return BatchResult{}, err
	}
	return result, nil
}

// GenerateNarrative produces the title and 400-word narrative for the
// main event, translated into all five contract languages.
func (c *Client) GenerateNarrative(ctx context.Context, text string, year int) (MainContent, error) {
	prompt := fmt.Sprintf(`Analyze event: %s (%d).
Generate a 400-word narrative and an interesting title.
Translate both into English, Romanian, Spanish, German, French.
RETURN JSON ONLY:
{
    "titles": { "en": "..", "ro": "..", "es": "..", "de": "..", "fr": ".." },
    "narratives": { "en": "..", "ro": "..", "es": "..", "de": "..", "fr": ".." }
}`, text, year)

	var result MainContent
	if err := c.complete(ctx, prompt, &result); err != nil {
		return MainContent{}, err
	}
	return result, nil
}

// complete runs one JSON-mode completion and unmarshals the reply into
// out, retrying transport and parse failures up to maxRetries.
func (c *Client) complete(ctx context.Context, prompt string, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying Groq request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries))
			time.Sleep(c.retryDelay)
		}

		reqBody := groqRequest{
			Model: c.modelName,
			Messages: []groqMessage{
				{
					Role:    "user",
					Content: prompt,
				},
			},
			Stream:         false,
			Temperature:    0.3,
			ResponseFormat: responseFormat{Type: "json_object"},
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			lastErr = fmt.Errorf("failed to marshal request: %w", err)
			continue
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("groq API error: %w", err)
			c.logger.Error("Groq API error", zap.Error(err), zap.Int("attempt", attempt+1))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("groq API returned status %d: %s", resp.StatusCode, string(body))
			c.logger.Error("Groq API error",
				zap.Int("status", resp.StatusCode),
				zap.String("body", string(body)),
				zap.Int("attempt", attempt+1))
			continue
		}

		var groqResp groqResponse
		if err := json.Unmarshal(body, &groqResp); err != nil {
			lastErr = fmt.Errorf("failed to parse response: %w", err)
			c.logger.Error("Failed to parse JSON response",
				zap.Error(err),
				zap.String("body", string(body)),
				zap.Int("attempt", attempt+1))
			continue
		}

		if len(groqResp.Choices) == 0 {
			lastErr = fmt.Errorf("empty response from groq")
			c.logger.Error("Empty response from Groq", zap.Int("attempt", attempt+1))
			continue
		}

		content := groqResp.Choices[0].Message.Content

		// Parse JSON - strip markdown code blocks if present
		cleanJSON := strings.TrimSpace(content)
		cleanJSON = strings.TrimPrefix(cleanJSON, "```json")
		cleanJSON = strings.TrimPrefix(cleanJSON, "```")
		cleanJSON = strings.TrimSuffix(cleanJSON, "```")
		cleanJSON = strings.TrimSpace(cleanJSON)

		if err := json.Unmarshal([]byte(cleanJSON), out); err != nil {
			lastErr = fmt.Errorf("failed to parse groq response: %w", err)
			c.logger.Error("Failed to parse JSON response",
				zap.Error(err),
				zap.String("original_response", content),
				zap.String("cleaned_response", cleanJSON),
				zap.Int("attempt", attempt+1))
			continue
		}

		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider":    "groq",
		"model":       c.modelName,
		"max_retries": c.maxRetries,
		"retry_delay": c.retryDelay.String(),
	}
}
