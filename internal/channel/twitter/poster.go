// Package twitter posts content announcements through the API v2 tweets
// endpoint.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"content_pipeline/internal/domain"
)

const (
	PlatformName = "twitter"

	defaultBaseURL = "https://api.twitter.com/2/tweets"
	maxTweetRunes  = 280
)

type Config struct {
	BearerToken string
	Timeout     time.Duration
	// BaseURL overrides the API endpoint, used in tests.
	BaseURL string
}

type Poster struct {
	httpClient  *http.Client
	baseURL     string
	bearerToken string
	logger      *slog.Logger
	warnOnce    sync.Once
}

func New(cfg Config, logger *slog.Logger) *Poster {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Poster{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     baseURL,
		bearerToken: cfg.BearerToken,
		logger:      logger.With("channel", PlatformName),
	}
}

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Post publishes a short announcement for the item and returns the tweet ID
// as the external reference.
func (p *Poster) Post(ctx context.Context, item *domain.ContentItem, platform string) (string, error) {
	if platform != PlatformName {
		return "", fmt.Errorf("%w: social platform %q", domain.ErrUnsupportedChannel, platform)
	}
	if p.bearerToken == "" {
		p.warnOnce.Do(func() {
			p.logger.Warn("twitter bearer token not configured, posting will fail")
		})
		return "", fmt.Errorf("twitter poster: %w", domain.ErrConfigurationMissing)
	}

	payload, err := json.Marshal(tweetRequest{Text: composeText(item)})
	if err != nil {
		return "", fmt.Errorf("marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.bearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("twitter status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var created tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	p.logger.Info("posted tweet", "content_id", item.ID, "tweet_id", created.Data.ID)
	return created.Data.ID, nil
}

func composeText(item *domain.ContentItem) string {
	text := item.Title
	if item.SourceURL != nil && *item.SourceURL != "" {
		text += " " + *item.SourceURL
	}

	runes := []rune(text)
	if len(runes) > maxTweetRunes {
		text = string(runes[:maxTweetRunes-1]) + "…"
	}
	return text
}
