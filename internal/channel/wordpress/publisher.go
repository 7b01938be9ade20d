// Package wordpress publishes content items to a WordPress site through the
// REST v2 API using an application password.
package wordpress

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

const PlatformName = "wordpress"

type Config struct {
	BaseURL     string
	Username    string
	AppPassword string
	Timeout     time.Duration
}

type Publisher struct {
	httpClient  *http.Client
	baseURL     string
	username    string
	appPassword string
	logger      *slog.Logger
	warnOnce    sync.Once
}

func New(cfg Config, logger *slog.Logger) *Publisher {
	return &Publisher{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		username:    cfg.Username,
		appPassword: cfg.AppPassword,
		logger:      logger.With("channel", PlatformName),
	}
}

type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

type postResponse struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}

// Publish creates a published post and returns its public link as the
// external reference.
func (p *Publisher) Publish(ctx context.Context, item *domain.ContentItem, platform string) (string, error) {
	if platform != PlatformName {
		return "", fmt.Errorf("%w: publish target %q", domain.ErrUnsupportedChannel, platform)
	}
	if p.baseURL == "" || p.username == "" || p.appPassword == "" {
		p.warnOnce.Do(func() {
			p.logger.Warn("wordpress credentials not configured, publishing will fail")
		})
		return "", fmt.Errorf("wordpress publisher: %w", domain.ErrConfigurationMissing)
	}

	payload, err := json.Marshal(postRequest{
		Title:   item.Title,
		Content: item.Body,
		Status:  "publish",
	})
	if err != nil {
		return "", fmt.Errorf("marshal post: %w", err)
	}

	url := p.baseURL + "/wp-json/wp/v2/posts"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(p.username, p.appPassword)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("wordpress status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var created postResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	p.logger.Info("published content",
		"content_id", item.ID,
		"post_id", created.ID,
		"link", created.Link,
	)

	if created.Link != "" {
		return created.Link, nil
	}
	return fmt.Sprintf("%d", created.ID), nil
}
