package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"content_pipeline/internal/domain"
)

// Config holds fetcher configuration.
type Config struct {
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	UserAgent      string
}

// Fetcher downloads and parses RSS/Atom feeds into normalized items.
// Transport-level retries live here; the ingestion engine calls Fetch once
// per poll.
type Fetcher struct {
	httpClient     *http.Client
	parser         *gofeed.Parser
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	userAgent      string
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		parser:         gofeed.NewParser(),
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		userAgent:      cfg.UserAgent,
		logger:         logger.With("component", "feed_fetcher"),
	}
}

// Fetch retrieves the feed at url and returns its items in feed order.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]domain.FeedItem, error) {
	body, err := f.download(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	parsed, err := f.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]domain.FeedItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		items = append(items, transform(it))
	}

	f.logger.Debug("fetched feed", "url", url, "items", len(items))
	return items, nil
}

func (f *Fetcher) download(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		body, err := f.doRequest(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt == f.maxAttempts {
			break
		}

		backoff := f.calculateBackoff(attempt)
		f.logger.Warn("request failed, retrying",
			"url", url,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	return "", fmt.Errorf("after %d attempts: %w", f.maxAttempts, lastErr)
}

func (f *Fetcher) doRequest(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(data), nil
}

func (f *Fetcher) calculateBackoff(attempt int) time.Duration {
	backoff := f.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > f.maxBackoff {
		backoff = f.maxBackoff
	}
	return backoff
}

func transform(it *gofeed.Item) domain.FeedItem {
	item := domain.FeedItem{
		GUID:  it.GUID,
		Link:  it.Link,
		Title: it.Title,
	}

	if it.Content != "" {
		item.Body = it.Content
	} else {
		item.Body = it.Description
	}

	if len(it.Authors) > 0 && it.Authors[0] != nil {
		item.Author = it.Authors[0].Name
	}

	item.Categories = append(item.Categories, it.Categories...)

	if it.PublishedParsed != nil {
		t := *it.PublishedParsed
		item.PublishedAt = &t
	} else if it.UpdatedParsed != nil {
		t := *it.UpdatedParsed
		item.PublishedAt = &t
	}

	return item
}
