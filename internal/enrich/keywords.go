package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"content_pipeline/internal/domain"
)

var errMissingKey = domain.ErrConfigurationMissing

// KeywordExtractor calls a Cortical-style keyword extraction endpoint.
type KeywordExtractor struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

func NewKeywordExtractor(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *KeywordExtractor {
	return &KeywordExtractor{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     logger.With("component", "keyword_extractor"),
	}
}

type extractRequest struct {
	Text       string `json:"text"`
	RetinaName string `json:"retina_name"`
}

// Extract returns up to limit keywords found in text.
func (k *KeywordExtractor) Extract(ctx context.Context, text string, limit int) ([]string, error) {
	if k.apiKey == "" {
		return nil, fmt.Errorf("keyword extractor: %w", errMissingKey)
	}

	payload, err := json.Marshal(extractRequest{Text: text, RetinaName: "en_associative"})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+k.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("keyword extractor status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var keywords []string
	if err := json.NewDecoder(resp.Body).Decode(&keywords); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if limit > 0 && len(keywords) > limit {
		keywords = keywords[:limit]
	}

	k.logger.Debug("extracted keywords", "count", len(keywords))
	return keywords, nil
}
