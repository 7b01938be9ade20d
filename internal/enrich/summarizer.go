// Package enrich holds the optional text-analysis clients used when
// generating drafts. Every client degrades: a missing credential or a failed
// call costs quality, never the draft itself.
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
)

// Summarizer calls an ApyHub-style text summarization endpoint.
type Summarizer struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

func NewSummarizer(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     logger.With("component", "summarizer"),
	}
}

type summarizeRequest struct {
	Text          string `json:"text"`
	SummaryLength string `json:"summary_length"`
}

type summarizeResponse struct {
	Data struct {
		Summary string `json:"summary"`
	} `json:"data"`
}

// Summarize returns a summary of text. lengthHint is "short", "medium" or
// "long".
func (s *Summarizer) Summarize(ctx context.Context, text, lengthHint string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("summarizer: %w", errMissingKey)
	}

	payload, err := json.Marshal(summarizeRequest{Text: text, SummaryLength: lengthHint})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apy-token", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("summarizer status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Data.Summary == "" {
		return "", fmt.Errorf("summarizer returned empty summary")
	}

	s.logger.Debug("summarized text", "input_len", len(text), "summary_len", len(parsed.Data.Summary))
	return parsed.Data.Summary, nil
}
