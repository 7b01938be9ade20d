package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_pipeline/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPost_Success(t *testing.T) {
	url := "https://ex.com/a"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		var req tweetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Hello https://ex.com/a", req.Text)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"112233"}}`))
	}))
	defer srv.Close()

	p := New(Config{BearerToken: "token", Timeout: time.Second, BaseURL: srv.URL}, testLogger())

	item := &domain.ContentItem{ID: 1, Title: "Hello", SourceURL: &url}
	ref, err := p.Post(context.Background(), item, PlatformName)
	require.NoError(t, err)
	assert.Equal(t, "112233", ref)
}

func TestPost_UnsupportedPlatform(t *testing.T) {
	p := New(Config{BearerToken: "token", Timeout: time.Second}, testLogger())

	_, err := p.Post(context.Background(), &domain.ContentItem{Title: "x"}, "mastodon")
	assert.True(t, errors.Is(err, domain.ErrUnsupportedChannel))
}

func TestPost_MissingToken(t *testing.T) {
	p := New(Config{Timeout: time.Second}, testLogger())

	_, err := p.Post(context.Background(), &domain.ContentItem{Title: "x"}, PlatformName)
	assert.True(t, errors.Is(err, domain.ErrConfigurationMissing))
}

func TestComposeText_TruncatesLongTitles(t *testing.T) {
	item := &domain.ContentItem{Title: strings.Repeat("a", 400)}

	text := composeText(item)
	assert.Equal(t, maxTweetRunes, len([]rune(text)))
	assert.True(t, strings.HasSuffix(text, "…"))
}
