package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_pipeline/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testItem() *domain.ContentItem {
	return &domain.ContentItem{
		ID:    42,
		Title: "Hello",
		Body:  "<p>World</p>",
	}
}

func TestPublish_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wp/v2/posts", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "app-pass", pass)

		var req postRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Hello", req.Title)
		assert.Equal(t, "publish", req.Status)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(postResponse{ID: 7, Link: "https://blog.example/hello"})
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL, Username: "admin", AppPassword: "app-pass", Timeout: time.Second}, testLogger())

	ref, err := p.Publish(context.Background(), testItem(), PlatformName)
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example/hello", ref)
}

func TestPublish_UnsupportedPlatform(t *testing.T) {
	p := New(Config{BaseURL: "http://unused", Username: "u", AppPassword: "p", Timeout: time.Second}, testLogger())

	_, err := p.Publish(context.Background(), testItem(), "medium")
	assert.True(t, errors.Is(err, domain.ErrUnsupportedChannel))
}

func TestPublish_MissingCredentials(t *testing.T) {
	p := New(Config{Timeout: time.Second}, testLogger())

	_, err := p.Publish(context.Background(), testItem(), PlatformName)
	assert.True(t, errors.Is(err, domain.ErrConfigurationMissing))
}

func TestPublish_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL, Username: "u", AppPassword: "p", Timeout: time.Second}, testLogger())

	_, err := p.Publish(context.Background(), testItem(), PlatformName)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
