package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/card-comb/app/cards"
	"github.com/lysyi3m/card-comb/app/provider"
	"github.com/lysyi3m/card-comb/app/tasks"
)

type mockProviders struct {
	handles     []provider.Handle
	descriptors []provider.Descriptor
	reloads     int
	reloadErr   error
}

func (m *mockProviders) Run() error {
	m.reloads++
	return m.reloadErr
}

func (m *mockProviders) Snapshot() []provider.Handle {
	return m.handles
}

func (m *mockProviders) Descriptors() []provider.Descriptor {
	return m.descriptors
}

func (m *mockProviders) DescriptorCount() int {
	return len(m.descriptors)
}

type mockRunner struct {
	records []cards.Orderable
	err     error
	seen    []provider.Handle
}

func (m *mockRunner) Run(ctx context.Context, handles []provider.Handle) ([]cards.Orderable, error) {
	m.seen = handles
	return m.records, m.err
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func newTestServer(providers *mockProviders, runner *mockRunner, apiKey string) http.Handler {
	handler := NewHandler(providers, runner, cards.NewRoundRobin([]string{"org.example.App.desktop"}), "test")
	return NewServer(handler, apiKey)
}

func doRequest(t *testing.T, h http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetFeed(t *testing.T) {
	thumb := &closeTracker{Reader: strings.NewReader("png")}
	runner := &mockRunner{records: []cards.Orderable{
		cards.NewOrderable(&cards.ArticleCard{Knowledge: cards.Knowledge{
			Title:         "Paris",
			Synopsis:      "Capital.",
			Thumbnail:     thumb,
			ThumbnailSize: cards.ThumbnailSizeArticle,
			Layout:        cards.LayoutImageFirst,
		}}, "encyclopedia"),
		cards.NewOrderable(&cards.VideoCard{Knowledge: cards.Knowledge{Title: "Clip"}, Duration: "1:05"}, "videos"),
		cards.NewOrderable(&cards.WordQuoteCard{
			Word:  cards.WordCard{Word: "serendipity", PartOfSpeech: "noun"},
			Quote: cards.QuoteCard{Quote: "Be yourself", Author: "Wilde"},
		}, cards.WordQuoteSource),
	}}
	providers := &mockProviders{handles: []provider.Handle{{Kind: provider.KindArticle, OwnerID: "encyclopedia"}}}
	server := newTestServer(providers, runner, "")

	w := doRequest(t, server, http.MethodGet, "/feed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-Feed-Items"))
	assert.Len(t, runner.seen, 1)

	var resp FeedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Cards, 3)

	assert.Equal(t, "word-quote", resp.Cards[0].Kind)
	require.NotNil(t, resp.Cards[0].Word)
	assert.Equal(t, "serendipity", resp.Cards[0].Word.Word)
	assert.Equal(t, "Wilde", resp.Cards[0].Quote.Author)

	article := resp.Cards[1]
	assert.Equal(t, "article", article.Kind)
	assert.Equal(t, []byte("png"), article.Thumbnail)
	assert.Equal(t, "image-first", article.Layout)
	assert.Equal(t, 200, article.ThumbnailSize)
	assert.True(t, thumb.closed, "thumbnail stream should be closed after rendering")

	assert.Equal(t, "1:05", resp.Cards[2].Duration)
	assert.Contains(t, w.Body.String(), `"thumbnail":"cG5n"`)
}

func TestGetFeedWithApps(t *testing.T) {
	runner := &mockRunner{records: []cards.Orderable{
		cards.NewOrderable(&cards.NewsCard{Knowledge: cards.Knowledge{Title: "A"}}, "news"),
		cards.NewOrderable(&cards.NewsCard{Knowledge: cards.Knowledge{Title: "B"}}, "news"),
	}}
	server := newTestServer(&mockProviders{}, runner, "")

	w := doRequest(t, server, http.MethodGet, "/feed?apps=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp FeedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Cards, 3)
	assert.Equal(t, "available-apps", resp.Cards[1].Kind)
	assert.Equal(t, []string{"org.example.App.desktop"}, resp.Cards[1].Apps)
}

func TestGetFeedEmpty(t *testing.T) {
	server := newTestServer(&mockProviders{}, &mockRunner{}, "")

	w := doRequest(t, server, http.MethodGet, "/feed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cards":[]`)
}

func TestGetFeedMachineryFailure(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: %w", tasks.ErrAggregation, tasks.ErrPoolStopped), http.StatusServiceUnavailable},
		{tasks.ErrAggregation, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		server := newTestServer(&mockProviders{}, &mockRunner{err: tt.err}, "")
		w := doRequest(t, server, http.MethodGet, "/feed", nil)
		assert.Equal(t, tt.status, w.Code, "error %v", tt.err)
	}
}

func TestHealth(t *testing.T) {
	providers := &mockProviders{
		handles:     []provider.Handle{{}, {}},
		descriptors: []provider.Descriptor{{Name: "a"}},
	}
	server := newTestServer(providers, &mockRunner{}, "")

	w := doRequest(t, server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["loaded_configurations"])
	assert.Equal(t, float64(2), body["provider_handles"])
	assert.Equal(t, "test", body["version"])
}

func TestRootAndFavicon(t *testing.T) {
	server := newTestServer(&mockProviders{}, &mockRunner{}, "")

	w := doRequest(t, server, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Card Comb")

	w = doRequest(t, server, http.MethodGet, "/favicon.ico", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	server := newTestServer(&mockProviders{}, &mockRunner{}, "")

	w := doRequest(t, server, http.MethodGet, "/api/providers", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIAuthentication(t *testing.T) {
	providers := &mockProviders{descriptors: []provider.Descriptor{
		{Name: "org.example.A", Endpoint: "http://a", Interfaces: []string{"content"}, Enabled: true, Timeout: 5},
	}}
	server := newTestServer(providers, &mockRunner{}, "secret")

	w := doRequest(t, server, http.MethodGet, "/api/providers", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, server, http.MethodGet, "/api/providers", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, server, http.MethodGet, "/api/providers", map[string]string{"X-API-Key": "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"org.example.A"`)
	assert.Contains(t, w.Body.String(), `"timeout":"5s"`)

	w = doRequest(t, server, http.MethodPost, "/api/providers/reload", map[string]string{"Authorization": "Bearer secret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, providers.reloads)
}

func TestAPIReloadFailure(t *testing.T) {
	providers := &mockProviders{reloadErr: errors.New("disk gone")}
	server := newTestServer(providers, &mockRunner{}, "secret")

	w := doRequest(t, server, http.MethodPost, "/api/providers/reload", map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "disk gone")
}
