package jpdb_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/kanjigate/internal/config"
	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/enrich"
	"github.com/phrazzld/kanjigate/internal/platform/jpdb"
	"github.com/phrazzld/kanjigate/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

const kanjiPage = `<!DOCTYPE html>
<html><body>
<div class="container">
  <div class="subsection-label"><h6 class="subsection-label">Keyword</h6></div>
  <div class="subsection">
    <div>  language
    </div>
  </div>
  <h6>Mnemonic</h6>
  <div class="mnemonic">The <span class="radical">words</span> of the <b>five</b> mouths.</div>
</div>
</body></html>`

const searchPage = `<html><body>
<div class="result vocabulary">
  <div class="subsection-meanings">
    <h6 class="subsection-label">Meanings</h6>
    <div class="subsection">
      <div class="description">1. study of   language</div>
      <div class="description">2. linguistics</div>
    </div>
  </div>
</div>
</body></html>`

type fakeSite struct {
	mu    sync.Mutex
	pages map[string]string
	agent string
	paths []string
}

func (f *fakeSite) serve(t *testing.T) *jpdb.Client {
	t.Helper()

	r := chi.NewRouter()
	handler := func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.agent = req.Header.Get("User-Agent")
		key := req.URL.Path
		if q := req.URL.Query().Get("q"); q != "" {
			key += "?" + q
		}
		f.paths = append(f.paths, key)
		body, ok := f.pages[key]
		f.mu.Unlock()

		switch {
		case !ok:
			http.NotFound(w, req)
		case body == "500":
			http.Error(w, "down", http.StatusInternalServerError)
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, body)
		}
	}
	r.Get("/kanji/{key}", handler)
	r.Get("/search", handler)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	log, _ := logger.NewTestLogger(t)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	client, err := jpdb.New(srv.URL+"/", "kanjigate-test",
		jpdb.WithHTTPClient(srv.Client()),
		jpdb.WithLogger(log),
		jpdb.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return client
}

func TestLookupCharacter(t *testing.T) {
	t.Parallel()

	site := &fakeSite{pages: map[string]string{"/kanji/語": kanjiPage}}
	client := site.serve(t)

	got, err := client.Lookup(context.Background(), domain.EnrichmentCharacter, "語")
	require.NoError(t, err)

	assert.Equal(t, domain.EnrichmentCharacter, got.Kind)
	assert.Equal(t, "語", got.Key)
	assert.Equal(t, "language", got.Keyword)
	assert.Equal(t, `The <span class="radical">words</span> of the <b>five</b> mouths.`, got.Text)
	assert.Equal(t, jpdb.Source, got.Source)
	assert.False(t, got.FetchedAt.IsZero())
	assert.Equal(t, "kanjigate-test", site.agent)
}

func TestLookupVocabulary(t *testing.T) {
	t.Parallel()

	site := &fakeSite{pages: map[string]string{"/search?語学": searchPage}}
	client := site.serve(t)

	got, err := client.Lookup(context.Background(), domain.EnrichmentVocabulary, " 語学 ")
	require.NoError(t, err)
	assert.Equal(t, "1. study of language", got.Text)
	assert.Empty(t, got.Keyword)
	assert.Equal(t, "語学", got.Key)
}

func TestLookupFailures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		pages   map[string]string
		kind    domain.EnrichmentKind
		key     string
		wantErr error
	}{
		{"not found", map[string]string{}, domain.EnrichmentCharacter, "語", enrich.ErrNoResult},
		{"server error", map[string]string{"/kanji/語": "500"}, domain.EnrichmentCharacter, "語", enrich.ErrLookupFailed},
		{"page without content", map[string]string{"/kanji/語": "<html><body><p>nothing</p></body></html>"}, domain.EnrichmentCharacter, "語", enrich.ErrNoResult},
		{"search without meanings", map[string]string{"/search?語学": "<html><body></body></html>"}, domain.EnrichmentVocabulary, "語学", enrich.ErrNoResult},
		{"empty key", map[string]string{}, domain.EnrichmentCharacter, " ", enrich.ErrNoResult},
		{"unknown kind", map[string]string{}, "radical", "語", enrich.ErrInvalidConfig},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := (&fakeSite{pages: tc.pages}).serve(t)

			got, err := client.Lookup(context.Background(), tc.kind, tc.key)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, got)
		})
	}
}

func TestLookupHonoursCancellation(t *testing.T) {
	t.Parallel()

	client := (&fakeSite{pages: map[string]string{"/kanji/語": kanjiPage}}).serve(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Lookup(ctx, domain.EnrichmentCharacter, "語")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "jpdb.io", "://bad"} {
		_, err := jpdb.New(raw, "")
		assert.ErrorIs(t, err, enrich.ErrInvalidConfig, raw)
	}
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(config.LoadOptions{})
	require.NoError(t, err)

	log, _ := logger.NewTestLogger(t)
	client, err := jpdb.NewFromConfig(cfg.Enrich, log)
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.True(t, strings.HasPrefix(cfg.Enrich.JPDBURL, "https://"))
}
