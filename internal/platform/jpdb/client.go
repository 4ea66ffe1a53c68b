package jpdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phrazzld/kanjigate/internal/config"
	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/enrich"
)

// Source is recorded on every enrichment produced by this package.
const Source = "jpdb"

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 2 << 20

// Client fetches and parses jpdb pages.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithClock overrides the time source used for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a client rooted at baseURL.
func New(baseURL, userAgent string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", enrich.ErrInvalidConfig, baseURL)
	}

	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: 15 * time.Second},
		userAgent: userAgent,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "jpdb"))
	return c, nil
}

// NewFromConfig creates a client from the enrich configuration section.
func NewFromConfig(cfg config.EnrichConfig, logger *slog.Logger) (*Client, error) {
	return New(cfg.JPDBURL, cfg.UserAgent,
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		WithLogger(logger))
}

var _ enrich.Enricher = (*Client)(nil)

// Lookup implements enrich.Enricher.
func (c *Client) Lookup(ctx context.Context, kind domain.EnrichmentKind, key string) (*domain.Enrichment, error) {
	if err := enrich.Validate(kind, key); err != nil {
		return nil, err
	}
	key = strings.TrimSpace(key)

	result := &domain.Enrichment{Kind: kind, Key: key, Source: Source}
	switch kind {
	case domain.EnrichmentCharacter:
		doc, err := c.fetch(ctx, c.baseURL.JoinPath("kanji", key).String())
		if err != nil {
			return nil, err
		}
		result.Keyword = extractKeyword(doc)
		result.Text = extractMnemonic(doc)
	case domain.EnrichmentVocabulary:
		u := c.baseURL.JoinPath("search")
		u.RawQuery = url.Values{"q": {key}}.Encode()
		doc, err := c.fetch(ctx, u.String())
		if err != nil {
			return nil, err
		}
		result.Text = extractDescription(doc)
	}

	if result.IsEmpty() {
		c.logger.DebugContext(ctx, "jpdb page had no usable content",
			slog.String("kind", string(kind)),
			slog.String("key", key))
		return nil, enrich.ErrNoResult
	}
	result.FetchedAt = c.now().UTC()
	return result, nil
}

func (c *Client) fetch(ctx context.Context, pageURL string) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", enrich.ErrLookupFailed, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", enrich.ErrLookupFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, enrich.ErrNoResult
	case resp.StatusCode != http.StatusOK:
		c.logger.WarnContext(ctx, "jpdb returned non-success status",
			slog.String("url", pageURL),
			slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: HTTP %d", enrich.ErrLookupFailed, resp.StatusCode)
	}

	doc, err := parsePage(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", enrich.ErrInvalidResponse, err)
	}
	return doc, nil
}
