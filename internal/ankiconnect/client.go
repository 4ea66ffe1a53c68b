// Package ankiconnect is a client for the AnkiConnect add-on, the local
// request/response API of the Anki flashcard application.
//
// Every call posts {"action", "version", "params"} and expects exactly
// {"result", "error"} back. Failures are reported as *Error with a Kind that
// separates transport failures, malformed responses and errors reported by
// Anki.
package ankiconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// APIVersion is the AnkiConnect protocol version this client speaks.
const APIVersion = 6

// DefaultURL is where AnkiConnect listens by default.
const DefaultURL = "http://localhost:8765"

// ErrInvalidURL is returned by New for an unusable endpoint.
var ErrInvalidURL = errors.New("invalid AnkiConnect URL")

// Client calls AnkiConnect. It is safe for concurrent use, though the sync
// engine only ever issues one call at a time.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the AnkiConnect endpoint at rawURL.
func New(rawURL string, opts ...Option) (*Client, error) {
	if rawURL == "" {
		rawURL = DefaultURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	c := &Client{
		endpoint: u.String(),
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "ankiconnect"))
	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

// Invoke performs action with params and decodes the result into out.
// out may be nil when the result is not needed.
func (c *Client) Invoke(ctx context.Context, action string, params, out any) error {
	body, err := json.Marshal(request{Action: action, Version: APIVersion, Params: params})
	if err != nil {
		return &Error{Kind: KindMalformed, Action: action, Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: KindTransport, Action: action, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Action: action, Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Action: action, Message: "failed to read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &Error{
			Kind:    KindTransport,
			Action:  action,
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	c.logger.Debug("ankiconnect call",
		slog.String("action", action),
		slog.Duration("duration", time.Since(start)))

	return decodeEnvelope(action, raw, out)
}

func decodeEnvelope(action string, raw []byte, out any) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &Error{Kind: KindMalformed, Action: action, Message: "response is not a JSON object", Err: err}
	}
	if len(envelope) != 2 {
		return &Error{Kind: KindMalformed, Action: action, Message: "response has an unexpected number of fields"}
	}
	rawErr, ok := envelope["error"]
	if !ok {
		return &Error{Kind: KindMalformed, Action: action, Message: "response is missing required error field"}
	}
	rawResult, ok := envelope["result"]
	if !ok {
		return &Error{Kind: KindMalformed, Action: action, Message: "response is missing required result field"}
	}

	var appErr *string
	if err := json.Unmarshal(rawErr, &appErr); err != nil {
		return &Error{Kind: KindMalformed, Action: action, Message: "error field is not a string", Err: err}
	}
	if appErr != nil {
		return &Error{Kind: KindApplication, Action: action, Message: *appErr}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rawResult, out); err != nil {
		return &Error{Kind: KindMalformed, Action: action, Message: "unexpected result shape", Err: err}
	}
	return nil
}
