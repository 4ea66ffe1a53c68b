package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/kanjigate/internal/config"
	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/enrich"
	"github.com/phrazzld/kanjigate/internal/redact"
	"google.golang.org/genai"
)

// Source is recorded on every enrichment produced by this package.
const Source = "gemini"

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
)

// ContentGenerator is the subset of the genai client used here.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Enricher asks a Gemini model for enrichment text.
type Enricher struct {
	logger     *slog.Logger
	models     ContentGenerator
	model      string
	maxRetries int
	baseDelay  time.Duration
	now        func() time.Time
}

var _ enrich.Enricher = (*Enricher)(nil)

// New creates an Enricher that calls models with the configured model name.
func New(models ContentGenerator, cfg config.LLMConfig, logger *slog.Logger) (*Enricher, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if models == nil {
		return nil, fmt.Errorf("%w: content generator cannot be nil", enrich.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", enrich.ErrInvalidConfig)
	}

	e := &Enricher{
		logger:     logger.With(slog.String("component", "gemini")),
		models:     models,
		model:      cfg.ModelName,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		now:        time.Now,
	}
	if e.maxRetries < 0 {
		e.logger.Warn("invalid max retries value, using default", slog.Int("max_retries", defaultMaxRetries))
		e.maxRetries = defaultMaxRetries
	}
	if e.baseDelay <= 0 {
		e.baseDelay = defaultBaseDelay
	}
	return e, nil
}

// NewFromConfig creates a genai client for the Gemini API backend and wraps
// it in an Enricher.
func NewFromConfig(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Enricher, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", enrich.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %w", enrich.ErrInvalidConfig, err)
	}
	return New(client.Models, cfg, logger)
}

// Lookup implements enrich.Enricher.
func (e *Enricher) Lookup(ctx context.Context, kind domain.EnrichmentKind, key string) (*domain.Enrichment, error) {
	if err := enrich.Validate(kind, key); err != nil {
		return nil, err
	}
	key = strings.TrimSpace(key)

	prompt, err := buildPrompt(kind, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", enrich.ErrInvalidConfig, err)
	}

	resp, err := e.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result := &domain.Enrichment{Kind: kind, Key: key, Source: Source, FetchedAt: e.now().UTC()}
	switch kind {
	case domain.EnrichmentCharacter:
		result.Keyword = strings.TrimSpace(resp.Keyword)
		result.Text = strings.TrimSpace(resp.Mnemonic)
	case domain.EnrichmentVocabulary:
		result.Text = strings.TrimSpace(resp.Description)
	}
	if result.IsEmpty() {
		return nil, enrich.ErrNoResult
	}
	return result, nil
}

// callWithRetry sends prompt and parses the JSON answer. Transient failures
// are retried up to maxRetries times with delay
// baseDelay * 2^attempt * [0.5, 1.0).
func (e *Enricher) callWithRetry(ctx context.Context, prompt string) (*responseSchema, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	genConfig := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		e.logger.DebugContext(ctx, "making Gemini API call",
			slog.Int("attempt", attemptNum),
			slog.Int("max_attempts", e.maxRetries+1))

		resp, err := e.models.GenerateContent(ctx, e.model, contents, genConfig)
		if err == nil {
			parsed, parseErr := parseResponse(resp)
			if parseErr != nil {
				e.logger.WarnContext(ctx, "permanent Gemini error, not retrying",
					slog.String("error", parseErr.Error()))
				return nil, parseErr
			}
			return parsed, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isPermanent(err) {
			return nil, fmt.Errorf("%w: %w", enrich.ErrLookupFailed, err)
		}
		err = fmt.Errorf("%w: %w", enrich.ErrTransientFailure, err)

		e.logger.WarnContext(ctx, "Gemini API call failed",
			slog.Int("attempt", attemptNum),
			slog.String("error", redact.Error(err)))

		if attempt >= e.maxRetries {
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d)", err, e.maxRetries)
		}

		backoff := float64(e.baseDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rand.Float64()*0.5))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			e.logger.WarnContext(ctx, "Gemini call cancelled during retry delay",
				slog.Int("attempt", attemptNum))
			return nil, ctx.Err()
		}
	}
}

func parseResponse(resp *genai.GenerateContentResponse) (*responseSchema, error) {
	switch {
	case resp == nil:
		return nil, fmt.Errorf("%w: nil response", enrich.ErrInvalidResponse)
	case len(resp.Candidates) == 0 || resp.Candidates[0] == nil:
		return nil, fmt.Errorf("%w: no content generated", enrich.ErrInvalidResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return nil, enrich.ErrContentBlocked
	case resp.Candidates[0].Content == nil:
		return nil, fmt.Errorf("%w: empty content in response", enrich.ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	var parsed responseSchema
	if err := json.Unmarshal([]byte(stripFence(text.String())), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %w", enrich.ErrInvalidResponse, err)
	}
	return &parsed, nil
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// isPermanent reports whether an API error will not go away on retry:
// bad requests, authentication and missing models. Anything else is treated
// as transient.
func isPermanent(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	default:
		return false
	}
}
