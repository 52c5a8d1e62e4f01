package embedding

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"bugsort/internal/config"
	"bugsort/internal/services"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultCacheTTL    = time.Hour
)

// Config holds the endpoint settings.
type Config struct {
	URL            string
	APIKey         string
	Model          string
	TimeoutSeconds int
	CacheMinutes   int
}

// Client posts screenshots to an embedding endpoint and returns the vector.
// Results are cached by content hash, so byte-identical images are embedded
// once per TTL.
type Client struct {
	cfg   Config
	http  *http.Client
	cache *gocache.Cache
	retry backoff
}

var _ services.ImageEmbedder = (*Client)(nil)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRetryMaxAttempts caps total attempts per image.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) { c.retry.attempts = attempts }
}

// WithRetryBackoff sets the first delay and the ceiling.
func WithRetryBackoff(base, ceiling time.Duration) Option {
	return func(c *Client) { c.retry.base, c.retry.max = base, ceiling }
}

// WithSleeper replaces time-based sleeping, for tests.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(c *Client) { c.retry.sleep = sleep }
}

// NewClient constructs an embedding client. Four attempts with delays from
// 500ms up to 8s are the default.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)

	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	ttl := defaultCacheTTL
	if cfg.CacheMinutes > 0 {
		ttl = time.Duration(cfg.CacheMinutes) * time.Minute
	}
	c := &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: timeout},
		cache: gocache.New(ttl, 2*ttl),
		retry: backoff{attempts: 4, base: 500 * time.Millisecond, max: 8 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from the embedding config section. It
// returns nil when embedding is disabled.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	if cfg == nil || !cfg.Embedding.Enabled {
		return nil
	}
	e := cfg.Embedding
	return NewClient(Config{
		URL:            e.URL,
		APIKey:         e.APIKey,
		Model:          e.Model,
		TimeoutSeconds: e.TimeoutSeconds,
		CacheMinutes:   e.CacheMinutes,
	}, opts...)
}

type embedRequest struct {
	Model string `json:"model,omitempty"`
	Image string `json:"image"`
}

// embedResponse accepts both {"embedding":[...]} and the
// {"data":[{"embedding":[...]}]} envelope.
type embedResponse struct {
	Embedding []float64 `json:"embedding"`
	Data      []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (r embedResponse) vector() []float64 {
	if len(r.Embedding) == 0 && len(r.Data) > 0 {
		return r.Data[0].Embedding
	}
	return r.Embedding
}

type statusError struct {
	code       int
	body       string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("embedding request: http %d: %s", e.code, strings.TrimSpace(e.body))
}

// EmbedImage returns the embedding for the image at path. Every failure is
// tagged ErrExternalCall except an unreadable image, which is ErrInput.
func (c *Client) EmbedImage(ctx context.Context, imagePath string) ([]float64, error) {
	if c.cfg.URL == "" {
		return nil, services.Wrap(services.ErrExternalCall, "embedding", "embed", "endpoint url not configured", nil)
	}
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "embedding", "embed", imagePath, err)
	}
	sum := sha256.Sum256(data)
	key := c.cfg.Model + ":" + hex.EncodeToString(sum[:])
	if cached, ok := c.cache.Get(key); ok {
		return slices.Clone(cached.([]float64)), nil
	}

	body, err := json.Marshal(embedRequest{Model: c.cfg.Model, Image: base64.StdEncoding.EncodeToString(data)})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalCall, "embedding", "embed", "encode body", err)
	}
	vector, err := c.retry.run(ctx, func() ([]float64, error) { return c.post(ctx, body) })
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(services.ErrTimeout, err)
		}
		return nil, services.Wrap(services.ErrExternalCall, "embedding", "embed", imagePath, err)
	}
	c.cache.Set(key, vector, gocache.DefaultExpiration)
	return slices.Clone(vector), nil
}

// CachedItems reports how many vectors are cached.
func (c *Client) CachedItems() int {
	return c.cache.ItemCount()
}

func (c *Client) post(ctx context.Context, body []byte) ([]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request (timeout=%s): %w", c.http.Timeout, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedding request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &statusError{
			code:       resp.StatusCode,
			body:       string(payload),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var parsed embedResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("embedding request: decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("embedding request: api error: %s", strings.TrimSpace(parsed.Error.Message))
	}
	vector := parsed.vector()
	if len(vector) == 0 {
		return nil, errors.New("embedding request: empty vector")
	}
	if slices.ContainsFunc(vector, func(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }) {
		return nil, errors.New("embedding request: vector contains non-finite values")
	}
	return vector, nil
}
