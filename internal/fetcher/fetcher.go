// Package fetcher downloads upstream images and fonts with bounded retry.
package fetcher

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/newsroom-api/internal/config"
	"github.com/newsroom-api/internal/metrics"
	"github.com/newsroom-api/pkg/apperr"
	"github.com/rs/zerolog"
)

// DefaultUserAgent mimics a desktop browser; Drive rejects unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome Safari"

// PlaceholderPNG is a 1x1 transparent PNG.
var PlaceholderPNG = []byte{
	137, 80, 78, 71, 13, 10, 26, 10, 0, 0, 0, 13, 73, 72, 68, 82,
	0, 0, 0, 1, 0, 0, 0, 1, 8, 6, 0, 0, 0, 31, 21, 196,
	137, 0, 0, 0, 10, 73, 68, 65, 84, 120, 156, 99, 0, 1, 0, 0,
	5, 0, 1, 13, 10, 45, 180, 0, 0, 0, 0, 73, 69, 78, 68, 174,
	66, 96, 130,
}

var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// ErrTooLarge is returned when a body exceeds the configured limit.
var ErrTooLarge = errors.New("response body too large")

// Asset is a fetched upstream resource.
type Asset struct {
	Body        []byte
	ContentType string
}

// DataURL encodes the asset as a base64 data URL. fallbackType is used
// when upstream sent no content type.
func (a *Asset) DataURL(fallbackType string) string {
	ct := a.ContentType
	if ct == "" {
		ct = fallbackType
	}
	return DataURL(a.Body, ct)
}

// DataURL encodes body as data:<contentType>;base64,...
func DataURL(body []byte, contentType string) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(body)
}

// DecodeDataURL reverses DataURL.
func DecodeDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data url")
	}
	ct, isB64 := strings.CutSuffix(meta, ";base64")
	if !isB64 {
		return []byte(payload), ct, nil
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data url: %w", err)
	}
	return b, ct, nil
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return apperr.NewFieldError("url", "Invalid url")
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return apperr.NewFieldError("url", "Invalid url")
	}
	return nil
}

// Client fetches upstream assets.
type Client struct {
	http        *http.Client
	limiter     *HostRateLimiter
	maxAttempts int
	retryDelay  time.Duration
	maxBytes    int64
	userAgent   string
	log         zerolog.Logger
}

// New creates a Client from configuration.
func New(cfg config.FetchConfig, log zerolog.Logger) *Client {
	c := &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		maxBytes:    cfg.MaxBytes,
		userAgent:   cfg.UserAgent,
		log:         log.With().Str("component", "fetcher").Logger(),
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = 1
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if cfg.HostInterval > 0 {
		c.limiter = NewHostRateLimiter(cfg.HostInterval)
	}
	return c
}

// WithHTTPClient swaps the underlying client, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// Fetch downloads rawURL. Transient failures (429, 500, 502, 503, 504 and
// network errors) are retried with a linearly growing delay. Any final
// failure is an *apperr.UpstreamAssetError. kind labels metrics.
func (c *Client) Fetch(ctx context.Context, rawURL, kind string) (*Asset, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, apperr.NewUpstreamAssetError(rawURL, 0, err)
	}

	var lastErr error
	attempt := 0
	operation := func() (*Asset, error) {
		attempt++
		asset, status, err := c.do(ctx, rawURL)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil || (status != 0 && !retryableStatus[status]) || errors.Is(err, ErrTooLarge) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return asset, nil
	}
	notify := func(err error, next time.Duration) {
		metrics.RecordRetry()
		c.log.Debug().
			Err(err).
			Str("url", rawURL).
			Int("attempt", attempt).
			Dur("next", next).
			Msg("Upstream fetch failed, retrying")
	}

	asset, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(&linearBackOff{step: c.retryDelay}),
		backoff.WithMaxTries(uint(c.maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err == nil {
		metrics.RecordFetch(kind, "ok")
		return asset, nil
	}
	if lastErr == nil {
		lastErr = err
	}

	metrics.RecordFetch(kind, "error")
	c.log.Warn().Err(lastErr).Str("url", rawURL).Str("kind", kind).Msg("Upstream fetch failed")

	var ua *apperr.UpstreamAssetError
	if errors.As(lastErr, &ua) {
		return nil, ua
	}
	return nil, apperr.NewUpstreamAssetError(rawURL, 0, lastErr)
}

// do performs one attempt. status is non-zero when the server answered.
func (c *Client) do(ctx context.Context, rawURL string) (*Asset, int, error) {
	if c.limiter != nil {
		if err := c.limiter.WaitForHost(ctx, rawURL); err != nil {
			return nil, 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, apperr.NewUpstreamAssetError(rawURL, resp.StatusCode, nil)
	}

	var body io.Reader = resp.Body
	if c.maxBytes > 0 {
		body = io.LimitReader(resp.Body, c.maxBytes+1)
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}
	if c.maxBytes > 0 && int64(len(b)) > c.maxBytes {
		return nil, resp.StatusCode, ErrTooLarge
	}

	return &Asset{Body: b, ContentType: resp.Header.Get("Content-Type")}, resp.StatusCode, nil
}

// linearBackOff waits step, 2*step, 3*step... between attempts.
type linearBackOff struct {
	step time.Duration
	n    int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return b.step * time.Duration(b.n)
}

func (b *linearBackOff) Reset() { b.n = 0 }
