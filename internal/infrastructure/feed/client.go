package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/erp/equipsync/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the feed API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// ErrPaginationLoop indicates the provider returned the same cursor twice
var ErrPaginationLoop = errors.New("feed: cursor did not advance")

// RequestObserver is notified of every upstream response
type RequestObserver interface {
	ObserveFeedRequest(ctx context.Context, statusCode int)
}

// Client implements integration.InventoryFeed over the paginated HTTP listing
type Client struct {
	config     Config
	httpClient *http.Client
	observer   RequestObserver
	logger     *zap.Logger
	now        func() time.Time
}

var _ integration.InventoryFeed = (*Client)(nil)

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRequestObserver reports every upstream response status
func WithRequestObserver(o RequestObserver) ClientOption {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient creates a feed client. The config is not validated here: a
// missing credential surfaces as ErrConfiguration from FetchAll.
func NewClient(config Config, logger *zap.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		config: config,
		logger: logger.Named("feed_client"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return c
}

// FetchAll walks every page of the listing and returns the full item list.
// It never returns a partial listing.
func (c *Client) FetchAll(ctx context.Context, query integration.FeedQuery) ([]integration.ExternalItem, error) {
	cfg := c.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := c.newSession(cfg)
	items := make([]integration.ExternalItem, 0, cfg.PageSize)
	cursor := ""

	for pageNum := 1; ; pageNum++ {
		if pageNum > cfg.MaxPages {
			return nil, fmt.Errorf("%w: page limit %d reached without a final page",
				integration.ErrInvalidFeedResponse, cfg.MaxPages)
		}

		body, err := s.fetchPage(ctx, query, cursor, pageNum)
		if err != nil {
			return nil, err
		}
		p, err := decodePage(body)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}
		items = append(items, p.Items...)

		s.log.Debug("Feed page fetched",
			zap.Int("page", pageNum),
			zap.String("shape", p.Shape),
			zap.Int("items", len(p.Items)),
			zap.String("next_cursor", p.NextCursor),
		)

		if len(p.Items) == 0 || p.NextCursor == "" || (p.HasMore != nil && !*p.HasMore) {
			break
		}
		if p.NextCursor == cursor {
			return nil, fmt.Errorf("%w: %w at page %d", integration.ErrInvalidFeedResponse, ErrPaginationLoop, pageNum)
		}
		cursor = p.NextCursor
	}

	s.log.Info("Feed listing fetched", zap.Int("items", len(items)))
	return items, nil
}

// ---------------------------------------------------------------------------
// Per-run session
// ---------------------------------------------------------------------------

// session holds the rate limiter and retry policy of one FetchAll call.
// It is created per run and discarded with it.
type session struct {
	client  *Client
	cfg     Config
	limiter *rate.Limiter
	log     *zap.Logger
}

func (c *Client) newSession(cfg Config) *session {
	return &session{
		client:  c,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.MinRequestInterval), 1),
		log:     c.logger,
	}
}

// waitHintError carries an explicit wait for the next retry alongside the cause
type waitHintError struct {
	err  error
	wait *backoff.RetryAfterError
}

func (e *waitHintError) Error() string   { return e.err.Error() }
func (e *waitHintError) Unwrap() []error { return []error{e.err, e.wait} }

func (s *session) retryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryBackoff
	b.MaxInterval = s.cfg.MaxRetryWait
	return b
}

// fetchPage requests one page, retrying failed responses up to MaxAttempts.
func (s *session) fetchPage(ctx context.Context, query integration.FeedQuery, cursor string, pageNum int) ([]byte, error) {
	attempt := 0
	op := func() ([]byte, error) {
		attempt++
		return s.doRequest(ctx, query, cursor)
	}
	notify := func(err error, wait time.Duration) {
		s.log.Warn("Feed request failed, retrying",
			zap.Int("page", pageNum),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	body, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(s.retryPolicy()),
		backoff.WithMaxTries(uint(s.cfg.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err != nil {
		if errors.Is(err, integration.ErrRateLimitExceeded) ||
			errors.Is(err, integration.ErrFeedUnavailable) ||
			errors.Is(err, integration.ErrInvalidFeedResponse) {
			return nil, fmt.Errorf("page %d after %d attempts: %w", pageNum, attempt, err)
		}
		return nil, fmt.Errorf("%w: page %d: %w", integration.ErrFeedUnavailable, pageNum, err)
	}
	return body, nil
}

// doRequest performs one HTTP request, honoring the rate floor first
func (s *session) doRequest(ctx context.Context, query integration.FeedQuery, cursor string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(err)
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(s.cfg.PageSize))
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	for _, loc := range query.LocationIDs {
		params.Add("location_id", loc)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.listURL()+"?"+params.Encode(), nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: %v", integration.ErrConfiguration, err))
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		s.observe(ctx, 0)
		return nil, fmt.Errorf("%w: %v", integration.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()
	s.observe(ctx, resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", integration.ErrFeedUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		wait, hinted := resetHint(resp.Header, s.client.now())
		if !hinted {
			wait = s.cfg.RateLimitBackoff
		}
		return nil, &waitHintError{
			err:  fmt.Errorf("%w: HTTP 429", integration.ErrRateLimitExceeded),
			wait: &backoff.RetryAfterError{Duration: min(wait, s.cfg.MaxRetryWait)},
		}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrFeedUnavailable, resp.StatusCode)
	}

	if len(body) > maxResponseSize {
		return nil, backoff.Permanent(fmt.Errorf("%w: response exceeds %d bytes",
			integration.ErrInvalidFeedResponse, maxResponseSize))
	}
	return body, nil
}

func (s *session) observe(ctx context.Context, status int) {
	if s.client.observer != nil {
		s.client.observer.ObserveFeedRequest(ctx, status)
	}
}

// resetHint reads the upstream reset hint from Retry-After (seconds or
// HTTP date) or X-RateLimit-Reset (seconds, or a unix timestamp).
func resetHint(h http.Header, now time.Time) (time.Duration, bool) {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second, true
		}
		if at, err := http.ParseTime(v); err == nil {
			return max(at.Sub(now), 0), true
		}
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err == nil && n >= 0 {
			if n > 1e9 {
				return max(time.Unix(int64(n), 0).Sub(now), 0), true
			}
			return time.Duration(n * float64(time.Second)), true
		}
	}
	return 0, false
}
