package feed

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/erp/equipsync/internal/domain/integration"
)

// Defaults applied by Validate to zero-valued fields
const (
	DefaultListPath           = "/v1/inventory/items"
	DefaultPageSize           = 100
	DefaultMinRequestInterval = 250 * time.Millisecond
	DefaultMaxAttempts        = 5
	DefaultRateLimitBackoff   = 2 * time.Second
	DefaultRetryBackoff       = 500 * time.Millisecond
	DefaultMaxRetryWait       = 60 * time.Second
	DefaultMaxPages           = 1000
	DefaultTimeout            = 30 * time.Second
)

// Config holds the upstream inventory feed settings
type Config struct {
	// BaseURL is the scheme and host of the feed API
	BaseURL string
	// ListPath is the listing endpoint path appended to BaseURL
	ListPath string
	// APIKey is sent as a bearer token
	APIKey   string
	PageSize int
	// MinRequestInterval is the rate floor between consecutive requests
	MinRequestInterval time.Duration
	// MaxAttempts bounds the tries per page, the first try included
	MaxAttempts int
	// RateLimitBackoff is the wait after a 429 that carries no reset hint
	RateLimitBackoff time.Duration
	// RetryBackoff is the first wait after any other failed response
	RetryBackoff time.Duration
	// MaxRetryWait caps any single wait, upstream reset hints included
	MaxRetryWait time.Duration
	// MaxPages stops a provider that never signals the last page
	MaxPages int
	// Timeout applies to each HTTP request
	Timeout time.Duration
}

// Validate checks required fields and fills defaults.
// Every failure wraps integration.ErrConfiguration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: feed api key is required", integration.ErrConfiguration)
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: feed base url is required", integration.ErrConfiguration)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: invalid feed base url %q", integration.ErrConfiguration, c.BaseURL)
	}

	if c.ListPath == "" {
		c.ListPath = DefaultListPath
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MinRequestInterval <= 0 {
		c.MinRequestInterval = DefaultMinRequestInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RateLimitBackoff <= 0 {
		c.RateLimitBackoff = DefaultRateLimitBackoff
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.MaxRetryWait <= 0 {
		c.MaxRetryWait = DefaultMaxRetryWait
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}

// listURL joins the base URL and list path
func (c *Config) listURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.ListPath, "/")
}
