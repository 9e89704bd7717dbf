// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/stackalchemy/tasks"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com"

	// DefaultBranch is used when the repository metadata has no default branch.
	DefaultBranch = "main"

	// DefaultConcurrency bounds parallel file downloads.
	DefaultConcurrency = 5

	// DefaultMaxFileSize skips blobs larger than 1 MiB.
	DefaultMaxFileSize = 1 << 20

	apiVersion = "2022-11-28"
	userAgent  = "stackalchemy"
)

// DefaultIgnorePatterns are paths never indexed.
var DefaultIgnorePatterns = []string{
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"bun.lockb",
	"node_modules/**",
	"dist/**",
	"build/**",
	".next/**",
	"coverage/**",
}

// Client talks to the GitHub REST API with client side rate limiting.
type Client struct {
	baseURL        string
	token          string
	httpClient     *http.Client
	limiter        *rate.Limiter
	concurrency    int
	maxFileSize    int
	ignorePatterns []string
	maxAttempts    int
	baseDelay      time.Duration
	logger         *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at another API root, such as a GitHub
// Enterprise server or a test fake.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("github: invalid base URL %q", baseURL)
		}
		c.baseURL = strings.TrimSuffix(baseURL, "/")
		return nil
	}
}

// WithToken sets the token used when a call does not supply its own.
func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// WithHTTPClient sets the underlying HTTP client.
// Default has a 30 second timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("github: http client is nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithRateLimit sets the sustained request rate and burst.
// Default is 10 requests per second with a burst of 5.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) error {
		if perSecond <= 0 || burst < 1 {
			return fmt.Errorf("github: invalid rate limit %v/%d", perSecond, burst)
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		return nil
	}
}

// WithConcurrency sets how many files are downloaded at once.
// Default is DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(c *Client) error {
		if n < 1 {
			n = 1
		}
		c.concurrency = n
		return nil
	}
}

// WithMaxFileSize sets the largest blob, in bytes, that is downloaded.
// Zero disables the limit.
func WithMaxFileSize(size int) Option {
	return func(c *Client) error {
		if size < 0 {
			return fmt.Errorf("github: max file size cannot be negative")
		}
		c.maxFileSize = size
		return nil
	}
}

// WithIgnorePatterns replaces the ignore list.
func WithIgnorePatterns(patterns ...string) Option {
	return func(c *Client) error {
		c.ignorePatterns = append([]string(nil), patterns...)
		return nil
	}
}

// WithRetry sets how often transient failures are retried.
// Default is 3 attempts starting at 500ms.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Client) error {
		if maxAttempts <= 0 {
			return tasks.ErrInvalidMaxAttempts
		}
		c.maxAttempts = maxAttempts
		c.baseDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewClient creates a GitHub client.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:        DefaultBaseURL,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		limiter:        rate.NewLimiter(rate.Limit(10), 5),
		concurrency:    DefaultConcurrency,
		maxFileSize:    DefaultMaxFileSize,
		ignorePatterns: DefaultIgnorePatterns,
		maxAttempts:    3,
		baseDelay:      500 * time.Millisecond,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "github")
	return c, nil
}

// get fetches path and decodes the JSON body into out. Retryable failures
// are retried with backoff; everything else is returned on the first attempt.
func (c *Client) get(ctx context.Context, token, path string, query url.Values, out any) error {
	return tasks.RetryWithBackoff(ctx, func() error {
		err := c.getOnce(ctx, token, path, query, out)
		if err != nil && !IsRetryable(err) {
			return tasks.Permanent(err)
		}
		return err
	}, c.maxAttempts, c.baseDelay)
}

func (c *Client) getOnce(ctx context.Context, token, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &APIError{Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read body: %v", err), Retryable: true}
	}

	if resp.StatusCode >= 400 {
		c.logger.Debug("github request failed", "path", path, "status", resp.StatusCode)
		return mapStatus(resp, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func mapStatus(resp *http.Response, body []byte) error {
	switch code := resp.StatusCode; {
	case code == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return &APIError{StatusCode: code, Message: "rate limit exceeded", Retryable: true}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAccessDenied
	case code == http.StatusNotFound:
		return ErrRepositoryNotFound
	case code == http.StatusTooManyRequests:
		return &APIError{StatusCode: code, Message: "rate limit exceeded", Retryable: true}
	case code >= 500:
		return &APIError{StatusCode: code, Message: strings.TrimSpace(string(body)), Retryable: true}
	default:
		return &APIError{StatusCode: code, Message: strings.TrimSpace(string(body))}
	}
}
