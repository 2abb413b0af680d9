// Package datasource fetches index constituent lists, price history,
// company metadata and financial statements from public web sources.
// Every failure is reported as a typed *Error so callers can turn it into
// a displayable message instead of aborting.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrorKind classifies an upstream failure.
type ErrorKind string

const (
	KindNetwork      ErrorKind = "network"       // transport failure or HTTP status >= 400
	KindParse        ErrorKind = "parse"         // body could not be decoded
	KindMissingField ErrorKind = "missing_field" // expected column, row or field absent
	KindUpstream     ErrorKind = "upstream"      // provider returned an error object
)

// Error is the error type returned by every data source in this package.
type Error struct {
	Kind   ErrorKind
	Op     string   // what was being fetched, e.g. "S&P 500 symbol list"
	Fields []string // for KindMissingField
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindMissingField && len(e.Fields) > 0:
		return fmt.Sprintf("%s: missing %s", e.Op, strings.Join(e.Fields, ", "))
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func missingFields(op string, fields ...string) *Error {
	return &Error{Kind: KindMissingField, Op: op, Fields: fields}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Describe turns an error into sidebar-ready sentences, one per underlying
// failure when err joins several.
func Describe(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, Describe(e)...)
		}
		return out
	}

	var e *Error
	if !errors.As(err, &e) {
		return []string{err.Error()}
	}
	switch e.Kind {
	case KindNetwork:
		return []string{fmt.Sprintf("Could not load %s: %v", e.Op, e.Err)}
	case KindParse:
		return []string{fmt.Sprintf("Could not read %s: %v", e.Op, e.Err)}
	case KindMissingField:
		return []string{fmt.Sprintf("%s is missing: %s", e.Op, strings.Join(e.Fields, ", "))}
	default:
		return []string{fmt.Sprintf("%s failed: %v", e.Op, e.Err)}
	}
}

// ErrTickerNotFound is returned when the provider knows nothing about a symbol.
var ErrTickerNotFound = errors.New("ticker not found")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// HTTPClient performs the GET requests of every source. It keeps a cookie
// jar so the provider's session cookie survives between calls.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter // nil is unlimited
}

// NewHTTPClient creates a client with the given timeout and user agent.
// An empty user agent selects DefaultUserAgent.
func NewHTTPClient(timeout time.Duration, userAgent string) *HTTPClient {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	jar, _ := cookiejar.New(nil) // never fails with nil options
	return &HTTPClient{
		client:    &http.Client{Timeout: timeout, Jar: jar},
		userAgent: userAgent,
	}
}

// NewRateLimiter allows perSecond requests per second with the given burst.
// It returns nil, meaning unlimited, when perSecond is not positive.
func NewRateLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
}

// SetRateLimiter spaces out every request made through the client.
func (c *HTTPClient) SetRateLimiter(rl *rate.Limiter) { c.limiter = rl }

// Client exposes the underlying *http.Client for libraries that take one.
func (c *HTTPClient) Client() *http.Client { return c.client }

// do performs a GET and returns the response whatever its status.
func (c *HTTPClient) do(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	return resp, nil
}

// get performs a GET request, returning the body for statuses below 400.
// The caller is responsible for closing the returned ReadCloser.
func (c *HTTPClient) get(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, int, error) {
	resp, err := c.do(ctx, url, headers)
	if err != nil {
		return nil, 0, err
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, resp.StatusCode, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, resp.StatusCode, nil
}

// getBytes is get followed by a full read of the body.
func (c *HTTPClient) getBytes(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	body, _, err := c.get(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}
