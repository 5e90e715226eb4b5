package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultUserAgent = "passport/0.1"
	// DefaultMaxBodyBytes caps a response body; larger bodies fail.
	DefaultMaxBodyBytes int64 = 32 << 20
)

// ErrBodyTooLarge is returned for responses above the client's body limit.
// It is permanent: the same URL would return the same body again.
var ErrBodyTooLarge = errors.New("response body too large")

// NetworkError is returned once every attempt of a fetch has failed.
type NetworkError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: giving up after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError is an HTTP response with a status code >= 400.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// retryable reports whether another attempt could succeed.
func (e *StatusError) retryable() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// Client performs timeout-bounded GET requests with retries.
type Client struct {
	HTTP         *http.Client
	Policy       Policy
	UserAgent    string
	MaxBodyBytes int64 // <= 0 uses DefaultMaxBodyBytes
	Logger       *slog.Logger
}

// NewClient returns a Client using policy and a fresh http.Client. Timeouts
// are applied per attempt through the request context.
func NewClient(policy Policy) *Client {
	return &Client{
		HTTP:      &http.Client{},
		Policy:    policy.normalized(),
		UserAgent: defaultUserAgent,
		Logger:    slog.Default().With("component", "fetch"),
	}
}

// FetchBytes downloads url and returns the body.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return c.fetch(ctx, url, "*/*", func(body []byte) error { return nil })
}

// FetchJSON downloads url and decodes the body into dest. A body that fails
// to decode counts as a failed attempt.
func (c *Client) FetchJSON(ctx context.Context, url string, dest any) error {
	_, err := c.fetch(ctx, url, "application/json", func(body []byte) error {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
	return err
}

// FetchRaw downloads url expecting JSON and returns the undecoded body for
// callers that read fields selectively.
func (c *Client) FetchRaw(ctx context.Context, url string) ([]byte, error) {
	return c.fetch(ctx, url, "application/json", func(body []byte) error {
		if !json.Valid(body) {
			return errors.New("decode response: invalid json")
		}
		return nil
	})
}

func (c *Client) fetch(ctx context.Context, url, accept string, check func([]byte) error) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	policy := c.Policy.normalized()
	attempts := 0

	operation := func() ([]byte, error) {
		attempts++
		body, err := c.attempt(ctx, policy.Timeout, url, accept)
		if err == nil {
			err = check(body)
		}
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		var status *StatusError
		if errors.As(err, &status) && !status.retryable() {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(&linearBackOff{policy: policy}),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger().Debug("retrying fetch", "url", url, "attempt", attempts, "wait", wait, "error", err)
		}),
	)
	if err == nil {
		return body, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, ctxErr)
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return nil, &NetworkError{URL: url, Attempts: attempts, Err: err}
}

// attempt runs a single request bounded by timeout.
func (c *Client) attempt(ctx context.Context, timeout time.Duration, url, accept string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.UserAgent)

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, backoff.Permanent(fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit))
	}
	return body, nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
