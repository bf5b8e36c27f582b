// Package httpclient provides the retrying HTTP client injected beneath
// every LangChain provider client, so timeout/backoff/logging behavior is
// uniform across providers instead of left to each provider's defaults.
package httpclient

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"
)

// Options configures the HTTP client behavior.
type Options struct {
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	MaxBackoff     time.Duration
	RequestLogger  func(method, url string, body []byte)
	ResponseLogger func(statusCode int, err error)
}

// DefaultOptions returns sensible default client options, with the 30s
// per-provider call timeout every adapter starts from.
func DefaultOptions() Options {
	return Options{
		Timeout:        30 * time.Second,
		MaxRetries:     2,
		RetryBackoff:   500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		RequestLogger:  func(_, _ string, _ []byte) {},
		ResponseLogger: func(_ int, _ error) {},
	}
}

// Client is a thin wrapper around http.Client adding retry/backoff and
// request/response logging hooks. It satisfies the single-method Do
// interface the LangChain provider clients accept in place of their
// default transport.
type Client struct {
	client  *http.Client
	options Options
}

// NewClient creates a new HTTP client with the given options.
func NewClient(options Options) *Client {
	return &Client{
		client:  &http.Client{Timeout: options.Timeout},
		options: options,
	}
}

// Do performs the request with retry/backoff, buffering the body so a
// failed attempt can be replayed. A non-2xx response is returned to the
// caller as-is: distinguishing a provider rejection from a transport
// failure is the adapter layer's job, not this one's.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		closeErr := req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to buffer request body: %w", err)
		}
		if closeErr != nil {
			return nil, closeErr
		}
		bodyBytes = b
	}
	c.options.RequestLogger(req.Method, req.URL.String(), bodyBytes)

	backoff := c.options.RetryBackoff
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= c.options.MaxRetries; attempt++ {
		if attempt > 0 {
			if resp != nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			}
			if waitErr := c.applyBackoffDelay(req.Context(), &backoff); waitErr != nil {
				c.options.ResponseLogger(0, waitErr)
				return nil, waitErr
			}
		}

		attemptReq := req.Clone(req.Context())
		if bodyBytes != nil {
			attemptReq.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			attemptReq.ContentLength = int64(len(bodyBytes))
		}

		resp, err = c.client.Do(attemptReq)
		if !c.shouldRetryRequest(statusOf(resp), err) {
			break
		}
	}

	c.options.ResponseLogger(statusOf(resp), err)
	return resp, err
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func (c *Client) applyBackoffDelay(ctx context.Context, backoff *time.Duration) error {
	maxJitter := int64(*backoff) / 2
	if maxJitter < 1 {
		maxJitter = 1
	}
	randomBig, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
	if err != nil {
		return fmt.Errorf("failed to generate secure random number: %w", err)
	}
	sleepTime := *backoff + time.Duration(randomBig.Int64())

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(sleepTime):
	}

	*backoff *= 2
	if *backoff > c.options.MaxBackoff {
		*backoff = c.options.MaxBackoff
	}
	return nil
}

// shouldRetryRequest retries network errors and 5xx/429 responses; 4xx
// (other than 429) are the caller's problem to surface, not ours to retry.
func (c *Client) shouldRetryRequest(statusCode int, err error) bool {
	if err != nil {
		return true
	}
	if statusCode >= 400 && statusCode < 500 && statusCode != 429 {
		return false
	}
	if statusCode >= 200 && statusCode < 300 {
		return false
	}
	return true
}
