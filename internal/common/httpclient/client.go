// internal/common/httpclient/client.go
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	ErrRequestFailed  = errors.New("REQUEST_FAILED")
	ErrRequestTimeout = errors.New("REQUEST_TIMEOUT")
)

// Client is a JSON HTTP client with bounded per-call timeouts and
// exponential-backoff retries. Retries apply only when the caller says the
// request is idempotent.
type Client struct {
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

func New(timeout time.Duration, maxRetries int, retryDelay time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// DoJSON sends body (when non-nil) as JSON and decodes the response into
// out (when non-nil). Non-2xx statuses count as failures. Writes must pass
// idempotent=false so they are never retried.
func (c *Client) DoJSON(ctx context.Context, method, url string, body, out interface{}, idempotent bool) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrRequestFailed, err)
		}
	}

	attempts := 1
	if idempotent {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := c.retryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ErrRequestTimeout
			}
		}

		lastErr = c.doOnce(ctx, method, url, payload, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || errors.Is(lastErr, ErrRequestTimeout) {
			return ErrRequestTimeout
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, url string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return ErrRequestTimeout
		}
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrRequestFailed, err)
		}
	}
	return nil
}
