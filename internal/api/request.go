package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"time"
)

// User-facing failure reasons, keyed by error class. The dashboard shows
// these verbatim, so they stay short and fixed.
const (
	ReasonUnauthorized = "Authentication required. Check your API key."
	ReasonForbidden    = "Access denied."
	ReasonNotFound     = "Requested resource not found."
	ReasonRateLimited  = "Too many requests. Slowing down."
	ReasonServerError  = "Trading backend error. Retrying."
	ReasonTimeout      = "Request timed out."
	ReasonNetwork      = "Cannot reach trading backend."
)

// APIError represents an error response from the trading backend.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// Reason returns the fixed user-facing string for this error.
func (e *APIError) Reason() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return ReasonUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return ReasonForbidden
	case e.StatusCode == http.StatusNotFound:
		return ReasonNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ReasonRateLimited
	default:
		return ReasonServerError
	}
}

// Reason classifies any error from this package into a user-facing string.
func Reason(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Reason()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonNetwork
}

// doRequest performs an HTTP request with the given method and path.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       respBody,
		}
	}

	return respBody, nil
}

// doWithRetry performs a request with exponential backoff retry.
func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		respBody, err := c.doRequest(ctx, method, path, query, body)
		if err == nil {
			return respBody, nil
		}

		lastErr = err

		// Check if error is retryable
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs a GET request with retries and decodes the envelope payload.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	respBody, err := c.doWithRetry(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}

	data, err := DecodeEnvelope(respBody)
	if err != nil {
		return err
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

// post performs a POST request with retries and returns the action response.
func (c *Client) post(ctx context.Context, path string, payload any) (*ActionResponse, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
	}

	respBody, err := c.doWithRetry(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}

	var action ActionResponse
	if err := json.Unmarshal(respBody, &action); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if !action.OK() {
		return &action, fmt.Errorf("backend rejected action: %s", action.Message)
	}

	return &action, nil
}
