package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single upstream request
const DefaultTimeout = 10 * time.Second

// maxBodySize guards against a runaway upstream response
const maxBodySize = 64 << 20

// Transport retrieves raw feed payloads
type Transport interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPTransport fetches feeds over HTTP with the MTA API key header
type HTTPTransport struct {
	apiKey     string
	userAgent  string
	httpClient *http.Client
}

// NewHTTPTransport creates a transport. A timeout of zero uses DefaultTimeout.
func NewHTTPTransport(apiKey, userAgent string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTransport{
		apiKey:    apiKey,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch issues a GET and returns the body of a 2xx response
func (t *HTTPTransport) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if t.apiKey != "" {
		req.Header.Set("x-api-key", t.apiKey)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
