package httpclient

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Client interface for making HTTP requests
type Client interface {
	Do(ctx context.Context, url string, method string, headers map[string]string, body io.Reader, timeout time.Duration) (*http.Response, error)
}

// clientImpl implements the Client interface
type clientImpl struct {
	userAgent string
	http      *http.Client
}

// New creates a new HTTP client
func New(userAgent string) Client {
	return &clientImpl{
		userAgent: userAgent,
		http:      &http.Client{},
	}
}

// Do performs an HTTP request and returns the response. A positive timeout
// bounds the whole exchange, including reading the body.
func (c *clientImpl) Do(ctx context.Context, url string, method string, headers map[string]string, body io.Reader, timeout time.Duration) (*http.Response, error) {
	client := c.http
	if timeout > 0 {
		client = &http.Client{Timeout: timeout, Transport: c.http.Transport}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return client.Do(req)
}
