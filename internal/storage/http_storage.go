package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const httpAttempts = 3

// HTTPTableSource downloads a rule table over HTTP(S) with retries on
// transient failures.
type HTTPTableSource struct {
	url     string
	client  *http.Client
	backoff func(attempt int) time.Duration
}

// HTTPOption customises an HTTPTableSource.
type HTTPOption func(*HTTPTableSource)

// WithBackoff replaces the default 1s, 2s retry schedule.
func WithBackoff(backoff func(attempt int) time.Duration) HTTPOption {
	return func(s *HTTPTableSource) { s.backoff = backoff }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPTableSource) { s.client = client }
}

func NewHTTPTableSource(url string, opts ...HTTPOption) *HTTPTableSource {
	transport := &http.Transport{
		MaxIdleConns:           4,
		MaxIdleConnsPerHost:    1,
		IdleConnTimeout:        30 * time.Second,
		TLSHandshakeTimeout:    10 * time.Second,
		ResponseHeaderTimeout:  10 * time.Second,
		ExpectContinueTimeout:  1 * time.Second,
		MaxResponseHeaderBytes: 4096,
	}

	s := &HTTPTableSource{
		url: url,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * time.Second
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPTableSource) Describe() string {
	return "http:" + s.url
}

func (s *HTTPTableSource) Load(ctx context.Context) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < httpAttempts; attempt++ {
		data, retry, err := s.fetch(ctx)
		if err == nil {
			return data, nil
		}
		lastErr = err

		// 4xx and context errors are not retried
		if !retry || attempt == httpAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rule table download cancelled: %w", ctx.Err())
		case <-time.After(s.backoff(attempt)):
		}
	}

	return nil, fmt.Errorf("failed to fetch rule table: %w", lastErr)
}

// fetch performs a single attempt and reports whether a failure is retryable.
func (s *HTTPTableSource) fetch(ctx context.Context) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "application/yaml, application/json, text/plain, */*")
	req.Header.Set("User-Agent", "Frame-Classifier/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := readTable(resp.Body)
		return data, false, err
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
}
