package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"zlibsearch/internal/search"
)

// Client talks to a running search API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient returns a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	t := &http.Transport{
		MaxIdleConns:      10,
		IdleConnTimeout:   90 * time.Second,
		ForceAttemptHTTP2: true,
	}
	return &Client{baseURL: baseURL, client: &http.Client{Transport: t, Timeout: timeout}}
}

// StatusError is returned for non-2xx answers.
type StatusError struct {
	Status int
	Body   ErrorBody
}

func (e *StatusError) Error() string {
	if e.Body.Message != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Body.Code, e.Body.Message)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

// Health calls GET / and returns nil on 200.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusOK {
		return &StatusError{Status: res.StatusCode}
	}
	return nil
}

// Search calls GET /search. A nil limit leaves the server default in place.
func (c *Client) Search(ctx context.Context, query string, limit *uint) (*search.Result, error) {
	q := url.Values{"query": {query}}
	if limit != nil {
		q.Set("limit", strconv.FormatUint(uint64(*limit), 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		se := &StatusError{Status: res.StatusCode}
		var env ErrorEnvelope
		if json.NewDecoder(res.Body).Decode(&env) == nil {
			se.Body = env.Error
		}
		return nil, se
	}

	var out search.Result
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &out, nil
}
