// Package client is the Go SDK for the waitlist API: a thin HTTP client plus
// a state container that front-end callers drive.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// Entry is the wire shape of a waitlist entry as returned by the API.
type Entry struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	ReferralCode  string  `json:"referral_code"`
	ReferredBy    *string `json:"referred_by"`
	ReferralCount int     `json:"referral_count"`
	ShareCount    int     `json:"share_count"`
	Position      int     `json:"position"`
	Source        string  `json:"source"`
	Flavor        string  `json:"flavor"`
	WithCoffee    bool    `json:"with_coffee"`
	CreatedAt     string  `json:"created_at"`
}

type JoinResult struct {
	Entry         Entry `json:"entry"`
	AlreadyJoined bool  `json:"already_joined"`
	TotalCount    int64 `json:"total_count"`
}

type CountResult struct {
	Count int64 `json:"count"`
	Goal  int   `json:"goal"`
}

type JoinOptions struct {
	Flavor     string
	WithCoffee bool
	ReferredBy string
	Source     string
}

// APIError carries the server's status code and message for non-2xx replies.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("waitlist api: %d %s", e.StatusCode, e.Message)
}

// envelope matches the server's uniform {code, data, message} response body.
type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// APIClient talks to the waitlist service over HTTP.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *APIClient) Join(ctx context.Context, email string, opts *JoinOptions) (*JoinResult, error) {
	payload := map[string]interface{}{"email": email}
	if opts != nil {
		if opts.Flavor != "" {
			payload["flavor"] = opts.Flavor
		}
		if opts.WithCoffee {
			payload["with_coffee"] = true
		}
		if opts.ReferredBy != "" {
			payload["referred_by"] = opts.ReferredBy
		}
		if opts.Source != "" {
			payload["source"] = opts.Source
		}
	}

	var result JoinResult
	if err := c.do(ctx, http.MethodPost, "/v1/waitlist", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *APIClient) Count(ctx context.Context) (*CountResult, error) {
	var result CountResult
	if err := c.do(ctx, http.MethodGet, "/v1/waitlist/count", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}
	return nil
}
