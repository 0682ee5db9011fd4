// Package session is the aggregate store a client application drives the
// API through. It keeps a per-portfolio view of every asset collection,
// the invest fund and the chart projections, applies optimistic updates
// after successful mutations, and surfaces failures through injected
// Notifier and LoadingIndicator collaborators.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

// APIError is a failure the server reported through an error envelope.
// Fields carries field-scoped validation messages for form display.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client speaks the {isError, data} envelope the API wraps every response
// in. isError is the sole failure signal; a 401 additionally invokes the
// logout hook so the embedding application can drop its credentials.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	onLogout   func()
	log        zerolog.Logger
}

// NewClient builds a client for the API at baseURL. onLogout may be nil.
func NewClient(baseURL, token string, onLogout func(), log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		onLogout:   onLogout,
		log:        log.With().Str("component", "session_client").Logger(),
	}
}

// Get fetches path and decodes the envelope data into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the envelope data into out.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put sends body as JSON and decodes the envelope data into out.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE against path.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.log.Warn().Str("path", path).Msg("Unauthorized, invoking logout hook")
		if c.onLogout != nil {
			c.onLogout()
		}
		return &APIError{StatusCode: resp.StatusCode, Message: "unauthorized"}
	}

	var envelope domain.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response envelope: %w", err)
	}

	if envelope.IsError {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    envelope.ErrorMessage("request failed"),
		}
		var payload domain.ErrorPayload
		if err := json.Unmarshal(envelope.Data, &payload); err == nil {
			apiErr.Fields = payload.Fields
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
